package metadata

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikhilbhutani/docqa/internal/models"
)

// PostgresStore keeps records in the document_metadata table.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, rec *models.DocumentRecord) (string, error) {
	var id string
	err := s.db.QueryRow(ctx,
		`INSERT INTO document_metadata (file_name, original_name, file_size, upload_date, storage_path)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id::text`,
		rec.FileName, rec.OriginalName, rec.FileSize, rec.UploadDate, rec.StoragePath,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert document metadata: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) Query(ctx context.Context, q Query) ([]models.DocumentRecord, error) {
	var sb strings.Builder
	var args []interface{}
	sb.WriteString(`SELECT id::text, file_name, original_name, file_size, upload_date, storage_path FROM document_metadata`)

	if q.Filter != nil {
		col, err := column(q.Filter.Field)
		if err != nil {
			return nil, err
		}
		args = append(args, q.Filter.Value)
		fmt.Fprintf(&sb, " WHERE %s::text = $%d", col, len(args))
	}

	if q.OrderBy != "" {
		col, err := column(q.OrderBy)
		if err != nil {
			return nil, err
		}
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", col, dir)
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query document metadata: %w", err)
	}
	defer rows.Close()

	var records []models.DocumentRecord
	for rows.Next() {
		var r models.DocumentRecord
		if err := rows.Scan(&r.ID, &r.FileName, &r.OriginalName, &r.FileSize, &r.UploadDate, &r.StoragePath); err != nil {
			return nil, fmt.Errorf("scan document metadata: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document metadata: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) Delete(ctx context.Context, f Filter) error {
	col, err := column(f.Field)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, fmt.Sprintf("DELETE FROM document_metadata WHERE %s::text = $1", col), f.Value)
	if err != nil {
		return fmt.Errorf("delete document metadata: %w", err)
	}
	return nil
}
