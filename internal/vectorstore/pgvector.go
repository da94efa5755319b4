package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/nikhilbhutani/docqa/internal/models"
)

// PgVectorStore keeps chunks in the documents table (content, jsonb metadata, vector embedding).
type PgVectorStore struct {
	db *pgxpool.Pool
}

func NewPgVectorStore(db *pgxpool.Pool) *PgVectorStore {
	return &PgVectorStore{db: db}
}

func (s *PgVectorStore) Insert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata %d: %w", i, err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO documents (content, metadata, embedding) VALUES ($1, $2, $3)`,
			r.Content, meta, pgvector.NewVector(r.Embedding),
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PgVectorStore) SimilaritySearch(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = 2
	}

	sql, err := searchSQL(opts.Filter)
	if err != nil {
		return nil, err
	}
	args := []interface{}{pgvector.NewVector(query), opts.TopK}
	if opts.Filter != nil {
		args = append(args, opts.Filter.Value)
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			r    SearchResult
			meta []byte
		)
		if err := rows.Scan(&r.ID, &r.Content, &meta, &r.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal(meta, &r.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of %d: %w", r.ID, err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}

// searchSQL builds the top-K query. A filtered search ranks only the rows that
// match the filter: the MATERIALIZED CTE keeps the planner from running the
// HNSW scan first and filtering its ef_search candidates afterwards.
func searchSQL(filter *Filter) (string, error) {
	if filter == nil {
		return `SELECT id, content, metadata, 1 - (embedding <=> $1) AS score
			FROM documents
			ORDER BY embedding <=> $1
			LIMIT $2`, nil
	}
	if err := filter.Field.valid(); err != nil {
		return "", err
	}
	return fmt.Sprintf(`WITH candidates AS MATERIALIZED (
				SELECT id, content, metadata, embedding FROM documents WHERE metadata->>'%s' = $3
			)
			SELECT id, content, metadata, 1 - (embedding <=> $1) AS score
			FROM candidates
			ORDER BY embedding <=> $1
			LIMIT $2`, filter.Field), nil
}

func (s *PgVectorStore) Delete(ctx context.Context, filter Filter) error {
	if err := filter.Field.valid(); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx,
		fmt.Sprintf("DELETE FROM documents WHERE metadata->>'%s' = $1", filter.Field),
		filter.Value,
	)
	if err != nil {
		return fmt.Errorf("delete chunks by %s: %w", filter.Field, err)
	}
	return nil
}

func (s *PgVectorStore) List(ctx context.Context, start, end int) ([]models.VectorRecord, int, error) {
	var total int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM documents`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count chunks: %w", err)
	}
	if end < start {
		return nil, total, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, content, metadata FROM documents ORDER BY id LIMIT $1 OFFSET $2`,
		end-start+1, start,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var records []models.VectorRecord
	for rows.Next() {
		var (
			r    models.VectorRecord
			meta []byte
		)
		if err := rows.Scan(&r.ID, &r.Content, &meta); err != nil {
			return nil, 0, fmt.Errorf("scan chunk: %w", err)
		}
		if err := json.Unmarshal(meta, &r.Metadata); err != nil {
			return nil, 0, fmt.Errorf("decode metadata of %d: %w", r.ID, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate chunks: %w", err)
	}
	return records, total, nil
}
