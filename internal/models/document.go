package models

import (
	"time"
)

// DocumentRecord is the metadata row written once per uploaded file.
type DocumentRecord struct {
	ID           string    `json:"id" db:"id"`
	FileName     string    `json:"fileName" db:"file_name"`
	OriginalName string    `json:"originalName" db:"original_name"`
	FileSize     int64     `json:"fileSize" db:"file_size"`
	UploadDate   time.Time `json:"uploadDate" db:"upload_date"`
	StoragePath  string    `json:"storagePath" db:"storage_path"`
}

// ChunkMetadata travels with every indexed passage.
type ChunkMetadata struct {
	DocID       string    `json:"docId"`
	Source      string    `json:"source"`
	Page        int       `json:"page"`
	BookName    string    `json:"bookName"`
	FileSize    int64     `json:"fileSize"`
	UploadDate  time.Time `json:"uploadDate"`
	StoragePath string    `json:"storagePath"`
}

type Chunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// VectorRecord is a chunk as stored in the vector index. The ID is assigned by the index.
type VectorRecord struct {
	ID       int64         `json:"id"`
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// FileObject is a blob listing entry.
type FileObject struct {
	Name        string                 `json:"name"`
	ID          string                 `json:"id,omitempty"`
	BucketID    string                 `json:"bucket_id,omitempty"`
	Size        int64                  `json:"size"`
	ContentType string                 `json:"content_type,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

const (
	ProgressProcessing = "processing"
	ProgressCompleted  = "completed"
	ProgressFailed     = "failed"
)

// UploadProgress is the last reported ingestion checkpoint for a file.
type UploadProgress struct {
	FileName  string    `json:"fileName"`
	Progress  int       `json:"progress"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}
