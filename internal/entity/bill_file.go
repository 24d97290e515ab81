package entity

import (
	"time"

	"github.com/google/uuid"
)

// BillFile represents an ingested source document.
type BillFile struct {
	ID          uuid.UUID `json:"id"`
	SourcePath  string    `json:"source_path"`
	Filename    string    `json:"filename"`
	FileExt     string    `json:"file_ext"`
	FileSize    int64     `json:"file_size"`
	ContentHash []byte    `json:"content_hash"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
