package entity

import (
	"time"

	"github.com/google/uuid"
)

// ExtractJob tracks one extraction run over one file.
type ExtractJob struct {
	ID           uuid.UUID  `json:"id"`
	FileID       uuid.UUID  `json:"file_id"`
	Format       string     `json:"format"` // constants.PDF | constants.IMAGE
	Status       string     `json:"status"`
	Pages        int        `json:"pages"`
	ModelName    string     `json:"model_name,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}
