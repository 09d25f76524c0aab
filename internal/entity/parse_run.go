package entity

import (
	"time"

	"github.com/google/uuid"
)

// ParseRun is one attempt at parsing a document file.
type ParseRun struct {
	ID                   uuid.UUID  `json:"id"`
	FileID               uuid.UUID  `json:"file_id"`
	DocumentID           *uuid.UUID `json:"document_id,omitempty"`
	Format               string     `json:"format"`
	StartedAt            time.Time  `json:"started_at"`
	FinishedAt           *time.Time `json:"finished_at,omitempty"`
	Status               string     `json:"status"`
	ErrorMessage         *string    `json:"error_message,omitempty"`
	ExtractionConfidence *float64   `json:"extraction_confidence,omitempty"`
	ExtractionMethod     *string    `json:"extraction_method,omitempty"`
	ParserVersion        string     `json:"parser_version"`
}
