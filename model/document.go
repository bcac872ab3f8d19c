package model

import (
	"time"

	"github.com/google/uuid"
)

// Document represents a source document in the registry. Filename is the
// retrievable identifier, DisplayName the human-readable name used for
// citations.
type Document struct {
	ID          int64     `json:"id"`
	RID         uuid.UUID `json:"rid"`
	Filename    string    `json:"filename"`
	DisplayName string    `json:"display_name"`
	Metadata    Metadata  `json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
