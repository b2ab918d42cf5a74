package model

import (
	"time"

	"github.com/google/uuid"

	api "github.com/clinicio/docflow/api/v1alpha1"
)

// Document statuses for the smart-upload path.
const (
	DocumentStatusUploaded   = "uploaded"
	DocumentStatusProcessing = "processing"
	DocumentStatusResolved   = "resolved"
)

// Document is a raw file uploaded through smart-upload, waiting for an
// explicit smart-process-async call to enqueue its resolution.
type Document struct {
	ID        uuid.UUID `gorm:"primaryKey;"`
	FileName  string    `gorm:"not null"`
	Content   string    `gorm:"type:text"`
	Status    string    `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type DocumentList []Document

func (d *Document) ToApiResource() api.UploadedDocument {
	return api.UploadedDocument{DocumentId: d.ID, Filename: d.FileName, Status: d.Status}
}
