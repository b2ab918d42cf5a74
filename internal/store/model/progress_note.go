package model

import (
	"time"

	"github.com/google/uuid"
)

// ProgressNote is the downstream clinical record created when a file job
// is assigned to a client/session. FileJobID carries a unique index so an
// assignment retried for the same file updates the existing note instead
// of inserting a duplicate.
type ProgressNote struct {
	ID          uuid.UUID  `gorm:"primaryKey;"`
	FileJobID   *uuid.UUID `gorm:"uniqueIndex"`
	ClientID    uuid.UUID  `gorm:"index;not null"`
	SessionID   *uuid.UUID `gorm:"index"`
	SessionDate time.Time  `gorm:"not null"`
	SessionType string
	Content     string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ProgressNoteList []ProgressNote
