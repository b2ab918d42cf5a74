package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/clinicio/docflow/internal/store/model"
)

type ProgressNote interface {
	Create(ctx context.Context, note model.ProgressNote) (*model.ProgressNote, error)
	GetByFileJob(ctx context.Context, fileJobID uuid.UUID) (*model.ProgressNote, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) (model.ProgressNoteList, error)
	// UpsertForFileJob writes the downstream clinical record for an
	// assignment. Conflicts on file_job_id update in place, which is what
	// makes assign idempotent per file.
	UpsertForFileJob(ctx context.Context, note model.ProgressNote) (*model.ProgressNote, error)
}

type ProgressNoteStore struct {
	db *gorm.DB
}

// Make sure we conform to ProgressNote interface
var _ ProgressNote = (*ProgressNoteStore)(nil)

func NewProgressNoteStore(db *gorm.DB) ProgressNote {
	return &ProgressNoteStore{db: db}
}

func (s *ProgressNoteStore) Create(ctx context.Context, note model.ProgressNote) (*model.ProgressNote, error) {
	if result := s.getDB(ctx).Create(&note); result.Error != nil {
		return nil, fmt.Errorf("creating progress note: %w", result.Error)
	}
	return &note, nil
}

func (s *ProgressNoteStore) GetByFileJob(ctx context.Context, fileJobID uuid.UUID) (*model.ProgressNote, error) {
	var note model.ProgressNote
	result := s.getDB(ctx).First(&note, "file_job_id = ?", fileJobID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &note, nil
}

func (s *ProgressNoteStore) ListByClient(ctx context.Context, clientID uuid.UUID) (model.ProgressNoteList, error) {
	var notes model.ProgressNoteList
	result := s.getDB(ctx).Where("client_id = ?", clientID).Order("session_date").Find(&notes)
	if result.Error != nil {
		return nil, result.Error
	}
	return notes, nil
}

func (s *ProgressNoteStore) UpsertForFileJob(ctx context.Context, note model.ProgressNote) (*model.ProgressNote, error) {
	if note.FileJobID == nil {
		return nil, fmt.Errorf("upsert requires a file job reference")
	}

	note.UpdatedAt = time.Now()
	if err := s.getDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_job_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"client_id", "session_id", "session_date", "session_type", "content", "updated_at"}),
	}).Create(&note).Error; err != nil {
		return nil, fmt.Errorf("upserting progress note: %w", err)
	}

	return s.GetByFileJob(ctx, *note.FileJobID)
}

func (s *ProgressNoteStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
