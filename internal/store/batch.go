package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicio/docflow/internal/store/model"
)

type BatchProgressPatch struct {
	ProcessedFiles  int
	SuccessfulFiles int
	FailedFiles     int
	Status          string
	ProcessedAt     *time.Time
}

type Batch interface {
	Create(ctx context.Context, batch model.Batch) (*model.Batch, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Batch, error)
	List(ctx context.Context) (model.BatchList, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, patch BatchProgressPatch) (*model.Batch, error)
}

type BatchStore struct {
	db *gorm.DB
}

// Make sure we conform to Batch interface
var _ Batch = (*BatchStore)(nil)

func NewBatchStore(db *gorm.DB) Batch {
	return &BatchStore{db: db}
}

func (s *BatchStore) Create(ctx context.Context, batch model.Batch) (*model.Batch, error) {
	if result := s.getDB(ctx).Create(&batch); result.Error != nil {
		return nil, fmt.Errorf("creating batch: %w", result.Error)
	}
	return &batch, nil
}

func (s *BatchStore) Get(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	batch := model.NewBatchFromID(id)
	result := s.getDB(ctx).First(&batch)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return batch, nil
}

func (s *BatchStore) List(ctx context.Context) (model.BatchList, error) {
	var batches model.BatchList
	result := s.getDB(ctx).Model(&batches).Order("uploaded_at DESC").Find(&batches)
	if result.Error != nil {
		return nil, result.Error
	}
	return batches, nil
}

// UpdateProgress applies the aggregator's recomputed counts. The status
// change is validated against the forward-only transition table and the
// write carries the previous status as a precondition, so a concurrent
// writer cannot regress a terminal batch.
func (s *BatchStore) UpdateProgress(ctx context.Context, id uuid.UUID, patch BatchProgressPatch) (*model.Batch, error) {
	batch, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(batchTransitions, batch.Status, patch.Status) {
		return nil, NewErrInvalidTransition("batch", batch.Status, patch.Status)
	}

	updates := map[string]any{
		"processed_files":  patch.ProcessedFiles,
		"successful_files": patch.SuccessfulFiles,
		"failed_files":     patch.FailedFiles,
		"status":           patch.Status,
	}
	if patch.ProcessedAt != nil {
		updates["processed_at"] = patch.ProcessedAt
	}

	result := s.getDB(ctx).Model(&model.Batch{}).
		Where("id = ? AND status = ?", id, batch.Status).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrStaleWrite
	}

	return s.Get(ctx, id)
}

func (s *BatchStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
