package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	api "github.com/clinicio/docflow/api/v1alpha1"
	"github.com/clinicio/docflow/internal/progress"
	"github.com/clinicio/docflow/internal/service/mappers"
	"github.com/clinicio/docflow/internal/store"
)

type BatchService struct {
	store            store.Store
	maxRetries       int
	maxDateTolerance int
	log              *zap.SugaredLogger
}

func NewBatchService(s store.Store, maxRetries, maxDateTolerance int) *BatchService {
	return &BatchService{
		store:            s,
		maxRetries:       maxRetries,
		maxDateTolerance: maxDateTolerance,
		log:              zap.S().Named("batch_service"),
	}
}

// CreateBatch persists the batch and one file job per uploaded file in a
// single transaction. The workers pick the jobs up from there; the call
// returns as soon as the rows are durable.
func (s *BatchService) CreateBatch(ctx context.Context, req api.BatchCreateRequest) (*api.Batch, error) {
	tolerance := 0
	if req.DateToleranceDays != nil {
		tolerance = *req.DateToleranceDays
	}
	if tolerance < 0 {
		tolerance = 0
	}
	if tolerance > s.maxDateTolerance {
		tolerance = s.maxDateTolerance
	}

	batch, jobs := mappers.BatchFromCreateRequest(req, tolerance, s.maxRetries)

	ctx, err := s.store.NewTransactionContext(ctx)
	if err != nil {
		return nil, err
	}

	created, err := s.store.Batch().Create(ctx, batch)
	if err != nil {
		_, _ = store.Rollback(ctx)
		return nil, err
	}
	if err := s.store.FileJob().CreateAll(ctx, jobs); err != nil {
		_, _ = store.Rollback(ctx)
		return nil, err
	}

	if _, err := store.Commit(ctx); err != nil {
		return nil, err
	}

	s.log.Infow("batch created", "batch", created.ID, "files", created.TotalFiles)

	resource := progress.Decorate(created, time.Now())
	return &resource, nil
}

func (s *BatchService) GetBatch(ctx context.Context, id uuid.UUID) (*api.Batch, error) {
	batch, err := s.store.Batch().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrBatchNotFound(id)
		}
		return nil, err
	}

	resource := progress.Decorate(batch, time.Now())
	return &resource, nil
}

func (s *BatchService) ListBatches(ctx context.Context) (api.BatchList, error) {
	batches, err := s.store.Batch().List(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	resources := make(api.BatchList, 0, len(batches))
	for i := range batches {
		resources = append(resources, progress.Decorate(&batches[i], now))
	}
	return resources, nil
}

// ListBatchFiles returns the per-file rows of one batch, optionally
// narrowed to a status.
func (s *BatchService) ListBatchFiles(ctx context.Context, batchID uuid.UUID, status string) (api.FileJobList, error) {
	if _, err := s.store.Batch().Get(ctx, batchID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrBatchNotFound(batchID)
		}
		return nil, err
	}

	filter := store.NewFileJobQueryFilter().ByBatchID(batchID)
	if status != "" {
		filter = filter.ByStatus(status)
	}

	jobs, err := s.store.FileJob().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return jobs.ToApiResource(), nil
}
