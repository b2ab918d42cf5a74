package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	api "github.com/clinicio/docflow/api/v1alpha1"
	"github.com/clinicio/docflow/internal/store"
)

type JobService struct {
	store store.Store
	log   *zap.SugaredLogger
}

func NewJobService(s store.Store) *JobService {
	return &JobService{store: s, log: zap.S().Named("job_service")}
}

func (s *JobService) GetJob(ctx context.Context, id uuid.UUID) (*api.Job, error) {
	job, err := s.store.Job().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(id)
		}
		return nil, err
	}

	resource := job.ToApiResource()
	return &resource, nil
}

func (s *JobService) ListJobs(ctx context.Context, jobType, status string, limit int) (api.JobList, error) {
	filter := store.NewJobQueryFilter()
	if jobType != "" {
		filter = filter.ByType(jobType)
	}
	if status != "" {
		filter = filter.ByStatus(status)
	}
	if limit > 0 {
		filter = filter.WithLimit(limit)
	}

	jobs, err := s.store.Job().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return jobs.ToApiResource(), nil
}

// RetryJob is the explicit human retry for a dead job: the retry counter
// goes back to zero and the job becomes claimable again.
func (s *JobService) RetryJob(ctx context.Context, id uuid.UUID) (*api.Job, error) {
	job, err := s.store.Job().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(id)
		}
		return nil, err
	}

	if job.Status != api.JobStatusFailed {
		return nil, NewErrJobNotRetryable(id, job.Status)
	}

	reset, err := s.store.Job().ResetForRetry(ctx, id)
	if err != nil {
		var invalid *store.ErrInvalidTransition
		if errors.As(err, &invalid) {
			return nil, NewErrJobNotRetryable(id, job.Status)
		}
		return nil, err
	}

	s.log.Infow("job reset for retry", "job", id, "type", reset.Type)
	resource := reset.ToApiResource()
	return &resource, nil
}
