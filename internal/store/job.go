package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	api "github.com/clinicio/docflow/api/v1alpha1"
	"github.com/clinicio/docflow/internal/store/model"
)

type Job interface {
	Create(ctx context.Context, job model.Job) (*model.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Job, error)
	List(ctx context.Context, filter *JobQueryFilter) (model.JobList, error)
	Claim(ctx context.Context) (*model.Job, error)
	Complete(ctx context.Context, id uuid.UUID, result []byte) (*model.Job, error)
	Requeue(ctx context.Context, id uuid.UUID, retries int, nextAttempt time.Time, lastError string) error
	MarkDead(ctx context.Context, id uuid.UUID, lastError string) (*model.Job, error)
	ResetForRetry(ctx context.Context, id uuid.UUID) (*model.Job, error)
}

type JobStore struct {
	db *gorm.DB
}

// Make sure we conform to Job interface
var _ Job = (*JobStore)(nil)

func NewJobStore(db *gorm.DB) Job {
	return &JobStore{db: db}
}

func (s *JobStore) Create(ctx context.Context, job model.Job) (*model.Job, error) {
	if result := s.getDB(ctx).Create(&job); result.Error != nil {
		return nil, fmt.Errorf("creating job: %w", result.Error)
	}
	return &job, nil
}

func (s *JobStore) Get(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	job := model.NewJobFromID(id)
	result := s.getDB(ctx).First(&job)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return job, nil
}

func (s *JobStore) List(ctx context.Context, filter *JobQueryFilter) (model.JobList, error) {
	var jobs model.JobList
	tx := s.getDB(ctx).Model(&jobs).Order("created_at DESC")
	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}
	if result := tx.Find(&jobs); result.Error != nil {
		return nil, result.Error
	}
	return jobs, nil
}

// Claim atomically moves the next runnable job to running. Same optimistic
// discipline as the file job claim: the current state is a precondition,
// losers retry on the next candidate.
func (s *JobStore) Claim(ctx context.Context) (*model.Job, error) {
	db := s.getDB(ctx)
	now := time.Now()

	for attempt := 0; attempt < claimAttempts; attempt++ {
		var job model.Job
		result := db.
			Where("status = ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)", api.JobStatusQueued, now).
			Order("created_at").
			First(&job)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, result.Error
		}

		claim := db.Model(&model.Job{}).
			Where("id = ? AND status = ?", job.ID, api.JobStatusQueued).
			Updates(map[string]any{"status": api.JobStatusRunning, "next_attempt_at": nil})
		if claim.Error != nil {
			return nil, claim.Error
		}
		if claim.RowsAffected == 1 {
			return s.Get(ctx, job.ID)
		}
	}

	return nil, nil
}

func (s *JobStore) Complete(ctx context.Context, id uuid.UUID, jobResult []byte) (*model.Job, error) {
	return s.transition(ctx, id, api.JobStatusCompleted, map[string]any{"result": jobResult})
}

// Requeue puts a transiently failed job back in the queue with a delayed
// attempt time.
func (s *JobStore) Requeue(ctx context.Context, id uuid.UUID, retries int, nextAttempt time.Time, lastError string) error {
	_, err := s.transition(ctx, id, api.JobStatusQueued, map[string]any{
		"retries":         retries,
		"next_attempt_at": nextAttempt,
		"error":           lastError,
	})
	return err
}

// MarkDead finalizes a job whose retry budget is exhausted. A dead job is
// never claimed again; it stays addressable in job history until a human
// resets it.
func (s *JobStore) MarkDead(ctx context.Context, id uuid.UUID, lastError string) (*model.Job, error) {
	return s.transition(ctx, id, api.JobStatusFailed, map[string]any{
		"is_dead": true,
		"error":   lastError,
	})
}

// ResetForRetry is the explicit human retry: counter back to zero, dead
// flag cleared, job re-queued.
func (s *JobStore) ResetForRetry(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	return s.transition(ctx, id, api.JobStatusQueued, map[string]any{
		"retries":         0,
		"is_dead":         false,
		"error":           nil,
		"next_attempt_at": nil,
	})
}

func (s *JobStore) transition(ctx context.Context, id uuid.UUID, status string, updates map[string]any) (*model.Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(jobTransitions, job.Status, status) {
		return nil, NewErrInvalidTransition("job", job.Status, status)
	}

	updates["status"] = status
	result := s.getDB(ctx).Model(&model.Job{}).
		Where("id = ? AND status = ?", id, job.Status).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrStaleWrite
	}

	return s.Get(ctx, id)
}

func (s *JobStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
