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

const (
	claimAttempts = 5

	// claimLease bounds how long a claimed file job can sit in processing
	// without recording an outcome before another worker may reclaim it.
	claimLease = 5 * time.Minute
)

// FileJobPatch is a partial update; nil fields stay untouched so
// concurrent writers cannot clobber unrelated columns.
type FileJobPatch struct {
	ClientMatchConfidence *int
	SuggestedClientID     *uuid.UUID
	SuggestedClientName   *string
	ExtractedSessionDate  *time.Time
	SessionType           *string
	Themes                []string
	AppendNote            *string
	ManualReviewReason    *string
	LastError             *string
	Retries               *int
}

type FileJob interface {
	Create(ctx context.Context, job model.FileJob) (*model.FileJob, error)
	CreateAll(ctx context.Context, jobs []model.FileJob) error
	Get(ctx context.Context, id uuid.UUID) (*model.FileJob, error)
	List(ctx context.Context, filter *FileJobQueryFilter) (model.FileJobList, error)
	CountByStatus(ctx context.Context, batchID uuid.UUID) (map[string]int, error)
	CountNeedsReview(ctx context.Context) (int, error)
	Claim(ctx context.Context) (*model.FileJob, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, patch FileJobPatch) (*model.FileJob, error)
	Requeue(ctx context.Context, id uuid.UUID, retries int, nextAttempt time.Time, lastError string) error
}

type FileJobStore struct {
	db *gorm.DB
}

// Make sure we conform to FileJob interface
var _ FileJob = (*FileJobStore)(nil)

func NewFileJobStore(db *gorm.DB) FileJob {
	return &FileJobStore{db: db}
}

func (s *FileJobStore) Create(ctx context.Context, job model.FileJob) (*model.FileJob, error) {
	if result := s.getDB(ctx).Create(&job); result.Error != nil {
		return nil, fmt.Errorf("creating file job: %w", result.Error)
	}
	return &job, nil
}

func (s *FileJobStore) CreateAll(ctx context.Context, jobs []model.FileJob) error {
	if len(jobs) == 0 {
		return nil
	}
	if result := s.getDB(ctx).Create(&jobs); result.Error != nil {
		return fmt.Errorf("creating file jobs: %w", result.Error)
	}
	return nil
}

func (s *FileJobStore) Get(ctx context.Context, id uuid.UUID) (*model.FileJob, error) {
	job := model.NewFileJobFromID(id)
	result := s.getDB(ctx).First(&job)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return job, nil
}

func (s *FileJobStore) List(ctx context.Context, filter *FileJobQueryFilter) (model.FileJobList, error) {
	var jobs model.FileJobList
	tx := s.getDB(ctx).Model(&jobs).Order("created_at")
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

func (s *FileJobStore) CountByStatus(ctx context.Context, batchID uuid.UUID) (map[string]int, error) {
	var rows []struct {
		Status string
		Count  int
	}
	result := s.getDB(ctx).Model(&model.FileJob{}).
		Select("status, count(*) as count").
		Where("batch_id = ?", batchID).
		Group("status").
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (s *FileJobStore) CountNeedsReview(ctx context.Context) (int, error) {
	var count int64
	result := s.getDB(ctx).Model(&model.FileJob{}).
		Where("status = ?", api.FileJobStatusNeedsReview).
		Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(count), nil
}

// Claim atomically assigns the next pending file job to the caller. The
// update carries the candidate's current status (and attempt time) as a
// precondition, so two workers racing for the same row leave exactly one
// winner; the loser moves on to the next candidate. Every claim stamps
// next_attempt_at with a lease: a worker that dies mid-file only delays
// the job until the lease expires and another worker reclaims it.
func (s *FileJobStore) Claim(ctx context.Context) (*model.FileJob, error) {
	db := s.getDB(ctx)
	now := time.Now()
	lease := now.Add(claimLease)

	for attempt := 0; attempt < claimAttempts; attempt++ {
		var job model.FileJob
		result := db.
			Where("status = ?", api.FileJobStatusUploaded).
			Or("status = ? AND next_attempt_at <= ?", api.FileJobStatusProcessing, now).
			Order("created_at").
			First(&job)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, result.Error
		}

		var claim *gorm.DB
		if job.Status == api.FileJobStatusUploaded {
			claim = db.Model(&model.FileJob{}).
				Where("id = ? AND status = ?", job.ID, api.FileJobStatusUploaded).
				Updates(map[string]any{"status": api.FileJobStatusProcessing, "next_attempt_at": lease})
		} else {
			claim = db.Model(&model.FileJob{}).
				Where("id = ? AND status = ? AND next_attempt_at = ?", job.ID, api.FileJobStatusProcessing, job.NextAttemptAt).
				Updates(map[string]any{"next_attempt_at": lease})
		}
		if claim.Error != nil {
			return nil, claim.Error
		}
		if claim.RowsAffected == 1 {
			return s.Get(ctx, job.ID)
		}
		// lost the race, try the next candidate
	}

	return nil, nil
}

// UpdateStatus applies a partial patch together with a guarded status
// transition. The previous status is a write precondition.
func (s *FileJobStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string, patch FileJobPatch) (*model.FileJob, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(fileJobTransitions, job.Status, status) {
		return nil, NewErrInvalidTransition("file job", job.Status, status)
	}

	// recording an outcome releases the claim lease
	updates := map[string]any{"status": status, "next_attempt_at": nil}
	if patch.ClientMatchConfidence != nil {
		updates["client_match_confidence"] = *patch.ClientMatchConfidence
	}
	if patch.SuggestedClientID != nil {
		updates["suggested_client_id"] = *patch.SuggestedClientID
	}
	if patch.SuggestedClientName != nil {
		updates["suggested_client_name"] = *patch.SuggestedClientName
	}
	if patch.ExtractedSessionDate != nil {
		updates["extracted_session_date"] = *patch.ExtractedSessionDate
	}
	if patch.SessionType != nil {
		updates["session_type"] = *patch.SessionType
	}
	if patch.Themes != nil {
		updates["themes"] = model.EncodeStringList(patch.Themes)
	}
	if patch.AppendNote != nil {
		notes := append(job.NoteList(), *patch.AppendNote)
		updates["processing_notes"] = model.EncodeStringList(notes)
	}
	if patch.ManualReviewReason != nil {
		updates["manual_review_reason"] = *patch.ManualReviewReason
	}
	if patch.LastError != nil {
		updates["last_error"] = *patch.LastError
	}
	if patch.Retries != nil {
		updates["retries"] = *patch.Retries
	}

	result := s.getDB(ctx).Model(&model.FileJob{}).
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

// Requeue schedules another attempt after a transient failure. The job
// stays in processing so polling clients keep seeing "processing" until
// retries exhaust.
func (s *FileJobStore) Requeue(ctx context.Context, id uuid.UUID, retries int, nextAttempt time.Time, lastError string) error {
	result := s.getDB(ctx).Model(&model.FileJob{}).
		Where("id = ? AND status = ?", id, api.FileJobStatusProcessing).
		Updates(map[string]any{
			"retries":         retries,
			"next_attempt_at": nextAttempt,
			"last_error":      lastError,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}

func (s *FileJobStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
