package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	api "github.com/clinicio/docflow/api/v1alpha1"
	"github.com/clinicio/docflow/internal/progress"
	"github.com/clinicio/docflow/internal/store"
	"github.com/clinicio/docflow/internal/store/model"
	"github.com/clinicio/docflow/pkg/metrics"
)

type ReviewService struct {
	store      store.Store
	aggregator *progress.Aggregator
	log        *zap.SugaredLogger
}

func NewReviewService(s store.Store) *ReviewService {
	return &ReviewService{
		store:      s,
		aggregator: progress.New(s),
		log:        zap.S().Named("review_service"),
	}
}

// ListReviewItems returns the manual review queue, oldest first.
func (s *ReviewService) ListReviewItems(ctx context.Context) (api.FileJobList, error) {
	jobs, err := s.store.FileJob().List(ctx, store.NewFileJobQueryFilter().NeedsReview())
	if err != nil {
		return nil, err
	}
	return jobs.ToApiResource(), nil
}

// Assign resolves a file to a client and session date by human decision.
// The file job moves to assigned and exactly one progress note exists for
// it afterwards; assigning the same file again updates that note in
// place.
func (s *ReviewService) Assign(ctx context.Context, fileJobID uuid.UUID, req api.AssignRequest) (*api.AssignReply, error) {
	fileJob, err := s.store.FileJob().Get(ctx, fileJobID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrFileJobNotFound(fileJobID)
		}
		return nil, err
	}

	client, err := s.store.Client().Get(ctx, req.ClientId)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrClientNotFound(req.ClientId)
		}
		return nil, err
	}

	sessionDate, err := time.Parse(time.DateOnly, req.SessionDate)
	if err != nil {
		return nil, NewErrInvalidSessionDate(req.SessionDate)
	}

	var sessionID *uuid.UUID
	if session := matchSessionByDate(client.Sessions, sessionDate, fileJob.DateTolerance); session != nil {
		sessionID = &session.ID
	}

	ctx, err = s.store.NewTransactionContext(ctx)
	if err != nil {
		return nil, err
	}

	note := fmt.Sprintf("assigned to %s by reviewer", client.Name)
	updated, err := s.store.FileJob().UpdateStatus(ctx, fileJobID, api.FileJobStatusAssigned, store.FileJobPatch{
		SuggestedClientID:    &client.ID,
		SuggestedClientName:  &client.Name,
		ExtractedSessionDate: &sessionDate,
		SessionType:          &req.SessionType,
		AppendNote:           &note,
	})
	if err != nil {
		_, _ = store.Rollback(ctx)
		var invalid *store.ErrInvalidTransition
		if errors.As(err, &invalid) {
			return nil, NewErrFileJobNotAssignable(fileJobID, fileJob.Status)
		}
		return nil, err
	}

	record, err := s.store.ProgressNote().UpsertForFileJob(ctx, model.ProgressNote{
		ID:          uuid.New(),
		FileJobID:   &fileJobID,
		ClientID:    client.ID,
		SessionID:   sessionID,
		SessionDate: sessionDate,
		SessionType: req.SessionType,
		Content:     fileJob.Content,
	})
	if err != nil {
		_, _ = store.Rollback(ctx)
		return nil, err
	}

	if _, err := store.Commit(ctx); err != nil {
		return nil, err
	}

	// A human decision is an outcome like any other: the batch counters
	// must move, or a batch whose last file went through review would
	// read processing forever.
	if _, err := s.aggregator.Recompute(ctx, fileJob.BatchID); err != nil {
		s.log.Errorw("recomputing batch progress", "batch", fileJob.BatchID, "error", err)
	}

	if depth, err := s.store.FileJob().CountNeedsReview(ctx); err == nil {
		metrics.SetReviewQueueDepthMetric(depth)
	}

	s.log.Infow("file assigned", "file_job", fileJobID, "client", client.ID, "session_date", req.SessionDate)
	return &api.AssignReply{FileJob: updated.ToApiResource(), ProgressNoteId: record.ID}, nil
}
