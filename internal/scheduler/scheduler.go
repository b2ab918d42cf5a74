// Package scheduler runs the fixed-size worker pool that drives file jobs
// and generic async jobs through their pipelines. Workers poll the store
// on a jittered ticker and claim work atomically, so any number of
// replicas can share one database.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"

	api "github.com/clinicio/docflow/api/v1alpha1"
	"github.com/clinicio/docflow/internal/extraction"
	"github.com/clinicio/docflow/internal/progress"
	"github.com/clinicio/docflow/internal/resolver"
	"github.com/clinicio/docflow/internal/service/mappers"
	"github.com/clinicio/docflow/internal/store"
	"github.com/clinicio/docflow/internal/store/model"
	"github.com/clinicio/docflow/pkg/metrics"
)

// JobHandler executes one generic async job and returns its result
// payload. Errors are treated as transient and retried up to the job's
// retry budget.
type JobHandler func(ctx context.Context, job *model.Job) ([]byte, error)

type Config struct {
	Workers        int
	MaxRetries     int
	BackoffBase    time.Duration
	BackoffCap     time.Duration
	PollInterval   time.Duration
	ResolveTimeout time.Duration
}

type Scheduler struct {
	store      store.Store
	extractor  extraction.TextExtractor
	resolver   *resolver.Resolver
	aggregator *progress.Aggregator
	cfg        Config

	handlersMu sync.RWMutex
	handlers   map[string]JobHandler

	log *zap.SugaredLogger
}

func New(s store.Store, extractor extraction.TextExtractor, r *resolver.Resolver, cfg Config) *Scheduler {
	return &Scheduler{
		store:      s,
		extractor:  extractor,
		resolver:   r,
		aggregator: progress.New(s),
		cfg:        cfg,
		handlers:   make(map[string]JobHandler),
		log:        zap.S().Named("scheduler"),
	}
}

// RegisterHandler binds a handler to a generic job type. Jobs of an
// unregistered type are marked dead on claim.
func (s *Scheduler) RegisterHandler(jobType string, handler JobHandler) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.handlers[jobType] = handler
}

func (s *Scheduler) handler(jobType string) (JobHandler, bool) {
	s.handlersMu.RLock()
	defer s.handlersMu.RUnlock()
	h, ok := s.handlers[jobType]
	return h, ok
}

// Run starts the worker pool and blocks until the context is cancelled
// and every worker has drained its current item.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Infof("starting %d workers, poll interval %s", s.cfg.Workers, s.cfg.PollInterval)

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s.worker(ctx, id)
		}(i)
	}
	wg.Wait()

	s.log.Info("all workers stopped")
}

func (s *Scheduler) worker(ctx context.Context, id int) {
	ticker := jitterbug.New(s.cfg.PollInterval, &jitterbug.Norm{Stdev: s.cfg.PollInterval / 10})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Debugf("worker %d stopping", id)
			return
		case <-ticker.C:
			// Drain everything that is runnable before sleeping again.
			for s.runOnce(ctx) {
				if ctx.Err() != nil {
					return
				}
			}
		}
	}
}

// runOnce claims and processes at most one unit of work. File jobs take
// priority over generic jobs. Returns false when both queues are empty.
func (s *Scheduler) runOnce(ctx context.Context) bool {
	fileJob, err := s.store.FileJob().Claim(ctx)
	if err != nil {
		s.log.Errorw("claiming file job", "error", err)
		return false
	}
	if fileJob != nil {
		s.processFileJob(ctx, fileJob)
		return true
	}

	job, err := s.store.Job().Claim(ctx)
	if err != nil {
		s.log.Errorw("claiming job", "error", err)
		return false
	}
	if job != nil {
		s.processJob(ctx, job)
		return true
	}

	return false
}

// processFileJob runs the per-file pipeline: extract, resolve, apply the
// banded decision, then recompute the batch counters.
func (s *Scheduler) processFileJob(ctx context.Context, job *model.FileJob) {
	rctx, cancel := context.WithTimeout(ctx, s.cfg.ResolveTimeout)
	defer cancel()

	text, err := s.extractor.Extract(rctx, extraction.Document{
		FileName:   job.FileName,
		Content:    job.Content,
		UploadedAt: job.CreatedAt,
	})
	if err != nil {
		s.failFileJob(ctx, job, err)
		return
	}

	roster, err := s.roster(ctx)
	if err != nil {
		s.failFileJob(ctx, job, err)
		return
	}

	result, err := s.resolver.Resolve(rctx, resolver.Input{
		Text:          text,
		FileName:      job.FileName,
		UploadedAt:    job.CreatedAt,
		Clients:       roster,
		DateTolerance: job.DateTolerance,
	})
	if err != nil {
		s.failFileJob(ctx, job, err)
		return
	}

	if err := s.applyResolution(ctx, job, result); err != nil {
		s.log.Errorw("applying resolution", "file_job", job.ID, "error", err)
		return
	}

	if _, err := s.aggregator.Recompute(ctx, job.BatchID); err != nil {
		s.log.Errorw("recomputing batch progress", "batch", job.BatchID, "error", err)
	}
}

func (s *Scheduler) applyResolution(ctx context.Context, job *model.FileJob, result *resolver.Result) error {
	patch := store.FileJobPatch{
		ClientMatchConfidence: &result.ClientConfidence,
		ExtractedSessionDate:  result.SessionDate,
		Themes:                result.Themes,
	}
	if result.SessionType != "" {
		patch.SessionType = &result.SessionType
	}
	if result.Best != nil {
		patch.SuggestedClientID = &result.Best.ClientID
		patch.SuggestedClientName = &result.Best.ClientName
	}

	if result.Decision == resolver.DecisionAutoAssign {
		note := "auto-assigned to " + result.Best.ClientName
		patch.AppendNote = &note
		updated, err := s.store.FileJob().UpdateStatus(ctx, job.ID, api.FileJobStatusCompleted, patch)
		if err != nil {
			return err
		}

		record := model.ProgressNote{
			FileJobID:   &updated.ID,
			ClientID:    result.Best.ClientID,
			SessionDate: *result.SessionDate,
			SessionType: result.SessionType,
			Content:     job.Content,
		}
		if _, err := s.store.ProgressNote().UpsertForFileJob(ctx, record); err != nil {
			return err
		}

		metrics.IncreaseFilesProcessedMetric(api.FileJobStatusCompleted)
		s.log.Infow("file auto-assigned",
			"file_job", job.ID, "client", result.Best.ClientID, "confidence", result.ClientConfidence)
		return nil
	}

	note := "routed to manual review: " + result.ReviewReason
	patch.AppendNote = &note
	patch.ManualReviewReason = &result.ReviewReason
	if _, err := s.store.FileJob().UpdateStatus(ctx, job.ID, api.FileJobStatusNeedsReview, patch); err != nil {
		return err
	}

	metrics.IncreaseFilesProcessedMetric(api.FileJobStatusNeedsReview)
	s.updateReviewDepth(ctx)
	s.log.Infow("file routed to review", "file_job", job.ID, "reason", result.ReviewReason)
	return nil
}

// failFileJob handles a pipeline failure: schedule another attempt with
// exponential backoff, or finalize as failed once the retry budget is
// spent. Permanent failures skip the backoff entirely. The job keeps
// reading as processing to pollers during the backoff window.
func (s *Scheduler) failFileJob(ctx context.Context, job *model.FileJob, cause error) {
	maxRetries := job.MaxRetries
	if maxRetries == 0 {
		maxRetries = s.cfg.MaxRetries
	}

	if !extraction.IsPermanent(cause) && job.Retries < maxRetries {
		retries := job.Retries + 1
		delay := Backoff(s.cfg.BackoffBase, s.cfg.BackoffCap, job.Retries)
		if err := s.store.FileJob().Requeue(ctx, job.ID, retries, time.Now().Add(delay), cause.Error()); err != nil {
			s.log.Errorw("requeueing file job", "file_job", job.ID, "error", err)
			return
		}
		metrics.IncreaseJobsRetriedMetric()
		s.log.Warnw("file job retry scheduled",
			"file_job", job.ID, "attempt", retries, "delay", delay, "cause", cause)
		return
	}

	lastError := cause.Error()
	if _, err := s.store.FileJob().UpdateStatus(ctx, job.ID, api.FileJobStatusFailed, store.FileJobPatch{LastError: &lastError}); err != nil {
		s.log.Errorw("failing file job", "file_job", job.ID, "error", err)
		return
	}

	metrics.IncreaseFilesProcessedMetric(api.FileJobStatusFailed)
	s.log.Errorw("file job failed permanently", "file_job", job.ID, "cause", cause)

	if _, err := s.aggregator.Recompute(ctx, job.BatchID); err != nil {
		s.log.Errorw("recomputing batch progress", "batch", job.BatchID, "error", err)
	}
}

// processJob dispatches one generic async job to its registered handler.
func (s *Scheduler) processJob(ctx context.Context, job *model.Job) {
	handler, ok := s.handler(job.Type)
	if !ok {
		if _, err := s.store.Job().MarkDead(ctx, job.ID, "no handler registered for type "+job.Type); err != nil {
			s.log.Errorw("marking job dead", "job", job.ID, "error", err)
		}
		metrics.IncreaseJobsDeadMetric()
		return
	}

	rctx, cancel := context.WithTimeout(ctx, s.cfg.ResolveTimeout)
	defer cancel()

	result, err := handler(rctx, job)
	if err != nil {
		s.failJob(ctx, job, err)
		return
	}

	if _, err := s.store.Job().Complete(ctx, job.ID, result); err != nil {
		s.log.Errorw("completing job", "job", job.ID, "error", err)
		return
	}
	s.log.Infow("job completed", "job", job.ID, "type", job.Type)
}

func (s *Scheduler) failJob(ctx context.Context, job *model.Job, cause error) {
	maxRetries := job.MaxRetries
	if maxRetries == 0 {
		maxRetries = s.cfg.MaxRetries
	}

	if job.Retries < maxRetries {
		retries := job.Retries + 1
		delay := Backoff(s.cfg.BackoffBase, s.cfg.BackoffCap, job.Retries)
		if err := s.store.Job().Requeue(ctx, job.ID, retries, time.Now().Add(delay), cause.Error()); err != nil {
			s.log.Errorw("requeueing job", "job", job.ID, "error", err)
			return
		}
		metrics.IncreaseJobsRetriedMetric()
		s.log.Warnw("job retry scheduled", "job", job.ID, "attempt", retries, "delay", delay, "cause", cause)
		return
	}

	if _, err := s.store.Job().MarkDead(ctx, job.ID, cause.Error()); err != nil {
		s.log.Errorw("marking job dead", "job", job.ID, "error", err)
		return
	}
	metrics.IncreaseJobsDeadMetric()
	s.log.Errorw("job dead, retries exhausted", "job", job.ID, "type", job.Type, "cause", cause)
}

func (s *Scheduler) roster(ctx context.Context) ([]resolver.KnownClient, error) {
	clients, err := s.store.Client().List(ctx)
	if err != nil {
		return nil, err
	}
	return mappers.KnownClients(clients), nil
}

func (s *Scheduler) updateReviewDepth(ctx context.Context) {
	depth, err := s.store.FileJob().CountNeedsReview(ctx)
	if err != nil {
		s.log.Errorw("counting review queue", "error", err)
		return
	}
	metrics.SetReviewQueueDepthMetric(depth)
}
