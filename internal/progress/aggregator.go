// Package progress recomputes batch-level counters from the current set
// of file jobs and derives the observability read model exposed to
// polling clients.
package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/thoas/go-funk"

	api "github.com/clinicio/docflow/api/v1alpha1"
	"github.com/clinicio/docflow/internal/store"
	"github.com/clinicio/docflow/internal/store/model"
)

// EtaCalculating is shown while no file has finished yet.
const EtaCalculating = "Calculating…"

type Aggregator struct {
	store store.Store
}

func New(s store.Store) *Aggregator {
	return &Aggregator{store: s}
}

// Recompute rebuilds the batch counters from its file jobs and persists
// them. File jobs complete in arbitrary order; the computation only
// depends on the current counts, never on ordering. Terminal batches are
// left untouched so status can never regress.
func (a *Aggregator) Recompute(ctx context.Context, batchID uuid.UUID) (*model.Batch, error) {
	batch, err := a.store.Batch().Get(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if batch.Status == api.BatchStatusCompleted || batch.Status == api.BatchStatusFailed {
		return batch, nil
	}

	counts, err := a.store.FileJob().CountByStatus(ctx, batchID)
	if err != nil {
		return nil, err
	}

	successful := int(funk.Sum([]int{counts[api.FileJobStatusCompleted], counts[api.FileJobStatusAssigned]}))
	failed := counts[api.FileJobStatusFailed]
	processed := successful + failed

	patch := store.BatchProgressPatch{
		ProcessedFiles:  processed,
		SuccessfulFiles: successful,
		FailedFiles:     failed,
		Status:          api.BatchStatusProcessing,
	}

	if processed == batch.TotalFiles {
		now := time.Now()
		patch.ProcessedAt = &now
		if failed == 0 {
			patch.Status = api.BatchStatusCompleted
		} else {
			patch.Status = api.BatchStatusFailed
		}
	}

	return a.store.Batch().UpdateProgress(ctx, batchID, patch)
}

// Decorate fills the derived metrics on the API resource: throughput in
// files/minute since batch start, efficiency, and the remaining-time
// estimate.
func Decorate(batch *model.Batch, now time.Time) api.Batch {
	resource := batch.ToApiResource()

	if batch.TotalFiles > 0 {
		resource.Efficiency = float64(batch.SuccessfulFiles) / float64(batch.TotalFiles)
	}

	end := now
	if batch.ProcessedAt != nil {
		end = *batch.ProcessedAt
	}
	elapsed := end.Sub(batch.UploadedAt)

	if batch.ProcessedFiles == 0 {
		resource.Eta = EtaCalculating
		return resource
	}

	if minutes := elapsed.Minutes(); minutes > 0 {
		resource.ThroughputPerMinute = float64(batch.ProcessedFiles) / minutes
	}

	remaining := batch.TotalFiles - batch.ProcessedFiles
	if remaining == 0 {
		resource.Eta = "done"
		return resource
	}

	perFile := elapsed / time.Duration(batch.ProcessedFiles)
	eta := (perFile * time.Duration(remaining)).Round(time.Second)
	resource.Eta = fmt.Sprintf("~%s", eta)

	return resource
}
