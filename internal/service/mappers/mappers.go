// Package mappers converts between transport types, store models and
// resolver inputs.
package mappers

import (
	"time"

	"github.com/google/uuid"

	api "github.com/clinicio/docflow/api/v1alpha1"
	"github.com/clinicio/docflow/internal/resolver"
	"github.com/clinicio/docflow/internal/store/model"
)

// KnownClients turns the stored roster into resolver input, flattening
// each client's sessions into its appointment dates.
func KnownClients(clients model.ClientList) []resolver.KnownClient {
	roster := make([]resolver.KnownClient, 0, len(clients))
	for _, c := range clients {
		known := resolver.KnownClient{ID: c.ID, Name: c.Name}
		for _, session := range c.Sessions {
			known.SessionDates = append(known.SessionDates, session.SessionDate)
		}
		roster = append(roster, known)
	}
	return roster
}

// BatchFromCreateRequest builds the batch row and one file job per
// uploaded file. All file jobs start as uploaded and carry the batch's
// retry budget and date tolerance.
func BatchFromCreateRequest(req api.BatchCreateRequest, dateTolerance, maxRetries int) (model.Batch, []model.FileJob) {
	batch := model.Batch{
		ID:         uuid.New(),
		Name:       req.BatchName,
		TotalFiles: len(req.Files),
		Status:     api.BatchStatusUploading,
		UploadedAt: time.Now(),
	}

	jobs := make([]model.FileJob, 0, len(req.Files))
	for _, file := range req.Files {
		jobs = append(jobs, model.FileJob{
			ID:            uuid.New(),
			BatchID:       batch.ID,
			FileName:      file.FileName,
			Content:       file.Content,
			Status:        api.FileJobStatusUploaded,
			MaxRetries:    maxRetries,
			DateTolerance: dateTolerance,
		})
	}
	return batch, jobs
}
