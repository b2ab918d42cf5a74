package store

import (
	api "github.com/clinicio/docflow/api/v1alpha1"
)

// Allowed status transitions per entity. Every guarded update checks the
// row's current status against these tables; anything else fails with
// ErrInvalidTransition instead of silently applying.

var batchTransitions = map[string][]string{
	api.BatchStatusUploading:  {api.BatchStatusProcessing, api.BatchStatusCompleted, api.BatchStatusFailed},
	api.BatchStatusProcessing: {api.BatchStatusProcessing, api.BatchStatusCompleted, api.BatchStatusFailed},
	api.BatchStatusCompleted:  {},
	api.BatchStatusFailed:     {},
}

var fileJobTransitions = map[string][]string{
	api.FileJobStatusUploaded:   {api.FileJobStatusProcessing},
	api.FileJobStatusProcessing: {api.FileJobStatusProcessing, api.FileJobStatusCompleted, api.FileJobStatusNeedsReview, api.FileJobStatusFailed},
	// Assign stays legal after completion so a human can correct an
	// auto-assignment; assigning twice is an idempotent update.
	api.FileJobStatusCompleted:   {api.FileJobStatusAssigned},
	api.FileJobStatusNeedsReview: {api.FileJobStatusAssigned},
	api.FileJobStatusAssigned:    {api.FileJobStatusAssigned},
	api.FileJobStatusFailed:      {api.FileJobStatusUploaded},
}

var jobTransitions = map[string][]string{
	api.JobStatusQueued:    {api.JobStatusRunning},
	api.JobStatusRunning:   {api.JobStatusCompleted, api.JobStatusFailed, api.JobStatusQueued},
	api.JobStatusCompleted: {},
	api.JobStatusFailed:    {api.JobStatusQueued},
}

func transitionAllowed(table map[string][]string, from, to string) bool {
	for _, allowed := range table[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
