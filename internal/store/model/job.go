package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	api "github.com/clinicio/docflow/api/v1alpha1"
)

// Job is a generic queueable unit distinct from FileJob, used for
// operations spanning many documents (e.g. smart-process-async).
type Job struct {
	ID         uuid.UUID `gorm:"primaryKey;"`
	Type       string    `gorm:"index;not null"`
	Status     string    `gorm:"index;not null"`
	Payload    []byte    `gorm:"type:jsonb"`
	Result     []byte    `gorm:"type:jsonb"`
	Error      *string
	Retries    int
	MaxRetries int
	IsDead     bool
	// NextAttemptAt gates re-claims after a transient failure.
	NextAttemptAt *time.Time `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type JobList []Job

func (j Job) String() string {
	val, _ := json.Marshal(j)
	return string(val)
}

func NewJobFromID(id uuid.UUID) *Job {
	return &Job{ID: id}
}

func (j *Job) ToApiResource() api.Job {
	return api.Job{
		Id:         j.ID,
		Type:       j.Type,
		Status:     j.Status,
		Result:     j.Result,
		Error:      j.Error,
		Retries:    j.Retries,
		MaxRetries: j.MaxRetries,
		IsDead:     j.IsDead,
		CreatedAt:  j.CreatedAt,
	}
}

func (jl JobList) ToApiResource() api.JobList {
	jobs := make(api.JobList, 0, len(jl))
	for _, j := range jl {
		jobs = append(jobs, j.ToApiResource())
	}
	return jobs
}
