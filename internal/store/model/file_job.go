package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	api "github.com/clinicio/docflow/api/v1alpha1"
)

type FileJob struct {
	ID                    uuid.UUID `gorm:"primaryKey;"`
	BatchID               uuid.UUID `gorm:"index;not null"`
	FileName              string    `gorm:"not null"`
	Content               string    `gorm:"type:text"`
	Status                string    `gorm:"index;not null"`
	ClientMatchConfidence *int
	SuggestedClientID     *uuid.UUID
	SuggestedClientName   *string
	ExtractedSessionDate  *time.Time
	SessionType           *string
	Themes                []byte `gorm:"type:jsonb"`
	ProcessingNotes       []byte `gorm:"type:jsonb"`
	ManualReviewReason    *string
	LastError             *string
	Retries               int
	MaxRetries            int
	DateTolerance         int
	// NextAttemptAt is set when a transient failure re-queues the job;
	// the claim query only picks rows whose attempt time has passed.
	NextAttemptAt *time.Time `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type FileJobList []FileJob

func (f FileJob) String() string {
	val, _ := json.Marshal(f)
	return string(val)
}

func NewFileJobFromID(id uuid.UUID) *FileJob {
	return &FileJob{ID: id}
}

func (f *FileJob) ThemeList() []string {
	return decodeStringList(f.Themes)
}

func (f *FileJob) NoteList() []string {
	return decodeStringList(f.ProcessingNotes)
}

func (f *FileJob) ToApiResource() api.FileJob {
	var extractedDate *string
	if f.ExtractedSessionDate != nil {
		d := f.ExtractedSessionDate.Format(time.DateOnly)
		extractedDate = &d
	}
	return api.FileJob{
		Id:                    f.ID,
		BatchId:               f.BatchID,
		FileName:              f.FileName,
		Status:                f.Status,
		ClientMatchConfidence: f.ClientMatchConfidence,
		SuggestedClientId:     f.SuggestedClientID,
		SuggestedClientName:   f.SuggestedClientName,
		ExtractedSessionDate:  extractedDate,
		SessionType:           f.SessionType,
		Themes:                f.ThemeList(),
		ProcessingNotes:       f.NoteList(),
		ManualReviewReason:    f.ManualReviewReason,
		Retries:               f.Retries,
		MaxRetries:            f.MaxRetries,
	}
}

func (fl FileJobList) ToApiResource() api.FileJobList {
	jobs := make(api.FileJobList, 0, len(fl))
	for _, f := range fl {
		jobs = append(jobs, f.ToApiResource())
	}
	return jobs
}

func EncodeStringList(values []string) []byte {
	if len(values) == 0 {
		return nil
	}
	val, _ := json.Marshal(values)
	return val
}

func decodeStringList(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}
	return values
}
