package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	api "github.com/clinicio/docflow/api/v1alpha1"
)

type Batch struct {
	ID              uuid.UUID `gorm:"primaryKey;"`
	Name            string    `gorm:"not null"`
	TotalFiles      int       `gorm:"not null"`
	ProcessedFiles  int
	SuccessfulFiles int
	FailedFiles     int
	Status          string `gorm:"not null"`
	UploadedAt      time.Time
	ProcessedAt     *time.Time
	FileJobs        []FileJob `gorm:"constraint:OnDelete:CASCADE;"`
}

type BatchList []Batch

func (b Batch) String() string {
	val, _ := json.Marshal(b)
	return string(val)
}

func NewBatchFromID(id uuid.UUID) *Batch {
	return &Batch{ID: id}
}

func (b *Batch) ToApiResource() api.Batch {
	return api.Batch{
		Id:              b.ID,
		Name:            b.Name,
		TotalFiles:      b.TotalFiles,
		ProcessedFiles:  b.ProcessedFiles,
		SuccessfulFiles: b.SuccessfulFiles,
		FailedFiles:     b.FailedFiles,
		Status:          b.Status,
		UploadedAt:      b.UploadedAt,
		ProcessedAt:     b.ProcessedAt,
	}
}

func (bl BatchList) ToApiResource() api.BatchList {
	batches := make(api.BatchList, 0, len(bl))
	for _, b := range bl {
		batches = append(batches, b.ToApiResource())
	}
	return batches
}
