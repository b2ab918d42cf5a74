package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	api "github.com/clinicio/docflow/api/v1alpha1"
)

type BaseQuerier struct {
	QueryFn []func(tx *gorm.DB) *gorm.DB
}

type FileJobQueryFilter BaseQuerier

func NewFileJobQueryFilter() *FileJobQueryFilter {
	return &FileJobQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (qf *FileJobQueryFilter) ByBatchID(batchID uuid.UUID) *FileJobQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("batch_id = ?", batchID)
	})
	return qf
}

func (qf *FileJobQueryFilter) ByStatus(status string) *FileJobQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status = ?", status)
	})
	return qf
}

// NeedsReview narrows the list to the manual review queue.
func (qf *FileJobQueryFilter) NeedsReview() *FileJobQueryFilter {
	return qf.ByStatus(api.FileJobStatusNeedsReview)
}

type JobQueryFilter BaseQuerier

func NewJobQueryFilter() *JobQueryFilter {
	return &JobQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (qf *JobQueryFilter) ByType(jobType string) *JobQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("type = ?", jobType)
	})
	return qf
}

func (qf *JobQueryFilter) ByStatus(status string) *JobQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status = ?", status)
	})
	return qf
}

func (qf *JobQueryFilter) WithLimit(limit int) *JobQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Limit(limit)
	})
	return qf
}

type SessionQueryFilter BaseQuerier

func NewSessionQueryFilter() *SessionQueryFilter {
	return &SessionQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (qf *SessionQueryFilter) ByClientID(clientID uuid.UUID) *SessionQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("client_id = ?", clientID)
	})
	return qf
}

// InWindow keeps sessions whose date falls within tolerance days around
// the given date.
func (qf *SessionQueryFilter) InWindow(date time.Time, toleranceDays int) *SessionQueryFilter {
	from := date.AddDate(0, 0, -toleranceDays)
	to := date.AddDate(0, 0, toleranceDays)
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("session_date >= ? AND session_date <= ?", from, to)
	})
	return qf
}
