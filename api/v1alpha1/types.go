// Package v1alpha1 contains the transport types served by the docflow API.
package v1alpha1

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Batch statuses. Transitions only move forward:
// uploading -> processing -> completed|failed.
const (
	BatchStatusUploading  = "uploading"
	BatchStatusProcessing = "processing"
	BatchStatusCompleted  = "completed"
	BatchStatusFailed     = "failed"
)

// FileJob statuses.
const (
	FileJobStatusUploaded    = "uploaded"
	FileJobStatusProcessing  = "processing"
	FileJobStatusCompleted   = "completed"
	FileJobStatusAssigned    = "assigned"
	FileJobStatusFailed      = "failed"
	FileJobStatusNeedsReview = "needs_review"
)

// Generic async job statuses.
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Manual review reasons.
const (
	ReviewReasonNoConfidentMatch = "no_confident_match"
	ReviewReasonLowClientMatch   = "low_client_confidence"
	ReviewReasonLowDateMatch     = "low_date_confidence"
	ReviewReasonAmbiguousMatch   = "ambiguous_match"
)

type Batch struct {
	Id              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	TotalFiles      int        `json:"totalFiles"`
	ProcessedFiles  int        `json:"processedFiles"`
	SuccessfulFiles int        `json:"successfulFiles"`
	FailedFiles     int        `json:"failedFiles"`
	Status          string     `json:"status"`
	UploadedAt      time.Time  `json:"uploadedAt"`
	ProcessedAt     *time.Time `json:"processedAt,omitempty"`

	// Derived observability metrics, computed by the progress aggregator.
	ThroughputPerMinute float64 `json:"throughputFilesPerMinute"`
	Efficiency          float64 `json:"efficiency"`
	Eta                 string  `json:"eta"`
}

type BatchList []Batch

type FileJob struct {
	Id                    uuid.UUID  `json:"id"`
	BatchId               uuid.UUID  `json:"batchId"`
	FileName              string     `json:"fileName"`
	Status                string     `json:"status"`
	ClientMatchConfidence *int       `json:"clientMatchConfidence,omitempty"`
	SuggestedClientId     *uuid.UUID `json:"suggestedClientId,omitempty"`
	SuggestedClientName   *string    `json:"suggestedClientName,omitempty"`
	ExtractedSessionDate  *string    `json:"extractedSessionDate,omitempty"`
	SessionType           *string    `json:"sessionType,omitempty"`
	Themes                []string   `json:"themes,omitempty"`
	ProcessingNotes       []string   `json:"processingNotes,omitempty"`
	ManualReviewReason    *string    `json:"manualReviewReason,omitempty"`
	Retries               int        `json:"retries"`
	MaxRetries            int        `json:"maxRetries"`
}

type FileJobList []FileJob

type Job struct {
	Id         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	Status     string          `json:"status"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      *string         `json:"error,omitempty"`
	Retries    int             `json:"retries"`
	MaxRetries int             `json:"maxRetries"`
	IsDead     bool            `json:"isDead"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type JobList []Job

type Client struct {
	Id   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type ClientList []Client

type UploadedDocument struct {
	DocumentId uuid.UUID `json:"documentId"`
	Filename   string    `json:"filename"`
	Status     string    `json:"status"`
}

type SmartUploadReply struct {
	Uploaded []UploadedDocument `json:"uploaded"`
}

type SmartProcessRequest struct {
	DocumentIds []uuid.UUID `json:"documentIds" validate:"required,min=1"`
}

type SmartProcessReply struct {
	JobId  uuid.UUID `json:"jobId"`
	Status string    `json:"status"`
}

type BatchFileUpload struct {
	FileName string `json:"fileName" validate:"required,file_name"`
	Content  string `json:"content" validate:"required"`
}

type BatchCreateRequest struct {
	BatchName string            `json:"batchName" validate:"required"`
	Files     []BatchFileUpload `json:"files" validate:"required,min=1,dive"`
	// DateToleranceDays widens the appointment tie-break window. 0..7 days.
	DateToleranceDays *int `json:"dateToleranceDays,omitempty" validate:"omitempty,min=0,max=7"`
}

type AssignRequest struct {
	ClientId    uuid.UUID `json:"clientId" validate:"required,client_id"`
	SessionDate string    `json:"sessionDate" validate:"required,datetime=2006-01-02"`
	SessionType string    `json:"sessionType" validate:"required,session_type"`
}

type AssignReply struct {
	FileJob        FileJob   `json:"fileJob"`
	ProgressNoteId uuid.UUID `json:"progressNoteId"`
}

type BulkPasteRequest struct {
	ClientId          uuid.UUID `json:"clientId" validate:"required,client_id"`
	RawText           string    `json:"rawText" validate:"required"`
	DryRun            *bool     `json:"dryRun,omitempty"`
	DateToleranceDays *int      `json:"dateToleranceDays,omitempty" validate:"omitempty,min=0,max=7"`
}

type BulkPasteSegment struct {
	Index            int        `json:"index"`
	Preview          string     `json:"preview"`
	ExtractedDate    *string    `json:"extractedDate,omitempty"`
	MatchedSessionId *uuid.UUID `json:"matchedSessionId,omitempty"`
	Status           string     `json:"status"`
	ProgressNoteId   *uuid.UUID `json:"progressNoteId,omitempty"`
}

type BulkPasteReply struct {
	Total           int                `json:"total"`
	MatchedSessions int                `json:"matchedSessions"`
	MissingSessions int                `json:"missingSessions"`
	DryRun          bool               `json:"dryRun"`
	Results         []BulkPasteSegment `json:"results"`
}

type Error struct {
	Message   string  `json:"message"`
	RequestId *string `json:"request_id,omitempty"`
}
