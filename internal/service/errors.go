package service

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id uuid.UUID, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrBatchNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "batch")
}

func NewErrFileJobNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "file job")
}

func NewErrJobNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "job")
}

func NewErrClientNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "client")
}

func NewErrDocumentNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "document")
}

type ErrInvalidRequest struct {
	error
}

func NewErrInvalidRequest(message string) *ErrInvalidRequest {
	return &ErrInvalidRequest{fmt.Errorf("bad request: %s", message)}
}

func NewErrInvalidSessionDate(raw string) *ErrInvalidRequest {
	return NewErrInvalidRequest(fmt.Sprintf("session date %q is not a valid YYYY-MM-DD date", raw))
}

// ErrConflict covers writes the current state does not allow, e.g.
// retrying a job that is not dead or assigning a file that is still
// processing.
type ErrConflict struct {
	error
}

func NewErrJobNotRetryable(id uuid.UUID, status string) *ErrConflict {
	return &ErrConflict{fmt.Errorf("job %s is %s and cannot be retried", id, status)}
}

func NewErrFileJobNotAssignable(id uuid.UUID, status string) *ErrConflict {
	return &ErrConflict{fmt.Errorf("file job %s is %s and cannot be assigned", id, status)}
}
