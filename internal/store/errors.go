package store

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("already exists")
	// ErrStaleWrite is returned when a guarded update lost the race against
	// a concurrent writer. Callers re-read and decide, they never block.
	ErrStaleWrite = errors.New("stale write rejected")
)

// ErrInvalidTransition signals a caller attempted a status change that is
// not in the allowed transition set. A programming-level guard, not
// user-facing; must be fixed upstream, not retried.
type ErrInvalidTransition struct {
	Entity string
	From   string
	To     string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid %s transition: %s -> %s", e.Entity, e.From, e.To)
}

func NewErrInvalidTransition(entity, from, to string) *ErrInvalidTransition {
	return &ErrInvalidTransition{Entity: entity, From: from, To: to}
}
