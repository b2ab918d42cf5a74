package extraction

import (
	"context"

	"github.com/google/uuid"
)

// ClientCandidate is one roster entry offered to the scoring oracle.
type ClientCandidate struct {
	ID   uuid.UUID
	Name string
}

// ClientScore is the oracle's confidence for one candidate, 0..100.
type ClientScore struct {
	ClientID   uuid.UUID
	Confidence int
	Rationale  []string
}

// Scorer is the opaque AI scoring oracle: given extracted text and the
// candidate roster it returns ranked confidences. An error here means the
// oracle is unavailable, which the caller treats as a transient failure,
// never as "no match".
type Scorer interface {
	Score(ctx context.Context, text string, candidates []ClientCandidate) ([]ClientScore, error)
}
