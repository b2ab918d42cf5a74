// Package resolver determines the most likely client, session date and
// session type for an extracted document. Resolution is a pure function
// over its inputs; all persistence happens in the caller.
package resolver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/clinicio/docflow/internal/extraction"
)

// Decision is the outcome of the banded confidence policy.
type Decision string

const (
	DecisionAutoAssign  Decision = "auto_assign"
	DecisionNeedsReview Decision = "needs_review"
)

// Review reasons, mirrored on the file job for the review UI.
const (
	ReasonNoConfidentMatch = "no_confident_match"
	ReasonLowClientMatch   = "low_client_confidence"
	ReasonLowDateMatch     = "low_date_confidence"
	ReasonAmbiguousMatch   = "ambiguous_match"
)

// Thresholds split the [0,100] confidence space into three bands:
// >= AutoAssign auto-assigns, [Review, AutoAssign) routes to manual
// review naming the weaker dimension, < Review is no confident match.
type Thresholds struct {
	AutoAssign int
	Review     int
}

func DefaultThresholds() Thresholds {
	return Thresholds{AutoAssign: 90, Review: 50}
}

// KnownClient is one roster entry, with appointment dates used by the
// tie-break.
type KnownClient struct {
	ID           uuid.UUID
	Name         string
	SessionDates []time.Time
}

// Input carries everything a resolution needs. DateTolerance widens the
// tie-break window in days, clamped by the caller to 0..7.
type Input struct {
	Text          string
	FileName      string
	UploadedAt    time.Time
	Clients       []KnownClient
	DateTolerance int
}

// MatchCandidate is one ranked candidate with its evidence.
type MatchCandidate struct {
	ClientID   uuid.UUID
	ClientName string
	Confidence int
	Rationale  []string
}

// Result is the resolver's full verdict.
type Result struct {
	Candidates       []MatchCandidate
	Best             *MatchCandidate
	ClientConfidence int
	DateConfidence   int
	SessionDate      *time.Time
	SessionType      string
	Themes           []string
	Decision         Decision
	ReviewReason     string
}

// ErrResolutionFailed marks an adapter outage (scoring oracle error or
// timeout). Distinct from "no match found": the caller retries it.
type ErrResolutionFailed struct {
	error
}

func NewErrResolutionFailed(cause error) *ErrResolutionFailed {
	return &ErrResolutionFailed{fmt.Errorf("resolution failed: %w", cause)}
}

func (e *ErrResolutionFailed) Unwrap() error {
	return e.error
}

type Resolver struct {
	scorer     extraction.Scorer
	thresholds Thresholds
}

// New builds a resolver. The scorer is optional; without one the
// resolver relies on its own name-scan evidence.
func New(scorer extraction.Scorer, thresholds Thresholds) *Resolver {
	return &Resolver{scorer: scorer, thresholds: thresholds}
}

func (r *Resolver) Resolve(ctx context.Context, input Input) (*Result, error) {
	candidates := scanNames(input.Text, input.Clients)

	if r.scorer != nil && len(candidates) > 0 {
		scored, err := r.score(ctx, input, candidates)
		if err != nil {
			return nil, NewErrResolutionFailed(err)
		}
		candidates = scored
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	sessionDate, dateConfidence := extractSessionDate(input.Text, input.UploadedAt)

	result := &Result{
		Candidates:     candidates,
		DateConfidence: dateConfidence,
		SessionDate:    sessionDate,
		SessionType:    inferSessionType(input.Text),
		Themes:         extractThemes(input.Text),
	}

	if len(candidates) == 0 {
		result.Decision = DecisionNeedsReview
		result.ReviewReason = ReasonNoConfidentMatch
		return result, nil
	}

	best, ambiguous := r.pickBest(candidates, input, sessionDate)
	result.Best = best
	result.ClientConfidence = best.Confidence

	switch {
	case ambiguous:
		result.Decision = DecisionNeedsReview
		result.ReviewReason = ReasonAmbiguousMatch
	case best.Confidence < r.thresholds.Review:
		result.Decision = DecisionNeedsReview
		result.ReviewReason = ReasonNoConfidentMatch
	case best.Confidence >= r.thresholds.AutoAssign && dateConfidence >= r.thresholds.AutoAssign:
		result.Decision = DecisionAutoAssign
	default:
		// Mid band: name the weaker dimension.
		result.Decision = DecisionNeedsReview
		if best.Confidence <= dateConfidence {
			result.ReviewReason = ReasonLowClientMatch
		} else {
			result.ReviewReason = ReasonLowDateMatch
		}
	}

	return result, nil
}

// score consults the scoring oracle and merges its verdict over the
// heuristic evidence. The oracle wins where it has an opinion.
func (r *Resolver) score(ctx context.Context, input Input, candidates []MatchCandidate) ([]MatchCandidate, error) {
	oracleCandidates := make([]extraction.ClientCandidate, 0, len(candidates))
	for _, c := range candidates {
		oracleCandidates = append(oracleCandidates, extraction.ClientCandidate{ID: c.ClientID, Name: c.ClientName})
	}

	scores, err := r.scorer.Score(ctx, input.Text, oracleCandidates)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]extraction.ClientScore, len(scores))
	for _, s := range scores {
		byID[s.ClientID] = s
	}

	merged := make([]MatchCandidate, 0, len(candidates))
	for _, c := range candidates {
		if s, ok := byID[c.ClientID]; ok {
			c.Confidence = s.Confidence
			c.Rationale = append(c.Rationale, s.Rationale...)
		}
		merged = append(merged, c)
	}
	return merged, nil
}

// pickBest resolves name-confidence ties by preferring the client with an
// appointment within the tolerance window around the derived date. If the
// tie survives, the match is ambiguous and goes to review; guessing is
// worse than asking.
func (r *Resolver) pickBest(candidates []MatchCandidate, input Input, sessionDate *time.Time) (*MatchCandidate, bool) {
	top := candidates[0]
	tied := []MatchCandidate{top}
	for _, c := range candidates[1:] {
		if c.Confidence == top.Confidence {
			tied = append(tied, c)
		}
	}

	if len(tied) == 1 {
		return &top, false
	}

	if sessionDate != nil {
		var withAppointment []MatchCandidate
		for _, c := range tied {
			if clientHasSessionNear(input.Clients, c.ClientID, *sessionDate, input.DateTolerance) {
				withAppointment = append(withAppointment, c)
			}
		}
		if len(withAppointment) == 1 {
			winner := withAppointment[0]
			winner.Rationale = append(winner.Rationale, "appointment_on_derived_date")
			return &winner, false
		}
	}

	return &top, true
}

func clientHasSessionNear(clients []KnownClient, id uuid.UUID, date time.Time, toleranceDays int) bool {
	for _, c := range clients {
		if c.ID != id {
			continue
		}
		for _, d := range c.SessionDates {
			diff := d.Sub(date)
			if diff < 0 {
				diff = -diff
			}
			if diff <= time.Duration(toleranceDays)*24*time.Hour {
				return true
			}
		}
	}
	return false
}
