package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	api "github.com/clinicio/docflow/api/v1alpha1"
	"github.com/clinicio/docflow/internal/resolver"
	"github.com/clinicio/docflow/internal/store"
	"github.com/clinicio/docflow/internal/store/model"
)

// Bulk-paste segment statuses.
const (
	SegmentStatusMatched   = "matched"
	SegmentStatusNoDate    = "no_date"
	SegmentStatusNoSession = "no_session"
)

const segmentPreviewLen = 80

type NoteService struct {
	store            store.Store
	maxDateTolerance int
	log              *zap.SugaredLogger
}

func NewNoteService(s store.Store, maxDateTolerance int) *NoteService {
	return &NoteService{store: s, maxDateTolerance: maxDateTolerance, log: zap.S().Named("note_service")}
}

// BulkPaste splits pasted free text into per-session notes and matches
// each against the client's appointments by date. With dryRun set the
// reply is a pure preview and nothing is written; the commit call runs
// the same segmentation, so what was previewed is what lands.
func (s *NoteService) BulkPaste(ctx context.Context, req api.BulkPasteRequest) (*api.BulkPasteReply, error) {
	client, err := s.store.Client().Get(ctx, req.ClientId)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrClientNotFound(req.ClientId)
		}
		return nil, err
	}

	tolerance := 0
	if req.DateToleranceDays != nil {
		tolerance = *req.DateToleranceDays
	}
	if tolerance < 0 {
		tolerance = 0
	}
	if tolerance > s.maxDateTolerance {
		tolerance = s.maxDateTolerance
	}

	dryRun := req.DryRun != nil && *req.DryRun

	segments := segmentNotes(req.RawText)
	if len(segments) == 0 {
		return nil, NewErrInvalidRequest("pasted text contains no notes")
	}

	reply := &api.BulkPasteReply{Total: len(segments), DryRun: dryRun}

	if !dryRun {
		ctx, err = s.store.NewTransactionContext(ctx)
		if err != nil {
			return nil, err
		}
	}

	for i, segment := range segments {
		result := api.BulkPasteSegment{Index: i, Preview: preview(segment)}

		date, ok := resolver.ExtractDate(segment)
		if !ok {
			result.Status = SegmentStatusNoDate
			reply.MissingSessions++
			reply.Results = append(reply.Results, result)
			continue
		}
		formatted := date.Format("2006-01-02")
		result.ExtractedDate = &formatted

		session := matchSessionByDate(client.Sessions, *date, tolerance)
		if session == nil {
			result.Status = SegmentStatusNoSession
			reply.MissingSessions++
			reply.Results = append(reply.Results, result)
			continue
		}

		result.Status = SegmentStatusMatched
		result.MatchedSessionId = &session.ID
		reply.MatchedSessions++

		if !dryRun {
			note, err := s.store.ProgressNote().Create(ctx, model.ProgressNote{
				ID:          uuid.New(),
				ClientID:    client.ID,
				SessionID:   &session.ID,
				SessionDate: *date,
				SessionType: session.SessionType,
				Content:     segment,
			})
			if err != nil {
				_, _ = store.Rollback(ctx)
				return nil, err
			}
			result.ProgressNoteId = &note.ID
		}

		reply.Results = append(reply.Results, result)
	}

	if !dryRun {
		if _, err := store.Commit(ctx); err != nil {
			return nil, err
		}
		s.log.Infow("bulk paste committed",
			"client", client.ID, "segments", reply.Total, "matched", reply.MatchedSessions)
	}

	return reply, nil
}

var segmentSeparator = regexp.MustCompile(`\n\s*\n+`)

// segmentNotes splits pasted text on blank lines. A short date-only
// heading is glued to the note that follows it, since therapists commonly
// paste "3/12/2024" on its own line above each note.
func segmentNotes(raw string) []string {
	chunks := segmentSeparator.Split(strings.ReplaceAll(raw, "\r\n", "\n"), -1)

	var segments []string
	var pendingHeading string
	for _, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}

		if pendingHeading != "" {
			chunk = pendingHeading + "\n" + chunk
			pendingHeading = ""
		}

		if isDateHeading(chunk) {
			pendingHeading = chunk
			continue
		}
		segments = append(segments, chunk)
	}
	if pendingHeading != "" {
		segments = append(segments, pendingHeading)
	}
	return segments
}

// isDateHeading reports whether a chunk is nothing but a short line
// containing a date.
func isDateHeading(chunk string) bool {
	if len(chunk) > 40 || strings.Contains(chunk, "\n") {
		return false
	}
	_, ok := resolver.ExtractDate(chunk)
	return ok
}

func preview(segment string) string {
	segment = strings.ReplaceAll(segment, "\n", " ")
	if len(segment) <= segmentPreviewLen {
		return segment
	}
	return segment[:segmentPreviewLen] + "…"
}

func matchSessionByDate(sessions []model.Session, date time.Time, toleranceDays int) *model.Session {
	window := time.Duration(toleranceDays) * 24 * time.Hour

	var best *model.Session
	var bestDiff time.Duration
	for i := range sessions {
		diff := sessions[i].SessionDate.Sub(date)
		if diff < 0 {
			diff = -diff
		}
		if diff > window {
			continue
		}
		if best == nil || diff < bestDiff {
			best = &sessions[i]
			bestDiff = diff
		}
	}
	return best
}
