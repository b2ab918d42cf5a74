// Package extraction wraps the opaque text-extraction and match-scoring
// collaborators behind narrow interfaces. The adapters hold no state;
// failures are wrapped so callers can tell an adapter outage apart from
// "no match found".
package extraction

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Document is the raw input handed to the extractor.
type Document struct {
	FileName   string
	Content    string
	UploadedAt time.Time
}

// TextExtractor turns an uploaded document into plain text. Binary
// formats (PDF, DOCX) are handled by an external service behind this
// interface.
type TextExtractor interface {
	Extract(ctx context.Context, doc Document) (string, error)
}

// PlainTextExtractor handles transcripts and text notes, which arrive as
// plain text already.
type PlainTextExtractor struct{}

var _ TextExtractor = (*PlainTextExtractor)(nil)

func NewPlainTextExtractor() *PlainTextExtractor {
	return &PlainTextExtractor{}
}

func (e *PlainTextExtractor) Extract(ctx context.Context, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.Wrap(err, "extraction cancelled")
	}

	text := strings.TrimSpace(doc.Content)
	if text == "" {
		return "", Permanent(errors.Errorf("document %s has no extractable text", doc.FileName))
	}
	return text, nil
}
