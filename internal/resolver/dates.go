package resolver

import (
	"regexp"
	"strings"
	"time"
)

// Date-evidence confidence levels. A date next to a session keyword is
// near-certain; a bare date in the body is likely; falling back to the
// upload timestamp is a weak guess that always lands in the review band.
const (
	keywordDateConfidence  = 95
	bareDateConfidence     = 75
	metadataDateConfidence = 40
)

var dateKeywords = []string{
	"session date", "date of service", "date of session", "seen on", "session on", "appointment on",
}

var datePatterns = []struct {
	re     *regexp.Regexp
	layout string
}{
	{regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`), "2006-01-02"},
	{regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{4})\b`), "1/2/2006"},
	{regexp.MustCompile(`\b((?i:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2},\s+\d{4})\b`), "January 2, 2006"},
	{regexp.MustCompile(`\b((?i:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\s+\d{1,2},\s+\d{4})\b`), "Jan 2, 2006"},
}

// extractSessionDate derives a session-date candidate from document
// content, falling back to upload metadata. Returns the candidate and a
// confidence in [0,100].
func extractSessionDate(text string, uploadedAt time.Time) (*time.Time, int) {
	lowered := strings.ToLower(text)

	if date, ok := findDate(text); ok {
		if nearKeyword(lowered, date.raw) {
			return &date.parsed, keywordDateConfidence
		}
		return &date.parsed, bareDateConfidence
	}

	if !uploadedAt.IsZero() {
		// the upload's own calendar day, not the UTC one
		y, m, d := uploadedAt.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, uploadedAt.Location())
		return &day, metadataDateConfidence
	}

	return nil, 0
}

type foundDate struct {
	raw    string
	parsed time.Time
}

func findDate(text string) (foundDate, bool) {
	for _, pattern := range datePatterns {
		match := pattern.re.FindString(text)
		if match == "" {
			continue
		}
		parsed, err := time.Parse(pattern.layout, normalizeMonth(match, pattern.layout))
		if err != nil {
			continue
		}
		return foundDate{raw: match, parsed: parsed}, true
	}
	return foundDate{}, false
}

// nearKeyword reports whether the date string appears within a short
// span after a session keyword.
func nearKeyword(lowered, raw string) bool {
	datePos := strings.Index(lowered, strings.ToLower(raw))
	if datePos < 0 {
		return false
	}
	for _, keyword := range dateKeywords {
		kwPos := strings.Index(lowered, keyword)
		if kwPos < 0 || kwPos > datePos {
			continue
		}
		if datePos-kwPos < len(keyword)+24 {
			return true
		}
	}
	return false
}

// normalizeMonth capitalizes the month name so time.Parse accepts
// lowercased matches.
func normalizeMonth(match, layout string) string {
	if !strings.HasPrefix(layout, "Jan") {
		return match
	}
	return strings.ToUpper(match[:1]) + strings.ToLower(match[1:])
}

// ExtractDate scans free text for a date, with no metadata fallback.
// Bulk-paste segmentation uses it to anchor each pasted note.
func ExtractDate(text string) (*time.Time, bool) {
	if date, ok := findDate(text); ok {
		return &date.parsed, true
	}
	return nil, false
}
