package resolver

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Name-evidence confidence levels. Exact full-name hits score highest,
// fuzzy hits scale with string similarity.
const (
	fullNameConfidence = 95
	lastNameConfidence = 70
	fuzzyFloor         = 0.82
)

// scanNames cross-references the extracted text against the known-client
// roster. Exact full-name matches beat partial matches beat fuzzy ones.
func scanNames(text string, clients []KnownClient) []MatchCandidate {
	lowered := strings.ToLower(text)
	tokens := tokenize(lowered)

	var candidates []MatchCandidate
	for _, client := range clients {
		name := strings.ToLower(strings.TrimSpace(client.Name))
		if name == "" {
			continue
		}

		if strings.Contains(lowered, name) {
			candidates = append(candidates, MatchCandidate{
				ClientID:   client.ID,
				ClientName: client.Name,
				Confidence: fullNameConfidence,
				Rationale:  []string{"exact_name_match"},
			})
			continue
		}

		if confidence, ok := partialNameMatch(tokens, name); ok {
			candidates = append(candidates, MatchCandidate{
				ClientID:   client.ID,
				ClientName: client.Name,
				Confidence: confidence,
				Rationale:  []string{"partial_name_match"},
			})
			continue
		}

		if confidence, ok := fuzzyNameMatch(tokens, name); ok {
			candidates = append(candidates, MatchCandidate{
				ClientID:   client.ID,
				ClientName: client.Name,
				Confidence: confidence,
				Rationale:  []string{"fuzzy_name_match"},
			})
		}
	}

	return candidates
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '\'', r == '-':
			return false
		default:
			return true
		}
	})
}

// partialNameMatch looks for the client's surname (or any name part of
// at least four letters) as a standalone token.
func partialNameMatch(tokens []string, name string) (int, bool) {
	parts := strings.Fields(name)
	if len(parts) < 2 {
		return 0, false
	}

	surname := parts[len(parts)-1]
	if len(surname) < 4 {
		return 0, false
	}

	for _, token := range tokens {
		if token == surname {
			return lastNameConfidence, true
		}
	}
	return 0, false
}

// fuzzyNameMatch slides a window of adjacent tokens over the text and
// scores levenshtein similarity against the full name. Catches typos and
// OCR noise like "Jane Doee".
func fuzzyNameMatch(tokens []string, name string) (int, bool) {
	parts := strings.Fields(name)
	window := len(parts)
	if window == 0 || len(tokens) < window {
		return 0, false
	}

	best := 0.0
	for i := 0; i+window <= len(tokens); i++ {
		candidate := strings.Join(tokens[i:i+window], " ")
		if sim := similarity(candidate, name); sim > best {
			best = sim
		}
	}

	if best < fuzzyFloor {
		return 0, false
	}
	// A fuzzy hit never outranks an exact one.
	confidence := int(best * float64(fullNameConfidence-5))
	return confidence, true
}

func similarity(a, b string) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(longest)
}
