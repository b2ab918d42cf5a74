package resolver

import "strings"

// Session types recognized in document text.
const (
	SessionTypeIndividual = "individual"
	SessionTypeIntake     = "intake"
	SessionTypeCouples    = "couples"
	SessionTypeFamily     = "family"
	SessionTypeTelehealth = "telehealth"
	SessionTypeGroup      = "group"
)

var sessionTypeKeywords = []struct {
	keywords    []string
	sessionType string
}{
	{[]string{"intake", "initial assessment", "initial evaluation"}, SessionTypeIntake},
	{[]string{"couples", "couple's"}, SessionTypeCouples},
	{[]string{"family session", "family therapy"}, SessionTypeFamily},
	{[]string{"telehealth", "video session", "remote session"}, SessionTypeTelehealth},
	{[]string{"group session", "group therapy"}, SessionTypeGroup},
}

var themeKeywords = map[string][]string{
	"anxiety":       {"anxiety", "anxious", "panic"},
	"depression":    {"depression", "depressed", "low mood"},
	"sleep":         {"insomnia", "sleep", "nightmares"},
	"grief":         {"grief", "bereavement", "loss of"},
	"relationships": {"relationship", "partner", "marriage"},
	"work_stress":   {"work stress", "workload", "burnout"},
	"trauma":        {"trauma", "ptsd", "flashback"},
}

func inferSessionType(text string) string {
	lowered := strings.ToLower(text)
	for _, entry := range sessionTypeKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(lowered, keyword) {
				return entry.sessionType
			}
		}
	}
	return SessionTypeIndividual
}

// extractThemes tags the document with clinical themes, ordered by first
// appearance in the text.
func extractThemes(text string) []string {
	lowered := strings.ToLower(text)

	type hit struct {
		theme string
		pos   int
	}
	var hits []hit
	for theme, keywords := range themeKeywords {
		first := -1
		for _, keyword := range keywords {
			if pos := strings.Index(lowered, keyword); pos >= 0 && (first < 0 || pos < first) {
				first = pos
			}
		}
		if first >= 0 {
			hits = append(hits, hit{theme: theme, pos: first})
		}
	}

	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	themes := make([]string, 0, len(hits))
	for _, h := range hits {
		themes = append(themes, h.theme)
	}
	return themes
}
