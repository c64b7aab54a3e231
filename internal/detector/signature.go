package detector

import (
	"regexp"
	"strings"
)

// ContentSignature is a lightweight summary of a window title used to
// estimate topical similarity between two events.
type ContentSignature struct {
	Tokens     map[string]bool
	Entities   []string
	Indicators []string
}

var (
	stripRe    = regexp.MustCompile(`[^\w@.\- ]+`)
	emailRe    = regexp.MustCompile(`[\w.\-]+@[\w.\-]+`)
	nameRe     = regexp.MustCompile(`\b[A-Z][a-z]+\b`)
	filenameRe = regexp.MustCompile(`\b[\w\-]+\.[A-Za-z0-9]{2,4}\b`)
)

var codingExtensions = []string{
	".go", ".py", ".js", ".ts", ".java", ".rb", ".rs", ".cpp", ".c",
	".sh", ".sql", ".html", ".css", ".json", ".yaml", ".yml",
}

var documentHints = []string{"doc", "pdf", "pages", "document"}

var composeHints = []string{"compose", "reply", "forward", "draft"}

// ExtractContentSignature builds a signature from a raw window title. Blank
// titles yield an empty signature.
func ExtractContentSignature(title string) ContentSignature {
	sig := ContentSignature{Tokens: map[string]bool{}}
	title = strings.TrimSpace(title)
	if title == "" {
		return sig
	}

	cleaned := stripRe.ReplaceAllString(title, " ")
	for _, tok := range strings.Fields(strings.ToLower(cleaned)) {
		if len(tok) > 2 {
			sig.Tokens[tok] = true
		}
	}

	emails := emailRe.FindAllString(title, -1)
	sig.Entities = append(sig.Entities, emails...)

	// Capitalized names are only scanned after the first token so the
	// leading app name does not count as an entity.
	if fields := strings.Fields(title); len(fields) > 1 {
		rest := strings.Join(fields[1:], " ")
		sig.Entities = append(sig.Entities, nameRe.FindAllString(rest, -1)...)
	}

	for _, fn := range filenameRe.FindAllString(title, -1) {
		partOfEmail := false
		for _, em := range emails {
			if strings.Contains(em, fn) {
				partOfEmail = true
				break
			}
		}
		if !partOfEmail {
			sig.Entities = append(sig.Entities, fn)
		}
	}

	lower := strings.ToLower(title)
	for _, hint := range composeHints {
		if strings.Contains(lower, hint) {
			sig.Indicators = append(sig.Indicators, "email_compose")
			break
		}
	}
	for _, hint := range documentHints {
		if strings.Contains(lower, hint) {
			sig.Indicators = append(sig.Indicators, "document")
			break
		}
	}
	for _, ext := range codingExtensions {
		if strings.Contains(lower, ext) {
			sig.Indicators = append(sig.Indicators, "coding")
			break
		}
	}

	return sig
}

// IsEmpty reports whether the signature carries no usable content.
func (s ContentSignature) IsEmpty() bool {
	return len(s.Tokens) == 0 && len(s.Entities) == 0 && len(s.Indicators) == 0
}

// ContentSimilarity blends token, entity and type-indicator overlap into a
// [0,1] score. An empty signature on either side scores 0.
func ContentSimilarity(a, b ContentSignature) float64 {
	if a.IsEmpty() || b.IsEmpty() {
		return 0
	}

	score := 0.0

	if len(a.Tokens) > 0 && len(b.Tokens) > 0 {
		shared := 0
		for tok := range a.Tokens {
			if b.Tokens[tok] {
				shared++
			}
		}
		union := len(a.Tokens) + len(b.Tokens) - shared
		if union > 0 {
			score += float64(shared) / float64(union) * 0.3
		}
	}

	if len(a.Entities) > 0 && len(b.Entities) > 0 {
		shared := 0
		for _, ea := range a.Entities {
			for _, eb := range b.Entities {
				if ea == eb {
					shared++
					break
				}
			}
		}
		smaller := len(a.Entities)
		if len(b.Entities) < smaller {
			smaller = len(b.Entities)
		}
		score += float64(shared) / float64(smaller) * 0.5
	}

	for _, ia := range a.Indicators {
		for _, ib := range b.Indicators {
			if ia == ib {
				return score + 0.2
			}
		}
	}

	return score
}
