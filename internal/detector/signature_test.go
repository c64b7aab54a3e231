package detector

import (
	"math"
	"testing"
)

func TestExtractContentSignatureTokens(t *testing.T) {
	sig := ExtractContentSignature("Quarterly Budget Review - Sheets")

	for _, want := range []string{"quarterly", "budget", "review", "sheets"} {
		if !sig.Tokens[want] {
			t.Errorf("expected token %q in %v", want, sig.Tokens)
		}
	}
	// Words of length <= 2 are dropped.
	sig = ExtractContentSignature("Go to it - App")
	if sig.Tokens["go"] || sig.Tokens["to"] || sig.Tokens["it"] {
		t.Errorf("short words should be dropped, got %v", sig.Tokens)
	}
}

func TestExtractContentSignatureEntities(t *testing.T) {
	sig := ExtractContentSignature("Compose: note to alice@example.com - Mail")
	if !containsEntity(sig, "alice@example.com") {
		t.Errorf("expected email entity, got %v", sig.Entities)
	}

	sig = ExtractContentSignature("editor main.go - Code")
	if !containsEntity(sig, "main.go") {
		t.Errorf("expected filename entity, got %v", sig.Entities)
	}

	// The leading app name is not an entity; later capitalized words are.
	sig = ExtractContentSignature("Chrome Meeting Notes")
	if containsEntity(sig, "Chrome") {
		t.Errorf("leading token should not be an entity, got %v", sig.Entities)
	}
	if !containsEntity(sig, "Meeting") || !containsEntity(sig, "Notes") {
		t.Errorf("expected capitalized name entities, got %v", sig.Entities)
	}
}

func TestExtractContentSignatureIndicators(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Reply: project update - Mail", "email_compose"},
		{"annual_report.pdf - Reader", "document"},
		{"server.go - Editor", "coding"},
	}

	for _, tt := range tests {
		sig := ExtractContentSignature(tt.title)
		found := false
		for _, ind := range sig.Indicators {
			if ind == tt.want {
				found = true
			}
		}
		if !found {
			t.Errorf("title %q: expected indicator %q, got %v", tt.title, tt.want, sig.Indicators)
		}
	}
}

func TestExtractContentSignatureBlankTitle(t *testing.T) {
	for _, title := range []string{"", "   "} {
		sig := ExtractContentSignature(title)
		if !sig.IsEmpty() {
			t.Errorf("blank title %q should yield empty signature, got %+v", title, sig)
		}
	}
}

func TestContentSimilarity(t *testing.T) {
	a := ExtractContentSignature("report draft.pdf - Reader")
	b := ExtractContentSignature("report draft.pdf - Reader")
	if got := ContentSimilarity(a, b); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("identical titles similarity = %v, want 1.0", got)
	}

	c := ExtractContentSignature("Inbox - Mail")
	if got := ContentSimilarity(a, c); got != 0 {
		t.Errorf("unrelated titles similarity = %v, want 0", got)
	}

	empty := ExtractContentSignature("")
	if got := ContentSimilarity(a, empty); got != 0 {
		t.Errorf("empty signature similarity = %v, want 0", got)
	}
	if got := ContentSimilarity(empty, empty); got != 0 {
		t.Errorf("two empty signatures similarity = %v, want 0", got)
	}
}

func TestContentSimilaritySharedIndicatorOnly(t *testing.T) {
	a := ExtractContentSignature("budget.pdf - Reader")
	b := ExtractContentSignature("roadmap.doc - Writer")

	got := ContentSimilarity(a, b)
	// Disjoint tokens and entities; both carry the document indicator.
	if got != 0.2 {
		t.Errorf("similarity = %v, want 0.2 from shared indicator", got)
	}
}

func containsEntity(sig ContentSignature, want string) bool {
	for _, e := range sig.Entities {
		if e == want {
			return true
		}
	}
	return false
}
