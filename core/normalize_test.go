package dialogue

import (
	"strings"
	"testing"
)

func TestNormalizeSpokenTextCollapsesWhitespace(t *testing.T) {
	got := normalizeSpokenText("Hello   there. \t How are\tyou?")
	if got != "Hello there. How are you?" {
		t.Fatalf("expected collapsed whitespace, got %q", got)
	}
}

func TestNormalizeSpokenTextFlattensTypography(t *testing.T) {
	got := normalizeSpokenText("Wait… fine — sure.")
	if got != "Wait... fine - sure." {
		t.Fatalf("expected flattened typography, got %q", got)
	}
}

func TestNormalizeSpokenTextAddsTerminalPunctuation(t *testing.T) {
	got := normalizeSpokenText("short reply without an ending")
	if !strings.HasSuffix(got, ".") {
		t.Fatalf("expected a trailing period, got %q", got)
	}
}

func TestNormalizeSpokenTextIdempotentOnCleanText(t *testing.T) {
	clean := "This is fine. So is this!"
	if got := normalizeSpokenText(clean); got != clean {
		t.Fatalf("expected clean text unchanged, got %q", got)
	}
}

func TestNormalizeSpokenTextInjectsPeriodsIntoLongRuns(t *testing.T) {
	words := make([]string, 40)
	for i := range words {
		words[i] = "word"
	}
	got := normalizeSpokenText(strings.Join(words, " "))
	if strings.Count(got, ".") < 2 {
		t.Fatalf("expected injected sentence breaks, got %q", got)
	}
	if !strings.HasSuffix(got, ".") {
		t.Fatalf("expected terminal period, got %q", got)
	}
}

func TestNormalizeSpokenTextEmptyInput(t *testing.T) {
	if got := normalizeSpokenText("   \n \t "); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}
