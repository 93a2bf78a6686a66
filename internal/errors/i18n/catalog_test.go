package i18n

import "testing"

func TestLookupFallsBackToEnglish(t *testing.T) {
	tests := []string{"", "xx-XX", "pt-BR", "en", "en-US"}
	for _, locale := range tests {
		catalog := Lookup(locale)
		if catalog == nil {
			t.Fatalf("locale %q: expected catalog", locale)
		}
		if catalog.Locale() != "en-US" {
			t.Fatalf("locale %q: expected en-US catalog, got %s", locale, catalog.Locale())
		}
	}
}

func TestMessageKnownCode(t *testing.T) {
	msg := Message("en-US", CodeInvalidMention)
	if msg == CodeInvalidMention {
		t.Fatal("expected a rendered message, got the raw code")
	}
}

func TestMessageUnknownCodeFallsBackToCode(t *testing.T) {
	if got := Message("en-US", "NOT_A_CODE"); got != "NOT_A_CODE" {
		t.Fatalf("expected raw code fallback, got %q", got)
	}
}
