package i18n

import "testing"

func TestForLocale(t *testing.T) {
	for locale, want := range map[string]string{
		"":                  "en-US",
		"en-US":             "en-US",
		"pt-BR":             "pt-BR",
		"pt":                "pt-BR",
		"fr-FR,pt-BR;q=0.8": "pt-BR",
		"xx-invalid-!!":     "en-US",
	} {
		got := ForLocale(locale)
		if got == nil {
			t.Fatalf("locale %q: expected catalog", locale)
		}
		if got.Locale() != want {
			t.Fatalf("locale %q: expected %s, got %s", locale, want, got.Locale())
		}
	}
}

func TestFormatRendersMetadata(t *testing.T) {
	cat := ForLocale("en-US")
	if got := cat.Format("NOT_FOUND", map[string]string{"resource": "game"}); got != "The game was not found." {
		t.Fatalf("unexpected message %q", got)
	}
	if got := cat.Format("NOT_FOUND", nil); got != "Not found." {
		t.Fatalf("unexpected message without metadata %q", got)
	}
}

func TestFormatFallbacks(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{"BROKEN": "{{.oops"})
	if got := cat.Format("MISSING", nil); got != "MISSING" {
		t.Fatalf("expected code fallback, got %q", got)
	}
	if got := cat.Format("BROKEN", nil); got != "{{.oops" {
		t.Fatalf("expected raw text for an unparsable template, got %q", got)
	}
}

func TestCatalogsCoverSameCodes(t *testing.T) {
	for code := range enUSMessages {
		if _, ok := ptBRMessages[code]; !ok {
			t.Fatalf("pt-BR is missing %s", code)
		}
	}
	for code := range ptBRMessages {
		if _, ok := enUSMessages[code]; !ok {
			t.Fatalf("en-US is missing %s", code)
		}
	}
}
