package i18n

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/terraincognita07/nestling/internal/services"
)

func TestRenderSubstitutesParams(t *testing.T) {
	manager, err := Default(LangEN)
	if err != nil {
		t.Fatalf("load embedded locales: %v", err)
	}

	got := manager.Render(LangEN, "alarm.pump", map[string]string{"time": "12:00"})
	if got != "Pumping session due at 12:00." {
		t.Fatalf("unexpected render: %q", got)
	}
	if got := manager.Render("ru-RU", "alarm.pump", map[string]string{"time": "12:00"}); !strings.Contains(got, "12:00") || got == "Pumping session due at 12:00." {
		t.Fatalf("expected russian render, got %q", got)
	}
	if got := manager.Render(LangEN, "missing.key", nil); got != "missing.key" {
		t.Fatalf("expected key fallback, got %q", got)
	}
}

func TestLocalizerFallsBackToDefaultLanguage(t *testing.T) {
	manager, err := NewManager("de", fstest.MapFS{
		"locales/en.json": {Data: []byte(`{"greeting":"Hello {name}","only.en":"English"}`)},
		"locales/ru.json": {Data: []byte(`{"greeting":"Привет {name}"}`)},
	}, "locales")
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if manager.DefaultLanguage() != LangEN {
		t.Fatalf("expected unsupported default to fall back to en, got %q", manager.DefaultLanguage())
	}

	localizer := manager.Localizer(LangRU)
	if got := localizer.Render("greeting", map[string]string{"name": "Аня"}); got != "Привет Аня" {
		t.Fatalf("unexpected render: %q", got)
	}
	if got := localizer.Render("only.en", nil); got != "English" {
		t.Fatalf("expected english fallback, got %q", got)
	}
	if got := manager.DetectFromAcceptLanguage("fr-CH, ru;q=0.8, en;q=0.5"); got != LangRU {
		t.Fatalf("expected ru from accept-language, got %q", got)
	}
}

func TestNewManagerRequiresEnglish(t *testing.T) {
	_, err := NewManager(LangRU, fstest.MapFS{
		"locales/ru.json": {Data: []byte(`{"greeting":"Привет"}`)},
	}, "locales")
	if err == nil {
		t.Fatal("expected missing en locale to fail")
	}
}

func TestAlarmMessagesTranslated(t *testing.T) {
	manager, err := Default(LangEN)
	if err != nil {
		t.Fatalf("load embedded locales: %v", err)
	}
	keys := append(services.AlarmKeys(), "medicine")
	for _, key := range keys {
		messageKey := "alarm." + key
		for _, language := range manager.SupportedLanguages() {
			if manager.Translate(language, messageKey) == messageKey {
				t.Fatalf("missing %s translation for %s", language, messageKey)
			}
		}
	}
}

var _ services.MessageRenderer = Localizer{}
