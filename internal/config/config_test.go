package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "LOG_LEVEL", "DB_PATH", "PORT", "TZ", "NESTLING_TUNING_FILE",
		"MQTT_BROKER", "MQTT_TOPIC", "ALARM_SOUND", "DEFAULT_LANGUAGE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected defaults to load, got %v", err)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected development env, got %q", cfg.Env)
	}
	if cfg.DBPath != filepath.Join("data", "nestling.db") {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.ListenAddress() != "127.0.0.1:8080" {
		t.Fatalf("expected loopback listen address, got %q", cfg.ListenAddress())
	}
	if cfg.Location.String() != "UTC" {
		t.Fatalf("expected UTC location, got %s", cfg.Location)
	}
	if cfg.MQTTTopic != "nestling/alarms" {
		t.Fatalf("expected default mqtt topic, got %q", cfg.MQTTTopic)
	}
	if cfg.AlarmSound {
		t.Fatal("expected alarm sound to default to false")
	}
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PORT", "9090")

	dotEnv := filepath.Join(t.TempDir(), ".env")
	content := "# local overrides\nPORT=7070\nDB_PATH=/tmp/nestling-test.db\nALARM_SOUND=true\nMQTT_BROKER=\"tcp://127.0.0.1:1883\"\n"
	if err := os.WriteFile(dotEnv, []byte(content), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := Load(dotEnv)
	if err != nil {
		t.Fatalf("load with .env: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("expected environment PORT to win, got %q", cfg.Port)
	}
	if cfg.DBPath != "/tmp/nestling-test.db" {
		t.Fatalf("expected DB_PATH from .env, got %q", cfg.DBPath)
	}
	if !cfg.AlarmSound {
		t.Fatal("expected ALARM_SOUND from .env")
	}
	if cfg.MQTTBroker != "tcp://127.0.0.1:1883" {
		t.Fatalf("expected quoted broker to be unquoted, got %q", cfg.MQTTBroker)
	}
}

func TestLoadMissingDotEnvIsIgnored(t *testing.T) {
	clearConfigEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("expected missing .env to be ignored, got %v", err)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "port zero", key: "PORT", value: "0"},
		{name: "port too high", key: "PORT", value: "70000"},
		{name: "port not a number", key: "PORT", value: "not-a-number"},
		{name: "unknown env", key: "APP_ENV", value: "qa"},
		{name: "unknown log level", key: "LOG_LEVEL", value: "verbose"},
		{name: "unknown timezone", key: "TZ", value: "Mars/Olympus"},
		{name: "bad sound flag", key: "ALARM_SOUND", value: "loud"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(test.key, test.value)

			if _, err := Load(""); err == nil {
				t.Fatalf("expected %s=%q to be rejected", test.key, test.value)
			}
		})
	}
}
