package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-envparse"
	"github.com/terraincognita07/nestling/internal/notify"
)

const DefaultDotEnvPath = ".env"

type Config struct {
	Env             string
	LogLevel        string
	DBPath          string
	Port            string
	Location        *time.Location
	TuningFile      string
	MQTTBroker      string
	MQTTTopic       string
	AlarmSound      bool
	DefaultLanguage string
}

// Load reads dotEnvPath (when present) into the process environment without
// overriding variables that are already non-empty, then builds the config.
func Load(dotEnvPath string) (*Config, error) {
	if err := loadDotEnv(dotEnvPath); err != nil {
		return nil, err
	}

	location, err := resolveLocation(getEnv("TZ", "UTC"))
	if err != nil {
		return nil, err
	}
	port, err := resolvePort()
	if err != nil {
		return nil, err
	}
	sound, err := resolveBool("ALARM_SOUND", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		DBPath:          getEnv("DB_PATH", filepath.Join("data", "nestling.db")),
		Port:            port,
		Location:        location,
		TuningFile:      getEnv("NESTLING_TUNING_FILE", ""),
		MQTTBroker:      getEnv("MQTT_BROKER", ""),
		MQTTTopic:       getEnv("MQTT_TOPIC", notify.DefaultMQTTTopic),
		AlarmSound:      sound,
		DefaultLanguage: strings.ToLower(getEnv("DEFAULT_LANGUAGE", "en")),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return errors.New("APP_ENV must be one of: development, staging, production")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error (got %q)", c.LogLevel)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("DB_PATH must not be empty")
	}
	if c.MQTTBroker != "" && strings.TrimSpace(c.MQTTTopic) == "" {
		return errors.New("MQTT_TOPIC is required when MQTT_BROKER is set")
	}
	return nil
}

// ListenAddress binds to loopback only; the UI shell runs on the same device.
func (c *Config) ListenAddress() string {
	return "127.0.0.1:" + c.Port
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	values, err := envparse.Parse(file)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for key, value := range values {
		if current, exists := os.LookupEnv(key); exists && current != "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("set %s from %s: %w", key, path, err)
		}
	}
	return nil
}

func resolvePort() (string, error) {
	raw := getEnv("PORT", "8080")
	port, err := strconv.Atoi(raw)
	if err != nil || port < 1 || port > 65535 {
		return "", fmt.Errorf("PORT must be a number between 1 and 65535 (got %q)", raw)
	}
	return strconv.Itoa(port), nil
}

func resolveLocation(name string) (*time.Location, error) {
	location, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ %q: %w", name, err)
	}
	return location, nil
}

func resolveBool(key string, fallback bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean (got %q)", key, raw)
	}
	return value, nil
}

func getEnv(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
