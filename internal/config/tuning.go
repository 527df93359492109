package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/terraincognita07/nestling/internal/models"
	"github.com/terraincognita07/nestling/internal/services"
	"gopkg.in/yaml.v2"
)

// tuningFile mirrors the recognized option names. Pointers distinguish an
// omitted option from an explicit zero.
type tuningFile struct {
	PatternMinEntries          map[string]int   `yaml:"patternMinEntries"`
	AnomalyThreshold           *float64         `yaml:"anomalyThreshold"`
	AlertThreshold             *float64         `yaml:"alertThreshold"`
	PredictionLookbackDays     *float64         `yaml:"predictionLookbackDays"`
	ConfidenceThresholds       *confidenceFile  `yaml:"confidenceThresholds"`
	DefaultIntervalsMs         map[string]int64 `yaml:"defaultIntervalsMs"`
	AlarmApproachFraction      *float64         `yaml:"alarmApproachFraction"`
	AlarmCheckIntervalMs       *int64           `yaml:"alarmCheckIntervalMs"`
	DashboardRefreshIntervalMs *int64           `yaml:"dashboardRefreshIntervalMs"`
}

type confidenceFile struct {
	High   *float64 `yaml:"high"`
	Medium *float64 `yaml:"medium"`
}

// LoadTuning returns the default tuning overlaid with the options in path.
// An empty path or a missing file yields the defaults.
func LoadTuning(path string) (services.Tuning, error) {
	tuning := services.DefaultTuning()
	if path == "" {
		return tuning, nil
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return tuning, nil
	}
	if err != nil {
		return services.Tuning{}, fmt.Errorf("read tuning file %s: %w", path, err)
	}
	return ParseTuning(content)
}

func ParseTuning(content []byte) (services.Tuning, error) {
	tuning := services.DefaultTuning()

	var file tuningFile
	if err := yaml.UnmarshalStrict(content, &file); err != nil {
		return services.Tuning{}, fmt.Errorf("parse tuning: %w", err)
	}

	for raw, value := range file.PatternMinEntries {
		category, err := patternCategory(raw)
		if err != nil {
			return services.Tuning{}, fmt.Errorf("patternMinEntries: %w", err)
		}
		tuning.PatternMinEntries[category] = value
	}
	for raw, millis := range file.DefaultIntervalsMs {
		category, err := patternCategory(raw)
		if err != nil {
			return services.Tuning{}, fmt.Errorf("defaultIntervalsMs: %w", err)
		}
		tuning.DefaultIntervals[category] = time.Duration(millis) * time.Millisecond
	}
	if file.AnomalyThreshold != nil {
		tuning.AnomalyThreshold = *file.AnomalyThreshold
	}
	if file.AlertThreshold != nil {
		tuning.AlertThreshold = *file.AlertThreshold
	}
	if file.PredictionLookbackDays != nil {
		tuning.PredictionLookback = time.Duration(*file.PredictionLookbackDays * float64(24*time.Hour))
	}
	if file.ConfidenceThresholds != nil {
		if file.ConfidenceThresholds.High != nil {
			tuning.Confidence.High = *file.ConfidenceThresholds.High
		}
		if file.ConfidenceThresholds.Medium != nil {
			tuning.Confidence.Medium = *file.ConfidenceThresholds.Medium
		}
	}
	if file.AlarmApproachFraction != nil {
		tuning.AlarmApproachFraction = *file.AlarmApproachFraction
	}
	if file.AlarmCheckIntervalMs != nil {
		tuning.AlarmCheckInterval = time.Duration(*file.AlarmCheckIntervalMs) * time.Millisecond
	}
	if file.DashboardRefreshIntervalMs != nil {
		tuning.DashboardRefreshInterval = time.Duration(*file.DashboardRefreshIntervalMs) * time.Millisecond
	}

	if err := tuning.Validate(); err != nil {
		return services.Tuning{}, err
	}
	return tuning, nil
}

func patternCategory(raw string) (models.Category, error) {
	switch category := models.Category(raw); category {
	case models.CategoryFeeding, models.CategorySleep, models.CategoryDiaper:
		return category, nil
	default:
		return "", fmt.Errorf("%w: unknown pattern category %q", services.ErrInvalidInput, raw)
	}
}
