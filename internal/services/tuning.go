package services

import (
	"fmt"
	"time"

	"github.com/terraincognita07/nestling/internal/models"
)

const (
	DefaultPatternMinEntries = 5
	DefaultFeedingInterval   = 3 * time.Hour
	DefaultSleepInterval     = 2 * time.Hour
	DefaultDiaperInterval    = 150 * time.Minute
)

type ConfidenceThresholds struct {
	High   float64
	Medium float64
}

// Label maps a coefficient of variation onto a confidence label.
func (thresholds ConfidenceThresholds) Label(cv float64) Confidence {
	switch {
	case cv < thresholds.High:
		return ConfidenceHigh
	case cv < thresholds.Medium:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

type Tuning struct {
	PatternMinEntries        map[models.Category]int
	AnomalyThreshold         float64
	AlertThreshold           float64
	PredictionLookback       time.Duration
	Confidence               ConfidenceThresholds
	DefaultIntervals         map[models.Category]time.Duration
	AlarmApproachFraction    float64
	AlarmCheckInterval       time.Duration
	DashboardRefreshInterval time.Duration

	RecentWindow                   int
	MaxInterval                    time.Duration
	AlternativeMinEvents           int
	StochasticHighConfidenceEvents int
	StochasticJitter               float64
	TimeOfDayLookback              time.Duration
	TimeOfDayMinBucket             int
	DuplicateWindow                time.Duration
	PumpLeadTime                   time.Duration
	AlarmMaterialChange            time.Duration
}

func DefaultTuning() Tuning {
	return Tuning{
		PatternMinEntries: map[models.Category]int{
			models.CategoryFeeding: DefaultPatternMinEntries,
			models.CategorySleep:   DefaultPatternMinEntries,
			models.CategoryDiaper:  DefaultPatternMinEntries,
		},
		AnomalyThreshold:   0.40,
		AlertThreshold:     0.60,
		PredictionLookback: 7 * 24 * time.Hour,
		Confidence:         ConfidenceThresholds{High: 0.20, Medium: 0.40},
		DefaultIntervals: map[models.Category]time.Duration{
			models.CategoryFeeding: DefaultFeedingInterval,
			models.CategorySleep:   DefaultSleepInterval,
			models.CategoryDiaper:  DefaultDiaperInterval,
		},
		AlarmApproachFraction:    0.95,
		AlarmCheckInterval:       30 * time.Second,
		DashboardRefreshInterval: 60 * time.Second,

		RecentWindow:                   10,
		MaxInterval:                    48 * time.Hour,
		AlternativeMinEvents:           5,
		StochasticHighConfidenceEvents: 15,
		StochasticJitter:               0.10,
		TimeOfDayLookback:              14 * 24 * time.Hour,
		TimeOfDayMinBucket:             3,
		DuplicateWindow:                15 * time.Minute,
		PumpLeadTime:                   2 * time.Minute,
		AlarmMaterialChange:            15 * time.Minute,
	}
}

func (tuning Tuning) MinEntries(category models.Category) int {
	if value, ok := tuning.PatternMinEntries[category]; ok && value > 0 {
		return value
	}
	return DefaultPatternMinEntries
}

func (tuning Tuning) DefaultInterval(category models.Category) time.Duration {
	if value, ok := tuning.DefaultIntervals[category]; ok && value > 0 {
		return value
	}
	switch category {
	case models.CategorySleep:
		return DefaultSleepInterval
	case models.CategoryDiaper:
		return DefaultDiaperInterval
	default:
		return DefaultFeedingInterval
	}
}

func (tuning Tuning) estimator() RecurrenceEstimator {
	return RecurrenceEstimator{
		Window:      tuning.RecentWindow,
		MaxInterval: tuning.MaxInterval,
		Thresholds:  tuning.Confidence,
	}
}

func (tuning Tuning) Validate() error {
	for category, value := range tuning.PatternMinEntries {
		if value < 1 {
			return fmt.Errorf("%w: patternMinEntries[%s] must be positive", ErrInvalidInput, category)
		}
	}
	if tuning.AnomalyThreshold <= 0 || tuning.AlertThreshold <= 0 {
		return fmt.Errorf("%w: anomaly thresholds must be positive", ErrInvalidInput)
	}
	if tuning.AlertThreshold < tuning.AnomalyThreshold {
		return fmt.Errorf("%w: alertThreshold below anomalyThreshold", ErrInvalidInput)
	}
	if tuning.PredictionLookback <= 0 {
		return fmt.Errorf("%w: predictionLookbackDays must be positive", ErrInvalidInput)
	}
	if tuning.Confidence.High <= 0 || tuning.Confidence.Medium <= tuning.Confidence.High {
		return fmt.Errorf("%w: confidence thresholds must satisfy 0 < high < medium", ErrInvalidInput)
	}
	for category, value := range tuning.DefaultIntervals {
		if value <= 0 {
			return fmt.Errorf("%w: defaultIntervalsMs[%s] must be positive", ErrInvalidInput, category)
		}
	}
	if tuning.AlarmApproachFraction <= 0 || tuning.AlarmApproachFraction > 1 {
		return fmt.Errorf("%w: alarmApproachFraction must be in (0, 1]", ErrInvalidInput)
	}
	if tuning.AlarmCheckInterval <= 0 || tuning.DashboardRefreshInterval <= 0 {
		return fmt.Errorf("%w: tick intervals must be positive", ErrInvalidInput)
	}
	if tuning.RecentWindow < 2 {
		return fmt.Errorf("%w: recent window must hold at least 2 intervals", ErrInvalidInput)
	}
	return nil
}
