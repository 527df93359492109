package services

import (
	"sort"
	"time"

	"github.com/terraincognita07/nestling/internal/models"
)

func (predictor *Predictor) alternatives(
	primary Prediction,
	recent []models.Event,
	last models.Event,
	match EventMatcher,
	subtype EventMatcher,
	now time.Time,
) []Alternative {
	candidates := make([]Alternative, 0, 3)

	if subtype != nil {
		if alternative, ok := predictor.subtypeAlternative(recent, last, subtype); ok {
			candidates = append(candidates, alternative)
		}
	}
	if alternative, ok := predictor.timeOfDayAlternative(last.Category, match, now); ok {
		candidates = append(candidates, alternative)
	}
	if alternative, ok := predictor.stochasticAlternative(primary, len(recent)); ok {
		candidates = append(candidates, alternative)
	}

	return collapseAlternatives(primary.At, candidates, predictor.tuning.DuplicateWindow)
}

func (predictor *Predictor) subtypeAlternative(recent []models.Event, last models.Event, subtype EventMatcher) (Alternative, bool) {
	matching := make([]time.Time, 0, len(recent))
	for _, event := range recent {
		if subtype(event) {
			matching = append(matching, event.Timestamp)
		}
	}
	estimate, ok := predictor.tuning.estimator().FromTimestamps(matching)
	if !ok {
		return Alternative{}, false
	}
	return Alternative{
		Strategy:   StrategySubtype,
		At:         last.Timestamp.Add(estimate.Mean),
		Average:    estimate.Mean,
		Confidence: estimate.Confidence,
	}, true
}

// timeOfDayAlternative picks the next hour after the current one whose
// histogram bucket over the lookback window holds the most events.
func (predictor *Predictor) timeOfDayAlternative(category models.Category, match EventMatcher, now time.Time) (Alternative, bool) {
	events := predictor.events.List(category, allOf(match, Within(now.Add(-predictor.tuning.TimeOfDayLookback), now)))
	if len(events) == 0 {
		return Alternative{}, false
	}

	var buckets [24]int
	for _, event := range events {
		buckets[event.Timestamp.In(predictor.location).Hour()]++
	}
	peak := 0
	for _, count := range buckets {
		if count > peak {
			peak = count
		}
	}
	if peak < predictor.tuning.TimeOfDayMinBucket {
		return Alternative{}, false
	}

	local := now.In(predictor.location)
	hourStart := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, predictor.location)
	for offset := 1; offset <= 24; offset++ {
		candidate := hourStart.Add(time.Duration(offset) * time.Hour)
		if buckets[candidate.Hour()] != peak {
			continue
		}
		confidence := ConfidenceLow
		if float64(peak)/float64(len(events)) >= 0.25 {
			confidence = ConfidenceMedium
		}
		return Alternative{Strategy: StrategyTimeOfDay, At: candidate, Confidence: confidence}, true
	}
	return Alternative{}, false
}

func (predictor *Predictor) stochasticAlternative(primary Prediction, recentCount int) (Alternative, bool) {
	if predictor.rand == nil || primary.Average <= 0 {
		return Alternative{}, false
	}
	spread := float64(primary.Average) * predictor.tuning.StochasticJitter
	jitter := time.Duration((predictor.rand.Float64()*2 - 1) * spread)

	confidence := ConfidenceMedium
	if recentCount >= predictor.tuning.StochasticHighConfidenceEvents {
		confidence = ConfidenceHigh
	}
	return Alternative{
		Strategy:   StrategyStochastic,
		At:         primary.At.Add(jitter),
		Average:    primary.Average + jitter,
		Confidence: confidence,
	}, true
}

// collapseAlternatives sorts by time and drops candidates that land within
// window of the primary prediction or of an alternative already kept.
func collapseAlternatives(primary time.Time, candidates []Alternative, window time.Duration) []Alternative {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].At.Before(candidates[j].At)
	})

	kept := make([]Alternative, 0, len(candidates))
	for _, candidate := range candidates {
		if absDuration(candidate.At.Sub(primary)) < window {
			continue
		}
		duplicate := false
		for _, existing := range kept {
			if absDuration(candidate.At.Sub(existing.At)) < window {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, candidate)
		}
	}
	return kept
}

func absDuration(value time.Duration) time.Duration {
	if value < 0 {
		return -value
	}
	return value
}
