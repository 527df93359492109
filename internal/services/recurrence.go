package services

import (
	"math"
	"sort"
	"time"

	"github.com/terraincognita07/nestling/internal/models"
)

type Confidence string

const (
	ConfidenceNone   Confidence = ""
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

type RecurrenceEstimate struct {
	Mean       time.Duration
	CV         float64
	Confidence Confidence
	Intervals  []time.Duration
}

// RecurrenceEstimator averages the most recent valid intervals of a stream.
type RecurrenceEstimator struct {
	Window      int
	MaxInterval time.Duration
	Thresholds  ConfidenceThresholds
}

// FromTimestamps estimates the recurrence of an ascending timestamp sequence.
func (estimator RecurrenceEstimator) FromTimestamps(timestamps []time.Time) (RecurrenceEstimate, bool) {
	return estimator.FromIntervals(Intervals(timestamps))
}

// FromIntervals returns false when fewer than two usable intervals remain
// after dropping non-positive and oversized values.
func (estimator RecurrenceEstimator) FromIntervals(intervals []time.Duration) (RecurrenceEstimate, bool) {
	valid := make([]time.Duration, 0, len(intervals))
	for _, interval := range intervals {
		if interval <= 0 {
			continue
		}
		if estimator.MaxInterval > 0 && interval > estimator.MaxInterval {
			continue
		}
		valid = append(valid, interval)
	}
	if estimator.Window > 0 && len(valid) > estimator.Window {
		valid = valid[len(valid)-estimator.Window:]
	}
	if len(valid) < 2 {
		return RecurrenceEstimate{}, false
	}

	var sum time.Duration
	for _, interval := range valid {
		sum += interval
	}
	mean := sum / time.Duration(len(valid))
	if mean <= 0 {
		return RecurrenceEstimate{}, false
	}

	exactMean := float64(sum) / float64(len(valid))
	var squares float64
	for _, interval := range valid {
		delta := float64(interval) - exactMean
		squares += delta * delta
	}
	cv := math.Sqrt(squares/float64(len(valid))) / exactMean

	return RecurrenceEstimate{
		Mean:       mean,
		CV:         cv,
		Confidence: estimator.Thresholds.Label(cv),
		Intervals:  valid,
	}, true
}

// Intervals returns consecutive differences of an ascending sequence.
func Intervals(timestamps []time.Time) []time.Duration {
	if len(timestamps) < 2 {
		return nil
	}
	intervals := make([]time.Duration, 0, len(timestamps)-1)
	for index := 1; index < len(timestamps); index++ {
		intervals = append(intervals, timestamps[index].Sub(timestamps[index-1]))
	}
	return intervals
}

// AwakeGaps returns the time between the end of each sleep and the start of
// the next one, ordered by sleep start.
func AwakeGaps(sleeps []models.Event) []time.Duration {
	type span struct {
		start time.Time
		end   time.Time
	}
	spans := make([]span, 0, len(sleeps))
	for _, event := range sleeps {
		start, hasStart := event.SleepStart()
		end, hasEnd := event.SleepEnd()
		if !hasStart || !hasEnd {
			continue
		}
		spans = append(spans, span{start: start, end: end})
	}
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].start.Before(spans[j].start)
	})

	if len(spans) < 2 {
		return nil
	}
	gaps := make([]time.Duration, 0, len(spans)-1)
	for index := 1; index < len(spans); index++ {
		gaps = append(gaps, spans[index].start.Sub(spans[index-1].end))
	}
	return gaps
}
