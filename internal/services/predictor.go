package services

import (
	"math/rand"
	"time"

	"github.com/terraincognita07/nestling/internal/models"
)

type PatternKey string

const (
	PatternFeed        PatternKey = "feed"
	PatternDiaperWet   PatternKey = "diaperWet"
	PatternDiaperDirty PatternKey = "diaperDirty"
	PatternSleepStart  PatternKey = "sleepStart"
	PatternSleepWake   PatternKey = "sleepWake"
	PatternPump        PatternKey = "pump"
)

func PatternKeys() []PatternKey {
	return []PatternKey{
		PatternFeed,
		PatternDiaperWet,
		PatternDiaperDirty,
		PatternSleepStart,
		PatternSleepWake,
		PatternPump,
	}
}

func ParsePatternKey(raw string) (PatternKey, bool) {
	for _, key := range PatternKeys() {
		if string(key) == raw {
			return key, true
		}
	}
	return "", false
}

type Basis string

const (
	BasisPattern  Basis = "pattern"
	BasisDefault  Basis = "default"
	BasisSchedule Basis = "schedule"
)

// Prediction is empty (zero At) when there is nothing to predict from.
type Prediction struct {
	Key           PatternKey
	At            time.Time
	LastEventTime time.Time
	Average       time.Duration
	Confidence    Confidence
	Basis         Basis
	Alternatives  []Alternative
}

func (prediction Prediction) HasTime() bool {
	return !prediction.At.IsZero()
}

func (prediction Prediction) HasLastEvent() bool {
	return !prediction.LastEventTime.IsZero()
}

type Strategy string

const (
	StrategySubtype    Strategy = "subtype"
	StrategyTimeOfDay  Strategy = "timeOfDay"
	StrategyStochastic Strategy = "stochastic"
)

type Alternative struct {
	Strategy   Strategy
	At         time.Time
	Average    time.Duration
	Confidence Confidence
}

// Predictor derives next-event times from the event store. It holds no state
// of its own beyond the pseudorandom source.
type Predictor struct {
	events   EventReader
	tuning   Tuning
	location *time.Location
	rand     *rand.Rand
}

func NewPredictor(events EventReader, tuning Tuning, location *time.Location, source *rand.Rand) *Predictor {
	if location == nil {
		location = time.UTC
	}
	return &Predictor{events: events, tuning: tuning, location: location, rand: source}
}

// Predict dispatches on key. Pump predictions need the schedule and are
// produced by PredictPump.
func (predictor *Predictor) Predict(key PatternKey, now time.Time, ongoing *models.OngoingSleep) Prediction {
	switch key {
	case PatternFeed:
		return predictor.PredictFeeding(now)
	case PatternDiaperWet, PatternDiaperDirty:
		return predictor.PredictDiaper(key, now)
	case PatternSleepStart:
		return predictor.PredictSleepStart(now, ongoing)
	case PatternSleepWake:
		return predictor.PredictSleepEnd(now, ongoing)
	default:
		return Prediction{Key: key}
	}
}

func (predictor *Predictor) PredictFeeding(now time.Time) Prediction {
	return predictor.predictStream(PatternFeed, models.CategoryFeeding, nil, now, func(last models.Event) EventMatcher {
		if last.FeedType() == "" {
			return nil
		}
		return FeedTypeIs(last.FeedType())
	})
}

func (predictor *Predictor) PredictDiaper(key PatternKey, now time.Time) Prediction {
	match := DiaperTypeIn(models.DiaperWet, models.DiaperMixed)
	if key == PatternDiaperDirty {
		match = DiaperTypeIn(models.DiaperDirty, models.DiaperMixed)
	}
	return predictor.predictStream(key, models.CategoryDiaper, match, now, func(last models.Event) EventMatcher {
		return DiaperTypeIn(last.DiaperType())
	})
}

func (predictor *Predictor) predictStream(
	key PatternKey,
	category models.Category,
	match EventMatcher,
	now time.Time,
	subtypeOf func(models.Event) EventMatcher,
) Prediction {
	last, ok := predictor.events.LastOf(category, match)
	if !ok {
		return Prediction{Key: key}
	}

	recent := ascending(predictor.events.List(category, allOf(match, Since(now.Add(-predictor.tuning.PredictionLookback)))))
	estimate, ok := predictor.estimateRecent(category, timestampsOf(recent))
	if !ok {
		return predictor.fallback(key, category, last.Timestamp)
	}

	prediction := Prediction{
		Key:           key,
		At:            last.Timestamp.Add(estimate.Mean),
		LastEventTime: last.Timestamp,
		Average:       estimate.Mean,
		Confidence:    estimate.Confidence,
		Basis:         BasisPattern,
	}
	if len(recent) >= predictor.tuning.AlternativeMinEvents {
		prediction.Alternatives = predictor.alternatives(prediction, recent, last, match, subtypeOf(last), now)
	}
	return prediction
}

func (predictor *Predictor) estimateRecent(category models.Category, timestamps []time.Time) (RecurrenceEstimate, bool) {
	if len(timestamps) < minimumRecent(predictor.tuning.MinEntries(category)) {
		return RecurrenceEstimate{}, false
	}
	return predictor.tuning.estimator().FromTimestamps(timestamps)
}

func (predictor *Predictor) fallback(key PatternKey, category models.Category, last time.Time) Prediction {
	interval := predictor.tuning.DefaultInterval(category)
	return Prediction{
		Key:           key,
		At:            last.Add(interval),
		LastEventTime: last,
		Average:       interval,
		Basis:         BasisDefault,
	}
}

// PredictSleepStart averages awake periods. While a sleep is in progress
// there is no next nap to predict.
func (predictor *Predictor) PredictSleepStart(now time.Time, ongoing *models.OngoingSleep) Prediction {
	if ongoing != nil {
		return Prediction{Key: PatternSleepStart, LastEventTime: ongoing.StartTime}
	}
	lastEnd, ok := predictor.events.LastSleepEnd()
	if !ok {
		return Prediction{Key: PatternSleepStart}
	}

	recent := predictor.recentSleeps(now)
	if len(recent) < minimumRecent(predictor.tuning.MinEntries(models.CategorySleep)) {
		return predictor.fallback(PatternSleepStart, models.CategorySleep, lastEnd)
	}
	estimate, ok := predictor.tuning.estimator().FromIntervals(AwakeGaps(recent))
	if !ok {
		return predictor.fallback(PatternSleepStart, models.CategorySleep, lastEnd)
	}

	return Prediction{
		Key:           PatternSleepStart,
		At:            lastEnd.Add(estimate.Mean),
		LastEventTime: lastEnd,
		Average:       estimate.Mean,
		Confidence:    estimate.Confidence,
		Basis:         BasisPattern,
	}
}

// PredictSleepEnd estimates the wake time of the ongoing sleep from completed
// sleeps that started in the same part of the day.
func (predictor *Predictor) PredictSleepEnd(now time.Time, ongoing *models.OngoingSleep) Prediction {
	if ongoing == nil {
		return Prediction{Key: PatternSleepWake}
	}
	start := ongoing.StartTime
	prediction := Prediction{Key: PatternSleepWake, LastEventTime: start}

	class := sleepClassOf(start.In(predictor.location).Hour())
	global := make([]time.Duration, 0)
	matching := make([]time.Duration, 0)
	for _, event := range ascending(predictor.recentSleeps(now)) {
		duration, ok := event.SleepDuration()
		if !ok || duration <= 0 {
			continue
		}
		global = append(global, duration)
		sleepStart, ok := event.SleepStart()
		if ok && class != sleepClassOther && sleepClassOf(sleepStart.In(predictor.location).Hour()) == class {
			matching = append(matching, duration)
		}
	}

	durations := global
	if len(matching) >= 2 {
		durations = matching
	}
	estimate, ok := predictor.tuning.estimator().FromIntervals(durations)
	if !ok {
		return prediction
	}

	prediction.At = start.Add(estimate.Mean)
	prediction.Average = estimate.Mean
	prediction.Confidence = estimate.Confidence
	prediction.Basis = BasisPattern
	return prediction
}

// PredictPump passes the scheduler's next slot through as a prediction.
func (predictor *Predictor) PredictPump(now time.Time, scheduler *PumpScheduler) Prediction {
	prediction := Prediction{Key: PatternPump}
	var lastPump *time.Time
	if last, ok := predictor.events.LastOf(models.CategoryPump, nil); ok {
		prediction.LastEventTime = last.Timestamp
		lastPump = &last.Timestamp
	}
	if scheduler == nil {
		return prediction
	}
	next, ok := scheduler.NextPumpTime(now, lastPump)
	if !ok {
		return prediction
	}
	prediction.At = next
	prediction.Average = scheduler.Interval()
	prediction.Confidence = ConfidenceHigh
	prediction.Basis = BasisSchedule
	return prediction
}

func (predictor *Predictor) recentSleeps(now time.Time) []models.Event {
	cutoff := now.Add(-predictor.tuning.PredictionLookback)
	return predictor.events.List(models.CategorySleep, func(event models.Event) bool {
		end, ok := event.SleepEnd()
		if !ok {
			end = event.Timestamp
		}
		return !end.Before(cutoff)
	})
}

type sleepClass int

const (
	sleepClassOther sleepClass = iota
	sleepClassNight
	sleepClassAfternoon
)

func sleepClassOf(hour int) sleepClass {
	switch {
	case hour >= 19 || hour <= 2:
		return sleepClassNight
	case hour >= 12 && hour <= 15:
		return sleepClassAfternoon
	default:
		return sleepClassOther
	}
}

func minimumRecent(minEntries int) int {
	if minEntries < 3 {
		return 3
	}
	return minEntries
}

// Since matches events stamped at or after cutoff.
func Since(cutoff time.Time) EventMatcher {
	return func(event models.Event) bool {
		return !event.Timestamp.Before(cutoff)
	}
}
