package services

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terraincognita07/nestling/internal/models"
)

func TestPredictFeedingSteadyCadence(t *testing.T) {
	store := newTestStore(t,
		feeding(at(8, 0), models.FeedBottle),
		feeding(at(11, 0), models.FeedBottle),
		feeding(at(14, 0), models.FeedBottle),
		feeding(at(17, 0), models.FeedBottle),
		feeding(at(20, 0), models.FeedBottle),
	)
	predictor := NewPredictor(store, DefaultTuning(), time.UTC, nil)

	prediction := predictor.PredictFeeding(at(20, 30))

	require.True(t, prediction.HasTime())
	assert.Equal(t, at(23, 0), prediction.At)
	assert.Equal(t, at(20, 0), prediction.LastEventTime)
	assert.Equal(t, 3*time.Hour, prediction.Average)
	assert.Equal(t, ConfidenceHigh, prediction.Confidence)
	assert.Equal(t, BasisPattern, prediction.Basis)
	assert.Empty(t, prediction.Alternatives)
}

func TestPredictDiaperVariableSchedule(t *testing.T) {
	t0 := at(6, 0)
	store := newTestStore(t,
		diaper(t0, models.DiaperWet),
		diaper(t0.Add(2*time.Hour), models.DiaperMixed),
		diaper(t0.Add(5*time.Hour), models.DiaperWet),
		diaper(t0.Add(450*time.Minute), models.DiaperWet),
		diaper(t0.Add(615*time.Minute), models.DiaperMixed),
		diaper(t0.Add(4*time.Hour), models.DiaperDirty),
	)
	tuning := DefaultTuning()
	predictor := NewPredictor(store, tuning, time.UTC, nil)

	now := t0.Add(615 * time.Minute)
	prediction := predictor.PredictDiaper(PatternDiaperWet, now)

	require.True(t, prediction.HasTime())
	assert.Equal(t, now.Add(153*time.Minute+45*time.Second), prediction.At)
	estimate, ok := tuning.estimator().FromTimestamps([]time.Time{
		t0, t0.Add(2 * time.Hour), t0.Add(5 * time.Hour), t0.Add(450 * time.Minute), now,
	})
	require.True(t, ok)
	assert.Equal(t, tuning.Confidence.Label(estimate.CV), prediction.Confidence)
	assert.Less(t, estimate.CV, 0.2)
}

func TestPredictDiaperConfidenceCrossesBoundary(t *testing.T) {
	t0 := at(0, 0)
	store := newTestStore(t,
		diaper(t0, models.DiaperWet),
		diaper(t0.Add(120*time.Minute), models.DiaperWet),
		diaper(t0.Add(312*time.Minute), models.DiaperWet),
		diaper(t0.Add(432*time.Minute), models.DiaperWet),
		diaper(t0.Add(624*time.Minute), models.DiaperWet),
	)
	predictor := NewPredictor(store, DefaultTuning(), time.UTC, nil)

	prediction := predictor.PredictDiaper(PatternDiaperWet, t0.Add(630*time.Minute))

	assert.Equal(t, ConfidenceMedium, prediction.Confidence)
}

func TestPredictDirtyDiaperIgnoresWetOnly(t *testing.T) {
	store := newTestStore(t,
		diaper(at(1, 0), models.DiaperWet),
		diaper(at(2, 0), models.DiaperWet),
	)
	predictor := NewPredictor(store, DefaultTuning(), time.UTC, nil)

	prediction := predictor.PredictDiaper(PatternDiaperDirty, at(3, 0))
	assert.False(t, prediction.HasTime())
	assert.False(t, prediction.HasLastEvent())
}

func TestPredictBelowMinimumFallsBackToDefaultInterval(t *testing.T) {
	store := newTestStore(t,
		feeding(at(8, 0), models.FeedBreast),
		feeding(at(10, 0), models.FeedBreast),
		feeding(at(12, 0), models.FeedBreast),
	)
	predictor := NewPredictor(store, DefaultTuning(), time.UTC, nil)

	prediction := predictor.PredictFeeding(at(12, 30))

	require.True(t, prediction.HasTime())
	assert.Equal(t, at(15, 0), prediction.At)
	assert.Equal(t, BasisDefault, prediction.Basis)
	assert.Equal(t, ConfidenceNone, prediction.Confidence)
}

func TestPredictWithoutEventsIsEmpty(t *testing.T) {
	predictor := NewPredictor(newTestStore(t), DefaultTuning(), time.UTC, nil)

	for _, key := range []PatternKey{PatternFeed, PatternDiaperWet, PatternDiaperDirty, PatternSleepStart, PatternSleepWake} {
		prediction := predictor.Predict(key, at(12, 0), nil)
		if prediction.HasTime() {
			t.Fatalf("%s: expected no prediction without events, got %s", key, prediction.At)
		}
	}
}

func TestPredictionIsAfterLastEventWithEnoughData(t *testing.T) {
	source := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		events := make([]models.Event, 0, 8)
		timestamp := at(0, 0)
		for index := 0; index < 5+source.Intn(4); index++ {
			timestamp = timestamp.Add(time.Duration(30+source.Intn(300)) * time.Minute)
			events = append(events, feeding(timestamp, models.FeedBottle))
		}
		store := newTestStore(t, events...)
		predictor := NewPredictor(store, DefaultTuning(), time.UTC, rand.New(rand.NewSource(int64(round))))

		prediction := predictor.PredictFeeding(timestamp.Add(time.Minute))
		if !prediction.HasTime() || !prediction.At.After(prediction.LastEventTime) {
			t.Fatalf("round %d: expected prediction after %s, got %s", round, prediction.LastEventTime, prediction.At)
		}
	}
}

func TestPredictSleepEndAtNight(t *testing.T) {
	day := func(offset int, hour int, minute int) time.Time {
		return baseDay.AddDate(0, 0, offset).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	}
	store := newTestStore(t,
		sleepEvent(day(0, 20, 0), day(1, 4, 0)),
		sleepEvent(day(1, 20, 30), day(2, 4, 0)),
		sleepEvent(day(2, 20, 0), day(3, 4, 15)),
		sleepEvent(day(3, 13, 0), day(3, 14, 0)),
	)
	predictor := NewPredictor(store, DefaultTuning(), time.UTC, nil)
	ongoing := &models.OngoingSleep{StartTime: day(3, 20, 0)}

	prediction := predictor.PredictSleepEnd(day(3, 20, 5), ongoing)

	require.True(t, prediction.HasTime())
	assert.Equal(t, day(4, 3, 55), prediction.At)
	assert.Equal(t, ConfidenceHigh, prediction.Confidence)
	assert.Equal(t, day(3, 20, 0), prediction.LastEventTime)
}

func TestPredictSleepEndRequiresOngoingSleep(t *testing.T) {
	store := newTestStore(t, sleepEvent(at(1, 0), at(3, 0)), sleepEvent(at(5, 0), at(7, 0)))
	predictor := NewPredictor(store, DefaultTuning(), time.UTC, nil)

	assert.False(t, predictor.PredictSleepEnd(at(8, 0), nil).HasTime())
}

func TestPredictSleepStartUsesAwakeGaps(t *testing.T) {
	store := newTestStore(t,
		sleepEvent(at(0, 0), at(1, 0)),
		sleepEvent(at(3, 0), at(4, 30)),
		sleepEvent(at(6, 30), at(7, 0)),
		sleepEvent(at(9, 0), at(10, 15)),
		sleepEvent(at(12, 15), at(13, 0)),
	)
	predictor := NewPredictor(store, DefaultTuning(), time.UTC, nil)

	prediction := predictor.PredictSleepStart(at(13, 30), nil)

	require.True(t, prediction.HasTime())
	assert.Equal(t, 2*time.Hour, prediction.Average)
	assert.Equal(t, at(15, 0), prediction.At)
	assert.Equal(t, ConfidenceHigh, prediction.Confidence)
}

func TestPredictSleepStartIsNullWhileSleeping(t *testing.T) {
	store := newTestStore(t, sleepEvent(at(0, 0), at(1, 0)))
	predictor := NewPredictor(store, DefaultTuning(), time.UTC, nil)

	prediction := predictor.PredictSleepStart(at(2, 0), &models.OngoingSleep{StartTime: at(1, 30)})
	assert.False(t, prediction.HasTime())
}

func TestFeedingAlternativesSortedAndCollapsed(t *testing.T) {
	events := make([]models.Event, 0)
	for offset := 0; offset < 4; offset++ {
		dayStart := baseDay.AddDate(0, 0, offset)
		events = append(events,
			feeding(dayStart.Add(9*time.Hour), models.FeedBottle),
			feeding(dayStart.Add(12*time.Hour), models.FeedBreast),
			feeding(dayStart.Add(15*time.Hour), models.FeedBottle),
		)
	}
	store := newTestStore(t, events...)
	predictor := NewPredictor(store, DefaultTuning(), time.UTC, rand.New(rand.NewSource(42)))

	now := baseDay.AddDate(0, 0, 3).Add(15*time.Hour + 30*time.Minute)
	first := predictor.PredictFeeding(now)
	second := NewPredictor(store, DefaultTuning(), time.UTC, rand.New(rand.NewSource(42))).PredictFeeding(now)

	require.True(t, first.HasTime())
	assert.Equal(t, first.Alternatives, second.Alternatives)
	for index := 1; index < len(first.Alternatives); index++ {
		assert.False(t, first.Alternatives[index].At.Before(first.Alternatives[index-1].At))
	}
	for _, alternative := range first.Alternatives {
		assert.GreaterOrEqual(t, absDuration(alternative.At.Sub(first.At)), 15*time.Minute)
	}

	var timeOfDay *Alternative
	for index := range first.Alternatives {
		if first.Alternatives[index].Strategy == StrategyTimeOfDay {
			timeOfDay = &first.Alternatives[index]
		}
	}
	require.NotNil(t, timeOfDay)
	assert.Equal(t, baseDay.AddDate(0, 0, 4).Add(9*time.Hour), timeOfDay.At)
	assert.Equal(t, ConfidenceMedium, timeOfDay.Confidence)
}

func TestCollapseAlternativesDropsNearDuplicates(t *testing.T) {
	primary := at(12, 0)
	collapsed := collapseAlternatives(primary, []Alternative{
		{Strategy: StrategyStochastic, At: at(14, 10)},
		{Strategy: StrategySubtype, At: at(12, 10)},
		{Strategy: StrategyTimeOfDay, At: at(14, 0)},
	}, 15*time.Minute)

	require.Len(t, collapsed, 1)
	assert.Equal(t, StrategyTimeOfDay, collapsed[0].Strategy)
}

func TestPredictPumpPassesScheduleThrough(t *testing.T) {
	store := newTestStore(t)
	predictor := NewPredictor(store, DefaultTuning(), time.UTC, nil)
	scheduler := NewPumpScheduler(models.PumpSchedule{IntervalHours: 3, StartTime: "06:00"}, time.UTC)

	prediction := predictor.PredictPump(at(10, 15), scheduler)

	assert.Equal(t, at(12, 0), prediction.At)
	assert.Equal(t, BasisSchedule, prediction.Basis)
	assert.Equal(t, ConfidenceHigh, prediction.Confidence)
}

func TestSubtypeAlternativeUsesOwnCadence(t *testing.T) {
	events := make([]models.Event, 0, 13)
	for index := 0; index <= 12; index++ {
		feedType := models.FeedBottle
		if index%3 == 0 {
			feedType = models.FeedBreast
		}
		events = append(events, feeding(baseDay.Add(time.Duration(index)*2*time.Hour), feedType))
	}
	predictor := NewPredictor(newTestStore(t, events...), DefaultTuning(), time.UTC, nil)

	prediction := predictor.PredictFeeding(baseDay.Add(24*time.Hour + 30*time.Minute))

	require.True(t, prediction.HasTime())
	assert.Equal(t, baseDay.Add(26*time.Hour), prediction.At)
	require.Len(t, prediction.Alternatives, 1)
	subtype := prediction.Alternatives[0]
	assert.Equal(t, StrategySubtype, subtype.Strategy)
	assert.Equal(t, baseDay.Add(30*time.Hour), subtype.At)
	assert.Equal(t, 6*time.Hour, subtype.Average)
	assert.Equal(t, ConfidenceHigh, subtype.Confidence)
}

func TestStochasticAlternativeConfidence(t *testing.T) {
	tests := []struct {
		name       string
		feedings   int
		confidence Confidence
	}{
		{name: "below high confidence count", feedings: 14, confidence: ConfidenceMedium},
		{name: "at high confidence count", feedings: 15, confidence: ConfidenceHigh},
		{name: "above high confidence count", feedings: 18, confidence: ConfidenceHigh},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			events := make([]models.Event, 0, test.feedings)
			for index := 0; index < test.feedings; index++ {
				events = append(events, feeding(baseDay.Add(time.Duration(index)*3*time.Hour), models.FeedBottle))
			}
			last := events[len(events)-1].Timestamp
			tuning := DefaultTuning()
			tuning.DuplicateWindow = 0
			predictor := NewPredictor(newTestStore(t, events...), tuning, time.UTC, rand.New(rand.NewSource(3)))

			prediction := predictor.PredictFeeding(last.Add(30 * time.Minute))

			require.True(t, prediction.HasTime())
			var stochastic *Alternative
			for index := range prediction.Alternatives {
				if prediction.Alternatives[index].Strategy == StrategyStochastic {
					stochastic = &prediction.Alternatives[index]
				}
			}
			require.NotNil(t, stochastic)
			assert.Equal(t, test.confidence, stochastic.Confidence)
			jitter := stochastic.At.Sub(prediction.At)
			assert.LessOrEqual(t, absDuration(jitter), 18*time.Minute)
			assert.Equal(t, prediction.Average+jitter, stochastic.Average)
		})
	}
}
