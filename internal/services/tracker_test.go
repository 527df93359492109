package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terraincognita07/nestling/internal/models"
)

type trackerHarness struct {
	clock   *ManualClock
	blobs   *memoryBlobs
	sink    *recordingSink
	tracker *Tracker
}

func newTrackerHarness(t *testing.T, start time.Time, blobs *memoryBlobs) *trackerHarness {
	t.Helper()
	if blobs == nil {
		blobs = newMemoryBlobs()
	}
	harness := &trackerHarness{clock: NewManualClock(start), blobs: blobs, sink: &recordingSink{}}
	harness.tracker = NewTracker(blobs, TrackerOptions{
		Clock:    harness.clock,
		Tuning:   DefaultTuning(),
		Location: time.UTC,
		Sink:     harness.sink,
	})
	require.NoError(t, harness.tracker.Load())
	return harness
}

func feedingInput(timestamp time.Time) EventInput {
	return EventInput{
		Category:  string(models.CategoryFeeding),
		Timestamp: models.NewFlexTime(timestamp),
		FeedType:  string(models.FeedBottle),
	}
}

func TestTrackerFeedAlarmFiresAtApproachThreshold(t *testing.T) {
	harness := newTrackerHarness(t, at(20, 1), nil)
	for _, hour := range []int{8, 11, 14, 17, 20} {
		_, err := harness.tracker.AddEvent(feedingInput(at(hour, 0)))
		require.NoError(t, err)
	}

	statuses, paused := harness.tracker.Alarms()
	require.False(t, paused)
	var feed *AlarmStatus
	for index := range statuses {
		if statuses[index].Key == "feed" {
			feed = &statuses[index]
		}
	}
	require.NotNil(t, feed)
	assert.Equal(t, AlarmArmed, feed.State)
	assert.Equal(t, at(23, 0), feed.Target)
	assert.Equal(t, at(22, 51), feed.FireAt)

	harness.clock.Set(at(22, 50))
	assert.Equal(t, 0, harness.sink.firedCount("feed"))
	harness.clock.Set(at(22, 51))
	assert.Equal(t, 1, harness.sink.firedCount("feed"))

	_, err := harness.tracker.AddEvent(feedingInput(at(22, 55)))
	require.NoError(t, err)
	require.NotEmpty(t, harness.sink.cleared)
	assert.Equal(t, "feed", harness.sink.cleared[len(harness.sink.cleared)-1].Key)
}

func TestTrackerDefaultFallbackDoesNotArmAlarms(t *testing.T) {
	harness := newTrackerHarness(t, at(9, 0), nil)
	_, err := harness.tracker.AddEvent(feedingInput(at(8, 0)))
	require.NoError(t, err)

	prediction := harness.tracker.Predict(PatternFeed)
	assert.Equal(t, BasisDefault, prediction.Basis)
	assert.Equal(t, 0, harness.clock.PendingTimers())
}

func TestTrackerNoTimersWhilePaused(t *testing.T) {
	harness := newTrackerHarness(t, at(20, 1), nil)
	require.NoError(t, harness.tracker.PauseAlarms())
	for _, hour := range []int{8, 11, 14, 17, 20} {
		_, err := harness.tracker.AddEvent(feedingInput(at(hour, 0)))
		require.NoError(t, err)
	}
	require.NoError(t, harness.tracker.SetPumpSchedule(models.PumpSchedule{IntervalHours: 3}))

	assert.Equal(t, 0, harness.clock.PendingTimers())
	harness.clock.Set(at(23, 30))
	harness.tracker.Tick()
	assert.Empty(t, harness.sink.firedKeys())

	require.NoError(t, harness.tracker.ResumeAlarms(true))
	assert.Contains(t, harness.sink.firedKeys(), "feed")
}

func TestTrackerSleepSession(t *testing.T) {
	harness := newTrackerHarness(t, at(13, 0), nil)

	ongoing, err := harness.tracker.StartSleep(time.Time{})
	require.NoError(t, err)
	assert.Equal(t, at(13, 0), ongoing.StartTime)
	assert.Contains(t, harness.blobs.values, models.KeyOngoingSleep)

	_, err = harness.tracker.StartSleep(at(13, 5))
	assert.True(t, errors.Is(err, ErrSleepInProgress))

	_, err = harness.tracker.EndSleep(at(12, 0), "")
	assert.True(t, errors.Is(err, ErrInvalidSleepRange))

	harness.clock.Set(at(14, 30))
	event, err := harness.tracker.EndSleep(time.Time{}, "good nap")
	require.NoError(t, err)
	assert.Equal(t, at(14, 30), event.Timestamp)
	assert.Equal(t, 90*time.Minute, event.Sleep.Duration)
	assert.NotContains(t, harness.blobs.values, models.KeyOngoingSleep)

	_, ok := harness.tracker.OngoingSleep()
	assert.False(t, ok)
	assert.True(t, errors.Is(harness.tracker.CancelSleep(), ErrNoOngoingSleep))
}

func TestTrackerRestoresSessionState(t *testing.T) {
	blobs := newMemoryBlobs()
	first := newTrackerHarness(t, at(20, 0), blobs)
	_, err := first.tracker.StartSleep(at(19, 45))
	require.NoError(t, err)
	require.NoError(t, first.tracker.SetPumpSchedule(models.PumpSchedule{IntervalHours: 3, StartTime: "06:00"}))
	_, err = first.tracker.SnoozeAlarm("pump", 30)
	require.NoError(t, err)

	second := newTrackerHarness(t, at(20, 10), blobs)
	ongoing, ok := second.tracker.OngoingSleep()
	require.True(t, ok)
	assert.True(t, ongoing.StartTime.Equal(at(19, 45)))
	assert.Equal(t, models.PumpSchedule{IntervalHours: 3, StartTime: "06:00"}, second.tracker.PumpSchedule())

	next, ok := second.tracker.NextPumpTime()
	require.True(t, ok)
	assert.Equal(t, at(21, 0), next)

	status, ok := second.tracker.alarms.Status("pump")
	require.True(t, ok)
	assert.Equal(t, AlarmSnoozed, status.State)
	assert.True(t, status.SnoozedUntil.Equal(at(20, 30)))
}

func TestTrackerCorruptStateBecomesNotice(t *testing.T) {
	blobs := newMemoryBlobs()
	blobs.values[models.KeyEvents] = "[{"
	blobs.values[models.KeyOngoingSleep] = "yesterday"

	harness := newTrackerHarness(t, at(12, 0), blobs)

	notices := harness.tracker.TakeNotices()
	require.Len(t, notices, 2)
	assert.Equal(t, NoticeCorruptState, notices[0].Kind)
	assert.Equal(t, "events", notices[0].Params["key"])
	assert.Equal(t, "ongoingSleep.corrupt", notices[1].Params["sidecar"])
	assert.Empty(t, harness.tracker.TakeNotices())
	assert.Empty(t, harness.tracker.Events("", ""))
}

func TestTrackerPersistenceFailureNotice(t *testing.T) {
	harness := newTrackerHarness(t, at(12, 0), nil)
	harness.blobs.failWrites(models.KeyEvents, true)

	_, err := harness.tracker.AddEvent(feedingInput(at(11, 0)))
	require.True(t, errors.Is(err, ErrPersistenceFailed))

	notices := harness.tracker.TakeNotices()
	require.Len(t, notices, 1)
	assert.Equal(t, NoticePersistenceFailure, notices[0].Kind)
	assert.Empty(t, harness.tracker.Events(models.CategoryFeeding, ""))
}

func TestTrackerUpdateAndDelete(t *testing.T) {
	harness := newTrackerHarness(t, at(12, 0), nil)
	event, err := harness.tracker.AddEvent(feedingInput(at(11, 0)))
	require.NoError(t, err)

	updated, err := harness.tracker.UpdateEvent(event.ID, feedingInput(at(11, 30)))
	require.NoError(t, err)
	assert.Equal(t, event.ID, updated.ID)
	assert.Equal(t, at(11, 30), updated.Timestamp)

	_, err = harness.tracker.UpdateEvent("nope", feedingInput(at(11, 30)))
	assert.True(t, errors.Is(err, ErrEventNotFound))

	require.NoError(t, harness.tracker.DeleteEvent(event.ID))
	assert.True(t, errors.Is(harness.tracker.DeleteEvent(event.ID), ErrEventNotFound))
}

func TestTrackerMedicineAlarm(t *testing.T) {
	harness := newTrackerHarness(t, at(8, 0), nil)
	event, err := harness.tracker.AddEvent(EventInput{
		Category:      string(models.CategoryMedicine),
		Timestamp:     models.NewFlexTime(at(7, 0)),
		Name:          "Vitamin D",
		Scheduled:     true,
		FrequencyKind: string(models.FrequencyOnce),
		NextDoseTime:  models.NewFlexTime(at(9, 0)),
	})
	require.NoError(t, err)

	harness.clock.Set(at(9, 0))
	require.Equal(t, []string{MedicineAlarmKey(event.ID)}, harness.sink.firedKeys())
	assert.Equal(t, "Vitamin D", harness.sink.fired[0].Params["name"])

	require.NoError(t, harness.tracker.DeleteEvent(event.ID))
	_, ok := harness.tracker.alarms.Status(MedicineAlarmKey(event.ID))
	assert.False(t, ok)
}

func TestDashboardCachedUntilMutation(t *testing.T) {
	harness := newTrackerHarness(t, at(12, 0), nil)
	first := harness.tracker.Dashboard()

	harness.clock.Set(at(12, 0).Add(30 * time.Second))
	assert.Equal(t, first.GeneratedAt, harness.tracker.Dashboard().GeneratedAt)

	_, err := harness.tracker.AddEvent(feedingInput(at(11, 0)))
	require.NoError(t, err)
	refreshed := harness.tracker.Dashboard()
	assert.True(t, refreshed.GeneratedAt.After(first.GeneratedAt))
	assert.Equal(t, 1, refreshed.TodayCounts[models.CategoryFeeding])

	harness.clock.Set(at(12, 2))
	assert.True(t, harness.tracker.Dashboard().GeneratedAt.Equal(at(12, 2)))
}

func TestGrowthPercentileIsUnknown(t *testing.T) {
	_, ok := GrowthPercentile(models.GrowthDetails{Weight: &models.Quantity{Value: 12, Unit: models.UnitPound}})
	assert.False(t, ok)
}
