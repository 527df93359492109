package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/terraincognita07/nestling/internal/logging"
	"github.com/terraincognita07/nestling/internal/models"
)

type TrackerOptions struct {
	Clock    Clock
	Tuning   Tuning
	Location *time.Location
	Rand     *rand.Rand
	Sink     AlarmSink
	Renderer MessageRenderer
	Logger   logging.Logger
	Sound    bool
}

// Tracker owns every piece of engine state: the event store, the ongoing
// sleep session, the pump schedule and the alarm engine. All public methods
// run mutate, re-derive and reschedule under one lock.
type Tracker struct {
	mu sync.Mutex

	clock    Clock
	blobs    BlobStore
	tuning   Tuning
	location *time.Location
	renderer MessageRenderer
	logger   logging.Logger

	store     *EventStore
	predictor *Predictor
	detector  *AnomalyDetector
	pump      *PumpScheduler
	alarms    *AlarmEngine

	ongoing   *models.OngoingSleep
	notices   []Notice
	dashboard *Dashboard
}

func NewTracker(blobs BlobStore, options TrackerOptions) *Tracker {
	clock := options.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	location := options.Location
	if location == nil {
		location = time.Local
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	renderer := options.Renderer
	if renderer == nil {
		renderer = keyRenderer{}
	}
	tuning := options.Tuning
	if tuning.RecentWindow == 0 {
		tuning = DefaultTuning()
	}

	store := NewEventStore(blobs, logger)
	tracker := &Tracker{
		clock:     clock,
		blobs:     blobs,
		tuning:    tuning,
		location:  location,
		renderer:  renderer,
		logger:    logger,
		store:     store,
		predictor: NewPredictor(store, tuning, location, options.Rand),
		detector:  NewAnomalyDetector(store, tuning, renderer),
		pump:      NewPumpScheduler(models.PumpSchedule{}, location),
		alarms:    NewAlarmEngine(clock, blobs, tuning, options.Sink, renderer, logger),
	}
	tracker.alarms.SetSound(options.Sound)
	tracker.alarms.OnWake(func(string) {
		tracker.mu.Lock()
		defer tracker.mu.Unlock()
		tracker.dashboard = nil
		tracker.reconcileLocked(tracker.clock.Now())
	})
	return tracker
}

// Load restores persisted state and arms alarms. Corrupt blobs become notices;
// only storage read failures are returned.
func (tracker *Tracker) Load() error {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	now := tracker.clock.Now()
	if err := tracker.store.Load(); err != nil {
		if !tracker.noteLocked(err, now) || !errors.Is(err, ErrCorruptState) {
			return err
		}
	}
	if err := tracker.loadOngoingSleepLocked(); err != nil {
		if !tracker.noteLocked(err, now) || !errors.Is(err, ErrCorruptState) {
			return err
		}
	}
	if err := tracker.loadPumpScheduleLocked(); err != nil {
		if !tracker.noteLocked(err, now) || !errors.Is(err, ErrCorruptState) {
			return err
		}
	}
	if err := tracker.alarms.Load(now); err != nil {
		tracker.noteLocked(err, now)
		return err
	}

	tracker.reconcileLocked(now)
	tracker.logger.Infof("tracker: loaded %d events", tracker.store.Len())
	return nil
}

func (tracker *Tracker) loadOngoingSleepLocked() error {
	raw, found, err := tracker.blobs.Get(models.KeyOngoingSleep)
	if err != nil {
		return fmt.Errorf("%w: load ongoing sleep: %v", ErrPersistenceFailed, err)
	}
	tracker.ongoing = nil
	if !found || raw == "" {
		return nil
	}
	var ongoing models.OngoingSleep
	if err := json.Unmarshal([]byte(raw), &ongoing); err != nil || ongoing.StartTime.IsZero() {
		if err == nil {
			err = errors.New("missing startTime")
		}
		return quarantineBlob(tracker.blobs, tracker.logger, models.KeyOngoingSleep, raw, "", err)
	}
	tracker.ongoing = &ongoing
	return nil
}

func (tracker *Tracker) loadPumpScheduleLocked() error {
	raw, found, err := tracker.blobs.Get(models.KeyPumpSchedule)
	if err != nil {
		return fmt.Errorf("%w: load pump schedule: %v", ErrPersistenceFailed, err)
	}
	tracker.pump = NewPumpScheduler(models.PumpSchedule{}, tracker.location)
	if !found || raw == "" {
		return nil
	}
	var schedule models.PumpSchedule
	if err := json.Unmarshal([]byte(raw), &schedule); err != nil {
		return quarantineBlob(tracker.blobs, tracker.logger, models.KeyPumpSchedule, raw, "", err)
	}
	if err := ValidatePumpSchedule(schedule); err != nil {
		return quarantineBlob(tracker.blobs, tracker.logger, models.KeyPumpSchedule, raw, "", err)
	}
	tracker.pump = NewPumpScheduler(schedule, tracker.location)
	return nil
}

// Start runs the alarm and dashboard tickers until ctx is cancelled.
func (tracker *Tracker) Start(ctx context.Context) {
	alarmTicker := time.NewTicker(tracker.tuning.AlarmCheckInterval)
	dashboardTicker := time.NewTicker(tracker.tuning.DashboardRefreshInterval)
	go func() {
		defer alarmTicker.Stop()
		defer dashboardTicker.Stop()

		for {
			select {
			case <-ctx.Done():
				tracker.mu.Lock()
				tracker.alarms.Stop()
				tracker.mu.Unlock()
				return
			case <-alarmTicker.C:
				tracker.Tick()
			case <-dashboardTicker.C:
				tracker.RefreshDashboard()
			}
		}
	}()
}

// Now reads the tracker's clock.
func (tracker *Tracker) Now() time.Time {
	return tracker.clock.Now()
}

func (tracker *Tracker) Location() *time.Location {
	return tracker.location
}

// Tick re-derives predictions and reschedules alarms.
func (tracker *Tracker) Tick() {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	tracker.reconcileLocked(tracker.clock.Now())
}

func (tracker *Tracker) AddEvent(input EventInput) (models.Event, error) {
	event, err := BuildEvent(input)
	if err != nil {
		return models.Event{}, err
	}

	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	stored, err := tracker.store.Add(event)
	if err != nil {
		tracker.noteLocked(err, tracker.clock.Now())
		return models.Event{}, err
	}
	tracker.afterMutationLocked()
	return stored, nil
}

func (tracker *Tracker) UpdateEvent(id string, input EventInput) (models.Event, error) {
	event, err := BuildEvent(input)
	if err != nil {
		return models.Event{}, err
	}

	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	updated, err := tracker.store.Update(id, event)
	if err != nil {
		tracker.noteLocked(err, tracker.clock.Now())
		return models.Event{}, err
	}
	if !updated {
		return models.Event{}, ErrEventNotFound
	}
	tracker.afterMutationLocked()
	stored, _ := tracker.store.Get(id)
	return stored, nil
}

func (tracker *Tracker) DeleteEvent(id string) error {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	deleted, err := tracker.store.Delete(id)
	if err != nil {
		tracker.noteLocked(err, tracker.clock.Now())
		return err
	}
	if !deleted {
		return ErrEventNotFound
	}
	tracker.afterMutationLocked()
	return nil
}

func (tracker *Tracker) Event(id string) (models.Event, bool) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	return tracker.store.Get(id)
}

// Events lists events newest first. subtype filters on feedType or diaperType.
func (tracker *Tracker) Events(category models.Category, subtype string) []models.Event {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	var match EventMatcher
	if subtype != "" {
		match = func(event models.Event) bool {
			return string(event.FeedType()) == subtype || string(event.DiaperType()) == subtype
		}
	}
	return tracker.store.List(category, match)
}

func (tracker *Tracker) ScheduledMedicines() []models.Event {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	return tracker.store.ScheduledMedicines()
}

func (tracker *Tracker) HasEnoughDataForBaselines() bool {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	return tracker.store.HasEnoughDataForBaselines(tracker.tuning)
}

func (tracker *Tracker) OngoingSleep() (models.OngoingSleep, bool) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	if tracker.ongoing == nil {
		return models.OngoingSleep{}, false
	}
	return *tracker.ongoing, true
}

// StartSleep opens a sleep session. A zero start means now.
func (tracker *Tracker) StartSleep(start time.Time) (models.OngoingSleep, error) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	if tracker.ongoing != nil {
		return models.OngoingSleep{}, ErrSleepInProgress
	}
	now := tracker.clock.Now()
	if start.IsZero() {
		start = now
	}
	ongoing := models.OngoingSleep{StartTime: start}
	payload, err := json.Marshal(ongoing)
	if err != nil {
		return models.OngoingSleep{}, fmt.Errorf("%w: encode ongoing sleep: %v", ErrPersistenceFailed, err)
	}
	if err := tracker.blobs.Put(models.KeyOngoingSleep, string(payload)); err != nil {
		err = fmt.Errorf("%w: write ongoing sleep: %v", ErrPersistenceFailed, err)
		tracker.noteLocked(err, now)
		return models.OngoingSleep{}, err
	}
	tracker.ongoing = &ongoing
	tracker.afterMutationLocked()
	return ongoing, nil
}

// EndSleep closes the session into a finished sleep event. A zero end means now.
func (tracker *Tracker) EndSleep(end time.Time, notes string) (models.Event, error) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	if tracker.ongoing == nil {
		return models.Event{}, ErrNoOngoingSleep
	}
	now := tracker.clock.Now()
	if end.IsZero() {
		end = now
	}
	start := tracker.ongoing.StartTime
	if end.Before(start) {
		return models.Event{}, ErrInvalidSleepRange
	}

	sleepStart, sleepEnd := start, end
	stored, err := tracker.store.Add(models.Event{
		Category:  models.CategorySleep,
		Timestamp: end,
		Notes:     notes,
		Sleep:     &models.SleepDetails{Start: &sleepStart, End: &sleepEnd, Duration: end.Sub(start)},
	})
	if err != nil {
		tracker.noteLocked(err, now)
		return models.Event{}, err
	}

	tracker.ongoing = nil
	if err := tracker.blobs.Delete(models.KeyOngoingSleep); err != nil {
		tracker.logger.Errorf("tracker: clear ongoing sleep failed: %v", err)
		tracker.noteLocked(fmt.Errorf("%w: clear ongoing sleep: %v", ErrPersistenceFailed, err), now)
	}
	tracker.afterMutationLocked()
	return stored, nil
}

func (tracker *Tracker) CancelSleep() error {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	if tracker.ongoing == nil {
		return ErrNoOngoingSleep
	}
	if err := tracker.blobs.Delete(models.KeyOngoingSleep); err != nil {
		err = fmt.Errorf("%w: clear ongoing sleep: %v", ErrPersistenceFailed, err)
		tracker.noteLocked(err, tracker.clock.Now())
		return err
	}
	tracker.ongoing = nil
	tracker.afterMutationLocked()
	return nil
}

func (tracker *Tracker) PumpSchedule() models.PumpSchedule {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	return tracker.pump.Schedule()
}

func (tracker *Tracker) SetPumpSchedule(schedule models.PumpSchedule) error {
	if err := ValidatePumpSchedule(schedule); err != nil {
		return err
	}

	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	payload, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("%w: encode pump schedule: %v", ErrPersistenceFailed, err)
	}
	if err := tracker.blobs.Put(models.KeyPumpSchedule, string(payload)); err != nil {
		err = fmt.Errorf("%w: write pump schedule: %v", ErrPersistenceFailed, err)
		tracker.noteLocked(err, tracker.clock.Now())
		return err
	}
	tracker.pump = NewPumpScheduler(schedule, tracker.location)
	tracker.afterMutationLocked()
	return nil
}

func (tracker *Tracker) NextPumpTime() (time.Time, bool) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	prediction := tracker.predictor.PredictPump(tracker.clock.Now(), tracker.pump)
	return prediction.At, prediction.HasTime()
}

func (tracker *Tracker) Predict(key PatternKey) Prediction {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	return tracker.predictLocked(key, tracker.clock.Now())
}

func (tracker *Tracker) Predictions() []Prediction {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	return tracker.predictionsLocked(tracker.clock.Now())
}

func (tracker *Tracker) Anomalies() []Anomaly {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	return tracker.detector.Detect(tracker.clock.Now())
}

func (tracker *Tracker) Alarms() ([]AlarmStatus, bool) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	return tracker.alarms.Statuses(), tracker.alarms.Paused()
}

func (tracker *Tracker) DismissAlarm(key string) (bool, error) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	dismissed, err := tracker.alarms.Dismiss(tracker.clock.Now(), key)
	if err != nil || !dismissed {
		return dismissed, err
	}
	tracker.dashboard = nil
	return true, nil
}

func (tracker *Tracker) SnoozeAlarm(key string, minutes int) (time.Time, error) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	now := tracker.clock.Now()
	until, err := tracker.alarms.Snooze(now, key, minutes)
	if err != nil {
		tracker.noteLocked(err, now)
		return time.Time{}, err
	}
	tracker.afterMutationLocked()
	return until, nil
}

func (tracker *Tracker) PauseAlarms() error {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	if err := tracker.alarms.PauseAll(); err != nil {
		tracker.noteLocked(err, tracker.clock.Now())
		return err
	}
	tracker.afterMutationLocked()
	return nil
}

func (tracker *Tracker) ResumeAlarms(force bool) error {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	if err := tracker.alarms.ResumeAll(force); err != nil {
		tracker.noteLocked(err, tracker.clock.Now())
		return err
	}
	tracker.afterMutationLocked()
	return nil
}

// TakeNotices drains pending notices.
func (tracker *Tracker) TakeNotices() []Notice {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	notices := tracker.notices
	tracker.notices = nil
	if notices == nil {
		notices = []Notice{}
	}
	return notices
}

// Close cancels armed alarm timers.
func (tracker *Tracker) Close() {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	tracker.alarms.Stop()
}

func (tracker *Tracker) afterMutationLocked() {
	tracker.dashboard = nil
	tracker.reconcileLocked(tracker.clock.Now())
}

func (tracker *Tracker) reconcileLocked(now time.Time) {
	tracker.alarms.Reconcile(now, tracker.alarmTargetsLocked(now))
}

func (tracker *Tracker) predictLocked(key PatternKey, now time.Time) Prediction {
	if key == PatternPump {
		return tracker.predictor.PredictPump(now, tracker.pump)
	}
	return tracker.predictor.Predict(key, now, tracker.ongoing)
}

func (tracker *Tracker) predictionsLocked(now time.Time) []Prediction {
	predictions := make([]Prediction, 0, len(PatternKeys()))
	for _, key := range PatternKeys() {
		predictions = append(predictions, tracker.predictLocked(key, now))
	}
	return predictions
}

// noteLocked queues a notice for storage errors and reports whether err was one.
func (tracker *Tracker) noteLocked(err error, now time.Time) bool {
	notice, ok := noticeFor(err, now)
	if !ok {
		return false
	}
	tracker.notices = append(tracker.notices, notice)
	if len(tracker.notices) > maxPendingNotices {
		tracker.notices = tracker.notices[len(tracker.notices)-maxPendingNotices:]
	}
	return true
}
