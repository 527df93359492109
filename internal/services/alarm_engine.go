package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/terraincognita07/nestling/internal/logging"
	"github.com/terraincognita07/nestling/internal/models"
)

type AlarmState string

const (
	AlarmDisabled  AlarmState = "disabled"
	AlarmArmed     AlarmState = "armed"
	AlarmPending   AlarmState = "pending"
	AlarmFiring    AlarmState = "firing"
	AlarmSnoozed   AlarmState = "snoozed"
	AlarmDismissed AlarmState = "dismissed"
)

const MedicineAlarmPrefix = "medicine:"

// MaxSnoozeMinutes bounds a single snooze to one day.
const MaxSnoozeMinutes = 24 * 60

// AlarmKeys lists the fixed alarm keys. Medicine alarms are keyed per event.
func AlarmKeys() []string {
	return []string{
		string(PatternFeed),
		string(PatternDiaperWet),
		string(PatternDiaperDirty),
		string(PatternSleepStart),
		string(PatternSleepWake),
		string(PatternPump),
	}
}

func MedicineAlarmKey(eventID string) string {
	return MedicineAlarmPrefix + eventID
}

func IsAlarmKey(key string) bool {
	if strings.HasPrefix(key, MedicineAlarmPrefix) {
		return len(key) > len(MedicineAlarmPrefix)
	}
	for _, fixed := range AlarmKeys() {
		if key == fixed {
			return true
		}
	}
	return false
}

// AlarmTarget is what an alarm key should fire for on this evaluation.
type AlarmTarget struct {
	Key        string
	Target     time.Time
	FireAt     time.Time
	MessageKey string
	Params     map[string]string
}

type AlarmFired struct {
	Key         string
	Severity    Severity
	Message     string
	MessageKey  string
	Params      map[string]string
	TriggeredAt time.Time
	Target      time.Time
	Sound       bool
}

type AlarmCleared struct {
	Key       string
	ClearedAt time.Time
}

// AlarmSink receives fire and clear outputs as they happen.
type AlarmSink interface {
	AlarmFired(fired AlarmFired)
	AlarmCleared(cleared AlarmCleared)
}

type AlarmStatus struct {
	Key          string
	State        AlarmState
	Target       time.Time
	FireAt       time.Time
	SnoozedUntil time.Time
	FiredAt      time.Time
	MessageKey   string
	Params       map[string]string
}

type alarmSlot struct {
	key     string
	state   AlarmState
	target  AlarmTarget
	timer   Timer
	timerAt time.Time
	firedAt time.Time
}

// AlarmEngine keeps one state machine per alarm key. It is not safe for
// concurrent use; the Tracker serializes access.
type AlarmEngine struct {
	clock    Clock
	blobs    BlobStore
	tuning   Tuning
	sink     AlarmSink
	renderer MessageRenderer
	logger   logging.Logger
	sound    bool

	paused      bool
	snoozes     map[string]time.Time
	slots       map[string]*alarmSlot
	lastTargets []AlarmTarget
	wake        func(key string)
}

func NewAlarmEngine(clock Clock, blobs BlobStore, tuning Tuning, sink AlarmSink, renderer MessageRenderer, logger logging.Logger) *AlarmEngine {
	if logger == nil {
		logger = logging.Nop()
	}
	if renderer == nil {
		renderer = keyRenderer{}
	}
	engine := &AlarmEngine{
		clock:    clock,
		blobs:    blobs,
		tuning:   tuning,
		sink:     sink,
		renderer: renderer,
		logger:   logger,
		snoozes:  map[string]time.Time{},
		slots:    map[string]*alarmSlot{},
	}
	engine.wake = func(string) {
		engine.Reconcile(engine.clock.Now(), engine.lastTargets)
	}
	return engine
}

// OnWake replaces the handler run when an armed timer expires.
func (engine *AlarmEngine) OnWake(wake func(key string)) {
	if wake != nil {
		engine.wake = wake
	}
}

func (engine *AlarmEngine) SetSound(enabled bool) {
	engine.sound = enabled
}

func (engine *AlarmEngine) Paused() bool {
	return engine.paused
}

func (engine *AlarmEngine) Snoozes() map[string]time.Time {
	result := make(map[string]time.Time, len(engine.snoozes))
	for key, until := range engine.snoozes {
		result[key] = until
	}
	return result
}

// Load restores pause and snooze state, dropping snoozes that already expired.
func (engine *AlarmEngine) Load(now time.Time) error {
	rawPaused, found, err := engine.blobs.Get(models.KeyAlarmsPaused)
	if err != nil {
		return fmt.Errorf("%w: load alarm pause: %v", ErrPersistenceFailed, err)
	}
	engine.paused = false
	if found && rawPaused != "" {
		paused, parseErr := strconv.ParseBool(rawPaused)
		if parseErr != nil {
			engine.logger.Warnf("alarms: unreadable pause flag %q, treating as not paused", rawPaused)
		}
		engine.paused = paused
	}

	rawSnoozes, found, err := engine.blobs.Get(models.KeyAlarmSnoozes)
	if err != nil {
		return fmt.Errorf("%w: load alarm snoozes: %v", ErrPersistenceFailed, err)
	}
	engine.snoozes = map[string]time.Time{}
	if found && rawSnoozes != "" {
		stored := map[string]int64{}
		if err := json.Unmarshal([]byte(rawSnoozes), &stored); err != nil {
			engine.logger.Warnf("alarms: unreadable snoozes (%v), clearing", err)
		}
		for key, millis := range stored {
			engine.snoozes[key] = time.UnixMilli(millis)
		}
	}

	if engine.dropExpiredSnoozes(now) {
		if err := engine.saveSnoozes(engine.snoozes); err != nil {
			return err
		}
	}
	return nil
}

// Reconcile brings every slot in line with the current targets. Keys absent
// from targets are disabled.
func (engine *AlarmEngine) Reconcile(now time.Time, targets []AlarmTarget) {
	engine.lastTargets = targets
	if engine.dropExpiredSnoozes(now) {
		if err := engine.saveSnoozes(engine.snoozes); err != nil {
			engine.logger.Errorf("alarms: %v", err)
		}
	}

	seen := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		if target.Key == "" || target.FireAt.IsZero() {
			continue
		}
		seen[target.Key] = struct{}{}
		slot, ok := engine.slots[target.Key]
		if !ok {
			slot = &alarmSlot{key: target.Key, state: AlarmDisabled}
			engine.slots[target.Key] = slot
		}
		engine.reconcileSlot(now, slot, target)
	}

	for key, slot := range engine.slots {
		if _, ok := seen[key]; ok {
			continue
		}
		engine.stopTimer(slot)
		engine.clear(slot, now)
		if strings.HasPrefix(key, MedicineAlarmPrefix) {
			delete(engine.slots, key)
			continue
		}
		slot.state = AlarmDisabled
		slot.target = AlarmTarget{Key: key}
	}
}

func (engine *AlarmEngine) reconcileSlot(now time.Time, slot *alarmSlot, target AlarmTarget) {
	material := engine.materiallyChanged(slot.target, target)
	slot.target = target

	if engine.paused {
		engine.stopTimer(slot)
		if slot.state == AlarmDismissed && !material {
			return
		}
		engine.clear(slot, now)
		slot.state = AlarmDisabled
		if !target.FireAt.After(now) {
			slot.state = AlarmPending
		}
		return
	}

	switch slot.state {
	case AlarmFiring:
		if !material {
			return
		}
		engine.clear(slot, now)
	case AlarmDismissed:
		if !material && !target.FireAt.After(now) {
			engine.stopTimer(slot)
			return
		}
	}

	fireAt := target.FireAt
	if until, ok := engine.snoozes[slot.key]; ok && until.After(now) {
		if fireAt.Before(until) {
			fireAt = until
		}
		engine.arm(slot, fireAt, now)
		slot.state = AlarmSnoozed
		return
	}

	if !fireAt.After(now) {
		engine.fire(slot, now)
		return
	}
	engine.arm(slot, fireAt, now)
	slot.state = AlarmArmed
}

func (engine *AlarmEngine) materiallyChanged(previous AlarmTarget, next AlarmTarget) bool {
	if previous.Target.IsZero() {
		return true
	}
	return absDuration(next.Target.Sub(previous.Target)) >= engine.tuning.AlarmMaterialChange
}

// Dismiss acknowledges a firing alarm. It reports false when the key is not firing.
func (engine *AlarmEngine) Dismiss(now time.Time, key string) (bool, error) {
	if !IsAlarmKey(key) {
		return false, fmt.Errorf("%w: %s", ErrUnknownAlarmKey, key)
	}
	slot, ok := engine.slots[key]
	if !ok || slot.state != AlarmFiring {
		return false, nil
	}
	engine.clear(slot, now)
	engine.stopTimer(slot)
	slot.state = AlarmDismissed
	return true, nil
}

// Snooze holds the key until now+minutes. The caller reconciles afterwards.
func (engine *AlarmEngine) Snooze(now time.Time, key string, minutes int) (time.Time, error) {
	if !IsAlarmKey(key) {
		return time.Time{}, fmt.Errorf("%w: %s", ErrUnknownAlarmKey, key)
	}
	if minutes <= 0 {
		return time.Time{}, fmt.Errorf("%w: snooze minutes must be positive", ErrInvalidInput)
	}
	if minutes > MaxSnoozeMinutes {
		return time.Time{}, fmt.Errorf("%w: snooze minutes must not exceed %d", ErrInvalidInput, MaxSnoozeMinutes)
	}
	until := now.Add(time.Duration(minutes) * time.Minute)

	next := engine.Snoozes()
	next[key] = until
	if err := engine.saveSnoozes(next); err != nil {
		return time.Time{}, err
	}
	engine.snoozes = next

	if slot, ok := engine.slots[key]; ok {
		engine.clear(slot, now)
		engine.stopTimer(slot)
		slot.state = AlarmSnoozed
	}
	return until, nil
}

func (engine *AlarmEngine) PauseAll() error {
	if err := engine.savePaused(true); err != nil {
		return err
	}
	engine.paused = true
	return nil
}

// ResumeAll clears the pause flag, and every snooze too when force is set.
func (engine *AlarmEngine) ResumeAll(force bool) error {
	if force {
		if err := engine.saveSnoozes(map[string]time.Time{}); err != nil {
			return err
		}
		engine.snoozes = map[string]time.Time{}
	}
	if err := engine.savePaused(false); err != nil {
		return err
	}
	engine.paused = false
	return nil
}

func (engine *AlarmEngine) Statuses() []AlarmStatus {
	statuses := make([]AlarmStatus, 0, len(engine.slots))
	for key, slot := range engine.slots {
		statuses = append(statuses, AlarmStatus{
			Key:          key,
			State:        slot.state,
			Target:       slot.target.Target,
			FireAt:       slot.target.FireAt,
			SnoozedUntil: engine.snoozes[key],
			FiredAt:      slot.firedAt,
			MessageKey:   slot.target.MessageKey,
			Params:       slot.target.Params,
		})
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Key < statuses[j].Key
	})
	return statuses
}

func (engine *AlarmEngine) Status(key string) (AlarmStatus, bool) {
	for _, status := range engine.Statuses() {
		if status.Key == key {
			return status, true
		}
	}
	return AlarmStatus{}, false
}

// Stop cancels every armed timer.
func (engine *AlarmEngine) Stop() {
	for _, slot := range engine.slots {
		engine.stopTimer(slot)
	}
}

func (engine *AlarmEngine) fire(slot *alarmSlot, now time.Time) {
	engine.stopTimer(slot)
	slot.state = AlarmFiring
	slot.firedAt = now
	engine.logger.Infof("alarms: %s firing for %s", slot.key, slot.target.Target.Format(time.RFC3339))
	if engine.sink == nil {
		return
	}
	engine.sink.AlarmFired(AlarmFired{
		Key:         slot.key,
		Severity:    SeverityInfo,
		Message:     engine.renderer.Render(slot.target.MessageKey, slot.target.Params),
		MessageKey:  slot.target.MessageKey,
		Params:      slot.target.Params,
		TriggeredAt: now,
		Target:      slot.target.Target,
		Sound:       engine.sound,
	})
}

func (engine *AlarmEngine) clear(slot *alarmSlot, now time.Time) {
	if slot.state != AlarmFiring {
		return
	}
	slot.state = AlarmDisabled
	if engine.sink != nil {
		engine.sink.AlarmCleared(AlarmCleared{Key: slot.key, ClearedAt: now})
	}
}

func (engine *AlarmEngine) arm(slot *alarmSlot, at time.Time, now time.Time) {
	if slot.timer != nil && slot.timerAt.Equal(at) {
		return
	}
	engine.stopTimer(slot)
	key := slot.key
	slot.timer = engine.clock.AfterFunc(at.Sub(now), func() {
		engine.wake(key)
	})
	slot.timerAt = at
}

func (engine *AlarmEngine) stopTimer(slot *alarmSlot) {
	if slot.timer == nil {
		return
	}
	slot.timer.Stop()
	slot.timer = nil
	slot.timerAt = time.Time{}
}

func (engine *AlarmEngine) dropExpiredSnoozes(now time.Time) bool {
	changed := false
	for key, until := range engine.snoozes {
		if !until.After(now) {
			delete(engine.snoozes, key)
			changed = true
		}
	}
	return changed
}

func (engine *AlarmEngine) saveSnoozes(snoozes map[string]time.Time) error {
	stored := make(map[string]int64, len(snoozes))
	for key, until := range snoozes {
		stored[key] = until.UnixMilli()
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("%w: encode snoozes: %v", ErrPersistenceFailed, err)
	}
	if err := engine.blobs.Put(models.KeyAlarmSnoozes, string(payload)); err != nil {
		return fmt.Errorf("%w: write snoozes: %v", ErrPersistenceFailed, err)
	}
	return nil
}

func (engine *AlarmEngine) savePaused(paused bool) error {
	if err := engine.blobs.Put(models.KeyAlarmsPaused, strconv.FormatBool(paused)); err != nil {
		return fmt.Errorf("%w: write alarm pause: %v", ErrPersistenceFailed, err)
	}
	return nil
}
