package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/nestling/internal/logging"
	"github.com/terraincognita07/nestling/internal/models"
)

type EventMatcher func(models.Event) bool

// EventReader is the read model the derived components consume.
type EventReader interface {
	List(category models.Category, match EventMatcher) []models.Event
	LastOf(category models.Category, match EventMatcher) (models.Event, bool)
	LastSleepEnd() (time.Time, bool)
}

// EventStore keeps events in descending timestamp order and persists the whole
// set under the events key after every mutation.
type EventStore struct {
	blobs  BlobStore
	logger logging.Logger
	events []models.Event
	newID  func() string
}

func NewEventStore(blobs BlobStore, logger logging.Logger) *EventStore {
	if logger == nil {
		logger = logging.Nop()
	}
	return &EventStore{
		blobs:  blobs,
		logger: logger,
		newID:  func() string { return uuid.NewString() },
	}
}

// Load reads persisted events, runs pending data migrations and replaces the
// in-memory view. A blob that fails to parse is preserved under a sidecar key
// and the store starts empty; the returned error wraps ErrCorruptState.
func (store *EventStore) Load() error {
	raw, found, err := store.blobs.Get(models.KeyEvents)
	if err != nil {
		return fmt.Errorf("%w: load events: %v", ErrPersistenceFailed, err)
	}

	events := make([]models.Event, 0)
	if found && raw != "" {
		if err := json.Unmarshal([]byte(raw), &events); err != nil {
			store.events = nil
			return quarantineBlob(store.blobs, store.logger, models.KeyEvents, raw, "[]", err)
		}
	}

	version, err := store.loadDataVersion()
	if err != nil {
		return err
	}

	migrated, changed := migrateEvents(events, version, store.newID, store.logger)
	sortEventsDescending(migrated)
	store.events = migrated

	if changed {
		if err := store.persist(store.events); err != nil {
			return err
		}
	}
	if version != CurrentDataVersion {
		if err := store.blobs.Put(models.KeyDataVersion, strconv.Itoa(CurrentDataVersion)); err != nil {
			return fmt.Errorf("%w: save data version: %v", ErrPersistenceFailed, err)
		}
	}
	return nil
}

func (store *EventStore) loadDataVersion() (int, error) {
	raw, found, err := store.blobs.Get(models.KeyDataVersion)
	if err != nil {
		return 0, fmt.Errorf("%w: load data version: %v", ErrPersistenceFailed, err)
	}
	if !found || raw == "" {
		return 0, nil
	}
	version, err := strconv.Atoi(raw)
	if err != nil {
		store.logger.Warnf("event store: unreadable data version %q, re-running migrations", raw)
		return 0, nil
	}
	return version, nil
}

// quarantineBlob keeps an unparseable blob under a sidecar key and resets
// the original key to empty.
func quarantineBlob(blobs BlobStore, logger logging.Logger, key string, raw string, empty string, cause error) error {
	sidecar := key + models.CorruptKeySuffix
	logger.Errorf("store: %s blob is corrupt (%v), preserved under %s", key, cause, sidecar)
	if err := blobs.Put(sidecar, raw); err != nil {
		return fmt.Errorf("%w: preserve corrupt %s: %v", ErrPersistenceFailed, key, err)
	}
	if empty == "" {
		if err := blobs.Delete(key); err != nil {
			return fmt.Errorf("%w: reset %s: %v", ErrPersistenceFailed, key, err)
		}
	} else if err := blobs.Put(key, empty); err != nil {
		return fmt.Errorf("%w: reset %s: %v", ErrPersistenceFailed, key, err)
	}
	return &CorruptStateError{Key: key, Sidecar: sidecar}
}

func (store *EventStore) Add(event models.Event) (models.Event, error) {
	if event.ID == "" {
		event.ID = store.newID()
	}
	if _, exists := store.indexOf(event.ID); exists {
		return models.Event{}, fmt.Errorf("%w: duplicate id %s", ErrInvalidInput, event.ID)
	}

	next := make([]models.Event, 0, len(store.events)+1)
	position := insertPosition(store.events, event.Timestamp)
	next = append(next, store.events[:position]...)
	next = append(next, event)
	next = append(next, store.events[position:]...)

	if err := store.persist(next); err != nil {
		return models.Event{}, err
	}
	store.events = next
	return event, nil
}

// Update replaces the event with the given id. An unknown id is logged and
// reported as (false, nil).
func (store *EventStore) Update(id string, replacement models.Event) (bool, error) {
	index, ok := store.indexOf(id)
	if !ok {
		store.logger.Warnf("event store: update of unknown event %s", id)
		return false, nil
	}

	replacement.ID = id
	next := make([]models.Event, 0, len(store.events))
	next = append(next, store.events[:index]...)
	next = append(next, store.events[index+1:]...)
	position := insertPosition(next, replacement.Timestamp)
	next = append(next, models.Event{})
	copy(next[position+1:], next[position:])
	next[position] = replacement

	if err := store.persist(next); err != nil {
		return false, err
	}
	store.events = next
	return true, nil
}

func (store *EventStore) Delete(id string) (bool, error) {
	index, ok := store.indexOf(id)
	if !ok {
		store.logger.Warnf("event store: delete of unknown event %s", id)
		return false, nil
	}

	next := make([]models.Event, 0, len(store.events))
	next = append(next, store.events[:index]...)
	next = append(next, store.events[index+1:]...)

	if err := store.persist(next); err != nil {
		return false, err
	}
	store.events = next
	return true, nil
}

func (store *EventStore) Get(id string) (models.Event, bool) {
	index, ok := store.indexOf(id)
	if !ok {
		return models.Event{}, false
	}
	return store.events[index], true
}

func (store *EventStore) Len() int {
	return len(store.events)
}

// List returns matching events newest first. An empty category matches all.
func (store *EventStore) List(category models.Category, match EventMatcher) []models.Event {
	result := make([]models.Event, 0)
	for _, event := range store.events {
		if category != "" && event.Category != category {
			continue
		}
		if match != nil && !match(event) {
			continue
		}
		result = append(result, event)
	}
	return result
}

func (store *EventStore) LastOf(category models.Category, match EventMatcher) (models.Event, bool) {
	for _, event := range store.events {
		if event.Category != category {
			continue
		}
		if match != nil && !match(event) {
			continue
		}
		return event, true
	}
	return models.Event{}, false
}

func (store *EventStore) LastDiaperOf(types ...models.DiaperType) (models.Event, bool) {
	return store.LastOf(models.CategoryDiaper, DiaperTypeIn(types...))
}

func (store *EventStore) LastSleepEnd() (time.Time, bool) {
	var latest time.Time
	found := false
	for _, event := range store.events {
		if event.Category != models.CategorySleep {
			continue
		}
		end, ok := event.SleepEnd()
		if !ok {
			continue
		}
		if !found || end.After(latest) {
			latest = end
			found = true
		}
		// Events with an end are stamped at their end, so the first hit in
		// descending order is the answer unless legacy data disagrees.
		if end.Equal(event.Timestamp) {
			break
		}
	}
	return latest, found
}

// ScheduledMedicines returns scheduled medicines ordered by next dose, soonest first.
func (store *EventStore) ScheduledMedicines() []models.Event {
	medicines := store.List(models.CategoryMedicine, func(event models.Event) bool {
		return event.IsScheduledMedicine()
	})
	sort.SliceStable(medicines, func(i, j int) bool {
		return medicines[i].Medicine.Schedule.NextDoseTime.Before(*medicines[j].Medicine.Schedule.NextDoseTime)
	})
	return medicines
}

func (store *EventStore) HasEnoughDataForBaselines(tuning Tuning) bool {
	counts := make(map[models.Category]int, 3)
	for _, event := range store.events {
		counts[event.Category]++
	}
	for _, category := range []models.Category{models.CategoryFeeding, models.CategorySleep, models.CategoryDiaper} {
		if counts[category] < tuning.MinEntries(category) {
			return false
		}
	}
	return true
}

func (store *EventStore) persist(events []models.Event) error {
	payload, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("%w: encode events: %v", ErrPersistenceFailed, err)
	}
	if err := store.blobs.Put(models.KeyEvents, string(payload)); err != nil {
		store.logger.Errorf("event store: write events failed: %v", err)
		return fmt.Errorf("%w: write events: %v", ErrPersistenceFailed, err)
	}
	return nil
}

func (store *EventStore) indexOf(id string) (int, bool) {
	for index, event := range store.events {
		if event.ID == id {
			return index, true
		}
	}
	return -1, false
}

// insertPosition places a new event ahead of existing events with the same
// timestamp so the latest submission wins ties.
func insertPosition(events []models.Event, timestamp time.Time) int {
	return sort.Search(len(events), func(i int) bool {
		return !events[i].Timestamp.After(timestamp)
	})
}

func sortEventsDescending(events []models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
}

func DiaperTypeIn(types ...models.DiaperType) EventMatcher {
	return func(event models.Event) bool {
		diaperType := event.DiaperType()
		for _, candidate := range types {
			if diaperType == candidate {
				return true
			}
		}
		return false
	}
}

func FeedTypeIs(feedType models.FeedType) EventMatcher {
	return func(event models.Event) bool {
		return event.FeedType() == feedType
	}
}

// Within matches events stamped inside [from, to].
func Within(from time.Time, to time.Time) EventMatcher {
	return func(event models.Event) bool {
		return !event.Timestamp.Before(from) && !event.Timestamp.After(to)
	}
}

func allOf(matchers ...EventMatcher) EventMatcher {
	return func(event models.Event) bool {
		for _, match := range matchers {
			if match != nil && !match(event) {
				return false
			}
		}
		return true
	}
}

// ascending returns a copy of events ordered oldest first.
func ascending(events []models.Event) []models.Event {
	ordered := make([]models.Event, len(events))
	for index, event := range events {
		ordered[len(events)-1-index] = event
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})
	return ordered
}

func timestampsOf(events []models.Event) []time.Time {
	timestamps := make([]time.Time, 0, len(events))
	for _, event := range events {
		timestamps = append(timestamps, event.Timestamp)
	}
	return timestamps
}
