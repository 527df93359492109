package services

import (
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/terraincognita07/nestling/internal/models"
)

var errStubWrite = errors.New("disk full")

type memoryBlobs struct {
	mu       sync.Mutex
	values   map[string]string
	failPuts map[string]bool
	writes   map[string]int
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{
		values:   map[string]string{},
		failPuts: map[string]bool{},
		writes:   map[string]int{},
	}
}

func (blobs *memoryBlobs) Get(key string) (string, bool, error) {
	blobs.mu.Lock()
	defer blobs.mu.Unlock()
	value, ok := blobs.values[key]
	return value, ok, nil
}

func (blobs *memoryBlobs) Put(key string, value string) error {
	blobs.mu.Lock()
	defer blobs.mu.Unlock()
	if blobs.failPuts[key] {
		return errStubWrite
	}
	blobs.values[key] = value
	blobs.writes[key]++
	return nil
}

func (blobs *memoryBlobs) Delete(key string) error {
	blobs.mu.Lock()
	defer blobs.mu.Unlock()
	delete(blobs.values, key)
	return nil
}

func (blobs *memoryBlobs) failWrites(key string, fail bool) {
	blobs.mu.Lock()
	defer blobs.mu.Unlock()
	blobs.failPuts[key] = fail
}

type recordingSink struct {
	mu      sync.Mutex
	fired   []AlarmFired
	cleared []AlarmCleared
}

func (sink *recordingSink) AlarmFired(fired AlarmFired) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.fired = append(sink.fired, fired)
}

func (sink *recordingSink) AlarmCleared(cleared AlarmCleared) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.cleared = append(sink.cleared, cleared)
}

func (sink *recordingSink) firedKeys() []string {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	keys := make([]string, 0, len(sink.fired))
	for _, fired := range sink.fired {
		keys = append(keys, fired.Key)
	}
	return keys
}

func (sink *recordingSink) firedCount(key string) int {
	count := 0
	for _, fired := range sink.firedKeys() {
		if fired == key {
			count++
		}
	}
	return count
}

var baseDay = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func at(hour int, minute int) time.Time {
	return baseDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func feeding(timestamp time.Time, feedType models.FeedType) models.Event {
	return models.Event{
		Category:  models.CategoryFeeding,
		Timestamp: timestamp,
		Feeding:   &models.FeedingDetails{FeedType: feedType},
	}
}

func diaper(timestamp time.Time, diaperType models.DiaperType) models.Event {
	return models.Event{
		Category:  models.CategoryDiaper,
		Timestamp: timestamp,
		Diaper:    &models.DiaperDetails{DiaperType: diaperType},
	}
}

func sleepEvent(start time.Time, end time.Time) models.Event {
	startCopy, endCopy := start, end
	return models.Event{
		Category:  models.CategorySleep,
		Timestamp: end,
		Sleep:     &models.SleepDetails{Start: &startCopy, End: &endCopy, Duration: end.Sub(start)},
	}
}

func newTestStore(t *testing.T, events ...models.Event) *EventStore {
	t.Helper()
	store := NewEventStore(newMemoryBlobs(), nil)
	if err := store.Load(); err != nil {
		t.Fatalf("load empty store: %v", err)
	}
	for _, event := range events {
		if _, err := store.Add(event); err != nil {
			t.Fatalf("add event: %v", err)
		}
	}
	return store
}

func sortedKeys(values map[string]time.Time) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
