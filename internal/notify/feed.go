package notify

import (
	"sync"
	"time"

	"github.com/terraincognita07/nestling/internal/services"
)

const DefaultFeedCapacity = 100

type EntryKind string

const (
	EntryFired   EntryKind = "fired"
	EntryCleared EntryKind = "cleared"
)

// Entry is one alarm output kept for UI polling. Exactly one of Fired and
// Cleared is set, matching Kind.
type Entry struct {
	Seq     uint64
	Kind    EntryKind
	At      time.Time
	Fired   *services.AlarmFired
	Cleared *services.AlarmCleared
}

// Feed is a bounded ring of recent alarm outputs with a monotonically
// increasing sequence number.
type Feed struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
	nextSeq  uint64
}

func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultFeedCapacity
	}
	return &Feed{capacity: capacity, entries: make([]Entry, 0, capacity), nextSeq: 1}
}

func (feed *Feed) AlarmFired(fired services.AlarmFired) {
	feed.append(Entry{Kind: EntryFired, At: fired.TriggeredAt, Fired: &fired})
}

func (feed *Feed) AlarmCleared(cleared services.AlarmCleared) {
	feed.append(Entry{Kind: EntryCleared, At: cleared.ClearedAt, Cleared: &cleared})
}

func (feed *Feed) append(entry Entry) {
	feed.mu.Lock()
	defer feed.mu.Unlock()

	entry.Seq = feed.nextSeq
	feed.nextSeq++
	if len(feed.entries) == feed.capacity {
		copy(feed.entries, feed.entries[1:])
		feed.entries = feed.entries[:len(feed.entries)-1]
	}
	feed.entries = append(feed.entries, entry)
}

// After returns entries with a sequence greater than seq, oldest first.
func (feed *Feed) After(seq uint64) []Entry {
	feed.mu.Lock()
	defer feed.mu.Unlock()

	result := make([]Entry, 0)
	for _, entry := range feed.entries {
		if entry.Seq > seq {
			result = append(result, entry)
		}
	}
	return result
}

// LastSeq is the sequence of the newest entry, or 0 when nothing was recorded.
func (feed *Feed) LastSeq() uint64 {
	feed.mu.Lock()
	defer feed.mu.Unlock()
	return feed.nextSeq - 1
}
