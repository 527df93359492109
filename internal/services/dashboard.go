package services

import (
	"time"

	"github.com/terraincognita07/nestling/internal/models"
)

// Dashboard is the derived snapshot the home screen renders.
type Dashboard struct {
	GeneratedAt    time.Time
	Predictions    []Prediction
	Anomalies      []Anomaly
	OngoingSleep   *models.OngoingSleep
	LastEvents     map[models.Category]models.Event
	TodayCounts    map[models.Category]int
	NextMedicine   *models.Event
	Alarms         []AlarmStatus
	AlarmsPaused   bool
	BaselinesReady bool
}

// Dashboard returns the cached snapshot, rebuilding it when a mutation
// invalidated it or the refresh interval elapsed.
func (tracker *Tracker) Dashboard() Dashboard {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	now := tracker.clock.Now()
	if tracker.dashboard == nil || now.Sub(tracker.dashboard.GeneratedAt) >= tracker.tuning.DashboardRefreshInterval {
		snapshot := tracker.buildDashboardLocked(now)
		tracker.dashboard = &snapshot
	}
	return *tracker.dashboard
}

func (tracker *Tracker) RefreshDashboard() {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	snapshot := tracker.buildDashboardLocked(tracker.clock.Now())
	tracker.dashboard = &snapshot
}

func (tracker *Tracker) buildDashboardLocked(now time.Time) Dashboard {
	snapshot := Dashboard{
		GeneratedAt:    now,
		Predictions:    tracker.predictionsLocked(now),
		Anomalies:      tracker.detector.Detect(now),
		LastEvents:     map[models.Category]models.Event{},
		TodayCounts:    map[models.Category]int{},
		Alarms:         tracker.alarms.Statuses(),
		AlarmsPaused:   tracker.alarms.Paused(),
		BaselinesReady: tracker.store.HasEnoughDataForBaselines(tracker.tuning),
	}
	if tracker.ongoing != nil {
		ongoing := *tracker.ongoing
		snapshot.OngoingSleep = &ongoing
	}

	local := now.In(tracker.location)
	startOfDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tracker.location)
	for _, category := range models.AllCategories() {
		if last, ok := tracker.store.LastOf(category, nil); ok {
			snapshot.LastEvents[category] = last
		}
		snapshot.TodayCounts[category] = len(tracker.store.List(category, Within(startOfDay, now)))
	}

	if medicines := tracker.store.ScheduledMedicines(); len(medicines) > 0 {
		next := medicines[0]
		snapshot.NextMedicine = &next
	}
	return snapshot
}
