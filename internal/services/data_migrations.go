package services

import (
	"github.com/terraincognita07/nestling/internal/logging"
	"github.com/terraincognita07/nestling/internal/models"
)

// CurrentDataVersion is the schema version stamped under the dataVersion key.
const CurrentDataVersion = 3

type dataMigration struct {
	version int
	apply   func(events []models.Event, newID func() string, logger logging.Logger) bool
}

var dataMigrations = []dataMigration{
	{version: 1, apply: assignMissingIDs},
	{version: 2, apply: defaultTemperatureUnits},
	{version: 3, apply: normalizeSleepTimestamps},
}

// migrateEvents applies every migration newer than fromVersion, in order.
func migrateEvents(events []models.Event, fromVersion int, newID func() string, logger logging.Logger) ([]models.Event, bool) {
	changed := false
	for _, migration := range dataMigrations {
		if migration.version <= fromVersion {
			continue
		}
		if migration.apply(events, newID, logger) {
			logger.Infof("event store: data migration v%d rewrote events", migration.version)
			changed = true
		}
	}
	return events, changed
}

func assignMissingIDs(events []models.Event, newID func() string, logger logging.Logger) bool {
	changed := false
	seen := make(map[string]struct{}, len(events))
	for index := range events {
		id := events[index].ID
		if _, duplicate := seen[id]; id == "" || duplicate {
			events[index].ID = newID()
			changed = true
		}
		seen[events[index].ID] = struct{}{}
	}
	return changed
}

func defaultTemperatureUnits(events []models.Event, _ func() string, _ logging.Logger) bool {
	changed := false
	for index := range events {
		details := events[index].Temperature
		if events[index].Category != models.CategoryTemperature || details == nil {
			continue
		}
		if details.Temperature.Unit == "" {
			details.Temperature.Unit = models.UnitFahrenheit
			changed = true
		}
	}
	return changed
}

func normalizeSleepTimestamps(events []models.Event, _ func() string, logger logging.Logger) bool {
	changed := false
	for index := range events {
		event := &events[index]
		if event.Category != models.CategorySleep || event.Sleep == nil {
			continue
		}
		sleep := event.Sleep
		if sleep.Start != nil && sleep.End != nil && sleep.End.Before(*sleep.Start) {
			logger.Warnf("event store: sleep %s ends before it starts, dropping start", event.ID)
			sleep.Start = nil
			changed = true
		}
		if sleep.End != nil && !event.Timestamp.Equal(*sleep.End) {
			event.Timestamp = *sleep.End
			changed = true
		}
		if sleep.Start != nil && sleep.End != nil {
			duration := sleep.End.Sub(*sleep.Start)
			if sleep.Duration != duration {
				sleep.Duration = duration
				changed = true
			}
		}
	}
	return changed
}
