package services

import (
	"fmt"
	"time"

	"github.com/terraincognita07/nestling/internal/models"
)

const pumpAnchorLayout = "15:04"

// PumpScheduler generates pump slots from a fixed interval and an optional
// time-of-day anchor in the tracker's location.
type PumpScheduler struct {
	schedule models.PumpSchedule
	location *time.Location
}

func NewPumpScheduler(schedule models.PumpSchedule, location *time.Location) *PumpScheduler {
	if location == nil {
		location = time.UTC
	}
	return &PumpScheduler{schedule: schedule, location: location}
}

func (scheduler *PumpScheduler) Schedule() models.PumpSchedule {
	return scheduler.schedule
}

func (scheduler *PumpScheduler) Interval() time.Duration {
	return time.Duration(scheduler.schedule.IntervalHours * float64(time.Hour))
}

// NextPumpTime returns the first slot strictly after now.
func (scheduler *PumpScheduler) NextPumpTime(now time.Time, lastPump *time.Time) (time.Time, bool) {
	interval := scheduler.Interval()
	if !scheduler.schedule.Enabled() || interval <= 0 {
		return time.Time{}, false
	}

	var candidate time.Time
	switch {
	case lastPump != nil:
		candidate = lastPump.Add(interval)
	case scheduler.schedule.StartTime != "":
		anchor, err := time.Parse(pumpAnchorLayout, scheduler.schedule.StartTime)
		if err != nil {
			candidate = now.Add(interval)
			break
		}
		local := now.In(scheduler.location)
		candidate = time.Date(local.Year(), local.Month(), local.Day(), anchor.Hour(), anchor.Minute(), 0, 0, scheduler.location)
	default:
		candidate = now.Add(interval)
	}

	if !candidate.After(now) {
		steps := now.Sub(candidate)/interval + 1
		candidate = candidate.Add(steps * interval)
	}
	return candidate, true
}

func ValidatePumpSchedule(schedule models.PumpSchedule) error {
	if err := eventValidator().Struct(schedule); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPumpSchedule, validationProblems(err))
	}
	return nil
}
