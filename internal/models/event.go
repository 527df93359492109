package models

import "time"

type Category string

const (
	CategoryFeeding     Category = "feeding"
	CategoryDiaper      Category = "diaper"
	CategorySleep       Category = "sleep"
	CategoryPump        Category = "pump"
	CategoryGrowth      Category = "growth"
	CategoryTemperature Category = "temperature"
	CategoryMedicine    Category = "medicine"
	CategoryMilestone   Category = "milestone"
)

func AllCategories() []Category {
	return []Category{
		CategoryFeeding,
		CategoryDiaper,
		CategorySleep,
		CategoryPump,
		CategoryGrowth,
		CategoryTemperature,
		CategoryMedicine,
		CategoryMilestone,
	}
}

func (category Category) Valid() bool {
	for _, known := range AllCategories() {
		if category == known {
			return true
		}
	}
	return false
}

type FeedType string

const (
	FeedBottle FeedType = "bottle"
	FeedBreast FeedType = "breast"
	FeedSolid  FeedType = "solid"
)

type BreastSide string

const (
	SideLeft  BreastSide = "L"
	SideRight BreastSide = "R"
	SideBoth  BreastSide = "Both"
)

type DiaperType string

const (
	DiaperWet   DiaperType = "wet"
	DiaperDirty DiaperType = "dirty"
	DiaperMixed DiaperType = "mixed"
	DiaperDry   DiaperType = "dry"
)

type FrequencyKind string

const (
	FrequencyOnce  FrequencyKind = "once"
	FrequencyHours FrequencyKind = "hours"
	FrequencyDays  FrequencyKind = "days"
)

// Event is a single logged observation. Exactly one detail record, the one
// matching Category, is set.
type Event struct {
	ID        string    `json:"id"`
	Category  Category  `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`

	Feeding     *FeedingDetails     `json:"feeding,omitempty"`
	Diaper      *DiaperDetails      `json:"diaper,omitempty"`
	Sleep       *SleepDetails       `json:"sleep,omitempty"`
	Pump        *PumpDetails        `json:"pump,omitempty"`
	Growth      *GrowthDetails      `json:"growth,omitempty"`
	Temperature *TemperatureDetails `json:"temperature,omitempty"`
	Medicine    *MedicineDetails    `json:"medicine,omitempty"`
	Milestone   *MilestoneDetails   `json:"milestone,omitempty"`
}

type FeedingDetails struct {
	FeedType FeedType      `json:"feedType"`
	Amount   *Quantity     `json:"amount,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Side     BreastSide    `json:"side,omitempty"`
}

type DiaperDetails struct {
	DiaperType DiaperType `json:"diaperType"`
}

type SleepDetails struct {
	Start    *time.Time    `json:"sleepStart,omitempty"`
	End      *time.Time    `json:"sleepEnd,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

type PumpDetails struct {
	Amount   *Quantity     `json:"amount,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

type GrowthDetails struct {
	Weight            *Quantity `json:"weight,omitempty"`
	Length            *Quantity `json:"length,omitempty"`
	HeadCircumference *Quantity `json:"headCircumference,omitempty"`
}

type TemperatureDetails struct {
	Temperature     Quantity `json:"temperature"`
	MeasurementSite string   `json:"measurementSite,omitempty"`
}

type MedicineDetails struct {
	Name     string            `json:"name,omitempty"`
	Dose     float64           `json:"dose,omitempty"`
	DoseUnit string            `json:"doseUnit,omitempty"`
	Schedule *MedicineSchedule `json:"schedule,omitempty"`
}

type MedicineSchedule struct {
	FrequencyKind  FrequencyKind `json:"frequencyKind,omitempty"`
	Hours          float64       `json:"hours,omitempty"`
	Days           int           `json:"days,omitempty"`
	DosesRemaining *int          `json:"dosesRemaining,omitempty"`
	NextDoseTime   *time.Time    `json:"nextDoseTime,omitempty"`
	Scheduled      bool          `json:"scheduled"`
}

type MilestoneDetails struct {
	Name     string `json:"name,omitempty"`
	Category string `json:"category,omitempty"`
}

// SleepStart falls back to end minus duration for sleeps logged without an
// explicit start.
func (event Event) SleepStart() (time.Time, bool) {
	if event.Sleep == nil {
		return time.Time{}, false
	}
	if event.Sleep.Start != nil {
		return *event.Sleep.Start, true
	}
	if event.Sleep.End != nil && event.Sleep.Duration > 0 {
		return event.Sleep.End.Add(-event.Sleep.Duration), true
	}
	return time.Time{}, false
}

func (event Event) SleepEnd() (time.Time, bool) {
	if event.Sleep == nil || event.Sleep.End == nil {
		return time.Time{}, false
	}
	return *event.Sleep.End, true
}

func (event Event) SleepDuration() (time.Duration, bool) {
	if event.Sleep == nil {
		return 0, false
	}
	start, hasStart := event.SleepStart()
	end, hasEnd := event.SleepEnd()
	if hasStart && hasEnd && !end.Before(start) {
		return end.Sub(start), true
	}
	if event.Sleep.Duration > 0 {
		return event.Sleep.Duration, true
	}
	return 0, false
}

func (event Event) FeedType() FeedType {
	if event.Feeding == nil {
		return ""
	}
	return event.Feeding.FeedType
}

func (event Event) DiaperType() DiaperType {
	if event.Diaper == nil {
		return ""
	}
	return event.Diaper.DiaperType
}

// IsScheduledMedicine reports whether the event carries an active dose schedule.
func (event Event) IsScheduledMedicine() bool {
	if event.Category != CategoryMedicine || event.Medicine == nil || event.Medicine.Schedule == nil {
		return false
	}
	schedule := event.Medicine.Schedule
	return schedule.Scheduled && schedule.NextDoseTime != nil
}
