package models

import "time"

const (
	KeyEvents        = "events"
	KeyDataVersion   = "dataVersion"
	KeyOngoingSleep  = "ongoingSleep"
	KeyPumpSchedule  = "pumpSchedule"
	KeyAlarmsPaused  = "alarmsPaused"
	KeyAlarmSnoozes  = "alarmSnoozes"
	CorruptKeySuffix = ".corrupt"
)

// PumpSchedule is the user-configured pumping cadence. A zero IntervalHours
// disables pump scheduling; StartTime is an optional HH:MM anchor.
type PumpSchedule struct {
	IntervalHours float64 `json:"intervalHours" validate:"gte=0,lte=48"`
	StartTime     string  `json:"startTime,omitempty" validate:"omitempty,datetime=15:04"`
}

func (schedule PumpSchedule) Enabled() bool {
	return schedule.IntervalHours > 0
}

type OngoingSleep struct {
	StartTime time.Time `json:"startTime"`
}

// KVEntry is one persisted blob of the local key/value store.
type KVEntry struct {
	Key       string    `gorm:"primaryKey"`
	Value     string    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}
