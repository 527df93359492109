package models

import (
	"encoding/json"
	"time"
)

// Persisted events carry instants as epoch milliseconds and durations as
// milliseconds. Reads also accept RFC 3339 instants.

func millisTime(value time.Time) FlexTime {
	if value.IsZero() {
		return FlexTime{}
	}
	return NewFlexTime(value)
}

func millisTimePtr(value *time.Time) *FlexTime {
	if value == nil {
		return nil
	}
	flex := NewFlexTime(*value)
	return &flex
}

func timeFromMillis(flex FlexTime) time.Time {
	if !flex.Set {
		return time.Time{}
	}
	return flex.Time.UTC()
}

func timePtrFromMillis(flex *FlexTime) *time.Time {
	if flex == nil || !flex.Set {
		return nil
	}
	value := flex.Time.UTC()
	return &value
}

func durationMillis(value time.Duration) float64 {
	return float64(value) / float64(time.Millisecond)
}

func durationFromMillis(millis float64) time.Duration {
	return time.Duration(millis * float64(time.Millisecond))
}

func (event Event) MarshalJSON() ([]byte, error) {
	type plain Event
	return json.Marshal(struct {
		plain
		Timestamp FlexTime `json:"timestamp"`
	}{plain: plain(event), Timestamp: millisTime(event.Timestamp)})
}

func (event *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	var decoded struct {
		plain
		Timestamp FlexTime `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*event = Event(decoded.plain)
	event.Timestamp = timeFromMillis(decoded.Timestamp)
	return nil
}

func (details FeedingDetails) MarshalJSON() ([]byte, error) {
	type plain FeedingDetails
	return json.Marshal(struct {
		plain
		Duration float64 `json:"duration,omitempty"`
	}{plain: plain(details), Duration: durationMillis(details.Duration)})
}

func (details *FeedingDetails) UnmarshalJSON(data []byte) error {
	type plain FeedingDetails
	var decoded struct {
		plain
		Duration float64 `json:"duration"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*details = FeedingDetails(decoded.plain)
	details.Duration = durationFromMillis(decoded.Duration)
	return nil
}

func (details PumpDetails) MarshalJSON() ([]byte, error) {
	type plain PumpDetails
	return json.Marshal(struct {
		plain
		Duration float64 `json:"duration,omitempty"`
	}{plain: plain(details), Duration: durationMillis(details.Duration)})
}

func (details *PumpDetails) UnmarshalJSON(data []byte) error {
	type plain PumpDetails
	var decoded struct {
		plain
		Duration float64 `json:"duration"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*details = PumpDetails(decoded.plain)
	details.Duration = durationFromMillis(decoded.Duration)
	return nil
}

func (details SleepDetails) MarshalJSON() ([]byte, error) {
	type plain SleepDetails
	return json.Marshal(struct {
		plain
		Start    *FlexTime `json:"sleepStart,omitempty"`
		End      *FlexTime `json:"sleepEnd,omitempty"`
		Duration float64   `json:"duration,omitempty"`
	}{
		plain:    plain(details),
		Start:    millisTimePtr(details.Start),
		End:      millisTimePtr(details.End),
		Duration: durationMillis(details.Duration),
	})
}

func (details *SleepDetails) UnmarshalJSON(data []byte) error {
	type plain SleepDetails
	var decoded struct {
		plain
		Start    *FlexTime `json:"sleepStart"`
		End      *FlexTime `json:"sleepEnd"`
		Duration float64   `json:"duration"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*details = SleepDetails(decoded.plain)
	details.Start = timePtrFromMillis(decoded.Start)
	details.End = timePtrFromMillis(decoded.End)
	details.Duration = durationFromMillis(decoded.Duration)
	return nil
}

func (schedule MedicineSchedule) MarshalJSON() ([]byte, error) {
	type plain MedicineSchedule
	return json.Marshal(struct {
		plain
		NextDoseTime *FlexTime `json:"nextDoseTime,omitempty"`
	}{plain: plain(schedule), NextDoseTime: millisTimePtr(schedule.NextDoseTime)})
}

func (schedule *MedicineSchedule) UnmarshalJSON(data []byte) error {
	type plain MedicineSchedule
	var decoded struct {
		plain
		NextDoseTime *FlexTime `json:"nextDoseTime"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*schedule = MedicineSchedule(decoded.plain)
	schedule.NextDoseTime = timePtrFromMillis(decoded.NextDoseTime)
	return nil
}

func (ongoing OngoingSleep) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		StartTime FlexTime `json:"startTime"`
	}{StartTime: millisTime(ongoing.StartTime)})
}

func (ongoing *OngoingSleep) UnmarshalJSON(data []byte) error {
	var decoded struct {
		StartTime FlexTime `json:"startTime"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	ongoing.StartTime = timeFromMillis(decoded.StartTime)
	return nil
}
