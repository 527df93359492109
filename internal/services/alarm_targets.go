package services

import (
	"strconv"
	"time"

	"github.com/terraincognita07/nestling/internal/models"
)

var predictionAlarmKeys = []PatternKey{
	PatternFeed,
	PatternDiaperWet,
	PatternDiaperDirty,
	PatternSleepStart,
	PatternSleepWake,
}

// alarmTargetsLocked turns current predictions into alarm targets. Default
// interval fallbacks do not drive alarms.
func (tracker *Tracker) alarmTargetsLocked(now time.Time) []AlarmTarget {
	targets := make([]AlarmTarget, 0, len(predictionAlarmKeys)+2)

	for _, key := range predictionAlarmKeys {
		prediction := tracker.predictor.Predict(key, now, tracker.ongoing)
		if target, ok := tracker.predictionTarget(prediction); ok {
			targets = append(targets, target)
		}
	}

	pump := tracker.predictor.PredictPump(now, tracker.pump)
	if pump.HasTime() {
		targets = append(targets, AlarmTarget{
			Key:        string(PatternPump),
			Target:     pump.At,
			FireAt:     pump.At.Add(-tracker.tuning.PumpLeadTime),
			MessageKey: alarmMessageKey(string(PatternPump)),
			Params:     map[string]string{"time": formatClock(pump.At, tracker.location)},
		})
	}

	for _, medicine := range tracker.store.ScheduledMedicines() {
		targets = append(targets, tracker.medicineTarget(medicine))
	}
	return targets
}

func (tracker *Tracker) predictionTarget(prediction Prediction) (AlarmTarget, bool) {
	if !prediction.HasTime() || prediction.Basis != BasisPattern {
		return AlarmTarget{}, false
	}

	fireAt := prediction.At
	if prediction.HasLastEvent() && prediction.Average > 0 {
		approach := prediction.LastEventTime.Add(time.Duration(tracker.tuning.AlarmApproachFraction * float64(prediction.Average)))
		if approach.Before(fireAt) {
			fireAt = approach
		}
	}
	return AlarmTarget{
		Key:        string(prediction.Key),
		Target:     prediction.At,
		FireAt:     fireAt,
		MessageKey: alarmMessageKey(string(prediction.Key)),
		Params:     map[string]string{"time": formatClock(prediction.At, tracker.location)},
	}, true
}

func (tracker *Tracker) medicineTarget(event models.Event) AlarmTarget {
	next := *event.Medicine.Schedule.NextDoseTime
	params := map[string]string{
		"name": event.Medicine.Name,
		"time": formatClock(next, tracker.location),
		"dose": "",
	}
	if event.Medicine.Dose > 0 {
		params["dose"] = strconv.FormatFloat(event.Medicine.Dose, 'f', -1, 64) + " " + event.Medicine.DoseUnit
	}
	return AlarmTarget{
		Key:        MedicineAlarmKey(event.ID),
		Target:     next,
		FireAt:     next,
		MessageKey: "alarm.medicine",
		Params:     params,
	}
}

func alarmMessageKey(key string) string {
	return "alarm." + key
}
