package api

import (
	"encoding/json"

	"github.com/terraincognita07/nestling/internal/i18n"
	"github.com/terraincognita07/nestling/internal/models"
	"github.com/terraincognita07/nestling/internal/notify"
	"github.com/terraincognita07/nestling/internal/services"
)

// Every instant and duration leaves the API as integer milliseconds, or null
// when unknown.

type eventView struct {
	ID string `json:"id"`
	services.EventInput
	Percentile *percentileView `json:"percentile,omitempty"`
}

// percentileView is only attached to growth events and encodes null while the
// percentile is unknown.
type percentileView struct {
	value float64
	known bool
}

func (view percentileView) MarshalJSON() ([]byte, error) {
	if !view.known {
		return []byte("null"), nil
	}
	return json.Marshal(view.value)
}

func newEventView(event models.Event) eventView {
	view := eventView{ID: event.ID, EventInput: services.InputFromEvent(event)}
	if event.Growth != nil {
		value, known := services.GrowthPercentile(*event.Growth)
		view.Percentile = &percentileView{value: value, known: known}
	}
	return view
}

func newEventViews(events []models.Event) []eventView {
	views := make([]eventView, 0, len(events))
	for _, event := range events {
		views = append(views, newEventView(event))
	}
	return views
}

type alternativeView struct {
	Strategy   string  `json:"strategy"`
	At         *int64  `json:"at"`
	Average    *int64  `json:"average"`
	Confidence *string `json:"confidence"`
}

type predictionView struct {
	Key           string            `json:"key"`
	At            *int64            `json:"at"`
	Average       *int64            `json:"average"`
	LastEventTime *int64            `json:"lastEventTime"`
	Confidence    *string           `json:"confidence"`
	Basis         *string           `json:"basis"`
	Alternatives  []alternativeView `json:"alternatives"`
}

func newPredictionView(prediction services.Prediction) predictionView {
	view := predictionView{
		Key:           string(prediction.Key),
		At:            millisOrNull(prediction.At),
		Average:       durationMillisOrNull(prediction.Average),
		LastEventTime: millisOrNull(prediction.LastEventTime),
		Confidence:    stringOrNull(string(prediction.Confidence)),
		Basis:         stringOrNull(string(prediction.Basis)),
		Alternatives:  make([]alternativeView, 0, len(prediction.Alternatives)),
	}
	for _, alternative := range prediction.Alternatives {
		view.Alternatives = append(view.Alternatives, alternativeView{
			Strategy:   string(alternative.Strategy),
			At:         millisOrNull(alternative.At),
			Average:    durationMillisOrNull(alternative.Average),
			Confidence: stringOrNull(string(alternative.Confidence)),
		})
	}
	return view
}

func newPredictionViews(predictions []services.Prediction) []predictionView {
	views := make([]predictionView, 0, len(predictions))
	for _, prediction := range predictions {
		views = append(views, newPredictionView(prediction))
	}
	return views
}

type anomalyView struct {
	Kind       string            `json:"kind"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Direction  string            `json:"direction"`
	Deviation  float64           `json:"deviation"`
	MessageKey string            `json:"messageKey"`
	Params     map[string]string `json:"params"`
	Message    string            `json:"message"`
}

func newAnomalyViews(anomalies []services.Anomaly, localizer i18n.Localizer) []anomalyView {
	views := make([]anomalyView, 0, len(anomalies))
	for _, anomaly := range anomalies {
		views = append(views, anomalyView{
			Kind:       string(anomaly.Kind),
			Category:   string(anomaly.Category),
			Severity:   string(anomaly.Severity),
			Direction:  string(anomaly.Direction),
			Deviation:  anomaly.Deviation,
			MessageKey: anomaly.MessageKey,
			Params:     anomaly.Params,
			Message:    localizer.Render(anomaly.MessageKey, anomaly.Params),
		})
	}
	return views
}

type alarmView struct {
	Key          string            `json:"key"`
	State        string            `json:"state"`
	Target       *int64            `json:"target"`
	FireAt       *int64            `json:"fireAt"`
	SnoozedUntil *int64            `json:"snoozedUntil"`
	FiredAt      *int64            `json:"firedAt"`
	MessageKey   string            `json:"messageKey,omitempty"`
	Params       map[string]string `json:"params,omitempty"`
	Message      string            `json:"message,omitempty"`
}

func newAlarmViews(statuses []services.AlarmStatus, localizer i18n.Localizer) []alarmView {
	views := make([]alarmView, 0, len(statuses))
	for _, status := range statuses {
		view := alarmView{
			Key:          status.Key,
			State:        string(status.State),
			Target:       millisOrNull(status.Target),
			FireAt:       millisOrNull(status.FireAt),
			SnoozedUntil: millisOrNull(status.SnoozedUntil),
			FiredAt:      millisOrNull(status.FiredAt),
			MessageKey:   status.MessageKey,
			Params:       status.Params,
		}
		if status.MessageKey != "" {
			view.Message = localizer.Render(status.MessageKey, status.Params)
		}
		views = append(views, view)
	}
	return views
}

type feedEntryView struct {
	Seq        uint64            `json:"seq"`
	Type       string            `json:"type"`
	Key        string            `json:"key"`
	At         *int64            `json:"at"`
	Severity   string            `json:"severity,omitempty"`
	Target     *int64            `json:"target,omitempty"`
	MessageKey string            `json:"messageKey,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
	Message    string            `json:"message,omitempty"`
	Sound      bool              `json:"sound,omitempty"`
}

func newFeedEntryViews(entries []notify.Entry, localizer i18n.Localizer) []feedEntryView {
	views := make([]feedEntryView, 0, len(entries))
	for _, entry := range entries {
		view := feedEntryView{Seq: entry.Seq, Type: string(entry.Kind), At: millisOrNull(entry.At)}
		switch {
		case entry.Fired != nil:
			view.Key = entry.Fired.Key
			view.Severity = string(entry.Fired.Severity)
			view.Target = millisOrNull(entry.Fired.Target)
			view.MessageKey = entry.Fired.MessageKey
			view.Params = entry.Fired.Params
			view.Message = localizer.Render(entry.Fired.MessageKey, entry.Fired.Params)
			view.Sound = entry.Fired.Sound
		case entry.Cleared != nil:
			view.Key = entry.Cleared.Key
		}
		views = append(views, view)
	}
	return views
}

type noticeView struct {
	Kind       string            `json:"kind"`
	MessageKey string            `json:"messageKey"`
	Params     map[string]string `json:"params,omitempty"`
	Message    string            `json:"message"`
	At         *int64            `json:"at"`
}

func newNoticeViews(notices []services.Notice, localizer i18n.Localizer) []noticeView {
	views := make([]noticeView, 0, len(notices))
	for _, notice := range notices {
		views = append(views, noticeView{
			Kind:       string(notice.Kind),
			MessageKey: notice.MessageKey,
			Params:     notice.Params,
			Message:    localizer.Render(notice.MessageKey, notice.Params),
			At:         millisOrNull(notice.At),
		})
	}
	return views
}

type ongoingSleepView struct {
	StartTime *int64 `json:"startTime"`
	Elapsed   *int64 `json:"elapsed"`
}

type pumpScheduleView struct {
	IntervalHours float64 `json:"intervalHours"`
	StartTime     string  `json:"startTime,omitempty"`
	NextPumpTime  *int64  `json:"nextPumpTime"`
}

type dashboardView struct {
	GeneratedAt    *int64               `json:"generatedAt"`
	Predictions    []predictionView     `json:"predictions"`
	Anomalies      []anomalyView        `json:"anomalies"`
	OngoingSleep   *ongoingSleepView    `json:"ongoingSleep"`
	LastEvents     map[string]eventView `json:"lastEvents"`
	TodayCounts    map[string]int       `json:"todayCounts"`
	NextMedicine   *eventView           `json:"nextMedicine"`
	Alarms         []alarmView          `json:"alarms"`
	AlarmsPaused   bool                 `json:"alarmsPaused"`
	BaselinesReady bool                 `json:"baselinesReady"`
}

func newDashboardView(dashboard services.Dashboard, localizer i18n.Localizer) dashboardView {
	view := dashboardView{
		GeneratedAt:    millisOrNull(dashboard.GeneratedAt),
		Predictions:    newPredictionViews(dashboard.Predictions),
		Anomalies:      newAnomalyViews(dashboard.Anomalies, localizer),
		LastEvents:     make(map[string]eventView, len(dashboard.LastEvents)),
		TodayCounts:    make(map[string]int, len(dashboard.TodayCounts)),
		Alarms:         newAlarmViews(dashboard.Alarms, localizer),
		AlarmsPaused:   dashboard.AlarmsPaused,
		BaselinesReady: dashboard.BaselinesReady,
	}
	if dashboard.OngoingSleep != nil {
		view.OngoingSleep = &ongoingSleepView{
			StartTime: millisOrNull(dashboard.OngoingSleep.StartTime),
			Elapsed:   durationMillisOrNull(dashboard.GeneratedAt.Sub(dashboard.OngoingSleep.StartTime)),
		}
	}
	for category, event := range dashboard.LastEvents {
		view.LastEvents[string(category)] = newEventView(event)
	}
	for category, count := range dashboard.TodayCounts {
		view.TodayCounts[string(category)] = count
	}
	if dashboard.NextMedicine != nil {
		next := newEventView(*dashboard.NextMedicine)
		view.NextMedicine = &next
	}
	return view
}
