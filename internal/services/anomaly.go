package services

import (
	"time"

	"github.com/terraincognita07/nestling/internal/models"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityAlert   Severity = "alert"
)

type AnomalyKind string

const (
	AnomalyFeedingInterval  AnomalyKind = "feeding_interval"
	AnomalyFeedingAmount    AnomalyKind = "feeding_amount"
	AnomalyFeedingDuration  AnomalyKind = "feeding_duration"
	AnomalyFeedingFrequency AnomalyKind = "feeding_frequency"
	AnomalySleepDuration    AnomalyKind = "sleep_duration"
	AnomalySleepTotal       AnomalyKind = "sleep_total"
	AnomalyDiaperFrequency  AnomalyKind = "diaper_frequency"
	AnomalyDirtyDiaperGap   AnomalyKind = "dirty_diaper_gap"
)

type Direction string

const (
	DirectionLonger  Direction = "longer"
	DirectionShorter Direction = "shorter"
	DirectionMore    Direction = "more"
	DirectionLess    Direction = "less"
)

type Anomaly struct {
	Kind       AnomalyKind
	Category   models.Category
	Severity   Severity
	Direction  Direction
	Deviation  float64
	MessageKey string
	Params     map[string]string
	Message    string
}

// AnomalyDetector compares the latest observations with their recent
// baselines. Detect never fails; rules without enough data are skipped.
type AnomalyDetector struct {
	events   EventReader
	tuning   Tuning
	renderer MessageRenderer
}

func NewAnomalyDetector(events EventReader, tuning Tuning, renderer MessageRenderer) *AnomalyDetector {
	if renderer == nil {
		renderer = keyRenderer{}
	}
	return &AnomalyDetector{events: events, tuning: tuning, renderer: renderer}
}

func (detector *AnomalyDetector) Detect(now time.Time) []Anomaly {
	cutoff := now.Add(-detector.tuning.PredictionLookback)
	feedings := ascending(detector.events.List(models.CategoryFeeding, Within(cutoff, now)))
	sleeps := ascending(detector.events.List(models.CategorySleep, Within(cutoff, now)))
	diapers := ascending(detector.events.List(models.CategoryDiaper, Within(cutoff, now)))

	anomalies := make([]Anomaly, 0)
	collect := func(anomaly Anomaly, ok bool) {
		if ok {
			anomaly.Message = detector.renderer.Render(anomaly.MessageKey, anomaly.Params)
			anomalies = append(anomalies, anomaly)
		}
	}

	feedingMin := detector.tuning.MinEntries(models.CategoryFeeding)
	if len(feedings) >= feedingMin {
		collect(detector.feedingInterval(feedings))
		collect(detector.feedingAmount(feedings, feedingMin))
		collect(detector.feedingDuration(feedings, feedingMin))
		collect(detector.dayOverDayCount(AnomalyFeedingFrequency, models.CategoryFeeding, feedings, now))
	}

	sleepMin := detector.tuning.MinEntries(models.CategorySleep)
	if len(sleeps) >= sleepMin {
		collect(detector.sleepDuration(sleeps, sleepMin))
		collect(detector.sleepTotal(sleeps, now))
	}

	diaperMin := detector.tuning.MinEntries(models.CategoryDiaper)
	if len(diapers) >= diaperMin {
		collect(detector.dayOverDayCount(AnomalyDiaperFrequency, models.CategoryDiaper, diapers, now))
		collect(detector.dirtyDiaperGap(diapers, diaperMin, now))
	}
	return anomalies
}

func (detector *AnomalyDetector) feedingInterval(feedings []models.Event) (Anomaly, bool) {
	intervals := Intervals(timestampsOf(feedings))
	values := make([]float64, 0, len(intervals))
	for _, interval := range intervals {
		if interval > 0 {
			values = append(values, float64(interval))
		}
	}
	return detector.lastVersusBaseline(AnomalyFeedingInterval, models.CategoryFeeding, values, durationParams)
}

func (detector *AnomalyDetector) feedingAmount(feedings []models.Event, minimum int) (Anomaly, bool) {
	values := make([]float64, 0, len(feedings))
	for _, event := range feedings {
		if event.FeedType() != models.FeedBottle || event.Feeding.Amount == nil {
			continue
		}
		amount := event.Feeding.Amount.Canonical()
		if amount.Unit != models.UnitOunce || amount.Value <= 0 {
			continue
		}
		values = append(values, amount.Value)
	}
	if len(values) < minimum {
		return Anomaly{}, false
	}
	return detector.lastVersusBaseline(AnomalyFeedingAmount, models.CategoryFeeding, values, amountParams)
}

func (detector *AnomalyDetector) feedingDuration(feedings []models.Event, minimum int) (Anomaly, bool) {
	values := make([]float64, 0, len(feedings))
	for _, event := range feedings {
		if event.FeedType() != models.FeedBreast || event.Feeding.Duration <= 0 {
			continue
		}
		values = append(values, float64(event.Feeding.Duration))
	}
	if len(values) < minimum {
		return Anomaly{}, false
	}
	return detector.lastVersusBaseline(AnomalyFeedingDuration, models.CategoryFeeding, values, durationParams)
}

func (detector *AnomalyDetector) sleepDuration(sleeps []models.Event, minimum int) (Anomaly, bool) {
	values := make([]float64, 0, len(sleeps))
	for _, event := range sleeps {
		if duration, ok := event.SleepDuration(); ok && duration > 0 {
			values = append(values, float64(duration))
		}
	}
	if len(values) < minimum {
		return Anomaly{}, false
	}
	return detector.lastVersusBaseline(AnomalySleepDuration, models.CategorySleep, values, durationParams)
}

func (detector *AnomalyDetector) sleepTotal(sleeps []models.Event, now time.Time) (Anomaly, bool) {
	var recent, prior time.Duration
	for _, event := range sleeps {
		duration, ok := event.SleepDuration()
		if !ok {
			continue
		}
		switch dayWindow(event.Timestamp, now) {
		case windowRecent:
			recent += duration
		case windowPrior:
			prior += duration
		}
	}
	deviation, ok := dropFraction(float64(recent), float64(prior))
	if !ok {
		return Anomaly{}, false
	}
	severity, ok := detector.severityFor(deviation)
	if !ok {
		return Anomaly{}, false
	}
	return Anomaly{
		Kind:       AnomalySleepTotal,
		Category:   models.CategorySleep,
		Severity:   severity,
		Direction:  DirectionLess,
		Deviation:  deviation,
		MessageKey: anomalyMessageKey(AnomalySleepTotal, DirectionLess),
		Params: map[string]string{
			"recent":  FormatDuration(recent),
			"prior":   FormatDuration(prior),
			"percent": formatPercent(deviation),
		},
	}, true
}

func (detector *AnomalyDetector) dayOverDayCount(kind AnomalyKind, category models.Category, events []models.Event, now time.Time) (Anomaly, bool) {
	recent, prior := 0, 0
	for _, event := range events {
		switch dayWindow(event.Timestamp, now) {
		case windowRecent:
			recent++
		case windowPrior:
			prior++
		}
	}
	deviation, ok := dropFraction(float64(recent), float64(prior))
	if !ok {
		return Anomaly{}, false
	}
	severity, ok := detector.severityFor(deviation)
	if !ok {
		return Anomaly{}, false
	}
	return Anomaly{
		Kind:       kind,
		Category:   category,
		Severity:   severity,
		Direction:  DirectionLess,
		Deviation:  deviation,
		MessageKey: anomalyMessageKey(kind, DirectionLess),
		Params: map[string]string{
			"recent":  itoa(recent),
			"prior":   itoa(prior),
			"percent": formatPercent(deviation),
		},
	}, true
}

func (detector *AnomalyDetector) dirtyDiaperGap(diapers []models.Event, minimum int, now time.Time) (Anomaly, bool) {
	dirty := make([]time.Time, 0, len(diapers))
	match := DiaperTypeIn(models.DiaperDirty, models.DiaperMixed)
	for _, event := range diapers {
		if match(event) {
			dirty = append(dirty, event.Timestamp)
		}
	}
	if len(dirty) < minimum {
		return Anomaly{}, false
	}
	intervals := Intervals(dirty)
	var sum time.Duration
	count := 0
	for _, interval := range intervals {
		if interval > 0 {
			sum += interval
			count++
		}
	}
	if count == 0 {
		return Anomaly{}, false
	}
	mean := sum / time.Duration(count)
	gap := now.Sub(dirty[len(dirty)-1])
	ratio := float64(gap) / float64(mean)

	severity := SeverityWarning
	switch {
	case ratio > 3:
		severity = SeverityAlert
	case ratio > 2:
	default:
		return Anomaly{}, false
	}
	return Anomaly{
		Kind:       AnomalyDirtyDiaperGap,
		Category:   models.CategoryDiaper,
		Severity:   severity,
		Direction:  DirectionLonger,
		Deviation:  ratio - 1,
		MessageKey: anomalyMessageKey(AnomalyDirtyDiaperGap, DirectionLonger),
		Params: map[string]string{
			"actual": FormatDuration(gap),
			"usual":  FormatDuration(mean),
		},
	}, true
}

type paramsFunc func(last float64, mean float64, deviation float64) map[string]string

// lastVersusBaseline compares the final value with the mean of the values
// before it.
func (detector *AnomalyDetector) lastVersusBaseline(kind AnomalyKind, category models.Category, values []float64, params paramsFunc) (Anomaly, bool) {
	if len(values) < 2 {
		return Anomaly{}, false
	}
	last := values[len(values)-1]
	baseline := values[:len(values)-1]
	var sum float64
	for _, value := range baseline {
		sum += value
	}
	mean := sum / float64(len(baseline))
	if mean <= 0 {
		return Anomaly{}, false
	}

	deviation := (last - mean) / mean
	magnitude := deviation
	if magnitude < 0 {
		magnitude = -magnitude
	}
	severity, ok := detector.severityFor(magnitude)
	if !ok {
		return Anomaly{}, false
	}

	direction := DirectionLonger
	if deviation < 0 {
		direction = DirectionShorter
	}
	if kind == AnomalyFeedingAmount {
		direction = DirectionMore
		if deviation < 0 {
			direction = DirectionLess
		}
	}
	return Anomaly{
		Kind:       kind,
		Category:   category,
		Severity:   severity,
		Direction:  direction,
		Deviation:  magnitude,
		MessageKey: anomalyMessageKey(kind, direction),
		Params:     params(last, mean, magnitude),
	}, true
}

func (detector *AnomalyDetector) severityFor(deviation float64) (Severity, bool) {
	switch {
	case deviation >= detector.tuning.AlertThreshold:
		return SeverityAlert, true
	case deviation >= detector.tuning.AnomalyThreshold:
		return SeverityWarning, true
	default:
		return "", false
	}
}

func durationParams(last float64, mean float64, deviation float64) map[string]string {
	return map[string]string{
		"actual":  FormatDuration(time.Duration(last)),
		"usual":   FormatDuration(time.Duration(mean)),
		"percent": formatPercent(deviation),
	}
}

func amountParams(last float64, mean float64, deviation float64) map[string]string {
	return map[string]string{
		"actual":  formatAmount(last, string(models.UnitOunce)),
		"usual":   formatAmount(mean, string(models.UnitOunce)),
		"percent": formatPercent(deviation),
	}
}

func anomalyMessageKey(kind AnomalyKind, direction Direction) string {
	return "anomaly." + string(kind) + "." + string(direction)
}

type window int

const (
	windowNone window = iota
	windowRecent
	windowPrior
)

func dayWindow(timestamp time.Time, now time.Time) window {
	age := now.Sub(timestamp)
	switch {
	case age < 0:
		return windowNone
	case age < 24*time.Hour:
		return windowRecent
	case age < 48*time.Hour:
		return windowPrior
	default:
		return windowNone
	}
}

// dropFraction reports how far recent fell below prior, as a fraction of prior.
func dropFraction(recent float64, prior float64) (float64, bool) {
	if prior <= 0 || recent >= prior {
		return 0, false
	}
	return (prior - recent) / prior, true
}
