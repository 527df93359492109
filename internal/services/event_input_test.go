package services

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/terraincognita07/nestling/internal/models"
)

func decodeInput(t *testing.T, raw string) EventInput {
	t.Helper()
	var input EventInput
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		t.Fatalf("decode input: %v", err)
	}
	return input
}

func TestBuildEventCoercesNumericStrings(t *testing.T) {
	input := decodeInput(t, `{"category":"feeding","timestamp":"1772438400000","feedType":"bottle","amount":"4.5","amountUnit":"oz","duration":"900000"}`)

	event, err := BuildEvent(input)
	if err != nil {
		t.Fatalf("expected valid feeding, got %v", err)
	}
	if !event.Timestamp.Equal(time.UnixMilli(1772438400000)) {
		t.Fatalf("unexpected timestamp %s", event.Timestamp)
	}
	if event.Feeding.Amount == nil || event.Feeding.Amount.Value != 4.5 || event.Feeding.Amount.Unit != models.UnitOunce {
		t.Fatalf("unexpected amount %+v", event.Feeding.Amount)
	}
	if event.Feeding.Duration != 15*time.Minute {
		t.Fatalf("expected 15m duration, got %s", event.Feeding.Duration)
	}
}

func TestBuildEventRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{name: "unknown category", raw: `{"category":"bath","timestamp":1772438400000}`},
		{name: "missing timestamp", raw: `{"category":"feeding","feedType":"bottle"}`},
		{name: "diaper without type", raw: `{"category":"diaper","timestamp":1772438400000}`},
		{name: "bad diaper type", raw: `{"category":"diaper","timestamp":1772438400000,"diaperType":"green"}`},
		{name: "temperature without value", raw: `{"category":"temperature","timestamp":1772438400000,"temperatureUnit":"F"}`},
		{name: "temperature without unit", raw: `{"category":"temperature","timestamp":1772438400000,"temperature":"99.5"}`},
		{name: "amount without unit", raw: `{"category":"pump","timestamp":1772438400000,"amount":3}`},
		{name: "negative amount", raw: `{"category":"feeding","timestamp":1772438400000,"amount":-1,"amountUnit":"ml"}`},
		{name: "scheduled medicine without hours", raw: `{"category":"medicine","timestamp":1772438400000,"scheduled":true,"frequencyKind":"hours","nextDoseTime":1772460000000}`},
		{name: "scheduled medicine without frequency", raw: `{"category":"medicine","timestamp":1772438400000,"scheduled":true,"nextDoseTime":1772460000000}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildEvent(decodeInput(t, tc.raw))
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestBuildSleepEvent(t *testing.T) {
	event, err := BuildEvent(decodeInput(t, `{"category":"sleep","sleepStart":"2026-03-02T13:00:00Z","sleepEnd":"2026-03-02T14:30:00Z"}`))
	if err != nil {
		t.Fatalf("expected valid sleep, got %v", err)
	}
	if !event.Timestamp.Equal(at(14, 30)) {
		t.Fatalf("expected timestamp at sleep end, got %s", event.Timestamp)
	}
	if event.Sleep.Duration != 90*time.Minute {
		t.Fatalf("expected 90m duration, got %s", event.Sleep.Duration)
	}

	startOnly, err := BuildEvent(decodeInput(t, `{"category":"sleep","sleepStart":"2026-03-02T13:00:00Z"}`))
	if err != nil || !startOnly.Timestamp.Equal(at(13, 0)) {
		t.Fatalf("expected timestamp at sleep start, got %s %v", startOnly.Timestamp, err)
	}

	_, err = BuildEvent(decodeInput(t, `{"category":"sleep","sleepStart":"2026-03-02T14:00:00Z","sleepEnd":"2026-03-02T13:00:00Z"}`))
	if !errors.Is(err, ErrInvalidSleepRange) {
		t.Fatalf("expected invalid sleep range, got %v", err)
	}
}

func TestBuildScheduledMedicine(t *testing.T) {
	event, err := BuildEvent(decodeInput(t, `{"category":"medicine","timestamp":1772438400000,"name":"Vitamin D","dose":"1","doseUnit":"drop","scheduled":true,"frequencyKind":"days","days":"1","nextDoseTime":1772524800000,"dosesRemaining":"10"}`))
	if err != nil {
		t.Fatalf("expected valid medicine, got %v", err)
	}
	if !event.IsScheduledMedicine() {
		t.Fatal("expected scheduled medicine")
	}
	schedule := event.Medicine.Schedule
	if schedule.Days != 1 || schedule.DosesRemaining == nil || *schedule.DosesRemaining != 10 {
		t.Fatalf("unexpected schedule %+v", schedule)
	}
}

func TestInputFromEventRebuildsTheSameEvent(t *testing.T) {
	start := at(21, 0)
	end := at(23, 30)
	next := at(20, 0)
	remaining := 4
	events := []models.Event{
		{
			Category:  models.CategoryFeeding,
			Timestamp: at(8, 0),
			Notes:     "after bath",
			Feeding: &models.FeedingDetails{
				FeedType: models.FeedBreast,
				Duration: 12 * time.Minute,
				Side:     models.SideLeft,
			},
		},
		{
			Category:  models.CategorySleep,
			Timestamp: end,
			Sleep:     &models.SleepDetails{Start: &start, End: &end, Duration: end.Sub(start)},
		},
		{
			Category:  models.CategoryGrowth,
			Timestamp: at(10, 0),
			Growth: &models.GrowthDetails{
				Weight: &models.Quantity{Value: 4.2, Unit: models.UnitKilogram},
				Length: &models.Quantity{Value: 55, Unit: models.UnitCentimeter},
			},
		},
		{
			Category:  models.CategoryMedicine,
			Timestamp: at(12, 0),
			Medicine: &models.MedicineDetails{
				Name:     "Vitamin D",
				Dose:     1,
				DoseUnit: "drop",
				Schedule: &models.MedicineSchedule{
					FrequencyKind:  models.FrequencyHours,
					Hours:          8,
					DosesRemaining: &remaining,
					NextDoseTime:   &next,
					Scheduled:      true,
				},
			},
		},
	}

	for _, original := range events {
		rebuilt, err := BuildEvent(InputFromEvent(original))
		if err != nil {
			t.Fatalf("rebuild %s: %v", original.Category, err)
		}
		if diff := cmp.Diff(original, rebuilt); diff != "" {
			t.Fatalf("rebuilt %s event differs (-want +got):\n%s", original.Category, diff)
		}
	}
}
