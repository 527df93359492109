package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/terraincognita07/nestling/internal/models"
)

const MaxEventNotesLength = 2000

// EventInput is the flat record a UI form submits. Numeric fields accept
// numbers or numeric strings; timestamps accept epoch milliseconds or RFC 3339.
type EventInput struct {
	Category  string          `json:"category" validate:"required,oneof=feeding diaper sleep pump growth temperature medicine milestone"`
	Timestamp models.FlexTime `json:"timestamp"`
	Notes     string          `json:"notes" validate:"max=2000"`

	FeedType   string           `json:"feedType" validate:"omitempty,oneof=bottle breast solid"`
	Amount     models.FlexFloat `json:"amount" validate:"omitempty,gte=0"`
	AmountUnit string           `json:"amountUnit" validate:"omitempty,oneof=oz ml"`
	DurationMs models.FlexFloat `json:"duration" validate:"omitempty,gte=0"`
	Side       string           `json:"side" validate:"omitempty,oneof=L R Both"`

	DiaperType string `json:"diaperType" validate:"omitempty,oneof=wet dirty mixed dry"`

	SleepStart models.FlexTime `json:"sleepStart"`
	SleepEnd   models.FlexTime `json:"sleepEnd"`

	Weight                models.FlexFloat `json:"weight" validate:"omitempty,gt=0"`
	WeightUnit            string           `json:"weightUnit" validate:"omitempty,oneof=lb kg"`
	Length                models.FlexFloat `json:"length" validate:"omitempty,gt=0"`
	LengthUnit            string           `json:"lengthUnit" validate:"omitempty,oneof=in cm"`
	HeadCircumference     models.FlexFloat `json:"headCircumference" validate:"omitempty,gt=0"`
	HeadCircumferenceUnit string           `json:"headCircumferenceUnit" validate:"omitempty,oneof=in cm"`

	Temperature     models.FlexFloat `json:"temperature"`
	TemperatureUnit string           `json:"temperatureUnit" validate:"omitempty,oneof=F C"`
	MeasurementSite string           `json:"measurementSite" validate:"max=64"`

	Name           string           `json:"name" validate:"max=200"`
	Dose           models.FlexFloat `json:"dose" validate:"omitempty,gte=0"`
	DoseUnit       string           `json:"doseUnit" validate:"max=32"`
	Scheduled      bool             `json:"scheduled"`
	FrequencyKind  string           `json:"frequencyKind" validate:"omitempty,oneof=once hours days"`
	FrequencyHours models.FlexFloat `json:"hours" validate:"omitempty,gt=0"`
	FrequencyDays  models.FlexFloat `json:"days" validate:"omitempty,gt=0"`
	DosesRemaining models.FlexFloat `json:"dosesRemaining" validate:"omitempty,gte=0"`
	NextDoseTime   models.FlexTime  `json:"nextDoseTime"`

	MilestoneCategory string `json:"milestoneCategory" validate:"max=64"`
}

var (
	inputValidatorOnce sync.Once
	inputValidator     *validator.Validate
)

func eventValidator() *validator.Validate {
	inputValidatorOnce.Do(func() {
		inputValidator = validator.New()
		inputValidator.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		inputValidator.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if flex, ok := field.Interface().(models.FlexFloat); ok && flex.Set {
				return flex.Value
			}
			return nil
		}, models.FlexFloat{})
		inputValidator.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if flex, ok := field.Interface().(models.FlexTime); ok && flex.Set {
				return flex.Time
			}
			return nil
		}, models.FlexTime{})
	})
	return inputValidator
}

func validationError(err error) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, validationProblems(err))
}

func validationProblems(err error) string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err.Error()
	}
	problems := make([]string, 0, len(fieldErrors))
	for _, fieldError := range fieldErrors {
		problems = append(problems, fmt.Sprintf("%s failed %s", fieldError.Field(), fieldError.Tag()))
	}
	return strings.Join(problems, "; ")
}

func missingField(name string) error {
	return fmt.Errorf("%w: %s is required", ErrInvalidInput, name)
}

// BuildEvent validates a submission and turns it into a category-tagged event.
// The returned event carries no id.
func BuildEvent(input EventInput) (models.Event, error) {
	if err := eventValidator().Struct(input); err != nil {
		return models.Event{}, validationError(err)
	}

	event := models.Event{
		Category: models.Category(input.Category),
		Notes:    strings.TrimSpace(input.Notes),
	}
	if input.Timestamp.Set {
		event.Timestamp = input.Timestamp.Time
	}

	var err error
	switch event.Category {
	case models.CategoryFeeding:
		event.Feeding, err = buildFeeding(input)
	case models.CategoryDiaper:
		event.Diaper, err = buildDiaper(input)
	case models.CategorySleep:
		event.Sleep, err = buildSleep(input, &event)
	case models.CategoryPump:
		event.Pump, err = buildPump(input)
	case models.CategoryGrowth:
		event.Growth, err = buildGrowth(input)
	case models.CategoryTemperature:
		event.Temperature, err = buildTemperature(input)
	case models.CategoryMedicine:
		event.Medicine, err = buildMedicine(input)
	case models.CategoryMilestone:
		event.Milestone = &models.MilestoneDetails{
			Name:     strings.TrimSpace(input.Name),
			Category: strings.TrimSpace(input.MilestoneCategory),
		}
	}
	if err != nil {
		return models.Event{}, err
	}
	if event.Timestamp.IsZero() {
		return models.Event{}, missingField("timestamp")
	}
	return event, nil
}

func buildQuantity(field string, value models.FlexFloat, unit string) (*models.Quantity, error) {
	if !value.Set {
		return nil, nil
	}
	if unit == "" {
		return nil, missingField(field + "Unit")
	}
	return &models.Quantity{Value: value.Value, Unit: models.Unit(unit)}, nil
}

func buildFeeding(input EventInput) (*models.FeedingDetails, error) {
	amount, err := buildQuantity("amount", input.Amount, input.AmountUnit)
	if err != nil {
		return nil, err
	}
	return &models.FeedingDetails{
		FeedType: models.FeedType(input.FeedType),
		Amount:   amount,
		Duration: millisDuration(input.DurationMs),
		Side:     models.BreastSide(input.Side),
	}, nil
}

func buildDiaper(input EventInput) (*models.DiaperDetails, error) {
	if input.DiaperType == "" {
		return nil, missingField("diaperType")
	}
	return &models.DiaperDetails{DiaperType: models.DiaperType(input.DiaperType)}, nil
}

func buildSleep(input EventInput, event *models.Event) (*models.SleepDetails, error) {
	details := &models.SleepDetails{Duration: millisDuration(input.DurationMs)}
	if input.SleepStart.Set {
		start := input.SleepStart.Time
		details.Start = &start
	}
	if input.SleepEnd.Set {
		end := input.SleepEnd.Time
		details.End = &end
	}

	switch {
	case details.Start != nil && details.End != nil:
		if details.End.Before(*details.Start) {
			return nil, ErrInvalidSleepRange
		}
		details.Duration = details.End.Sub(*details.Start)
		event.Timestamp = *details.End
	case details.End != nil:
		event.Timestamp = *details.End
	case details.Start != nil:
		event.Timestamp = *details.Start
	}
	return details, nil
}

func buildPump(input EventInput) (*models.PumpDetails, error) {
	amount, err := buildQuantity("amount", input.Amount, input.AmountUnit)
	if err != nil {
		return nil, err
	}
	return &models.PumpDetails{Amount: amount, Duration: millisDuration(input.DurationMs)}, nil
}

func buildGrowth(input EventInput) (*models.GrowthDetails, error) {
	weight, err := buildQuantity("weight", input.Weight, input.WeightUnit)
	if err != nil {
		return nil, err
	}
	length, err := buildQuantity("length", input.Length, input.LengthUnit)
	if err != nil {
		return nil, err
	}
	head, err := buildQuantity("headCircumference", input.HeadCircumference, input.HeadCircumferenceUnit)
	if err != nil {
		return nil, err
	}
	return &models.GrowthDetails{Weight: weight, Length: length, HeadCircumference: head}, nil
}

func buildTemperature(input EventInput) (*models.TemperatureDetails, error) {
	if !input.Temperature.Set {
		return nil, missingField("temperature")
	}
	if input.TemperatureUnit == "" {
		return nil, missingField("temperatureUnit")
	}
	return &models.TemperatureDetails{
		Temperature:     models.Quantity{Value: input.Temperature.Value, Unit: models.Unit(input.TemperatureUnit)},
		MeasurementSite: strings.TrimSpace(input.MeasurementSite),
	}, nil
}

func buildMedicine(input EventInput) (*models.MedicineDetails, error) {
	details := &models.MedicineDetails{
		Name:     strings.TrimSpace(input.Name),
		DoseUnit: strings.TrimSpace(input.DoseUnit),
	}
	if input.Dose.Set {
		details.Dose = input.Dose.Value
	}

	if !input.Scheduled && input.FrequencyKind == "" && !input.NextDoseTime.Set {
		return details, nil
	}

	schedule := &models.MedicineSchedule{
		FrequencyKind: models.FrequencyKind(input.FrequencyKind),
		Scheduled:     input.Scheduled,
	}
	if input.FrequencyHours.Set {
		schedule.Hours = input.FrequencyHours.Value
	}
	if input.FrequencyDays.Set {
		schedule.Days = int(input.FrequencyDays.Value)
	}
	if input.DosesRemaining.Set {
		remaining := int(input.DosesRemaining.Value)
		schedule.DosesRemaining = &remaining
	}
	if input.NextDoseTime.Set {
		next := input.NextDoseTime.Time
		schedule.NextDoseTime = &next
	}
	if err := ValidateMedicineSchedule(schedule); err != nil {
		return nil, err
	}
	details.Schedule = schedule
	return details, nil
}

// ValidateMedicineSchedule enforces that a scheduled dose time is backed by a
// complete frequency.
func ValidateMedicineSchedule(schedule *models.MedicineSchedule) error {
	if schedule == nil || !schedule.Scheduled || schedule.NextDoseTime == nil {
		return nil
	}
	switch schedule.FrequencyKind {
	case models.FrequencyOnce:
		return nil
	case models.FrequencyHours:
		if schedule.Hours > 0 {
			return nil
		}
		return missingField("hours")
	case models.FrequencyDays:
		if schedule.Days > 0 {
			return nil
		}
		return missingField("days")
	default:
		return missingField("frequencyKind")
	}
}

func millisDuration(value models.FlexFloat) time.Duration {
	if !value.Set {
		return 0
	}
	return time.Duration(value.Value * float64(time.Millisecond))
}

// InputFromEvent is the inverse of BuildEvent: it flattens an event back into
// the form record, so edit screens and the JSON surface share one shape.
func InputFromEvent(event models.Event) EventInput {
	input := EventInput{
		Category:  string(event.Category),
		Timestamp: models.NewFlexTime(event.Timestamp),
		Notes:     event.Notes,
	}

	switch {
	case event.Feeding != nil:
		input.FeedType = string(event.Feeding.FeedType)
		input.Amount, input.AmountUnit = flexQuantity(event.Feeding.Amount)
		input.DurationMs = flexMillis(event.Feeding.Duration)
		input.Side = string(event.Feeding.Side)
	case event.Diaper != nil:
		input.DiaperType = string(event.Diaper.DiaperType)
	case event.Sleep != nil:
		if event.Sleep.Start != nil {
			input.SleepStart = models.NewFlexTime(*event.Sleep.Start)
		}
		if event.Sleep.End != nil {
			input.SleepEnd = models.NewFlexTime(*event.Sleep.End)
		}
		input.DurationMs = flexMillis(event.Sleep.Duration)
	case event.Pump != nil:
		input.Amount, input.AmountUnit = flexQuantity(event.Pump.Amount)
		input.DurationMs = flexMillis(event.Pump.Duration)
	case event.Growth != nil:
		input.Weight, input.WeightUnit = flexQuantity(event.Growth.Weight)
		input.Length, input.LengthUnit = flexQuantity(event.Growth.Length)
		input.HeadCircumference, input.HeadCircumferenceUnit = flexQuantity(event.Growth.HeadCircumference)
	case event.Temperature != nil:
		input.Temperature, input.TemperatureUnit = flexQuantity(&event.Temperature.Temperature)
		input.MeasurementSite = event.Temperature.MeasurementSite
	case event.Medicine != nil:
		input.Name = event.Medicine.Name
		if event.Medicine.Dose != 0 {
			input.Dose = models.NewFlexFloat(event.Medicine.Dose)
		}
		input.DoseUnit = event.Medicine.DoseUnit
		if schedule := event.Medicine.Schedule; schedule != nil {
			input.Scheduled = schedule.Scheduled
			input.FrequencyKind = string(schedule.FrequencyKind)
			if schedule.Hours > 0 {
				input.FrequencyHours = models.NewFlexFloat(schedule.Hours)
			}
			if schedule.Days > 0 {
				input.FrequencyDays = models.NewFlexFloat(float64(schedule.Days))
			}
			if schedule.DosesRemaining != nil {
				input.DosesRemaining = models.NewFlexFloat(float64(*schedule.DosesRemaining))
			}
			if schedule.NextDoseTime != nil {
				input.NextDoseTime = models.NewFlexTime(*schedule.NextDoseTime)
			}
		}
	case event.Milestone != nil:
		input.Name = event.Milestone.Name
		input.MilestoneCategory = event.Milestone.Category
	}
	return input
}

func flexQuantity(quantity *models.Quantity) (models.FlexFloat, string) {
	if quantity == nil {
		return models.FlexFloat{}, ""
	}
	return models.NewFlexFloat(quantity.Value), string(quantity.Unit)
}

func flexMillis(value time.Duration) models.FlexFloat {
	if value <= 0 {
		return models.FlexFloat{}
	}
	return models.NewFlexFloat(float64(value) / float64(time.Millisecond))
}
