package models

import (
	"errors"
	"fmt"
)

type Unit string

const (
	UnitOunce      Unit = "oz"
	UnitMilliliter Unit = "ml"
	UnitPound      Unit = "lb"
	UnitKilogram   Unit = "kg"
	UnitInch       Unit = "in"
	UnitCentimeter Unit = "cm"
	UnitFahrenheit Unit = "F"
	UnitCelsius    Unit = "C"
)

type Dimension string

const (
	DimensionVolume      Dimension = "volume"
	DimensionWeight      Dimension = "weight"
	DimensionLength      Dimension = "length"
	DimensionTemperature Dimension = "temperature"
)

const (
	millilitersPerOunce = 29.5735295625
	kilogramsPerPound   = 0.45359237
	centimetersPerInch  = 2.54
)

var ErrIncompatibleUnits = errors.New("incompatible units")

type Quantity struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (unit Unit) Dimension() Dimension {
	switch unit {
	case UnitOunce, UnitMilliliter:
		return DimensionVolume
	case UnitPound, UnitKilogram:
		return DimensionWeight
	case UnitInch, UnitCentimeter:
		return DimensionLength
	case UnitFahrenheit, UnitCelsius:
		return DimensionTemperature
	default:
		return ""
	}
}

// Canonical returns the unit all internal arithmetic uses for the unit's dimension.
func (unit Unit) Canonical() Unit {
	switch unit.Dimension() {
	case DimensionVolume:
		return UnitOunce
	case DimensionWeight:
		return UnitPound
	case DimensionLength:
		return UnitInch
	case DimensionTemperature:
		return UnitFahrenheit
	default:
		return ""
	}
}

func (unit Unit) Valid() bool {
	return unit.Dimension() != ""
}

func Convert(value float64, from Unit, to Unit) (float64, error) {
	if from == to && from.Valid() {
		return value, nil
	}
	if from.Dimension() == "" || from.Dimension() != to.Dimension() {
		return 0, fmt.Errorf("%w: %s -> %s", ErrIncompatibleUnits, from, to)
	}

	switch {
	case from == UnitOunce && to == UnitMilliliter:
		return value * millilitersPerOunce, nil
	case from == UnitMilliliter && to == UnitOunce:
		return value / millilitersPerOunce, nil
	case from == UnitPound && to == UnitKilogram:
		return value * kilogramsPerPound, nil
	case from == UnitKilogram && to == UnitPound:
		return value / kilogramsPerPound, nil
	case from == UnitInch && to == UnitCentimeter:
		return value * centimetersPerInch, nil
	case from == UnitCentimeter && to == UnitInch:
		return value / centimetersPerInch, nil
	case from == UnitFahrenheit && to == UnitCelsius:
		return (value - 32) * 5 / 9, nil
	case from == UnitCelsius && to == UnitFahrenheit:
		return value*9/5 + 32, nil
	}
	return 0, fmt.Errorf("%w: %s -> %s", ErrIncompatibleUnits, from, to)
}

func (quantity Quantity) In(unit Unit) (float64, error) {
	return Convert(quantity.Value, quantity.Unit, unit)
}

// Canonical converts the quantity to its dimension's canonical unit. Quantities
// with an unknown unit are returned unchanged.
func (quantity Quantity) Canonical() Quantity {
	canonical := quantity.Unit.Canonical()
	if canonical == "" {
		return quantity
	}
	value, err := quantity.In(canonical)
	if err != nil {
		return quantity
	}
	return Quantity{Value: value, Unit: canonical}
}
