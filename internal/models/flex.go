package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FlexFloat accepts a JSON number or a numeric string. A null or empty value
// leaves Set false.
type FlexFloat struct {
	Value float64
	Set   bool
}

func NewFlexFloat(value float64) FlexFloat {
	return FlexFloat{Value: value, Set: true}
}

func (flex *FlexFloat) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*flex = FlexFloat{}
		return nil
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			*flex = FlexFloat{}
			return nil
		}
		value, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", text)
		}
		*flex = FlexFloat{Value: value, Set: true}
		return nil
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return err
	}
	*flex = FlexFloat{Value: value, Set: true}
	return nil
}

func (flex FlexFloat) MarshalJSON() ([]byte, error) {
	if !flex.Set {
		return []byte("null"), nil
	}
	return json.Marshal(flex.Value)
}

// FlexTime accepts milliseconds since epoch (number or numeric string) or an
// RFC 3339 string.
type FlexTime struct {
	Time time.Time
	Set  bool
}

func NewFlexTime(value time.Time) FlexTime {
	return FlexTime{Time: value, Set: true}
}

func (flex *FlexTime) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*flex = FlexTime{}
		return nil
	}
	if raw[0] != '"' {
		var millis float64
		if err := json.Unmarshal(raw, &millis); err != nil {
			return err
		}
		*flex = FlexTime{Time: time.UnixMilli(int64(millis)), Set: true}
		return nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		*flex = FlexTime{}
		return nil
	}
	if millis, err := strconv.ParseInt(text, 10, 64); err == nil {
		*flex = FlexTime{Time: time.UnixMilli(millis), Set: true}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, text)
	if err != nil {
		return fmt.Errorf("not a timestamp: %q", text)
	}
	*flex = FlexTime{Time: parsed, Set: true}
	return nil
}

func (flex FlexTime) MarshalJSON() ([]byte, error) {
	if !flex.Set {
		return []byte("null"), nil
	}
	return json.Marshal(flex.Time.UnixMilli())
}
