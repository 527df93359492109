package services

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MessageRenderer turns a message key and its parameters into user-facing text.
type MessageRenderer interface {
	Render(key string, params map[string]string) string
}

type keyRenderer struct{}

func (keyRenderer) Render(key string, params map[string]string) string {
	if len(params) == 0 {
		return key
	}
	parts := make([]string, 0, len(params))
	for name, value := range params {
		parts = append(parts, name+"="+value)
	}
	sort.Strings(parts)
	return key + " " + strings.Join(parts, " ")
}

// FormatDuration renders whole minutes as "2h 05m" or "45m".
func FormatDuration(value time.Duration) string {
	minutes := int64(math.Round(value.Minutes()))
	if minutes < 0 {
		minutes = -minutes
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}

func formatPercent(fraction float64) string {
	return strconv.Itoa(int(math.Round(fraction * 100)))
}

func formatAmount(value float64, unit string) string {
	return strconv.FormatFloat(value, 'f', 1, 64) + " " + unit
}

func formatClock(value time.Time, location *time.Location) string {
	return value.In(location).Format("15:04")
}

func itoa(value int) string {
	return strconv.Itoa(value)
}
