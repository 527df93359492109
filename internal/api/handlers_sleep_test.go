package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ongoingSleepResponse struct {
	OngoingSleep *ongoingSleepView `json:"ongoingSleep"`
}

func TestSleepSessionLifecycle(t *testing.T) {
	harness := newAPIHarness(t, apiAt(13, 0))

	var ongoing ongoingSleepResponse
	harness.expectJSON(http.MethodGet, "/api/sleep/ongoing", "", http.StatusOK, &ongoing)
	assert.Nil(t, ongoing.OngoingSleep)

	startBody := fmt.Sprintf(`{"startTime":%d}`, apiAt(12, 15).UnixMilli())
	harness.expectJSON(http.MethodPost, "/api/sleep/start", startBody, http.StatusCreated, &ongoing)
	require.NotNil(t, ongoing.OngoingSleep)
	assert.Equal(t, apiAt(12, 15).UnixMilli(), *ongoing.OngoingSleep.StartTime)
	require.NotNil(t, ongoing.OngoingSleep.Elapsed)
	assert.Equal(t, int64(45*60*1000), *ongoing.OngoingSleep.Elapsed)

	status, payload := harness.do(http.MethodPost, "/api/sleep/start", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid input: a sleep is already in progress", readAPIError(t, payload))

	status, payload = harness.do(http.MethodPost, "/api/sleep/end", fmt.Sprintf(`{"endTime":%d}`, apiAt(12, 0).UnixMilli()))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid input: sleep end before start", readAPIError(t, payload))

	var event map[string]interface{}
	harness.expectJSON(http.MethodPost, "/api/sleep/end", `{"notes":"car seat"}`, http.StatusCreated, &event)
	assert.Equal(t, "sleep", event["category"])
	assert.Equal(t, float64(apiAt(12, 15).UnixMilli()), event["sleepStart"])
	assert.Equal(t, float64(apiAt(13, 0).UnixMilli()), event["sleepEnd"])
	assert.Equal(t, float64(45*60*1000), event["duration"])
	assert.Equal(t, "car seat", event["notes"])

	harness.expectJSON(http.MethodGet, "/api/sleep/ongoing", "", http.StatusOK, &ongoing)
	assert.Nil(t, ongoing.OngoingSleep)
}

func TestCancelSleep(t *testing.T) {
	harness := newAPIHarness(t, apiAt(13, 0))

	status, payload := harness.do(http.MethodPost, "/api/sleep/cancel", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid input: no sleep in progress", readAPIError(t, payload))

	harness.expectJSON(http.MethodPost, "/api/sleep/start", "", http.StatusCreated, nil)
	status, _ = harness.do(http.MethodPost, "/api/sleep/cancel", "")
	assert.Equal(t, http.StatusNoContent, status)

	var events eventsResponse
	harness.expectJSON(http.MethodGet, "/api/events?category=sleep", "", http.StatusOK, &events)
	assert.Empty(t, events.Events)
}

func TestPumpSchedule(t *testing.T) {
	harness := newAPIHarness(t, apiAt(20, 30))

	var schedule pumpScheduleView
	harness.expectJSON(http.MethodGet, "/api/pump-schedule", "", http.StatusOK, &schedule)
	assert.Zero(t, schedule.IntervalHours)
	assert.Nil(t, schedule.NextPumpTime)

	harness.expectJSON(http.MethodPut, "/api/pump-schedule", `{"intervalHours":3,"startTime":"06:00"}`, http.StatusOK, &schedule)
	assert.Equal(t, float64(3), schedule.IntervalHours)
	assert.Equal(t, "06:00", schedule.StartTime)
	require.NotNil(t, schedule.NextPumpTime)
	assert.Equal(t, apiAt(21, 0).UnixMilli(), *schedule.NextPumpTime)

	var fetched pumpScheduleView
	harness.expectJSON(http.MethodGet, "/api/pump-schedule", "", http.StatusOK, &fetched)
	assert.Equal(t, schedule, fetched)

	tests := []struct {
		name string
		body string
	}{
		{name: "interval too long", body: `{"intervalHours":72}`},
		{name: "negative interval", body: `{"intervalHours":-1}`},
		{name: "bad anchor", body: `{"intervalHours":3,"startTime":"6am"}`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			status, _ := harness.do(http.MethodPut, "/api/pump-schedule", test.body)
			assert.Equal(t, http.StatusBadRequest, status)
		})
	}
}
