package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedFeedings(t *testing.T, harness *apiHarness, hours ...int) {
	t.Helper()
	for _, hour := range hours {
		harness.expectJSON(http.MethodPost, "/api/events", feedingBody(apiAt(hour, 0)), http.StatusCreated, nil)
	}
}

func TestGetPredictionFromRegularFeedings(t *testing.T) {
	harness := newAPIHarness(t, apiAt(20, 30))
	seedFeedings(t, harness, 8, 11, 14, 17, 20)

	var prediction predictionView
	harness.expectJSON(http.MethodGet, "/api/predictions/feed", "", http.StatusOK, &prediction)

	assert.Equal(t, "feed", prediction.Key)
	require.NotNil(t, prediction.At)
	assert.Equal(t, apiAt(23, 0).UnixMilli(), *prediction.At)
	require.NotNil(t, prediction.Average)
	assert.Equal(t, int64(10800000), *prediction.Average)
	require.NotNil(t, prediction.LastEventTime)
	assert.Equal(t, apiAt(20, 0).UnixMilli(), *prediction.LastEventTime)
	require.NotNil(t, prediction.Confidence)
	assert.Equal(t, "high", *prediction.Confidence)
	require.NotNil(t, prediction.Basis)
	assert.Equal(t, "pattern", *prediction.Basis)
}

func TestGetPredictionWithoutHistoryIsNull(t *testing.T) {
	harness := newAPIHarness(t, apiAt(20, 30))

	status, payload := harness.do(http.MethodGet, "/api/predictions/diaperWet", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"key":"diaperWet","at":null,"average":null,"lastEventTime":null,"confidence":null,"basis":null,"alternatives":[]}`, string(payload))

	status, payload = harness.do(http.MethodGet, "/api/predictions/bath", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "unknown prediction key", readAPIError(t, payload))
}

func TestListPredictionsCoversEveryKey(t *testing.T) {
	harness := newAPIHarness(t, apiAt(20, 30))

	var response struct {
		Predictions []predictionView `json:"predictions"`
	}
	harness.expectJSON(http.MethodGet, "/api/predictions", "", http.StatusOK, &response)

	keys := make([]string, 0, len(response.Predictions))
	for _, prediction := range response.Predictions {
		keys = append(keys, prediction.Key)
	}
	assert.ElementsMatch(t, []string{"feed", "diaperWet", "diaperDirty", "sleepStart", "sleepWake", "pump"}, keys)
}

func TestDashboardSummarizesToday(t *testing.T) {
	harness := newAPIHarness(t, apiAt(20, 30))
	seedFeedings(t, harness, 8, 11, 14, 17, 20)

	var dashboard dashboardView
	harness.expectJSON(http.MethodGet, "/api/dashboard", "", http.StatusOK, &dashboard)

	require.NotNil(t, dashboard.GeneratedAt)
	assert.Equal(t, apiAt(20, 30).UnixMilli(), *dashboard.GeneratedAt)
	assert.Equal(t, 5, dashboard.TodayCounts["feeding"])
	require.Contains(t, dashboard.LastEvents, "feeding")
	assert.Equal(t, "bottle", dashboard.LastEvents["feeding"].FeedType)
	assert.Nil(t, dashboard.OngoingSleep)
	assert.Nil(t, dashboard.NextMedicine)
	assert.False(t, dashboard.AlarmsPaused)
	assert.Len(t, dashboard.Predictions, 6)
}

func TestAnomaliesEmptyWithoutBaseline(t *testing.T) {
	harness := newAPIHarness(t, apiAt(20, 30))
	seedFeedings(t, harness, 8, 11)

	status, payload := harness.do(http.MethodGet, "/api/anomalies", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"anomalies":[]}`, string(payload))
}
