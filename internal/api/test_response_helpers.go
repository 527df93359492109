package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"github.com/terraincognita07/nestling/internal/db"
	"github.com/terraincognita07/nestling/internal/i18n"
	"github.com/terraincognita07/nestling/internal/notify"
	"github.com/terraincognita07/nestling/internal/services"
)

var apiBaseDay = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func apiAt(hour int, minute int) time.Time {
	return apiBaseDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// flakyBlobs fails writes on demand in front of the real SQLite store.
type flakyBlobs struct {
	services.BlobStore

	mu       sync.Mutex
	failPuts bool
}

func (blobs *flakyBlobs) setFailing(failing bool) {
	blobs.mu.Lock()
	defer blobs.mu.Unlock()
	blobs.failPuts = failing
}

func (blobs *flakyBlobs) Put(key string, value string) error {
	blobs.mu.Lock()
	failing := blobs.failPuts
	blobs.mu.Unlock()
	if failing {
		return errors.New("disk full")
	}
	return blobs.BlobStore.Put(key, value)
}

type apiHarness struct {
	t       *testing.T
	clock   *services.ManualClock
	blobs   *flakyBlobs
	feed    *notify.Feed
	tracker *services.Tracker
	app     *fiber.App
}

func newAPIHarness(t *testing.T, start time.Time) *apiHarness {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "api.db"), nil)
	require.NoError(t, err)
	sqlDB, err := database.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	manager, err := i18n.Default(i18n.LangEN)
	require.NoError(t, err)

	harness := &apiHarness{
		t:     t,
		clock: services.NewManualClock(start),
		blobs: &flakyBlobs{BlobStore: db.NewKVRepository(database)},
		feed:  notify.NewFeed(notify.DefaultFeedCapacity),
	}
	harness.tracker = services.NewTracker(harness.blobs, services.TrackerOptions{
		Clock:    harness.clock,
		Location: time.UTC,
		Sink:     harness.feed,
		Renderer: manager.Localizer(i18n.LangEN),
	})
	require.NoError(t, harness.tracker.Load())
	t.Cleanup(harness.tracker.Close)

	harness.app = NewApp(NewHandler(harness.tracker, harness.feed, manager, nil), AppOptions{})
	return harness
}

func (harness *apiHarness) do(method string, path string, body string, headers ...string) (int, []byte) {
	harness.t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	request := httptest.NewRequest(method, path, reader)
	if body != "" {
		request.Header.Set("Content-Type", "application/json")
	}
	for index := 0; index+1 < len(headers); index += 2 {
		request.Header.Set(headers[index], headers[index+1])
	}

	response, err := harness.app.Test(request, -1)
	if err != nil {
		harness.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		harness.t.Fatalf("%s %s read body failed: %v", method, path, err)
	}
	return response.StatusCode, payload
}

func (harness *apiHarness) expectJSON(method string, path string, body string, expectedStatus int, target interface{}) {
	harness.t.Helper()

	status, payload := harness.do(method, path, body)
	if status != expectedStatus {
		harness.t.Fatalf("%s %s expected status %d, got %d: %s", method, path, expectedStatus, status, payload)
	}
	if target == nil {
		return
	}
	if err := json.Unmarshal(payload, target); err != nil {
		harness.t.Fatalf("%s %s decode body: %v (%s)", method, path, err, payload)
	}
}

func readAPIError(t *testing.T, payload []byte) string {
	t.Helper()

	decoded := map[string]string{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return decoded["error"]
}

func feedingBody(timestamp time.Time) string {
	raw, _ := json.Marshal(map[string]interface{}{
		"category":   "feeding",
		"timestamp":  timestamp.UnixMilli(),
		"feedType":   "bottle",
		"amount":     "4",
		"amountUnit": "oz",
	})
	return string(raw)
}

