package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelbox/internal/batch"
	"pixelbox/internal/database"
	"pixelbox/internal/startup"
)

type fakeRunner struct {
	mu       sync.Mutex
	busy     bool
	startErr error
	started  []batch.Trigger
	report   *batch.Report
	status   batch.Status
}

func (f *fakeRunner) Start(_ context.Context, trigger batch.Trigger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	if f.busy {
		return batch.ErrRunInProgress
	}
	f.started = append(f.started, trigger)
	return nil
}

func (f *fakeRunner) LastReport() *batch.Report { return f.report }
func (f *fakeRunner) Status() batch.Status      { return f.status }

type fakeHistory struct {
	runs      []database.Run
	err       error
	lastLimit int
}

func (f *fakeHistory) RecentRuns(_ context.Context, limit int) ([]database.Run, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.runs, nil
}

func serve(t *testing.T, h *Handlers, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, http.NoBody)
	w := httptest.NewRecorder()
	h.Router().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), "body: %s", w.Body.String())
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		status     batch.Status
		wantStatus string
	}{
		{name: "before first run", status: batch.Status{Running: true}, wantStatus: statusStarting},
		{name: "clean run", status: batch.Status{LastRun: time.Now(), LastRunID: "r1"}, wantStatus: statusHealthy},
		{name: "run with failures", status: batch.Status{LastRun: time.Now(), LastRunID: "r2", LastFailed: 2}, wantStatus: statusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(context.Background(), &fakeRunner{status: tt.status}, nil)
			w := serve(t, h, http.MethodGet, "/healthz")

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var resp HealthResponse
			decodeBody(t, w, &resp)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.status.Running, resp.Running)
			assert.Equal(t, tt.status.LastRunID, resp.LastRunID)
			assert.Equal(t, tt.status.LastFailed, resp.LastFailed)
			assert.Equal(t, startup.Version, resp.Version)
			assert.NotEmpty(t, resp.GoVersion)
			assert.Equal(t, tt.status.LastRun.IsZero(), resp.LastRun == "")
		})
	}
}

func TestLivenessCheck(t *testing.T) {
	h := New(context.Background(), &fakeRunner{}, nil)

	w := serve(t, h, http.MethodGet, "/livez")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"alive"`)

	w = serve(t, h, http.MethodHead, "/livez")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestGetVersion(t *testing.T) {
	h := New(context.Background(), &fakeRunner{}, nil)
	w := serve(t, h, http.MethodGet, "/version")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))

	var info VersionResponse
	decodeBody(t, w, &info)
	assert.Equal(t, startup.GetBuildInfo(), info.BuildInfo)
	assert.False(t, info.StartedAt.IsZero())
}

func TestMetricsEndpoint(t *testing.T) {
	h := New(context.Background(), &fakeRunner{}, nil)
	w := serve(t, h, http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pixelbox_")
}

func TestGetReport(t *testing.T) {
	runner := &fakeRunner{}
	h := New(context.Background(), runner, nil)

	w := serve(t, h, http.MethodGet, "/api/report")
	assert.Equal(t, http.StatusNotFound, w.Code)

	runner.report = &batch.Report{
		RunID:     "run-1",
		Trigger:   batch.TriggerWatch,
		Processed: 1,
		Failed:    1,
		Files: []batch.FileResult{
			{Name: "a.png", Status: database.StatusProcessed},
			{Name: "b.jpg", Status: database.StatusFailed, Phase: batch.PhaseDecode, Error: "decode: bad data"},
		},
	}

	w = serve(t, h, http.MethodGet, "/api/report")
	require.Equal(t, http.StatusOK, w.Code)

	var got batch.Report
	decodeBody(t, w, &got)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, batch.TriggerWatch, got.Trigger)
	require.Len(t, got.Files, 2)
	assert.Equal(t, "b.jpg", got.Files[1].Name)
	assert.Equal(t, batch.PhaseDecode, got.Files[1].Phase)
}

func TestTriggerRun(t *testing.T) {
	runner := &fakeRunner{}
	h := New(context.Background(), runner, nil)

	w := serve(t, h, http.MethodPost, "/api/run")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []batch.Trigger{batch.TriggerAPI}, runner.started)

	runner.busy = true
	w = serve(t, h, http.MethodPost, "/api/run")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already in progress")

	runner.busy = false
	runner.startErr = errors.New("boom")
	w = serve(t, h, http.MethodPost, "/api/run")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = serve(t, h, http.MethodGet, "/api/run")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestListRuns(t *testing.T) {
	history := &fakeHistory{runs: []database.Run{{ID: "b"}, {ID: "a"}}}
	h := New(context.Background(), &fakeRunner{}, history)

	w := serve(t, h, http.MethodGet, "/api/runs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, defaultRunsLimit, history.lastLimit)

	var body struct {
		Runs []database.Run `json:"runs"`
	}
	decodeBody(t, w, &body)
	require.Len(t, body.Runs, 2)
	assert.Equal(t, "b", body.Runs[0].ID)

	serve(t, h, http.MethodGet, "/api/runs?limit=100000")
	assert.Equal(t, maxRunsLimit, history.lastLimit)

	for _, bad := range []string{"0", "-3", "ten"} {
		w = serve(t, h, http.MethodGet, "/api/runs?limit="+bad)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}

	history.err = errors.New("locked")
	w = serve(t, h, http.MethodGet, "/api/runs")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestListRunsWithoutLedger(t *testing.T) {
	h := New(context.Background(), &fakeRunner{}, nil)
	w := serve(t, h, http.MethodGet, "/api/runs")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "disabled"))
}

func TestWriteJSONEncodingFailure(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, http.StatusOK, map[string]interface{}{"bad": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal error")
}
