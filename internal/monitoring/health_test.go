package monitoring

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/23skdu/longbow-matbench/internal/backend"
	"github.com/23skdu/longbow-matbench/internal/bench"
	"github.com/23skdu/longbow-matbench/internal/stats"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestStatusProgress(t *testing.T) {
	m := NewMonitor(2)
	if s := m.Status(); s.State != StateRunning || s.Completed != 0 || s.Last != nil {
		t.Fatalf("initial status = %+v", s)
	}

	m.RecordResult(bench.Result{
		Backend: "naive",
		Shape:   backend.Square(256),
		Summary: stats.Summary{Min: 1, Mean: 2, StdDev: 0.5},
	})
	s := m.Status()
	if s.State != StateRunning || s.Completed != 1 {
		t.Errorf("after one result: %+v", s)
	}
	if s.Last == nil || s.Last.Backend != "naive" || s.Last.Shape != "256x256x256" || s.Last.MeanS != 2 {
		t.Errorf("last = %+v", s.Last)
	}

	m.RecordResult(bench.Result{Backend: "cblas", Shape: backend.Square(256)})
	if s := m.Status(); s.State != StateDone {
		t.Errorf("state after all results = %q, want %q", s.State, StateDone)
	}
}

func TestHealthz(t *testing.T) {
	m := NewMonitor(1)
	h := m.Handler()

	rec := get(t, h, "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("running: code %d", rec.Code)
	}

	m.Finish(errors.New("rknn_matmul_create fail"))
	rec = get(t, h, "/healthz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("failed: code %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["state"] != StateFailed {
		t.Errorf("body = %v", body)
	}
}

func TestStatusEndpoint(t *testing.T) {
	m := NewMonitor(3)
	m.Finish(errors.New("boom"))

	rec := get(t, m.Handler(), "/status")
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var s Status
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if s.State != StateFailed || s.Error != "boom" || s.Total != 3 {
		t.Errorf("status = %+v", s)
	}
	if s.System.NumCPU < 1 || s.System.GoVersion == "" {
		t.Errorf("system = %+v", s.System)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, NewMonitor(1).Handler(), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("code %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("expected default Go collectors in /metrics output")
	}
}

func TestStopWithoutStart(t *testing.T) {
	if err := NewMonitor(1).Stop(t.Context()); err != nil {
		t.Errorf("Stop before Start = %v", err)
	}
}
