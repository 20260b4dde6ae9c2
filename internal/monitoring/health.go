package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/23skdu/longbow-matbench/internal/bench"
	"github.com/23skdu/longbow-matbench/internal/logger"
)

const (
	StateRunning = "running"
	StateDone    = "done"
	StateFailed  = "failed"
)

// Status is the body of /status.
type Status struct {
	State     string        `json:"state"`
	Timestamp time.Time     `json:"timestamp"`
	Uptime    time.Duration `json:"uptime"`
	Completed int           `json:"completed"`
	Total     int           `json:"total"`
	Last      *LastResult   `json:"last,omitempty"`
	Error     string        `json:"error,omitempty"`
	System    SystemInfo    `json:"system"`
}

// LastResult is the most recent finished (backend, size) pair.
type LastResult struct {
	Backend string  `json:"backend"`
	Shape   string  `json:"shape"`
	MinS    float64 `json:"min_s"`
	MeanS   float64 `json:"mean_s"`
	StdDevS float64 `json:"stddev_s"`
}

type SystemInfo struct {
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	NumCPU    int    `json:"num_cpu"`
	HeapMB    int    `json:"heap_mb"`
}

// Monitor serves /metrics, /healthz and /status while a suite runs. It is
// safe for concurrent use: the suite writes, HTTP handlers read.
type Monitor struct {
	startTime time.Time
	total     int
	server    *http.Server

	mu        sync.RWMutex
	completed int
	last      *LastResult
	state     string
	err       error
}

// NewMonitor expects total results before the run counts as done.
func NewMonitor(total int) *Monitor {
	return &Monitor{startTime: time.Now(), total: total, state: StateRunning}
}

func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", m.handleHealth)
	mux.HandleFunc("/status", m.handleStatus)
	return mux
}

// Start blocks serving on addr until Stop is called.
func (m *Monitor) Start(addr string) error {
	m.mu.Lock()
	m.server = &http.Server{
		Addr:         addr,
		Handler:      m.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	srv := m.server
	m.mu.Unlock()

	logger.Log.Info("monitor serving", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.RLock()
	srv := m.server
	m.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// RecordResult has the signature of bench.Suite.OnResult.
func (m *Monitor) RecordResult(r bench.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed++
	m.last = &LastResult{
		Backend: r.Backend,
		Shape:   r.Shape.String(),
		MinS:    r.Min,
		MeanS:   r.Mean,
		StdDevS: r.StdDev,
	}
	if m.completed >= m.total && m.state == StateRunning {
		m.state = StateDone
	}
}

// Finish marks the run as done, or failed when err is non-nil.
func (m *Monitor) Finish(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = StateFailed
		m.err = err
		return
	}
	m.state = StateDone
}

func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Status{
		State:     m.state,
		Timestamp: time.Now(),
		Uptime:    time.Since(m.startTime),
		Completed: m.completed,
		Total:     m.total,
		System:    systemInfo(),
	}
	if m.last != nil {
		last := *m.last
		s.Last = &last
	}
	if m.err != nil {
		s.Error = m.err.Error()
	}
	return s
}

func (m *Monitor) handleHealth(w http.ResponseWriter, r *http.Request) {
	s := m.Status()
	w.Header().Set("Content-Type", "application/json")
	if s.State == StateFailed {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(map[string]string{
		"state":     s.State,
		"timestamp": s.Timestamp.Format(time.RFC3339),
	})
}

func (m *Monitor) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(m.Status())
}

func systemInfo() SystemInfo {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return SystemInfo{
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		NumCPU:    runtime.NumCPU(),
		HeapMB:    int(ms.HeapAlloc / 1024 / 1024),
	}
}
