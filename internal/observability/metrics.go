package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters for a scrape run.
type Metrics struct {
	// Task metrics
	TasksDispatched atomic.Int64
	TasksSucceeded  atomic.Int64
	TasksSkipped    atomic.Int64
	TasksFailed     atomic.Int64
	TasksPanicked   atomic.Int64

	// Probe metrics
	ProbesTotal    atomic.Int64
	ProbesNotFound atomic.Int64
	ProbesUnknown  atomic.Int64

	// Browser metrics
	SessionsCreated atomic.Int64
	SessionsFailed  atomic.Int64
	SessionsClosed  atomic.Int64

	// Extraction metrics
	RecordsEmpty   atomic.Int64
	DetailsRetries atomic.Int64
	ProductsStored atomic.Int64

	// Pool metrics
	ActiveWorkers atomic.Int32
	QueueDepth    atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ActiveSessions returns the number of sessions created but not yet closed.
func (m *Metrics) ActiveSessions() int64 {
	return m.SessionsCreated.Load() - m.SessionsClosed.Load()
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		kind  string
		value int64
	}{
		{"isoscrape_tasks_dispatched_total", "Total tasks handed to workers", "counter", m.TasksDispatched.Load()},
		{"isoscrape_tasks_succeeded_total", "Total tasks classified Success", "counter", m.TasksSucceeded.Load()},
		{"isoscrape_tasks_skipped_total", "Total tasks classified Skipped", "counter", m.TasksSkipped.Load()},
		{"isoscrape_tasks_failed_total", "Total tasks classified Failed", "counter", m.TasksFailed.Load()},
		{"isoscrape_tasks_panicked_total", "Total tasks recovered from a panic", "counter", m.TasksPanicked.Load()},
		{"isoscrape_probes_total", "Total status probes", "counter", m.ProbesTotal.Load()},
		{"isoscrape_probes_not_found_total", "Total probes answering not_found", "counter", m.ProbesNotFound.Load()},
		{"isoscrape_probes_unknown_total", "Total probes with no usable answer", "counter", m.ProbesUnknown.Load()},
		{"isoscrape_sessions_created_total", "Total browser sessions launched", "counter", m.SessionsCreated.Load()},
		{"isoscrape_sessions_failed_total", "Total browser sessions that could not be created", "counter", m.SessionsFailed.Load()},
		{"isoscrape_sessions_closed_total", "Total browser sessions released", "counter", m.SessionsClosed.Load()},
		{"isoscrape_records_empty_total", "Total successful records with no extracted fields", "counter", m.RecordsEmpty.Load()},
		{"isoscrape_details_retries_total", "Total second detail passes", "counter", m.DetailsRetries.Load()},
		{"isoscrape_products_stored_total", "Total products written to sinks", "counter", m.ProductsStored.Load()},
		{"isoscrape_active_workers", "Workers currently running a task", "gauge", int64(m.ActiveWorkers.Load())},
		{"isoscrape_active_sessions", "Browser sessions currently open", "gauge", m.ActiveSessions()},
		{"isoscrape_queue_depth", "URLs not yet dispatched", "gauge", m.QueueDepth.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", metric.name, metric.kind)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer starts the metrics HTTP server in the background. The server
// shuts down when ctx is done.
func (m *Metrics) StartServer(ctx context.Context, port int, path string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return srv
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"tasks_dispatched": m.TasksDispatched.Load(),
		"tasks_succeeded":  m.TasksSucceeded.Load(),
		"tasks_skipped":    m.TasksSkipped.Load(),
		"tasks_failed":     m.TasksFailed.Load(),
		"tasks_panicked":   m.TasksPanicked.Load(),
		"probes_total":     m.ProbesTotal.Load(),
		"probes_not_found": m.ProbesNotFound.Load(),
		"sessions_created": m.SessionsCreated.Load(),
		"sessions_failed":  m.SessionsFailed.Load(),
		"sessions_closed":  m.SessionsClosed.Load(),
		"records_empty":    m.RecordsEmpty.Load(),
		"details_retries":  m.DetailsRetries.Load(),
		"products_stored":  m.ProductsStored.Load(),
		"active_workers":   int64(m.ActiveWorkers.Load()),
		"queue_depth":      m.QueueDepth.Load(),
	}
}
