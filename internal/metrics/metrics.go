// Package metrics exposes Prometheus counters for ingestion runs.
//
// Each run owns its registry so tests and concurrent runs never share
// collectors. A nil *Ingest is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"framelabel/internal/logging"
)

// Ingest holds the collectors updated by the records and matrix commands.
type Ingest struct {
	registry *prometheus.Registry

	framesWritten    prometheus.Counter
	bytesWritten     prometheus.Counter
	batchesCommitted prometheus.Counter
	decodeErrors     prometheus.Counter
	unknownLabels    *prometheus.CounterVec
	batchDuration    prometheus.Histogram
	queueDepth       prometheus.Gauge
	matricesWritten  prometheus.Counter
}

// New registers a fresh set of collectors.
func New() *Ingest {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Ingest{
		registry: reg,
		framesWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "framelabel_frames_written_total",
			Help: "Frame records staged into the store.",
		}),
		bytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "framelabel_record_bytes_total",
			Help: "Serialized record bytes staged into the store.",
		}),
		batchesCommitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "framelabel_batches_committed_total",
			Help: "Store transactions committed.",
		}),
		decodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "framelabel_decode_errors_total",
			Help: "Frames that failed to decode.",
		}),
		unknownLabels: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "framelabel_unknown_labels_total",
			Help: "Active labels dropped because the category is missing from the class mapping.",
		}, []string{"category"}),
		batchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "framelabel_batch_duration_seconds",
			Help:    "Time from opening a batch transaction to its commit.",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "framelabel_decode_queue_depth",
			Help: "Decoded frames waiting for the writer.",
		}),
		matricesWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "framelabel_matrices_written_total",
			Help: "Per-video label matrices written to the array file.",
		}),
	}
}

// Registry returns the registry backing m.
func (m *Ingest) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus text format.
func (m *Ingest) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// FrameWritten records one staged record of the given size.
func (m *Ingest) FrameWritten(size int) {
	if m == nil {
		return
	}
	m.framesWritten.Inc()
	m.bytesWritten.Add(float64(size))
}

// BatchCommitted records a committed transaction and how long it was open.
func (m *Ingest) BatchCommitted(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.batchesCommitted.Inc()
	m.batchDuration.Observe(elapsed.Seconds())
}

// DecodeFailed records a frame that could not be decoded.
func (m *Ingest) DecodeFailed() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

// UnknownLabels records dropped labels per category.
func (m *Ingest) UnknownLabels(counts map[string]int) {
	if m == nil {
		return
	}
	for category, n := range counts {
		m.unknownLabels.WithLabelValues(category).Add(float64(n))
	}
}

// QueueDepth records the current decoded-frame backlog.
func (m *Ingest) QueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// MatrixWritten records one stored label matrix.
func (m *Ingest) MatrixWritten() {
	if m == nil {
		return
	}
	m.matricesWritten.Inc()
}

// Serve exposes /metrics and /healthz on addr until ctx is done. It returns
// once the listener is bound so callers see address errors immediately.
func Serve(ctx context.Context, addr string, m *Ingest, logger *slog.Logger) (net.Addr, error) {
	logger = logging.NewComponentLogger(logger, "metrics")
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics server listening", logging.String("addr", listener.Addr().String()))
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return listener.Addr(), nil
}
