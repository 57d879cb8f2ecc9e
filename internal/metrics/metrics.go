// Package metrics exposes prometheus counters for interactions, submissions,
// recognition outcomes, and playback.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vcinteract"

const readHeaderTimeout = 10 * time.Second

// Metrics owns one registry and the collectors registered on it.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	interactions       *prometheus.CounterVec
	recognitions       *prometheus.CounterVec
	submissionDuration *prometheus.HistogramVec
	chunksQueued       prometheus.Counter
	artifactDeletes    *prometheus.CounterVec
}

// New builds a registry with process/runtime collectors and vcinteract metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		interactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactions_total",
			Help:      "Completed interactions by terminal outcome",
		}, []string{"outcome"}),
		recognitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognitions_total",
			Help:      "Recognition outcomes by engine path",
		}, []string{"path", "kind"}),
		submissionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_duration_seconds",
			Help:      "Server round-trip duration by payload kind and result",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 45},
		}, []string{"kind", "result"}),
		chunksQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_chunks_queued_total",
			Help:      "Speech chunks accepted by the synthesizer queue",
		}),
		artifactDeletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_deletes_total",
			Help:      "Temp media file deletions by result",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.interactions,
		m.recognitions,
		m.submissionDuration,
		m.chunksQueued,
		m.artifactDeletes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Interaction(outcome string) {
	if m == nil {
		return
	}
	m.interactions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Recognition(path, kind string) {
	if m == nil {
		return
	}
	m.recognitions.WithLabelValues(path, kind).Inc()
}

func (m *Metrics) Submission(kind, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.submissionDuration.WithLabelValues(kind, result).Observe(elapsed.Seconds())
}

func (m *Metrics) ChunksQueued(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.chunksQueued.Add(float64(n))
}

func (m *Metrics) ArtifactDeleted(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.artifactDeletes.WithLabelValues(result).Inc()
}

// Handler returns the /metrics handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if logger != nil {
		logger.Info("metrics listener started", "addr", listener.Addr().String())
	}
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
