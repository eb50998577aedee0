package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts what the inspector and the operations server observe.
type Metrics struct {
	Snapshots  *prometheus.CounterVec // by done, code
	Transforms *prometheus.CounterVec // by transformer, outcome
	Delivered  *prometheus.CounterVec // by sink
	FetchTime  prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "longrun",
			Name:      "snapshots_total",
			Help:      "Operation snapshots fetched, by completion and status code.",
		}, []string{"done", "code"}),
		Transforms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "longrun",
			Name:      "transforms_total",
			Help:      "Response and metadata transforms, by outcome.",
		}, []string{"transformer", "outcome"}),
		Delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "longrun",
			Name:      "records_delivered_total",
			Help:      "Outcome records confirmed by a sink.",
		}, []string{"sink"}),
		FetchTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "longrun",
			Name:      "fetch_seconds",
			Help:      "Latency of a single GetOperation round trip.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.Snapshots, m.Transforms, m.Delivered, m.FetchTime)
	return m
}

// Serve exposes /metrics for g on port until ctx ends.
func Serve(ctx context.Context, port int, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
