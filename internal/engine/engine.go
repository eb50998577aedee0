package engine

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"longrun/internal/logging"
	"longrun/internal/opstore"
	"longrun/internal/telemetry"
	"longrun/internal/transport"
)

type Engine struct {
	transport   *transport.Server
	store       *opstore.Store
	registry    *prometheus.Registry
	metrics     *telemetry.ServerMetrics
	metricsPort int
}

func (e *Engine) Store() *opstore.Store { return e.store }

// Run serves RPCs and metrics until ctx ends or either server fails.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		e.transport.Stop()
		return nil
	})
	g.Go(func() error {
		logging.For("engine").Info("serving operations", "addr", e.transport.Addr().String())
		return e.transport.Serve()
	})
	if e.metricsPort > 0 {
		g.Go(func() error {
			return telemetry.Serve(ctx, e.metricsPort, e.registry)
		})
	}
	return g.Wait()
}
