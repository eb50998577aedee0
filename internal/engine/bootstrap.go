package engine

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"

	"longrun/internal/opstore"
	"longrun/internal/telemetry"
	"longrun/internal/transport"
)

type Config struct {
	GRPCPort    int
	MetricsPort int // 0 disables /metrics
}

func Bootstrap(_ context.Context, cfg Config, store *opstore.Store) (*Engine, error) {
	// 1. metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sm := telemetry.NewServerMetrics(reg)
	store.Instrument(sm)

	// 2. transport server
	srv, err := transport.StartServer(cfg.GRPCPort, opstore.NewServer(store), grpc.UnaryInterceptor(sm.UnaryInterceptor()))
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}

	return &Engine{
		transport:   srv,
		store:       store,
		registry:    reg,
		metrics:     sm,
		metricsPort: cfg.MetricsPort,
	}, nil
}
