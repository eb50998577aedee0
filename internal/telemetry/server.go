package telemetry

import (
	"context"
	"path"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// ServerMetrics counts what the Operations service handles.
type ServerMetrics struct {
	Requests *prometheus.CounterVec // by method, code
	Finished *prometheus.CounterVec // by code
}

func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	m := &ServerMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "longrun",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Operations RPCs handled, by method and status code.",
		}, []string{"method", "code"}),
		Finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "longrun",
			Subsystem: "server",
			Name:      "operations_finished_total",
			Help:      "Operations that reached done, by final status code.",
		}, []string{"code"}),
	}
	reg.MustRegister(m.Requests, m.Finished)
	return m
}

// UnaryInterceptor counts every unary RPC by its short method name.
func (m *ServerMetrics) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, h grpc.UnaryHandler) (any, error) {
		resp, err := h(ctx, req)
		m.Requests.WithLabelValues(path.Base(info.FullMethod), status.Code(err).String()).Inc()
		return resp, err
	}
}
