// Package inspect fetches operations once, runs the response and metadata
// transformers over the snapshots and hands the outcome to sinks. Deciding
// when to look again is left to the caller.
package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"longrun/internal/logging"
	"longrun/internal/spec"
	"longrun/internal/telemetry"
	"longrun/operation"
	"longrun/rpcerr"
	"longrun/sink"
	"longrun/unpack"
)

const defaultParallelism = 8

// Watch is a WatchSpec with its types resolved.
type Watch struct {
	Name     string
	response *operation.ResponseTransformer[proto.Message]
	metadata *operation.MetadataTransformer[proto.Message]
	respType string
	mdType   string
}

type Inspector struct {
	get     operation.Callable[string, operation.Snapshot]
	types   *unpack.Registry
	metrics *telemetry.Metrics
	timeout time.Duration
	par     int
	now     func() time.Time

	mu    sync.Mutex
	sinks []namedSink
}

type namedSink struct {
	name string
	sink.Adapter
}

type Option func(*Inspector)

func WithRegistry(r *unpack.Registry) Option { return func(i *Inspector) { i.types = r } }
func WithMetrics(m *telemetry.Metrics) Option { return func(i *Inspector) { i.metrics = m } }
func WithTimeout(d time.Duration) Option { return func(i *Inspector) { i.timeout = d } }
func WithParallelism(n int) Option { return func(i *Inspector) { i.par = n } }
func withClock(now func() time.Time) Option { return func(i *Inspector) { i.now = now } }

func New(get operation.Callable[string, operation.Snapshot], opts ...Option) *Inspector {
	i := &Inspector{get: get, par: defaultParallelism, now: time.Now}
	for _, o := range opts {
		o(i)
	}
	if i.types == nil {
		i.types = unpack.NewRegistry()
	}
	return i
}

// AddSink routes every record to s. Delivery confirmations from AckAware
// sinks are counted per name.
func (i *Inspector) AddSink(name string, s sink.Adapter) {
	if aa, ok := s.(sink.AckAware); ok {
		aa.BindAck(func(*sink.Record) {
			if i.metrics != nil {
				i.metrics.Delivered.WithLabelValues(name).Inc()
			}
		})
	}
	i.mu.Lock()
	i.sinks = append(i.sinks, namedSink{name: name, Adapter: s})
	i.mu.Unlock()
}

// Bind resolves the message types of w. Unknown types fail here, before
// any operation is fetched.
func (i *Inspector) Bind(w spec.WatchSpec) (*Watch, error) {
	rd, err := i.types.Lookup(w.ResponseType)
	if err != nil {
		return nil, fmt.Errorf("watch %s: response type: %w", w.Name, err)
	}
	md, err := i.types.Lookup(w.MetadataType)
	if err != nil {
		return nil, fmt.Errorf("watch %s: metadata type: %w", w.Name, err)
	}
	return &Watch{
		Name:     w.Name,
		response: operation.ResponseTransformerFor(rd),
		metadata: operation.MetadataTransformerFor(md),
		respType: string(rd.Name()),
		mdType:   string(md.Name()),
	}, nil
}

// Inspect fetches w once and pushes the resulting record to every sink.
// Transport failures are returned; transform failures end up in the record.
func (i *Inspector) Inspect(ctx context.Context, w *Watch) (*sink.Record, error) {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	start := time.Now()
	snap, err := i.get(ctx, w.Name).Get(ctx)
	if i.metrics != nil {
		i.metrics.FetchTime.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", w.Name, err)
	}
	if i.metrics != nil {
		i.metrics.Snapshots.WithLabelValues(strconv.FormatBool(snap.Done()), snap.Code().String()).Inc()
	}

	rec := i.record(w, snap)
	return rec, i.emit(rec)
}

// Run binds and inspects every entry of f concurrently. Entries that fail
// do not stop the others; their errors are joined.
func (i *Inspector) Run(ctx context.Context, f spec.File) error {
	watches := make([]*Watch, 0, len(f.Operations))
	for _, ws := range f.Operations {
		w, err := i.Bind(ws)
		if err != nil {
			return err
		}
		watches = append(watches, w)
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(i.par, 1))
	for _, w := range watches {
		g.Go(func() error {
			if _, err := i.Inspect(ctx, w); err != nil {
				logging.For("inspect").Warn("operation skipped", "operation", w.Name, "err", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Close closes every sink.
func (i *Inspector) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	var errs []error
	for _, s := range i.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

func (i *Inspector) record(w *Watch, snap operation.Snapshot) *sink.Record {
	rec := &sink.Record{
		Operation:    snap.Name(),
		Done:         snap.Done(),
		Code:         snap.Code().String(),
		ResultType:   w.respType,
		MetadataType: w.mdType,
		ObservedAt:   i.now().UTC(),
	}
	if rec.Operation == "" {
		rec.Operation = w.Name
	}

	md, err := w.metadata.Transform(snap)
	i.count("metadata", err)
	if err != nil {
		i.fail(rec, err)
	} else {
		rec.Metadata = marshal(md)
	}

	if !snap.Done() {
		return rec
	}
	resp, err := w.response.Transform(snap)
	i.count("response", err)
	if err != nil {
		// a result error outranks a metadata one
		i.fail(rec, err)
		return rec
	}
	rec.Result = marshal(resp)
	return rec
}

func (i *Inspector) fail(rec *sink.Record, err error) {
	rec.Error = err.Error()
	if e, ok := rpcerr.As(err); ok {
		rec.Kind = e.Kind.String()
		rec.Code = e.Code.String()
	}
	logging.For("inspect").Info("transform failed", "operation", rec.Operation, "kind", rec.Kind, "code", rec.Code, "err", err)
}

func (i *Inspector) count(transformer string, err error) {
	if i.metrics == nil {
		return
	}
	outcome := "ok"
	if e, ok := rpcerr.As(err); ok {
		outcome = e.Kind.String()
	} else if err != nil {
		outcome = "error"
	}
	i.metrics.Transforms.WithLabelValues(transformer, outcome).Inc()
}

func (i *Inspector) emit(rec *sink.Record) error {
	i.mu.Lock()
	sinks := append([]namedSink{}, i.sinks...)
	i.mu.Unlock()

	var errs []error
	for _, s := range sinks {
		if err := s.Push(rec); err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// marshal renders m as JSON, or nil when there is nothing to show.
func marshal(m proto.Message) json.RawMessage {
	if m == nil || !m.ProtoReflect().IsValid() {
		return nil
	}
	b, err := protojson.Marshal(m)
	if err != nil {
		logging.For("inspect").Warn("render payload", "type", m.ProtoReflect().Descriptor().FullName(), "err", err)
		return nil
	}
	return b
}
