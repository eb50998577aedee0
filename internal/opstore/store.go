// Package opstore keeps long-running operations in memory and serves them
// over the google.longrunning.Operations gRPC service.
package opstore

import (
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"

	"longrun/internal/logging"
	"longrun/internal/telemetry"
)

const namePrefix = "operations/"

type Store struct {
	mu    sync.RWMutex
	ops   map[string]*longrunningpb.Operation
	order []string // creation order, for listing

	metrics *telemetry.ServerMetrics
}

func New() *Store {
	return &Store{ops: map[string]*longrunningpb.Operation{}}
}

// Instrument counts finished operations on m from now on.
func (s *Store) Instrument(m *telemetry.ServerMetrics) {
	s.mu.Lock()
	s.metrics = m
	s.mu.Unlock()
}

// Create registers a running operation with optional initial metadata.
func (s *Store) Create(metadata proto.Message) (*longrunningpb.Operation, error) {
	op := &longrunningpb.Operation{Name: namePrefix + uuid.NewString()}
	if metadata != nil {
		md, err := anypb.New(metadata)
		if err != nil {
			return nil, fmt.Errorf("opstore: pack metadata: %w", err)
		}
		op.Metadata = md
	}

	s.mu.Lock()
	s.ops[op.Name] = op
	s.order = append(s.order, op.Name)
	s.mu.Unlock()

	logging.For("opstore").Debug("operation created", "name", op.Name)
	return proto.Clone(op).(*longrunningpb.Operation), nil
}

// Get returns a copy of the named operation.
func (s *Store) Get(name string) (*longrunningpb.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.ops[name]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "operation %q not found", name)
	}
	return proto.Clone(op).(*longrunningpb.Operation), nil
}

// SetMetadata replaces the progress metadata. It is allowed after completion.
func (s *Store) SetMetadata(name string, metadata proto.Message) error {
	md, err := anypb.New(metadata)
	if err != nil {
		return fmt.Errorf("opstore: pack metadata: %w", err)
	}
	return s.mutate(name, false, func(op *longrunningpb.Operation) {
		op.Metadata = md
	})
}

// Complete marks the operation done with a packed response.
func (s *Store) Complete(name string, response proto.Message) error {
	resp, err := anypb.New(response)
	if err != nil {
		return fmt.Errorf("opstore: pack response: %w", err)
	}
	return s.CompleteAny(name, resp)
}

// CompleteAny marks the operation done with an already packed response,
// which lets callers publish payloads of any type URL.
func (s *Store) CompleteAny(name string, response *anypb.Any) error {
	return s.mutate(name, true, func(op *longrunningpb.Operation) {
		op.Done = true
		op.Result = &longrunningpb.Operation_Response{Response: response}
	})
}

// Fail marks the operation done with an error status.
func (s *Store) Fail(name string, st *status.Status) error {
	if st.Code() == codes.OK {
		return status.Errorf(codes.InvalidArgument, "operation %q cannot fail with OK", name)
	}
	return s.mutate(name, true, func(op *longrunningpb.Operation) {
		op.Done = true
		op.Result = &longrunningpb.Operation_Error{Error: st.Proto()}
	})
}

// Delete forgets the operation.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ops[name]; !ok {
		return status.Errorf(codes.NotFound, "operation %q not found", name)
	}
	delete(s.ops, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns copies of up to limit operations whose name starts with
// prefix, beginning at offset, and the offset of the next page (0 if none).
func (s *Store) List(prefix string, offset, limit int) ([]*longrunningpb.Operation, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*longrunningpb.Operation
	seen := 0
	for _, n := range s.order {
		if !strings.HasPrefix(n, prefix) {
			continue
		}
		if seen < offset {
			seen++
			continue
		}
		if limit > 0 && len(out) == limit {
			return out, offset + len(out)
		}
		out = append(out, proto.Clone(s.ops[n]).(*longrunningpb.Operation))
		seen++
	}
	return out, 0
}

func (s *Store) mutate(name string, finish bool, fn func(*longrunningpb.Operation)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.ops[name]
	if !ok {
		return status.Errorf(codes.NotFound, "operation %q not found", name)
	}
	if finish && op.Done {
		return status.Errorf(codes.FailedPrecondition, "operation %q is already done", name)
	}
	fn(op)
	if finish {
		code := codes.Code(op.GetError().GetCode()).String()
		if s.metrics != nil {
			s.metrics.Finished.WithLabelValues(code).Inc()
		}
		logging.For("opstore").Info("operation finished", "name", name, "code", code)
	}
	return nil
}
