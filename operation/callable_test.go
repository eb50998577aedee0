package operation

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	"github.com/stretchr/testify/require"
	spb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"longrun/future"
)

type startRequest struct{ id string }

func equalSnapshots(t *testing.T, a, b Snapshot) {
	t.Helper()
	require.Equal(t, a.Name(), b.Name())
	require.Equal(t, a.Done(), b.Done())
	require.Equal(t, a.Code(), b.Code())
	require.Equal(t, a.Message(), b.Message())
	require.True(t, proto.Equal(a.Response(), b.Response()))
	require.True(t, proto.Equal(a.Metadata(), b.Metadata()))
}

func TestStartOperation_TransformsHandle(t *testing.T) {
	handle := &longrunningpb.Operation{
		Name:     "operations/op-1",
		Done:     true,
		Metadata: packed(t, timestamppb.Now()),
		Result:   &longrunningpb.Operation_Response{Response: packed(t, wrapperspb.String("foo"))},
	}
	var seen startRequest
	inner := func(_ context.Context, req startRequest) *future.Future[*longrunningpb.Operation] {
		seen = req
		return future.Resolved(handle, nil)
	}

	call := StartOperation(inner)
	snap, err := call(context.Background(), startRequest{id: "r1"}).Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, "r1", seen.id)

	require.Equal(t, "operations/op-1", snap.Name())
	require.True(t, snap.Done())
	require.Equal(t, codes.OK, snap.Code())
	require.True(t, proto.Equal(handle.GetResponse(), snap.Response()))
	require.True(t, proto.Equal(handle.GetMetadata(), snap.Metadata()))

	again, err := call(context.Background(), startRequest{id: "r1"}).Get(context.Background())
	require.NoError(t, err)
	equalSnapshots(t, snap, again)
}

func TestStartOperation_ErrorPassesThrough(t *testing.T) {
	sentinel := errors.New("dial failed")
	inner := func(context.Context, startRequest) *future.Future[*longrunningpb.Operation] {
		return future.Resolved[*longrunningpb.Operation](nil, sentinel)
	}
	_, err := StartOperation(inner)(context.Background(), startRequest{}).Get(context.Background())
	require.Same(t, sentinel, err)
}

func TestStartOperation_ResolvesWhenInnerResolves(t *testing.T) {
	pending := future.New[*longrunningpb.Operation]()
	inner := func(context.Context, startRequest) *future.Future[*longrunningpb.Operation] { return pending }

	out := StartOperation(inner)(context.Background(), startRequest{})
	select {
	case <-out.Done():
		t.Fatal("snapshot resolved before the handle")
	default:
	}

	pending.Resolve(&longrunningpb.Operation{Name: "operations/late"}, nil)
	snap, err := out.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, "operations/late", snap.Name())
	require.False(t, snap.Done())
}

func TestFromProto_Fields(t *testing.T) {
	failed := FromProto(&longrunningpb.Operation{
		Name:   "operations/x",
		Done:   true,
		Result: &longrunningpb.Operation_Error{Error: &spb.Status{Code: int32(codes.PermissionDenied), Message: "denied"}},
	})
	require.Equal(t, codes.PermissionDenied, failed.Code())
	require.Equal(t, "denied", failed.Message())
	require.Nil(t, failed.Response())

	running := FromProto(&longrunningpb.Operation{Name: "operations/y"})
	require.False(t, running.Done())
	require.Equal(t, codes.OK, running.Code())

	empty := FromProto(nil)
	require.Equal(t, "", empty.Name())
	require.Equal(t, codes.OK, empty.Code())
}

type stubOperations struct {
	longrunningpb.OperationsClient
	ops map[string]*longrunningpb.Operation
}

func (s *stubOperations) GetOperation(_ context.Context, req *longrunningpb.GetOperationRequest, _ ...grpc.CallOption) (*longrunningpb.Operation, error) {
	op, ok := s.ops[req.GetName()]
	if !ok {
		return nil, errors.New("not found")
	}
	return op, nil
}

func TestGetOperation_UsesClient(t *testing.T) {
	stub := &stubOperations{ops: map[string]*longrunningpb.Operation{
		"operations/a": {Name: "operations/a", Done: true, Result: &longrunningpb.Operation_Response{Response: packed(t, wrapperspb.Int64(9))}},
	}}
	get := GetOperation(stub)

	snap, err := get(context.Background(), "operations/a").Get(context.Background())
	require.NoError(t, err)
	v, err := NewResponseTransformer[*wrapperspb.Int64Value]().Transform(snap)
	require.NoError(t, err)
	require.Equal(t, int64(9), v.GetValue())

	_, err = get(context.Background(), "operations/missing").Get(context.Background())
	require.EqualError(t, err, "not found")
}
