package operation

import (
	"context"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	"google.golang.org/grpc"

	"longrun/future"
)

// Callable issues a request and returns a future of its response.
type Callable[Req, Resp any] func(ctx context.Context, req Req) *future.Future[Resp]

// Unary lifts a blocking gRPC stub method into a Callable.
func Unary[Req, Resp any](fn func(context.Context, Req, ...grpc.CallOption) (Resp, error), opts ...grpc.CallOption) Callable[Req, Resp] {
	return func(ctx context.Context, req Req) *future.Future[Resp] {
		return future.Go(func() (Resp, error) { return fn(ctx, req, opts...) })
	}
}

// StartOperation wraps a call that returns an Operation handle so that it
// yields a Snapshot instead. Failures of inner pass through unchanged.
func StartOperation[Req any](inner Callable[Req, *longrunningpb.Operation]) Callable[Req, Snapshot] {
	return func(ctx context.Context, req Req) *future.Future[Snapshot] {
		return future.Then(inner(ctx, req), FromProto)
	}
}

// GetOperation is a Callable that fetches the current state of a named
// operation through c.
func GetOperation(c longrunningpb.OperationsClient, opts ...grpc.CallOption) Callable[string, Snapshot] {
	get := Unary(c.GetOperation, opts...)
	return StartOperation(func(ctx context.Context, name string) *future.Future[*longrunningpb.Operation] {
		return get(ctx, &longrunningpb.GetOperationRequest{Name: name})
	})
}
