package opstore

import (
	"context"
	"strconv"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

const defaultPageSize = 50

// Server exposes a Store as google.longrunning.Operations.
type Server struct {
	longrunningpb.UnimplementedOperationsServer
	store *Store
}

func NewServer(s *Store) *Server { return &Server{store: s} }

func (s *Server) GetOperation(_ context.Context, req *longrunningpb.GetOperationRequest) (*longrunningpb.Operation, error) {
	if req.GetName() == "" {
		return nil, status.Error(codes.InvalidArgument, "name is required")
	}
	return s.store.Get(req.GetName())
}

// ListOperations treats req.Name as a name prefix. Filters are not supported.
func (s *Server) ListOperations(_ context.Context, req *longrunningpb.ListOperationsRequest) (*longrunningpb.ListOperationsResponse, error) {
	if req.GetFilter() != "" {
		return nil, status.Error(codes.Unimplemented, "filter is not supported")
	}
	offset := 0
	if tok := req.GetPageToken(); tok != "" {
		n, err := strconv.Atoi(tok)
		if err != nil || n < 0 {
			return nil, status.Errorf(codes.InvalidArgument, "bad page token %q", tok)
		}
		offset = n
	}
	size := int(req.GetPageSize())
	if size <= 0 {
		size = defaultPageSize
	}
	ops, next := s.store.List(req.GetName(), offset, size)
	resp := &longrunningpb.ListOperationsResponse{Operations: ops}
	if next > 0 {
		resp.NextPageToken = strconv.Itoa(next)
	}
	return resp, nil
}

func (s *Server) DeleteOperation(_ context.Context, req *longrunningpb.DeleteOperationRequest) (*emptypb.Empty, error) {
	if err := s.store.Delete(req.GetName()); err != nil {
		return nil, err
	}
	return &emptypb.Empty{}, nil
}

// CancelOperation finishes a running operation with codes.Canceled.
// Cancelling a finished operation is a no-op.
func (s *Server) CancelOperation(_ context.Context, req *longrunningpb.CancelOperationRequest) (*emptypb.Empty, error) {
	op, err := s.store.Get(req.GetName())
	if err != nil {
		return nil, err
	}
	if !op.GetDone() {
		err := s.store.Fail(op.GetName(), status.New(codes.Canceled, "operation cancelled by client"))
		if err != nil && status.Code(err) != codes.FailedPrecondition {
			return nil, err
		}
	}
	return &emptypb.Empty{}, nil
}

// WaitOperation returns the current state without blocking; clients decide
// how often to ask again.
func (s *Server) WaitOperation(ctx context.Context, req *longrunningpb.WaitOperationRequest) (*longrunningpb.Operation, error) {
	return s.GetOperation(ctx, &longrunningpb.GetOperationRequest{Name: req.GetName()})
}
