package transport

import (
	"fmt"
	"net"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	"google.golang.org/grpc"
)

type Server struct {
	grpc *grpc.Server
	lis  net.Listener
}

// StartServer listens on port and registers ops as the Operations service.
// Serve must be called to start accepting RPCs.
func StartServer(port int, ops longrunningpb.OperationsServer, opts ...grpc.ServerOption) (*Server, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	return NewServer(lis, ops, opts...), nil
}

// NewServer is StartServer over an existing listener.
func NewServer(lis net.Listener, ops longrunningpb.OperationsServer, opts ...grpc.ServerOption) *Server {
	s := &Server{
		grpc: grpc.NewServer(opts...),
		lis:  lis,
	}
	longrunningpb.RegisterOperationsServer(s.grpc, ops)
	return s
}

func (s *Server) Addr() net.Addr { return s.lis.Addr() }

func (s *Server) Serve() error {
	return s.grpc.Serve(s.lis)
}
func (s *Server) Stop() {
	s.grpc.GracefulStop()
}
