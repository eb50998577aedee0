package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"longrun/internal/engine"
	"longrun/internal/logging"
	"longrun/internal/opstore"
)

func newServeCommand() *cobra.Command {
	var demo bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host an in-memory Operations service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store := opstore.New()
			if demo {
				if err := seedDemo(store); err != nil {
					return err
				}
			}
			e, err := engine.Bootstrap(cmd.Context(), engine.Config{GRPCPort: cfg.GRPCPort, MetricsPort: cfg.MetricsPort}, store)
			if err != nil {
				return fmt.Errorf("bootstrap: %w", err)
			}
			return e.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "seed one operation per outcome kind")
	return cmd
}

// seedDemo creates a finished, a failed, a running and a mistyped operation.
func seedDemo(s *opstore.Store) error {
	type step func(name string) error
	plan := []struct {
		label string
		md    proto.Message
		then  step
	}{
		{"succeeded", timestamppb.Now(), func(n string) error { return s.Complete(n, wrapperspb.String("hello")) }},
		{"failed", nil, func(n string) error { return s.Fail(n, status.New(codes.ResourceExhausted, "quota")) }},
		{"running", timestamppb.Now(), nil},
		{"mistyped", nil, func(n string) error {
			return s.CompleteAny(n, &anypb.Any{TypeUrl: "type.example/Bar", Value: []byte{0x08, 0x01}})
		}},
	}
	for _, p := range plan {
		op, err := s.Create(p.md)
		if err != nil {
			return err
		}
		if p.then != nil {
			if err := p.then(op.GetName()); err != nil {
				return err
			}
		}
		logging.For("lroctl").Info("demo operation", "kind", p.label, "name", op.GetName())
	}
	return nil
}
