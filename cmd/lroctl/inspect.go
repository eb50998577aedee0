package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"longrun/internal/config"
	"longrun/internal/inspect"
	"longrun/internal/logging"
	"longrun/internal/telemetry"
	"longrun/internal/transport"
	"longrun/operation"
	"longrun/sink"
)

const pushJob = "lroctl_inspect"

func newInspectCommand() *cobra.Command {
	var (
		watchPath   string
		pushGateway string
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Fetch each watched operation once and emit its outcome",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if pushGateway != "" {
				cfg.PushGateway = pushGateway
			}
			watch, err := config.LoadWatchFile(watchPath)
			if err != nil {
				return fmt.Errorf("watch: %w", err)
			}

			cli, err := transport.Dial(cfg.Target)
			if err != nil {
				return fmt.Errorf("dial %s: %w", cfg.Target, err)
			}
			defer cli.Close()

			reg := prometheus.NewRegistry()
			in := inspect.New(operation.GetOperation(cli),
				inspect.WithMetrics(telemetry.NewMetrics(reg)),
				inspect.WithTimeout(cfg.RequestTimeout),
			)
			if err := addSinks(in, cfg); err != nil {
				return err
			}

			runErr := in.Run(cmd.Context(), watch)
			// sinks flush on Close, so delivery counts are final only after it
			closeErr := in.Close()
			return errors.Join(runErr, closeErr, reportMetrics(cmd.Context(), cfg, reg))
		},
	}
	cmd.Flags().StringVarP(&watchPath, "watch", "w", "watch.yml", "watch file listing operations and expected types")
	cmd.Flags().StringVar(&pushGateway, "push-gateway", "", "pushgateway URL for this run's metrics (overrides push_gateway)")
	return cmd
}

func addSinks(in *inspect.Inspector, cfg config.Config) error {
	for _, name := range cfg.Sinks {
		s, err := sink.NewAdapter(name)
		if err != nil {
			return err
		}
		switch name {
		case "stdout":
			err = s.Configure(cfg.Stdout)
		case "kafka":
			err = s.Configure(cfg.Kafka)
		default:
			err = fmt.Errorf("no config block for sink %q", name)
		}
		if err != nil {
			return fmt.Errorf("sink %s: %w", name, err)
		}
		in.AddSink(name, s)
	}
	return nil
}

// reportMetrics logs a one-line summary of g and pushes it to the
// configured gateway.
func reportMetrics(ctx context.Context, cfg config.Config, g prometheus.Gatherer) error {
	log := logging.For("lroctl")
	if attrs, err := telemetry.Summary(g); err != nil {
		log.Warn("metrics summary", "err", err)
	} else {
		log.LogAttrs(ctx, slog.LevelInfo, "inspect metrics", attrs...)
	}
	if cfg.PushGateway == "" {
		return nil
	}
	if err := telemetry.Push(ctx, cfg.PushGateway, pushJob, g); err != nil {
		return fmt.Errorf("push metrics to %s: %w", cfg.PushGateway, err)
	}
	return nil
}
