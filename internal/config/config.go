package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"longrun/internal/logging"
	kafkasink "longrun/sink/kafka"
	"longrun/sink/stdout"
)

const envPrefix = "LONGRUN__"

type Config struct {
	Target         string        `koanf:"target"` // host:port of an Operations service
	GRPCPort       int           `koanf:"grpc_port"`
	MetricsPort    int           `koanf:"metrics_port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	PushGateway    string        `koanf:"push_gateway"` // inspect pushes its metrics here when set

	Log    logging.Options  `koanf:"log"`
	Sinks  []string         `koanf:"sinks"`
	Kafka  kafkasink.Config `koanf:"kafka"`
	Stdout stdout.Config    `koanf:"stdout"`
}

// ---------------------------------------------------------------------------
// Loader
// ---------------------------------------------------------------------------

// LoadConfig merges YAML (if present) with env-vars
// (prefix `LONGRUN__`, delimiter `__`, e.g. LONGRUN__KAFKA__TOPIC).
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	// schema version check (only when YAML is present)
	sv := k.String("schema_version")
	if sv != "" && sv != SupportedSchema {
		return Config{}, fmt.Errorf("config schema_version %q not supported (want %s)", sv, SupportedSchema)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
}

// ---------------------------------------------------------------------------
// defaults
// ---------------------------------------------------------------------------

func applyDefaults(c *Config) {
	if c.Target == "" {
		c.Target = "localhost:7070"
	}
	if c.GRPCPort == 0 {
		c.GRPCPort = 7070
	}
	if c.MetricsPort == 0 {
		c.MetricsPort = 9100
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
	// env values arrive as one comma-separated string
	var sinks []string
	for _, s := range c.Sinks {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				sinks = append(sinks, part)
			}
		}
	}
	if len(sinks) == 0 {
		sinks = []string{"stdout"}
	}
	c.Sinks = sinks
	if c.Kafka.Acks == 0 { // 0 reads as unset, so NoResponse is not selectable
		c.Kafka.Acks = 1
	}
}
