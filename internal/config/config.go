// Package config wires the application's top-level settings: a .env
// file (github.com/joho/godotenv), command-line flags, and defaults,
// following the layering in
// ClusterCockpit-cc-backend/cmd/cc-backend/main.go (load .env, then
// flag.Parse, then apply defaults).
package config

import (
	"errors"
	"flag"
	"os"

	"github.com/joho/godotenv"

	"github.com/geowiwi/ems-gateway/internal/command"
)

// Config is the fully resolved process configuration.
type Config struct {
	// Transport selects the Bus Gateway implementation: "serial" or "tcp".
	Transport string
	// SerialDevice is the device path used when Transport == "serial".
	SerialDevice string
	// BusEndpoint is the dial target used when Transport == "tcp".
	BusEndpoint string

	Command command.Config

	MetricsAddr string
	LogLevel    string
}

// Load reads ./.env if present, then parses flags, then applies
// defaults. Environment variables set before the process starts always
// take precedence over .env (godotenv.Load never overwrites an existing
// variable).
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, err
	}

	fs := flag.NewFlagSet("ems-gateway", flag.ContinueOnError)
	cfg := Config{}
	fs.StringVar(&cfg.Transport, "transport", envOr("EMS_TRANSPORT", "serial"), "bus transport: serial or tcp")
	fs.StringVar(&cfg.SerialDevice, "serial-device", envOr("EMS_SERIAL_DEVICE", "/dev/ttyUSB0"), "serial device path")
	fs.StringVar(&cfg.BusEndpoint, "bus-endpoint", envOr("EMS_BUS_ENDPOINT", ""), "TCP bus-bridge endpoint, host:port")
	fs.StringVar(&cfg.Command.ListenAddr, "listen", envOr("EMS_LISTEN", ":8334"), "command protocol listen address")
	fs.StringVar(&cfg.MetricsAddr, "metrics-listen", envOr("EMS_METRICS_LISTEN", ":9334"), "Prometheus metrics listen address")
	fs.StringVar(&cfg.LogLevel, "log-level", envOr("EMS_LOG_LEVEL", "info"), "logrus level")
	timeout := fs.Duration("reply-timeout", command.DefaultReplyTimeout, "bus reply timeout")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Command.ReplyTimeout = *timeout
	cfg.Command = cfg.Command.WithDefaults()

	return cfg, cfg.Validate()
}

// Validate rejects a configuration that cannot start.
func (c Config) Validate() error {
	switch c.Transport {
	case "serial":
		if c.SerialDevice == "" {
			return errors.New("config: serial-device must not be empty when transport=serial")
		}
	case "tcp":
		if c.BusEndpoint == "" {
			return errors.New("config: bus-endpoint must not be empty when transport=tcp")
		}
	default:
		return errors.New("config: transport must be \"serial\" or \"tcp\"")
	}
	return c.Command.Validate()
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
