// Package cmd holds the shared startup sequence for lab service commands.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/louisbranch/smartlab/internal/platform/config"
	"github.com/louisbranch/smartlab/internal/platform/otel"
	"github.com/louisbranch/smartlab/internal/platform/timeouts"
)

// Service identifiers for telemetry resources and log prefixes.
const (
	ServiceLab = "lab"
	ServiceMCP = "mcp"
)

// LogPrefix returns the bracketed log prefix for a service, e.g. "[LAB] ".
func LogPrefix(service string) string {
	service = strings.TrimSpace(service)
	if service == "" {
		return ""
	}
	return "[" + strings.ToUpper(service) + "] "
}

// ParseConfig loads environment defaults into cfg.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseArgs parses command-line flags.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// ParseCommand reads env defaults into a T, lets bind register flags over
// those defaults, then parses args. Flags always win over env.
func ParseCommand[T any](fs *flag.FlagSet, args []string, bind func(*flag.FlagSet, *T)) (T, error) {
	var cfg T
	if err := ParseConfig(&cfg); err != nil {
		return cfg, err
	}
	if bind != nil && fs != nil {
		bind(fs, &cfg)
	}
	if err := ParseArgs(fs, args); err != nil {
		var zero T
		return zero, err
	}
	return cfg, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// RunWithTelemetry sets up tracing for service, runs run, and flushes
// spans before returning run's error.
func RunWithTelemetry(ctx context.Context, service string, run func(context.Context) error) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return fmt.Errorf("service name is required")
	}
	if run == nil {
		return fmt.Errorf("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := otel.Setup(ctx, service)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("%s otel shutdown: %v", service, err)
		}
	}()
	return run(ctx)
}
