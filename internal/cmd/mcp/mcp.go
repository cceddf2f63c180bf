// Package mcp parses MCP command flags and selects stdio or HTTP transport.
package mcp

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/louisbranch/smartlab/internal/cmd/oracleenv"
	"github.com/louisbranch/smartlab/internal/lab/journal"
	"github.com/louisbranch/smartlab/internal/lab/oracle"
	"github.com/louisbranch/smartlab/internal/lab/session"
	entrypoint "github.com/louisbranch/smartlab/internal/platform/cmd"
	"github.com/louisbranch/smartlab/internal/services/lab/labmcp"
)

// Config holds MCP command configuration.
type Config struct {
	HTTPAddr      string `env:"MCP_HTTP_ADDR"   envDefault:"localhost:8092"`
	Transport     string `env:"MCP_TRANSPORT"   envDefault:"stdio"`
	JournalDBPath string `env:"JOURNAL_DB_PATH"`
	Oracle        oracleenv.Config
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	return entrypoint.ParseCommand(fs, args, func(fs *flag.FlagSet, cfg *Config) {
		fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP server address (for HTTP transport)")
		fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Transport type: stdio or http")
		fs.StringVar(&cfg.JournalDBPath, "journal-db", cfg.JournalDBPath, "SQLite simulation journal path (empty disables)")
		oracleenv.RegisterFlags(fs, &cfg.Oracle)
	})
}

// Run starts the MCP protocol adapter.
func Run(ctx context.Context, cfg Config) error {
	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	switch cfg.Transport {
	case labmcp.TransportStdio, labmcp.TransportHTTP:
	default:
		return fmt.Errorf("transport %q is not supported", cfg.Transport)
	}
	labOracle, err := oracle.New(cfg.Oracle.OracleConfig())
	if err != nil {
		return fmt.Errorf("build oracle: %w", err)
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, func(ctx context.Context) error {
		serverCfg := labmcp.Config{
			Oracle:        labOracle,
			OracleTimeout: cfg.Oracle.EffectiveTimeout(),
		}
		if path := strings.TrimSpace(cfg.JournalDBPath); path != "" {
			store, err := journal.Open(ctx, path)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					log.Printf("close journal: %v", err)
				}
			}()
			serverCfg.Journal = session.Journal(store)
		}
		return labmcp.Run(ctx, cfg.Transport, cfg.HTTPAddr, serverCfg)
	})
}
