// Package lab parses lab service flags and launches the service.
package lab

import (
	"context"
	"flag"
	"time"

	"github.com/louisbranch/smartlab/internal/cmd/oracleenv"
	"github.com/louisbranch/smartlab/internal/lab/session"
	entrypoint "github.com/louisbranch/smartlab/internal/platform/cmd"
	server "github.com/louisbranch/smartlab/internal/services/lab/app"
)

// Config holds lab command configuration.
type Config struct {
	HTTPAddr      string        `env:"HTTP_ADDR"       envDefault:":8090"`
	GRPCAddr      string        `env:"GRPC_ADDR"       envDefault:":8091"`
	StaleResults  string        `env:"STALE_RESULTS"   envDefault:"discard"`
	JournalDBPath string        `env:"JOURNAL_DB_PATH"`
	SessionKey    string        `env:"SESSION_KEY"`
	SessionTTL    time.Duration `env:"SESSION_TTL"     envDefault:"2h"`
	MaxSessions   int           `env:"MAX_SESSIONS"    envDefault:"10000"`
	ImageBaseURL  string        `env:"IMAGE_BASE_URL"`
	SecureCookies bool          `env:"SECURE_COOKIES"`
	Oracle        oracleenv.Config
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	return entrypoint.ParseCommand(fs, args, bindFlags)
}

func bindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "gRPC health listen address (empty disables)")
	fs.StringVar(&cfg.StaleResults, "stale-results", cfg.StaleResults, "Late oracle answers: discard or apply")
	fs.StringVar(&cfg.JournalDBPath, "journal-db", cfg.JournalDBPath, "SQLite simulation journal path (empty disables)")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", cfg.SessionTTL, "Idle lab session lifetime")
	fs.IntVar(&cfg.MaxSessions, "max-sessions", cfg.MaxSessions, "Live lab session cap")
	fs.StringVar(&cfg.ImageBaseURL, "image-base-url", cfg.ImageBaseURL, "Result image host")
	fs.BoolVar(&cfg.SecureCookies, "secure-cookies", cfg.SecureCookies, "Mark session cookies Secure")
	oracleenv.RegisterFlags(fs, &cfg.Oracle)
}

// ServerConfig validates cfg and converts it to server settings.
func (c Config) ServerConfig() (server.Config, error) {
	policy, err := session.ParseStalePolicy(c.StaleResults)
	if err != nil {
		return server.Config{}, err
	}
	return server.Config{
		HTTPAddr:      c.HTTPAddr,
		GRPCAddr:      c.GRPCAddr,
		Oracle:        c.Oracle.OracleConfig(),
		OracleTimeout: c.Oracle.EffectiveTimeout(),
		StalePolicy:   policy,
		JournalPath:   c.JournalDBPath,
		SessionKey:    c.SessionKey,
		SessionTTL:    c.SessionTTL,
		MaxSessions:   c.MaxSessions,
		ImageBaseURL:  c.ImageBaseURL,
		SecureCookies: c.SecureCookies,
	}, nil
}

// Run starts the lab service.
func Run(ctx context.Context, cfg Config) error {
	serverCfg, err := cfg.ServerConfig()
	if err != nil {
		return err
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceLab, func(ctx context.Context) error {
		return server.Run(ctx, serverCfg)
	})
}
