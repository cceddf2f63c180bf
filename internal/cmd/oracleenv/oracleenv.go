// Package oracleenv holds the oracle settings shared by the lab and MCP
// commands.
package oracleenv

import (
	"flag"
	"time"

	"github.com/louisbranch/smartlab/internal/lab/oracle"
	"github.com/louisbranch/smartlab/internal/platform/timeouts"
)

// Config selects the reaction oracle provider.
type Config struct {
	Provider string        `env:"ORACLE_PROVIDER" envDefault:"gemini"`
	APIKey   string        `env:"ORACLE_API_KEY"`
	Model    string        `env:"ORACLE_MODEL"`
	URL      string        `env:"ORACLE_URL"`
	Timeout  time.Duration `env:"ORACLE_TIMEOUT" envDefault:"45s"`
}

// RegisterFlags binds flags that override the env values already in cfg.
// The API key is env-only so it never shows up in process listings.
func RegisterFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Provider, "oracle-provider", cfg.Provider, "Reaction oracle provider: gemini or openai")
	fs.StringVar(&cfg.Model, "oracle-model", cfg.Model, "Reaction oracle model (provider default when empty)")
	fs.StringVar(&cfg.URL, "oracle-url", cfg.URL, "Reaction oracle endpoint override")
	fs.DurationVar(&cfg.Timeout, "oracle-timeout", cfg.Timeout, "Reaction oracle call timeout")
}

// OracleConfig converts cfg into provider settings.
func (c Config) OracleConfig() oracle.Config {
	return oracle.Config{
		Provider: oracle.Provider(c.Provider),
		APIKey:   c.APIKey,
		Model:    c.Model,
		URL:      c.URL,
	}
}

// EffectiveTimeout returns the configured timeout or the default budget.
func (c Config) EffectiveTimeout() time.Duration {
	if c.Timeout <= 0 {
		return timeouts.OracleRequest
	}
	return c.Timeout
}
