// Package oracle implements reaction.Oracle over hosted language models.
package oracle

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/smartlab/internal/lab/reaction"
	apperrors "github.com/louisbranch/smartlab/internal/platform/errors"
	platformotel "github.com/louisbranch/smartlab/internal/platform/otel"
	"github.com/louisbranch/smartlab/internal/platform/telemetry/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Provider names a hosted model API.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// Config selects and configures a provider.
type Config struct {
	Provider Provider
	APIKey   string
	Model    string
	// URL overrides the provider endpoint. Gemini URLs may contain {model}.
	URL        string
	HTTPClient *http.Client
	Metrics    *metrics.Recorder
}

// New builds the configured provider wrapped with tracing and metrics.
func New(cfg Config) (reaction.Oracle, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("oracle api key is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	var inner reaction.Oracle
	switch Provider(strings.ToLower(strings.TrimSpace(string(cfg.Provider)))) {
	case ProviderGemini, "":
		cfg.Provider = ProviderGemini
		inner = NewGemini(GeminiConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			URL:        cfg.URL,
			HTTPClient: cfg.HTTPClient,
		})
	case ProviderOpenAI:
		cfg.Provider = ProviderOpenAI
		inner = NewOpenAI(OpenAIConfig{
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			ResponsesURL: cfg.URL,
			HTTPClient:   cfg.HTTPClient,
		})
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}
	return Instrument(cfg.Provider, inner, cfg.Metrics), nil
}

// Instrument wraps an oracle with a span and call metrics.
func Instrument(provider Provider, inner reaction.Oracle, recorder *metrics.Recorder) reaction.Oracle {
	return &instrumented{
		provider: provider,
		inner:    inner,
		metrics:  recorder,
		tracer:   platformotel.Tracer("oracle"),
	}
}

type instrumented struct {
	provider Provider
	inner    reaction.Oracle
	metrics  *metrics.Recorder
	tracer   trace.Tracer
}

func (o *instrumented) Simulate(ctx context.Context, req reaction.Request) (reaction.Result, error) {
	ctx, span := o.tracer.Start(ctx, "oracle.Simulate", trace.WithAttributes(
		attribute.String("oracle.provider", string(o.provider)),
		attribute.StringSlice("lab.reactants", req.ReactantIDs()),
		attribute.String("lab.concentration", string(req.Options.Concentration)),
		attribute.Bool("lab.indicator", req.Options.UseIndicator),
	))
	defer span.End()

	start := time.Now()
	result, err := o.inner.Simulate(ctx, req)
	o.metrics.ObserveOracle(ctx, string(o.provider), err == nil, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperrors.CodeOf(err)))
		return reaction.Result{}, err
	}
	span.SetAttributes(attribute.Bool("lab.no_reaction", result.IsNoReaction()))
	return result, nil
}
