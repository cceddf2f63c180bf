package oracle

import (
	"context"
	"net/http"
	"strings"

	"github.com/louisbranch/smartlab/internal/lab/reaction"
	apperrors "github.com/louisbranch/smartlab/internal/platform/errors"
	"github.com/tidwall/gjson"
)

const (
	defaultGeminiURL   = "https://generativelanguage.googleapis.com/v1beta/models/{model}:generateContent"
	defaultGeminiModel = "gemini-3-flash-preview"
)

// GeminiConfig configures the generateContent adapter.
type GeminiConfig struct {
	APIKey     string
	Model      string
	URL        string
	HTTPClient *http.Client
}

// Gemini asks generateContent for an application/json answer constrained by
// a response schema.
type Gemini struct {
	cfg GeminiConfig
}

// NewGemini builds a Gemini adapter with defaults filled in.
func NewGemini(cfg GeminiConfig) *Gemini {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = defaultGeminiURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultGeminiModel
	}
	return &Gemini{cfg: cfg}
}

func (g *Gemini) endpoint() string {
	return strings.ReplaceAll(g.cfg.URL, "{model}", g.cfg.Model)
}

func (g *Gemini) Simulate(ctx context.Context, req reaction.Request) (reaction.Result, error) {
	apiKey := strings.TrimSpace(g.cfg.APIKey)
	if apiKey == "" {
		return reaction.Result{}, apperrors.New(apperrors.CodeOracleTransportFailure, "gemini api key is required")
	}
	body := map[string]any{
		"contents": []any{
			map[string]any{
				"role":  "user",
				"parts": []any{map[string]any{"text": reaction.BuildPrompt(req)}},
			},
		},
		"generationConfig": map[string]any{
			"responseMimeType": "application/json",
			"responseSchema":   geminiSchema(),
		},
	}
	envelope, err := postJSON(ctx, g.cfg.HTTPClient, g.endpoint(),
		map[string]string{"x-goog-api-key": apiKey}, body)
	if err != nil {
		return reaction.Result{}, err
	}
	text, err := geminiOutputText(envelope)
	if err != nil {
		return reaction.Result{}, err
	}
	return reaction.ParseResult([]byte(text))
}

// geminiOutputText joins the text parts of the first candidate.
func geminiOutputText(envelope []byte) (string, error) {
	if !gjson.ValidBytes(envelope) {
		return "", apperrors.New(apperrors.CodeOracleMalformedPayload, "gemini envelope is not json")
	}
	if reason := gjson.GetBytes(envelope, "promptFeedback.blockReason").String(); reason != "" {
		return "", apperrors.New(apperrors.CodeOracleMalformedPayload, "gemini blocked prompt: "+reason)
	}
	var b strings.Builder
	for _, part := range gjson.GetBytes(envelope, "candidates.0.content.parts.#.text").Array() {
		b.WriteString(part.String())
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", apperrors.New(apperrors.CodeOracleMalformedPayload, "gemini response missing text")
	}
	return text, nil
}

// geminiSchema renders the response fields in the OpenAPI subset Gemini
// accepts.
func geminiSchema() map[string]any {
	fields := reaction.ResponseFields()
	properties := make(map[string]any, len(fields))
	var required []string
	for _, f := range fields {
		prop := map[string]any{
			"type":        strings.ToUpper(string(f.Kind)),
			"description": f.Description,
		}
		if f.Required {
			required = append(required, f.Name)
		} else {
			prop["nullable"] = true
		}
		properties[f.Name] = prop
	}
	return map[string]any{
		"type":       "OBJECT",
		"properties": properties,
		"required":   required,
	}
}
