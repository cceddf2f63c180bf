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
	defaultOpenAIURL   = "https://api.openai.com/v1/responses"
	defaultOpenAIModel = "gpt-4.1-mini"
)

// OpenAIConfig configures the Responses API adapter.
type OpenAIConfig struct {
	APIKey       string
	Model        string
	ResponsesURL string
	HTTPClient   *http.Client
}

// OpenAI asks the Responses API for a strict JSON schema answer.
type OpenAI struct {
	cfg OpenAIConfig
}

// NewOpenAI builds an OpenAI adapter with defaults filled in.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.ResponsesURL) == "" {
		cfg.ResponsesURL = defaultOpenAIURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultOpenAIModel
	}
	return &OpenAI{cfg: cfg}
}

func (o *OpenAI) Simulate(ctx context.Context, req reaction.Request) (reaction.Result, error) {
	apiKey := strings.TrimSpace(o.cfg.APIKey)
	if apiKey == "" {
		return reaction.Result{}, apperrors.New(apperrors.CodeOracleTransportFailure, "openai api key is required")
	}
	body := map[string]any{
		"model": o.cfg.Model,
		"input": reaction.BuildPrompt(req),
		"text": map[string]any{
			"format": map[string]any{
				"type":   "json_schema",
				"name":   "reaction_result",
				"strict": true,
				"schema": openAISchema(),
			},
		},
	}
	envelope, err := postJSON(ctx, o.cfg.HTTPClient, o.cfg.ResponsesURL,
		map[string]string{"Authorization": "Bearer " + apiKey}, body)
	if err != nil {
		return reaction.Result{}, err
	}
	text, err := openAIOutputText(envelope)
	if err != nil {
		return reaction.Result{}, err
	}
	return reaction.ParseResult([]byte(text))
}

// openAIOutputText prefers the aggregated output_text and falls back to the
// first non-empty content part.
func openAIOutputText(envelope []byte) (string, error) {
	if !gjson.ValidBytes(envelope) {
		return "", apperrors.New(apperrors.CodeOracleMalformedPayload, "openai envelope is not json")
	}
	if text := strings.TrimSpace(gjson.GetBytes(envelope, "output_text").String()); text != "" {
		return text, nil
	}
	var text string
	gjson.GetBytes(envelope, "output").ForEach(func(_, item gjson.Result) bool {
		item.Get("content").ForEach(func(_, content gjson.Result) bool {
			if refusal := strings.TrimSpace(content.Get("refusal").String()); refusal != "" {
				return false
			}
			text = strings.TrimSpace(content.Get("text").String())
			return text == ""
		})
		return text == ""
	})
	if text == "" {
		return "", apperrors.New(apperrors.CodeOracleMalformedPayload, "openai response missing output text")
	}
	return text, nil
}

// openAISchema renders the response fields in strict mode: every property is
// required and optional ones are nullable.
func openAISchema() map[string]any {
	fields := reaction.ResponseFields()
	properties := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		prop := map[string]any{"description": f.Description}
		if f.Required {
			prop["type"] = string(f.Kind)
		} else {
			prop["type"] = []string{string(f.Kind), "null"}
		}
		if f.Pattern != "" {
			prop["pattern"] = f.Pattern
		}
		properties[f.Name] = prop
		required = append(required, f.Name)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}
