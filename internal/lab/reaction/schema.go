package reaction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	apperrors "github.com/louisbranch/smartlab/internal/platform/errors"
)

// FieldKind is the JSON type of a response field.
type FieldKind string

const (
	KindString  FieldKind = "string"
	KindBoolean FieldKind = "boolean"
)

// Field describes one property of the oracle response. Provider adapters
// render their own schema dialect from this list.
type Field struct {
	Name        string
	Kind        FieldKind
	Description string
	Required    bool
	// Pattern constrains string values when set.
	Pattern string
}

var responseFields = []Field{
	{Name: "equation", Kind: KindString, Required: true, Description: "Balanced equation with coefficients (e.g., '2NaOH + H2SO4 -> Na2SO4 + 2H2O') or 'No Reaction'."},
	{Name: "phenomena", Kind: KindString, Required: true, Description: "Detailed visual description (color, gas, precipitate, heat, etc.)."},
	{Name: "properties", Kind: KindString, Required: true, Description: "Chemical and physical properties of the system."},
	{Name: "imageDescription", Kind: KindString, Required: true, Description: "A prompt for an image generator to visualize the final state."},
	{Name: "safetyWarning", Kind: KindString, Required: true, Description: "Specific safety advice for these chemicals."},
	{Name: "hex_color", Kind: KindString, Required: true, Pattern: "^#[0-9A-Fa-f]{6}$", Description: "The final solution's hex color code (e.g., '#FF0000')."},
	{Name: "has_gas", Kind: KindBoolean, Required: true, Description: "Whether gas is evolved."},
	{Name: "has_precipitate", Kind: KindBoolean, Required: true, Description: "Whether a precipitate forms."},
	{Name: "precipitate_color", Kind: KindString, Description: "Color of the precipitate if any, or null."},
	{Name: "indicatorColor", Kind: KindString, Description: "Color shown by the indicator if present, or null."},
}

// ResponseFields returns the oracle response fields in prompt order.
func ResponseFields() []Field {
	out := make([]Field, len(responseFields))
	copy(out, responseFields)
	return out
}

// ResponseSchema builds the JSON Schema a response must satisfy. Optional
// fields accept null.
func ResponseSchema() *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(responseFields)),
	}
	for _, f := range responseFields {
		prop := &jsonschema.Schema{Description: f.Description, Pattern: f.Pattern}
		if f.Required {
			prop.Type = string(f.Kind)
			schema.Required = append(schema.Required, f.Name)
		} else {
			prop.Types = []string{string(f.Kind), "null"}
		}
		schema.Properties[f.Name] = prop
	}
	return schema
}

var (
	resolveOnce sync.Once
	resolved    *jsonschema.Resolved
	resolveErr  error
)

func resolvedSchema() (*jsonschema.Resolved, error) {
	resolveOnce.Do(func() {
		resolved, resolveErr = ResponseSchema().Resolve(nil)
	})
	return resolved, resolveErr
}

// ParseResult decodes and validates an oracle payload. Bodies that are not
// JSON are ORACLE_MALFORMED_PAYLOAD; JSON that fails the schema is
// ORACLE_SCHEMA_VIOLATION.
func ParseResult(payload []byte) (Result, error) {
	payload = stripCodeFence(payload)

	var instance any
	if err := json.Unmarshal(payload, &instance); err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeOracleMalformedPayload, "decode oracle payload", err)
	}

	schema, err := resolvedSchema()
	if err != nil {
		return Result{}, fmt.Errorf("resolve response schema: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeOracleSchemaViolation, "validate oracle payload", err)
	}

	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeOracleSchemaViolation, "map oracle payload", err)
	}
	return result, nil
}

// stripCodeFence removes a surrounding markdown code fence, which some
// models emit even when asked for bare JSON.
func stripCodeFence(payload []byte) []byte {
	trimmed := bytes.TrimSpace(payload)
	if !bytes.HasPrefix(trimmed, []byte("```")) {
		return trimmed
	}
	trimmed = bytes.TrimPrefix(trimmed, []byte("```"))
	if nl := bytes.IndexByte(trimmed, '\n'); nl >= 0 {
		trimmed = trimmed[nl+1:]
	}
	trimmed = bytes.TrimSuffix(bytes.TrimSpace(trimmed), []byte("```"))
	return bytes.TrimSpace(trimmed)
}
