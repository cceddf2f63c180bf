package reaction

import "strings"

// NoReaction is the equation the oracle reports when nothing happens.
const NoReaction = "No Reaction"

// Result is a validated oracle answer.
type Result struct {
	Equation         string `json:"equation"`
	Phenomena        string `json:"phenomena"`
	Properties       string `json:"properties"`
	ImageDescription string `json:"imageDescription"`
	SafetyWarning    string `json:"safetyWarning"`
	HexColor         string `json:"hex_color"`
	HasGas           bool   `json:"has_gas"`
	HasPrecipitate   bool   `json:"has_precipitate"`
	PrecipitateColor string `json:"precipitate_color,omitempty"`
	IndicatorColor   string `json:"indicatorColor,omitempty"`
}

// IsNoReaction reports whether the oracle found no reaction.
func (r Result) IsNoReaction() bool {
	return strings.EqualFold(strings.TrimSpace(r.Equation), NoReaction)
}
