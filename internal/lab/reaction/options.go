package reaction

import (
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/smartlab/internal/platform/errors"
)

// Concentration is the strength of the reactant solutions.
type Concentration string

const (
	ConcentrationDilute       Concentration = "dilute"
	ConcentrationConcentrated Concentration = "concentrated"
)

// ParseConcentration accepts "dilute" or "concentrated" in any case. Blank
// input yields the default.
func ParseConcentration(raw string) (Concentration, error) {
	switch c := Concentration(strings.ToLower(strings.TrimSpace(raw))); c {
	case "":
		return ConcentrationDilute, nil
	case ConcentrationDilute, ConcentrationConcentrated:
		return c, nil
	default:
		return "", apperrors.WithMetadata(apperrors.CodeOptionsInvalidConcentration,
			fmt.Sprintf("unknown concentration %q", raw),
			map[string]string{"Value": raw})
	}
}

// Options are the experiment conditions sent along with a request.
type Options struct {
	Concentration Concentration `json:"concentration"`
	UseIndicator  bool          `json:"use_indicator"`
}

// DefaultOptions returns dilute solutions without indicator.
func DefaultOptions() Options {
	return Options{Concentration: ConcentrationDilute}
}

// IndicatorLabel renders indicator presence the way the prompt states it.
func (o Options) IndicatorLabel() string {
	if o.UseIndicator {
		return "Present"
	}
	return "Absent"
}
