package reaction

import (
	"fmt"

	"github.com/louisbranch/smartlab/internal/lab/catalog"
	apperrors "github.com/louisbranch/smartlab/internal/platform/errors"
)

// ReactantCount is the number of substances a request carries.
const ReactantCount = 2

// Reactant is the part of a substance the oracle sees.
type Reactant struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Formula  string           `json:"formula"`
	Category catalog.Category `json:"category"`
}

// Request is an immutable snapshot of one simulation call.
type Request struct {
	Reactants [ReactantCount]Reactant `json:"reactants"`
	Options   Options                 `json:"options"`
}

// NewRequest snapshots exactly two substances and the options. Any other
// count is SIMULATION_INVALID_SELECTION_SIZE.
func NewRequest(substances []catalog.Substance, opts Options) (Request, error) {
	if len(substances) != ReactantCount {
		return Request{}, apperrors.WithMetadata(apperrors.CodeSimulationInvalidSelectionSize,
			fmt.Sprintf("need %d substances, have %d", ReactantCount, len(substances)),
			map[string]string{"Count": fmt.Sprint(len(substances))})
	}
	if opts.Concentration == "" {
		opts.Concentration = ConcentrationDilute
	}
	var req Request
	for i, s := range substances {
		req.Reactants[i] = Reactant{
			ID:       s.ID,
			Name:     s.Name,
			Formula:  s.Formula,
			Category: s.Category,
		}
	}
	req.Options = opts
	return req, nil
}

// ReactantIDs returns the catalog ids of both reactants in order.
func (r Request) ReactantIDs() []string {
	return []string{r.Reactants[0].ID, r.Reactants[1].ID}
}
