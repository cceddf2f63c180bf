package reaction

import (
	"fmt"
	"strings"
)

// BuildPrompt renders the natural-language instruction sent to the oracle.
func BuildPrompt(req Request) string {
	reactants := make([]string, 0, len(req.Reactants))
	for _, r := range req.Reactants {
		reactants = append(reactants, fmt.Sprintf("%s (%s, Category: %s)", r.Name, r.Formula, r.Category))
	}
	concentration := req.Options.Concentration
	if concentration == "" {
		concentration = ConcentrationDilute
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a distinguished Professor of Chemistry. Analyze the interaction between exactly these substances: %s.\n\n", strings.Join(reactants, ", "))
	b.WriteString("Context:\n")
	fmt.Fprintf(&b, "- Concentration: %s\n", concentration)
	fmt.Fprintf(&b, "- Phenolphthalein Indicator: %s\n\n", req.Options.IndicatorLabel())
	b.WriteString("Your Task:\n")
	b.WriteString("1. Determine if a chemical reaction occurs.\n")
	b.WriteString("2. If a reaction occurs, provide the FULLY BALANCED chemical equation including all stoichiometric coefficients (e.g., 2H2 + O2 -> 2H2O). Ensure the number of atoms for each element is equal on both sides.\n")
	fmt.Fprintf(&b, "3. If NO reaction occurs, you MUST state %q in the equation field, but still provide a scientifically accurate hex_color for the resulting mixture of the two substances.\n\n", NoReaction)
	b.WriteString("Return the result in strict JSON format with these fields:\n")
	for _, f := range ResponseFields() {
		fmt.Fprintf(&b, "- %s (%s", f.Name, f.Kind)
		if !f.Required {
			b.WriteString(", optional")
		}
		fmt.Fprintf(&b, "): %s\n", f.Description)
	}
	b.WriteString("\nBe scientifically precise. Consider the concentration and indicator effects.")
	return b.String()
}
