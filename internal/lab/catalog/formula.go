package catalog

import "unicode"

// FormulaSegment is a run of formula text rendered either inline or as a
// subscript.
type FormulaSegment struct {
	Text      string
	Subscript bool
}

// FormulaSegments splits a formula so that digit runs can be rendered as
// subscripts, e.g. "H2SO4" -> H, 2, SO, 4.
func FormulaSegments(formula string) []FormulaSegment {
	var (
		out     []FormulaSegment
		current []rune
		digits  bool
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		out = append(out, FormulaSegment{Text: string(current), Subscript: digits})
		current = current[:0]
	}
	for _, r := range formula {
		isDigit := unicode.IsDigit(r)
		if len(current) > 0 && isDigit != digits {
			flush()
		}
		digits = isDigit
		current = append(current, r)
	}
	flush()
	return out
}
