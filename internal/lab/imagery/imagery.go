// Package imagery builds display-only image URLs for substances and results.
//
// Nothing here is fetched by the server; a broken image never affects lab
// state.
package imagery

import (
	"errors"
	"net/url"
	"strings"
)

const (
	// DefaultResultBaseURL serves a stable picture seeded by free text.
	DefaultResultBaseURL = "https://picsum.photos/seed"
	// DefaultStructureBaseURL is PubChem's compound-by-name PNG endpoint.
	DefaultStructureBaseURL = "https://pubchem.ncbi.nlm.nih.gov/rest/pug/compound/name"
	// DefaultPlaceholderBaseURL renders a text placeholder image.
	DefaultPlaceholderBaseURL = "https://via.placeholder.com/400x300"
)

// ErrTextRequired is returned when the URL key is blank.
var ErrTextRequired = errors.New("image text is required")

// Builder resolves image URLs against configurable hosts.
type Builder struct {
	resultBase      string
	structureBase   string
	placeholderBase string
}

// New builds a Builder. A blank resultBase uses DefaultResultBaseURL.
func New(resultBase string) *Builder {
	resultBase = strings.TrimRight(strings.TrimSpace(resultBase), "/")
	if resultBase == "" {
		resultBase = DefaultResultBaseURL
	}
	return &Builder{
		resultBase:      resultBase,
		structureBase:   DefaultStructureBaseURL,
		placeholderBase: DefaultPlaceholderBaseURL,
	}
}

// ResultImageURL returns a 600x600 image keyed by the oracle's image
// description.
func (b *Builder) ResultImageURL(description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", ErrTextRequired
	}
	return b.resultBase + "/" + url.PathEscape(description) + "/600/600", nil
}

// StructureURL returns the molecular structure image for a substance name.
func (b *Builder) StructureURL(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrTextRequired
	}
	return b.structureBase + "/" + url.PathEscape(name) + "/PNG", nil
}

// PlaceholderURL returns the fallback image shown when a structure image
// fails to load.
func (b *Builder) PlaceholderURL(formula string) (string, error) {
	formula = strings.TrimSpace(formula)
	if formula == "" {
		return "", ErrTextRequired
	}
	q := url.Values{}
	q.Set("text", formula+" Structure")
	return b.placeholderBase + "?" + q.Encode(), nil
}
