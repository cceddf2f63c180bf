// Package i18n renders localized user messages for lab error codes.
package i18n

import (
	"strings"
	"sync"
	"text/template"

	i18ncatalog "github.com/louisbranch/smartlab/internal/platform/i18n/catalog"
)

// Code is a machine-readable error code. It mirrors errors.Code as a plain
// string so this package does not import its caller.
type Code = string

// Catalog holds the parsed message templates of one locale.
type Catalog struct {
	locale    string
	templates map[Code]*template.Template
	raw       map[Code]string
}

// errorsNamespace is the catalog file holding error copy.
const errorsNamespace = "errors"

var (
	catalogsMu sync.Mutex
	catalogs   = map[string]*Catalog{}
)

// GetCatalog returns the catalog for locale, falling back to the base
// locale when the errors namespace is missing. Catalogs are built once.
func GetCatalog(locale string) *Catalog {
	requested := strings.TrimSpace(locale)
	if requested == "" {
		requested = i18ncatalog.BaseLocale
	}

	catalogsMu.Lock()
	defer catalogsMu.Unlock()
	if c, ok := catalogs[requested]; ok {
		return c
	}
	resolved, messages := i18ncatalog.Default().Namespace(requested, errorsNamespace)
	c, ok := catalogs[resolved]
	if !ok {
		c = NewCatalog(resolved, messages)
		catalogs[resolved] = c
	}
	catalogs[requested] = c
	return c
}

// NewCatalog parses messages as text templates. Messages that fail to
// parse are kept and rendered verbatim.
func NewCatalog(locale string, messages map[Code]string) *Catalog {
	c := &Catalog{
		locale:    locale,
		templates: make(map[Code]*template.Template, len(messages)),
		raw:       make(map[Code]string, len(messages)),
	}
	for code, text := range messages {
		c.raw[code] = text
		if t, err := template.New(code).Parse(text); err == nil {
			c.templates[code] = t
		}
	}
	return c
}

// Locale returns the locale that supplied this catalog's messages.
func (c *Catalog) Locale() string {
	return c.locale
}

// Format renders code with metadata. Unknown codes render as the code.
func (c *Catalog) Format(code Code, metadata map[string]string) string {
	text, ok := c.raw[code]
	if !ok {
		return code
	}
	t, ok := c.templates[code]
	if !ok {
		return text
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	var sb strings.Builder
	if err := t.Execute(&sb, metadata); err != nil {
		return text
	}
	return sb.String()
}
