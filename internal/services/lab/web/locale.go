package web

import (
	"net/http"
	"strings"

	i18ncatalog "github.com/louisbranch/smartlab/internal/platform/i18n/catalog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const localeQueryParam = "lang"

// localizer resolves the request locale against the embedded bundles.
type localizer struct {
	tags    []language.Tag
	matcher language.Matcher
}

func newLocalizer(bundle *i18ncatalog.Bundle) *localizer {
	tags := bundle.Tags()
	if len(tags) == 0 {
		tags = []language.Tag{language.MustParse(i18ncatalog.BaseLocale)}
	}
	return &localizer{tags: tags, matcher: language.NewMatcher(tags)}
}

// locale picks the supported locale for r. An explicit ?lang= wins over
// Accept-Language.
func (l *localizer) locale(r *http.Request) string {
	if r == nil {
		return l.tags[0].String()
	}
	_, idx := language.MatchStrings(l.matcher,
		strings.TrimSpace(r.URL.Query().Get(localeQueryParam)),
		r.Header.Get("Accept-Language"),
	)
	if idx < 0 || idx >= len(l.tags) {
		idx = 0
	}
	return l.tags[idx].String()
}

func (l *localizer) printer(locale string) *message.Printer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = l.tags[0]
	}
	return message.NewPrinter(tag)
}
