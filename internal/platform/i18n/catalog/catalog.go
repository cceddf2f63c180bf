// Package catalog loads the embedded locale message bundles shared by lab
// error messages and web copy.
//
// Files live at locales/<locale>/<namespace>.yaml. Keys are unique per
// locale across namespaces so x/text printers can resolve them without a
// namespace prefix.
package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the locale every other locale falls back to.
const BaseLocale = "en-US"

type localeFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

// Bundle holds messages keyed by locale, then namespace, then key.
type Bundle struct {
	messages map[string]map[string]map[string]string
}

//go:embed locales/*/*.yaml
var embedded embed.FS

var defaultBundle = mustLoadDefault()

// Default returns the embedded bundle, already registered with x/text.
func Default() *Bundle {
	return defaultBundle
}

// LoadEmbedded parses the catalogs compiled into the binary.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embedded)
}

// LoadFromFS parses every locales/*/*.yaml file in fsys.
func LoadFromFS(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	b := &Bundle{messages: map[string]map[string]map[string]string{}}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file localeFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := b.add(p, file); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", p, err)
		}
	}
	if !b.HasLocale(BaseLocale) {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	return b, nil
}

func (b *Bundle) add(p string, file localeFile) error {
	locale := strings.TrimSpace(file.Locale)
	namespace := strings.TrimSpace(file.Namespace)
	if dir := path.Base(path.Dir(p)); locale != dir {
		return fmt.Errorf("locale %q must match directory %q", locale, dir)
	}
	if name := strings.TrimSuffix(path.Base(p), path.Ext(p)); namespace != name {
		return fmt.Errorf("namespace %q must match file name %q", namespace, name)
	}
	if len(file.Messages) == 0 {
		return fmt.Errorf("messages are required")
	}

	namespaces := b.messages[locale]
	if namespaces == nil {
		namespaces = map[string]map[string]string{}
		b.messages[locale] = namespaces
	}
	if _, ok := namespaces[namespace]; ok {
		return fmt.Errorf("namespace %q defined twice for %s", namespace, locale)
	}

	out := make(map[string]string, len(file.Messages))
	for key, value := range file.Messages {
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("blank message key")
		}
		if _, ok := b.lookup(locale, key); ok {
			return fmt.Errorf("duplicate key %q in %s", key, locale)
		}
		out[key] = value
	}
	namespaces[namespace] = out
	return nil
}

func (b *Bundle) lookup(locale, key string) (string, bool) {
	for _, msgs := range b.messages[locale] {
		if value, ok := msgs[key]; ok {
			return value, true
		}
	}
	return "", false
}

// Register installs every message into the x/text/message default catalog,
// under the full tag and its base language.
func (b *Bundle) Register() error {
	if b == nil {
		return nil
	}
	for _, locale := range b.Locales() {
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("parse locale tag %q: %w", locale, err)
		}
		tags := []language.Tag{tag}
		if base, conf := tag.Base(); conf != language.No {
			if baseTag := language.Make(base.String()); baseTag != tag {
				tags = append(tags, baseTag)
			}
		}
		for key, value := range b.LocaleMessages(locale) {
			for _, t := range tags {
				if err := message.SetString(t, key, value); err != nil {
					return fmt.Errorf("register %s/%s: %w", locale, key, err)
				}
			}
		}
	}
	return nil
}

// Tags lists every locale as a language tag with the base locale first,
// ready for language.NewMatcher.
func (b *Bundle) Tags() []language.Tag {
	if b == nil {
		return nil
	}
	tags := []language.Tag{language.MustParse(BaseLocale)}
	for _, locale := range b.Locales() {
		if locale == BaseLocale {
			continue
		}
		if tag, err := language.Parse(locale); err == nil {
			tags = append(tags, tag)
		}
	}
	return tags
}

// HasLocale reports whether locale has at least one namespace.
func (b *Bundle) HasLocale(locale string) bool {
	if b == nil {
		return false
	}
	_, ok := b.messages[strings.TrimSpace(locale)]
	return ok
}

// Locales returns the sorted locale identifiers.
func (b *Bundle) Locales() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.messages))
	for locale := range b.messages {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// LocaleMessages returns a copy of every message in locale.
func (b *Bundle) LocaleMessages(locale string) map[string]string {
	out := map[string]string{}
	if b == nil {
		return out
	}
	for _, msgs := range b.messages[strings.TrimSpace(locale)] {
		for key, value := range msgs {
			out[key] = value
		}
	}
	return out
}

// Message returns one value, falling back to BaseLocale.
func (b *Bundle) Message(locale, key string) (string, bool) {
	if b == nil {
		return "", false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}
	if value, ok := b.lookup(strings.TrimSpace(locale), key); ok {
		return value, true
	}
	return b.lookup(BaseLocale, key)
}

// Namespace returns a copy of one namespace and the locale that served it.
// Locales without the namespace resolve to BaseLocale.
func (b *Bundle) Namespace(locale, namespace string) (string, map[string]string) {
	locale = strings.TrimSpace(locale)
	namespace = strings.TrimSpace(namespace)
	if b == nil {
		return BaseLocale, map[string]string{}
	}
	msgs, ok := b.messages[locale][namespace]
	if !ok || len(msgs) == 0 {
		locale = BaseLocale
		msgs = b.messages[BaseLocale][namespace]
	}
	out := make(map[string]string, len(msgs))
	for key, value := range msgs {
		out[key] = value
	}
	return locale, out
}

func mustLoadDefault() *Bundle {
	b, err := LoadEmbedded()
	if err != nil {
		panic(err)
	}
	if err := b.Register(); err != nil {
		panic(err)
	}
	return b
}
