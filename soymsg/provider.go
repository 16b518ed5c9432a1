package soymsg

import (
	"strings"

	"golang.org/x/text/language"
)

// MapProvider is an in-memory Provider backed by a fixed set of locale
// bundles, keyed by canonicalized BCP 47 tag so "en-US", "en_US", and
// "EN-us" all resolve to the same bundle. It is the explicit, passed-in
// message catalog value the design notes call for, in place of a
// process-wide registry.
type MapProvider struct {
	bundles map[string]Bundle
}

// NewMapProvider builds a MapProvider from locale->Bundle pairs,
// canonicalizing each key. A tag language.Parse can't make sense of is kept
// verbatim (lowercased) rather than rejected outright, since message
// catalogs are often populated from externally-curated locale lists that
// don't always validate as strict BCP 47.
func NewMapProvider(bundles map[string]Bundle) *MapProvider {
	var m = make(map[string]Bundle, len(bundles))
	for locale, b := range bundles {
		m[canonicalLocale(locale)] = b
	}
	return &MapProvider{bundles: m}
}

// Bundle implements Provider. A locale with no exact bundle, once
// canonicalized, falls back to an empty bundle, matching Provider's
// documented contract that an unmatched locale causes all messages to use
// their source text.
func (p *MapProvider) Bundle(locale string) Bundle {
	if b, ok := p.bundles[canonicalLocale(locale)]; ok {
		return b
	}
	return emptyBundle{locale: locale}
}

func canonicalLocale(locale string) string {
	// BCP 47 uses hyphens, but locale identifiers are commonly written
	// POSIX-style with underscores ("en_US"); normalize before parsing so
	// both spellings land on the same bundle.
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return strings.ToLower(locale)
	}
	return tag.String()
}

type emptyBundle struct{ locale string }

func (b emptyBundle) Locale() string             { return b.locale }
func (b emptyBundle) Message(id uint64) *Message { return nil }
func (b emptyBundle) PluralCase(n int) int       { return int(PluralSpecOther) }
