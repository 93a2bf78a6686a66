// Package i18n renders user-visible messages for simulation error codes.
//
// Error codes must match the codes defined in internal/errors/codes.go.
// They are duplicated as strings here to avoid an import cycle.
package i18n

import (
	"golang.org/x/text/language"
)

// Catalog stores rendered messages for one locale.
type Catalog struct {
	locale   string
	messages map[string]string
}

// Locale returns the catalog's BCP 47 locale tag.
func (c *Catalog) Locale() string {
	if c == nil {
		return ""
	}
	return c.locale
}

// Message returns the localized message for a code, falling back to the code
// itself when no translation exists.
func (c *Catalog) Message(code string) string {
	if c == nil {
		return code
	}
	if msg, ok := c.messages[code]; ok {
		return msg
	}
	return code
}

var (
	supported = []language.Tag{
		language.AmericanEnglish, // en-US: first tag is the fallback
	}
	matcher  = language.NewMatcher(supported)
	catalogs = map[string]*Catalog{
		"en-US": enUSCatalog,
	}
)

// Lookup resolves the best catalog for a requested locale. Unknown or empty
// locales fall back to en-US.
func Lookup(locale string) *Catalog {
	tag, _ := language.MatchStrings(matcher, locale)
	if catalog, ok := catalogs[tag.String()]; ok {
		return catalog
	}
	return enUSCatalog
}

// Message resolves a locale and renders the message for a code in one step.
func Message(locale, code string) string {
	return Lookup(locale).Message(code)
}
