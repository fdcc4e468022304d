// Package i18n renders user-facing error messages for a requested locale.
package i18n

import (
	"strings"
	"text/template"

	"golang.org/x/text/language"
)

// Code is a machine-readable error code. It mirrors errors.Code, which
// cannot be imported from here.
type Code = string

// BaseLocale is served when nothing better matches.
const BaseLocale = "en-US"

// Catalog holds the parsed message templates of one locale.
type Catalog struct {
	locale    string
	templates map[Code]*template.Template
	raw       map[Code]string
}

var (
	supported = []language.Tag{language.AmericanEnglish, language.BrazilianPortuguese}
	matcher   = language.NewMatcher(supported)
	catalogs  = map[string]*Catalog{
		"en-US": NewCatalog("en-US", enUSMessages),
		"pt-BR": NewCatalog("pt-BR", ptBRMessages),
	}
)

// ForLocale returns the catalog best matching locale, which may be a single
// tag or a full Accept-Language value.
func ForLocale(locale string) *Catalog {
	if cat, ok := catalogs[locale]; ok {
		return cat
	}
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return catalogs[BaseLocale]
	}
	if _, index, confidence := matcher.Match(tags...); confidence != language.No {
		if cat, ok := catalogs[supported[index].String()]; ok {
			return cat
		}
	}
	return catalogs[BaseLocale]
}

// NewCatalog parses messages for locale. A message that is not a valid
// template is served verbatim.
func NewCatalog(locale string, messages map[Code]string) *Catalog {
	cat := &Catalog{
		locale:    locale,
		templates: make(map[Code]*template.Template, len(messages)),
		raw:       make(map[Code]string, len(messages)),
	}
	for code, text := range messages {
		cat.raw[code] = text
		if tmpl, err := template.New(code).Option("missingkey=zero").Parse(text); err == nil {
			cat.templates[code] = tmpl
		}
	}
	return cat
}

// Locale returns the locale the catalog serves.
func (c *Catalog) Locale() string {
	return c.locale
}

// Format renders the message for code with metadata. Unknown codes render
// as the code itself.
func (c *Catalog) Format(code Code, metadata map[string]string) string {
	raw, ok := c.raw[code]
	if !ok {
		return code
	}
	tmpl, ok := c.templates[code]
	if !ok {
		return raw
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	var out strings.Builder
	if err := tmpl.Execute(&out, metadata); err != nil {
		return raw
	}
	return out.String()
}
