// Package lang carries the caller's preferred metadata locale through the
// request context. The TMDB proxy localizes titles, overviews, and genre
// names with it.
package lang

import (
	"context"
	"strings"
)

type ctxKey struct{}

// DefaultLocale is used when the request states no usable preference.
const DefaultLocale = "pl-PL"

// WithLocale attaches a request locale to ctx.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, ctxKey{}, locale)
}

// FromContext reads the request locale from ctx.
func FromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(ctxKey{})
	s, ok := v.(string)
	return s, ok && s != ""
}

// Locale returns the request locale or the default.
func Locale(ctx context.Context) string {
	if v, ok := FromContext(ctx); ok {
		return v
	}
	return DefaultLocale
}

// regions maps bare language tags onto the full locales TMDB expects.
var regions = map[string]string{
	"pl": "pl-PL",
	"en": "en-US",
	"de": "de-DE",
	"fr": "fr-FR",
	"es": "es-ES",
	"it": "it-IT",
}

// Normalize turns a language query value or the first Accept-Language tag
// into a TMDB locale. Unusable input yields the default.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexAny(raw, ",;"); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "*" {
		return DefaultLocale
	}
	// Already a full locale like pl-PL.
	if i := strings.IndexByte(raw, '-'); i > 0 {
		return strings.ToLower(raw[:i]) + "-" + strings.ToUpper(raw[i+1:])
	}
	if full, ok := regions[strings.ToLower(raw)]; ok {
		return full
	}
	return DefaultLocale
}
