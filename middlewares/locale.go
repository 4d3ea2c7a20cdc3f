package middlewares

import (
	"context"

	"github.com/dmitrymomot/expanse/internal"
	"github.com/dmitrymomot/expanse/pkg/negotiate"
)

type localeKey struct{}

// LocaleConfig configures the Locale middleware.
type LocaleConfig struct {
	Extractor    internal.Extractor
	Supported    []string
	extractorSet bool
}

// LocaleOption configures LocaleConfig.
type LocaleOption func(*LocaleConfig)

// WithLocaleExtractor sets a custom language extractor chain.
// Accept-Language negotiation is still used when the chain finds nothing.
func WithLocaleExtractor(ext internal.Extractor) LocaleOption {
	return func(cfg *LocaleConfig) {
		cfg.Extractor = ext
		cfg.extractorSet = true
	}
}

// FromAcceptLanguage returns an ExtractorSource that matches the
// Accept-Language header against the supported languages.
func FromAcceptLanguage(supported []string) internal.ExtractorSource {
	return func(c internal.Context) (string, bool) {
		header := c.Header("Accept-Language")
		if header == "" {
			return "", false
		}
		return negotiate.MatchLanguage(header, supported...)
	}
}

// Locale resolves the request language and stores it in the context.
// The first supported language is the default. Explicit choices (the "lang"
// query parameter, then the "lang" cookie) win over Accept-Language, but
// only if they name a supported language.
//
// The chosen language is echoed in Content-Language.
func Locale(supported []string, opts ...LocaleOption) internal.Middleware {
	cfg := &LocaleConfig{Supported: supported}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Supported) == 0 {
		panic("middlewares: Locale needs at least one supported language")
	}

	// Default extractor: query → cookie
	if !cfg.extractorSet {
		cfg.Extractor = internal.NewExtractor(
			internal.FromQuery("lang"),
			internal.FromCookie("lang"),
		)
	}
	accept := FromAcceptLanguage(cfg.Supported)

	return internal.Labeled("locale", internal.MiddlewareFunc(func(c internal.Context, next internal.Next) (*internal.Response, error) {
		lang, ok := cfg.Extractor.Extract(c)
		if ok {
			// Normalize to the supported spelling; unknown values fall through.
			lang, ok = negotiate.MatchLanguage(lang, cfg.Supported...)
		}
		if !ok {
			if lang, ok = accept(c); !ok {
				lang = cfg.Supported[0]
			}
		}

		c.Set(localeKey{}, lang)
		c.SetHeader("Content-Language", lang)

		return next(c)
	}))
}

// GetLocale returns the language resolved by Locale.
// Returns an empty string if the middleware is not used.
func GetLocale(c internal.Context) string {
	return LocaleFromContext(c)
}

// LocaleFromContext is GetLocale for code holding only a context.Context.
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(localeKey{}).(string); ok {
		return v
	}
	return ""
}
