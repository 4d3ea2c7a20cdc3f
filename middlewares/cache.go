package middlewares

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/expanse/internal"
	"github.com/dmitrymomot/expanse/pkg/cache"
)

// ResponseCacheConfig configures the ResponseCache middleware.
type ResponseCacheConfig struct {
	// KeyFunc builds the cache key. Default: method-independent request URI
	// plus the values of VaryHeaders.
	KeyFunc     func(c internal.Context) string
	VaryHeaders []string
	TTL         time.Duration
}

// ResponseCacheOption configures ResponseCacheConfig.
type ResponseCacheOption func(*ResponseCacheConfig)

// WithCacheKey sets a custom key builder.
func WithCacheKey(fn func(c internal.Context) string) ResponseCacheOption {
	return func(cfg *ResponseCacheConfig) {
		cfg.KeyFunc = fn
	}
}

// WithCacheVary adds request headers to the default key, e.g. Accept-Language.
func WithCacheVary(headers ...string) ResponseCacheOption {
	return func(cfg *ResponseCacheConfig) {
		cfg.VaryHeaders = append(cfg.VaryHeaders, headers...)
	}
}

type cachedResponse struct {
	Header http.Header `json:"h"`
	Body   []byte      `json:"b"`
	Status int         `json:"s"`
}

// ResponseCache serves GET and HEAD responses from store.
//
// Only successful buffered responses without cookies are cached, and never
// when the handler sets Cache-Control no-store or private, or when the
// request carries Authorization. Responses carry X-Cache: HIT or MISS.
// Store failures are logged and the request proceeds uncached.
func ResponseCache(store cache.Store, ttl time.Duration, opts ...ResponseCacheOption) internal.Middleware {
	cfg := &ResponseCacheConfig{TTL: ttl}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c internal.Context) string {
			var b strings.Builder
			b.WriteString("resp:")
			b.WriteString(c.Request().URL.RequestURI())
			for _, h := range cfg.VaryHeaders {
				b.WriteString("|")
				b.WriteString(c.Header(h))
			}
			return b.String()
		}
	}

	return internal.Labeled("response_cache", internal.MiddlewareFunc(func(c internal.Context, next internal.Next) (*internal.Response, error) {
		req := c.Request()
		if (req.Method != http.MethodGet && req.Method != http.MethodHead) || req.Header.Get("Authorization") != "" {
			return next(c)
		}

		key := cfg.KeyFunc(c)
		data, err := store.Get(c, key)
		switch {
		case err == nil:
			var cr cachedResponse
			if err := json.Unmarshal(data, &cr); err == nil {
				resp := internal.NewResponse(cr.Status)
				for k, v := range cr.Header {
					resp.Header[k] = v
				}
				resp.Header.Set("X-Cache", "HIT")
				return resp.SetBody(cr.Body), nil
			}
			c.LogWarn("response cache: corrupt entry", "key", key)
		case !errors.Is(err, cache.ErrNotFound):
			c.LogWarn("response cache: get failed", "key", key, "error", err)
		}

		resp, err := next(c)
		if err != nil || resp == nil {
			return resp, err
		}
		resp.Header.Set("X-Cache", "MISS")

		if !cacheable(resp) {
			return resp, nil
		}
		if err := resp.Materialize(c); err != nil || !resp.Buffered() {
			return resp, nil
		}

		header := resp.Header.Clone()
		header.Del("X-Cache")
		entry, err := json.Marshal(cachedResponse{Status: resp.Status, Header: header, Body: resp.Body()})
		if err == nil {
			err = store.Set(c, key, entry, cfg.TTL)
		}
		if err != nil {
			c.LogWarn("response cache: set failed", "key", key, "error", err)
		}
		return resp, nil
	}))
}

func cacheable(resp *internal.Response) bool {
	if resp.Err() != nil || len(resp.Cookies) > 0 {
		return false
	}
	if resp.Status != 0 && resp.Status != http.StatusOK {
		return false
	}
	cc := strings.ToLower(resp.Header.Get("Cache-Control"))
	return !strings.Contains(cc, "no-store") && !strings.Contains(cc, "private")
}
