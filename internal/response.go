package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/a-h/templ"
)

// Content types used by the built-in responses.
const (
	MIMEApplicationJSON = "application/json; charset=utf-8"
	MIMETextPlain       = "text/plain; charset=utf-8"
	MIMETextHTML        = "text/html; charset=utf-8"
	MIMEOctetStream     = "application/octet-stream"
)

// Response is the framework-level response produced by handlers and
// adapters and passed back through the middleware chain.
//
// The body is exactly one of a byte slice, a stream or a writer function.
// Middleware may inspect and modify status, headers and cookies until the
// Dispatcher prepares and writes it.
type Response struct {
	err      error
	Header   http.Header
	stream   io.Reader
	writeTo  func(ctx context.Context, w io.Writer) error
	body     []byte
	Cookies  []*http.Cookie
	Status   int
	prepared sync.Once
	drop     bool
}

// NewResponse creates an empty response with the given status.
func NewResponse(status int) *Response {
	return &Response{Status: status, Header: make(http.Header)}
}

// JSON encodes v eagerly so encoding failures surface before headers are sent.
func JSON(status int, v any) *Response {
	r := NewResponse(status)
	r.Header.Set("Content-Type", MIMEApplicationJSON)
	b, err := json.Marshal(v)
	if err != nil {
		r.err = err
		return r
	}
	r.body = append(b, '\n')
	return r
}

// Text creates a plain text response.
func Text(status int, s string) *Response {
	r := NewResponse(status)
	r.Header.Set("Content-Type", MIMETextPlain)
	r.body = []byte(s)
	return r
}

// HTML creates a response from an HTML string.
func HTML(status int, s string) *Response {
	r := NewResponse(status)
	r.Header.Set("Content-Type", MIMETextHTML)
	r.body = []byte(s)
	return r
}

// Blob creates a response from raw bytes with an explicit content type.
func Blob(status int, contentType string, b []byte) *Response {
	r := NewResponse(status)
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	r.body = b
	return r
}

// Stream creates a response that copies src to the client.
// If src implements io.Closer it is closed after writing.
func Stream(status int, contentType string, src io.Reader) *Response {
	r := NewResponse(status)
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	r.stream = src
	return r
}

// Render creates an HTML response rendered from a templ component.
// The component is rendered when the response is written.
func Render(status int, c templ.Component) *Response {
	r := NewResponse(status)
	r.Header.Set("Content-Type", MIMETextHTML)
	r.writeTo = c.Render
	return r
}

// Redirect creates a redirect response.
func Redirect(status int, url string) *Response {
	r := NewResponse(status)
	r.Header.Set("Location", url)
	return r
}

// NoContent creates a response without a body.
func NoContent(status int) *Response {
	return NewResponse(status)
}

// Err returns the error captured while building the response, if any.
func (r *Response) Err() error {
	return r.err
}

// Body returns the buffered body. Streamed and rendered bodies return nil.
func (r *Response) Body() []byte {
	return r.body
}

// SetBody replaces the body with b.
func (r *Response) SetBody(b []byte) *Response {
	r.body, r.stream, r.writeTo = b, nil, nil
	r.Header.Del("Content-Length")
	return r
}

// Buffered reports whether the body is held in memory.
func (r *Response) Buffered() bool {
	return r.stream == nil && r.writeTo == nil
}

// WithHeader sets a header and returns the response for chaining.
func (r *Response) WithHeader(key, value string) *Response {
	r.Header.Set(key, value)
	return r
}

// WithCookie appends a cookie and returns the response for chaining.
func (r *Response) WithCookie(c *http.Cookie) *Response {
	r.Cookies = append(r.Cookies, c)
	return r
}

// Prepare finalizes the response for req. It runs at most once.
//
// Cookies are forced Secure on https requests; Content-Length is set for
// buffered bodies; Content-Type defaults to octet-stream when a body is
// present; bodies are dropped for HEAD, 1xx, 204 and 304.
func (r *Response) Prepare(req *http.Request) {
	r.prepared.Do(func() {
		if r.Header == nil {
			r.Header = make(http.Header)
		}
		if r.Status == 0 {
			r.Status = http.StatusOK
		}

		if isHTTPS(req) {
			for _, c := range r.Cookies {
				c.Secure = true
			}
		}

		if !bodyAllowed(r.Status) {
			r.drop = true
			r.Header.Del("Content-Type")
			r.Header.Del("Content-Length")
			return
		}

		hasBody := len(r.body) > 0 || !r.Buffered()
		if hasBody && r.Header.Get("Content-Type") == "" {
			r.Header.Set("Content-Type", MIMEOctetStream)
		}
		if r.Buffered() {
			r.Header.Set("Content-Length", strconv.Itoa(len(r.body)))
		}

		if req != nil && req.Method == http.MethodHead {
			r.drop = true
		}
	})
}

// Write sends the prepared response to w.
func (r *Response) Write(ctx context.Context, w http.ResponseWriter) error {
	if r.err != nil {
		return r.err
	}

	h := w.Header()
	for k, v := range r.Header {
		h[k] = append(h[k][:0:0], v...)
	}
	for _, c := range r.Cookies {
		if v := c.String(); v != "" {
			h.Add("Set-Cookie", v)
		}
	}
	w.WriteHeader(r.Status)

	if closer, ok := r.stream.(io.Closer); ok {
		defer closer.Close()
	}
	if r.drop {
		return nil
	}

	switch {
	case r.writeTo != nil:
		return r.writeTo(ctx, w)
	case r.stream != nil:
		_, err := io.Copy(w, r.stream)
		return err
	default:
		_, err := w.Write(r.body)
		return err
	}
}

// Materialize renders a writer-func body into memory so middleware can
// read or rewrite it. Streams are left untouched.
func (r *Response) Materialize(ctx context.Context) error {
	if r.writeTo == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := r.writeTo(ctx, &buf); err != nil {
		return err
	}
	r.writeTo = nil
	r.body = buf.Bytes()
	return nil
}

func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status < 200:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}

func isHTTPS(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	proto := r.Header.Get("X-Forwarded-Proto")
	if i := strings.IndexByte(proto, ','); i >= 0 {
		proto = proto[:i]
	}
	return strings.EqualFold(strings.TrimSpace(proto), "https")
}
