package internal

import (
	"net/http"
	"sync"
)

// gate cuts a detached context off from the response. Once closed, writes
// through the context are dropped. Gates nest: a context detached from a
// detached context is closed when either gate is.
type gate struct {
	parent *gate
	mu     sync.Mutex
	closed bool
}

// do runs fn unless g or one of its parents is closed, and reports whether
// it ran. fn runs with every gate in the chain held, so close waits for an
// in-flight write to finish.
func (g *gate) do(fn func()) bool {
	if g == nil {
		fn()
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	return g.parent.do(fn)
}

func (g *gate) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

func (g *gate) open() bool {
	return g.do(func() {})
}

// detach returns a copy of c for a goroutine the caller may stop waiting
// for, and the func that abandons it. The copy shares the request, scope
// and staged headers with c until abandoned.
func (c *requestContext) detach() (*requestContext, func()) {
	g := &gate{parent: c.gate}
	dc := *c
	dc.gate = g
	return &dc, g.close
}

// Detach hands c to a goroutine the caller may stop waiting for. After
// abandon is called, response writes, headers and cookies set through the
// returned Context are discarded, so the caller can render its own response
// while the goroutine winds down.
//
// Contexts not created by the Dispatcher are returned as is.
func Detach(c Context) (detached Context, abandon func()) {
	rc, ok := c.(*requestContext)
	if !ok {
		return c, func() {}
	}
	return rc.detach()
}

// gatedWriter forwards to the response writer while its gate is open.
type gatedWriter struct {
	w       *ResponseWriter
	gate    *gate
	discard http.Header
}

func (w *gatedWriter) Header() http.Header {
	if w.gate.open() {
		return w.w.Header()
	}
	if w.discard == nil {
		w.discard = make(http.Header)
	}
	return w.discard
}

func (w *gatedWriter) WriteHeader(code int) {
	w.gate.do(func() { w.w.WriteHeader(code) })
}

func (w *gatedWriter) Write(b []byte) (n int, err error) {
	if !w.gate.do(func() { n, err = w.w.Write(b) }) {
		return len(b), nil
	}
	return n, err
}

func (w *gatedWriter) Flush() {
	w.gate.do(w.w.Flush)
}

func (w *gatedWriter) Status() int { return w.w.Status() }

func (w *gatedWriter) Written() bool { return w.w.Written() }
