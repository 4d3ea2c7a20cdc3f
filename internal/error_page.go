package internal

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"
)

// errorPage renders a minimal HTML page for an error payload.
func errorPage(p ErrorPayload) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		title := fmt.Sprintf("%d %s", p.Status, http.StatusText(p.Status))

		b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head><meta charset=\"utf-8\"><title>")
		b.WriteString(html.EscapeString(title))
		b.WriteString("</title></head>\n<body>\n<h1>")
		b.WriteString(html.EscapeString(title))
		b.WriteString("</h1>\n<p>")
		b.WriteString(html.EscapeString(p.Message))
		b.WriteString("</p>\n")

		if p.Detail != "" {
			fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(p.Detail))
		}
		if len(p.Errors) > 0 {
			b.WriteString("<ul>\n")
			for _, fe := range p.Errors {
				fmt.Fprintf(&b, "<li><code>%s</code> %s</li>\n",
					html.EscapeString(strings.Join(fe.Location, ".")),
					html.EscapeString(fe.Message))
			}
			b.WriteString("</ul>\n")
		}
		if p.RequestID != "" {
			fmt.Fprintf(&b, "<p><small>Request ID: %s</small></p>\n", html.EscapeString(p.RequestID))
		}
		if d := p.Debug; d != nil {
			fmt.Fprintf(&b, "<h2>%s</h2>\n", html.EscapeString(d.Type))
			if d.Location != "" {
				fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(d.Location))
			}
			if len(d.Trace) > 0 {
				fmt.Fprintf(&b, "<pre>%s</pre>\n", html.EscapeString(strings.Join(d.Trace, "\n")))
			}
		}
		b.WriteString("</body>\n</html>\n")

		_, err := io.WriteString(w, b.String())
		return err
	})
}
