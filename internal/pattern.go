package internal

import (
	"fmt"
	"net/url"
	"strings"
)

type segmentKind uint8

const (
	segLiteral segmentKind = iota
	segParam
)

type segment struct {
	conv    *Converter
	literal string
	name    string
	kind    segmentKind
}

// pattern is a compiled route path such as /users/{id:int}/files/{rest:path}.
// Parameters occupy whole segments.
type pattern struct {
	raw      string
	segments []segment
	names    []string
}

// compilePattern parses raw using the named converters.
func compilePattern(raw string, convs map[string]*Converter) (*pattern, error) {
	if !strings.HasPrefix(raw, "/") {
		return nil, fmt.Errorf("%w: %q must start with /", ErrInvalidPattern, raw)
	}

	p := &pattern{raw: raw}
	seen := make(map[string]bool)
	parts := splitPattern(raw[1:])
	for i, part := range parts {
		if !strings.ContainsAny(part, "{}") {
			p.segments = append(p.segments, segment{kind: segLiteral, literal: part})
			continue
		}
		if !strings.HasPrefix(part, "{") || !strings.HasSuffix(part, "}") {
			return nil, fmt.Errorf("%w: %q: parameter must span a whole segment", ErrInvalidPattern, raw)
		}

		name, typ, _ := strings.Cut(part[1:len(part)-1], ":")
		if name == "" || strings.ContainsAny(name, "{}") {
			return nil, fmt.Errorf("%w: %q: empty or malformed parameter name", ErrInvalidPattern, raw)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: %q: duplicate parameter %q", ErrInvalidPattern, raw, name)
		}
		seen[name] = true

		conv, err := lookupConverter(typ, convs)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, raw, err)
		}
		if conv.Greedy && i != len(parts)-1 {
			return nil, fmt.Errorf("%w: %q: %q must be the last segment", ErrInvalidPattern, raw, name)
		}

		p.segments = append(p.segments, segment{kind: segParam, name: name, conv: conv})
		p.names = append(p.names, name)
	}
	return p, nil
}

func lookupConverter(typ string, convs map[string]*Converter) (*Converter, error) {
	if typ == "" {
		typ = "str"
	}
	if expr, ok := strings.CutPrefix(typ, "re:"); ok {
		return regexpConverter(expr)
	}
	conv, ok := convs[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConverter, typ)
	}
	return conv, nil
}

// splitPattern splits on slashes that are not inside braces, so inline
// expressions may contain repetition counts like {2,3}.
func splitPattern(s string) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
		case '/':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// splitPath splits an escaped request path into its segments.
func splitPath(escaped string) []string {
	return strings.Split(strings.TrimPrefix(escaped, "/"), "/")
}

// match converts the request segments against the pattern.
// A failed conversion is a non-match.
func (p *pattern) match(parts []string) (Params, bool) {
	n := len(p.segments)
	if len(parts) < n {
		return Params{}, false
	}
	last := n - 1
	greedy := n > 0 && p.segments[last].kind == segParam && p.segments[last].conv.Greedy
	if !greedy && len(parts) != n {
		return Params{}, false
	}

	var params Params
	for i, seg := range p.segments {
		if seg.kind == segLiteral {
			if unescape(parts[i]) != seg.literal {
				return Params{}, false
			}
			continue
		}

		var raw string
		if seg.conv.Greedy {
			segs := parts[i:]
			decoded := make([]string, len(segs))
			for j, s := range segs {
				decoded[j] = unescape(s)
			}
			raw = strings.Join(decoded, "/")
		} else {
			raw = unescape(parts[i])
			if raw == "" {
				return Params{}, false
			}
		}

		v, err := seg.conv.Convert(raw)
		if err != nil {
			return Params{}, false
		}
		params.add(seg.name, raw, v)
	}
	return params, true
}

// build renders the path for reverse URL generation. Used parameters are
// removed from params.
func (p *pattern) build(params map[string]any) (string, error) {
	var b strings.Builder
	for _, seg := range p.segments {
		b.WriteByte('/')
		if seg.kind == segLiteral {
			b.WriteString(seg.literal)
			continue
		}

		v, ok := params[seg.name]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrMissingURLParam, seg.name)
		}
		s, err := seg.conv.format(v)
		if err != nil {
			return "", fmt.Errorf("%w: %q: %w", ErrInvalidURLParam, seg.name, err)
		}
		delete(params, seg.name)

		if seg.conv.Greedy {
			subs := strings.Split(s, "/")
			for i, sub := range subs {
				subs[i] = url.PathEscape(sub)
			}
			b.WriteString(strings.Join(subs, "/"))
			continue
		}
		b.WriteString(url.PathEscape(s))
	}
	if b.Len() == 0 {
		return "/", nil
	}
	return b.String(), nil
}

func unescape(s string) string {
	if !strings.ContainsRune(s, '%') {
		return s
	}
	u, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return u
}

// Params holds converted path parameters in pattern order.
type Params struct {
	names  []string
	raw    []string
	values []any
}

func (p *Params) add(name, raw string, v any) {
	p.names = append(p.names, name)
	p.raw = append(p.raw, raw)
	p.values = append(p.values, v)
}

// Get returns the converted value of a parameter.
func (p Params) Get(name string) (any, bool) {
	for i, n := range p.names {
		if n == name {
			return p.values[i], true
		}
	}
	return nil, false
}

// Raw returns the unconverted, unescaped segment of a parameter.
func (p Params) Raw(name string) string {
	for i, n := range p.names {
		if n == name {
			return p.raw[i]
		}
	}
	return ""
}

// Names returns the parameter names in pattern order.
func (p Params) Names() []string {
	return append([]string(nil), p.names...)
}

// Len returns the number of parameters.
func (p Params) Len() int {
	return len(p.names)
}

// Map returns the converted values keyed by name.
func (p Params) Map() map[string]any {
	m := make(map[string]any, len(p.names))
	for i, n := range p.names {
		m[n] = p.values[i]
	}
	return m
}
