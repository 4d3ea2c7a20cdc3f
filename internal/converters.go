package internal

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/google/uuid"
)

// Converter turns a raw path segment into a typed value.
// A conversion error makes the route a non-match; it is never a 4xx/5xx.
type Converter struct {
	// Convert parses the raw, unescaped segment.
	Convert func(raw string) (any, error)

	// Format renders a value for reverse URL generation.
	// Defaults to fmt.Sprint followed by a Convert round trip.
	Format func(v any) (string, error)

	// Greedy converters consume the rest of the path, slashes included.
	// They may only appear in the last segment.
	Greedy bool
}

var slugRe = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

func defaultConverters() map[string]*Converter {
	return map[string]*Converter{
		"str": {
			Convert: func(raw string) (any, error) { return raw, nil },
		},
		"int": {
			Convert: func(raw string) (any, error) {
				if !isDigits(raw) {
					return nil, fmt.Errorf("not an integer: %q", raw)
				}
				return strconv.Atoi(raw)
			},
		},
		"float": {
			Convert: func(raw string) (any, error) {
				if raw == "" || raw[0] == '+' || raw[0] == '-' {
					return nil, fmt.Errorf("not a float: %q", raw)
				}
				return strconv.ParseFloat(raw, 64)
			},
			Format: func(v any) (string, error) {
				switch n := v.(type) {
				case float64:
					return strconv.FormatFloat(n, 'f', -1, 64), nil
				case float32:
					return strconv.FormatFloat(float64(n), 'f', -1, 32), nil
				}
				return fmt.Sprint(v), nil
			},
		},
		"uuid": {
			Convert: func(raw string) (any, error) { return uuid.Parse(raw) },
		},
		"slug": {
			Convert: func(raw string) (any, error) {
				if !slugRe.MatchString(raw) {
					return nil, fmt.Errorf("not a slug: %q", raw)
				}
				return raw, nil
			},
		},
		"path": {
			Convert: func(raw string) (any, error) { return raw, nil },
			Greedy:  true,
		},
	}
}

// regexpConverter builds the converter for an inline {name:re:expr} constraint.
// The expression is anchored to the whole segment.
func regexpConverter(expr string) (*Converter, error) {
	re, err := regexp.Compile("^(?:" + expr + ")$")
	if err != nil {
		return nil, err
	}
	return &Converter{
		Convert: func(raw string) (any, error) {
			if !re.MatchString(raw) {
				return nil, fmt.Errorf("%q does not match %s", raw, expr)
			}
			return raw, nil
		},
	}, nil
}

func (cv *Converter) format(v any) (string, error) {
	var (
		s   string
		err error
	)
	if cv.Format != nil {
		s, err = cv.Format(v)
	} else {
		s = fmt.Sprint(v)
	}
	if err != nil {
		return "", err
	}
	if _, err := cv.Convert(s); err != nil {
		return "", err
	}
	return s, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
