package sanitizer

import (
	"errors"
	"reflect"
	"strings"
)

// ErrNotPointer is returned when SanitizeStruct receives a non-pointer.
var ErrNotPointer = errors.New("sanitizer: target must be a non-nil pointer to a struct")

// SanitizeStruct rewrites string fields according to their sanitize tag.
// Rules are comma separated and applied in order:
//
//	trim   surrounding whitespace
//	lower  lower case
//	upper  upper case
//	strip  remove all HTML
//	html   keep safe formatting HTML only
//	space  collapse runs of whitespace
//
// Rules added with RegisterPolicy run their bluemonday policy. Unknown rules
// are ignored.
//
// Nested structs, pointers to structs and string slices are walked.
func SanitizeStruct(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return ErrNotPointer
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return ErrNotPointer
	}
	walk(rv)
	return nil
}

func walk(rv reflect.Value) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		fv := rv.Field(i)
		rules := f.Tag.Get("sanitize")

		switch fv.Kind() {
		case reflect.String:
			if rules != "" {
				fv.SetString(apply(fv.String(), rules))
			}
		case reflect.Slice:
			if rules != "" && fv.Type().Elem().Kind() == reflect.String {
				for j := 0; j < fv.Len(); j++ {
					fv.Index(j).SetString(apply(fv.Index(j).String(), rules))
				}
			}
		case reflect.Struct:
			walk(fv)
		case reflect.Pointer:
			if !fv.IsNil() && fv.Elem().Kind() == reflect.Struct {
				walk(fv.Elem())
			}
		}
	}
}

func apply(s, rules string) string {
	for _, rule := range strings.Split(rules, ",") {
		switch strings.TrimSpace(rule) {
		case "trim":
			s = strings.TrimSpace(s)
		case "lower":
			s = strings.ToLower(s)
		case "upper":
			s = strings.ToUpper(s)
		case "strip":
			s = StripHTML(s)
		case "html":
			s = SanitizeHTML(s)
		case "space":
			s = strings.Join(strings.Fields(s), " ")
		default:
			if p, ok := policyFor(strings.TrimSpace(rule)); ok {
				s = p.Sanitize(s)
			}
		}
	}
	return s
}
