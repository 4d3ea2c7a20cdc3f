package internal

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/expanse/pkg/sanitizer"
)

// DefaultMaxBodyBytes caps request bodies decoded by Bind and Body[T].
const DefaultMaxBodyBytes int64 = 10 << 20

const maxMultipartMemory = 32 << 20

// Body is a handler parameter decoded from the request body (JSON or form),
// sanitized and validated before the handler runs.
//
//	func create(in expanse.Body[CreateUser]) (*User, error)
type Body[T any] struct {
	Value T
}

func (b *Body[T]) bindRequest(c Context) error { return bindBody(c, &b.Value) }

// Query is a handler parameter decoded from the query string.
type Query[T any] struct {
	Value T
}

func (q *Query[T]) bindRequest(c Context) error { return bindQuery(c, &q.Value) }

// Path is a handler parameter decoded from the converted path parameters.
type Path[T any] struct {
	Value T
}

func (p *Path[T]) bindRequest(c Context) error { return bindPath(c, &p.Value) }

func bindBody(c Context, v any) error {
	r := c.Request()
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch {
	case ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data":
		var err error
		if ct == "multipart/form-data" {
			err = r.ParseMultipartForm(maxMultipartMemory)
		} else {
			err = r.ParseForm()
		}
		if err != nil {
			return NewValidationError(FieldError{
				Location: []string{"body"},
				Type:     "form_invalid",
				Message:  err.Error(),
			})
		}
		if ve := decodeValues(r.PostForm, "form", "body", v); ve != nil {
			return ve
		}
	case ct == "" || ct == "application/json" || strings.HasSuffix(ct, "+json"):
		if err := decodeJSON(c, v); err != nil {
			return err
		}
	default:
		return NewHTTPError(http.StatusUnsupportedMediaType, "", WithDetail("unsupported content type "+ct))
	}

	return sanitizeAndValidate("body", v)
}

func bindQuery(c Context, v any) error {
	if ve := decodeValues(c.Request().URL.Query(), "query", "query", v); ve != nil {
		return ve
	}
	return sanitizeAndValidate("query", v)
}

func bindPath(c Context, v any) error {
	params := c.Params()
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("bind path: %T is not a pointer to struct", v)
	}

	ve := &ValidationError{}
	eachField(rv.Elem(), "param", func(name string, fv reflect.Value) {
		typed, ok := params.Get(name)
		if !ok {
			return
		}
		if tv := reflect.ValueOf(typed); tv.Type().AssignableTo(fv.Type()) {
			fv.Set(tv)
			return
		}
		if err := setField(fv, []string{params.Raw(name)}); err != nil {
			ve.Add([]string{"path", name}, typeErrorKind(fv.Type()), err.Error())
		}
	})
	if len(ve.Errors) > 0 {
		return ve
	}
	return validateStruct("path", v)
}

func decodeJSON(c Context, v any) error {
	r := c.Request()
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	dec := json.NewDecoder(http.MaxBytesReader(c.Writer(), r.Body, DefaultMaxBodyBytes))
	err := dec.Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		sizeErr   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &sizeErr):
		return NewHTTPError(http.StatusRequestEntityTooLarge, "", WithError(err))
	case errors.As(err, &typeErr):
		loc := []string{"body"}
		if typeErr.Field != "" {
			loc = append(loc, strings.Split(typeErr.Field, ".")...)
		}
		return NewValidationError(FieldError{
			Location: loc,
			Type:     typeErrorKind(typeErr.Type),
			Message:  fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
		})
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return NewValidationError(FieldError{
			Location: []string{"body"},
			Type:     "json_invalid",
			Message:  err.Error(),
		})
	}
	return NewValidationError(FieldError{Location: []string{"body"}, Type: "json_invalid", Message: err.Error()})
}

func sanitizeAndValidate(source string, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.Elem().Kind() == reflect.Struct {
		if err := sanitizer.SanitizeStruct(v); err != nil {
			return fmt.Errorf("sanitize %s: %w", source, err)
		}
	}
	return validateStruct(source, v)
}

// decodeValues fills the struct behind dst from url values keyed by tag.
// Conversion failures are collected into a single ValidationError.
func decodeValues(values url.Values, tag, source string, dst any) *ValidationError {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return NewValidationError(FieldError{Location: []string{source}, Type: "type_error", Message: "invalid target"})
	}
	rv = rv.Elem()

	switch m := dst.(type) {
	case *map[string]string:
		*m = make(map[string]string, len(values))
		for k := range values {
			(*m)[k] = values.Get(k)
		}
		return nil
	case *map[string][]string:
		*m = map[string][]string(values)
		return nil
	case *url.Values:
		*m = values
		return nil
	}
	if rv.Kind() != reflect.Struct {
		return NewValidationError(FieldError{Location: []string{source}, Type: "type_error", Message: "invalid target"})
	}

	ve := &ValidationError{}
	eachField(rv, tag, func(name string, fv reflect.Value) {
		raw, ok := values[name]
		if !ok || len(raw) == 0 {
			return
		}
		if err := setField(fv, raw); err != nil {
			ve.Add([]string{source, name}, typeErrorKind(fv.Type()), err.Error())
		}
	})
	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// eachField calls fn for every settable field, walking embedded structs.
// Field names come from tag, then the json tag, then the Go name.
func eachField(rv reflect.Value, tag string, fn func(name string, fv reflect.Value)) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		fv := rv.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			eachField(fv, tag, fn)
			continue
		}
		if !f.IsExported() || !fv.CanSet() {
			continue
		}

		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "" {
			name, _, _ = strings.Cut(f.Tag.Get("json"), ",")
		}
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		fn(name, fv)
	}
}

var (
	durationType        = reflect.TypeFor[time.Duration]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

func setField(fv reflect.Value, raw []string) error {
	t := fv.Type()

	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return fv.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw[0]))
	}

	switch t.Kind() {
	case reflect.Pointer:
		v := reflect.New(t.Elem())
		if err := setField(v.Elem(), raw); err != nil {
			return err
		}
		fv.Set(v)
		return nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			fv.SetBytes([]byte(raw[0]))
			return nil
		}
		s := reflect.MakeSlice(t, len(raw), len(raw))
		for i, item := range raw {
			if err := setField(s.Index(i), []string{item}); err != nil {
				return err
			}
		}
		fv.Set(s)
		return nil
	}
	return setScalar(fv, raw[0])
}

func setScalar(fv reflect.Value, s string) error {
	if fv.Type() == durationType {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q", s)
		}
		fv.SetInt(int64(d))
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", s)
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, fv.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer %q", s)
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, fv.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid unsigned integer %q", s)
		}
		fv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(s, fv.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		fv.SetFloat(n)
	default:
		return fmt.Errorf("unsupported field type %s", fv.Type())
	}
	return nil
}

func typeErrorKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "type_error.integer"
	case reflect.Float32, reflect.Float64:
		return "type_error.float"
	case reflect.Bool:
		return "type_error.bool"
	}
	return "type_error." + strings.ToLower(t.Name())
}
