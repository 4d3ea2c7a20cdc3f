package internal

import "reflect"

// ContextValue returns the request context value stored under key as T,
// or the zero value.
func ContextValue[T any](c Context, key any) T {
	if v, ok := c.Get(key).(T); ok {
		return v
	}
	var zero T
	return zero
}

// Param returns the converted path parameter as T. Typed patterns such as
// {id:int} already hold a converted value; otherwise the raw segment is parsed.
// Returns the zero value when the parameter is missing or does not fit T.
func Param[T ~string | ~int | ~int64 | ~float64 | ~bool](c Context, name string) T {
	if v, ok := c.Params().Get(name); ok {
		if typed, ok := v.(T); ok {
			return typed
		}
	}
	v, _ := convertParam[T](c.Param(name))
	return v
}

// QueryParam returns the query parameter as T, or the zero value.
func QueryParam[T ~string | ~int | ~int64 | ~float64 | ~bool](c Context, name string) T {
	v, _ := convertParam[T](c.Query(name))
	return v
}

// QueryParamDefault retrieves a typed query parameter with a default value.
// Returns defaultValue if the parameter is empty or cannot be parsed.
func QueryParamDefault[T ~string | ~int | ~int64 | ~float64 | ~bool](c Context, name string, defaultValue T) T {
	raw := c.Query(name)
	if raw == "" {
		return defaultValue
	}
	v, ok := convertParam[T](raw)
	if !ok {
		return defaultValue
	}
	return v
}

// convertParam converts a raw string to the target type T.
// Returns the converted value and true on success, or the zero value and false on failure.
func convertParam[T ~string | ~int | ~int64 | ~float64 | ~bool](raw string) (T, bool) {
	var zero T
	rv := reflect.ValueOf(&zero).Elem()
	if err := setScalar(rv, raw); err != nil {
		return zero, false
	}
	return zero, true
}
