package container

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnresolvedBinding    = errors.New("container: unresolved binding")
	ErrCircularDependency   = errors.New("container: circular dependency")
	ErrScopeRequired        = errors.New("container: scoped binding resolved outside of a scope")
	ErrScopeClosed          = errors.New("container: scope is closed")
	ErrInvalidFactory       = errors.New("container: invalid factory")
	ErrInvalidCallable      = errors.New("container: value is not a function")
	ErrFactoryPanic         = errors.New("container: factory panicked")
	ErrInjectUnexported     = errors.New("container: inject tag on unexported field")
	ErrNilInstance          = errors.New("container: factory returned nil instance")
	ErrUnsupportedKey       = errors.New("container: key must be a reflect.Type or a string")
	ErrConstructorSignature = errors.New("container: constructor must return (T) or (T, error)")
)

// UnresolvedBindingError is returned when a key has no binding and cannot be auto-wired.
type UnresolvedBindingError struct {
	Key    any
	Path   []any
	Reason error
}

func (e *UnresolvedBindingError) Error() string {
	var b strings.Builder
	b.WriteString("container: unresolved binding ")
	b.WriteString(KeyString(e.Key))
	if len(e.Path) > 0 {
		b.WriteString(" (required by ")
		b.WriteString(formatPath(e.Path))
		b.WriteString(")")
	}
	if e.Reason != nil {
		b.WriteString(": ")
		b.WriteString(e.Reason.Error())
	}
	return b.String()
}

func (e *UnresolvedBindingError) Is(target error) bool {
	return target == ErrUnresolvedBinding
}

func (e *UnresolvedBindingError) Unwrap() error {
	return e.Reason
}

// CircularDependencyError names the dependency cycle found during resolution.
// Path starts and ends with the same key.
type CircularDependencyError struct {
	Path []any
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("container: circular dependency: %s", formatPath(e.Path))
}

func (e *CircularDependencyError) Is(target error) bool {
	return target == ErrCircularDependency
}

// IsCircularDependency reports whether err is (or wraps) a CircularDependencyError.
func IsCircularDependency(err error) bool {
	return errors.Is(err, ErrCircularDependency)
}

// IsUnresolved reports whether err is (or wraps) an UnresolvedBindingError.
func IsUnresolved(err error) bool {
	return errors.Is(err, ErrUnresolvedBinding)
}

// AsCircularDependency extracts the CircularDependencyError from err if present.
func AsCircularDependency(err error) (*CircularDependencyError, bool) {
	var ce *CircularDependencyError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

func formatPath(path []any) string {
	parts := make([]string, len(path))
	for i, k := range path {
		parts[i] = KeyString(k)
	}
	return strings.Join(parts, " -> ")
}
