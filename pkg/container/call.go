package container

import (
	"fmt"
	"reflect"
)

var errorType = reflect.TypeFor[error]()

// ArgSource supplies a value for a parameter of type t.
// It returns ok=false to let the next source (and finally the container) try.
type ArgSource func(t reflect.Type) (v reflect.Value, ok bool, err error)

// Callable is a function whose signature has been inspected once so it can be
// invoked many times with container-resolved arguments.
type Callable struct {
	fn     reflect.Value
	typ    reflect.Type
	in     []reflect.Type
	hasErr bool
}

// Compile inspects fn. Variadic functions are not supported.
func Compile(fn any) (*Callable, error) {
	if fn == nil {
		return nil, ErrInvalidCallable
	}
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %T", ErrInvalidCallable, fn)
	}
	if t.IsVariadic() {
		return nil, fmt.Errorf("%w: variadic %s", ErrInvalidCallable, t)
	}
	in := make([]reflect.Type, t.NumIn())
	for i := range in {
		in[i] = t.In(i)
	}
	return &Callable{
		fn:     v,
		typ:    t,
		in:     in,
		hasErr: t.NumOut() > 0 && t.Out(t.NumOut()-1) == errorType,
	}, nil
}

// Type returns the function type.
func (cl *Callable) Type() reflect.Type { return cl.typ }

// In returns the parameter types.
func (cl *Callable) In() []reflect.Type { return cl.in }

// Invoke resolves every parameter (sources first, then r) and calls the
// function. A trailing error result is returned as err; remaining results are
// returned in order.
func (cl *Callable) Invoke(r Resolver, sources ...ArgSource) ([]any, error) {
	args := make([]reflect.Value, len(cl.in))
	for i, t := range cl.in {
		v, err := resolveArg(r, t, sources)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	out := cl.fn.Call(args)
	if cl.hasErr {
		last := out[len(out)-1]
		out = out[:len(out)-1]
		if !last.IsNil() {
			return valuesOf(out), last.Interface().(error)
		}
	}
	return valuesOf(out), nil
}

// ExtraArgs builds a source from explicit values; each value is used at most
// once, for the first parameter it is assignable to.
func ExtraArgs(extra ...any) ArgSource {
	used := make([]bool, len(extra))
	return func(t reflect.Type) (reflect.Value, bool, error) {
		for i, v := range extra {
			if used[i] || v == nil {
				continue
			}
			rv := reflect.ValueOf(v)
			if rv.Type().AssignableTo(t) {
				used[i] = true
				return rv, true, nil
			}
		}
		return reflect.Value{}, false, nil
	}
}

func call(fr *frame, fn any, extra []any) ([]any, error) {
	cl, err := Compile(fn)
	if err != nil {
		return nil, err
	}
	return cl.Invoke(fr, ExtraArgs(extra...))
}

func resolveArg(r Resolver, t reflect.Type, sources []ArgSource) (reflect.Value, error) {
	for _, src := range sources {
		if src == nil {
			continue
		}
		v, ok, err := src(t)
		if err != nil {
			return reflect.Value{}, err
		}
		if ok {
			return v, nil
		}
	}

	dep, err := r.Get(t)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(dep), nil
}

func valuesOf(out []reflect.Value) []any {
	res := make([]any, len(out))
	for i, v := range out {
		res[i] = v.Interface()
	}
	return res
}
