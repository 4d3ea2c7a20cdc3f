package internal

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidRouteFile is returned for malformed route definitions.
var ErrInvalidRouteFile = errors.New("expanse: invalid route file")

// HandlerMap names the handlers and middleware a route file may reference.
type HandlerMap map[string]any

// RouteDefinition is one declarative route or group.
// A definition with Routes is a group; otherwise it is a route and needs
// Path, Handler and at least one method.
//
//	routes:
//	  - group: users
//	    prefix: /users
//	    middleware_groups: [api]
//	    routes:
//	      - name: show
//	        methods: [GET]
//	        path: /{id:int}
//	        handler: users.show
type RouteDefinition struct {
	Group            string            `yaml:"group"`
	Prefix           string            `yaml:"prefix"`
	Name             string            `yaml:"name"`
	Path             string            `yaml:"path"`
	Handler          string            `yaml:"handler"`
	Methods          []string          `yaml:"methods"`
	Middleware       []string          `yaml:"middleware"`
	MiddlewareGroups []string          `yaml:"middleware_groups"`
	Routes           []RouteDefinition `yaml:"routes"`
	Blocking         bool              `yaml:"blocking"`
}

type routeFile struct {
	Routes []RouteDefinition `yaml:"routes"`
}

// LoadRouteFile registers the routes declared in the YAML file at path.
func LoadRouteFile(r Router, path string, handlers HandlerMap) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open route file: %w", err)
	}
	defer f.Close()
	return LoadRoutes(r, f, handlers)
}

// LoadRoutes registers the routes declared in YAML read from rd.
func LoadRoutes(r Router, rd io.Reader, handlers HandlerMap) error {
	var file routeFile
	dec := yaml.NewDecoder(rd)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return errors.Join(ErrInvalidRouteFile, err)
	}

	var loadErr error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				re, ok := rec.(registrationError)
				if !ok {
					panic(rec)
				}
				loadErr = re.err
			}
		}()
		loadErr = loadDefinitions(r, file.Routes, handlers)
	}()
	return loadErr
}

func loadDefinitions(r Router, defs []RouteDefinition, handlers HandlerMap) error {
	for i, def := range defs {
		mws, err := lookupMiddleware(def.Middleware, handlers)
		if err != nil {
			return err
		}

		if len(def.Routes) > 0 {
			var (
				nested error
				opts   []GroupOption
			)
			if len(mws) > 0 {
				opts = append(opts, Middlewares(mws...))
			}
			if len(def.MiddlewareGroups) > 0 {
				opts = append(opts, MiddlewareGroups(def.MiddlewareGroups...))
			}
			if def.Blocking {
				opts = append(opts, Blocking())
			}
			r.Group(def.Group, def.Prefix, func(g Router) {
				nested = loadDefinitions(g, def.Routes, handlers)
			}, opts...)
			if nested != nil {
				return nested
			}
			continue
		}

		if def.Path == "" || def.Handler == "" || len(def.Methods) == 0 {
			return fmt.Errorf("%w: route #%d needs path, handler and methods", ErrInvalidRouteFile, i)
		}
		h, ok := handlers[def.Handler]
		if !ok {
			return fmt.Errorf("%w: unknown handler %q", ErrInvalidRouteFile, def.Handler)
		}

		var opts []RouteOption
		if def.Name != "" {
			opts = append(opts, Name(def.Name))
		}
		if len(mws) > 0 {
			opts = append(opts, Middlewares(mws...))
		}
		if len(def.MiddlewareGroups) > 0 {
			opts = append(opts, MiddlewareGroups(def.MiddlewareGroups...))
		}
		if def.Blocking {
			opts = append(opts, Blocking())
		}
		r.Handle(def.Methods, def.Path, h, opts...)
	}
	return nil
}

func lookupMiddleware(names []string, handlers HandlerMap) ([]Middleware, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]Middleware, 0, len(names))
	for _, name := range names {
		v, ok := handlers[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown middleware %q", ErrInvalidRouteFile, name)
		}
		mw, ok := v.(Middleware)
		if !ok {
			return nil, fmt.Errorf("%w: %q is %T, not a middleware", ErrInvalidRouteFile, name, v)
		}
		out = append(out, mw)
	}
	return out, nil
}
