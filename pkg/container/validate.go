package container

import "errors"

// Validate checks the dependency graph declared by constructor bindings
// (registered with Provide) for cycles. Factories registered with Bind do not
// declare their dependencies and are only checked at resolution time.
// Dependencies with no binding are skipped; they may be seeded into a Scope.
func (c *Container) Validate() error {
	c.mu.RLock()
	graph := make(map[any][]any, len(c.bindings))
	for k, b := range c.bindings {
		graph[k] = b.deps
	}
	aliases := make(map[string]any, len(c.aliases))
	for k, v := range c.aliases {
		aliases[k] = v
	}
	c.mu.RUnlock()

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[any]int, len(graph))
	var errs []error

	var visit func(key any, path []any)
	visit = func(key any, path []any) {
		if name, ok := key.(string); ok {
			if target, ok := aliases[name]; ok {
				key = target
			}
		}
		switch state[key] {
		case done:
			return
		case visiting:
			cycle := append(append([]any{}, path...), key)
			errs = append(errs, &CircularDependencyError{Path: trimCycle(cycle)})
			return
		}
		deps, ok := graph[key]
		if !ok {
			return
		}
		state[key] = visiting
		for _, d := range deps {
			visit(d, append(path, key))
		}
		state[key] = done
	}

	for k := range graph {
		if state[k] == unvisited {
			visit(k, nil)
		}
	}
	return errors.Join(errs...)
}
