package container

import "sync"

// resolution is one top-level Get or Call together with every nested lookup
// it makes on the same goroutine.
type resolution struct {
	waiting *flight // guarded by flights.mu
}

// flight is a build in progress.
type flight struct {
	key   any
	owner *resolution
	done  chan struct{}
	v     any
	err   error
}

// flights serializes builds of cached instances (singletons, scoped values).
// A resolution that finds a build of the same instance in progress waits for
// it, unless the owner of that build is itself waiting on this resolution,
// directly or through other resolutions; that is a dependency cycle spread
// over goroutines and fails with CircularDependencyError.
type flights struct {
	active map[any]*flight
	mu     sync.Mutex
}

func (fs *flights) do(id any, fr *frame, cached func() (any, bool), build func() (any, error)) (any, error) {
	fs.mu.Lock()
	if v, ok := cached(); ok {
		fs.mu.Unlock()
		return v, nil
	}

	if f, ok := fs.active[id]; ok {
		if path := fs.cycle(f, fr); path != nil {
			fs.mu.Unlock()
			return nil, &CircularDependencyError{Path: trimCycle(path)}
		}
		fr.res.waiting = f
		fs.mu.Unlock()

		<-f.done

		fs.mu.Lock()
		fr.res.waiting = nil
		fs.mu.Unlock()
		return f.v, f.err
	}

	if fs.active == nil {
		fs.active = make(map[any]*flight)
	}
	f := &flight{key: fr.path[len(fr.path)-1], owner: fr.res, done: make(chan struct{})}
	fs.active[id] = f
	fs.mu.Unlock()

	f.v, f.err = build()

	fs.mu.Lock()
	delete(fs.active, id)
	fs.mu.Unlock()
	close(f.done)
	return f.v, f.err
}

// cycle follows the owner of f through the builds each owner waits on.
// Reaching fr's resolution means waiting would never return; the returned
// path is fr's path extended with the keys along the way. Must be called
// with fs.mu held.
func (fs *flights) cycle(f *flight, fr *frame) []any {
	path := append([]any{}, fr.path...)
	for cur := f; cur != nil; {
		if cur.owner == fr.res {
			return path
		}
		next := cur.owner.waiting
		if next == nil {
			return nil
		}
		path = append(path, next.key)
		cur = next
	}
	return nil
}
