// Package repository holds the in-memory contact store used by the example.
package repository

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when a contact does not exist.
var ErrNotFound = errors.New("contact not found")

// Contact is a stored contact.
type Contact struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Contacts is a concurrency-safe in-memory contact store.
type Contacts struct {
	mu     sync.RWMutex
	items  []Contact
	nextID int
}

// New creates an empty store.
func New() *Contacts {
	return &Contacts{nextID: 1}
}

// Create stores a new contact and returns it.
func (r *Contacts) Create(name, email string) Contact {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := Contact{ID: r.nextID, Name: name, Email: email, CreatedAt: time.Now().UTC()}
	r.nextID++
	r.items = append(r.items, c)
	return c
}

// Get returns the contact with id.
func (r *Contacts) Get(id int) (Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := slices.IndexFunc(r.items, func(c Contact) bool { return c.ID == id })
	if i < 0 {
		return Contact{}, ErrNotFound
	}
	return r.items[i], nil
}

// List returns up to limit contacts whose name or email contains search.
func (r *Contacts) List(search string, limit int) []Contact {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Contact, 0, len(r.items))
	for _, c := range r.items {
		if search != "" && !strings.Contains(strings.ToLower(c.Name), search) && !strings.Contains(c.Email, search) {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Delete removes the contact with id.
func (r *Contacts) Delete(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.IndexFunc(r.items, func(c Contact) bool { return c.ID == id })
	if i < 0 {
		return ErrNotFound
	}
	r.items = slices.Delete(r.items, i, i+1)
	return nil
}
