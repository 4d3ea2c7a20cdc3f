// Package handlers declares the example's HTTP routes.
package handlers

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/expanse"
	"github.com/dmitrymomot/expanse/example/repository"
	"github.com/dmitrymomot/expanse/example/requests"
)

// Contacts serves the /contacts resource.
type Contacts struct {
	repo *repository.Contacts
}

// NewContacts creates the handler.
func NewContacts(repo *repository.Contacts) *Contacts {
	return &Contacts{repo: repo}
}

// Routes implements expanse.Handler.
func (h *Contacts) Routes(r expanse.Router) {
	r.Group("contacts", "/contacts", func(r expanse.Router) {
		r.GET("/", h.index, expanse.Name("index"))
		r.POST("/", h.create, expanse.Name("create"))
		r.GET("/{id:int}", h.show, expanse.Name("show"))
		r.DELETE("/{id:int}", h.delete, expanse.Name("delete"))
	}, expanse.MiddlewareGroups("api"))
}

func (h *Contacts) index(q expanse.Query[requests.ListContacts]) []repository.Contact {
	return h.repo.List(q.Value.Search, q.Value.Limit)
}

func (h *Contacts) create(c expanse.Context, in expanse.Body[requests.CreateContact]) (expanse.JSONResult, error) {
	contact := h.repo.Create(in.Value.Name, in.Value.Email)
	loc, err := c.URL("contacts.show", map[string]any{"id": contact.ID})
	if err != nil {
		return expanse.JSONResult{}, err
	}
	c.SetHeader("Location", loc)
	return expanse.Created(contact), nil
}

func (h *Contacts) show(c expanse.Context) (repository.Contact, error) {
	contact, err := h.repo.Get(expanse.Param[int](c, "id"))
	if errors.Is(err, repository.ErrNotFound) {
		return contact, expanse.ErrNotFound("Contact not found")
	}
	return contact, err
}

func (h *Contacts) delete(c expanse.Context) (*expanse.Response, error) {
	if err := h.repo.Delete(expanse.Param[int](c, "id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, expanse.ErrNotFound("Contact not found")
		}
		return nil, err
	}
	return expanse.NoContent(http.StatusNoContent), nil
}
