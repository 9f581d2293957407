package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dealflow/internal/api/response"
	"github.com/kiranshivaraju/dealflow/internal/store"
	"github.com/kiranshivaraju/dealflow/internal/tenant"
)

// Repository is the tenant-scoped storage behind a Resource.
// *store.TenantTable satisfies it.
type Repository[T any] interface {
	List(ctx context.Context, p *tenant.Principal, q store.ListQuery) ([]*T, int, error)
	Get(ctx context.Context, p *tenant.Principal, id uuid.UUID) (*T, error)
	Create(ctx context.Context, p *tenant.Principal, values map[string]any) (*T, error)
	Update(ctx context.Context, p *tenant.Principal, id uuid.UUID, values map[string]any) (*T, error)
	Delete(ctx context.Context, p *tenant.Principal, id uuid.UUID) error
}

// Resource serves CRUD endpoints for one tenant-owned table. I is the
// payload type accepted by create and update.
type Resource[T any, I Input] struct {
	repo    Repository[T]
	name    string
	filters []string
	pager   Pager
	debug   bool
}

// NewResource builds the handler. name is the singular noun used in
// messages; filters are the query parameters accepted by List.
func NewResource[T any, I Input](repo Repository[T], name string, pager Pager, debug bool, filters ...string) *Resource[T, I] {
	return &Resource[T, I]{
		repo:    repo,
		name:    name,
		filters: append([]string{tenant.Column, "user_id"}, filters...),
		pager:   pager,
		debug:   debug,
	}
}

func (h *Resource[T, I]) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	q, problem := h.pager.listQuery(r, h.filters...)
	if problem != nil {
		problem.Write(w)
		return
	}
	items, total, err := h.repo.List(r.Context(), p, q)
	if err != nil {
		storeError(w, r, err, "listing "+h.name+"s", h.name, "", h.debug)
		return
	}
	paginated(w, items, total, q, "")
}

func (h *Resource[T, I]) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", h.name)
	if !ok {
		return
	}
	item, err := h.repo.Get(r.Context(), p, id)
	if err != nil {
		storeError(w, r, err, h.name+" retrieval", h.name, id.String(), h.debug)
		return
	}
	response.Success(w, item, "")
}

func (h *Resource[T, I]) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	operation := h.name + " creation"

	var in I
	if problem := decode(r, &in, operation); problem != nil {
		problem.Write(w)
		return
	}
	values := valuesOf(&in)
	if missing := missingRequired(in, values); len(missing) > 0 {
		response.ValidationError(missing, operation).Write(w)
		return
	}

	item, err := h.repo.Create(r.Context(), p, values)
	if err != nil {
		storeError(w, r, err, operation, h.name, "", h.debug)
		return
	}
	response.Created(w, item, sentence(h.name)+" created successfully")
}

func (h *Resource[T, I]) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", h.name)
	if !ok {
		return
	}
	operation := h.name + " update"

	var in I
	if problem := decode(r, &in, operation); problem != nil {
		problem.Write(w)
		return
	}
	values := valuesOf(&in)
	item, err := h.repo.Update(r.Context(), p, id, values)
	if err != nil {
		storeError(w, r, err, operation, h.name, id.String(), h.debug)
		return
	}
	response.Success(w, item, sentence(h.name)+" updated successfully")
}

func (h *Resource[T, I]) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", h.name)
	if !ok {
		return
	}
	if err := h.repo.Delete(r.Context(), p, id); err != nil {
		storeError(w, r, err, h.name+" deletion", h.name, id.String(), h.debug)
		return
	}
	response.Success(w, nil, sentence(h.name)+" deleted successfully")
}
