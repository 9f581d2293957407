// Package handler implements the HTTP endpoints of the dealflow API.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kiranshivaraju/dealflow/internal/api/response"
	"github.com/kiranshivaraju/dealflow/internal/auth"
	"github.com/kiranshivaraju/dealflow/internal/config"
	"github.com/kiranshivaraju/dealflow/internal/rbac"
	"github.com/kiranshivaraju/dealflow/internal/store"
	"github.com/kiranshivaraju/dealflow/internal/tenant"
	"github.com/kiranshivaraju/dealflow/pkg/models"
	"github.com/rs/zerolog"
)

// Pager reads page and per_page query parameters.
type Pager struct {
	DefaultPerPage int
	MaxPerPage     int
}

func NewPager(cfg config.PaginationConfig) Pager {
	return Pager{DefaultPerPage: cfg.DefaultPerPage, MaxPerPage: cfg.MaxPerPage}
}

// Parse returns a page of at least 1 and a per-page size clamped to
// [1, MaxPerPage]. Unparseable values fall back to the defaults.
func (p Pager) Parse(r *http.Request) (page, perPage int) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err = strconv.Atoi(r.URL.Query().Get("per_page"))
	if err != nil {
		perPage = p.DefaultPerPage
	}
	if perPage < 1 {
		perPage = 1
	}
	if p.MaxPerPage > 0 && perPage > p.MaxPerPage {
		perPage = p.MaxPerPage
	}
	return page, perPage
}

// listQuery builds a ListQuery from the request. Only the named filters are
// read; filters ending in _id must be UUIDs.
func (p Pager) listQuery(r *http.Request, filters ...string) (store.ListQuery, *response.Problem) {
	page, perPage := p.Parse(r)
	q := store.ListQuery{
		Page:    page,
		PerPage: perPage,
		Search:  strings.TrimSpace(r.URL.Query().Get("search")),
		Filters: map[string]any{},
	}
	bad := map[string][]string{}
	for _, f := range filters {
		v := strings.TrimSpace(r.URL.Query().Get(f))
		if v == "" {
			continue
		}
		if strings.HasSuffix(f, "_id") {
			if _, err := uuid.Parse(v); err != nil {
				bad[f] = []string{"The " + label(f) + " must be a valid UUID."}
				continue
			}
		}
		q.Filters[f] = v
	}
	if len(bad) > 0 {
		return q, response.ValidationError(bad, "listing")
	}
	return q, nil
}

func paginated[T any](w http.ResponseWriter, items []*T, total int, q store.ListQuery, message string) {
	if items == nil {
		items = []*T{}
	}
	response.Paginated(w, items, response.NewPaginationMeta(q.Page, q.PerPage, total), message)
}

// principal returns the authenticated principal. Routes using it sit behind
// the auth middleware, so a missing principal is a wiring error.
func principal(w http.ResponseWriter, r *http.Request) (*tenant.Principal, bool) {
	p := tenant.FromContext(r.Context())
	if p == nil {
		response.UnauthorizedError("access this resource", nil).Write(w)
		return nil, false
	}
	return p, true
}

// pathID parses a URL parameter as a UUID. Malformed ids are reported as not
// found, like ids of rows in another organization.
func pathID(w http.ResponseWriter, r *http.Request, param, resource string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		response.NotFoundError(resource, raw, nil).Write(w)
		return uuid.Nil, false
	}
	return id, true
}

// storeError writes the reply for a failed data access call.
func storeError(w http.ResponseWriter, r *http.Request, err error, operation, resource, id string, debug bool) {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, store.ErrNotFound):
		response.NotFoundError(resource, id, nil).Write(w)
	case errors.Is(err, tenant.ErrOrganizationRequired):
		response.ValidationError(map[string][]string{
			tenant.Column: {requiredMessage(tenant.Column)},
		}, operation).Write(w)
	case errors.Is(err, store.ErrDuplicateKey), errors.As(err, &pgErr):
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("operation", operation).Msg("database constraint violated")
		response.DatabaseError(err, operation, resource).Write(w)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("operation", operation).Msg("request failed")
		response.ServerError(operation, err, debug, nil).Write(w)
	}
}

// protectSuperAdmin rejects changes to a platform super-admin account made
// by anyone who is not a super-admin. It reports whether the change may go on.
func protectSuperAdmin(w http.ResponseWriter, p *tenant.Principal, target *models.User, superAdminEmail, action string) bool {
	if p.SuperAdmin || !auth.IsSuperAdmin(target, superAdminEmail) {
		return true
	}
	response.ForbiddenError(action, rbac.RoleSuperAdmin, map[string]any{"user_id": target.ID}).Write(w)
	return false
}

func sentence(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
