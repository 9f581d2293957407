package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dealflow/internal/api/response"
	"github.com/kiranshivaraju/dealflow/internal/auth"
	"github.com/kiranshivaraju/dealflow/internal/store"
	"github.com/kiranshivaraju/dealflow/internal/tenant"
	"github.com/kiranshivaraju/dealflow/pkg/models"
	"github.com/rs/zerolog"
	"github.com/viccon/sturdyc"
)

const (
	userCacheCapacity = 10000
	userCacheShards   = 10
	userCacheEvictPct = 10
)

// UserLookup loads the account behind a token subject.
type UserLookup interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RevocationChecker reports tokens that were signed out before expiry.
type RevocationChecker interface {
	TokenRevoked(ctx context.Context, id string) (bool, error)
}

// Permissions decides whether a principal holds a named permission.
type Permissions interface {
	Can(p *tenant.Principal, perm string) bool
	RequiredRole(perm string) string
}

// Auth provides authentication and permission-checking middleware.
type Auth struct {
	tokens          *auth.Tokens
	users           UserLookup
	perms           Permissions
	revoked         RevocationChecker
	superAdminEmail string
	debug           bool
	cache           *sturdyc.Client[*models.User]
}

// NewAuth creates the auth middleware. Users are cached for ttl; a zero ttl
// reloads the user on every request. A nil revoked skips the sign-out check.
func NewAuth(tokens *auth.Tokens, users UserLookup, perms Permissions, revoked RevocationChecker, superAdminEmail string, ttl time.Duration, debug bool) *Auth {
	a := &Auth{
		tokens:          tokens,
		users:           users,
		perms:           perms,
		revoked:         revoked,
		superAdminEmail: superAdminEmail,
		debug:           debug,
	}
	if ttl > 0 {
		a.cache = sturdyc.New[*models.User](userCacheCapacity, userCacheShards, ttl, userCacheEvictPct)
	}
	return a
}

func (a *Auth) loadUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if a.cache == nil {
		return a.users.GetUserByID(ctx, id)
	}
	return a.cache.GetOrFetch(ctx, id.String(), func(ctx context.Context) (*models.User, error) {
		return a.users.GetUserByID(ctx, id)
	})
}

// Forget drops a cached user so role and status changes apply immediately.
func (a *Auth) Forget(id uuid.UUID) {
	if a.cache != nil {
		a.cache.Delete(id.String())
	}
}

// Authenticate validates the Bearer token, reloads its user and stores the
// resulting principal in the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractBearerToken(r)
		if raw == "" {
			response.UnauthorizedError("access this resource", map[string]any{"reason": "missing_token"}).Write(w)
			return
		}

		claims, err := a.tokens.Parse(raw)
		if err != nil {
			response.UnauthorizedError("access this resource", map[string]any{"reason": "invalid_token"}).Write(w)
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			response.UnauthorizedError("access this resource", map[string]any{"reason": "invalid_token"}).Write(w)
			return
		}
		if a.revoked != nil {
			revoked, err := a.revoked.TokenRevoked(r.Context(), claims.ID)
			if err != nil {
				// Fail closed: a signed out token must never pass.
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("token revocation check failed")
				response.ServerError("authentication", err, a.debug, nil).Write(w)
				return
			}
			if revoked {
				response.UnauthorizedError("access this resource", map[string]any{"reason": "token_revoked"}).Write(w)
				return
			}
		}

		u, err := a.loadUser(r.Context(), userID)
		if errors.Is(err, store.ErrNotFound) {
			response.UnauthorizedError("access this resource", map[string]any{"reason": "unknown_user"}).Write(w)
			return
		}
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Str("user_id", userID.String()).Msg("failed to load user")
			response.ServerError("authentication", err, a.debug, nil).Write(w)
			return
		}
		if !u.Active() {
			response.ForbiddenError("access this resource", "", map[string]any{"reason": "account_inactive"}).Write(w)
			return
		}

		p := auth.Principal(u, a.superAdminEmail)
		if !p.SuperAdmin && !p.Scoped() {
			response.ForbiddenError("access this resource", "", map[string]any{"reason": "no_organization"}).Write(w)
			return
		}

		ctx := auth.WithClaims(tenant.WithPrincipal(r.Context(), p), claims)
		zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
			c = c.Str("user_id", p.UserID.String())
			if p.Scoped() {
				c = c.Str("organization_id", p.OrganizationID.String())
			}
			return c
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission rejects principals lacking perm.
func (a *Auth) RequirePermission(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.perms.Can(tenant.FromContext(r.Context()), perm) {
				response.ForbiddenError(perm, a.perms.RequiredRole(perm), nil).Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSuperAdmin restricts a route to platform super-admins.
func (a *Auth) RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := tenant.FromContext(r.Context())
		if p == nil || !p.SuperAdmin {
			response.ForbiddenError("perform platform administration", "super_admin", nil).Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
