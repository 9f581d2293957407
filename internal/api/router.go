package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kiranshivaraju/dealflow/internal/api/handler"
	mw "github.com/kiranshivaraju/dealflow/internal/api/middleware"
	"github.com/kiranshivaraju/dealflow/internal/api/response"
	"github.com/kiranshivaraju/dealflow/internal/config"
	"github.com/rs/zerolog"
)

// CRUD is the handler set of a tenant-owned resource.
type CRUD interface {
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

// ResourceRoute mounts a CRUD handler at /api/v1/{Path}, guarded by the
// "view|manage|delete {Permission}" permissions.
type ResourceRoute struct {
	Path       string
	Permission string
	Handler    CRUD
	// Personal resources hold each user's own rows. Every route needs only
	// the view permission and rows cannot be updated.
	Personal bool
	// Actions are extra routes under /{id}, guarded by the manage permission.
	Actions []Action
}

// Action is a state change on one resource row, e.g. PATCH /{id}/complete.
type Action struct {
	Method  string
	Name    string
	Handler http.HandlerFunc
}

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Logger    zerolog.Logger
	Debug     bool
	CORS      config.CORSConfig
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	Health        http.HandlerFunc
	Accounts      *handler.Auth
	Organizations *handler.Organizations
	Users         *handler.Users
	Invitations   *handler.Invitations
	RBAC          *handler.RBAC
	Resources     []ResourceRoute
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(mw.Logger(deps.Logger))
	r.Use(mw.Recovery(deps.Debug))
	r.Use(mw.CORS(deps.CORS))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.New("The requested endpoint does not exist.", http.StatusNotFound, "ROUTE_NOT_FOUND",
			map[string]any{"path": r.URL.Path}, nil).Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.New("The method is not allowed for this endpoint.", http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			map[string]any{"method": r.Method, "path": r.URL.Path}, nil).Write(w)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", deps.Health)

		// Public routes, limited per client IP
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimit.Limit)
			r.Post("/register", deps.Accounts.Register)
			r.Post("/login", deps.Accounts.Login)
			r.Get("/validate-invitation", deps.Invitations.Validate)
			r.Post("/invitee-register", deps.Invitations.Register)
		})

		// Protected routes, limited per user
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.Authenticate)
			r.Use(deps.RateLimit.Limit)

			r.Get("/user", deps.Accounts.CurrentUser)
			r.Post("/logout", deps.Accounts.Logout)
			r.With(deps.Auth.RequirePermission("manage users")).Post("/invitations", deps.Invitations.Create)

			r.Route("/organizations", func(r chi.Router) {
				orgs := deps.Organizations
				r.Get("/", orgs.List)
				r.Get("/status", orgs.Status)
				r.With(deps.Auth.RequireSuperAdmin).Post("/", orgs.Create)
				r.Get("/{id}", orgs.Get)
				r.With(deps.Auth.RequirePermission("manage organizations")).Put("/{id}", orgs.Update)
				r.With(deps.Auth.RequireSuperAdmin).Patch("/{id}/subscription-status", orgs.UpdateSubscriptionStatus)
				r.With(deps.Auth.RequirePermission("manage users")).Delete("/{id}/users/{userID}", orgs.DetachUser)
			})

			r.Route("/users", func(r chi.Router) {
				users := deps.Users
				view := deps.Auth.RequirePermission("view users")
				manage := deps.Auth.RequirePermission("manage users")
				r.With(view).Get("/", users.List)
				r.With(view).Get("/{id}", users.Get)
				r.With(manage).Put("/{id}/roles", users.UpdateRoles)
				r.With(manage).Patch("/{id}/status", users.UpdateStatus)
				r.Put("/{id}/profile", users.UpdateProfile)
			})

			r.Route("/rbac", func(r chi.Router) {
				r.With(deps.Auth.RequirePermission("view roles")).Get("/roles", deps.RBAC.Roles)
				r.With(deps.Auth.RequirePermission("view permissions")).Get("/permissions", deps.RBAC.Permissions)
				r.With(deps.Auth.RequireSuperAdmin).Put("/roles/{role}", deps.RBAC.UpdateRole)
			})

			for _, res := range deps.Resources {
				mountResource(r, deps.Auth, res)
			}
		})
	})

	return r
}

func mountResource(r chi.Router, auth *mw.Auth, res ResourceRoute) {
	view := auth.RequirePermission("view " + res.Permission)
	manage := auth.RequirePermission("manage " + res.Permission)
	del := auth.RequirePermission("delete " + res.Permission)

	if res.Personal {
		manage, del = view, view
	}

	r.Route("/"+res.Path, func(r chi.Router) {
		r.With(view).Get("/", res.Handler.List)
		r.With(manage).Post("/", res.Handler.Create)
		r.With(view).Get("/{id}", res.Handler.Get)
		if !res.Personal {
			r.With(manage).Put("/{id}", res.Handler.Update)
		}
		r.With(del).Delete("/{id}", res.Handler.Delete)
		for _, a := range res.Actions {
			r.With(manage).Method(a.Method, "/{id}/"+a.Name, a.Handler)
		}
	})
}
