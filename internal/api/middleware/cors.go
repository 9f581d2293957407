package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
	"github.com/kiranshivaraju/dealflow/internal/config"
)

// CORS allows browser clients from the configured origins. Credentials are
// only allowed for explicit origins.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	wildcard := len(cfg.AllowedOrigins) == 0 || slices.Contains(cfg.AllowedOrigins, "*")
	origins := cfg.AllowedOrigins
	if wildcard {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders: []string{
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
			"Retry-After",
			"X-Request-Id",
		},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	})
}
