// Package main is the entrypoint for the dealflow API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/dealflow/internal/api"
	"github.com/kiranshivaraju/dealflow/internal/api/handler"
	mw "github.com/kiranshivaraju/dealflow/internal/api/middleware"
	"github.com/kiranshivaraju/dealflow/internal/api/response"
	"github.com/kiranshivaraju/dealflow/internal/auth"
	"github.com/kiranshivaraju/dealflow/internal/cache"
	"github.com/kiranshivaraju/dealflow/internal/config"
	"github.com/kiranshivaraju/dealflow/internal/logger"
	"github.com/kiranshivaraju/dealflow/internal/rbac"
	"github.com/kiranshivaraju/dealflow/internal/store"
	"github.com/kiranshivaraju/dealflow/pkg/models"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log := logger.Setup(false)
		log.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.Setup(cfg.Server.Development())
	log.Info().Str("env", cfg.Server.Env).Int("port", cfg.Server.Port).Msg("config loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.WithContext(ctx)

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, cfg.Server.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info().Msg("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	log.Info().Msg("redis connected")

	// 5. Create store and load role grants
	pgStore := store.NewPostgresStore(pool)
	enforcer, err := rbac.NewEnforcer(ctx, pgStore)
	if err != nil {
		return fmt.Errorf("load role permissions: %w", err)
	}

	// 6. Build router with dependencies
	router := api.NewRouter(dependencies(cfg, log, pgStore, redisCache, enforcer))

	// 7. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info().Msg("server stopped gracefully")
	return nil
}

// sharedCache holds rate limit windows and signed out tokens.
type sharedCache interface {
	cache.Cache
	cache.Revocations
}

// dependencies wires handlers and middleware to the store, cache and policy.
func dependencies(cfg *config.Config, log zerolog.Logger, s *store.PostgresStore, c sharedCache, enforcer *rbac.Enforcer) api.Dependencies {
	debug := cfg.Server.Debug
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	authMW := mw.NewAuth(tokens, s, enforcer, c, cfg.Auth.SuperAdminEmail, cfg.Auth.PrincipalTTL, debug)
	pager := handler.NewPager(cfg.Pagination)
	db := s.Pool()
	milestones := store.NewTenantTable[models.DealMilestone](db, "deal_milestones", "title", "description")

	return api.Dependencies{
		Logger:    log,
		Debug:     debug,
		CORS:      cfg.CORS,
		Auth:      authMW,
		RateLimit: mw.NewRateLimit(c, cfg.RateLimit),

		Health:        healthHandler(s, c),
		Accounts:      handler.NewAuth(s, tokens, enforcer, c, cfg.Auth.SuperAdminEmail, debug),
		Organizations: handler.NewOrganizations(s, authMW, pager, cfg.Auth.SuperAdminEmail, debug),
		Users:         handler.NewUsers(s, enforcer, authMW, pager, cfg.Auth.SuperAdminEmail, debug),
		Invitations:   handler.NewInvitations(s, tokens, cfg.Auth.InvitationTTL, cfg.Auth.SuperAdminEmail, debug),
		RBAC:          handler.NewRBAC(enforcer, debug),
		Resources: []api.ResourceRoute{
			{
				Path:       "leads",
				Permission: "leads",
				Handler: handler.NewResource[models.Lead, handler.LeadInput](
					store.NewTenantTable[models.Lead](db, "leads", "first_name", "last_name", "email", "phone", "property_address"),
					"lead", pager, debug, "status", "lead_type", "source"),
			},
			{
				Path:       "properties",
				Permission: "properties",
				Handler: handler.NewResource[models.Property, handler.PropertyInput](
					store.NewTenantTable[models.Property](db, "properties", "address", "city", "zip"),
					"property", pager, debug, "status", "property_type", "transaction_type", "state"),
			},
			{
				Path:       "deals",
				Permission: "deals",
				Handler: handler.NewResource[models.Deal, handler.DealInput](
					store.NewTenantTable[models.Deal](db, "deals", "internal_notes"),
					"deal", pager, debug, "status", "deal_type", "property_id", "lead_id"),
			},
			{
				Path:       "deal-milestones",
				Permission: "deals",
				Handler: handler.NewResource[models.DealMilestone, handler.DealMilestoneInput](
					milestones, "deal milestone", pager, debug, "deal_id", "milestone_type"),
				Actions: []api.Action{
					{Method: http.MethodPatch, Name: "complete", Handler: handler.NewMilestones(milestones, debug).Complete},
				},
			},
			{
				Path:       "property-saves",
				Permission: "properties",
				Personal:   true,
				Handler: handler.NewResource[models.PropertySave, handler.PropertySaveInput](
					store.NewTenantTable[models.PropertySave](db, "property_saves", "notes").PerUser(),
					"saved property", pager, debug, "property_id"),
			},
			{
				Path:       "campaigns",
				Permission: "campaigns",
				Handler: handler.NewResource[models.Campaign, handler.CampaignInput](
					store.NewTenantTable[models.Campaign](db, "campaigns", "name", "description"),
					"campaign", pager, debug, "status", "campaign_type", "channel"),
			},
			{
				Path:       "clients",
				Permission: "leads",
				Handler: handler.NewResource[models.Client, handler.ClientInput](
					store.NewTenantTable[models.Client](db, "clients", "first_name", "last_name", "email", "company"),
					"client", pager, debug, "status", "client_type"),
			},
			{
				Path:       "ai-conversations",
				Permission: "leads",
				Handler: handler.NewResource[models.AIConversation, handler.AIConversationInput](
					store.NewTenantTable[models.AIConversation](db, "ai_conversations", "summary"),
					"AI conversation", pager, debug, "status", "channel", "lead_id"),
			},
		},
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler checks database and cache connectivity.
func healthHandler(db, c pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]any{
			"database": "ok",
			"cache":    "ok",
		}

		if err := db.Ping(r.Context()); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("database health check failed")
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("cache health check failed")
			checks["cache"] = "degraded"
		}

		if checks["database"] != "ok" || checks["cache"] != "ok" {
			response.New("One or more services are degraded.", http.StatusServiceUnavailable, "DEGRADED",
				map[string]any{"services": checks}, nil).Write(w)
			return
		}

		response.Success(w, map[string]any{
			"status":   "ok",
			"services": checks,
		}, "")
	}
}
