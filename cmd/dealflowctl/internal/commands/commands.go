package commands

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/dealflow/internal/config"
	"github.com/kiranshivaraju/dealflow/internal/logger"
	"github.com/kiranshivaraju/dealflow/internal/store"
	"github.com/kiranshivaraju/dealflow/pkg/models"
)

type Globals struct {
	DatabaseURL string
	Debug       bool
	Version     string
}

// AdminStore is the slice of the store the CLI writes through.
type AdminStore interface {
	CreateOrganization(ctx context.Context, org *models.Organization) error
	CreateUser(ctx context.Context, u *models.User) error
}

// openStore connects to the database named by the globals. The returned
// func closes the pool.
func openStore(ctx context.Context, g *Globals) (*store.PostgresStore, func(), error) {
	ctx = logger.Setup(g.Debug).WithContext(ctx)
	pool, err := store.Connect(ctx, config.DatabaseConfig{
		URL:             g.DatabaseURL,
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnectAttempts: 3,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return store.NewPostgresStore(pool), pool.Close, nil
}
