package commands

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/dealflow/internal/store"
)

// MigrateCmd applies pending migrations.
type MigrateCmd struct {
	Dir string `help:"Directory holding the migration files." default:"migrations" env:"DEALFLOW_MIGRATIONS_DIR"`
}

func (c *MigrateCmd) Run(_ context.Context, globals *Globals) error {
	if err := store.RunMigrations(globals.DatabaseURL, c.Dir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	fmt.Println("Migrations applied")
	return nil
}
