package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/kiranshivaraju/dealflow/cmd/dealflowctl/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Migrate            commands.MigrateCmd            `cmd:"" help:"Apply database migrations"`
		CreateSuperAdmin   commands.CreateSuperAdminCmd   `cmd:"" help:"Create a platform super-admin account"`
		CreateOrganization commands.CreateOrganizationCmd `cmd:"" help:"Create an organization"`
		DatabaseURL        string                         `help:"Postgres connection URL." env:"DATABASE_URL" required:""`
		Debug              bool                           `help:"Enable debug logging."`
		Version            kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("dealflowctl"),
		kong.Description("Administrative tasks for the dealflow API."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{DatabaseURL: cli.DatabaseURL, Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
