package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"

	"github.com/kiranshivaraju/dealflow/internal/auth"
	"github.com/kiranshivaraju/dealflow/internal/rbac"
	"github.com/kiranshivaraju/dealflow/internal/store"
	"github.com/kiranshivaraju/dealflow/pkg/models"
)

const minPasswordLen = 8

// CreateSuperAdminCmd creates a user with no organization and the
// super_admin role.
type CreateSuperAdminCmd struct {
	Email     string `help:"Login email." required:""`
	Password  string `help:"Initial password (8 to 72 bytes)." required:"" env:"DEALFLOW_ADMIN_PASSWORD"`
	FirstName string `help:"First name." default:"Platform"`
	LastName  string `help:"Last name." default:"Admin"`
}

func (c *CreateSuperAdminCmd) Run(ctx context.Context, globals *Globals) error {
	s, closeFn, err := openStore(ctx, globals)
	if err != nil {
		return err
	}
	defer closeFn()
	return c.run(ctx, s, os.Stdout)
}

func (c *CreateSuperAdminCmd) run(ctx context.Context, s AdminStore, out io.Writer) error {
	email := strings.ToLower(strings.TrimSpace(c.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email %q", c.Email)
	}
	if len(c.Password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	hash, err := auth.HashPassword(c.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	u := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Roles:        []string{rbac.RoleSuperAdmin},
		Status:       models.UserStatusActive,
	}
	if err := s.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return fmt.Errorf("a user with email %s already exists", email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(out, "Created super-admin %s\n", u.Email)
	fmt.Fprintf(out, "ID: %s\n", u.ID)
	return nil
}

// CreateOrganizationCmd creates an organization with no members.
type CreateOrganizationCmd struct {
	Name     string `help:"Organization name." required:""`
	Timezone string `help:"IANA timezone." default:"UTC"`
}

func (c *CreateOrganizationCmd) Run(ctx context.Context, globals *Globals) error {
	s, closeFn, err := openStore(ctx, globals)
	if err != nil {
		return err
	}
	defer closeFn()
	return c.run(ctx, s, os.Stdout)
}

func (c *CreateOrganizationCmd) run(ctx context.Context, s AdminStore, out io.Writer) error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return errors.New("organization name must not be blank")
	}

	org := &models.Organization{
		Name:               name,
		Slug:               models.Slugify(name),
		SubscriptionStatus: models.SubscriptionNew,
		Timezone:           c.Timezone,
	}
	if err := s.CreateOrganization(ctx, org); err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	fmt.Fprintf(out, "Created organization %s (%s)\n", org.Name, org.Slug)
	fmt.Fprintf(out, "ID: %s\n", org.ID)
	return nil
}
