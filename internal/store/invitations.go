package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/kiranshivaraju/dealflow/pkg/models"
)

var invitationColumns = columnsOf[models.Invitation]()

// CreateInvitation stores inv. An email holds at most one invitation; an
// expired one is replaced, an open one makes this fail with ErrDuplicateKey.
func (s *PostgresStore) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	inv.Email = strings.ToLower(strings.TrimSpace(inv.Email))
	q := psql.Insert("invitations").SetMap(map[string]any{
		"organization_id": inv.OrganizationID,
		"email":           inv.Email,
		"role":            inv.Role,
		"token_hash":      inv.TokenHash,
		"invited_by":      inv.InvitedBy,
		"expires_at":      inv.ExpiresAt,
	}).Suffix(`ON CONFLICT (email) DO UPDATE SET
		organization_id = EXCLUDED.organization_id,
		role = EXCLUDED.role,
		token_hash = EXCLUDED.token_hash,
		invited_by = EXCLUDED.invited_by,
		expires_at = EXCLUDED.expires_at,
		created_at = now()
		WHERE invitations.expires_at <= now()
		RETURNING ` + strings.Join(invitationColumns, ", "))

	created, err := selectOne[models.Invitation](ctx, s.pool, "create invitation", q)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("create invitation: %w", ErrDuplicateKey)
	}
	if err != nil {
		return err
	}
	*inv = *created
	return nil
}

func (s *PostgresStore) GetInvitationByEmail(ctx context.Context, email string) (*models.Invitation, error) {
	q := psql.Select(invitationColumns...).From("invitations").
		Where(sq.Eq{"email": strings.ToLower(strings.TrimSpace(email))})
	return selectOne[models.Invitation](ctx, s.pool, "get invitation by email", q)
}

func (s *PostgresStore) GetInvitationByToken(ctx context.Context, tokenHash string) (*models.Invitation, error) {
	q := psql.Select(invitationColumns...).From("invitations").Where(sq.Eq{"token_hash": tokenHash})
	return selectOne[models.Invitation](ctx, s.pool, "get invitation", q)
}

// AcceptInvitation creates u in the invited organization with the invited
// role and consumes the invitation. A concurrently consumed invitation is
// reported as ErrNotFound and no user is created.
func (s *PostgresStore) AcceptInvitation(ctx context.Context, inv *models.Invitation, u *models.User) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		n, err := exec(ctx, tx, "consume invitation",
			psql.Delete("invitations").Where(sq.Eq{"id": inv.ID}))
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		u.Email = inv.Email
		u.OrganizationID = &inv.OrganizationID
		u.Roles = []string{inv.Role}
		u.Status = models.UserStatusActive
		return insertUser(ctx, tx, u)
	})
}
