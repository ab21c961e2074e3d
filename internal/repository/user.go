package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/sprintboard/internal/domain"
)

const userColumns = `id, provider, provider_id, email, display_name, avatar_url, created_at, updated_at`

// UserRepository handles user and organization membership data access.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID retrieves a user by their ID.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	err := r.db.GetContext(ctx, &user,
		r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find user by id %d: %w", id, err)
	}
	return &user, nil
}

// ListByIDs returns the users with the given IDs in unspecified order.
func (r *UserRepository) ListByIDs(ctx context.Context, ids []int64) ([]domain.User, error) {
	users := []domain.User{}
	if len(ids) == 0 {
		return users, nil
	}

	query, args, err := sqlx.In(`SELECT `+userColumns+` FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build user id query: %w", err)
	}
	if err := r.db.SelectContext(ctx, &users, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list users by id: %w", err)
	}
	return users, nil
}

// Upsert creates a new user or updates an existing one based on provider + provider_id.
// Returns the created or updated user.
func (r *UserRepository) Upsert(ctx context.Context, user domain.User) (*domain.User, error) {
	var id int64
	err := r.db.GetContext(ctx, &id, r.db.Rebind(
		`INSERT INTO users (provider, provider_id, email, display_name, avatar_url)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (provider, provider_id)
		 DO UPDATE SET email = EXCLUDED.email,
		               display_name = EXCLUDED.display_name,
		               avatar_url = EXCLUDED.avatar_url,
		               updated_at = CURRENT_TIMESTAMP
		 RETURNING id`),
		user.Provider, user.ProviderID, user.Email, user.DisplayName, user.AvatarURL)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return r.FindByID(ctx, id)
}

// FindMembership returns the user's role within an organization.
func (r *UserRepository) FindMembership(ctx context.Context, userID int64, orgID string) (*domain.Membership, error) {
	var m domain.Membership
	err := r.db.GetContext(ctx, &m, r.db.Rebind(
		`SELECT user_id, organization_id, role, created_at
		 FROM memberships WHERE user_id = ? AND organization_id = ?`), userID, orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find membership %d/%s: %w", userID, orgID, err)
	}
	return &m, nil
}

// UpsertMembership records or updates a user's role in an organization.
func (r *UserRepository) UpsertMembership(ctx context.Context, m domain.Membership) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO memberships (user_id, organization_id, role)
		 VALUES (?, ?, ?)
		 ON CONFLICT (user_id, organization_id) DO UPDATE SET role = EXCLUDED.role`),
		m.UserID, m.OrganizationID, m.Role)
	if err != nil {
		return fmt.Errorf("upsert membership: %w", err)
	}
	return nil
}
