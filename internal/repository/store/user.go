package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/garnizeh/tasso/pkg/models"
	"github.com/garnizeh/tasso/pkg/resource"
)

// UserRepo adds the lookups authentication needs to the generic contract.
type UserRepo struct {
	*resource.Repository[models.User, *models.User]
}

// NewUserRepo returns the users repository over conn.
func NewUserRepo(conn resource.Conn, logger *slog.Logger) *UserRepo {
	return &UserRepo{Repository: resource.New[models.User](conn, logger)}
}

// GetByUsername returns resource.ErrNotFound when no user has that name.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.GetBy(ctx, "username", username)
}

// CountAdmins returns the number of users with the admin flag set.
func (r *UserRepo) CountAdmins(ctx context.Context) (int64, error) {
	return r.Count(ctx, "admin", true)
}

// SetPasswordHash stores hash for the user with the given id.
func (r *UserRepo) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	n, err := r.Assign(ctx, id, "password_hash", hash)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("set password for user %d: %w", id, resource.ErrNotFound)
	}
	return nil
}
