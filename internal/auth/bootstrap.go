package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/garnizeh/tasso/pkg/models"
)

// DefaultAdminUsername is used when no override is configured.
const DefaultAdminUsername = "admin"

// AdminOptions configures first-run administrator creation.
type AdminOptions struct {
	Username string
	// Password, when set, comes from the environment and is never logged.
	Password string
}

// InitializeAdmin creates one administrator when none exists. It returns
// the created user, or nil when an administrator was already present.
//
// Creation and password assignment are two statements. If the second one
// fails the new account is deleted again so no admin without a usable
// password is left behind. A crash between the two still leaves one; the
// passwd command of cmd/tasso repairs it.
func (s *Service) InitializeAdmin(ctx context.Context, opts AdminOptions) (*models.User, error) {
	count, err := s.users.CountAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("count admins: %w", err)
	}
	if count >= 1 {
		s.logger.InfoContext(ctx, "admin user exists")
		return nil, nil
	}

	s.logger.InfoContext(ctx, "creating admin user")
	username := opts.Username
	if username == "" {
		username = DefaultAdminUsername
	}
	password := opts.Password
	fromEnv := password != ""
	if !fromEnv {
		if password, err = GeneratePassword(DefaultPasswordLength); err != nil {
			return nil, err
		}
	}

	admin := models.NewUser(username)
	admin.Admin = true
	if err := admin.Validate(ctx); err != nil {
		return nil, err
	}
	if _, err := s.users.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	if err := s.SetPassword(ctx, admin, password); err != nil {
		if _, delErr := s.users.Delete(ctx, admin.ID); delErr != nil {
			err = errors.Join(err, fmt.Errorf("remove admin without password: %w", delErr))
		}
		return nil, err
	}

	logged := password
	if fromEnv {
		logged = "<FROM ENVIRONMENT>"
	}
	s.logger.InfoContext(ctx, "admin user created", slog.String("username", username), slog.String("password", logged))
	return admin, nil
}
