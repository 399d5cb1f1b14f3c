package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/garnizeh/tasso/pkg/models"
	"github.com/garnizeh/tasso/pkg/repository"
	"github.com/garnizeh/tasso/pkg/resource"
)

// ErrAuthenticationFailed is the only outcome callers see for an unknown
// user, a wrong password, an unusable stored hash or an inactive account.
var ErrAuthenticationFailed = errors.New("authentication failed")

// PasswordHasher hashes and verifies passwords. FakeVerify must cost the
// same as a Verify against a real hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(encoded, password string) (bool, error)
	FakeVerify(password string)
	NeedsRehash(encoded string) bool
}

// Service authenticates users and manages their passwords.
type Service struct {
	users  repository.UserRepo
	hasher PasswordHasher
	logger *slog.Logger
}

// NewService returns a Service over users. A nil logger uses slog.Default.
func NewService(users repository.UserRepo, hasher PasswordHasher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, hasher: hasher, logger: logger}
}

// Authenticate returns the user matching creds. Every rejection costs one
// verification plus one dummy verification, whichever step failed, so an
// unknown username and a wrong password take the same time. A matching
// legacy hash is replaced with a current one.
func (s *Service) Authenticate(ctx context.Context, creds models.Credentials) (*models.User, error) {
	user, lookupErr := s.users.GetByUsername(ctx, creds.Username)

	ok := false
	if lookupErr != nil || user.PasswordHash == nil {
		// stands in for the verification there is no hash for
		s.hasher.FakeVerify(creds.Password)
	} else {
		var err error
		ok, err = s.hasher.Verify(*user.PasswordHash, creds.Password)
		if err != nil {
			s.logger.WarnContext(ctx, "stored password hash unusable", slog.Int64("user_id", user.ID), slog.Any("err", err))
		}
	}

	if lookupErr != nil || !ok || !user.Active {
		s.hasher.FakeVerify(creds.Password)
		if lookupErr != nil && !errors.Is(lookupErr, resource.ErrNotFound) {
			return nil, fmt.Errorf("authenticate: %w", lookupErr)
		}
		return nil, ErrAuthenticationFailed
	}

	if s.hasher.NeedsRehash(*user.PasswordHash) {
		if err := s.SetPassword(ctx, user, creds.Password); err != nil {
			s.logger.WarnContext(ctx, "rehash password", slog.Int64("user_id", user.ID), slog.Any("err", err))
		}
	}
	return user, nil
}

// SetPassword hashes password, stores it for u and updates u.PasswordHash.
func (s *Service) SetPassword(ctx context.Context, u *models.User, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	if err := s.users.SetPasswordHash(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	u.PasswordHash = &hash
	return nil
}

// ValidatePassword reports whether password matches u's stored hash. A
// missing or malformed hash never matches.
func (s *Service) ValidatePassword(u *models.User, password string) bool {
	if u.PasswordHash == nil {
		return false
	}
	ok, err := s.hasher.Verify(*u.PasswordHash, password)
	return err == nil && ok
}
