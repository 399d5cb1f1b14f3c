package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/garnizeh/tasso/pkg/models"
	"github.com/garnizeh/tasso/pkg/repository"
	"github.com/garnizeh/tasso/pkg/resource"
)

var _ repository.UserRepo = (*UserRepo)(nil)

// UserRepo is an in-memory repository.UserRepo for tests. Set the *Err
// fields to force failures.
type UserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]models.User

	CreateErr      error
	LookupErr      error
	SetPasswordErr error

	Lookups int
}

// NewUserRepo returns an empty repository.
func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[int64]models.User)}
}

func (m *UserRepo) Create(ctx context.Context, u *models.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return 0, fmt.Errorf("%w: username %q taken", resource.ErrConstraint, u.Username)
		}
	}
	m.nextID++
	u.ID = m.nextID
	stored := *u
	stored.PasswordHash = nil
	m.users[u.ID] = stored
	return 1, nil
}

func (m *UserRepo) Get(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, resource.ErrNotFound
	}
	return &u, nil
}

func (m *UserRepo) GetAll(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *UserRepo) Update(ctx context.Context, u *models.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[u.ID]
	if !ok {
		return 0, nil
	}
	stored := *u
	stored.PasswordHash = existing.PasswordHash
	m.users[u.ID] = stored
	return 1, nil
}

func (m *UserRepo) Delete(ctx context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return 0, nil
	}
	delete(m.users, id)
	return 1, nil
}

func (m *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lookups++
	if m.LookupErr != nil {
		return nil, m.LookupErr
	}
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, resource.ErrNotFound
}

func (m *UserRepo) CountAdmins(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.users {
		if u.Admin {
			n++
		}
	}
	return n, nil
}

func (m *UserRepo) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetPasswordErr != nil {
		return m.SetPasswordErr
	}
	u, ok := m.users[id]
	if !ok {
		return resource.ErrNotFound
	}
	u.PasswordHash = &hash
	m.users[id] = u
	return nil
}
