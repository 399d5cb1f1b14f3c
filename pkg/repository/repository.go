package repository

import (
	"context"

	"github.com/garnizeh/tasso/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
// Errors wrap the sentinels of package resource.

// Resource is the uniform operation set every entity exposes.
type Resource[T any] interface {
	Create(ctx context.Context, e *T) (int64, error)
	Get(ctx context.Context, id int64) (*T, error)
	GetAll(ctx context.Context) ([]T, error)
	Update(ctx context.Context, e *T) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

type TeamRepo = Resource[models.Team]

type TeamMemberRepo = Resource[models.TeamMember]

type PositionRepo = Resource[models.Position]

type ScheduledPositionRepo = Resource[models.ScheduledPosition]

type UserRepo interface {
	Resource[models.User]
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	CountAdmins(ctx context.Context) (int64, error)
	SetPasswordHash(ctx context.Context, id int64, hash string) error
}
