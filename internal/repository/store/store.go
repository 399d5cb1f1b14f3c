package store

import (
	"log/slog"

	"github.com/garnizeh/tasso/pkg/models"
	"github.com/garnizeh/tasso/pkg/repository"
	"github.com/garnizeh/tasso/pkg/resource"
)

// Store groups the repositories of every entity over one borrowed handle.
type Store struct {
	Teams              *resource.Repository[models.Team, *models.Team]
	TeamMembers        *resource.Repository[models.TeamMember, *models.TeamMember]
	Positions          *resource.Repository[models.Position, *models.Position]
	ScheduledPositions *resource.Repository[models.ScheduledPosition, *models.ScheduledPosition]
	Users              *UserRepo
}

// Ensure the repositories implement the public interfaces.
var (
	_ repository.TeamRepo              = (*resource.Repository[models.Team, *models.Team])(nil)
	_ repository.TeamMemberRepo        = (*resource.Repository[models.TeamMember, *models.TeamMember])(nil)
	_ repository.PositionRepo          = (*resource.Repository[models.Position, *models.Position])(nil)
	_ repository.ScheduledPositionRepo = (*resource.Repository[models.ScheduledPosition, *models.ScheduledPosition])(nil)
	_ repository.UserRepo              = (*UserRepo)(nil)
)

// New derives every entity schema and returns the store. It panics on a
// malformed entity declaration, so call it during startup.
func New(conn resource.Conn, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		Teams:              resource.New[models.Team](conn, logger),
		TeamMembers:        resource.New[models.TeamMember](conn, logger),
		Positions:          resource.New[models.Position](conn, logger),
		ScheduledPositions: resource.New[models.ScheduledPosition](conn, logger),
		Users:              NewUserRepo(conn, logger),
	}
}
