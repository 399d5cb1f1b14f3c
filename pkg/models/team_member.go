package models

import "github.com/garnizeh/tasso/pkg/resource"

// TeamMember links a user to a team. Both references must exist.
type TeamMember struct {
	ID      int64 `json:"id"`
	TeamID  int64 `json:"team_id"`
	UserID  int64 `json:"user_id"`
	Manager bool  `json:"manager"`
}

// Fields declares the team_members columns.
func (m *TeamMember) Fields() []resource.Field {
	return []resource.Field{
		resource.Key("id", &m.ID),
		resource.Int64("team_id", &m.TeamID),
		resource.Int64("user_id", &m.UserID),
		resource.Bool("manager", &m.Manager),
	}
}
