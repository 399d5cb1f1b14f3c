package models

import "github.com/garnizeh/tasso/pkg/resource"

// ScheduledPosition assigns a user to a position.
type ScheduledPosition struct {
	ID         int64 `json:"id"`
	PositionID int64 `json:"position_id"`
	UserID     int64 `json:"user_id"`
}

// Fields declares the scheduled_positions columns.
func (s *ScheduledPosition) Fields() []resource.Field {
	return []resource.Field{
		resource.Key("id", &s.ID),
		resource.Int64("position_id", &s.PositionID),
		resource.Int64("user_id", &s.UserID),
	}
}
