package models

import (
	"errors"

	"github.com/garnizeh/tasso/pkg/resource"
)

// ErrInvalidShift is returned by Position.Validate when the shift does not
// end after it starts.
var ErrInvalidShift = errors.New("position must end after it starts")

// Position is a shift slot a team needs staffed on a given day.
type Position struct {
	ID        int64              `json:"id"`
	TeamID    int64              `json:"team_id"`
	Name      string             `json:"name"`
	Date      resource.Date      `json:"date"`
	StartTime resource.TimeOfDay `json:"start_time"`
	EndTime   resource.TimeOfDay `json:"end_time"`
}

// Fields declares the positions columns.
func (p *Position) Fields() []resource.Field {
	return []resource.Field{
		resource.Key("id", &p.ID),
		resource.Int64("team_id", &p.TeamID),
		resource.Text("name", &p.Name),
		resource.DateField("date", &p.Date),
		resource.TimeField("start_time", &p.StartTime),
		resource.TimeField("end_time", &p.EndTime),
	}
}

// Validate checks StartTime < EndTime. The store does not enforce it.
func (p *Position) Validate() error {
	if !p.StartTime.Before(p.EndTime) {
		return ErrInvalidShift
	}
	return nil
}
