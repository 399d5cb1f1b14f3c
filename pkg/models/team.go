package models

import "github.com/garnizeh/tasso/pkg/resource"

// Team groups members and the positions they staff.
type Team struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// Fields declares the teams columns.
func (t *Team) Fields() []resource.Field {
	return []resource.Field{
		resource.Key("id", &t.ID),
		resource.Text("name", &t.Name),
		resource.OptText("description", &t.Description),
	}
}
