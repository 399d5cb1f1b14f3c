package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/qri-io/jsonschema"

	"github.com/garnizeh/tasso/pkg/resource"
)

// ErrInvalidUser is returned by User.Validate.
var ErrInvalidUser = errors.New("invalid user")

// userSchema is compiled once; usernames are at least three word characters.
var userSchema = jsonschema.Must(`{
	"type": "object",
	"required": ["username"],
	"properties": {
		"username": {"type": "string", "pattern": "^\\w{3,}$"},
		"email": {"type": "string", "format": "email"}
	}
}`)

// Credentials is a login attempt.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// User is an account. PasswordHash is never serialized and is written only
// through the password path, never by the generic Create/Update.
type User struct {
	ID           int64          `json:"id"`
	Username     string         `json:"username"`
	Lastname     *string        `json:"lastname,omitempty"`
	Firstname    *string        `json:"firstname,omitempty"`
	Email        *string        `json:"email,omitempty"`
	PasswordHash *string        `json:"-"`
	DateOfBirth  *resource.Date `json:"date_of_birth,omitempty"`
	Admin        bool           `json:"admin"`
	Active       bool           `json:"active"`
}

// NewUser returns an active, non-admin user.
func NewUser(username string) *User {
	return &User{Username: username, Active: true}
}

// Fields declares the users columns; password_hash is read-only.
func (u *User) Fields() []resource.Field {
	return []resource.Field{
		resource.Key("id", &u.ID),
		resource.Text("username", &u.Username),
		resource.OptText("lastname", &u.Lastname),
		resource.OptText("firstname", &u.Firstname),
		resource.OptText("email", &u.Email),
		resource.OptText("password_hash", &u.PasswordHash).AsReadOnly(),
		resource.OptDateField("date_of_birth", &u.DateOfBirth),
		resource.Bool("admin", &u.Admin),
		resource.Bool("active", &u.Active),
	}
}

// UnmarshalJSON decodes u with Active defaulting to true and Admin to false.
func (u *User) UnmarshalJSON(b []byte) error {
	type plain User
	p := plain{Active: true}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*u = User(p)
	return nil
}

// Validate checks the username pattern and the email format.
func (u *User) Validate(ctx context.Context) error {
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	errs, err := userSchema.ValidateBytes(ctx, b)
	if err != nil {
		return fmt.Errorf("validate user: %w", err)
	}
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.PropertyPath+": "+e.Message)
	}
	return fmt.Errorf("%w: %s", ErrInvalidUser, strings.Join(msgs, "; "))
}
