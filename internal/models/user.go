package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// User roles.
const (
	RoleAdmin    = "admin"
	RoleEditor   = "editor"
	RoleReviewer = "reviewer"
)

// User is an administrative account. Credentials live with the hosted identity
// provider; this record only carries profile and authorization data.
type User struct {
	ID             string    `json:"id" db:"id"`
	Email          string    `json:"email" db:"email"`
	DisplayName    string    `json:"displayName" db:"display_name"`
	Role           string    `json:"role" db:"role"`
	OrganizationID string    `json:"organizationId,omitempty" db:"organization_id"`
	Phone          string    `json:"phone,omitempty" db:"phone"`
	Language       string    `json:"language,omitempty" db:"language"`
	Disabled       bool      `json:"disabled" db:"disabled"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

func (u User) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Email, validation.Required, is.Email),
		validation.Field(&u.DisplayName, validation.Required, validation.Length(1, 128)),
		validation.Field(&u.Role, validation.Required, validation.In(RoleAdmin, RoleEditor, RoleReviewer)),
		validation.Field(&u.Language, validation.In("", "en", "ar")),
	)
}
