package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Organization is a tenant that owns projects and runs assessments.
type Organization struct {
	ID           string        `json:"id" db:"id"`
	Name         LocalizedText `json:"name" db:"name"`
	Sector       string        `json:"sector,omitempty" db:"sector"`
	ContactEmail string        `json:"contactEmail,omitempty" db:"contact_email"`
	CreatedAt    time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time     `json:"updatedAt" db:"updated_at"`
}

func (o Organization) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Name, validation.By(requireLocalized)),
		validation.Field(&o.ContactEmail, is.Email),
	)
}

// Project groups assessments an organization runs against one framework.
type Project struct {
	ID             string        `json:"id" db:"id"`
	OrganizationID string        `json:"organizationId" db:"organization_id"`
	FrameworkID    string        `json:"frameworkId" db:"framework_id"`
	Name           LocalizedText `json:"name" db:"name"`
	Description    LocalizedText `json:"description,omitempty" db:"description"`
	Status         string        `json:"status" db:"status"`
	CreatedAt      time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time     `json:"updatedAt" db:"updated_at"`
}

// Project statuses.
const (
	ProjectStatusDraft    = "draft"
	ProjectStatusActive   = "active"
	ProjectStatusArchived = "archived"
)

func (p Project) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.OrganizationID, validation.Required),
		validation.Field(&p.FrameworkID, validation.Required),
		validation.Field(&p.Name, validation.By(requireLocalized)),
		validation.Field(&p.Status, validation.Required, validation.In(
			ProjectStatusDraft, ProjectStatusActive, ProjectStatusArchived,
		)),
	)
}

// requireLocalized is an ozzo rule: at least one language must be present.
func requireLocalized(value interface{}) error {
	t, _ := value.(LocalizedText)
	if t.IsEmpty() {
		return validation.NewError("validation_localized_required", "at least one of en/ar must be set")
	}
	return nil
}
