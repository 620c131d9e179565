package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Framework is the top-level compliance scheme container.
type Framework struct {
	ID          string        `json:"id" db:"id"`
	Code        string        `json:"code" db:"code"`
	Name        LocalizedText `json:"name" db:"name"`
	Description LocalizedText `json:"description,omitempty" db:"description"`
	Version     string        `json:"version,omitempty" db:"version"`
	IssuedBy    LocalizedText `json:"issuedBy,omitempty" db:"issued_by"`
	CreatedAt   time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time     `json:"updatedAt" db:"updated_at"`
}

func (f Framework) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Code, validation.Required, validation.Length(1, 64)),
		validation.Field(&f.Name, validation.By(requireLocalized)),
	)
}

// Domain is a subdivision of a framework. It carries a weight in the
// framework's assessment criteria.
type Domain struct {
	ID          string        `json:"id" db:"id"`
	FrameworkID string        `json:"frameworkId" db:"framework_id"`
	Code        string        `json:"code" db:"code"`
	Name        LocalizedText `json:"name" db:"name"`
	Description LocalizedText `json:"description,omitempty" db:"description"`
	Order       int           `json:"order" db:"sort_order"`
	CreatedAt   time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time     `json:"updatedAt" db:"updated_at"`
}

func (d Domain) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.FrameworkID, validation.Required),
		validation.Field(&d.Code, validation.Required, validation.Length(1, 64)),
		validation.Field(&d.Name, validation.By(requireLocalized)),
	)
}

// Control is a subdivision of a domain.
type Control struct {
	ID          string        `json:"id" db:"id"`
	FrameworkID string        `json:"frameworkId" db:"framework_id"`
	DomainID    string        `json:"domainId" db:"domain_id"`
	Code        string        `json:"code" db:"code"`
	Name        LocalizedText `json:"name" db:"name"`
	Description LocalizedText `json:"description,omitempty" db:"description"`
	Order       int           `json:"order" db:"sort_order"`
	CreatedAt   time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time     `json:"updatedAt" db:"updated_at"`
}

func (c Control) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.FrameworkID, validation.Required),
		validation.Field(&c.DomainID, validation.Required),
		validation.Field(&c.Code, validation.Required, validation.Length(1, 64)),
		validation.Field(&c.Name, validation.By(requireLocalized)),
	)
}

// Capability levels a specification can demand.
const (
	CapabilityBasic    = "basic"
	CapabilityAdvanced = "advanced"
	CapabilityOptimal  = "optimal"
)

// Specification is the leaf requirement under a control. Edits append to its
// version history rather than overwriting it silently.
type Specification struct {
	ID              string                 `json:"id" db:"id"`
	FrameworkID     string                 `json:"frameworkId" db:"framework_id"`
	DomainID        string                 `json:"domainId" db:"domain_id"`
	ControlID       string                 `json:"controlId" db:"control_id"`
	Code            string                 `json:"code" db:"code"`
	Name            LocalizedText          `json:"name" db:"name"`
	Description     LocalizedText          `json:"description,omitempty" db:"description"`
	CapabilityLevel string                 `json:"capabilityLevel" db:"capability_level"`
	Order           int                    `json:"order" db:"sort_order"`
	History         []SpecificationVersion `json:"history,omitempty" db:"history"`
	CreatedAt       time.Time              `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time              `json:"updatedAt" db:"updated_at"`
}

// SpecificationVersion is one entry in a specification's change history.
type SpecificationVersion struct {
	Version         int           `json:"version"`
	Name            LocalizedText `json:"name"`
	Description     LocalizedText `json:"description,omitempty"`
	CapabilityLevel string        `json:"capabilityLevel"`
	ChangedBy       string        `json:"changedBy,omitempty"`
	ChangedAt       time.Time     `json:"changedAt"`
}

func (s Specification) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.FrameworkID, validation.Required),
		validation.Field(&s.DomainID, validation.Required),
		validation.Field(&s.ControlID, validation.Required),
		validation.Field(&s.Code, validation.Required, validation.Length(1, 64)),
		validation.Field(&s.Name, validation.By(requireLocalized)),
		validation.Field(&s.CapabilityLevel, validation.Required, validation.In(
			CapabilityBasic, CapabilityAdvanced, CapabilityOptimal,
		)),
	)
}

// CurrentVersion returns the highest recorded history version, 0 when none.
func (s Specification) CurrentVersion() int {
	max := 0
	for _, v := range s.History {
		if v.Version > max {
			max = v.Version
		}
	}
	return max
}
