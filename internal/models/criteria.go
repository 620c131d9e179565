package models

import (
	"math"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// CriteriaType is the scoring mode of a framework's assessment criteria.
type CriteriaType string

const (
	CriteriaTypePercentage CriteriaType = "percentage"
	CriteriaTypeMaturity   CriteriaType = "maturity"
	CriteriaTypeCompliance CriteriaType = "compliance"
)

// IsValid reports whether t is one of the known scoring modes.
func (t CriteriaType) IsValid() bool {
	switch t {
	case CriteriaTypePercentage, CriteriaTypeMaturity, CriteriaTypeCompliance:
		return true
	}
	return false
}

// UsesLevels reports whether the type carries a level scale. Percentage
// criteria score directly and have no levels.
func (t CriteriaType) UsesLevels() bool {
	return t == CriteriaTypeMaturity || t == CriteriaTypeCompliance
}

// DomainWeight assigns a share of the total score to one framework domain.
type DomainWeight struct {
	DomainID string  `json:"domainId"`
	Weight   float64 `json:"weight"`
}

// CriteriaLevel is one rung of a maturity or compliance scale.
type CriteriaLevel struct {
	Label       LocalizedText `json:"label"`
	Description LocalizedText `json:"description,omitempty"`
	Value       float64       `json:"value"`
}

// AssessmentCriteria is a framework's scoring scheme. A framework has at most
// one; it lives at a fixed child path under the framework document.
type AssessmentCriteria struct {
	FrameworkID   string         `json:"frameworkId"`
	Type          CriteriaType   `json:"type"`
	DomainWeights []DomainWeight `json:"domainWeights"`
	Levels        []CriteriaLevel `json:"levels,omitempty"`
}

// WeightSum returns the raw sum of all domain weights.
func (c AssessmentCriteria) WeightSum() float64 {
	sum := 0.0
	for _, w := range c.DomainWeights {
		sum += w.Weight
	}
	return sum
}

// WeightsComplete reports whether the weights sum to 100 after rounding to the
// nearest integer. Rounding absorbs float drift from percentage sliders while
// still rejecting any whole-percentage mismatch.
func (c AssessmentCriteria) WeightsComplete() bool {
	return math.Round(c.WeightSum()) == 100
}

func (c AssessmentCriteria) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.FrameworkID, validation.Required),
		validation.Field(&c.Type, validation.Required, validation.By(func(v interface{}) error {
			t, _ := v.(CriteriaType)
			if !t.IsValid() {
				return validation.NewError("validation_criteria_type", "unknown criteria type")
			}
			return nil
		})),
		validation.Field(&c.DomainWeights, validation.By(func(interface{}) error {
			for _, w := range c.DomainWeights {
				if w.Weight < 0 || w.Weight > 100 {
					return validation.NewError("validation_weight_range", "weight must be between 0 and 100")
				}
			}
			if !c.WeightsComplete() {
				return validation.NewError("validation_weight_sum", "domain weights must sum to 100")
			}
			return nil
		})),
		validation.Field(&c.Levels, validation.By(func(interface{}) error {
			if c.Type.UsesLevels() && len(c.Levels) == 0 {
				return validation.NewError("validation_levels_required", "at least one level is required")
			}
			for _, l := range c.Levels {
				if l.Value < 0 || l.Value > 100 {
					return validation.NewError("validation_level_value", "level value must be between 0 and 100")
				}
				if l.Label.IsEmpty() {
					return validation.NewError("validation_level_label", "level label is required")
				}
			}
			return nil
		})),
	)
}
