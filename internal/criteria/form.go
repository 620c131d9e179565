// internal/criteria/form.go
package criteria

import (
	"math"
	"sort"

	"taqyim/internal/models"
)

// FormState is the transient in-session shape of a criteria under edit. It is
// never persisted directly; it maps to and from models.AssessmentCriteria at
// the load/save boundaries.
type FormState struct {
	Type          models.CriteriaType
	Levels        []models.CriteriaLevel
	DomainWeights []models.DomainWeight
}

// FormErrors carries the step-local and general validation messages. Empty
// string means no error.
type FormErrors struct {
	Levels  string `json:"levels,omitempty"`
	Domains string `json:"domains,omitempty"`
	General string `json:"general,omitempty"`
}

// HasAny reports whether any message is set.
func (e FormErrors) HasAny() bool {
	return e.Levels != "" || e.Domains != "" || e.General != ""
}

// FormFromCriteria builds the editable state from a persisted criteria.
func FormFromCriteria(c *models.AssessmentCriteria) FormState {
	if c == nil {
		return FormState{}
	}
	f := FormState{
		Type:          c.Type,
		Levels:        append([]models.CriteriaLevel(nil), c.Levels...),
		DomainWeights: append([]models.DomainWeight(nil), c.DomainWeights...),
	}
	return f
}

// ToCriteria converts the form back to the persisted shape. Percentage
// criteria never carry levels, whatever was accumulated while the user
// switched types.
func (f FormState) ToCriteria(frameworkID string) models.AssessmentCriteria {
	c := models.AssessmentCriteria{
		FrameworkID:   frameworkID,
		Type:          f.Type,
		DomainWeights: append([]models.DomainWeight(nil), f.DomainWeights...),
	}
	if f.Type.UsesLevels() {
		c.Levels = append([]models.CriteriaLevel(nil), f.Levels...)
	}
	return c
}

// WeightSum returns the raw sum of the form's domain weights.
func (f FormState) WeightSum() float64 {
	sum := 0.0
	for _, w := range f.DomainWeights {
		sum += w.Weight
	}
	return sum
}

// WeightsComplete reports whether the rounded weight sum equals 100. Rounding
// tolerates float drift from percentage sliders; a whole-percentage mismatch
// still fails.
func (f FormState) WeightsComplete() bool {
	return math.Round(f.WeightSum()) == 100
}

// SetWeight records the weight for a domain, replacing any previous entry.
func (f *FormState) SetWeight(domainID string, weight float64) {
	for i := range f.DomainWeights {
		if f.DomainWeights[i].DomainID == domainID {
			f.DomainWeights[i].Weight = weight
			return
		}
	}
	f.DomainWeights = append(f.DomainWeights, models.DomainWeight{DomainID: domainID, Weight: weight})
}

// RemoveWeight drops a domain's entry, if present.
func (f *FormState) RemoveWeight(domainID string) {
	for i := range f.DomainWeights {
		if f.DomainWeights[i].DomainID == domainID {
			f.DomainWeights = append(f.DomainWeights[:i], f.DomainWeights[i+1:]...)
			return
		}
	}
}

// DistributeEvenly assigns floor(100/n) to every domain in list order and adds
// the integer remainder to the first domain, so the sum is exactly 100 for any
// domain count. Existing entries are replaced wholesale.
func (f *FormState) DistributeEvenly(domains []models.Domain) {
	n := len(domains)
	if n == 0 {
		f.DomainWeights = nil
		return
	}

	base := 100 / n
	remainder := 100 - base*n

	weights := make([]models.DomainWeight, 0, n)
	for i, d := range domains {
		w := float64(base)
		if i == 0 {
			w += float64(remainder)
		}
		weights = append(weights, models.DomainWeight{DomainID: d.ID, Weight: w})
	}
	f.DomainWeights = weights
}

// AddLevel appends a level. Maturity scales stay sorted ascending by value on
// every insert; compliance scales keep insertion order.
func (f *FormState) AddLevel(level models.CriteriaLevel) {
	f.Levels = append(f.Levels, level)
	if f.Type == models.CriteriaTypeMaturity {
		sort.SliceStable(f.Levels, func(i, j int) bool {
			return f.Levels[i].Value < f.Levels[j].Value
		})
	}
}

// RemoveLevel deletes the level at index; out-of-range indexes are ignored.
func (f *FormState) RemoveLevel(index int) {
	if index < 0 || index >= len(f.Levels) {
		return
	}
	f.Levels = append(f.Levels[:index], f.Levels[index+1:]...)
}

// MoveLevelUp swaps the level with its predecessor. Manual reorder is how
// compliance scales are ordered; out-of-range or first-position moves are
// no-ops.
func (f *FormState) MoveLevelUp(index int) {
	if index <= 0 || index >= len(f.Levels) {
		return
	}
	f.Levels[index-1], f.Levels[index] = f.Levels[index], f.Levels[index-1]
}

// MoveLevelDown swaps the level with its successor.
func (f *FormState) MoveLevelDown(index int) {
	if index < 0 || index >= len(f.Levels)-1 {
		return
	}
	f.Levels[index], f.Levels[index+1] = f.Levels[index+1], f.Levels[index]
}
