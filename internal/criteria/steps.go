// Package criteria implements the assessment-criteria builder: a four-step
// wizard that assembles a framework's scoring scheme (type, level scale,
// domain weights) and the service that persists the result.
package criteria

// Step is one position in the wizard. The flow is linear with no branching:
// type → levels → domains → preview.
type Step string

const (
	StepType    Step = "type"
	StepLevels  Step = "levels"
	StepDomains Step = "domains"
	StepPreview Step = "preview"
)

// stepOrder fixes the linear sequence.
var stepOrder = []Step{StepType, StepLevels, StepDomains, StepPreview}

// Index returns the zero-based position of the step, -1 for unknown steps.
func (s Step) Index() int {
	for i, st := range stepOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the following step and true, or the same step and false when
// already at the last step.
func (s Step) Next() (Step, bool) {
	i := s.Index()
	if i < 0 || i >= len(stepOrder)-1 {
		return s, false
	}
	return stepOrder[i+1], true
}

// Prev returns the preceding step and true, or the same step and false when
// already at the first step.
func (s Step) Prev() (Step, bool) {
	i := s.Index()
	if i <= 0 {
		return s, false
	}
	return stepOrder[i-1], true
}

// Steps returns the wizard sequence in order.
func Steps() []Step {
	out := make([]Step, len(stepOrder))
	copy(out, stepOrder)
	return out
}
