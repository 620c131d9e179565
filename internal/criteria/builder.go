// internal/criteria/builder.go
package criteria

import (
	"context"

	"taqyim/internal/common/logger"
	"taqyim/internal/models"
)

// Builder drives one wizard session for a framework's assessment criteria.
// It owns the form state exclusively while open; the persisted record is only
// touched on SaveCriteria/DeleteCriteria. Not safe for concurrent use; the
// caller serializes interactions, mirroring the single-threaded UI it backs.
type Builder struct {
	svc    *Service
	logger logger.Logger

	frameworkID string
	domains     []models.Domain

	open        bool
	hasCriteria bool
	isSaving    bool

	form        FormState
	currentStep Step
	errs        FormErrors
}

func NewBuilder(svc *Service, frameworkID string, log logger.Logger) *Builder {
	return &Builder{
		svc:         svc,
		frameworkID: frameworkID,
		logger:      log.WithFields(map[string]interface{}{"frameworkId": frameworkID}),
		currentStep: StepType,
	}
}

// Open loads the framework's domains and any existing criteria, then enters
// the wizard at the type step. Editing an existing criteria pre-populates the
// form but still re-confirms the type. Fetch errors degrade: missing criteria
// means a fresh form, a failed domain fetch means an empty domain list.
func (b *Builder) Open(ctx context.Context) error {
	domains, err := b.svc.FrameworkDomains(ctx, b.frameworkID)
	if err != nil {
		b.logger.Error("failed to load framework domains", map[string]interface{}{"error": err.Error()})
		domains = nil
	}
	b.domains = domains

	existing, err := b.svc.Get(ctx, b.frameworkID)
	if err != nil {
		b.logger.Error("failed to load criteria", map[string]interface{}{"error": err.Error()})
		existing = nil
	}

	b.hasCriteria = existing != nil
	b.form = FormFromCriteria(existing)
	b.currentStep = StepType
	b.errs = FormErrors{}
	b.open = true
	return nil
}

// Close discards in-memory state without persisting. A save already dispatched
// is not aborted.
func (b *Builder) Close() {
	b.open = false
	b.form = FormState{}
	b.currentStep = StepType
	b.errs = FormErrors{}
}

func (b *Builder) IsOpen() bool           { return b.open }
func (b *Builder) IsSaving() bool         { return b.isSaving }
func (b *Builder) HasCriteria() bool      { return b.hasCriteria }
func (b *Builder) CurrentStep() Step      { return b.currentStep }
func (b *Builder) Errors() FormErrors     { return b.errs }
func (b *Builder) Domains() []models.Domain { return b.domains }

// Form returns a pointer to the live form state for mutation between steps.
func (b *Builder) Form() *FormState { return &b.form }

// SetType records the scoring mode chosen on the first step.
func (b *Builder) SetType(t models.CriteriaType) {
	b.form.Type = t
}

// GoToNextStep validates the current step and advances on success. It returns
// false, leaving currentStep unchanged and the matching error message set,
// when the step's gate fails.
func (b *Builder) GoToNextStep() bool {
	switch b.currentStep {
	case StepType:
		if !b.form.Type.IsValid() {
			return false
		}

	case StepLevels:
		// Percentage criteria have no level scale; the step is passed through.
		if b.form.Type.UsesLevels() && len(b.form.Levels) == 0 {
			b.errs.Levels = "add at least one level before continuing"
			return false
		}
		b.errs.Levels = ""

	case StepDomains:
		// Navigation to preview is unconditional; the weight-sum gate applies
		// to Save, not to viewing the preview.

	case StepPreview:
		return false
	}

	next, ok := b.currentStep.Next()
	if !ok {
		return false
	}
	b.currentStep = next
	return true
}

// GoToPrevStep moves one step back. At the first step it is a no-op.
func (b *Builder) GoToPrevStep() {
	if prev, ok := b.currentStep.Prev(); ok {
		b.currentStep = prev
	}
}

// CanSave reports whether the Save action is enabled: the rounded domain
// weight sum must be exactly 100.
func (b *Builder) CanSave() bool {
	return b.form.WeightsComplete()
}

// UncoveredDomains returns the framework domains that have no weight entry.
// Full coverage is not required to save (only the sum is enforced); callers
// use this to warn.
func (b *Builder) UncoveredDomains() []models.Domain {
	covered := make(map[string]bool, len(b.form.DomainWeights))
	for _, w := range b.form.DomainWeights {
		covered[w.DomainID] = true
	}
	var missing []models.Domain
	for _, d := range b.domains {
		if !covered[d.ID] {
			missing = append(missing, d)
		}
	}
	return missing
}

// DistributeEvenly replaces the weight set with an even split across the
// loaded framework domains; the first domain absorbs the integer remainder.
func (b *Builder) DistributeEvenly() {
	b.form.DistributeEvenly(b.domains)
	b.errs.Domains = ""
}

// SaveCriteria persists the form from the preview step. Validation failures
// and persistence failures both leave the wizard open with the matching error
// set; persistence is never retried automatically.
func (b *Builder) SaveCriteria(ctx context.Context) (bool, error) {
	if !b.form.WeightsComplete() {
		b.errs.Domains = "domain weights must sum to 100"
		return false, nil
	}
	b.errs.Domains = ""

	criteria := b.form.ToCriteria(b.frameworkID)

	b.isSaving = true
	err := b.svc.Save(ctx, b.frameworkID, criteria)
	b.isSaving = false

	if err != nil {
		b.errs.General = "saving criteria failed, please try again"
		b.logger.Error("criteria save failed", map[string]interface{}{"error": err.Error()})
		return false, err
	}

	b.errs.General = ""
	b.hasCriteria = true
	b.open = false
	return true, nil
}

// DeleteCriteria removes the framework's criteria record.
func (b *Builder) DeleteCriteria(ctx context.Context) (bool, error) {
	if err := b.svc.Delete(ctx, b.frameworkID); err != nil {
		b.errs.General = "deleting criteria failed, please try again"
		return false, err
	}
	b.hasCriteria = false
	b.form = FormState{}
	return true, nil
}
