// internal/taxonomy/service_test.go
package taxonomy

import (
	"context"
	"testing"

	apperrors "taqyim/internal/common/errors"
	"taqyim/internal/common/logger"
	"taqyim/internal/models"
	"taqyim/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIndexer records mirror operations.
type fakeIndexer struct {
	indexed []string
	removed []string
}

func (f *fakeIndexer) IndexControl(_ context.Context, c models.Control) error {
	f.indexed = append(f.indexed, "control-"+c.ID)
	return nil
}

func (f *fakeIndexer) IndexSpecification(_ context.Context, sp models.Specification) error {
	f.indexed = append(f.indexed, "specification-"+sp.ID)
	return nil
}

func (f *fakeIndexer) Remove(_ context.Context, kind, id string) error {
	f.removed = append(f.removed, kind+"-"+id)
	return nil
}

func newTestService(t *testing.T) (*Service, *storetest.Store, *fakeIndexer) {
	t.Helper()
	m := storetest.New()
	idx := &fakeIndexer{}
	return NewService(m, idx, logger.NewNoOpLogger()), m, idx
}

func bilingual(en, ar string) models.LocalizedText {
	return models.LocalizedText{En: en, Ar: ar}
}

func seedFramework(t *testing.T, svc *Service) *models.Framework {
	t.Helper()
	fw, err := svc.CreateFramework(context.Background(), models.Framework{
		Code: "NCA-ECC",
		Name: bilingual("Essential Cybersecurity Controls", "الضوابط الأساسية للأمن السيبراني"),
	})
	require.NoError(t, err)
	return fw
}

func seedDomain(t *testing.T, svc *Service, frameworkID string, code string, order int) *models.Domain {
	t.Helper()
	d, err := svc.CreateDomain(context.Background(), models.Domain{
		FrameworkID: frameworkID,
		Code:        code,
		Name:        bilingual("Governance", "الحوكمة"),
		Order:       order,
	})
	require.NoError(t, err)
	return d
}

func TestFramework_CRUD(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	fw := seedFramework(t, svc)
	assert.NotEmpty(t, fw.ID)
	assert.False(t, fw.CreatedAt.IsZero())

	got, err := svc.GetFramework(ctx, fw.ID)
	require.NoError(t, err)
	assert.Equal(t, "NCA-ECC", got.Code)
	assert.Equal(t, "الضوابط الأساسية للأمن السيبراني", got.Name.Ar)

	got.Version = "2.0"
	updated, err := svc.UpdateFramework(ctx, *got)
	require.NoError(t, err)
	assert.Equal(t, "2.0", updated.Version)

	require.NoError(t, svc.DeleteFramework(ctx, fw.ID))
	_, err = svc.GetFramework(ctx, fw.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestFramework_CreateRejectsMissingName(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateFramework(context.Background(), models.Framework{Code: "X"})
	require.Error(t, err)

	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeValidationFailed, stdErr.Code)
}

func TestFramework_ListFiltersAndSorts(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, code := range []string{"PDPL", "NCA-ECC", "SAMA-CSF"} {
		_, err := svc.CreateFramework(ctx, models.Framework{Code: code, Name: bilingual(code+" framework", "")})
		require.NoError(t, err)
	}

	all, err := svc.ListFrameworks(ctx, models.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "NCA-ECC", all[0].Code)
	assert.Equal(t, "PDPL", all[1].Code)
	assert.Equal(t, "SAMA-CSF", all[2].Code)

	hits, err := svc.ListFrameworks(ctx, models.ListFilter{Search: "sama"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "SAMA-CSF", hits[0].Code)
}

func TestDomain_RequiresExistingFramework(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateDomain(context.Background(), models.Domain{
		FrameworkID: "ghost",
		Code:        "D-1",
		Name:        bilingual("Governance", ""),
	})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDomain_ListOrdering(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	fw := seedFramework(t, svc)

	seedDomain(t, svc, fw.ID, "D-3", 3)
	seedDomain(t, svc, fw.ID, "D-1", 1)
	seedDomain(t, svc, fw.ID, "D-2", 2)

	domains, err := svc.ListDomains(ctx, fw.ID)
	require.NoError(t, err)
	require.Len(t, domains, 3)
	assert.Equal(t, "D-1", domains[0].Code)
	assert.Equal(t, "D-3", domains[2].Code)
}

func TestControl_CreateIndexesAndDeleteUnindexes(t *testing.T) {
	svc, _, idx := newTestService(t)
	ctx := context.Background()
	fw := seedFramework(t, svc)
	dom := seedDomain(t, svc, fw.ID, "D-1", 1)

	ctl, err := svc.CreateControl(ctx, models.Control{
		FrameworkID: fw.ID,
		DomainID:    dom.ID,
		Code:        "1-1",
		Name:        bilingual("Cybersecurity Strategy", "استراتيجية الأمن السيبراني"),
	})
	require.NoError(t, err)
	assert.Contains(t, idx.indexed, "control-"+ctl.ID)

	require.NoError(t, svc.DeleteControl(ctx, fw.ID, dom.ID, ctl.ID))
	assert.Contains(t, idx.removed, "control-"+ctl.ID)
}

func TestSpecification_HistoryAppendsOnUpdate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	fw := seedFramework(t, svc)
	dom := seedDomain(t, svc, fw.ID, "D-1", 1)
	ctl, err := svc.CreateControl(ctx, models.Control{
		FrameworkID: fw.ID, DomainID: dom.ID, Code: "1-1", Name: bilingual("Strategy", ""),
	})
	require.NoError(t, err)

	sp, err := svc.CreateSpecification(ctx, models.Specification{
		FrameworkID:     fw.ID,
		DomainID:        dom.ID,
		ControlID:       ctl.ID,
		Code:            "1-1-1",
		Name:            bilingual("Document the strategy", "توثيق الاستراتيجية"),
		CapabilityLevel: models.CapabilityBasic,
	}, "admin@example.com")
	require.NoError(t, err)
	require.Len(t, sp.History, 1)
	assert.Equal(t, 1, sp.CurrentVersion())

	sp.Name = bilingual("Document and approve the strategy", "توثيق واعتماد الاستراتيجية")
	sp.CapabilityLevel = models.CapabilityAdvanced
	updated, err := svc.UpdateSpecification(ctx, *sp, "editor@example.com")
	require.NoError(t, err)

	require.Len(t, updated.History, 2)
	assert.Equal(t, 2, updated.CurrentVersion())
	assert.Equal(t, models.CapabilityAdvanced, updated.History[1].CapabilityLevel)
	assert.Equal(t, "editor@example.com", updated.History[1].ChangedBy)
	// The original entry is untouched.
	assert.Equal(t, models.CapabilityBasic, updated.History[0].CapabilityLevel)
}

func TestSpecification_ListFilterByCapability(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	fw := seedFramework(t, svc)
	dom := seedDomain(t, svc, fw.ID, "D-1", 1)
	ctl, err := svc.CreateControl(ctx, models.Control{
		FrameworkID: fw.ID, DomainID: dom.ID, Code: "1-1", Name: bilingual("Strategy", ""),
	})
	require.NoError(t, err)

	for i, lvl := range []string{models.CapabilityBasic, models.CapabilityAdvanced, models.CapabilityBasic} {
		_, err := svc.CreateSpecification(ctx, models.Specification{
			FrameworkID: fw.ID, DomainID: dom.ID, ControlID: ctl.ID,
			Code: "1-1-" + string(rune('1'+i)), Name: bilingual("Spec", ""), CapabilityLevel: lvl, Order: i,
		}, "")
		require.NoError(t, err)
	}

	basics, err := svc.ListSpecifications(ctx, fw.ID, dom.ID, ctl.ID, models.ListFilter{CapabilityLevel: models.CapabilityBasic})
	require.NoError(t, err)
	assert.Len(t, basics, 2)
}

func TestFramework_DeleteCascadesAndCleansIndex(t *testing.T) {
	svc, m, idx := newTestService(t)
	ctx := context.Background()
	fw := seedFramework(t, svc)
	dom := seedDomain(t, svc, fw.ID, "D-1", 1)
	ctl, err := svc.CreateControl(ctx, models.Control{
		FrameworkID: fw.ID, DomainID: dom.ID, Code: "1-1", Name: bilingual("Strategy", ""),
	})
	require.NoError(t, err)
	sp, err := svc.CreateSpecification(ctx, models.Specification{
		FrameworkID: fw.ID, DomainID: dom.ID, ControlID: ctl.ID,
		Code: "1-1-1", Name: bilingual("Spec", ""), CapabilityLevel: models.CapabilityBasic,
	}, "")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteFramework(ctx, fw.ID))

	assert.Equal(t, 0, m.Len())
	assert.Contains(t, idx.removed, "control-"+ctl.ID)
	assert.Contains(t, idx.removed, "specification-"+sp.ID)
}

func TestProject_RequiresOrganizationAndFramework(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	fw := seedFramework(t, svc)

	org, err := svc.CreateOrganization(ctx, models.Organization{
		Name:   bilingual("Ministry of Health", "وزارة الصحة"),
		Sector: "health",
	})
	require.NoError(t, err)

	_, err = svc.CreateProject(ctx, models.Project{
		OrganizationID: "ghost", FrameworkID: fw.ID, Name: bilingual("Annual assessment", ""),
	})
	assert.True(t, apperrors.IsNotFound(err))

	p, err := svc.CreateProject(ctx, models.Project{
		OrganizationID: org.ID, FrameworkID: fw.ID, Name: bilingual("Annual assessment", "التقييم السنوي"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusDraft, p.Status)

	p.Status = models.ProjectStatusActive
	updated, err := svc.UpdateProject(ctx, *p)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusActive, updated.Status)

	active, err := svc.ListProjects(ctx, org.ID, models.ListFilter{Status: models.ProjectStatusActive})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestUser_DuplicateEmailRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, models.User{
		Email: "Admin@Example.com", DisplayName: "Admin", Role: models.RoleAdmin,
	})
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, models.User{
		Email: "admin@example.com", DisplayName: "Other", Role: models.RoleEditor,
	})
	require.Error(t, err)

	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeDuplicateDocument, stdErr.Code)
}

func TestUser_FindByEmailNormalizes(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, models.User{
		Email: "Reviewer@Example.com ", DisplayName: "Reviewer", Role: models.RoleReviewer, Language: "ar",
	})
	require.NoError(t, err)
	assert.Equal(t, "reviewer@example.com", created.Email)

	found, err := svc.FindUserByEmail(ctx, "REVIEWER@example.COM")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)

	missing, err := svc.FindUserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
