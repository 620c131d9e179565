// internal/criteria/service_test.go
package criteria

import (
	"context"
	"testing"

	"taqyim/internal/common/logger"
	"taqyim/internal/models"
	"taqyim/internal/store"
	"taqyim/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCriteria() models.AssessmentCriteria {
	return models.AssessmentCriteria{
		Type: models.CriteriaTypeCompliance,
		Levels: []models.CriteriaLevel{
			level("Non-compliant", 0),
			level("Compliant", 100),
		},
		DomainWeights: []models.DomainWeight{
			{DomainID: "d1", Weight: 40},
			{DomainID: "d2", Weight: 60},
		},
	}
}

func TestService_GetReturnsNilWhenAbsent(t *testing.T) {
	svc := NewService(storetest.New(), logger.NewNoOpLogger())

	got, err := svc.Get(context.Background(), "fw1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestService_SaveThenGet(t *testing.T) {
	svc := NewService(storetest.New(), logger.NewNoOpLogger())

	require.NoError(t, svc.Save(context.Background(), "fw1", validCriteria()))

	got, err := svc.Get(context.Background(), "fw1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "fw1", got.FrameworkID)
	assert.Equal(t, models.CriteriaTypeCompliance, got.Type)
}

func TestService_SaveRejectsInvalidCriteria(t *testing.T) {
	m := storetest.New()
	svc := NewService(m, logger.NewNoOpLogger())

	c := validCriteria()
	c.DomainWeights[1].Weight = 50 // sum 90

	err := svc.Save(context.Background(), "fw1", c)
	require.Error(t, err)
	assert.False(t, m.Has(store.CriteriaPath("fw1")))
}

func TestService_ChangeCallbackFiresOnSaveAndDelete(t *testing.T) {
	svc := NewService(storetest.New(), logger.NewNoOpLogger())

	var notified []string
	svc.OnChange(func(frameworkID string) { notified = append(notified, frameworkID) })

	require.NoError(t, svc.Save(context.Background(), "fw1", validCriteria()))
	require.NoError(t, svc.Delete(context.Background(), "fw1"))

	assert.Equal(t, []string{"fw1", "fw1"}, notified)
}

func TestService_ChangeCallbackNotFiredOnFailedSave(t *testing.T) {
	m := storetest.New()
	m.FailWrites = true
	svc := NewService(m, logger.NewNoOpLogger())

	fired := false
	svc.OnChange(func(string) { fired = true })

	err := svc.Save(context.Background(), "fw1", validCriteria())
	require.Error(t, err)
	assert.False(t, fired)
}

func TestService_DeleteMissingIsNotAnError(t *testing.T) {
	svc := NewService(storetest.New(), logger.NewNoOpLogger())
	assert.NoError(t, svc.Delete(context.Background(), "fw1"))
}

func TestService_FrameworkDomainsSortedByOrder(t *testing.T) {
	m := storetest.New()
	m.Put(t, store.DomainPath("fw1", "b"), models.Domain{ID: "b", Code: "D-2", Order: 2})
	m.Put(t, store.DomainPath("fw1", "c"), models.Domain{ID: "c", Code: "D-3", Order: 3})
	m.Put(t, store.DomainPath("fw1", "a"), models.Domain{ID: "a", Code: "D-1", Order: 1})
	svc := NewService(m, logger.NewNoOpLogger())

	domains, err := svc.FrameworkDomains(context.Background(), "fw1")
	require.NoError(t, err)
	require.Len(t, domains, 3)
	assert.Equal(t, "a", domains[0].ID)
	assert.Equal(t, "b", domains[1].ID)
	assert.Equal(t, "c", domains[2].ID)
}
