// internal/server/server_test.go
package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taqyim/internal/auth"
	"taqyim/internal/common/config"
	apperrors "taqyim/internal/common/errors"
	"taqyim/internal/common/logger"
	"taqyim/internal/criteria"
	"taqyim/internal/models"
	"taqyim/internal/store/storetest"
	"taqyim/internal/taxonomy"
)

// memSessions is an in-memory SessionMinter for handler tests.
type memSessions struct {
	byToken map[string]*models.Session
	revoked []string
}

func newMemSessions() *memSessions {
	return &memSessions{byToken: map[string]*models.Session{}}
}

func (m *memSessions) NewSession(user models.User, ip, userAgent string) *models.Session {
	now := time.Now()
	return &models.Session{
		ID: uuid.NewString(), UserID: user.ID, Token: uuid.NewString(),
		Role: user.Role, Language: user.Language, IPAddress: ip, UserAgent: userAgent,
		CreatedAt: now, ExpiresAt: now.Add(time.Hour), LastActivity: now,
	}
}

func (m *memSessions) Create(s *models.Session) error {
	m.byToken[s.Token] = s
	return nil
}

func (m *memSessions) FindByToken(token string) (*models.Session, error) {
	s, ok := m.byToken[token]
	if !ok || s.IsExpired() {
		return nil, apperrors.NewSessionExpiredError()
	}
	return s, nil
}

func (m *memSessions) Refresh(s *models.Session) error { return nil }

func (m *memSessions) Revoke(token string) error {
	delete(m.byToken, token)
	return nil
}

func (m *memSessions) RevokeUser(userID string) error {
	m.revoked = append(m.revoked, userID)
	for token, s := range m.byToken {
		if s.UserID == userID {
			delete(m.byToken, token)
		}
	}
	return nil
}

type fixture struct {
	server   *Server
	handler  http.Handler
	taxonomy *taxonomy.Service
	criteria *criteria.Service
	sessions *memSessions
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	docs := storetest.New()
	log := logger.NewNoOpLogger()
	taxSvc := taxonomy.NewService(docs, nil, log)
	critSvc := criteria.NewService(docs, log)
	sessions := newMemSessions()

	cfg := config.Config{}
	cfg.Server.Address = "127.0.0.1:0"
	cfg.Auth.Session.CookieName = "taqyim_session"

	srv := New(cfg, Deps{
		Taxonomy: taxSvc,
		Criteria: critSvc,
		Sessions: sessions,
	}, log)

	return &fixture{
		server:   srv,
		handler:  srv.Handler(),
		taxonomy: taxSvc,
		criteria: critSvc,
		sessions: sessions,
	}
}

// loginAs seeds a session directly, bypassing the identity provider.
func (f *fixture) loginAs(t *testing.T, role string) *http.Cookie {
	t.Helper()
	session := f.sessions.NewSession(models.User{ID: "u-" + role, Role: role}, "", "")
	require.NoError(t, f.sessions.Create(session))
	return &http.Cookie{Name: "taqyim_session", Value: session.Token}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestAPI_RequiresSession(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/frameworks", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_HealthAndMetricsAreOpen(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFrameworkEndpoints_CRUD(t *testing.T) {
	f := newFixture(t)
	cookie := f.loginAs(t, models.RoleEditor)

	rec := f.do(t, http.MethodPost, "/api/v1/frameworks", models.Framework{
		Code: "NCA-ECC",
		Name: models.LocalizedText{En: "Essential Controls", Ar: "الضوابط الأساسية"},
	}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[models.Framework](t, rec)
	require.NotEmpty(t, created.ID)

	rec = f.do(t, http.MethodGet, "/api/v1/frameworks/"+created.ID, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[models.Framework](t, rec)
	assert.Equal(t, "NCA-ECC", got.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/frameworks", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]models.Framework](t, rec)
	assert.Len(t, list, 1)

	rec = f.do(t, http.MethodGet, "/api/v1/frameworks/ghost", nil, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFrameworkDelete_IsAdminOnly(t *testing.T) {
	f := newFixture(t)
	editor := f.loginAs(t, models.RoleEditor)
	admin := f.loginAs(t, models.RoleAdmin)

	rec := f.do(t, http.MethodPost, "/api/v1/frameworks", models.Framework{
		Code: "X", Name: models.LocalizedText{En: "X"},
	}, editor)
	require.Equal(t, http.StatusCreated, rec.Code)
	fw := decodeBody[models.Framework](t, rec)

	rec = f.do(t, http.MethodDelete, "/api/v1/frameworks/"+fw.ID, nil, editor)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/frameworks/"+fw.ID, nil, admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestReviewerIsReadOnly(t *testing.T) {
	f := newFixture(t)
	reviewer := f.loginAs(t, models.RoleReviewer)

	rec := f.do(t, http.MethodPost, "/api/v1/frameworks", models.Framework{
		Code: "X", Name: models.LocalizedText{En: "X"},
	}, reviewer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/frameworks", nil, reviewer)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCriteriaEndpoints(t *testing.T) {
	f := newFixture(t)
	cookie := f.loginAs(t, models.RoleEditor)

	rec := f.do(t, http.MethodPost, "/api/v1/frameworks", models.Framework{
		Code: "NCA-ECC", Name: models.LocalizedText{En: "Essential Controls"},
	}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code)
	fw := decodeBody[models.Framework](t, rec)

	for i := 1; i <= 2; i++ {
		rec = f.do(t, http.MethodPost, "/api/v1/frameworks/"+fw.ID+"/domains", models.Domain{
			Code: fmt.Sprintf("D-%d", i), Name: models.LocalizedText{En: "Domain"}, Order: i,
		}, cookie)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	// No criteria yet.
	rec = f.do(t, http.MethodGet, "/api/v1/frameworks/"+fw.ID+"/criteria", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	empty := decodeBody[map[string]interface{}](t, rec)
	assert.Nil(t, empty["criteria"])

	// Distribute evenly over the two domains.
	rec = f.do(t, http.MethodPost, "/api/v1/frameworks/"+fw.ID+"/criteria/distribute", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	dist := decodeBody[struct {
		DomainWeights []models.DomainWeight `json:"domainWeights"`
		WeightSum     float64               `json:"weightSum"`
	}](t, rec)
	require.Len(t, dist.DomainWeights, 2)
	assert.Equal(t, 100.0, dist.WeightSum)

	// Saving with a bad sum fails with 400.
	rec = f.do(t, http.MethodPut, "/api/v1/frameworks/"+fw.ID+"/criteria", models.AssessmentCriteria{
		Type:          models.CriteriaTypePercentage,
		DomainWeights: []models.DomainWeight{{DomainID: dist.DomainWeights[0].DomainID, Weight: 60}},
	}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A complete save succeeds.
	rec = f.do(t, http.MethodPut, "/api/v1/frameworks/"+fw.ID+"/criteria", models.AssessmentCriteria{
		Type:          models.CriteriaTypePercentage,
		DomainWeights: dist.DomainWeights,
	}, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/v1/frameworks/"+fw.ID+"/criteria", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	saved := decodeBody[map[string]interface{}](t, rec)
	assert.NotNil(t, saved["criteria"])
	assert.Equal(t, true, saved["weightsComplete"])

	// Saving against a missing framework is 404.
	rec = f.do(t, http.MethodPut, "/api/v1/frameworks/ghost/criteria", models.AssessmentCriteria{
		Type:          models.CriteriaTypePercentage,
		DomainWeights: dist.DomainWeights,
	}, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/frameworks/"+fw.ID+"/criteria", nil, cookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUserUpdate_DisableRevokesSessions(t *testing.T) {
	f := newFixture(t)
	admin := f.loginAs(t, models.RoleAdmin)

	rec := f.do(t, http.MethodPost, "/api/v1/users", models.User{
		Email: "editor@example.com", DisplayName: "Editor", Role: models.RoleEditor,
	}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[struct {
		User models.User `json:"user"`
	}](t, rec)

	update := created.User
	update.Disabled = true
	rec = f.do(t, http.MethodPut, "/api/v1/users/"+created.User.ID, update, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Contains(t, f.sessions.revoked, created.User.ID)
}

func TestUserEndpoints_AdminOnly(t *testing.T) {
	f := newFixture(t)
	editor := f.loginAs(t, models.RoleEditor)

	rec := f.do(t, http.MethodGet, "/api/v1/users", nil, editor)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginFlow(t *testing.T) {
	f := newFixture(t)

	// Identity provider that accepts any credentials.
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok","expires_in":300}`))
	}))
	t.Cleanup(idp.Close)

	authCfg := config.AuthConfig{}
	authCfg.Provider.URL = idp.URL
	authCfg.Provider.Realm = "taqyim"
	f.server.identity = auth.NewIdentityClient(authCfg)
	f.handler = f.server.Handler()

	admin := f.loginAs(t, models.RoleAdmin)
	rec := f.do(t, http.MethodPost, "/api/v1/users", models.User{
		Email: "admin2@example.com", DisplayName: "Admin Two", Role: models.RoleAdmin,
	}, admin)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/auth/login", loginRequest{
		Email: "admin2@example.com", Password: "hunter2",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "taqyim_session", cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)

	// The minted cookie authenticates subsequent requests.
	rec = f.do(t, http.MethodGet, "/api/v1/auth/me", nil, cookies[0])
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody[models.User](t, rec)
	assert.Equal(t, "admin2@example.com", me.Email)
}

func TestLogin_UnknownUserRejected(t *testing.T) {
	f := newFixture(t)

	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok","expires_in":300}`))
	}))
	t.Cleanup(idp.Close)

	authCfg := config.AuthConfig{}
	authCfg.Provider.URL = idp.URL
	f.server.identity = auth.NewIdentityClient(authCfg)
	f.handler = f.server.Handler()

	rec := f.do(t, http.MethodPost, "/api/v1/auth/login", loginRequest{
		Email: "nobody@example.com", Password: "x",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name      string
		forwarded string
		remote    string
		want      string
	}{
		{"no proxy", "", "203.0.113.7:4411", "203.0.113.7:4411"},
		{"single hop", "198.51.100.10", "10.0.0.1:80", "198.51.100.10"},
		{"proxy chain keeps first hop", "198.51.100.10, 10.0.0.2, 10.0.0.3", "10.0.0.1:80", "198.51.100.10"},
		{"chain with spaces", " 198.51.100.10 ,10.0.0.2", "10.0.0.1:80", "198.51.100.10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, clientIP(r))
		})
	}
}
