// internal/server/middleware.go
package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "taqyim/internal/common/errors"
	"taqyim/internal/common/metrics"
	"taqyim/internal/models"
)

type contextKey string

const sessionContextKey contextKey = "session"

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withObservability logs every request and feeds the HTTP metrics. The metric
// route label collapses IDs out of the path to keep cardinality bounded.
func (s *Server) withObservability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := metricRoute(r.URL.Path)
		elapsed := time.Since(start)

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

		s.logger.Info("request handled", map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": elapsed.String(),
		})
	})
}

// metricRoute replaces ID segments with placeholders: the route skeleton is
// the label, never the raw path.
func metricRoute(path string) string {
	segments := strings.Split(path, "/")
	// Known collection names keep their literal segment; everything after one
	// is an identifier.
	known := map[string]bool{
		"": true, "api": true, "v1": true, "auth": true, "login": true, "logout": true,
		"me": true, "organizations": true, "projects": true, "frameworks": true,
		"domains": true, "controls": true, "specifications": true, "criteria": true,
		"distribute": true, "search": true, "import": true, "export": true,
		"templates": true, "users": true, "metrics": true, "healthz": true,
	}
	for i, seg := range segments {
		if !known[seg] {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

// withSession authenticates the request from the session cookie, refreshes the
// sliding expiry, and stashes the session in the request context.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(s.cfg.Auth.Session.CookieName)
		if err != nil {
			s.responder.Write(w, r, apperrors.NewAuthenticationError("missing session cookie"))
			return
		}

		session, err := s.sessions.FindByToken(cookie.Value)
		if err != nil {
			s.clearSessionCookie(w)
			s.responder.Write(w, r, err)
			return
		}

		if err := s.sessions.Refresh(session); err != nil {
			s.logger.Warn("session refresh failed", map[string]interface{}{"error": err.Error()})
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFrom returns the authenticated session, nil outside the middleware.
func sessionFrom(ctx context.Context) *models.Session {
	session, _ := ctx.Value(sessionContextKey).(*models.Session)
	return session
}

// requireRole enforces a minimum role for mutating endpoints. Admin passes
// every check; editors pass editor checks; reviewers are read-only.
func (s *Server) requireRole(w http.ResponseWriter, r *http.Request, roles ...string) bool {
	session := sessionFrom(r.Context())
	if session == nil {
		s.responder.Write(w, r, apperrors.NewAuthenticationError("no session"))
		return false
	}
	if session.Role == models.RoleAdmin {
		return true
	}
	for _, role := range roles {
		if session.Role == role {
			return true
		}
	}
	s.responder.Write(w, r, apperrors.NewForbiddenError("role "+session.Role+" cannot perform this operation"))
	return false
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Auth.Session.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.cfg.Auth.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Auth.Session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.Auth.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
