// internal/server/handlers_auth.go
package server

import (
	"net/http"
	"strings"

	apperrors "taqyim/internal/common/errors"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	Language    string `json:"language,omitempty"`
}

// handleLogin verifies credentials against the identity provider, then mints a
// Redis session and sets the cookie. Disabled accounts cannot log in even with
// valid credentials.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.readJSON(r, &req); err != nil {
		s.responder.Write(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		s.responder.Write(w, r, apperrors.NewValidationFailedError("email and password are required"))
		return
	}

	if _, err := s.identity.Authenticate(r.Context(), req.Email, req.Password); err != nil {
		s.responder.Write(w, r, err)
		return
	}

	user, err := s.taxonomy.FindUserByEmail(r.Context(), req.Email)
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	if user == nil || user.Disabled {
		s.responder.Write(w, r, apperrors.NewAuthenticationError("account is not active"))
		return
	}

	session := s.sessions.NewSession(*user, clientIP(r), r.UserAgent())
	if err := s.sessions.Create(session); err != nil {
		s.responder.Write(w, r, err)
		return
	}

	s.setSessionCookie(w, session.Token, session.ExpiresAt)
	s.writeJSON(w, http.StatusOK, loginResponse{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		Language:    user.Language,
	})
}

// handleLogout revokes the current session and clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	if session != nil {
		if err := s.sessions.Revoke(session.Token); err != nil {
			s.logger.Warn("session revoke failed", map[string]interface{}{"error": err.Error()})
		}
	}
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleMe returns the authenticated user's profile.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	user, err := s.taxonomy.GetUser(r.Context(), session.UserID)
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

// clientIP resolves the originating address. X-Forwarded-For may carry a
// comma-separated proxy chain; only the first hop is the client.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return r.RemoteAddr
}
