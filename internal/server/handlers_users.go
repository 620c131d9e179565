// internal/server/handlers_users.go
package server

import (
	"net/http"

	"taqyim/internal/models"
)

// User management is admin-only end to end.

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r) {
		return
	}
	users, err := s.taxonomy.ListUsers(r.Context(), listFilterFrom(r))
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, users)
}

// handleCreateUser creates the directory record and sends the invite. A failed
// invite does not roll the account back; the response carries the delivery
// state so the admin can resend.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r) {
		return
	}

	var u models.User
	if err := s.readJSON(r, &u); err != nil {
		s.responder.Write(w, r, err)
		return
	}

	created, err := s.taxonomy.CreateUser(r.Context(), u)
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}

	invited := false
	if s.notifier != nil {
		if err := s.notifier.SendInvite(r.Context(), *created, s.loginURL()); err != nil {
			s.logger.Warn("invite delivery failed", map[string]interface{}{"userId": created.ID, "error": err.Error()})
		} else {
			invited = true
		}
	}

	s.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user":    created,
		"invited": invited,
	})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r) {
		return
	}
	user, err := s.taxonomy.GetUser(r.Context(), r.PathValue("userID"))
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

// handleUpdateUser applies profile changes. Disabling an account or changing
// its role revokes every live session of that user.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r) {
		return
	}

	var u models.User
	if err := s.readJSON(r, &u); err != nil {
		s.responder.Write(w, r, err)
		return
	}
	u.ID = r.PathValue("userID")

	before, err := s.taxonomy.GetUser(r.Context(), u.ID)
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}

	updated, err := s.taxonomy.UpdateUser(r.Context(), u)
	if err != nil {
		s.responder.Write(w, r, err)
		return
	}

	if updated.Disabled || updated.Role != before.Role {
		if err := s.sessions.RevokeUser(updated.ID); err != nil {
			s.logger.Warn("session revocation failed", map[string]interface{}{"userId": updated.ID, "error": err.Error()})
		}
	}

	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r) {
		return
	}

	userID := r.PathValue("userID")
	if err := s.taxonomy.DeleteUser(r.Context(), userID); err != nil {
		s.responder.Write(w, r, err)
		return
	}
	if err := s.sessions.RevokeUser(userID); err != nil {
		s.logger.Warn("session revocation failed", map[string]interface{}{"userId": userID, "error": err.Error()})
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) loginURL() string {
	return "https://" + s.cfg.Server.Address + "/login"
}
