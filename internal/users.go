package internal

import (
	"errors"
	"net/http"
	"strings"

	"it-inventory-api/internal/auth"
	"it-inventory-api/internal/handlers"
	"it-inventory-api/internal/inventory"
	"it-inventory-api/internal/models"
)

// registerUser creates an account; the very first one becomes an admin
func (s *Server) registerUser(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !s.decode(w, r, &req) {
		return
	}
	user, err := s.Service.Register(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// loginUser handles user authentication
func (s *Server) loginUser(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		handlers.BadRequest(w, "Username and password are required")
		return
	}

	user, err := s.Service.Login(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, inventory.ErrInvalidCredentials):
		auth.SendErrorResponse(w, "Incorrect username or password", "INVALID_CREDENTIALS", http.StatusUnauthorized)
		return
	case errors.Is(err, inventory.ErrInactiveUser):
		auth.SendErrorResponse(w, "User account is inactive", "INACTIVE_USER", http.StatusForbidden)
		return
	case err != nil:
		s.fail(w, r, err)
		return
	}

	token, expiresAt, err := s.JWTManager.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		TokenType: "bearer",
		ExpiresAt: expiresAt,
		User:      user.Redacted(),
	})
}

// getProfile returns the authenticated user
func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.Service.GetUser(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req models.ChangePasswordRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.Service.ChangePassword(r.Context(), actor(r), req.CurrentPassword, req.NewPassword); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed"})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Service.ListUsers(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// updateUser changes a user's role or active flag
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req models.UpdateUserRequest
	if !s.decode(w, r, &req) {
		return
	}
	user, err := s.Service.UpdateUser(r.Context(), actor(r), id, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
