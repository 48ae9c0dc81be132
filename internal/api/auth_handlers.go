package api

import (
	"net/http"

	"github.com/bookhavenapp/bookhaven-server/internal/http/response"
	"github.com/bookhavenapp/bookhaven-server/internal/service"
)

// handleRegister creates a customer account and signs it in.
// POST /api/v1/auth/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	resp, err := s.authService.Register(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	s.setSessionCookie(w, resp.Token, resp.ExpiresAt)
	response.Created(w, resp, s.logger)
}

// handleLogin verifies credentials and issues a session. The guest
// cart, if any, is merged into the account's cart.
// POST /api/v1/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}
	req.SessionCartID = getCartID(r.Context())

	resp, err := s.authService.Login(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	s.setSessionCookie(w, resp.Token, resp.ExpiresAt)
	response.Success(w, resp, s.logger)
}

// handleLogout clears the session cookie. Tokens are self-contained so
// there is nothing to revoke server-side; expiry bounds the exposure.
// POST /api/v1/auth/logout
func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.clearSessionCookie(w)
	response.NoContent(w)
}

// handleGetCurrentUser returns the signed-in user's profile.
// GET /api/v1/users/me
func (s *Server) handleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUser(r.Context(), getUserID(r.Context()))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, user, s.logger)
}
