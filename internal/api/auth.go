package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/nerrad567/roofwatch-core/internal/audit"
	"github.com/nerrad567/roofwatch-core/internal/auth"
	"github.com/nerrad567/roofwatch-core/internal/portal"
)

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// csrfResponse is the body of GET /auth/csrf.
type csrfResponse struct {
	Token  string `json:"csrf_token"`
	Header string `json:"header"`
}

// handleCSRFToken is the bootstrap request: it sets the token cookie and
// returns the same value for the client to echo in the CSRF header.
func (s *Server) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	token, err := s.csrf.Issue(w)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeOK(w, http.StatusOK, csrfResponse{Token: token, Header: s.csrf.HeaderName()})
}

// handleLogin exchanges an email and password for a session at the
// identity provider. CSRF and the auth rate-limit policy have already run,
// so throttled origins never reach the credential check.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		s.writeFailure(w, r, &portal.ValidationError{Field: "email", Message: "email and password are required"})
		return
	}

	session, err := s.signIn.SignIn(r.Context(), req.Email, req.Password)
	if err == nil && (session == nil || session.User.ID == "") {
		err = errors.New("sign-in returned a session without a user id")
	}
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	s.logger.Info("user signed in", "user_id", session.User.ID, "request_id", requestIDFrom(r))
	s.enqueueAudit(audit.Entry{
		Action:     audit.ActionLogin,
		EntityType: "session",
		EntityID:   session.User.ID,
		UserID:     session.User.ID,
		RequestID:  requestIDFrom(r),
	})

	w.Header().Set("Cache-Control", "no-store")
	writeOK(w, http.StatusOK, session)
}

// handleMe returns the resolved identity. Clients see their effective
// tenant set.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		s.writeFailure(w, r, auth.ErrUnauthenticated)
		return
	}
	writeOK(w, http.StatusOK, identity)
}
