package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/roofwatch-core/internal/auth"
	"github.com/nerrad567/roofwatch-core/internal/csrf"
	"github.com/nerrad567/roofwatch-core/internal/portal"
	"github.com/nerrad567/roofwatch-core/internal/ratelimit"
)

// errInvalidRequest marks undecodable or oversized request bodies.
var errInvalidRequest = errors.New("invalid request")

// Pipeline gates, used as metric and telemetry labels.
const (
	gateAuthn     = "authn"
	gateRole      = "role"
	gateOwnership = "ownership"
	gateCSRF      = "csrf"
	gateRateLimit = "ratelimit"
	gateHandler   = "handler"
)

// errorResponse is the only error shape the API returns.
type errorResponse struct {
	Error string `json:"error"`
}

// okResponse is the only success shape the API returns.
type okResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

// failure is a classified error: what the caller sees and how it is counted.
type failure struct {
	status  int
	message string
	gate    string
	reason  string
}

var internalFailure = failure{
	status:  http.StatusInternalServerError,
	message: "internal server error",
	gate:    gateHandler,
	reason:  "internal",
}

// classify maps an error onto the fixed set of user-facing failures.
// Anything unrecognised is an internal error.
func classify(err error) failure {
	var validation *portal.ValidationError

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return failure{http.StatusUnauthorized, "invalid credentials", gateAuthn, "invalid_credentials"}
	case errors.Is(err, auth.ErrUnauthenticated):
		return failure{http.StatusUnauthorized, "authentication required", gateAuthn, "unauthenticated"}
	case errors.Is(err, auth.ErrAccountSuspended):
		return failure{http.StatusForbidden, "account suspended", gateRole, "suspended"}
	case errors.Is(err, auth.ErrRoleForbidden):
		return failure{http.StatusForbidden, "insufficient permissions", gateRole, "role"}
	case errors.Is(err, auth.ErrNotOwner):
		return failure{http.StatusForbidden, "access denied", gateOwnership, "not_owner"}
	case errors.Is(err, csrf.ErrMissingToken):
		return failure{http.StatusForbidden, "invalid csrf token", gateCSRF, "missing"}
	case errors.Is(err, csrf.ErrTokenMismatch):
		return failure{http.StatusForbidden, "invalid csrf token", gateCSRF, "mismatch"}
	case errors.Is(err, ratelimit.ErrLimited):
		return failure{http.StatusTooManyRequests, "too many requests", gateRateLimit, "limited"}
	case errors.Is(err, auth.ErrNotFound):
		return failure{http.StatusNotFound, "not found", gateOwnership, "not_found"}
	case errors.Is(err, portal.ErrNotFound):
		return failure{http.StatusNotFound, "not found", gateHandler, "not_found"}
	case errors.As(err, &validation):
		return failure{http.StatusBadRequest, validation.Message, gateHandler, "validation"}
	case errors.Is(err, errInvalidRequest):
		return failure{http.StatusBadRequest, "invalid request", gateHandler, "bad_request"}
	case errors.Is(err, portal.ErrConflict):
		return failure{http.StatusConflict, "conflict", gateHandler, "conflict"}
	default:
		return internalFailure
	}
}

// writeFailure is the single exit for every rejected request. Only internal
// errors are logged, with the identity and request id attached; every other
// kind is safe to surface as its fixed message.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	f := classify(err)

	if f.status == http.StatusInternalServerError {
		var identityID string
		if id := auth.IdentityFromContext(r.Context()); id != nil {
			identityID = id.ID
		}
		s.logger.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"identity_id", identityID,
			"request_id", requestIDFrom(r),
		)
	}

	s.recordRejection(f)
	writeError(w, f.status, f.message)
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeOK writes the success envelope.
func writeOK(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, okResponse{OK: true, Data: data})
}

// writeError writes the error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decodeJSON reads a JSON body into v. Any failure, including an oversized
// body, is errInvalidRequest.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(errInvalidRequest, err)
	}
	return nil
}
