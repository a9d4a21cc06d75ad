package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/roofwatch-core/internal/audit"
	"github.com/nerrad567/roofwatch-core/internal/auth"
	"github.com/nerrad567/roofwatch-core/internal/portal"
	"github.com/nerrad567/roofwatch-core/internal/resource"
)

// createBuildingRequest is the request body for POST /admin/buildings.
type createBuildingRequest struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
}

// renameRequest is the request body for PATCH /{kind}/{id}. Any other
// field, including a tenant id, is ignored.
type renameRequest struct {
	Name string `json:"name"`
}

// clientDeletable lists the kinds a client may delete from the portal.
var clientDeletable = map[resource.Kind]bool{
	resource.KindInterventionFile: true,
}

// resourceTarget parses {kind}/{id} from the route. An unknown kind is
// reported as not found.
func resourceTarget(r *http.Request) (resource.Kind, string, error) {
	kind, err := resource.ParseSegment(chi.URLParam(r, "kind"))
	if err != nil {
		return "", "", portal.ErrNotFound
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		return "", "", portal.ErrNotFound
	}
	return kind, id, nil
}

// authorizeResource runs the ownership check for the caller in context.
func (s *Server) authorizeResource(r *http.Request, kind resource.Kind, id string) (auth.Chain, error) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		return auth.Chain{}, auth.ErrUnauthenticated
	}
	return s.ownership.AuthorizeChain(r.Context(), identity.Scope(), kind, id)
}

// handleCreateBuilding creates a building under an existing client.
func (s *Server) handleCreateBuilding(w http.ResponseWriter, r *http.Request) {
	var req createBuildingRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if _, err := portal.ValidateName(req.Name); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" {
		s.writeFailure(w, r, &portal.ValidationError{Field: "client_id", Message: "client_id is required"})
		return
	}

	if _, err := s.authorizeResource(r, resource.KindClient, clientID); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	rec, err := s.portal.CreateBuilding(r.Context(), clientID, req.Name)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	s.recordMutation(r, audit.ActionCreate, resource.KindBuilding, rec.ID, clientID, map[string]any{"name": rec.Name})
	w.Header().Set("Location", "/api/v1/admin/"+resource.KindBuilding.Segment()+"/"+rec.ID)
	writeOK(w, http.StatusCreated, rec)
}

// handleGetResource returns one resource the caller owns.
func (s *Server) handleGetResource(w http.ResponseWriter, r *http.Request) {
	kind, id, err := resourceTarget(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	if _, err := s.authorizeResource(r, kind, id); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	rec, err := s.portal.Get(r.Context(), kind, id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, rec)
}

// handleRenameResource renames one resource the caller owns.
func (s *Server) handleRenameResource(w http.ResponseWriter, r *http.Request) {
	kind, id, err := resourceTarget(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if _, err := portal.ValidateName(req.Name); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	chain, err := s.authorizeResource(r, kind, id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	rec, err := s.portal.Rename(r.Context(), kind, id, req.Name)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	s.recordMutation(r, audit.ActionUpdate, kind, id, chain.TenantID, map[string]any{"name": rec.Name})
	writeOK(w, http.StatusOK, rec)
}

// handleDeleteResource deletes one resource. Clients may only delete the
// kinds in clientDeletable.
func (s *Server) handleDeleteResource(w http.ResponseWriter, r *http.Request) {
	kind, id, err := resourceTarget(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	if identity := auth.IdentityFromContext(r.Context()); !identity.IsAdmin() && !clientDeletable[kind] {
		s.writeFailure(w, r, auth.ErrRoleForbidden)
		return
	}

	chain, err := s.authorizeResource(r, kind, id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	if err := s.portal.Delete(r.Context(), kind, id); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	s.recordMutation(r, audit.ActionDelete, kind, id, chain.TenantID, nil)
	writeOK(w, http.StatusOK, nil)
}
