package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/roofwatch-core/internal/audit"
	"github.com/nerrad567/roofwatch-core/internal/auth"
	"github.com/nerrad567/roofwatch-core/internal/notify"
	"github.com/nerrad567/roofwatch-core/internal/portal"
	"github.com/nerrad567/roofwatch-core/internal/resource"
)

// mutationChanSize is the buffer size for the async mutation channel.
// Entries beyond this are dropped (best-effort) to avoid back-pressure on requests.
const mutationChanSize = 256

// mutation is a successful change waiting to be audited and, for portal
// resources, announced to the fan-out.
type mutation struct {
	entry audit.Entry
	event *notify.Event
}

// recordMutation enqueues a successful change for the audit trail and the
// notification fan-out. It never blocks the request.
func (s *Server) recordMutation(r *http.Request, action string, kind resource.Kind, entityID, tenantID string, details map[string]any) {
	var actorID string
	if id := auth.IdentityFromContext(r.Context()); id != nil {
		actorID = id.ID
	}
	requestID := requestIDFrom(r)
	now := time.Now().UTC()

	m := mutation{
		entry: audit.Entry{
			Action:     action,
			EntityType: string(kind),
			EntityID:   entityID,
			UserID:     actorID,
			RequestID:  requestID,
			Details:    details,
		},
		event: &notify.Event{
			Kind:       kind,
			Action:     action,
			EntityID:   entityID,
			TenantID:   tenantID,
			ActorID:    actorID,
			RequestID:  requestID,
			OccurredAt: now,
		},
	}

	s.enqueue(m)
}

// enqueueAudit records an audit entry with no accompanying event.
func (s *Server) enqueueAudit(e audit.Entry) {
	s.enqueue(mutation{entry: e})
}

func (s *Server) enqueue(m mutation) {
	select {
	case s.mutationCh <- m:
	default:
		s.logger.Warn("mutation channel full, dropping entry",
			"action", m.entry.Action,
			"entity_type", m.entry.EntityType,
			"request_id", m.entry.RequestID,
		)
	}
}

// drainMutations writes queued mutations serially until ctx is cancelled,
// then drains what is left.
func (s *Server) drainMutations(ctx context.Context) {
	for {
		select {
		case m := <-s.mutationCh:
			s.applyMutation(m)
		case <-ctx.Done():
			for {
				select {
				case m := <-s.mutationCh:
					s.applyMutation(m)
				default:
					return
				}
			}
		}
	}
}

func (s *Server) applyMutation(m mutation) {
	// The request is already answered; its context is gone.
	ctx := context.Background()

	if s.auditRepo != nil {
		if err := s.auditRepo.Create(ctx, &m.entry); err != nil {
			s.logger.Error("audit log write failed",
				"action", m.entry.Action,
				"entity_type", m.entry.EntityType,
				"error", err,
			)
		}
	}

	if m.event == nil {
		return
	}
	if err := s.events.Publish(ctx, *m.event); err != nil {
		s.logger.Warn("event publish failed",
			"kind", m.event.Kind,
			"action", m.event.Action,
			"error", err,
		)
	}
}

// handleListAudit returns paginated audit entries.
//
// Query parameters:
//   - action: create, update, delete, login
//   - entity_type: resource kind
//   - entity_id, user_id: exact match
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeOK(w, http.StatusOK, &audit.ListResult{Entries: []audit.Entry{}})
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		UserID:     q.Get("user_id"),
	}

	var err error
	if filter.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if filter.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, result)
}

// intParam parses an optional non-negative integer query parameter.
func intParam(v, field string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, &portal.ValidationError{Field: field, Message: field + " must be a non-negative integer"}
	}
	return n, nil
}
