package handlers

import (
	"context"
	"net/http"

	"github.com/matiasleandrokruk/shopwise/internal/domain/audit"
)

// AuditReader is the read side of audit.AuditService.
type AuditReader interface {
	ListRecent(ctx context.Context, limit, offset int) ([]*audit.AuditEvent, int, error)
	ListByActor(ctx context.Context, actorID string, limit int) ([]*audit.AuditEvent, error)
	ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]*audit.AuditEvent, error)
	ListByOutcome(ctx context.Context, outcome audit.Outcome, limit, offset int) ([]*audit.AuditEvent, error)
}

// AuditHandler serves the admin view of the audit trail.
type AuditHandler struct {
	reader AuditReader
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(reader AuditReader) *AuditHandler {
	return &AuditHandler{reader: reader}
}

// ListAuditEventsResponse is the body of GET /api/v1/admin/audit.
type ListAuditEventsResponse struct {
	Data []*audit.AuditEvent `json:"data"`
	Meta Meta                `json:"meta"`
}

// ListEvents handles GET /api/v1/admin/audit. At most one filter applies, in
// this order: actor, entityType+entityId, outcome. Without a filter the most
// recent events are returned with their total count.
func (h *AuditHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	page := parsePaginationParams(r)
	q := r.URL.Query()
	ctx := r.Context()

	var (
		events []*audit.AuditEvent
		total  int
		err    error
	)
	switch {
	case q.Get("actor") != "":
		events, err = h.reader.ListByActor(ctx, q.Get("actor"), page.Limit)
		total = len(events)
	case q.Get("entityType") != "" && q.Get("entityId") != "":
		events, err = h.reader.ListByEntity(ctx, q.Get("entityType"), q.Get("entityId"), page.Limit)
		total = len(events)
	case q.Get("outcome") != "":
		outcome := audit.Outcome(q.Get("outcome"))
		if !validOutcome(outcome) {
			writeError(w, http.StatusBadRequest, "unknown outcome")
			return
		}
		events, err = h.reader.ListByOutcome(ctx, outcome, page.Limit, page.Offset)
		total = len(events)
	default:
		events, total, err = h.reader.ListRecent(ctx, page.Limit, page.Offset)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list audit events")
		return
	}
	if events == nil {
		events = []*audit.AuditEvent{}
	}
	writeJSON(w, http.StatusOK, ListAuditEventsResponse{
		Data: events,
		Meta: Meta{Total: total, Limit: page.Limit, Offset: page.Offset},
	})
}

func validOutcome(o audit.Outcome) bool {
	switch o {
	case audit.OutcomeSuccess, audit.OutcomeDenied, audit.OutcomeError:
		return true
	}
	return false
}
