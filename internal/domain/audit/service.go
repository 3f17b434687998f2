package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/matiasleandrokruk/shopwise/pkg/uuid"
)

// ErrNotFound is returned when an audit event does not exist.
var ErrNotFound = errors.New("audit event not found")

// AuditService provides audit logging capabilities.
// All operations are append-only; no updates or deletes are supported.
//
//nolint:revive // AuditService reads better than Service at call sites
type AuditService struct {
	db *sql.DB
}

// NewAuditService creates a new audit service.
func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db}
}

// timestampLayout is fixed width so created_at sorts lexicographically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

const auditColumns = `id, actor_id, actor_type, action, entity_type, entity_id, details,
	outcome, trace_id, ip_address, user_agent, created_at`

// Log creates a new audit event (append-only, immutable).
// This is the ONLY way to create audit events - no updates, no deletes.
func (s *AuditService) Log(ctx context.Context, event *AuditEvent) error {
	if event.ID == "" {
		event.ID = generateID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	details := normalizeJSON(event.Details, []byte("{}"))

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_event (`+auditColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID, event.ActorID, string(event.ActorType), event.Action,
		event.EntityType, event.EntityID, string(details), string(event.Outcome),
		event.TraceID, event.IPAddress, event.UserAgent,
		event.CreatedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("audit log %s: %w", event.Action, err)
	}
	return nil
}

// LogWithDetails is a helper for the common case with structured details.
func (s *AuditService) LogWithDetails(
	ctx context.Context,
	actorID string,
	actorType ActorType,
	action string,
	entityType *string,
	entityID *string,
	details *EventDetails,
	outcome Outcome,
) error {
	var detailsJSON json.RawMessage
	if details != nil {
		var err error
		detailsJSON, err = json.Marshal(details)
		if err != nil {
			return fmt.Errorf("audit details: %w", err)
		}
	}

	return s.Log(ctx, &AuditEvent{
		ActorID:    actorID,
		ActorType:  actorType,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    detailsJSON,
		Outcome:    outcome,
	})
}

// GetByID retrieves a single audit event by ID.
func (s *AuditService) GetByID(ctx context.Context, id string) (*AuditEvent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+auditColumns+` FROM audit_event WHERE id = ?`, id)
	event, err := scanAuditEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get audit event: %w", err)
	}
	return event, nil
}

// ListRecent retrieves all audit events with pagination and the total count.
// Results are ordered newest first.
func (s *AuditService) ListRecent(ctx context.Context, limit, offset int) ([]*AuditEvent, int, error) {
	events, err := s.query(ctx, `
		SELECT `+auditColumns+` FROM audit_event
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_event`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit events: %w", err)
	}
	return events, total, nil
}

// ListByActor retrieves audit events for a specific actor, newest first.
func (s *AuditService) ListByActor(ctx context.Context, actorID string, limit int) ([]*AuditEvent, error) {
	return s.query(ctx, `
		SELECT `+auditColumns+` FROM audit_event
		WHERE actor_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, actorID, limit)
}

// ListByEntity retrieves audit events for a specific entity, newest first.
func (s *AuditService) ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]*AuditEvent, error) {
	return s.query(ctx, `
		SELECT `+auditColumns+` FROM audit_event
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, entityType, entityID, limit)
}

// ListByOutcome retrieves audit events filtered by outcome, newest first.
func (s *AuditService) ListByOutcome(ctx context.Context, outcome Outcome, limit, offset int) ([]*AuditEvent, error) {
	return s.query(ctx, `
		SELECT `+auditColumns+` FROM audit_event
		WHERE outcome = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, string(outcome), limit, offset)
}

func (s *AuditService) query(ctx context.Context, q string, args ...any) ([]*AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	events := []*AuditEvent{}
	for rows.Next() {
		event, scanErr := scanAuditEvent(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan audit event: %w", scanErr)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuditEvent(row rowScanner) (*AuditEvent, error) {
	var (
		e         AuditEvent
		actorType string
		outcome   string
		details   sql.NullString
		createdAt string
	)
	if err := row.Scan(
		&e.ID, &e.ActorID, &actorType, &e.Action, &e.EntityType, &e.EntityID, &details,
		&outcome, &e.TraceID, &e.IPAddress, &e.UserAgent, &createdAt,
	); err != nil {
		return nil, err
	}
	e.ActorType = ActorType(actorType)
	e.Outcome = Outcome(outcome)
	if details.Valid {
		e.Details = json.RawMessage(details.String)
	}
	t, err := time.Parse(timestampLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	e.CreatedAt = t
	return &e, nil
}

// generateID generates a UUID v7 for time-ordered audit events.
func generateID() string {
	return uuid.NewV7().String()
}

func normalizeJSON(raw json.RawMessage, fallback []byte) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(fallback)
	}
	return raw
}
