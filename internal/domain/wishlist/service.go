package wishlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/matiasleandrokruk/shopwise/pkg/uuid"
)

const (
	// timestampLayout is fixed width so timestamps sort lexicographically.
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
	// maxNameRunes bounds a wishlist name derived from its first message.
	maxNameRunes = 64
	// maxMessageRunes bounds a single stored message.
	maxMessageRunes = 4000
)

// Service is the SQLite-backed wishlist store.
type Service struct {
	db  *sql.DB
	log logrus.FieldLogger
	now func() time.Time
}

// NewService creates a wishlist Service.
func NewService(db *sql.DB, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{db: db, log: log.WithField("component", "wishlist"), now: time.Now}
}

// CreateWishlist creates a wishlist named after its first message and stores
// that message as the first user turn. Both rows are written in one transaction.
func (s *Service) CreateWishlist(ctx context.Context, in CreateWishlistInput) (*Wishlist, error) {
	text := strings.TrimSpace(in.FirstMessage)
	if in.UserID == "" || text == "" {
		return nil, fmt.Errorf("%w: userId and first message are required", ErrInvalidInput)
	}
	if in.Kind == "" {
		in.Kind = KindProduct
	}
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, in.Kind)
	}

	now := s.now().UTC()
	w := &Wishlist{
		ID:        uuid.NewV7().String(),
		Name:      nameFromMessage(text),
		Kind:      in.Kind,
		CreatedBy: in.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	ts := now.Format(timestampLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create wishlist: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO wishlist (id, name, kind, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, w.ID, w.Name, string(w.Kind), w.CreatedBy, ts, ts); err != nil {
		return nil, fmt.Errorf("create wishlist: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO message (id, wishlist_id, role, text, created_by, created_at)
		VALUES (?, ?, 'user', ?, ?, ?)
	`, uuid.NewV7().String(), w.ID, truncateRunes(text, maxMessageRunes), w.CreatedBy, ts); err != nil {
		return nil, fmt.Errorf("create wishlist: first message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create wishlist: commit: %w", err)
	}

	s.log.WithFields(logrus.Fields{"wishlist_id": w.ID, "user_id": w.CreatedBy}).Debug("wishlist created")
	return w, nil
}

// Get returns a wishlist the actor may access.
func (s *Service) Get(ctx context.Context, actor Actor, id string) (*Wishlist, error) {
	w, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(w) {
		return nil, ErrForbidden
	}
	return w, nil
}

func (s *Service) get(ctx context.Context, id string) (*Wishlist, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, kind, created_by, created_at, updated_at, deleted_at
		FROM wishlist
		WHERE id = ? AND deleted_at IS NULL
	`, id)
	w, err := scanWishlist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get wishlist: %w", err)
	}
	return w, nil
}

// List returns the actor's own wishlists, newest first, and their total count.
func (s *Service) List(ctx context.Context, actor Actor, in ListInput) ([]*Wishlist, int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, kind, created_by, created_at, updated_at, deleted_at
		FROM wishlist
		WHERE created_by = ? AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, actor.UserID, in.Limit, in.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list wishlists: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	out := []*Wishlist{}
	for rows.Next() {
		w, scanErr := scanWishlist(rows)
		if scanErr != nil {
			return nil, 0, fmt.Errorf("list wishlists: scan: %w", scanErr)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list wishlists: %w", err)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM wishlist WHERE created_by = ? AND deleted_at IS NULL
	`, actor.UserID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count wishlists: %w", err)
	}
	return out, total, nil
}

// Delete soft-deletes a wishlist the actor may access.
func (s *Service) Delete(ctx context.Context, actor Actor, id string) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	ts := s.now().UTC().Format(timestampLayout)
	if _, err := s.db.ExecContext(ctx, `
		UPDATE wishlist SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL
	`, ts, ts, id); err != nil {
		return fmt.Errorf("delete wishlist: %w", err)
	}
	return nil
}

// AppendMessage adds a message to an existing wishlist and bumps its updated_at.
// Authorization is the caller's job: Get the wishlist first.
func (s *Service) AppendMessage(ctx context.Context, in AppendMessageInput) (*Message, error) {
	text := strings.TrimSpace(in.Text)
	if in.WishlistID == "" || in.UserID == "" || text == "" {
		return nil, fmt.Errorf("%w: wishlistId, userId and text are required", ErrInvalidInput)
	}
	if in.Role != MessageRoleUser && in.Role != MessageRoleAssistant {
		return nil, fmt.Errorf("%w: unknown message role %q", ErrInvalidInput, in.Role)
	}

	now := s.now().UTC()
	m := &Message{
		ID:         uuid.NewV7().String(),
		WishlistID: in.WishlistID,
		Role:       in.Role,
		Text:       truncateRunes(text, maxMessageRunes),
		CreatedBy:  in.UserID,
		CreatedAt:  now,
	}
	ts := now.Format(timestampLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("append message: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		UPDATE wishlist SET updated_at = ? WHERE id = ? AND deleted_at IS NULL
	`, ts, in.WishlistID)
	if err != nil {
		return nil, fmt.Errorf("append message: touch wishlist: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO message (id, wishlist_id, role, text, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.WishlistID, string(m.Role), m.Text, m.CreatedBy, ts); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("append message: commit: %w", err)
	}
	return m, nil
}

// ListMessages returns the most recent limit messages of a wishlist in
// chronological order.
func (s *Service) ListMessages(ctx context.Context, wishlistID string, limit int) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, wishlist_id, role, text, created_by, created_at FROM (
			SELECT id, wishlist_id, role, text, created_by, created_at
			FROM message
			WHERE wishlist_id = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC
	`, wishlistID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	out := []*Message{}
	for rows.Next() {
		var (
			m         Message
			role      string
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.WishlistID, &role, &m.Text, &m.CreatedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("list messages: scan: %w", err)
		}
		m.Role = MessageRole(role)
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// AddProducts records product names for a wishlist, ignoring names it already
// holds. It returns how many were new.
func (s *Service) AddProducts(ctx context.Context, wishlistID string, names []string) (int, error) {
	ts := s.now().UTC().Format(timestampLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("add products: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	added := 0
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO product (id, wishlist_id, name, created_at)
			VALUES (?, ?, ?, ?)
		`, uuid.NewV7().String(), wishlistID, name, ts)
		if err != nil {
			return 0, fmt.Errorf("add product %q: %w", name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("add products: commit: %w", err)
	}
	return added, nil
}

// ListProducts returns a wishlist's products in discovery order.
func (s *Service) ListProducts(ctx context.Context, wishlistID string) ([]*Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, wishlist_id, name, created_at FROM product
		WHERE wishlist_id = ?
		ORDER BY id ASC
	`, wishlistID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	out := []*Product{}
	for rows.Next() {
		var (
			p         Product
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.WishlistID, &p.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("list products: scan: %w", err)
		}
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWishlist(row rowScanner) (*Wishlist, error) {
	var (
		w                    Wishlist
		kind                 string
		createdAt, updatedAt string
		deletedAt            sql.NullString
	)
	if err := row.Scan(&w.ID, &w.Name, &kind, &w.CreatedBy, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}
	w.Kind = Kind(kind)
	var err error
	if w.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if w.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		t, parseErr := parseTime(deletedAt.String)
		if parseErr != nil {
			return nil, parseErr
		}
		w.DeletedAt = &t
	}
	return &w, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// nameFromMessage collapses whitespace and truncates to maxNameRunes.
func nameFromMessage(text string) string {
	return truncateRunes(strings.Join(strings.Fields(text), " "), maxNameRunes)
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max-3])) + "..."
}
