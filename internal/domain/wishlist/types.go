// Package wishlist stores user-owned wishlists together with the chat
// messages of their search conversation and the products discovered in it.
package wishlist

import (
	"errors"
	"time"

	pkgauth "github.com/matiasleandrokruk/shopwise/pkg/auth"
)

var (
	// ErrNotFound is returned when a wishlist does not exist or was deleted.
	ErrNotFound = errors.New("wishlist not found")
	// ErrForbidden is returned when the actor neither owns the wishlist nor is an admin.
	ErrForbidden = errors.New("wishlist belongs to another user")
	// ErrInvalidInput is returned for missing or malformed input fields.
	ErrInvalidInput = errors.New("invalid wishlist input")
)

// Kind classifies a wishlist.
type Kind string

const (
	KindProduct Kind = "product"
	KindGift    Kind = "gift"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindProduct || k == KindGift
}

// MessageRole identifies who wrote a message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Wishlist is a user-owned collection of chat messages and discovered products.
type Wishlist struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Kind      Kind       `json:"kind"`
	CreatedBy string     `json:"createdBy"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// Message is one turn of a wishlist's search conversation.
type Message struct {
	ID         string      `json:"id"`
	WishlistID string      `json:"wishlistId"`
	Role       MessageRole `json:"role"`
	Text       string      `json:"text"`
	CreatedBy  string      `json:"createdBy"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// Product is a product name discovered for a wishlist.
type Product struct {
	ID         string    `json:"id"`
	WishlistID string    `json:"wishlistId"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Actor is the identity a request runs as. It is passed explicitly into every
// call that needs it.
type Actor struct {
	UserID string
	Role   pkgauth.Role
}

// CanAccess reports whether the actor may read or change w.
func (a Actor) CanAccess(w *Wishlist) bool {
	return a.Role == pkgauth.RoleAdmin || (a.UserID != "" && w.CreatedBy == a.UserID)
}

// CreateWishlistInput holds the data needed to start a wishlist.
type CreateWishlistInput struct {
	UserID       string
	FirstMessage string
	Kind         Kind
}

// AppendMessageInput holds one message to add to a wishlist.
type AppendMessageInput struct {
	WishlistID string
	UserID     string
	Role       MessageRole
	Text       string
}

// ListInput paginates List.
type ListInput struct {
	Limit  int
	Offset int
}
