// Package search turns streamed chat completions into ordered product search
// results: product names, clarifying questions, recommendations and the
// wishlists created for them.
package search

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/matiasleandrokruk/shopwise/internal/domain/wishlist"
)

var (
	// ErrInvalidInput is returned before any I/O when a request lacks required fields.
	ErrInvalidInput = errors.New("invalid search input")

	errNotObject = errors.New("payload is not a JSON object")
)

// ProductName is a product the model proposed.
type ProductName struct {
	Name string `json:"name"`
}

// ClarifyingQuestion is a question the model asks to narrow a search.
type ClarifyingQuestion struct {
	QuestionText string `json:"questionText"`
}

// Kind tells which shape an Interpretation carries.
type Kind int

const (
	KindProducts Kind = iota + 1
	KindQuestions
	KindRecommendations
)

func (k Kind) String() string {
	switch k {
	case KindProducts:
		return "products"
	case KindQuestions:
		return "questions"
	case KindRecommendations:
		return "recommendations"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Interpretation is the normalized content of one JSON object produced by the
// model. Exactly one of Products, Questions or Recommendations is set,
// according to Kind.
type Interpretation struct {
	Kind            Kind
	Products        []ProductName
	Questions       []ClarifyingQuestion
	Recommendations []string
	// Raw is the JSON object the interpretation was read from.
	Raw json.RawMessage
}

// ItemKind labels a single streamed search item.
type ItemKind string

const (
	ItemProduct        ItemKind = "product"
	ItemQuestion       ItemKind = "question"
	ItemRecommendation ItemKind = "recommendation"
)

// Item is one product name, question or recommendation, as plain text.
type Item struct {
	Kind ItemKind `json:"kind"`
	Text string   `json:"text"`
}

// Batch pairs the products of one model payload with the wishlist created for them.
type Batch struct {
	Products []ProductName     `json:"products"`
	Wishlist *wishlist.Wishlist `json:"wishlist"`
}

// Names returns the product names of the batch.
func (b Batch) Names() []string {
	return productNames(b.Products)
}

// Result is one element of a result stream. A Result with Err set is always
// the last one before the channel closes.
type Result[T any] struct {
	Value T
	Err   error
}

// DependencyError reports a failure of a collaborator the search relies on.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("search: %s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// NewSearchInput starts a search whose product batches each create a wishlist.
type NewSearchInput struct {
	UserID  string
	Message string
}

// SearchInput is one turn of a conversational search. With an empty
// WishlistID the turn starts a new search.
type SearchInput struct {
	Actor      wishlist.Actor
	WishlistID string
	Message    string
}

func productNames(ps []ProductName) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name)
	}
	return out
}

func questionTexts(qs []ClarifyingQuestion) []string {
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.QuestionText)
	}
	return out
}
