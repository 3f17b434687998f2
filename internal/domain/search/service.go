package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/matiasleandrokruk/shopwise/internal/domain/wishlist"
	"github.com/matiasleandrokruk/shopwise/internal/infra/eventbus"
	"github.com/matiasleandrokruk/shopwise/internal/infra/llm"
	"github.com/matiasleandrokruk/shopwise/internal/infra/sse"
)

// defaultHistoryLimit is how many prior wishlist messages a follow-up turn sends.
const defaultHistoryLimit = 20

// ChatStreamer is the part of llm.ChatClient the search needs.
type ChatStreamer interface {
	CompleteOnce(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
	CompleteStreamed(ctx context.Context, req llm.ChatRequest) (llm.LineStream, error)
}

// WishlistStore is the wishlist collaborator.
type WishlistStore interface {
	CreateWishlist(ctx context.Context, in wishlist.CreateWishlistInput) (*wishlist.Wishlist, error)
	Get(ctx context.Context, actor wishlist.Actor, id string) (*wishlist.Wishlist, error)
	AppendMessage(ctx context.Context, in wishlist.AppendMessageInput) (*wishlist.Message, error)
	ListMessages(ctx context.Context, wishlistID string, limit int) ([]*wishlist.Message, error)
}

// Options tunes the chat requests the service sends.
type Options struct {
	// Model overrides the chat client's default model when non-empty.
	Model        string
	Temperature  float32
	MaxTokens    int
	HistoryLimit int
}

// Service runs product searches against a streaming chat model.
//
// Every streaming method validates its input and opens the model stream
// before returning, so those failures come back as the error. Once the
// channel is returned, results are produced by one goroutine in arrival
// order and each send waits for the consumer. A failure after that point is
// delivered as the last Result, with Err set. Cancelling ctx closes the
// channel without a trailing error. The consumer must drain the channel or
// cancel ctx.
type Service struct {
	chat      ChatStreamer
	wishlists WishlistStore
	bus       eventbus.EventBus
	log       logrus.FieldLogger
	opts      Options
}

// NewService creates a search Service. bus may be nil.
func NewService(chat ChatStreamer, wishlists WishlistStore, bus eventbus.EventBus, log logrus.FieldLogger, opts Options) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	return &Service{
		chat:      chat,
		wishlists: wishlists,
		bus:       bus,
		log:       log.WithField("component", "search"),
		opts:      opts,
	}
}

// GetProductFromSearch streams one Item per product name or clarifying
// question the model returns for text.
func (s *Service) GetProductFromSearch(ctx context.Context, text string) (<-chan Result[Item], error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: search text is required", ErrInvalidInput)
	}
	reader, err := s.open(ctx, userTurn(productSearchPrompt(text)))
	if err != nil {
		return nil, err
	}
	return run(ctx, reader, pipeline[Item]{
		handle: func(_ context.Context, it Interpretation, emit func(Item) bool) error {
			switch it.Kind {
			case KindProducts:
				for _, p := range it.Products {
					if !emit(Item{Kind: ItemProduct, Text: p.Name}) {
						return ctx.Err()
					}
				}
			case KindQuestions:
				for _, q := range it.Questions {
					if !emit(Item{Kind: ItemQuestion, Text: q.QuestionText}) {
						return ctx.Err()
					}
				}
			}
			return nil
		},
	}), nil
}

// GetRecommendationsForProductFromSearchStream streams one Item per
// recommendation the model returns for text.
func (s *Service) GetRecommendationsForProductFromSearchStream(ctx context.Context, text string) (<-chan Result[Item], error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: product text is required", ErrInvalidInput)
	}
	reader, err := s.open(ctx, userTurn(recommendationPrompt(text)))
	if err != nil {
		return nil, err
	}
	return run(ctx, reader, pipeline[Item]{
		handle: func(_ context.Context, it Interpretation, emit func(Item) bool) error {
			if it.Kind != KindRecommendations {
				return nil
			}
			for _, r := range it.Recommendations {
				if !emit(Item{Kind: ItemRecommendation, Text: r}) {
					return ctx.Err()
				}
			}
			return nil
		},
	}), nil
}

// StartNewSearchAndReturnWishlist streams one Batch per model payload that
// carries products. The wishlist of a batch is created after its payload
// arrives and before the batch is sent; the next payload is read only after
// the consumer took the batch.
func (s *Service) StartNewSearchAndReturnWishlist(ctx context.Context, in NewSearchInput) (<-chan Result[Batch], error) {
	msg := strings.TrimSpace(in.Message)
	if in.UserID == "" || msg == "" {
		return nil, fmt.Errorf("%w: userId and message are required", ErrInvalidInput)
	}
	reader, err := s.open(ctx, userTurn(newSearchPrompt(msg)))
	if err != nil {
		return nil, err
	}
	return run(ctx, reader, pipeline[Batch]{
		handle: func(ctx context.Context, it Interpretation, emit func(Batch) bool) error {
			if it.Kind != KindProducts {
				return nil
			}
			w, err := s.createWishlist(ctx, in.UserID, msg)
			if err != nil {
				return err
			}
			s.publishProducts(w.ID, it.Products)
			if !emit(Batch{Products: it.Products, Wishlist: w}) {
				return ctx.Err()
			}
			return nil
		},
	}), nil
}

// Search runs one conversational turn and streams it as SSE events.
//
// Without a wishlist, every product batch creates a wishlist and is sent as a
// wishlist event followed by a product event. With a wishlist, the actor must
// be allowed to access it: prior messages are sent to the model as history,
// the user message is stored and echoed as a message event, and the
// interpreted model output is stored as the assistant reply when the stream
// ends. Questions are sent as suggestion events in both cases.
func (s *Service) Search(ctx context.Context, in SearchInput) (<-chan Result[sse.Event], error) {
	msg := strings.TrimSpace(in.Message)
	if in.Actor.UserID == "" || msg == "" {
		return nil, fmt.Errorf("%w: user and message are required", ErrInvalidInput)
	}
	if in.WishlistID == "" {
		return s.searchNew(ctx, in.Actor.UserID, msg)
	}
	return s.searchWishlist(ctx, in.Actor, in.WishlistID, msg)
}

func (s *Service) searchNew(ctx context.Context, userID, msg string) (<-chan Result[sse.Event], error) {
	reader, err := s.open(ctx, userTurn(newSearchPrompt(msg)))
	if err != nil {
		return nil, err
	}
	return run(ctx, reader, pipeline[sse.Event]{
		handle: func(ctx context.Context, it Interpretation, emit func(sse.Event) bool) error {
			switch it.Kind {
			case KindProducts:
				w, err := s.createWishlist(ctx, userID, msg)
				if err != nil {
					return err
				}
				s.publishProducts(w.ID, it.Products)
				if !emit(sse.NewEvent(sse.EventWishlist, w)) || !emit(sse.NewEvent(sse.EventProduct, productNames(it.Products))) {
					return ctx.Err()
				}
			case KindQuestions:
				if !emit(sse.NewEvent(sse.EventSuggestion, questionTexts(it.Questions))) {
					return ctx.Err()
				}
			}
			return nil
		},
	}), nil
}

func (s *Service) searchWishlist(ctx context.Context, actor wishlist.Actor, wishlistID, msg string) (<-chan Result[sse.Event], error) {
	w, err := s.wishlists.Get(ctx, actor, wishlistID)
	if err != nil {
		return nil, err
	}
	history, err := s.wishlists.ListMessages(ctx, w.ID, s.opts.HistoryLimit)
	if err != nil {
		return nil, &DependencyError{Op: "load history", Err: err}
	}

	turns := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == wishlist.MessageRoleAssistant {
			role = llm.RoleAssistant
		}
		turns = append(turns, llm.Message{Role: role, Content: m.Text})
	}
	turns = append(turns, llm.Message{Role: llm.RoleUser, Content: productSearchPrompt(msg)})

	reader, err := s.open(ctx, turns)
	if err != nil {
		return nil, err
	}
	stored, err := s.wishlists.AppendMessage(ctx, wishlist.AppendMessageInput{
		WishlistID: w.ID,
		UserID:     actor.UserID,
		Role:       wishlist.MessageRoleUser,
		Text:       msg,
	})
	if err != nil {
		reader.Close() //nolint:errcheck
		return nil, &DependencyError{Op: "append message", Err: err}
	}

	var reply []string
	return run(ctx, reader, pipeline[sse.Event]{
		before: func(_ context.Context, emit func(sse.Event) bool) error {
			if !emit(sse.NewEvent(sse.EventMessage, stored)) {
				return ctx.Err()
			}
			return nil
		},
		handle: func(_ context.Context, it Interpretation, emit func(sse.Event) bool) error {
			var evt sse.Event
			switch it.Kind {
			case KindProducts:
				s.publishProducts(w.ID, it.Products)
				evt = sse.NewEvent(sse.EventProduct, productNames(it.Products))
			case KindQuestions:
				evt = sse.NewEvent(sse.EventSuggestion, questionTexts(it.Questions))
			default:
				return nil
			}
			reply = append(reply, string(it.Raw))
			if !emit(evt) {
				return ctx.Err()
			}
			return nil
		},
		after: func(ctx context.Context) {
			if len(reply) == 0 {
				return
			}
			_, err := s.wishlists.AppendMessage(ctx, wishlist.AppendMessageInput{
				WishlistID: w.ID,
				UserID:     actor.UserID,
				Role:       wishlist.MessageRoleAssistant,
				Text:       strings.Join(reply, "\n"),
			})
			if err != nil {
				s.log.WithError(err).WithField("wishlist_id", w.ID).Warn("store assistant reply failed")
			}
		},
	}), nil
}

// RecommendationsOnce returns the recommendations for text from a single
// non-streamed completion.
func (s *Service) RecommendationsOnce(ctx context.Context, text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: product text is required", ErrInvalidInput)
	}
	resp, err := s.chat.CompleteOnce(ctx, s.request(userTurn(recommendationPrompt(text))))
	if err != nil {
		return nil, err
	}
	out := []string{}
	if resp == nil {
		return out, nil
	}
	for _, it := range NewInterpreter().FeedContent(resp.Content()) {
		if it.Kind == KindRecommendations {
			out = append(out, it.Recommendations...)
		}
	}
	return out, nil
}

func (s *Service) open(ctx context.Context, turns []llm.Message) (*llm.PayloadReader, error) {
	lines, err := s.chat.CompleteStreamed(ctx, s.request(turns))
	if err != nil {
		return nil, err
	}
	return llm.NewPayloadReader(lines), nil
}

func (s *Service) request(turns []llm.Message) llm.ChatRequest {
	return llm.ChatRequest{
		Model:       s.opts.Model,
		Messages:    turns,
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
	}
}

func (s *Service) createWishlist(ctx context.Context, userID, msg string) (*wishlist.Wishlist, error) {
	w, err := s.wishlists.CreateWishlist(ctx, wishlist.CreateWishlistInput{
		UserID:       userID,
		FirstMessage: msg,
		Kind:         wishlist.KindProduct,
	})
	if err != nil {
		return nil, &DependencyError{Op: "create wishlist", Err: err}
	}
	return w, nil
}

func (s *Service) publishProducts(wishlistID string, products []ProductName) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(wishlist.TopicProductsDiscovered, wishlist.ProductsDiscovered{
		WishlistID: wishlistID,
		Names:      productNames(products),
	})
}

func userTurn(content string) []llm.Message {
	return []llm.Message{{Role: llm.RoleUser, Content: content}}
}
