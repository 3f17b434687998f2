package wishlist

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/matiasleandrokruk/shopwise/internal/infra/eventbus"
)

// TopicProductsDiscovered carries ProductsDiscovered payloads.
const TopicProductsDiscovered = "wishlist.products_discovered"

// ProductsDiscovered announces product names found for a wishlist.
type ProductsDiscovered struct {
	WishlistID string
	Names      []string
}

type productStore interface {
	AddProducts(ctx context.Context, wishlistID string, names []string) (int, error)
}

// ProductRecorder persists discovered products off the request path.
type ProductRecorder struct {
	store productStore
	log   logrus.FieldLogger
}

// NewProductRecorder creates a ProductRecorder writing to store.
func NewProductRecorder(store productStore, log logrus.FieldLogger) *ProductRecorder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ProductRecorder{store: store, log: log.WithField("component", "product_recorder")}
}

// Run consumes events until ctx is done or events closes. It blocks; run it
// in its own goroutine. Subscribe to TopicProductsDiscovered before starting
// the goroutine so nothing published in between is missed.
func (r *ProductRecorder) Run(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			r.handle(ctx, evt)
		}
	}
}

func (r *ProductRecorder) handle(ctx context.Context, evt eventbus.Event) {
	payload, ok := evt.Payload.(ProductsDiscovered)
	if !ok {
		r.log.WithField("payload_type", fmt.Sprintf("%T", evt.Payload)).Warn("unexpected payload, skipped")
		return
	}
	added, err := r.store.AddProducts(ctx, payload.WishlistID, payload.Names)
	if err != nil {
		r.log.WithError(err).WithField("wishlist_id", payload.WishlistID).Error("record products failed")
		return
	}
	r.log.WithFields(logrus.Fields{"wishlist_id": payload.WishlistID, "added": added}).Debug("products recorded")
}
