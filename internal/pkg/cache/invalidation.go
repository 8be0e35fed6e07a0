// internal/pkg/cache/invalidation.go
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// View names whose cached renderings depend on engine state
const (
	ViewOrders         = "orders"
	ViewOrderDetail    = "order_detail"
	ViewInventory      = "inventory"
	ViewStockTransfers = "stock_transfers"
	ViewStoreInventory = "store_inventory"
	ViewProduction     = "production"
)

// Invalidator signals dependent views that their data went stale after
// a commit. It is a best-effort hint: a failed signal never fails the
// operation that triggered it.
type Invalidator struct {
	client *redis.Client
}

// NewInvalidator creates a new view invalidator
func NewInvalidator(client *redis.Client) *Invalidator {
	return &Invalidator{client: client}
}

// Bump advances the version counter of each named view. Readers embed
// the counter in their cache keys, so bumping orphans every cached
// rendering of the view.
func (i *Invalidator) Bump(views ...string) {
	if i.client == nil || len(views) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pipe := i.client.Pipeline()
	for _, view := range views {
		pipe.Incr(ctx, versionKey(view))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logrus.WithError(err).WithField("views", views).Warn("view invalidation signal failed")
	}
}

// Version returns the current version counter of a view; 0 when the
// view was never bumped or redis is unavailable.
func (i *Invalidator) Version(ctx context.Context, view string) int64 {
	if i.client == nil {
		return 0
	}
	v, err := i.client.Get(ctx, versionKey(view)).Int64()
	if err != nil {
		return 0
	}
	return v
}

func versionKey(view string) string {
	return fmt.Sprintf("view_version:%s", view)
}
