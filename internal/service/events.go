package service

import (
	"context"
	"time"

	"github.com/YAnkir9/SweetShop-TDD/internal/obs"
	"github.com/YAnkir9/SweetShop-TDD/internal/queue"
)

// publish sends ev without failing the caller; the write it describes has
// already committed.
func publish(pub EventPublisher, ev queue.Event) {
	if pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := pub.Publish(ctx, ev); err != nil {
		obs.Logger.Warn("event publish failed", "type", ev.EventType(), "error", err)
	}
}
