package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherBacksOffAfterFailedDial(t *testing.T) {
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := NewPublisher("http://127.0.0.1:1/")
	p.now = func() time.Time { return clock }
	ev := StockRestockedEvent{Type: TypeStockRestocked, SweetID: 1, QuantityAdded: 5}

	err := p.Publish(context.Background(), ev)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrBrokerBackoff))

	start := time.Now()
	err = p.Publish(context.Background(), ev)
	assert.ErrorIs(t, err, ErrBrokerBackoff)
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	clock = clock.Add(reconnectBackoff)
	err = p.Publish(context.Background(), ev)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrBrokerBackoff))
}
