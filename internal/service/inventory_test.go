package service_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YAnkir9/SweetShop-TDD/internal/model"
	"github.com/YAnkir9/SweetShop-TDD/internal/queue"
	"github.com/YAnkir9/SweetShop-TDD/internal/repository"
	"github.com/YAnkir9/SweetShop-TDD/internal/service"
	"github.com/YAnkir9/SweetShop-TDD/internal/storetest"
)

func TestRestockAddsStockAndRecordsOnce(t *testing.T) {
	ctx := context.Background()
	m := storetest.New()
	pub := &recordingPublisher{}
	svc := service.NewInventoryService(m, m.Restocks, pub)
	sw := seedSweet(t, m, "Kalakand", "15.00", 15)

	res, err := svc.Restock(ctx, 7, sw.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, 65, res.NewQuantity)
	assert.Equal(t, 65, m.Quantity(sw.ID))

	records := m.RestockRecords()
	require.Len(t, records, 1)
	assert.Equal(t, 50, records[0].QuantityAdded)
	assert.Equal(t, uint64(7), records[0].AdminID)

	audits := m.AuditEntries()
	require.Len(t, audits, 1)
	assert.Equal(t, model.AuditRestock, audits[0].Action)
	assert.JSONEq(t, `{"quantity_added":50,"new_quantity":65}`, string(audits[0].Metadata))

	history, err := svc.History(ctx, sw.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	events := pub.Events()
	require.Len(t, events, 1)
	ev := events[0].(queue.StockRestockedEvent)
	assert.Equal(t, 65, ev.NewQuantity)
}

func TestRestockRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	m := storetest.New()
	svc := service.NewInventoryService(m, m.Restocks, nil)
	sw := seedSweet(t, m, "Cham Cham", "4.00", 3)

	for _, qty := range []int{0, -5, math.MaxInt32 + 1, math.MaxInt64} {
		_, err := svc.Restock(ctx, 1, sw.ID, qty)
		var ve *service.ValidationError
		assert.True(t, errors.As(err, &ve))
	}
	assert.Equal(t, 3, m.Quantity(sw.ID))

	_, err := svc.Restock(ctx, 1, 404, 10)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, m.Sweets.SoftDelete(ctx, sw.ID))
	_, err = svc.Restock(ctx, 1, sw.ID, 10)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, m.RestockRecords())
}
