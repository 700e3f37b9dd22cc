package service_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YAnkir9/SweetShop-TDD/internal/access"
	"github.com/YAnkir9/SweetShop-TDD/internal/model"
	"github.com/YAnkir9/SweetShop-TDD/internal/obs"
	"github.com/YAnkir9/SweetShop-TDD/internal/queue"
	"github.com/YAnkir9/SweetShop-TDD/internal/repository"
	"github.com/YAnkir9/SweetShop-TDD/internal/service"
	"github.com/YAnkir9/SweetShop-TDD/internal/storetest"
)

func newPurchaseService(m *storetest.Memory, pub service.EventPublisher) *service.PurchaseService {
	return service.NewPurchaseService(m, m.Purchases, pub)
}

func TestPurchaseScenarioKajuKatli(t *testing.T) {
	ctx := context.Background()
	m := storetest.New()
	pub := &recordingPublisher{}
	svc := newPurchaseService(m, pub)
	sw := seedSweet(t, m, "Kaju Katli", "450.00", 25)

	p, err := svc.Create(ctx, 1, []service.LineRequest{{SweetID: sw.ID, Quantity: 2}}, "12 MG Road")
	require.NoError(t, err)
	assert.Equal(t, "900.00", p.Total.StringFixed(2))
	assert.Equal(t, model.PurchasePending, p.Status)
	require.Len(t, p.Items, 1)
	assert.Equal(t, "Kaju Katli", p.Items[0].SweetName)
	assert.Equal(t, "450.00", p.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, 23, m.Quantity(sw.ID))

	_, err = svc.Create(ctx, 1, []service.LineRequest{{SweetID: sw.ID, Quantity: 24}}, "")
	var ise *repository.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, sw.ID, ise.SweetID)
	assert.Equal(t, 24, ise.Requested)
	assert.Equal(t, 23, ise.Available)
	assert.Equal(t, 23, m.Quantity(sw.ID))
	assert.Equal(t, 1, m.PurchaseCount())

	events := pub.Events()
	require.Len(t, events, 1)
	ev, ok := events[0].(queue.PurchaseCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, p.ID, ev.PurchaseID)
	assert.Equal(t, "900.00", ev.Total)
}

func TestPurchaseIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	m := storetest.New()
	svc := newPurchaseService(m, nil)
	a := seedSweet(t, m, "Barfi", "20.00", 5)
	b := seedSweet(t, m, "Jalebi", "10.00", 1)

	_, err := svc.Create(ctx, 1, []service.LineRequest{
		{SweetID: a.ID, Quantity: 3},
		{SweetID: b.ID, Quantity: 2},
	}, "")
	var ise *repository.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, b.ID, ise.SweetID)
	assert.Equal(t, 5, m.Quantity(a.ID))
	assert.Equal(t, 1, m.Quantity(b.ID))
	assert.Equal(t, 0, m.PurchaseCount())
	assert.Empty(t, m.AuditEntries())
}

func TestPurchaseAggregatesRepeatedSweet(t *testing.T) {
	ctx := context.Background()
	m := storetest.New()
	svc := newPurchaseService(m, nil)
	sw := seedSweet(t, m, "Ladoo", "5.50", 4)

	_, err := svc.Create(ctx, 1, []service.LineRequest{
		{SweetID: sw.ID, Quantity: 3},
		{SweetID: sw.ID, Quantity: 2},
	}, "")
	var ise *repository.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, 5, ise.Requested)
	assert.Equal(t, 4, m.Quantity(sw.ID))

	p, err := svc.Create(ctx, 1, []service.LineRequest{
		{SweetID: sw.ID, Quantity: 1},
		{SweetID: sw.ID, Quantity: 3},
	}, "")
	require.NoError(t, err)
	assert.Len(t, p.Items, 2)
	assert.Equal(t, "22.00", p.Total.StringFixed(2))
	assert.Equal(t, 0, m.Quantity(sw.ID))
}

func TestPurchaseValidation(t *testing.T) {
	ctx := context.Background()
	m := storetest.New()
	svc := newPurchaseService(m, nil)
	sw := seedSweet(t, m, "Peda", "3.00", 10)

	cases := map[string][]service.LineRequest{
		"empty":         nil,
		"zero quantity": {{SweetID: sw.ID, Quantity: 0}},
		"negative":      {{SweetID: sw.ID, Quantity: -1}},
		"missing sweet": {{SweetID: 0, Quantity: 1}},
	}
	for name, lines := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, 1, lines, "")
			var ve *service.ValidationError
			assert.True(t, errors.As(err, &ve), "got %v", err)
		})
	}
	assert.Equal(t, 10, m.Quantity(sw.ID))
}

func TestPurchaseUnknownOrDeletedSweet(t *testing.T) {
	ctx := context.Background()
	m := storetest.New()
	svc := newPurchaseService(m, nil)
	sw := seedSweet(t, m, "Halwa", "8.00", 10)
	require.NoError(t, m.Sweets.SoftDelete(ctx, sw.ID))

	_, err := svc.Create(ctx, 1, []service.LineRequest{{SweetID: sw.ID, Quantity: 1}}, "")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = svc.Create(ctx, 1, []service.LineRequest{{SweetID: 999, Quantity: 1}}, "")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Contains(t, err.Error(), "999")
}

func TestConcurrentPurchaseOfLastUnit(t *testing.T) {
	ctx := context.Background()
	m := storetest.New()
	svc := newPurchaseService(m, nil)
	sw := seedSweet(t, m, "Rasgulla", "12.00", 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(ctx, uint64(i+1), []service.LineRequest{{SweetID: sw.ID, Quantity: 1}}, "")
		}(i)
	}
	wg.Wait()

	succeeded, short := 0, 0
	for _, err := range errs {
		var ise *repository.InsufficientStockError
		switch {
		case err == nil:
			succeeded++
		case errors.As(err, &ise):
			short++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, short)
	assert.Equal(t, 0, m.Quantity(sw.ID))
}

func TestStockNeverNegativeUnderLoad(t *testing.T) {
	ctx := context.Background()
	m := storetest.New()
	purchases := newPurchaseService(m, nil)
	inventory := service.NewInventoryService(m, m.Restocks, nil)
	sw := seedSweet(t, m, "Soan Papdi", "2.00", 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	sold, restocked := 0, 0
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%5 == 0 {
				if _, err := inventory.Restock(ctx, 1, sw.ID, 2); err == nil {
					mu.Lock()
					restocked += 2
					mu.Unlock()
				}
				return
			}
			if _, err := purchases.Create(ctx, 2, []service.LineRequest{{SweetID: sw.ID, Quantity: 1}}, ""); err == nil {
				mu.Lock()
				sold++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	q := m.Quantity(sw.ID)
	assert.GreaterOrEqual(t, q, 0)
	assert.Equal(t, 10+restocked-sold, q)
}

func TestPurchaseOwnership(t *testing.T) {
	ctx := context.Background()
	m := storetest.New()
	svc := newPurchaseService(m, nil)
	sw := seedSweet(t, m, "Gulab Jamun", "6.00", 10)
	owner := seedUser(t, m, "owner", model.RoleCustomer, true)
	other := seedUser(t, m, "other", model.RoleCustomer, true)
	admin := seedUser(t, m, "boss", model.RoleAdmin, true)

	p, err := svc.Create(ctx, owner.ID, []service.LineRequest{{SweetID: sw.ID, Quantity: 1}}, "")
	require.NoError(t, err)

	_, err = svc.Get(ctx, principal(owner), p.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, principal(admin), p.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, principal(other), p.ID)
	assert.ErrorIs(t, err, access.ErrForbidden)

	mine, err := svc.ListForUser(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestPurchaseStatusMovesForwardOnly(t *testing.T) {
	ctx := context.Background()
	m := storetest.New()
	svc := newPurchaseService(m, nil)
	sw := seedSweet(t, m, "Mysore Pak", "9.00", 10)
	p, err := svc.Create(ctx, 1, []service.LineRequest{{SweetID: sw.ID, Quantity: 1}}, "")
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, 99, p.ID, model.PurchasePending)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	up, err := svc.UpdateStatus(ctx, 99, p.ID, "Shipped")
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseShipped, up.Status)

	_, err = svc.UpdateStatus(ctx, 99, p.ID, model.PurchasePending)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	_, err = svc.UpdateStatus(ctx, 99, p.ID, model.PurchaseDelivered)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, 99, p.ID, "cancelled")
	var ve *service.ValidationError
	assert.True(t, errors.As(err, &ve))

	shipped, err := svc.ListAll(ctx, model.PurchaseDelivered)
	require.NoError(t, err)
	require.Len(t, shipped, 1)

	var statusAudits int
	for _, e := range m.AuditEntries() {
		if e.Action == model.AuditPurchaseStatus {
			statusAudits++
		}
	}
	assert.Equal(t, 2, statusAudits)
}

func TestPurchaseRejectsQuantitiesBeyondColumnRange(t *testing.T) {
	ctx := context.Background()
	m := storetest.New()
	pub := &recordingPublisher{}
	svc := newPurchaseService(m, pub)
	sw := seedSweet(t, m, "Soan Papdi", "9.00", 5)

	cases := map[string][]service.LineRequest{
		"single line":      {{SweetID: sw.ID, Quantity: service.MaxQuantity + 1}},
		"wrapping sum":     {{SweetID: sw.ID, Quantity: math.MaxInt64}, {SweetID: sw.ID, Quantity: math.MaxInt64}},
		"sum over the cap": {{SweetID: sw.ID, Quantity: service.MaxQuantity}, {SweetID: sw.ID, Quantity: 1}},
	}
	for name, lines := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, 1, lines, "")
			var ve *service.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
		})
	}
	assert.Equal(t, 5, m.Quantity(sw.ID))
	assert.Equal(t, 0, m.PurchaseCount())
	assert.Empty(t, pub.Events())
}

func TestPurchaseSurvivesBrokerFailureWithOneWarning(t *testing.T) {
	var buf bytes.Buffer
	prev := obs.Logger
	obs.Logger = slog.New(slog.NewJSONHandler(&buf, nil))
	t.Cleanup(func() { obs.Logger = prev })

	ctx := context.Background()
	m := storetest.New()
	svc := newPurchaseService(m, failingPublisher{err: queue.ErrBrokerBackoff})
	sw := seedSweet(t, m, "Jalebi", "3.00", 10)

	_, err := svc.Create(ctx, 1, []service.LineRequest{{SweetID: sw.ID, Quantity: 4}}, "")
	require.NoError(t, err)
	assert.Equal(t, 6, m.Quantity(sw.ID))
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte(`"msg":"event publish failed"`)))
}
