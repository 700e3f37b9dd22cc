package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/YAnkir9/SweetShop-TDD/internal/access"
	"github.com/YAnkir9/SweetShop-TDD/internal/model"
	"github.com/YAnkir9/SweetShop-TDD/internal/queue"
	"github.com/YAnkir9/SweetShop-TDD/internal/storetest"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Events() []queue.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.Event(nil), p.events...)
}

type failingPublisher struct{ err error }

func (p failingPublisher) Publish(context.Context, queue.Event) error { return p.err }

func seedSweet(t *testing.T, m *storetest.Memory, name, price string, qty int) model.Sweet {
	t.Helper()
	ctx := context.Background()
	cats, err := m.Categories.List(ctx)
	require.NoError(t, err)
	var catID uint64
	if len(cats) > 0 {
		catID = cats[0].ID
	} else {
		c, err := m.Categories.Create(ctx, "Traditional")
		require.NoError(t, err)
		catID = c.ID
	}
	sw := model.Sweet{Name: name, Price: decimal.RequireFromString(price), CategoryID: catID, Quantity: qty}
	require.NoError(t, m.Sweets.Create(ctx, &sw))
	return sw
}

func seedUser(t *testing.T, m *storetest.Memory, username, role string, verified bool) model.User {
	t.Helper()
	u := model.User{Username: username, Email: username + "@example.com", Role: role, IsVerified: verified}
	require.NoError(t, m.Users.Create(context.Background(), &u))
	return u
}

func principal(u model.User) *access.Principal {
	return &access.Principal{UserID: u.ID, Role: u.Role, Verified: u.IsVerified}
}
