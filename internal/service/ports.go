// Package service implements the shop's use cases on top of the storage
// interfaces declared here. The MySQL repositories satisfy them in
// production and internal/storetest satisfies them in tests.
package service

import (
	"context"
	"time"

	"github.com/YAnkir9/SweetShop-TDD/internal/model"
	"github.com/YAnkir9/SweetShop-TDD/internal/queue"
	"github.com/YAnkir9/SweetShop-TDD/internal/repository"
)

// TxRunner runs fn in one transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx repository.TxOps) error) error
}

type CategoryStore interface {
	List(ctx context.Context) ([]model.Category, error)
	Get(ctx context.Context, id uint64) (model.Category, error)
	Create(ctx context.Context, name string) (model.Category, error)
	Rename(ctx context.Context, id uint64, name string) (model.Category, error)
	Delete(ctx context.Context, id uint64) error
}

type SweetStore interface {
	Get(ctx context.Context, id uint64) (model.Sweet, error)
	List(ctx context.Context, f model.SweetFilter) ([]model.Sweet, int, error)
	Create(ctx context.Context, sw *model.Sweet) error
	Update(ctx context.Context, sw *model.Sweet) error
	SoftDelete(ctx context.Context, id uint64) error
}

type PurchaseStore interface {
	Get(ctx context.Context, id uint64) (model.Purchase, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Purchase, error)
	ListAll(ctx context.Context, status string) ([]model.Purchase, error)
}

type ReviewStore interface {
	Create(ctx context.Context, rv *model.Review) error
	Get(ctx context.Context, id uint64) (model.Review, error)
	Update(ctx context.Context, rv *model.Review) error
	Delete(ctx context.Context, id uint64) error
	ListBySweet(ctx context.Context, sweetID uint64) ([]model.Review, error)
	Summary(ctx context.Context, sweetID uint64) (model.RatingSummary, error)
}

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	SetVerified(ctx context.Context, id uint64, verified bool) error
	SetRole(ctx context.Context, id uint64, role string) error
}

type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

type AuditStore interface {
	Append(ctx context.Context, e *model.AuditEntry) error
	Recent(ctx context.Context, limit int) ([]model.AuditEntry, error)
}

type StatsStore interface {
	Stats(ctx context.Context) (model.Stats, error)
}

type RestockStore interface {
	ListBySweet(ctx context.Context, sweetID uint64) ([]model.Restock, error)
}

// EventPublisher delivers domain events after commit. A nil publisher
// disables events.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}
