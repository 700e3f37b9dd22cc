package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/YAnkir9/SweetShop-TDD/internal/model"
)

// Store bundles the repositories that share one *sql.DB and runs units of
// work that must commit or roll back together.
type Store struct {
	db         *sql.DB
	Users      *UserRepo
	Tokens     *TokenRepo
	Categories *CategoryRepo
	Sweets     *SweetRepo
	Purchases  *PurchaseRepo
	Reviews    *ReviewRepo
	Restocks   *RestockRepo
	Audit      *AuditRepo
	Stats      *StatsRepo
}

// NewStore wires every repository onto db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:         db,
		Users:      NewUserRepo(db),
		Tokens:     NewTokenRepo(db),
		Categories: NewCategoryRepo(db),
		Sweets:     NewSweetRepo(db),
		Purchases:  NewPurchaseRepo(db),
		Reviews:    NewReviewRepo(db),
		Restocks:   NewRestockRepo(db),
		Audit:      NewAuditRepo(db),
		Stats:      NewStatsRepo(db),
	}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// TxOps is the set of operations available inside one unit of work. The
// inventory adjuster, purchase workflow and restock all run through it so
// their writes commit or roll back together.
type TxOps interface {
	GetSweet(ctx context.Context, id uint64) (model.Sweet, error)
	AdjustStock(ctx context.Context, sweetID uint64, delta int) (int, error)
	CreatePurchase(ctx context.Context, p *model.Purchase) error
	GetPurchaseForUpdate(ctx context.Context, id uint64) (model.Purchase, error)
	SetPurchaseStatus(ctx context.Context, id uint64, status string) error
	CreateRestock(ctx context.Context, r *model.Restock) error
	AppendAudit(ctx context.Context, e *model.AuditEntry) error
}

// WithinTx runs fn inside a single transaction. The transaction is committed
// when fn returns nil and rolled back otherwise; fn's error is returned as is
// so callers can still match sentinel errors.
func (s *Store) WithinTx(ctx context.Context, fn func(tx TxOps) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()
	if err := fn(&Tx{tx: sqlTx, store: s}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// Tx exposes the transactional repository methods bound to one *sql.Tx.
type Tx struct {
	tx    *sql.Tx
	store *Store
}

func (t *Tx) GetSweet(ctx context.Context, id uint64) (model.Sweet, error) {
	return t.store.Sweets.GetTx(ctx, t.tx, id)
}

func (t *Tx) AdjustStock(ctx context.Context, sweetID uint64, delta int) (int, error) {
	return t.store.Sweets.AdjustStockTx(ctx, t.tx, sweetID, delta)
}

func (t *Tx) CreatePurchase(ctx context.Context, p *model.Purchase) error {
	return t.store.Purchases.CreateTx(ctx, t.tx, p)
}

func (t *Tx) GetPurchaseForUpdate(ctx context.Context, id uint64) (model.Purchase, error) {
	return t.store.Purchases.GetForUpdateTx(ctx, t.tx, id)
}

func (t *Tx) SetPurchaseStatus(ctx context.Context, id uint64, status string) error {
	return t.store.Purchases.SetStatusTx(ctx, t.tx, id, status)
}

func (t *Tx) CreateRestock(ctx context.Context, r *model.Restock) error {
	return t.store.Restocks.CreateTx(ctx, t.tx, r)
}

func (t *Tx) AppendAudit(ctx context.Context, e *model.AuditEntry) error {
	return t.store.Audit.AppendTx(ctx, t.tx, e)
}
