package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/YAnkir9/SweetShop-TDD/internal/model"
)

// PurchaseRepo provides persistence for purchases and their line items.
// Purchases are always created inside the transaction that decremented
// the inventory, so CreateTx takes the caller's *sql.Tx.
type PurchaseRepo struct {
	db *sql.DB
}

// NewPurchaseRepo returns a new PurchaseRepo bound to the given database.
func NewPurchaseRepo(db *sql.DB) *PurchaseRepo { return &PurchaseRepo{db: db} }

const purchaseSelect = `SELECT id, user_id, status, total_amount, delivery_address, created_at, updated_at FROM purchases`

// CreateTx inserts a purchase and its items within the scope of an existing
// transaction. It populates the generated IDs and timestamps on p. The
// caller must commit or rollback the transaction.
func (r *PurchaseRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Purchase) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO purchases (user_id, status, total_amount, delivery_address) VALUES (?, ?, ?, ?)`,
		p.UserID, p.Status, p.Total, p.DeliveryAddress)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	if err := r.createItemsBulkTx(ctx, tx, p.ID, p.Items); err != nil {
		return err
	}
	created, err := r.get(ctx, tx, p.ID, "")
	if err != nil {
		return err
	}
	*p = created
	return nil
}

// createItemsBulkTx inserts all line items in a single statement.
func (r *PurchaseRepo) createItemsBulkTx(ctx context.Context, tx *sql.Tx, purchaseID uint64, items []model.PurchaseItem) error {
	if len(items) == 0 {
		return nil
	}
	var q strings.Builder
	q.WriteString(`INSERT INTO purchase_items (purchase_id, sweet_id, sweet_name, quantity, unit_price, subtotal) VALUES `)
	args := make([]any, 0, len(items)*6)
	for i, it := range items {
		if i > 0 {
			q.WriteString(",")
		}
		q.WriteString("(?, ?, ?, ?, ?, ?)")
		args = append(args, purchaseID, it.SweetID, it.SweetName, it.Quantity, it.UnitPrice, it.Subtotal)
	}
	_, err := tx.ExecContext(ctx, q.String(), args...)
	return err
}

// Get returns a purchase with its items.
func (r *PurchaseRepo) Get(ctx context.Context, id uint64) (model.Purchase, error) {
	return r.get(ctx, r.db, id, "")
}

// GetForUpdateTx loads and row-locks a purchase.
func (r *PurchaseRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Purchase, error) {
	return r.get(ctx, tx, id, " FOR UPDATE")
}

func (r *PurchaseRepo) get(ctx context.Context, q querier, id uint64, suffix string) (model.Purchase, error) {
	p, err := scanPurchase(q.QueryRowContext(ctx, purchaseSelect+" WHERE id = ?"+suffix, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Purchase{}, ErrNotFound
	}
	if err != nil {
		return model.Purchase{}, err
	}
	items, err := r.items(ctx, q, []uint64{p.ID})
	if err != nil {
		return model.Purchase{}, err
	}
	p.Items = items[p.ID]
	return p, nil
}

// SetStatusTx updates a purchase's status.
func (r *PurchaseRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	res, err := tx.ExecContext(ctx, "UPDATE purchases SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser returns a user's purchases, newest first.
func (r *PurchaseRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Purchase, error) {
	return r.list(ctx, purchaseSelect+" WHERE user_id = ? ORDER BY created_at DESC, id DESC", userID)
}

// ListAll returns every purchase, optionally filtered by status, newest first.
func (r *PurchaseRepo) ListAll(ctx context.Context, status string) ([]model.Purchase, error) {
	if status != "" {
		return r.list(ctx, purchaseSelect+" WHERE status = ? ORDER BY created_at DESC, id DESC", status)
	}
	return r.list(ctx, purchaseSelect+" ORDER BY created_at DESC, id DESC")
}

func (r *PurchaseRepo) list(ctx context.Context, q string, args ...any) ([]model.Purchase, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	out := []model.Purchase{}
	ids := []uint64{}
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, p)
		ids = append(ids, p.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	items, err := r.items(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
		if out[i].Items == nil {
			out[i].Items = []model.PurchaseItem{}
		}
	}
	return out, nil
}

// items loads line items for the given purchases keyed by purchase id.
func (r *PurchaseRepo) items(ctx context.Context, q querier, purchaseIDs []uint64) (map[uint64][]model.PurchaseItem, error) {
	out := make(map[uint64][]model.PurchaseItem, len(purchaseIDs))
	if len(purchaseIDs) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(purchaseIDs)), ",")
	args := make([]any, len(purchaseIDs))
	for i, id := range purchaseIDs {
		args[i] = id
	}
	rows, err := q.QueryContext(ctx,
		`SELECT id, purchase_id, sweet_id, sweet_name, quantity, unit_price, subtotal
		 FROM purchase_items WHERE purchase_id IN (`+placeholders+`) ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it model.PurchaseItem
		if err := rows.Scan(&it.ID, &it.PurchaseID, &it.SweetID, &it.SweetName, &it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, err
		}
		out[it.PurchaseID] = append(out[it.PurchaseID], it)
	}
	return out, rows.Err()
}

func scanPurchase(s rowScanner) (model.Purchase, error) {
	var p model.Purchase
	var addr sql.NullString
	err := s.Scan(&p.ID, &p.UserID, &p.Status, &p.Total, &addr, &p.CreatedAt, &p.UpdatedAt)
	p.DeliveryAddress = addr.String
	return p, err
}
