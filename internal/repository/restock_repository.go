package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/YAnkir9/SweetShop-TDD/internal/model"
)

// RestockRepo appends restock records. Rows are never updated or deleted.
type RestockRepo struct{ db *sql.DB }

func NewRestockRepo(db *sql.DB) *RestockRepo { return &RestockRepo{db: db} }

// CreateTx inserts a restock record inside the caller's transaction.
func (r *RestockRepo) CreateTx(ctx context.Context, tx *sql.Tx, rs *model.Restock) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO restocks (sweet_id, admin_id, quantity_added) VALUES (?,?,?)",
		rs.SweetID, rs.AdminID, rs.QuantityAdded)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rs.ID = uint64(id)
	err = tx.QueryRowContext(ctx, "SELECT restocked_at FROM restocks WHERE id = ?", rs.ID).Scan(&rs.RestockedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// ListBySweet returns the restock history of a sweet, newest first.
func (r *RestockRepo) ListBySweet(ctx context.Context, sweetID uint64) ([]model.Restock, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, sweet_id, admin_id, quantity_added, restocked_at
		 FROM restocks WHERE sweet_id = ? ORDER BY restocked_at DESC, id DESC`, sweetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Restock{}
	for rows.Next() {
		var rs model.Restock
		if err := rows.Scan(&rs.ID, &rs.SweetID, &rs.AdminID, &rs.QuantityAdded, &rs.RestockedAt); err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}
