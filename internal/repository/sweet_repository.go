package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/YAnkir9/SweetShop-TDD/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SweetRepo reads and writes sweets together with their inventory row.
// Stock is held in sweet_inventory and is only changed by AdjustStockTx.
type SweetRepo struct{ db *sql.DB }

func NewSweetRepo(db *sql.DB) *SweetRepo { return &SweetRepo{db: db} }

const sweetSelect = `SELECT s.id, s.name, s.description, s.image_url, s.price, s.category_id, c.name,
	COALESCE(i.quantity, 0), s.is_deleted, s.created_at, s.updated_at
	FROM sweets s
	JOIN categories c ON c.id = s.category_id
	LEFT JOIN sweet_inventory i ON i.sweet_id = s.id`

func scanSweet(s rowScanner) (model.Sweet, error) {
	var sw model.Sweet
	var desc, img sql.NullString
	err := s.Scan(&sw.ID, &sw.Name, &desc, &img, &sw.Price, &sw.CategoryID, &sw.CategoryName,
		&sw.Quantity, &sw.IsDeleted, &sw.CreatedAt, &sw.UpdatedAt)
	if err != nil {
		return model.Sweet{}, err
	}
	sw.Description = desc.String
	sw.ImageURL = img.String
	return sw, nil
}

func (r *SweetRepo) get(ctx context.Context, q querier, id uint64) (model.Sweet, error) {
	sw, err := scanSweet(q.QueryRowContext(ctx, sweetSelect+" WHERE s.id = ? AND s.is_deleted = 0", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Sweet{}, ErrNotFound
	}
	return sw, err
}

// Get returns a live (not deleted) sweet.
func (r *SweetRepo) Get(ctx context.Context, id uint64) (model.Sweet, error) {
	return r.get(ctx, r.db, id)
}

// GetTx is Get within an existing transaction.
func (r *SweetRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Sweet, error) {
	return r.get(ctx, tx, id)
}

// List returns one page of live sweets matching f and the total number of
// matches.
func (r *SweetRepo) List(ctx context.Context, f model.SweetFilter) ([]model.Sweet, int, error) {
	where := []string{"s.is_deleted = 0"}
	args := []any{}
	if f.CategoryID != 0 {
		where = append(where, "s.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.MinPrice != nil {
		where = append(where, "s.price >= ?")
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		where = append(where, "s.price <= ?")
		args = append(args, *f.MaxPrice)
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		where = append(where, "(s.name LIKE ? OR s.description LIKE ?)")
		like := "%" + escapeLike(q) + "%"
		args = append(args, like, like)
	}
	cond := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sweets s"+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := sweetSelect + cond + " ORDER BY s.name, s.id LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(args, f.PageSize, f.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.Sweet{}
	for rows.Next() {
		sw, err := scanSweet(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, sw)
	}
	return out, total, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Create inserts a sweet and its inventory row with the initial quantity.
func (r *SweetRepo) Create(ctx context.Context, sw *model.Sweet) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx,
		"INSERT INTO sweets (name, description, image_url, price, category_id) VALUES (?,?,?,?,?)",
		sw.Name, nullable(sw.Description), nullable(sw.ImageURL), sw.Price, sw.CategoryID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("category %d: %w", sw.CategoryID, ErrNotFound)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO sweet_inventory (sweet_id, quantity) VALUES (?, ?)", id, sw.Quantity); err != nil {
		return err
	}
	created, err := r.get(ctx, tx, uint64(id))
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	*sw = created
	return nil
}

// Update overwrites the catalog fields of a live sweet. Stock is not
// touched here.
func (r *SweetRepo) Update(ctx context.Context, sw *model.Sweet) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sweets SET name=?, description=?, image_url=?, price=?, category_id=?
		 WHERE id=? AND is_deleted=0`,
		sw.Name, nullable(sw.Description), nullable(sw.ImageURL), sw.Price, sw.CategoryID, sw.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("category %d: %w", sw.CategoryID, ErrNotFound)
		}
		return err
	}
	updated, err := r.Get(ctx, sw.ID)
	if err != nil {
		return err
	}
	*sw = updated
	return nil
}

// SoftDelete hides a sweet from the catalog.
func (r *SweetRepo) SoftDelete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "UPDATE sweets SET is_deleted=1 WHERE id=? AND is_deleted=0", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustStockTx applies a signed delta to a sweet's stock and returns the
// new quantity. The conditional UPDATE both locks the inventory row and
// refuses to take the quantity below zero, so concurrent adjusters on the
// same sweet are serialized by MySQL and the first committer wins. When no
// row is updated the sweet is either missing/deleted (ErrNotFound) or short
// of stock (*InsufficientStockError).
func (r *SweetRepo) AdjustStockTx(ctx context.Context, tx *sql.Tx, sweetID uint64, delta int) (int, error) {
	if delta == 0 {
		return 0, errors.New("stock delta must be non-zero")
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE sweet_inventory i JOIN sweets s ON s.id = i.sweet_id
		 SET i.quantity = i.quantity + ?
		 WHERE i.sweet_id = ? AND s.is_deleted = 0 AND i.quantity + ? >= 0`,
		delta, sweetID, delta)
	if err != nil {
		return 0, fmt.Errorf("adjust stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("adjust stock: %w", err)
	}

	var qty int
	err = tx.QueryRowContext(ctx,
		`SELECT i.quantity FROM sweet_inventory i JOIN sweets s ON s.id = i.sweet_id
		 WHERE i.sweet_id = ? AND s.is_deleted = 0 FOR UPDATE`, sweetID).Scan(&qty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("sweet %d: %w", sweetID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("read stock: %w", err)
	}
	if n == 0 {
		return 0, &InsufficientStockError{SweetID: sweetID, Requested: -delta, Available: qty}
	}
	return qty, nil
}

func nullable(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
