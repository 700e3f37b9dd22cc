package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/YAnkir9/SweetShop-TDD/internal/model"
)

// CategoryRepo provides CRUD over the categories table.
type CategoryRepo struct{ db *sql.DB }

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{db: db} }

// List returns all categories ordered by name.
func (r *CategoryRepo) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM categories ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Get returns one category or ErrNotFound.
func (r *CategoryRepo) Get(ctx context.Context, id uint64) (model.Category, error) {
	var c model.Category
	err := r.db.QueryRowContext(ctx, "SELECT id, name FROM categories WHERE id=?", id).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Category{}, ErrNotFound
	}
	return c, err
}

// Create inserts a category. Duplicate names yield ErrConflict.
func (r *CategoryRepo) Create(ctx context.Context, name string) (model.Category, error) {
	name = strings.TrimSpace(name)
	res, err := r.db.ExecContext(ctx, "INSERT INTO categories (name) VALUES (?)", name)
	if err != nil {
		if isDuplicateKey(err) {
			return model.Category{}, ErrConflict
		}
		return model.Category{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Category{}, err
	}
	return model.Category{ID: uint64(id), Name: name}, nil
}

// Rename changes a category's name.
func (r *CategoryRepo) Rename(ctx context.Context, id uint64, name string) (model.Category, error) {
	name = strings.TrimSpace(name)
	if _, err := r.db.ExecContext(ctx, "UPDATE categories SET name=? WHERE id=?", name, id); err != nil {
		if isDuplicateKey(err) {
			return model.Category{}, ErrConflict
		}
		return model.Category{}, err
	}
	return r.Get(ctx, id)
}

// Delete removes a category. Categories still referenced by sweets
// (deleted or not) cannot be removed and yield ErrConflict.
func (r *CategoryRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM categories WHERE id=?", id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
