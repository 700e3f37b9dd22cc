package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/YAnkir9/SweetShop-TDD/internal/model"
)

// ReviewRepo stores reviews. Rating aggregates are computed by SQL on each
// call; nothing is denormalized onto sweets.
type ReviewRepo struct{ db *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

const reviewSelect = `SELECT id, sweet_id, user_id, rating, comment, created_at, updated_at FROM reviews`

// Create inserts a review. A second review of the same sweet by the same
// user violates uq_reviews_user_sweet and yields ErrDuplicateReview.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO reviews (sweet_id, user_id, rating, comment) VALUES (?,?,?,?)",
		rv.SweetID, rv.UserID, rv.Rating, nullable(rv.Comment))
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateReview
		}
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.Get(ctx, uint64(id))
	if err != nil {
		return err
	}
	*rv = created
	return nil
}

// Get returns a review by id.
func (r *ReviewRepo) Get(ctx context.Context, id uint64) (model.Review, error) {
	rv, err := scanReview(r.db.QueryRowContext(ctx, reviewSelect+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Review{}, ErrNotFound
	}
	return rv, err
}

// Update stores a new rating and comment.
func (r *ReviewRepo) Update(ctx context.Context, rv *model.Review) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE reviews SET rating = ?, comment = ? WHERE id = ?",
		rv.Rating, nullable(rv.Comment), rv.ID); err != nil {
		return err
	}
	updated, err := r.Get(ctx, rv.ID)
	if err != nil {
		return err
	}
	*rv = updated
	return nil
}

// Delete removes a review.
func (r *ReviewRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM reviews WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBySweet returns the reviews of a sweet, newest first.
func (r *ReviewRepo) ListBySweet(ctx context.Context, sweetID uint64) ([]model.Review, error) {
	rows, err := r.db.QueryContext(ctx, reviewSelect+" WHERE sweet_id = ? ORDER BY created_at DESC, id DESC", sweetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

// Summary aggregates the ratings of one sweet.
func (r *ReviewRepo) Summary(ctx context.Context, sweetID uint64) (model.RatingSummary, error) {
	s := model.RatingSummary{SweetID: sweetID}
	var avg sql.NullFloat64
	err := r.db.QueryRowContext(ctx,
		"SELECT AVG(rating), COUNT(*) FROM reviews WHERE sweet_id = ?", sweetID).Scan(&avg, &s.ReviewCount)
	if err != nil {
		return s, err
	}
	s.AverageRating = avg.Float64
	return s, nil
}

func scanReview(s rowScanner) (model.Review, error) {
	var rv model.Review
	var comment sql.NullString
	err := s.Scan(&rv.ID, &rv.SweetID, &rv.UserID, &rv.Rating, &comment, &rv.CreatedAt, &rv.UpdatedAt)
	rv.Comment = comment.String
	return rv, err
}
