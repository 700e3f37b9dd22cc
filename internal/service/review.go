package service

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/YAnkir9/SweetShop-TDD/internal/access"
	"github.com/YAnkir9/SweetShop-TDD/internal/model"
)

// ReviewService manages ratings and comments. Aggregates are computed on
// every read, never cached.
type ReviewService struct {
	Reviews ReviewStore
	Sweets  SweetStore
}

func NewReviewService(reviews ReviewStore, sweets SweetStore) *ReviewService {
	return &ReviewService{Reviews: reviews, Sweets: sweets}
}

func validateReview(rating int, comment string) (string, error) {
	if rating < model.MinRating || rating > model.MaxRating {
		return "", invalid("rating", "must be between %d and %d", model.MinRating, model.MaxRating)
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > model.MaxCommentLength {
		return "", invalid("comment", "must be at most %d characters", model.MaxCommentLength)
	}
	return comment, nil
}

// Create adds the principal's review of a live sweet.
func (s *ReviewService) Create(ctx context.Context, p *access.Principal, sweetID uint64, rating int, comment string) (model.Review, error) {
	if err := access.Verified(p); err != nil {
		return model.Review{}, err
	}
	if sweetID == 0 {
		return model.Review{}, invalid("sweet_id", "is required")
	}
	comment, err := validateReview(rating, comment)
	if err != nil {
		return model.Review{}, err
	}
	if _, err := s.Sweets.Get(ctx, sweetID); err != nil {
		return model.Review{}, err
	}
	rv := model.Review{SweetID: sweetID, UserID: p.UserID, Rating: rating, Comment: comment}
	if err := s.Reviews.Create(ctx, &rv); err != nil {
		return model.Review{}, err
	}
	return rv, nil
}

// Update changes rating and/or comment. Only the author or an admin may.
func (s *ReviewService) Update(ctx context.Context, p *access.Principal, id uint64, rating *int, comment *string) (model.Review, error) {
	rv, err := s.Reviews.Get(ctx, id)
	if err != nil {
		return model.Review{}, err
	}
	if err := access.Check(p, access.OwnerOrAdmin(rv.UserID)); err != nil {
		return model.Review{}, err
	}
	if rating != nil {
		rv.Rating = *rating
	}
	if comment != nil {
		rv.Comment = *comment
	}
	if rv.Comment, err = validateReview(rv.Rating, rv.Comment); err != nil {
		return model.Review{}, err
	}
	if err := s.Reviews.Update(ctx, &rv); err != nil {
		return model.Review{}, err
	}
	return rv, nil
}

// Delete removes a review. Only the author or an admin may.
func (s *ReviewService) Delete(ctx context.Context, p *access.Principal, id uint64) error {
	rv, err := s.Reviews.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := access.Check(p, access.OwnerOrAdmin(rv.UserID)); err != nil {
		return err
	}
	return s.Reviews.Delete(ctx, id)
}

// ListForSweet returns a live sweet's reviews, newest first.
func (s *ReviewService) ListForSweet(ctx context.Context, sweetID uint64) ([]model.Review, error) {
	if _, err := s.Sweets.Get(ctx, sweetID); err != nil {
		return nil, err
	}
	return s.Reviews.ListBySweet(ctx, sweetID)
}

// Summary returns the average rating (two decimals, 0 without reviews) and
// review count of a live sweet.
func (s *ReviewService) Summary(ctx context.Context, sweetID uint64) (model.RatingSummary, error) {
	if _, err := s.Sweets.Get(ctx, sweetID); err != nil {
		return model.RatingSummary{}, err
	}
	sum, err := s.Reviews.Summary(ctx, sweetID)
	if err != nil {
		return model.RatingSummary{}, err
	}
	sum.AverageRating = roundRating(sum.AverageRating)
	return sum, nil
}

func roundRating(v float64) float64 {
	return math.Round(v*100) / 100
}
