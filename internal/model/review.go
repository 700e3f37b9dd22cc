package model

import "time"

// Rating bounds for reviews.
const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 1000
)

// Review is a customer's rating of a sweet.  Comments are stored as
// utf8mb4 so any Unicode text round-trips.
type Review struct {
	ID        uint64    `json:"id"`
	SweetID   uint64    `json:"sweet_id"`
	UserID    uint64    `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
