package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups sweets for browsing.  Names are unique.
type Category struct {
	ID   uint64 `json:"id"`   // categories.id
	Name string `json:"name"` // categories.name
}

// Sweet is a catalog entry joined with its inventory row.  Quantity is
// the current stock held in sweet_inventory; it is only ever changed
// through the inventory adjuster.  Deleted sweets stay in the table
// with IsDeleted set so that historical purchases keep their reference.
type Sweet struct {
	ID           uint64          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	ImageURL     string          `json:"image_url,omitempty"`
	Price        decimal.Decimal `json:"price"`
	CategoryID   uint64          `json:"category_id"`
	CategoryName string          `json:"category_name,omitempty"`
	Quantity     int             `json:"quantity"`
	IsDeleted    bool            `json:"-"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// SweetFilter narrows a catalog listing.  Zero values mean "no filter".
// Page is 1-based.
type SweetFilter struct {
	CategoryID uint64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Search     string
	Page       int
	PageSize   int
}

// Offset returns the row offset for the filter's page.
func (f SweetFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// RatingSummary is derived from the reviews of one sweet on every read.
type RatingSummary struct {
	SweetID       uint64  `json:"sweet_id"`
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}
