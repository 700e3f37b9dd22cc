package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase statuses.  A purchase only ever moves forward through them.
const (
	PurchasePending   = "pending"
	PurchaseShipped   = "shipped"
	PurchaseDelivered = "delivered"
)

// Purchase records one checkout.  Total always equals the sum of the
// item subtotals; unit prices are captured when the purchase is made
// and never re-read from the catalog.
type Purchase struct {
	ID              uint64          `json:"id"`               // purchases.id
	UserID          uint64          `json:"user_id"`          // purchases.user_id
	Status          string          `json:"status"`           // purchases.status
	Total           decimal.Decimal `json:"total"`            // purchases.total_amount
	DeliveryAddress string          `json:"delivery_address"` // purchases.delivery_address
	Items           []PurchaseItem  `json:"items"`
	CreatedAt       time.Time       `json:"created_at"` // purchases.created_at
	UpdatedAt       time.Time       `json:"updated_at"` // purchases.updated_at
}

// PurchaseItem is a line item of a purchase.
type PurchaseItem struct {
	ID         uint64          `json:"id"`          // purchase_items.id
	PurchaseID uint64          `json:"purchase_id"` // purchase_items.purchase_id
	SweetID    uint64          `json:"sweet_id"`    // purchase_items.sweet_id
	SweetName  string          `json:"sweet_name"`  // purchase_items.sweet_name
	Quantity   int             `json:"quantity"`    // purchase_items.quantity
	UnitPrice  decimal.Decimal `json:"unit_price"`  // purchase_items.unit_price
	Subtotal   decimal.Decimal `json:"subtotal"`    // purchase_items.subtotal
}

// ComputeTotals fills every item's subtotal and the purchase total.
func (p *Purchase) ComputeTotals() {
	total := decimal.Zero
	for i := range p.Items {
		it := &p.Items[i]
		it.Subtotal = it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		total = total.Add(it.Subtotal)
	}
	p.Total = total
}

// StatusRank orders purchase statuses; unknown statuses rank -1.
func StatusRank(status string) int {
	switch status {
	case PurchasePending:
		return 0
	case PurchaseShipped:
		return 1
	case PurchaseDelivered:
		return 2
	}
	return -1
}
