package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/YAnkir9/SweetShop-TDD/internal/model"
)

// LowStockThreshold is the quantity under which a sweet counts as low stock.
const LowStockThreshold = 10

// StatsRepo runs the small aggregate queries behind the admin dashboard.
type StatsRepo struct{ db *sql.DB }

func NewStatsRepo(db *sql.DB) *StatsRepo { return &StatsRepo{db: db} }

// Stats collects dashboard counters in one round of queries.
func (r *StatsRepo) Stats(ctx context.Context) (model.Stats, error) {
	var s model.Stats
	var revenue decimal.NullDecimal
	err := r.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM users),
		(SELECT COUNT(*) FROM users WHERE is_verified = 1),
		(SELECT COUNT(*) FROM sweets WHERE is_deleted = 0),
		(SELECT COUNT(*) FROM purchases),
		(SELECT COUNT(*) FROM purchases WHERE status = 'pending'),
		(SELECT SUM(total_amount) FROM purchases),
		(SELECT COUNT(*) FROM sweet_inventory i JOIN sweets s ON s.id = i.sweet_id
		   WHERE s.is_deleted = 0 AND i.quantity < ?),
		(SELECT COUNT(*) FROM reviews)`, LowStockThreshold).Scan(
		&s.Users, &s.VerifiedUsers, &s.Sweets, &s.Purchases, &s.PendingOrders,
		&revenue, &s.LowStockSweets, &s.Reviews)
	if err != nil {
		return s, err
	}
	s.Revenue = revenue.Decimal.StringFixed(2)
	return s, nil
}
