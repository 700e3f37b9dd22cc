package model

import (
	"encoding/json"
	"time"
)

// Restock is the append-only record of an admin adding stock.
type Restock struct {
	ID            uint64    `json:"id"`             // restocks.id
	SweetID       uint64    `json:"sweet_id"`       // restocks.sweet_id
	AdminID       uint64    `json:"admin_id"`       // restocks.admin_id
	QuantityAdded int       `json:"quantity_added"` // restocks.quantity_added
	RestockedAt   time.Time `json:"restocked_at"`   // restocks.restocked_at
}

// Audit actions.
const (
	AuditPurchase       = "PURCHASE"
	AuditRestock        = "RESTOCK"
	AuditPurchaseStatus = "PURCHASE_STATUS"
	AuditUserVerify     = "USER_VERIFY"
	AuditUserRole       = "USER_ROLE"
)

// AuditEntry is a row in audit_logs.  Metadata is free-form JSON.
type AuditEntry struct {
	ID          uint64          `json:"id"`
	UserID      uint64          `json:"user_id"`
	Action      string          `json:"action"`
	TargetTable string          `json:"target_table"`
	TargetID    uint64          `json:"target_id"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Stats is the small aggregate view shown on the admin dashboard.
type Stats struct {
	Users          int    `json:"users"`
	VerifiedUsers  int    `json:"verified_users"`
	Sweets         int    `json:"sweets"`
	Purchases      int    `json:"purchases"`
	PendingOrders  int    `json:"pending_orders"`
	Revenue        string `json:"revenue"`
	LowStockSweets int    `json:"low_stock_sweets"`
	Reviews        int    `json:"reviews"`
}
