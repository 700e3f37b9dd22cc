// Package queue defines the domain events exchanged over the message broker
// and the RabbitMQ publisher and consumer that carry them.
package queue

// QueueName is the durable queue every event is routed to.
const QueueName = "sweetshop.events"

// Event types.
const (
	TypePurchaseCompleted = "purchase.completed"
	TypeStockRestocked    = "inventory.restocked"
)

// Event is implemented by every payload published to the broker.
type Event interface {
	EventType() string
}

// EventItem is one line of a completed purchase.
type EventItem struct {
	SweetID   uint64 `json:"sweet_id"`
	SweetName string `json:"sweet_name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// PurchaseCompletedEvent is published after a purchase commits. It carries
// enough information for downstream consumers to log, notify, or feed
// analytics without querying the primary database.
type PurchaseCompletedEvent struct {
	Type       string      `json:"type"`
	PurchaseID uint64      `json:"purchase_id"`
	UserID     uint64      `json:"user_id"`
	Total      string      `json:"total"`
	Items      []EventItem `json:"items"`
	CreatedAt  string      `json:"created_at"`
}

func (PurchaseCompletedEvent) EventType() string { return TypePurchaseCompleted }

// StockRestockedEvent is published after an admin restock commits.
type StockRestockedEvent struct {
	Type          string `json:"type"`
	RestockID     uint64 `json:"restock_id"`
	SweetID       uint64 `json:"sweet_id"`
	AdminID       uint64 `json:"admin_id"`
	QuantityAdded int    `json:"quantity_added"`
	NewQuantity   int    `json:"new_quantity"`
	RestockedAt   string `json:"restocked_at"`
}

func (StockRestockedEvent) EventType() string { return TypeStockRestocked }
