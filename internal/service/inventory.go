package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/YAnkir9/SweetShop-TDD/internal/model"
	"github.com/YAnkir9/SweetShop-TDD/internal/queue"
	"github.com/YAnkir9/SweetShop-TDD/internal/repository"
)

// InventoryService performs admin stock changes.
type InventoryService struct {
	Tx       TxRunner
	Restocks RestockStore
	Events   EventPublisher
}

func NewInventoryService(tx TxRunner, restocks RestockStore, events EventPublisher) *InventoryService {
	return &InventoryService{Tx: tx, Restocks: restocks, Events: events}
}

// RestockResult is the outcome of a restock.
type RestockResult struct {
	Restock     model.Restock `json:"restock"`
	NewQuantity int           `json:"new_quantity"`
}

// Restock adds quantity units to a live sweet. The inventory change, the
// restock record and the audit entry commit together.
func (s *InventoryService) Restock(ctx context.Context, adminID, sweetID uint64, quantity int) (RestockResult, error) {
	if sweetID == 0 {
		return RestockResult{}, invalid("sweet_id", "is required")
	}
	if quantity <= 0 || quantity > MaxQuantity {
		return RestockResult{}, invalid("quantity_added", "must be between 1 and %d", MaxQuantity)
	}
	var res RestockResult
	err := s.Tx.WithinTx(ctx, func(tx repository.TxOps) error {
		n, err := tx.AdjustStock(ctx, sweetID, quantity)
		if err != nil {
			return err
		}
		rs := model.Restock{SweetID: sweetID, AdminID: adminID, QuantityAdded: quantity}
		if err := tx.CreateRestock(ctx, &rs); err != nil {
			return err
		}
		meta, _ := json.Marshal(map[string]int{"quantity_added": quantity, "new_quantity": n})
		if err := tx.AppendAudit(ctx, &model.AuditEntry{
			UserID: adminID, Action: model.AuditRestock,
			TargetTable: "sweets", TargetID: sweetID, Metadata: meta,
		}); err != nil {
			return err
		}
		res = RestockResult{Restock: rs, NewQuantity: n}
		return nil
	})
	if err != nil {
		return RestockResult{}, err
	}
	publish(s.Events, queue.StockRestockedEvent{
		Type:          queue.TypeStockRestocked,
		RestockID:     res.Restock.ID,
		SweetID:       sweetID,
		AdminID:       adminID,
		QuantityAdded: quantity,
		NewQuantity:   res.NewQuantity,
		RestockedAt:   res.Restock.RestockedAt.UTC().Format(time.RFC3339),
	})
	return res, nil
}

// History lists the restocks of a sweet.
func (s *InventoryService) History(ctx context.Context, sweetID uint64) ([]model.Restock, error) {
	return s.Restocks.ListBySweet(ctx, sweetID)
}
