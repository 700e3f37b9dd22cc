package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/YAnkir9/SweetShop-TDD/internal/access"
	"github.com/YAnkir9/SweetShop-TDD/internal/model"
	"github.com/YAnkir9/SweetShop-TDD/internal/queue"
	"github.com/YAnkir9/SweetShop-TDD/internal/repository"
)

const maxAddressLength = 500

// LineRequest is one requested line of a purchase.
type LineRequest struct {
	SweetID  uint64 `json:"sweet_id"`
	Quantity int    `json:"quantity"`
}

// PurchaseService runs the purchase workflow and order management.
type PurchaseService struct {
	Tx        TxRunner
	Purchases PurchaseStore
	Events    EventPublisher
}

func NewPurchaseService(tx TxRunner, purchases PurchaseStore, events EventPublisher) *PurchaseService {
	return &PurchaseService{Tx: tx, Purchases: purchases, Events: events}
}

// Create buys lines for userID as a single unit of work. Stock of each
// distinct sweet is decremented once by its summed quantity, in ascending
// sweet id order, so concurrent multi-line purchases lock rows in the same
// order. Any failure rolls the whole purchase back.
func (s *PurchaseService) Create(ctx context.Context, userID uint64, lines []LineRequest, deliveryAddress string) (model.Purchase, error) {
	if len(lines) == 0 {
		return model.Purchase{}, ErrEmptyOrder
	}
	totals := make(map[uint64]int, len(lines))
	for i, l := range lines {
		if l.SweetID == 0 {
			return model.Purchase{}, invalid(fmt.Sprintf("items[%d].sweet_id", i), "is required")
		}
		if l.Quantity <= 0 || l.Quantity > MaxQuantity {
			return model.Purchase{}, invalid(fmt.Sprintf("items[%d].quantity", i), "must be between 1 and %d", MaxQuantity)
		}
		if totals[l.SweetID] > MaxQuantity-l.Quantity {
			return model.Purchase{}, invalid(fmt.Sprintf("items[%d].quantity", i), "total for sweet %d exceeds %d", l.SweetID, MaxQuantity)
		}
		totals[l.SweetID] += l.Quantity
	}
	deliveryAddress = strings.TrimSpace(deliveryAddress)
	if len([]rune(deliveryAddress)) > maxAddressLength {
		return model.Purchase{}, invalid("delivery_address", "must be at most %d characters", maxAddressLength)
	}
	ids := make([]uint64, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var p model.Purchase
	err := s.Tx.WithinTx(ctx, func(tx repository.TxOps) error {
		sweets := make(map[uint64]model.Sweet, len(ids))
		for _, id := range ids {
			if _, err := tx.AdjustStock(ctx, id, -totals[id]); err != nil {
				return err
			}
			sw, err := tx.GetSweet(ctx, id)
			if err != nil {
				return fmt.Errorf("sweet %d: %w", id, err)
			}
			sweets[id] = sw
		}
		p = model.Purchase{UserID: userID, Status: model.PurchasePending, DeliveryAddress: deliveryAddress}
		for _, l := range lines {
			sw := sweets[l.SweetID]
			p.Items = append(p.Items, model.PurchaseItem{
				SweetID: sw.ID, SweetName: sw.Name, Quantity: l.Quantity, UnitPrice: sw.Price,
			})
		}
		p.ComputeTotals()
		if err := tx.CreatePurchase(ctx, &p); err != nil {
			return err
		}
		meta, _ := json.Marshal(map[string]any{"total": p.Total.StringFixed(2), "items": len(p.Items)})
		return tx.AppendAudit(ctx, &model.AuditEntry{
			UserID: userID, Action: model.AuditPurchase,
			TargetTable: "purchases", TargetID: p.ID, Metadata: meta,
		})
	})
	if err != nil {
		return model.Purchase{}, err
	}
	publish(s.Events, purchaseEvent(p))
	return p, nil
}

func purchaseEvent(p model.Purchase) queue.PurchaseCompletedEvent {
	ev := queue.PurchaseCompletedEvent{
		Type:       queue.TypePurchaseCompleted,
		PurchaseID: p.ID,
		UserID:     p.UserID,
		Total:      p.Total.StringFixed(2),
		CreatedAt:  p.CreatedAt.UTC().Format(time.RFC3339),
	}
	for _, it := range p.Items {
		ev.Items = append(ev.Items, queue.EventItem{
			SweetID: it.SweetID, SweetName: it.SweetName,
			Quantity: it.Quantity, UnitPrice: it.UnitPrice.StringFixed(2),
		})
	}
	return ev
}

// ListForUser returns the caller's own purchases.
func (s *PurchaseService) ListForUser(ctx context.Context, userID uint64) ([]model.Purchase, error) {
	return s.Purchases.ListByUser(ctx, userID)
}

// Get returns a purchase visible to its owner or an admin.
func (s *PurchaseService) Get(ctx context.Context, p *access.Principal, id uint64) (model.Purchase, error) {
	pu, err := s.Purchases.Get(ctx, id)
	if err != nil {
		return model.Purchase{}, err
	}
	if err := access.Check(p, access.OwnerOrAdmin(pu.UserID)); err != nil {
		return model.Purchase{}, err
	}
	return pu, nil
}

// ListAll returns every purchase, optionally filtered by status.
func (s *PurchaseService) ListAll(ctx context.Context, status string) ([]model.Purchase, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != "" && model.StatusRank(status) < 0 {
		return nil, invalid("status", "unknown status %q", status)
	}
	return s.Purchases.ListAll(ctx, status)
}

// UpdateStatus moves a purchase forward through pending, shipped and
// delivered. Backward or repeated transitions fail with ErrInvalidTransition.
func (s *PurchaseService) UpdateStatus(ctx context.Context, adminID, id uint64, status string) (model.Purchase, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if model.StatusRank(status) < 0 {
		return model.Purchase{}, invalid("status", "must be one of pending, shipped, delivered")
	}
	var out model.Purchase
	err := s.Tx.WithinTx(ctx, func(tx repository.TxOps) error {
		pu, err := tx.GetPurchaseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if model.StatusRank(status) <= model.StatusRank(pu.Status) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, pu.Status, status)
		}
		if err := tx.SetPurchaseStatus(ctx, id, status); err != nil {
			return err
		}
		meta, _ := json.Marshal(map[string]string{"from": pu.Status, "to": status})
		if err := tx.AppendAudit(ctx, &model.AuditEntry{
			UserID: adminID, Action: model.AuditPurchaseStatus,
			TargetTable: "purchases", TargetID: id, Metadata: meta,
		}); err != nil {
			return err
		}
		pu.Status = status
		out = pu
		return nil
	})
	return out, err
}
