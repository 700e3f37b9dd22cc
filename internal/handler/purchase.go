package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/YAnkir9/SweetShop-TDD/internal/service"
)

// PurchaseHandler serves the customer side of purchases.
type PurchaseHandler struct {
	Purchases *service.PurchaseService
}

func NewPurchaseHandler(purchases *service.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{Purchases: purchases}
}

type purchaseReq struct {
	Items           []service.LineRequest `json:"items"`
	DeliveryAddress string                `json:"delivery_address"`
}

// Create handles POST /api/purchases.  The whole order succeeds or nothing
// changes; a short line yields 409 with the sweet and available stock.
func (h *PurchaseHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req purchaseReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	pu, err := h.Purchases.Create(ctx, p.UserID, req.Items, req.DeliveryAddress)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, pu)
}

// ListMine handles GET /api/purchases.
func (h *PurchaseHandler) ListMine(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Purchases.ListForUser(ctx, p.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /api/purchases/:id for the buyer or an admin.
func (h *PurchaseHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	pu, err := h.Purchases.Get(ctx, p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pu)
}
