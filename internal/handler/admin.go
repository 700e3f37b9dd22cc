package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/YAnkir9/SweetShop-TDD/internal/service"
)

// AdminHandler groups the admin-only endpoints: restocking, user
// management, order status and reporting.
type AdminHandler struct {
	Inventory *service.InventoryService
	Purchases *service.PurchaseService
	Admin     *service.AdminService
}

func NewAdminHandler(inv *service.InventoryService, purchases *service.PurchaseService, admin *service.AdminService) *AdminHandler {
	return &AdminHandler{Inventory: inv, Purchases: purchases, Admin: admin}
}

type restockReq struct {
	SweetID       uint64 `json:"sweet_id"`
	QuantityAdded int    `json:"quantity_added"`
}

type verifyReq struct {
	IsVerified *bool `json:"is_verified"`
}

type roleReq struct {
	Role string `json:"role"`
}

type statusReq struct {
	Status string `json:"status"`
}

// Restock handles POST /api/admin/restock.
func (h *AdminHandler) Restock(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req restockReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Inventory.Restock(ctx, p.UserID, req.SweetID, req.QuantityAdded)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

// RestockHistory handles GET /api/admin/sweets/:id/restocks.
func (h *AdminHandler) RestockHistory(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Inventory.History(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListUsers handles GET /api/admin/users.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Admin.ListUsers(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": users})
}

// SetVerified handles PUT /api/admin/users/:id/verify.
func (h *AdminHandler) SetVerified(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req verifyReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.IsVerified == nil {
		return &service.ValidationError{Field: "is_verified", Msg: "is required"}
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Admin.SetVerified(ctx, p.UserID, id, *req.IsVerified)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// SetRole handles PUT /api/admin/users/:id/role.
func (h *AdminHandler) SetRole(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req roleReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Admin.SetRole(ctx, p.UserID, id, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// ListPurchases handles GET /api/admin/purchases?status=.
func (h *AdminHandler) ListPurchases(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Purchases.ListAll(ctx, c.QueryParam("status"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// UpdatePurchaseStatus handles PUT /api/admin/purchases/:id/status.
func (h *AdminHandler) UpdatePurchaseStatus(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req statusReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	pu, err := h.Purchases.UpdateStatus(ctx, p.UserID, id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pu)
}

// Stats handles GET /api/admin/stats.
func (h *AdminHandler) Stats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	st, err := h.Admin.Stats(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

// AuditLogs handles GET /api/admin/audit-logs?limit=.
func (h *AdminHandler) AuditLogs(c echo.Context) error {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Admin.AuditLog(ctx, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
