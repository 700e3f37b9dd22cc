package router

import (
	"net/http"

	"github.com/YAnkir9/SweetShop-TDD/internal/handler"
)

// adminRoutes are restricted to verified admins.
func adminRoutes(a *handler.AdminHandler) []Route {
	return []Route{
		admin(http.MethodPost, "/api/admin/restock", a.Restock),
		admin(http.MethodGet, "/api/admin/sweets/:id/restocks", a.RestockHistory),
		admin(http.MethodGet, "/api/admin/users", a.ListUsers),
		admin(http.MethodPut, "/api/admin/users/:id/verify", a.SetVerified),
		admin(http.MethodPut, "/api/admin/users/:id/role", a.SetRole),
		admin(http.MethodGet, "/api/admin/purchases", a.ListPurchases),
		admin(http.MethodPut, "/api/admin/purchases/:id/status", a.UpdatePurchaseStatus),
		admin(http.MethodGet, "/api/admin/stats", a.Stats),
		admin(http.MethodGet, "/api/admin/audit-logs", a.AuditLogs),
	}
}
