package router

import (
	"net/http"

	"github.com/YAnkir9/SweetShop-TDD/internal/handler"
)

// catalogRoutes are browsable without an account; writes need an admin.
func catalogRoutes(c *handler.CatalogHandler, r *handler.ReviewHandler) []Route {
	return []Route{
		public(http.MethodGet, "/api/categories", c.ListCategories),
		admin(http.MethodPost, "/api/categories", c.CreateCategory),
		admin(http.MethodPut, "/api/categories/:id", c.RenameCategory),
		admin(http.MethodDelete, "/api/categories/:id", c.DeleteCategory),

		public(http.MethodGet, "/api/sweets", c.ListSweets),
		public(http.MethodGet, "/api/sweets/:id", c.GetSweet),
		public(http.MethodGet, "/api/sweets/:id/reviews", r.ListForSweet),
		public(http.MethodGet, "/api/sweets/:id/rating", r.Rating),
		admin(http.MethodPost, "/api/sweets", c.CreateSweet),
		admin(http.MethodPut, "/api/sweets/:id", c.UpdateSweet),
		admin(http.MethodDelete, "/api/sweets/:id", c.DeleteSweet),
	}
}

// shopRoutes need a verified account.  Ownership of a purchase or review
// is checked by the service once the record is loaded.
func shopRoutes(p *handler.PurchaseHandler, r *handler.ReviewHandler) []Route {
	return []Route{
		verified(http.MethodPost, "/api/purchases", p.Create),
		verified(http.MethodGet, "/api/purchases", p.ListMine),
		verified(http.MethodGet, "/api/purchases/:id", p.Get),

		verified(http.MethodPost, "/api/reviews", r.Create),
		verified(http.MethodPut, "/api/reviews/:id", r.Update),
		verified(http.MethodDelete, "/api/reviews/:id", r.Delete),
	}
}
