// Package router declares every HTTP route together with the access rule
// that guards it.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/YAnkir9/SweetShop-TDD/internal/access"
	"github.com/YAnkir9/SweetShop-TDD/internal/handler"
	"github.com/YAnkir9/SweetShop-TDD/internal/middleware"
)

// Route is one entry of the route table.  Rules run before the handler
// through middleware.Authorize.
type Route struct {
	Method  string
	Path    string
	Handler echo.HandlerFunc
	Rules   []access.Rule
}

// Handlers bundles the handler groups the table points at.
type Handlers struct {
	Auth      *handler.AuthHandler
	Catalog   *handler.CatalogHandler
	Purchases *handler.PurchaseHandler
	Reviews   *handler.ReviewHandler
	Admin     *handler.AdminHandler
	Health    echo.HandlerFunc
}

func public(method, path string, h echo.HandlerFunc) Route {
	return Route{Method: method, Path: path, Handler: h, Rules: []access.Rule{access.Public}}
}

func verified(method, path string, h echo.HandlerFunc) Route {
	return Route{Method: method, Path: path, Handler: h, Rules: []access.Rule{access.Verified}}
}

func admin(method, path string, h echo.HandlerFunc) Route {
	return Route{Method: method, Path: path, Handler: h, Rules: []access.Rule{access.Admin}}
}

// Routes returns the full table.
func Routes(h Handlers) []Route {
	var out []Route
	if h.Health != nil {
		out = append(out, public(http.MethodGet, "/healthz", h.Health))
	}
	out = append(out, authRoutes(h.Auth)...)
	out = append(out, catalogRoutes(h.Catalog, h.Reviews)...)
	out = append(out, shopRoutes(h.Purchases, h.Reviews)...)
	out = append(out, adminRoutes(h.Admin)...)
	return out
}

func authRoutes(a *handler.AuthHandler) []Route {
	return []Route{
		public(http.MethodPost, "/api/auth/register", a.Register),
		public(http.MethodPost, "/api/auth/login", a.Login),
		public(http.MethodPost, "/api/auth/refresh", a.Refresh),
		// Logout accepts a refresh token alone, so it cannot require a bearer.
		public(http.MethodPost, "/api/auth/logout", a.Logout),
		verified(http.MethodGet, "/api/auth/me", a.Me),
	}
}

// Register adds every route of the table to e.
func Register(e *echo.Echo, h Handlers) {
	for _, r := range Routes(h) {
		e.Add(r.Method, r.Path, r.Handler, middleware.Authorize(r.Rules...))
	}
}
