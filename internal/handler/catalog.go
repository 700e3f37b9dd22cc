package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/YAnkir9/SweetShop-TDD/internal/model"
	"github.com/YAnkir9/SweetShop-TDD/internal/service"
)

// CatalogHandler serves categories and sweets.  Reads are public; writes
// are routed to admins only.
type CatalogHandler struct {
	Catalog *service.CatalogService
}

func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{Catalog: catalog}
}

type categoryReq struct {
	Name string `json:"name"`
}

// ListCategories handles GET /api/categories.
func (h *CatalogHandler) ListCategories(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	cats, err := h.Catalog.ListCategories(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": cats})
}

// CreateCategory handles POST /api/categories.
func (h *CatalogHandler) CreateCategory(c echo.Context) error {
	var req categoryReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	cat, err := h.Catalog.CreateCategory(ctx, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cat)
}

// RenameCategory handles PUT /api/categories/:id.
func (h *CatalogHandler) RenameCategory(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req categoryReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	cat, err := h.Catalog.RenameCategory(ctx, id, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cat)
}

// DeleteCategory handles DELETE /api/categories/:id.  A category that still
// holds sweets yields 409.
func (h *CatalogHandler) DeleteCategory(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Catalog.DeleteCategory(ctx, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// sweetFilter reads the listing query: category_id, min_price, max_price,
// q, page and page_size.
func sweetFilter(c echo.Context) (model.SweetFilter, error) {
	var f model.SweetFilter
	if raw := strings.TrimSpace(c.QueryParam("category_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return f, &service.ValidationError{Field: "category_id", Msg: "must be a positive integer"}
		}
		f.CategoryID = id
	}
	for _, p := range []struct {
		name string
		dst  **decimal.Decimal
	}{{"min_price", &f.MinPrice}, {"max_price", &f.MaxPrice}} {
		raw := strings.TrimSpace(c.QueryParam(p.name))
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return f, &service.ValidationError{Field: p.name, Msg: "must be a decimal number"}
		}
		*p.dst = &d
	}
	var err error
	if f.Page, err = queryInt(c, "page", 1); err != nil {
		return f, err
	}
	if f.PageSize, err = queryInt(c, "page_size", 0); err != nil {
		return f, err
	}
	f.Search = c.QueryParam("q")
	return f, nil
}

// ListSweets handles GET /api/sweets.
func (h *CatalogHandler) ListSweets(c echo.Context) error {
	f, err := sweetFilter(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	page, err := h.Catalog.ListSweets(ctx, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// GetSweet handles GET /api/sweets/:id and includes the rating summary.
func (h *CatalogHandler) GetSweet(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	sw, err := h.Catalog.GetSweet(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sw)
}

// CreateSweet handles POST /api/sweets.
func (h *CatalogHandler) CreateSweet(c echo.Context) error {
	var in service.SweetInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	sw, err := h.Catalog.CreateSweet(ctx, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sw)
}

// UpdateSweet handles PUT /api/sweets/:id.  Stock is changed through
// restock and purchase only.
func (h *CatalogHandler) UpdateSweet(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in service.SweetInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	sw, err := h.Catalog.UpdateSweet(ctx, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sw)
}

// DeleteSweet handles DELETE /api/sweets/:id (soft delete).
func (h *CatalogHandler) DeleteSweet(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Catalog.DeleteSweet(ctx, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
