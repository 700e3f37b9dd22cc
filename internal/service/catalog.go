package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/YAnkir9/SweetShop-TDD/internal/model"
	"github.com/YAnkir9/SweetShop-TDD/internal/repository"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	// MaxQuantity is the largest stock figure the INT columns hold.
	MaxQuantity = math.MaxInt32

	maxNameLength        = 100
	maxDescriptionLength = 1000
)

// CatalogService manages categories and sweets.
type CatalogService struct {
	Categories CategoryStore
	Sweets     SweetStore
	Reviews    ReviewStore
}

func NewCatalogService(categories CategoryStore, sweets SweetStore, reviews ReviewStore) *CatalogService {
	return &CatalogService{Categories: categories, Sweets: sweets, Reviews: reviews}
}

// SweetInput carries the writable fields of a sweet. Nil fields are left
// unchanged on update; Name, Price and CategoryID are required on create.
type SweetInput struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	ImageURL    *string          `json:"image_url"`
	Price       *decimal.Decimal `json:"price"`
	CategoryID  *uint64          `json:"category_id"`
	Quantity    *int             `json:"quantity"`
}

// SweetPage is one page of a catalog listing.
type SweetPage struct {
	Items    []model.Sweet `json:"items"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// SweetDetail is a sweet with its rating summary.
type SweetDetail struct {
	model.Sweet
	Rating model.RatingSummary `json:"rating"`
}

func cleanName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid(field, "is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", invalid(field, "must be at most %d characters", maxNameLength)
	}
	return name, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.Categories.List(ctx)
}

func (s *CatalogService) CreateCategory(ctx context.Context, name string) (model.Category, error) {
	name, err := cleanName("name", name)
	if err != nil {
		return model.Category{}, err
	}
	return s.Categories.Create(ctx, name)
}

func (s *CatalogService) RenameCategory(ctx context.Context, id uint64, name string) (model.Category, error) {
	name, err := cleanName("name", name)
	if err != nil {
		return model.Category{}, err
	}
	return s.Categories.Rename(ctx, id, name)
}

// DeleteCategory fails with repository.ErrConflict while sweets reference it.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uint64) error {
	return s.Categories.Delete(ctx, id)
}

// ListSweets normalizes paging and price bounds before querying.
func (s *CatalogService) ListSweets(ctx context.Context, f model.SweetFilter) (SweetPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.PageSize == 0:
		f.PageSize = DefaultPageSize
	case f.PageSize < 0 || f.PageSize > MaxPageSize:
		return SweetPage{}, invalid("page_size", "must be between 1 and %d", MaxPageSize)
	}
	if f.Page-1 > math.MaxInt32/f.PageSize {
		return SweetPage{}, invalid("page", "is too large")
	}
	if f.MinPrice != nil && f.MinPrice.IsNegative() {
		return SweetPage{}, invalid("min_price", "must not be negative")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return SweetPage{}, invalid("max_price", "must not be below min_price")
	}
	f.Search = strings.TrimSpace(f.Search)
	items, total, err := s.Sweets.List(ctx, f)
	if err != nil {
		return SweetPage{}, err
	}
	return SweetPage{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

func (s *CatalogService) GetSweet(ctx context.Context, id uint64) (SweetDetail, error) {
	sw, err := s.Sweets.Get(ctx, id)
	if err != nil {
		return SweetDetail{}, err
	}
	sum, err := s.Reviews.Summary(ctx, id)
	if err != nil {
		return SweetDetail{}, err
	}
	sum.AverageRating = roundRating(sum.AverageRating)
	return SweetDetail{Sweet: sw, Rating: sum}, nil
}

func (s *CatalogService) CreateSweet(ctx context.Context, in SweetInput) (model.Sweet, error) {
	if in.Name == nil {
		return model.Sweet{}, invalid("name", "is required")
	}
	if in.Price == nil {
		return model.Sweet{}, invalid("price", "is required")
	}
	if in.CategoryID == nil || *in.CategoryID == 0 {
		return model.Sweet{}, invalid("category_id", "is required")
	}
	var sw model.Sweet
	if in.Quantity != nil {
		if *in.Quantity < 0 || *in.Quantity > MaxQuantity {
			return model.Sweet{}, invalid("quantity", "must be between 0 and %d", MaxQuantity)
		}
		sw.Quantity = *in.Quantity
	}
	if err := s.apply(ctx, &sw, in); err != nil {
		return model.Sweet{}, err
	}
	if err := s.Sweets.Create(ctx, &sw); err != nil {
		return model.Sweet{}, err
	}
	return sw, nil
}

// UpdateSweet changes catalog fields. Stock only moves through purchases
// and restocks, so a quantity in the input is rejected.
func (s *CatalogService) UpdateSweet(ctx context.Context, id uint64, in SweetInput) (model.Sweet, error) {
	if in.Quantity != nil {
		return model.Sweet{}, invalid("quantity", "use the restock endpoint to change stock")
	}
	sw, err := s.Sweets.Get(ctx, id)
	if err != nil {
		return model.Sweet{}, err
	}
	if err := s.apply(ctx, &sw, in); err != nil {
		return model.Sweet{}, err
	}
	if err := s.Sweets.Update(ctx, &sw); err != nil {
		return model.Sweet{}, err
	}
	return sw, nil
}

func (s *CatalogService) apply(ctx context.Context, sw *model.Sweet, in SweetInput) error {
	if in.Name != nil {
		name, err := cleanName("name", *in.Name)
		if err != nil {
			return err
		}
		sw.Name = name
	}
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		if utf8.RuneCountInString(d) > maxDescriptionLength {
			return invalid("description", "must be at most %d characters", maxDescriptionLength)
		}
		sw.Description = d
	}
	if in.ImageURL != nil {
		sw.ImageURL = strings.TrimSpace(*in.ImageURL)
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return invalid("price", "must not be negative")
		}
		if !in.Price.Equal(in.Price.Round(2)) {
			return invalid("price", "must have at most 2 decimal places")
		}
		sw.Price = in.Price.Round(2)
	}
	if in.CategoryID != nil && *in.CategoryID != sw.CategoryID {
		if _, err := s.Categories.Get(ctx, *in.CategoryID); err != nil {
			return fmt.Errorf("category %d: %w", *in.CategoryID, err)
		}
		sw.CategoryID = *in.CategoryID
	}
	return nil
}

func (s *CatalogService) DeleteSweet(ctx context.Context, id uint64) error {
	return s.Sweets.SoftDelete(ctx, id)
}

// ensure the repository types satisfy the ports.
var (
	_ CategoryStore = (*repository.CategoryRepo)(nil)
	_ SweetStore    = (*repository.SweetRepo)(nil)
	_ ReviewStore   = (*repository.ReviewRepo)(nil)
	_ PurchaseStore = (*repository.PurchaseRepo)(nil)
	_ UserStore     = (*repository.UserRepo)(nil)
	_ TokenStore    = (*repository.TokenRepo)(nil)
	_ AuditStore    = (*repository.AuditRepo)(nil)
	_ StatsStore    = (*repository.StatsRepo)(nil)
	_ RestockStore  = (*repository.RestockRepo)(nil)
	_ TxRunner      = (*repository.Store)(nil)
)
