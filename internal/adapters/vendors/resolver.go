package vendors

import (
	"context"
	"errors"
	"strings"

	"github.com/evibes/commerce/internal/domain"
	"github.com/evibes/commerce/internal/ports"
)

// Resolver maps vendor-supplied category and brand names onto catalog rows.
// Lookups are typo-tolerant; a name with no close match creates an inactive
// record so vendor sync never drops a product on a naming mismatch.
type Resolver struct {
	catalog ports.CatalogRepository
}

func NewResolver(catalog ports.CatalogRepository) *Resolver {
	return &Resolver{catalog: catalog}
}

func (r *Resolver) ResolveCategory(ctx context.Context, name string) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, domain.ErrInvalidInput
	}
	category, err := r.catalog.FindCategoryByLenientName(ctx, name)
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Category{}, err
	}
	return r.catalog.CreateInactiveCategory(ctx, name)
}

func (r *Resolver) ResolveBrand(ctx context.Context, name string) (domain.Brand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Brand{}, domain.ErrInvalidInput
	}
	brand, err := r.catalog.FindBrandByLenientName(ctx, name)
	if err == nil {
		return brand, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Brand{}, err
	}
	return r.catalog.CreateInactiveBrand(ctx, name)
}
