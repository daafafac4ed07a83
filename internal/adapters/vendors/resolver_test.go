package vendors

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/evibes/commerce/internal/domain"
)

type resolverCatalog struct {
	categories []domain.Category
	brands     []domain.Brand
}

func (c *resolverCatalog) GetProduct(ctx context.Context, productID uuid.UUID) (domain.Product, error) {
	return domain.Product{}, domain.ErrNotFound
}

func (c *resolverCatalog) GetBrand(ctx context.Context, brandID uuid.UUID) (domain.Brand, error) {
	return domain.Brand{}, domain.ErrNotFound
}

func (c *resolverCatalog) GetCategory(ctx context.Context, categoryID uuid.UUID) (domain.Category, error) {
	return domain.Category{}, domain.ErrNotFound
}

func (c *resolverCatalog) ListStocks(ctx context.Context, productID uuid.UUID) ([]domain.Stock, error) {
	return nil, nil
}

func (c *resolverCatalog) GetVendor(ctx context.Context, vendorID uuid.UUID) (domain.Vendor, error) {
	return domain.Vendor{}, domain.ErrNotFound
}

func (c *resolverCatalog) ListVendors(ctx context.Context) ([]domain.Vendor, error) {
	return nil, nil
}

func (c *resolverCatalog) FindCategoryByLenientName(ctx context.Context, name string) (domain.Category, error) {
	for _, category := range c.categories {
		if strings.EqualFold(category.Name, name) {
			return category, nil
		}
	}
	return domain.Category{}, domain.ErrNotFound
}

func (c *resolverCatalog) CreateInactiveCategory(ctx context.Context, name string) (domain.Category, error) {
	category := domain.Category{CategoryID: uuid.New(), Name: name}
	c.categories = append(c.categories, category)
	return category, nil
}

func (c *resolverCatalog) FindBrandByLenientName(ctx context.Context, name string) (domain.Brand, error) {
	for _, brand := range c.brands {
		if strings.EqualFold(brand.Name, name) {
			return brand, nil
		}
	}
	return domain.Brand{}, domain.ErrNotFound
}

func (c *resolverCatalog) CreateInactiveBrand(ctx context.Context, name string) (domain.Brand, error) {
	brand := domain.Brand{BrandID: uuid.New(), Name: name}
	c.brands = append(c.brands, brand)
	return brand, nil
}

func TestResolveCategory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	catalog := &resolverCatalog{categories: []domain.Category{{CategoryID: uuid.New(), Name: "T-Shirts", IsActive: true}}}
	resolver := NewResolver(catalog)

	category, err := resolver.ResolveCategory(ctx, "  t-shirts ")
	if err != nil {
		t.Fatalf("resolve existing: %v", err)
	}
	if category.Name != "T-Shirts" || !category.IsActive {
		t.Fatalf("expected the existing category, got %+v", category)
	}

	created, err := resolver.ResolveCategory(ctx, "Posters")
	if err != nil {
		t.Fatalf("resolve missing: %v", err)
	}
	if created.IsActive {
		t.Fatalf("a created category must start inactive")
	}
	again, err := resolver.ResolveCategory(ctx, "posters")
	if err != nil {
		t.Fatalf("resolve created: %v", err)
	}
	if again.CategoryID != created.CategoryID {
		t.Fatalf("the second resolve must reuse the created row")
	}

	if _, err := resolver.ResolveCategory(ctx, "   "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("blank name: got %v, want ErrInvalidInput", err)
	}
}

func TestResolveBrand(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	catalog := &resolverCatalog{}
	resolver := NewResolver(catalog)

	created, err := resolver.ResolveBrand(ctx, "Acme")
	if err != nil {
		t.Fatalf("resolve missing: %v", err)
	}
	if created.Name != "Acme" || created.IsActive {
		t.Fatalf("a created brand must keep the name and start inactive, got %+v", created)
	}
}
