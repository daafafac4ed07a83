package ports

import (
	"context"

	"github.com/evibes/commerce/internal/domain"
)

// FulfilmentLine bundles everything an adapter needs to act on one order line.
type FulfilmentLine struct {
	Line    domain.OrderLine
	Product domain.Product
	Stock   domain.Stock
	Vendor  domain.Vendor
}

// FulfilmentResult is a vendor's answer to a buy call. Exactly one of
// AssetRef/TrackingID is expected: an asset delivers the line immediately,
// a tracking id leaves it DELIVERING for the status poll to advance.
type FulfilmentResult struct {
	AssetRef   string
	TrackingID string
}

// StatusUpdate is one line advancement reported by a status poll.
type StatusUpdate struct {
	LineID   string
	Status   string
	AssetRef string
}

// VendorAdapter is the capability set a supplier integration implements.
type VendorAdapter interface {
	Name() string
	BuyOrderProduct(ctx context.Context, line FulfilmentLine) (FulfilmentResult, error)
	UpdateOrderProductStatuses(ctx context.Context, lines []FulfilmentLine) ([]StatusUpdate, error)
}

// VendorRegistry looks up a registered adapter by vendor name,
// case-insensitively. Vendors without adapters are fulfilled manually.
type VendorRegistry interface {
	Adapter(name string) (VendorAdapter, bool)
}

// CatalogResolver is the search-query collaborator used during vendor sync:
// a lenient, typo-tolerant lookup that falls back to creating an inactive
// record with the provided name.
type CatalogResolver interface {
	ResolveCategory(ctx context.Context, name string) (domain.Category, error)
	ResolveBrand(ctx context.Context, name string) (domain.Brand, error)
}
