package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product is the sellable catalog aggregate. A product is only sellable when
// it, its brand and its category are all active.
type Product struct {
	ProductID  uuid.UUID
	CategoryID uuid.UUID
	BrandID    *uuid.UUID
	Name       string
	IsDigital  bool
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Stock is a per-vendor inventory row with its own price and quantity.
type Stock struct {
	StockID       uuid.UUID
	ProductID     uuid.UUID
	VendorID      uuid.UUID
	SKU           string
	Price         float64
	PurchasePrice float64
	Quantity      int
	DigitalAsset  string
	ModifiedAt    time.Time
}

// Vendor supplies stocks and may have a registered fulfilment adapter.
// Authentication holds adapter credentials as an opaque JSON document.
type Vendor struct {
	VendorID       uuid.UUID
	Name           string
	MarkupPercent  int
	IsActive       bool
	Authentication map[string]any
}

// Category is a tree node; markup_percent takes priority over vendor markup.
type Category struct {
	CategoryID    uuid.UUID
	ParentID      *uuid.UUID
	Name          string
	MarkupPercent int
	IsActive      bool
}

// Brand groups products under a manufacturer name.
type Brand struct {
	BrandID  uuid.UUID
	Name     string
	IsActive bool
}

// Sellable reports whether the product can enter a basket.
// Brand and category activity are resolved by the caller; a product with no
// brand only requires an active category.
func (p *Product) Sellable(brandActive, categoryActive bool) bool {
	if !p.IsActive || !categoryActive {
		return false
	}
	if p.BrandID != nil && !brandActive {
		return false
	}
	return true
}

// BestStock picks the stock an order line buys from: minimum price, ties
// broken by earliest modification time. False when no stock exists.
func BestStock(stocks []Stock) (Stock, bool) {
	best := -1
	for i, s := range stocks {
		if best < 0 ||
			s.Price < stocks[best].Price ||
			(s.Price == stocks[best].Price && s.ModifiedAt.Before(stocks[best].ModifiedAt)) {
			best = i
		}
	}
	if best < 0 {
		return Stock{}, false
	}
	return stocks[best], true
}

// BestPrice is the base basket price before promotions, rounded to 2 decimals.
func BestPrice(stocks []Stock) (float64, bool) {
	stock, ok := BestStock(stocks)
	if !ok {
		return 0, false
	}
	return Round2(stock.Price), true
}

// TotalStockQuantity is the quantity available across all vendor stocks.
func TotalStockQuantity(stocks []Stock) int {
	total := 0
	for _, s := range stocks {
		if s.Quantity > 0 {
			total += s.Quantity
		}
	}
	return total
}
