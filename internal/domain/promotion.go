package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Promotion is an active discount percentage applied to a product set at
// basket-add time. No basket-level bundle discounts exist.
type Promotion struct {
	PromotionID     uuid.UUID
	Name            string
	DiscountPercent int
	IsActive        bool
	ProductIDs      []uuid.UUID
}

// BestPromotionPercent resolves the winning discount for a product among
// active promotions: the smallest percentage wins, deterministically.
func BestPromotionPercent(promotions []Promotion, productID uuid.UUID) (int, bool) {
	best := 0
	found := false
	for _, p := range promotions {
		if !p.IsActive {
			continue
		}
		for _, id := range p.ProductIDs {
			if id != productID {
				continue
			}
			if !found || p.DiscountPercent < best {
				best = p.DiscountPercent
				found = true
			}
			break
		}
	}
	return best, found
}

// PromoCode is a one-shot discount applied at purchase time. Exactly one of
// DiscountPercent/DiscountAmount is set; the amount uses a decimal column to
// keep fixed discounts exact in storage.
type PromoCode struct {
	PromoCodeID     uuid.UUID
	Code            string
	DiscountPercent *int
	DiscountAmount  *decimal.Decimal
	StartTime       *time.Time
	EndTime         *time.Time
	UsedOn          *time.Time
	UserID          *uuid.UUID
}

// IsSpent reports whether the code was already applied to an order.
// UsedOn being set freezes the code permanently.
func (c *PromoCode) IsSpent() bool { return c.UsedOn != nil }

// Validate checks shape, the active window, the spent marker and user scope.
func (c *PromoCode) Validate(now time.Time, userID *uuid.UUID) error {
	if (c.DiscountPercent == nil) == (c.DiscountAmount == nil) {
		return ErrPromoCodeInvalid
	}
	if c.IsSpent() {
		return ErrPromoCodeInvalid
	}
	if c.StartTime != nil && now.Before(*c.StartTime) {
		return ErrPromoCodeInvalid
	}
	if c.EndTime != nil && now.After(*c.EndTime) {
		return ErrPromoCodeInvalid
	}
	if c.UserID != nil {
		if userID == nil || *userID != *c.UserID {
			return ErrPromoCodeInvalid
		}
	}
	return nil
}

// Apply computes the discounted amount due from an order total.
func (c *PromoCode) Apply(total float64) float64 {
	if c.DiscountPercent != nil {
		return DiscountByPercent(total, *c.DiscountPercent)
	}
	if c.DiscountAmount != nil {
		due := Round2(total - Round2(c.DiscountAmount.InexactFloat64()))
		if due < 0 {
			return 0
		}
		return due
	}
	return total
}

// SpendMarker is the freeze timestamp written into used_on: the start of the
// current year. The value is a marker meaning "spent", not an audit time.
func SpendMarker(now time.Time) time.Time {
	return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
}
