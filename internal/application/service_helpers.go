package application

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evibes/commerce/internal/domain"
	"github.com/evibes/commerce/internal/ports"
)

const humanIDCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// humanIDAttempts bounds the collision retry loop around unique-id inserts.
const humanIDAttempts = 5

func (s *Service) newHumanID() string {
	length := s.cfgFn().HumanReadableIDLen
	if length <= 0 {
		length = 8
	}
	raw := make([]byte, length)
	_, _ = rand.Read(raw)
	out := make([]byte, length)
	for i, b := range raw {
		out[i] = humanIDCharset[int(b)%len(humanIDCharset)]
	}
	return string(out)
}

func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}

// resolveOrder loads an order and enforces ownership: the linked user or a
// staff actor may act on it. Momental orders are reachable by staff only once
// they have left the anonymous checkout flow.
func (s *Service) resolveOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if actor.Staff {
		return order, nil
	}
	if order.UserID == nil || actor.Anonymous() || *order.UserID != actor.UserID {
		return domain.Order{}, domain.ErrForbidden
	}
	return order, nil
}

// unitPrice resolves the base price for a product: the lowest stock price,
// cached briefly, with the best active promotion applied on top. The returned
// vendor id belongs to the winning stock.
func (s *Service) unitPrice(ctx context.Context, product domain.Product, stocks []domain.Stock) (float64, *uuid.UUID, error) {
	best, ok := domain.BestStock(stocks)
	if !ok {
		return 0, nil, domain.ErrStockExceeded
	}
	price := domain.Round2(best.Price)

	cacheKey := productPriceKey(product.ProductID)
	if cached, hit, err := s.aggregates.GetFloat(ctx, cacheKey); err == nil && hit {
		price = cached
	} else {
		_ = s.aggregates.PutFloat(ctx, cacheKey, price, s.cfgFn().PriceCacheTTL)
	}

	promotions, err := s.promotions.ListActiveForProduct(ctx, product.ProductID)
	if err != nil {
		return 0, nil, err
	}
	if percent, found := domain.BestPromotionPercent(promotions, product.ProductID); found {
		price = domain.DiscountByPercent(price, percent)
	}
	vendorID := best.VendorID
	return price, &vendorID, nil
}

// sellableProduct loads a product and checks its own flag plus the brand and
// category flags.
func (s *Service) sellableProduct(ctx context.Context, productID uuid.UUID) (domain.Product, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	categoryActive := false
	if category, err := s.catalog.GetCategory(ctx, product.CategoryID); err == nil {
		categoryActive = category.IsActive
	}
	brandActive := true
	if product.BrandID != nil {
		brandActive = false
		if brand, err := s.catalog.GetBrand(ctx, *product.BrandID); err == nil {
			brandActive = brand.IsActive
		}
	}
	if !product.Sellable(brandActive, categoryActive) {
		return domain.Product{}, domain.ErrInactiveProduct
	}
	return product, nil
}

// resolvePromoCode validates a code against the caller and the current time.
// The freeze itself happens inside the purchase transaction; this only
// decides the amount due and the marker to write.
func (s *Service) resolvePromoCode(ctx context.Context, codeID uuid.UUID, userID *uuid.UUID, total float64) (amountDue float64, freezeOn time.Time, err error) {
	code, err := s.promoCodes.GetByID(ctx, codeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, time.Time{}, domain.ErrPromoCodeInvalid
		}
		return 0, time.Time{}, err
	}
	now := s.nowFn()
	if err := code.Validate(now, userID); err != nil {
		return 0, time.Time{}, err
	}
	return code.Apply(total), domain.SpendMarker(now), nil
}

func productPriceKey(productID uuid.UUID) string {
	return "commerce:product:" + productID.String() + ":price"
}

func productRatingKey(productID uuid.UUID) string {
	return "commerce:product:" + productID.String() + ":rating"
}

func (s *Service) userCreatedEvent(email string, at time.Time) ports.OutboxEvent {
	payload, _ := json.Marshal(map[string]any{
		"email":         email,
		"registered_at": at,
	})
	return ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    ports.EventUserCreated,
		PartitionKey: email,
		Payload:      payload,
		OccurredAt:   at,
	}
}

func (s *Service) orderCreatedEvent(orderID uuid.UUID, humanID string, amount float64, at time.Time) ports.OutboxEvent {
	payload, _ := json.Marshal(map[string]any{
		"order_id":          orderID,
		"human_readable_id": humanID,
		"amount":            amount,
		"bought_at":         at,
	})
	return ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    ports.EventOrderCreated,
		PartitionKey: orderID.String(),
		Payload:      payload,
		OccurredAt:   at,
	}
}

func (s *Service) orderClosedEvent(eventType string, orderID uuid.UUID, at time.Time) ports.OutboxEvent {
	payload, _ := json.Marshal(map[string]any{
		"order_id":  orderID,
		"closed_at": at,
	})
	return ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: orderID.String(),
		Payload:      payload,
		OccurredAt:   at,
	}
}
