package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/evibes/commerce/internal/domain"
	"github.com/evibes/commerce/internal/ports"
)

// CurrentOrder returns the caller's open PENDING basket, creating one when it
// is missing. Normally a fresh PENDING exists from registration or from the
// previous purchase; the create path only heals gaps.
func (s *Service) CurrentOrder(ctx context.Context, actor Actor) (OrderView, error) {
	if actor.Anonymous() {
		return OrderView{}, domain.ErrForbidden
	}
	order, err := s.orders.CurrentPending(ctx, actor.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		order, err = s.createPendingOrder(ctx, actor.UserID)
	}
	if err != nil {
		return OrderView{}, err
	}
	return toOrderView(order), nil
}

// Orders lists the caller's order history, newest first.
func (s *Service) Orders(ctx context.Context, actor Actor) ([]OrderView, error) {
	if actor.Anonymous() {
		return nil, domain.ErrForbidden
	}
	orders, err := s.orders.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	views := make([]OrderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, toOrderView(order))
	}
	return views, nil
}

// Order resolves one order by uuid or by its human-readable alias.
func (s *Service) Order(ctx context.Context, actor Actor, ref string) (OrderView, error) {
	var (
		order domain.Order
		err   error
	)
	if orderID, parseErr := uuid.Parse(ref); parseErr == nil {
		order, err = s.orders.GetByID(ctx, orderID)
	} else {
		order, err = s.orders.GetByHumanID(ctx, ref)
	}
	if err != nil {
		return OrderView{}, err
	}
	if !actor.Staff {
		if order.UserID == nil || actor.Anonymous() || *order.UserID != actor.UserID {
			return OrderView{}, domain.ErrForbidden
		}
	}
	return toOrderView(order), nil
}

// AddProduct puts one unit of a product into the basket. The unit price is
// resolved once, at add time: lowest stock price with the best active
// promotion applied. Re-adding with identical attributes increments the
// existing line; the post-add quantity may not exceed the total available
// stock.
func (s *Service) AddProduct(ctx context.Context, actor Actor, orderID uuid.UUID, req BasketItemRequest) (OrderView, error) {
	order, err := s.resolveOrder(ctx, actor, orderID)
	if err != nil {
		return OrderView{}, err
	}
	if !order.BasketMutable() {
		return OrderView{}, domain.ErrOrderNotMutable
	}

	product, err := s.sellableProduct(ctx, req.ProductID)
	if err != nil {
		return OrderView{}, err
	}
	stocks, err := s.catalog.ListStocks(ctx, req.ProductID)
	if err != nil {
		return OrderView{}, err
	}
	available := domain.TotalStockQuantity(stocks)
	if available < 1 {
		return OrderView{}, domain.ErrStockExceeded
	}
	price, vendorID, err := s.unitPrice(ctx, product, stocks)
	if err != nil {
		return OrderView{}, err
	}

	updated, err := s.orders.AddLineTx(ctx, ports.AddLineParams{
		OrderID:       order.OrderID,
		ProductID:     req.ProductID,
		VendorID:      vendorID,
		UnitPrice:     price,
		Attributes:    req.Attributes,
		AttributesKey: domain.AttributesKey(req.Attributes),
		EnforceStock:  true,
		StockLimit:    available,
		NowUTC:        s.nowFn(),
	})
	if err != nil {
		return OrderView{}, err
	}
	return toOrderView(updated), nil
}

// RemoveProduct decrements the matching line by one unit and deletes it when
// the quantity reaches zero.
func (s *Service) RemoveProduct(ctx context.Context, actor Actor, orderID uuid.UUID, req BasketItemRequest) (OrderView, error) {
	return s.removeLine(ctx, actor, orderID, req, false)
}

// RemoveProductsOfAKind deletes the whole matching line regardless of quantity.
func (s *Service) RemoveProductsOfAKind(ctx context.Context, actor Actor, orderID uuid.UUID, req BasketItemRequest) (OrderView, error) {
	return s.removeLine(ctx, actor, orderID, req, true)
}

func (s *Service) removeLine(ctx context.Context, actor Actor, orderID uuid.UUID, req BasketItemRequest, wholeLine bool) (OrderView, error) {
	order, err := s.resolveOrder(ctx, actor, orderID)
	if err != nil {
		return OrderView{}, err
	}
	if !order.BasketMutable() {
		return OrderView{}, domain.ErrOrderNotMutable
	}
	key := domain.AttributesKey(req.Attributes)
	if order.FindLine(req.ProductID, key) == nil {
		return OrderView{}, fmt.Errorf("%w: no such product in order", domain.ErrNotFound)
	}
	updated, err := s.orders.RemoveLineTx(ctx, order.OrderID, req.ProductID, key, wholeLine)
	if err != nil {
		return OrderView{}, err
	}
	return toOrderView(updated), nil
}

// RemoveAllProducts clears the basket.
func (s *Service) RemoveAllProducts(ctx context.Context, actor Actor, orderID uuid.UUID) (OrderView, error) {
	order, err := s.resolveOrder(ctx, actor, orderID)
	if err != nil {
		return OrderView{}, err
	}
	if !order.BasketMutable() {
		return OrderView{}, domain.ErrOrderNotMutable
	}
	updated, err := s.orders.RemoveAllLinesTx(ctx, order.OrderID)
	if err != nil {
		return OrderView{}, err
	}
	return toOrderView(updated), nil
}

func (s *Service) createPendingOrder(ctx context.Context, userID uuid.UUID) (domain.Order, error) {
	var (
		order domain.Order
		err   error
	)
	for attempt := 0; attempt < humanIDAttempts; attempt++ {
		order, err = s.orders.CreatePending(ctx, userID, s.newHumanID())
		if errors.Is(err, domain.ErrConflict) {
			// Either the id collided or a concurrent request already created
			// the PENDING order; re-reading resolves both.
			if existing, readErr := s.orders.CurrentPending(ctx, userID); readErr == nil {
				return existing, nil
			}
			continue
		}
		break
	}
	return order, err
}
