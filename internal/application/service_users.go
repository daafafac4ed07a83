package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/evibes/commerce/internal/domain"
	"github.com/evibes/commerce/internal/ports"
)

// RegisterUser creates the commerce-side account. Balance, wishlist and the
// first PENDING order are created in the same transaction as explicit steps,
// together with the welcome notification.
func (s *Service) RegisterUser(ctx context.Context, req RegisterUserRequest) (UserView, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return UserView{}, err
	}
	language := req.Language
	if language == "" {
		language = s.cfgFn().DefaultLocale
	}

	now := s.nowFn()
	var user domain.User
	for attempt := 0; attempt < humanIDAttempts; attempt++ {
		user, err = s.users.CreateWithSetupTx(ctx, ports.CreateUserTxParams{
			Email:           email,
			Language:        language,
			HumanReadableID: s.newHumanID(),
			RegisteredAtUTC: now,
		}, s.userCreatedEvent(email, now))
		if errors.Is(err, domain.ErrConflict) {
			// A colliding human-readable id retries; a duplicate email will
			// keep colliding and surface after the loop.
			continue
		}
		break
	}
	if err != nil {
		return UserView{}, err
	}

	return UserView{
		UserID:   user.UserID,
		Email:    user.Email,
		Language: user.Language,
	}, nil
}

// GetUser returns the account with its current balance.
func (s *Service) GetUser(ctx context.Context, actor Actor, userID uuid.UUID) (UserView, error) {
	if !actor.Staff && actor.UserID != userID {
		return UserView{}, domain.ErrForbidden
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return UserView{}, err
	}
	view := UserView{
		UserID:   user.UserID,
		Email:    user.Email,
		Language: user.Language,
	}
	if balance, err := s.balances.GetByUserID(ctx, userID); err == nil {
		view.Balance = balance.Amount
	}
	return view, nil
}

func (s *Service) Wishlist(ctx context.Context, actor Actor) (WishlistView, error) {
	if actor.Anonymous() {
		return WishlistView{}, domain.ErrForbidden
	}
	wishlist, err := s.wishlists.GetByUser(ctx, actor.UserID)
	if err != nil {
		return WishlistView{}, err
	}
	return toWishlistView(wishlist), nil
}

// AddToWishlist verifies each product exists before saving; inactive products
// may still be wished for.
func (s *Service) AddToWishlist(ctx context.Context, actor Actor, productIDs []uuid.UUID) (WishlistView, error) {
	if actor.Anonymous() {
		return WishlistView{}, domain.ErrForbidden
	}
	if len(productIDs) == 0 {
		return WishlistView{}, fmt.Errorf("%w: no products given", domain.ErrInvalidInput)
	}
	for _, productID := range productIDs {
		if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
			return WishlistView{}, err
		}
	}
	wishlist, err := s.wishlists.GetByUser(ctx, actor.UserID)
	if err != nil {
		return WishlistView{}, err
	}
	updated, err := s.wishlists.AddProducts(ctx, wishlist.WishlistID, productIDs)
	if err != nil {
		return WishlistView{}, err
	}
	return toWishlistView(updated), nil
}

func (s *Service) RemoveFromWishlist(ctx context.Context, actor Actor, productIDs []uuid.UUID) (WishlistView, error) {
	if actor.Anonymous() {
		return WishlistView{}, domain.ErrForbidden
	}
	if len(productIDs) == 0 {
		return WishlistView{}, fmt.Errorf("%w: no products given", domain.ErrInvalidInput)
	}
	wishlist, err := s.wishlists.GetByUser(ctx, actor.UserID)
	if err != nil {
		return WishlistView{}, err
	}
	updated, err := s.wishlists.RemoveProducts(ctx, wishlist.WishlistID, productIDs)
	if err != nil {
		return WishlistView{}, err
	}
	return toWishlistView(updated), nil
}

// Product is the storefront read model with cached aggregates: the lowest
// stock price and, when a review system has written one, the rating.
func (s *Service) Product(ctx context.Context, productID uuid.UUID) (ProductView, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return ProductView{}, err
	}
	stocks, err := s.catalog.ListStocks(ctx, productID)
	if err != nil {
		return ProductView{}, err
	}
	view := ProductView{
		ProductID: product.ProductID,
		Name:      product.Name,
		IsDigital: product.IsDigital,
		IsActive:  product.IsActive,
		Quantity:  domain.TotalStockQuantity(stocks),
	}

	priceKey := productPriceKey(productID)
	if cached, hit, err := s.aggregates.GetFloat(ctx, priceKey); err == nil && hit {
		view.Price = cached
	} else if price, ok := domain.BestPrice(stocks); ok {
		view.Price = price
		_ = s.aggregates.PutFloat(ctx, priceKey, price, s.cfgFn().PriceCacheTTL)
	}

	if rating, hit, err := s.aggregates.GetFloat(ctx, productRatingKey(productID)); err == nil && hit {
		view.Rating = &rating
	}
	return view, nil
}

// ResolveCatalogRefs maps vendor-supplied category and brand names onto
// catalog rows for a sync job. A name with no close match creates an inactive
// record, so imported products always land on a row a curator can activate.
func (s *Service) ResolveCatalogRefs(ctx context.Context, actor Actor, req CatalogResolveRequest) (CatalogRefsView, error) {
	if !actor.Staff {
		return CatalogRefsView{}, domain.ErrForbidden
	}
	category, err := s.resolver.ResolveCategory(ctx, req.Category)
	if err != nil {
		return CatalogRefsView{}, err
	}
	view := CatalogRefsView{Category: toCategoryRef(category)}
	if req.Brand != "" {
		brand, err := s.resolver.ResolveBrand(ctx, req.Brand)
		if err != nil {
			return CatalogRefsView{}, err
		}
		ref := toBrandRef(brand)
		view.Brand = &ref
	}
	return view, nil
}

func toWishlistView(wishlist domain.Wishlist) WishlistView {
	return WishlistView{
		WishlistID: wishlist.WishlistID,
		ProductIDs: wishlist.ProductIDs,
	}
}
