package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/evibes/commerce/internal/domain"
	"github.com/evibes/commerce/internal/ports"
)

// Buy dispatches a PENDING order down exactly one purchase path. The balance
// path captures funds and completes the order in one transaction; the payment
// path opens a gateway transaction and parks the order in PAYMENT until the
// callback settles it.
func (s *Service) Buy(ctx context.Context, actor Actor, orderID uuid.UUID, req BuyRequest) (BuyOutcome, error) {
	cfg := s.cfgFn()
	if cfg.DisabledCommerce {
		return BuyOutcome{}, domain.ErrDisabledCommerce
	}
	if req.ForceBalance == req.ForcePayment {
		return BuyOutcome{}, fmt.Errorf("%w: exactly one of force_balance and force_payment must be set", domain.ErrInvalidInput)
	}

	order, err := s.resolveOrder(ctx, actor, orderID)
	if err != nil {
		return BuyOutcome{}, err
	}
	if order.Status != domain.OrderStatusPending {
		return BuyOutcome{}, domain.ErrOrderNotMutable
	}
	if order.TotalQuantity() < 1 {
		return BuyOutcome{}, fmt.Errorf("%w: order is empty", domain.ErrInvalidInput)
	}

	amountDue := order.TotalPrice()
	var freezeOn *time.Time
	if req.PromoCodeUUID != nil {
		due, marker, err := s.resolvePromoCode(ctx, *req.PromoCodeUUID, order.UserID, amountDue)
		if err != nil {
			return BuyOutcome{}, err
		}
		amountDue = due
		freezeOn = &marker
	}

	if req.ForceBalance {
		completed, err := s.buyFromBalance(ctx, order, amountDue, req.PromoCodeUUID, freezeOn)
		if err != nil {
			return BuyOutcome{}, err
		}
		view := toOrderView(completed)
		return BuyOutcome{Completed: &view}, nil
	}

	txn, err := s.buyThroughGateway(ctx, order, amountDue, req.PromoCodeUUID, freezeOn, "")
	if err != nil {
		return BuyOutcome{}, err
	}
	view := toTransactionView(txn)
	return BuyOutcome{Pending: &view}, nil
}

// BuyWithoutRegistration runs the anonymous checkout: build a MOMENTAL order
// from the requested products, record the customer and addresses, then take
// the payment path. Stock checks only require per-product availability; the
// basket quantity cap does not apply.
func (s *Service) BuyWithoutRegistration(ctx context.Context, req UnregisteredBuyRequest) (BuyOutcome, error) {
	cfg := s.cfgFn()
	if cfg.DisabledCommerce {
		return BuyOutcome{}, domain.ErrDisabledCommerce
	}
	if len(req.Products) == 0 {
		return BuyOutcome{}, fmt.Errorf("%w: no products given", domain.ErrInvalidInput)
	}
	email, err := normalizeEmail(req.CustomerEmail)
	if err != nil {
		return BuyOutcome{}, err
	}
	if req.Billing == (AddressRequest{}) {
		return BuyOutcome{}, fmt.Errorf("%w: billing address is required", domain.ErrInvalidInput)
	}

	order, err := s.createMomentalOrder(ctx)
	if err != nil {
		return BuyOutcome{}, err
	}
	for _, item := range req.Products {
		product, err := s.sellableProduct(ctx, item.ProductID)
		if err != nil {
			return BuyOutcome{}, err
		}
		stocks, err := s.catalog.ListStocks(ctx, item.ProductID)
		if err != nil {
			return BuyOutcome{}, err
		}
		if domain.TotalStockQuantity(stocks) < 1 {
			return BuyOutcome{}, domain.ErrStockExceeded
		}
		price, vendorID, err := s.unitPrice(ctx, product, stocks)
		if err != nil {
			return BuyOutcome{}, err
		}
		order, err = s.orders.AddLineTx(ctx, ports.AddLineParams{
			OrderID:       order.OrderID,
			ProductID:     item.ProductID,
			VendorID:      vendorID,
			UnitPrice:     price,
			Attributes:    item.Attributes,
			AttributesKey: domain.AttributesKey(item.Attributes),
			NowUTC:        s.nowFn(),
		})
		if err != nil {
			return BuyOutcome{}, err
		}
	}

	billing, err := s.addresses.Create(ctx, addressFromRequest(req.Billing))
	if err != nil {
		return BuyOutcome{}, err
	}
	shipping := billing
	if req.Shipping != nil {
		shipping, err = s.addresses.Create(ctx, addressFromRequest(*req.Shipping))
		if err != nil {
			return BuyOutcome{}, err
		}
	}
	order.BillingAddress = &billing.AddressID
	order.ShippingAddress = &shipping.AddressID

	amountDue := order.TotalPrice()
	var freezeOn *time.Time
	if req.PromoCodeUUID != nil {
		due, marker, err := s.resolvePromoCode(ctx, *req.PromoCodeUUID, nil, amountDue)
		if err != nil {
			return BuyOutcome{}, err
		}
		amountDue = due
		freezeOn = &marker
	}

	order.Attributes = map[string]any{
		domain.AttrCustomerName:  req.CustomerName,
		domain.AttrCustomerEmail: email,
		domain.AttrCustomerPhone: req.CustomerPhone,
	}
	txn, err := s.buyThroughGateway(ctx, order, amountDue, req.PromoCodeUUID, freezeOn, req.PaymentMethod)
	if err != nil {
		return BuyOutcome{}, err
	}
	view := toTransactionView(txn)
	return BuyOutcome{Pending: &view}, nil
}

// buyFromBalance runs the atomic balance purchase and retries the
// replacement order's human-readable id on collision.
func (s *Service) buyFromBalance(ctx context.Context, order domain.Order, amountDue float64, promoCodeID *uuid.UUID, freezeOn *time.Time) (domain.Order, error) {
	now := s.nowFn()
	var (
		completed domain.Order
		err       error
	)
	for attempt := 0; attempt < humanIDAttempts; attempt++ {
		completed, err = s.orders.CompletePurchaseTx(ctx, order.OrderID, ports.PurchaseParams{
			AmountDue:     amountDue,
			PromoCodeID:   promoCodeID,
			FreezePromoOn: freezeOn,
			NextHumanID:   s.newHumanID(),
			OrderCreated:  s.orderCreatedEvent(order.OrderID, order.HumanReadableID, amountDue, now),
			NowUTC:        now,
		})
		if errors.Is(err, domain.ErrConflict) {
			continue
		}
		break
	}
	return completed, err
}

// buyThroughGateway opens a transaction, requests the hosted checkout
// session and moves the order into PAYMENT. A gateway failure leaves the
// transaction recorded as NOGATEWAY and the order untouched, so the caller
// can retry the buy.
func (s *Service) buyThroughGateway(ctx context.Context, order domain.Order, amountDue float64, promoCodeID *uuid.UUID, freezeOn *time.Time, paymentMethod string) (domain.Transaction, error) {
	cfg := s.cfgFn()
	charged := domain.Round2(amountDue + cfg.OrderSurcharge)
	if charged < cfg.GatewayMinAmount || (cfg.GatewayMaxAmount > 0 && charged > cfg.GatewayMaxAmount) {
		return domain.Transaction{}, fmt.Errorf("%w: amount %.2f is outside gateway limits", domain.ErrInvalidInput, charged)
	}

	var balanceID *uuid.UUID
	email := momentalEmail(order)
	if order.UserID != nil {
		user, err := s.users.GetByID(ctx, *order.UserID)
		if err != nil {
			return domain.Transaction{}, err
		}
		email = user.Email
		balance, err := s.balances.GetByUserID(ctx, *order.UserID)
		if err != nil {
			return domain.Transaction{}, err
		}
		balanceID = &balance.BalanceID
	}

	now := s.nowFn()
	orderID := order.OrderID
	txn, err := s.transactions.Create(ctx, ports.TransactionCreateParams{
		BalanceID:     balanceID,
		OrderID:       &orderID,
		Amount:        charged,
		Currency:      cfg.CanonicalCurrency,
		PaymentMethod: paymentMethod,
		Process:       map[string]any{domain.ProcessKeyStatus: domain.ProcessStatusPending},
		CreatedAtUTC:  now,
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	txn, err = s.openGatewaySession(ctx, txn, email)
	if err != nil {
		return domain.Transaction{}, err
	}

	attributes := map[string]any{domain.AttrFinalPrice: amountDue}
	for k, v := range order.Attributes {
		attributes[k] = v
	}
	if paymentMethod != "" {
		attributes[domain.AttrPaymentMethod] = paymentMethod
	}
	if promoCodeID != nil {
		attributes[domain.AttrPromoCode] = promoCodeID.String()
	}
	if _, err := s.orders.BeginPaymentTx(ctx, order.OrderID, ports.BeginPaymentParams{
		Attributes:      attributes,
		PromoCodeID:     promoCodeID,
		FreezePromoOn:   freezeOn,
		BillingAddress:  order.BillingAddress,
		ShippingAddress: order.ShippingAddress,
		NowUTC:          s.nowFn(),
	}); err != nil {
		return domain.Transaction{}, err
	}
	return txn, nil
}

// openGatewaySession calls the hosted-checkout endpoint for a created
// transaction. On upstream failure the process document records NOGATEWAY
// and the error surfaces; the transaction stays retryable.
func (s *Service) openGatewaySession(ctx context.Context, txn domain.Transaction, email string) (domain.Transaction, error) {
	cfg := s.cfgFn()
	redirectURL, err := s.gateway.CreateSession(ctx, ports.CreateSessionRequest{
		TransactionID: txn.TransactionID,
		Email:         email,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		ReturnURL:     cfg.ReturnURL,
		CallbackURL:   cfg.CallbackBaseURL + "/payments/" + txn.TransactionID.String() + "/callback/" + cfg.GatewayName,
		Locale:        cfg.DefaultLocale,
	})
	if err != nil {
		txn.Process = map[string]any{domain.ProcessKeyStatus: domain.ProcessStatusNoGateway}
		if updateErr := s.transactions.UpdateProcess(ctx, txn.TransactionID, txn.Process); updateErr != nil {
			return domain.Transaction{}, updateErr
		}
		return domain.Transaction{}, fmt.Errorf("%w: create payment session: %v", domain.ErrUpstream, err)
	}
	txn.Process = map[string]any{
		domain.ProcessKeyStatus:      domain.ProcessStatusPending,
		domain.ProcessKeyRedirectURL: redirectURL,
	}
	if err := s.transactions.UpdateProcess(ctx, txn.TransactionID, txn.Process); err != nil {
		return domain.Transaction{}, err
	}
	return txn, nil
}

func (s *Service) createMomentalOrder(ctx context.Context) (domain.Order, error) {
	var (
		order domain.Order
		err   error
	)
	for attempt := 0; attempt < humanIDAttempts; attempt++ {
		order, err = s.orders.CreateMomental(ctx, s.newHumanID())
		if errors.Is(err, domain.ErrConflict) {
			continue
		}
		break
	}
	return order, err
}

func addressFromRequest(req AddressRequest) domain.Address {
	return domain.Address{
		Street:     req.Street,
		City:       req.City,
		Region:     req.Region,
		PostalCode: req.PostalCode,
		Country:    req.Country,
	}
}

func momentalEmail(order domain.Order) string {
	if v, ok := order.Attributes[domain.AttrCustomerEmail]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
