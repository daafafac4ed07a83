package application_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/evibes/commerce/internal/adapters/vendors"
	"github.com/evibes/commerce/internal/application"
	"github.com/evibes/commerce/internal/domain"
	"github.com/evibes/commerce/internal/ports"
)

// memStore backs every fake repository with one mutex so the fakes keep the
// same serialisation the row locks give the real adapters.
type memStore struct {
	mu sync.Mutex

	users          map[uuid.UUID]domain.User
	usersByEmail   map[string]uuid.UUID
	balances       map[uuid.UUID]domain.Balance
	balanceByUser  map[uuid.UUID]uuid.UUID
	wishlists      map[uuid.UUID]domain.Wishlist
	wishlistByUser map[uuid.UUID]uuid.UUID

	products   map[uuid.UUID]domain.Product
	brands     map[uuid.UUID]domain.Brand
	categories map[uuid.UUID]domain.Category
	stocks     map[uuid.UUID][]domain.Stock
	vendors    map[uuid.UUID]domain.Vendor

	promotions  map[uuid.UUID][]domain.Promotion
	promoCodes  map[uuid.UUID]domain.PromoCode
	promoByCode map[string]uuid.UUID

	orders        map[uuid.UUID]*domain.Order
	ordersByHuman map[string]uuid.UUID
	transactions  map[uuid.UUID]domain.Transaction
	addresses     map[uuid.UUID]domain.Address
	outbox        []ports.OutboxEvent

	// humanIDCollisions makes the next N user creations fail as if the
	// generated human-readable id already existed.
	humanIDCollisions int

	// racePendingUser makes the next CreatePending for that user lose to a
	// concurrent request: the rival basket appears first and the call
	// conflicts, the way the partial unique index resolves the race.
	racePendingUser *uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{
		users:          map[uuid.UUID]domain.User{},
		usersByEmail:   map[string]uuid.UUID{},
		balances:       map[uuid.UUID]domain.Balance{},
		balanceByUser:  map[uuid.UUID]uuid.UUID{},
		wishlists:      map[uuid.UUID]domain.Wishlist{},
		wishlistByUser: map[uuid.UUID]uuid.UUID{},
		products:       map[uuid.UUID]domain.Product{},
		brands:         map[uuid.UUID]domain.Brand{},
		categories:     map[uuid.UUID]domain.Category{},
		stocks:         map[uuid.UUID][]domain.Stock{},
		vendors:        map[uuid.UUID]domain.Vendor{},
		promotions:     map[uuid.UUID][]domain.Promotion{},
		promoCodes:     map[uuid.UUID]domain.PromoCode{},
		promoByCode:    map[string]uuid.UUID{},
		orders:         map[uuid.UUID]*domain.Order{},
		ordersByHuman:  map[string]uuid.UUID{},
		transactions:   map[uuid.UUID]domain.Transaction{},
		addresses:      map[uuid.UUID]domain.Address{},
	}
}

func (m *memStore) eventsOfType(eventType string) []ports.OutboxEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ports.OutboxEvent
	for _, event := range m.outbox {
		if event.EventType == eventType {
			out = append(out, event)
		}
	}
	return out
}

func (m *memStore) orderCopy(orderID uuid.UUID) (domain.Order, error) {
	rec, ok := m.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	out := *rec
	out.Lines = append([]domain.OrderLine(nil), rec.Lines...)
	return out, nil
}

func (m *memStore) createOrder(userID *uuid.UUID, status, humanID string) (domain.Order, error) {
	if _, exists := m.ordersByHuman[humanID]; exists {
		return domain.Order{}, domain.ErrConflict
	}
	if userID != nil {
		for _, rec := range m.orders {
			if rec.UserID != nil && *rec.UserID == *userID && rec.Status == domain.OrderStatusPending {
				return domain.Order{}, domain.ErrConflict
			}
		}
	}
	now := time.Now().UTC()
	order := domain.Order{
		OrderID:         uuid.New(),
		HumanReadableID: humanID,
		UserID:          userID,
		Status:          status,
		Attributes:      map[string]any{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	m.orders[order.OrderID] = &order
	m.ordersByHuman[humanID] = order.OrderID
	return order, nil
}

// freezePromo spends a code exactly once; a second freeze fails the same way
// the conditional UPDATE does.
func (m *memStore) freezePromo(promoCodeID *uuid.UUID, on *time.Time) error {
	if promoCodeID == nil {
		return nil
	}
	code, ok := m.promoCodes[*promoCodeID]
	if !ok || code.UsedOn != nil {
		return domain.ErrPromoCodeInvalid
	}
	code.UsedOn = on
	m.promoCodes[*promoCodeID] = code
	return nil
}

type fakeUsers struct{ store *memStore }

func (f *fakeUsers) CreateWithSetupTx(ctx context.Context, params ports.CreateUserTxParams, welcome ports.OutboxEvent) (domain.User, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if _, exists := f.store.usersByEmail[params.Email]; exists {
		return domain.User{}, domain.ErrConflict
	}
	if f.store.humanIDCollisions > 0 {
		f.store.humanIDCollisions--
		return domain.User{}, domain.ErrConflict
	}
	user := domain.User{
		UserID:    uuid.New(),
		Email:     params.Email,
		Language:  params.Language,
		IsActive:  true,
		CreatedAt: params.RegisteredAtUTC,
	}
	if _, err := f.store.createOrder(&user.UserID, domain.OrderStatusPending, params.HumanReadableID); err != nil {
		return domain.User{}, err
	}
	f.store.users[user.UserID] = user
	f.store.usersByEmail[user.Email] = user.UserID
	balance := domain.Balance{BalanceID: uuid.New(), UserID: user.UserID}
	f.store.balances[balance.BalanceID] = balance
	f.store.balanceByUser[user.UserID] = balance.BalanceID
	wishlist := domain.Wishlist{WishlistID: uuid.New(), UserID: user.UserID}
	f.store.wishlists[wishlist.WishlistID] = wishlist
	f.store.wishlistByUser[user.UserID] = wishlist.WishlistID
	f.store.outbox = append(f.store.outbox, welcome)
	return user, nil
}

func (f *fakeUsers) GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	user, ok := f.store.users[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

type fakeCatalog struct{ store *memStore }

func (f *fakeCatalog) GetProduct(ctx context.Context, productID uuid.UUID) (domain.Product, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	product, ok := f.store.products[productID]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return product, nil
}

func (f *fakeCatalog) GetBrand(ctx context.Context, brandID uuid.UUID) (domain.Brand, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	brand, ok := f.store.brands[brandID]
	if !ok {
		return domain.Brand{}, domain.ErrNotFound
	}
	return brand, nil
}

func (f *fakeCatalog) GetCategory(ctx context.Context, categoryID uuid.UUID) (domain.Category, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	category, ok := f.store.categories[categoryID]
	if !ok {
		return domain.Category{}, domain.ErrNotFound
	}
	return category, nil
}

func (f *fakeCatalog) ListStocks(ctx context.Context, productID uuid.UUID) ([]domain.Stock, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return append([]domain.Stock(nil), f.store.stocks[productID]...), nil
}

func (f *fakeCatalog) GetVendor(ctx context.Context, vendorID uuid.UUID) (domain.Vendor, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	vendor, ok := f.store.vendors[vendorID]
	if !ok {
		return domain.Vendor{}, domain.ErrNotFound
	}
	return vendor, nil
}

func (f *fakeCatalog) ListVendors(ctx context.Context) ([]domain.Vendor, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	out := make([]domain.Vendor, 0, len(f.store.vendors))
	for _, vendor := range f.store.vendors {
		out = append(out, vendor)
	}
	return out, nil
}

func (f *fakeCatalog) FindCategoryByLenientName(ctx context.Context, name string) (domain.Category, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, category := range f.store.categories {
		if strings.EqualFold(category.Name, name) {
			return category, nil
		}
	}
	return domain.Category{}, domain.ErrNotFound
}

func (f *fakeCatalog) CreateInactiveCategory(ctx context.Context, name string) (domain.Category, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	category := domain.Category{CategoryID: uuid.New(), Name: name}
	f.store.categories[category.CategoryID] = category
	return category, nil
}

func (f *fakeCatalog) FindBrandByLenientName(ctx context.Context, name string) (domain.Brand, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, brand := range f.store.brands {
		if strings.EqualFold(brand.Name, name) {
			return brand, nil
		}
	}
	return domain.Brand{}, domain.ErrNotFound
}

func (f *fakeCatalog) CreateInactiveBrand(ctx context.Context, name string) (domain.Brand, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	brand := domain.Brand{BrandID: uuid.New(), Name: name}
	f.store.brands[brand.BrandID] = brand
	return brand, nil
}

type fakePromotions struct{ store *memStore }

func (f *fakePromotions) ListActiveForProduct(ctx context.Context, productID uuid.UUID) ([]domain.Promotion, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return append([]domain.Promotion(nil), f.store.promotions[productID]...), nil
}

type fakePromoCodes struct{ store *memStore }

func (f *fakePromoCodes) GetByID(ctx context.Context, promoCodeID uuid.UUID) (domain.PromoCode, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	code, ok := f.store.promoCodes[promoCodeID]
	if !ok {
		return domain.PromoCode{}, domain.ErrNotFound
	}
	return code, nil
}

func (f *fakePromoCodes) GetByCode(ctx context.Context, code string) (domain.PromoCode, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	promoCodeID, ok := f.store.promoByCode[code]
	if !ok {
		return domain.PromoCode{}, domain.ErrNotFound
	}
	return f.store.promoCodes[promoCodeID], nil
}

type fakeBalances struct{ store *memStore }

func (f *fakeBalances) GetByUserID(ctx context.Context, userID uuid.UUID) (domain.Balance, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	balanceID, ok := f.store.balanceByUser[userID]
	if !ok {
		return domain.Balance{}, domain.ErrNotFound
	}
	return f.store.balances[balanceID], nil
}

func (f *fakeBalances) GetByID(ctx context.Context, balanceID uuid.UUID) (domain.Balance, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	balance, ok := f.store.balances[balanceID]
	if !ok {
		return domain.Balance{}, domain.ErrNotFound
	}
	return balance, nil
}

type fakeTransactions struct{ store *memStore }

func (f *fakeTransactions) Create(ctx context.Context, params ports.TransactionCreateParams) (domain.Transaction, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	txn := domain.Transaction{
		TransactionID: uuid.New(),
		BalanceID:     params.BalanceID,
		OrderID:       params.OrderID,
		Amount:        params.Amount,
		Currency:      params.Currency,
		PaymentMethod: params.PaymentMethod,
		Process:       params.Process,
		CreatedAt:     params.CreatedAtUTC,
		UpdatedAt:     params.CreatedAtUTC,
	}
	f.store.transactions[txn.TransactionID] = txn
	return txn, nil
}

func (f *fakeTransactions) GetByID(ctx context.Context, transactionID uuid.UUID) (domain.Transaction, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	txn, ok := f.store.transactions[transactionID]
	if !ok {
		return domain.Transaction{}, domain.ErrNotFound
	}
	return txn, nil
}

func (f *fakeTransactions) ListByBalance(ctx context.Context, balanceID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []domain.Transaction
	for _, txn := range f.store.transactions {
		if txn.BalanceID != nil && *txn.BalanceID == balanceID {
			out = append(out, txn)
		}
	}
	return out, nil
}

func (f *fakeTransactions) UpdateProcess(ctx context.Context, transactionID uuid.UUID, process map[string]any) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	txn, ok := f.store.transactions[transactionID]
	if !ok {
		return domain.ErrNotFound
	}
	txn.Process = process
	f.store.transactions[transactionID] = txn
	return nil
}

func (f *fakeTransactions) SettleCallbackTx(ctx context.Context, transactionID uuid.UUID, params ports.SettleParams) (ports.SettleResult, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var result ports.SettleResult
	txn, ok := f.store.transactions[transactionID]
	if !ok {
		return result, domain.ErrNotFound
	}
	if _, settled := txn.Process[domain.ProcessKeySuccess]; settled {
		result.AlreadySettled = true
		return result, nil
	}
	if txn.Process == nil {
		txn.Process = map[string]any{}
	}
	txn.Process[domain.ProcessKeySuccess] = params.Succeeded
	if params.Succeeded {
		txn.Process[domain.ProcessKeyStatus] = domain.ProcessStatusSuccess
	} else {
		txn.Process[domain.ProcessKeyStatus] = domain.ProcessStatusFailed
	}
	f.store.transactions[transactionID] = txn

	switch {
	case txn.OrderID != nil:
		rec, ok := f.store.orders[*txn.OrderID]
		if !ok || rec.Status != domain.OrderStatusPayment {
			return result, nil
		}
		if !params.Succeeded {
			rec.Status = domain.OrderStatusFailed
			return result, nil
		}
		rec.Status = domain.OrderStatusCreated
		buyTime := params.NowUTC
		rec.BuyTime = &buyTime
		for i := range rec.Lines {
			if rec.Lines[i].Status == domain.LineStatusPending {
				rec.Lines[i].Status = domain.LineStatusDelivering
			}
		}
		if rec.UserID != nil {
			if _, err := f.store.createOrder(rec.UserID, domain.OrderStatusPending, params.NextHumanID); err != nil {
				return result, err
			}
		}
		f.store.outbox = append(f.store.outbox, params.OrderCreated)
		result.OrderID = txn.OrderID
	case txn.BalanceID != nil && params.Succeeded:
		balance := f.store.balances[*txn.BalanceID]
		balance.Amount = domain.Round2(balance.Amount + domain.Round2(params.Amount))
		f.store.balances[*txn.BalanceID] = balance
		result.BalanceCredited = true
	}
	return result, nil
}

type fakeOrders struct{ store *memStore }

func (f *fakeOrders) GetByID(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.orderCopy(orderID)
}

func (f *fakeOrders) GetByHumanID(ctx context.Context, humanReadableID string) (domain.Order, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	orderID, ok := f.store.ordersByHuman[humanReadableID]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return f.store.orderCopy(orderID)
}

func (f *fakeOrders) CurrentPending(ctx context.Context, userID uuid.UUID) (domain.Order, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, rec := range f.store.orders {
		if rec.UserID != nil && *rec.UserID == userID && rec.Status == domain.OrderStatusPending {
			return f.store.orderCopy(rec.OrderID)
		}
	}
	return domain.Order{}, domain.ErrNotFound
}

func (f *fakeOrders) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []domain.Order
	for _, rec := range f.store.orders {
		if rec.UserID != nil && *rec.UserID == userID {
			order, _ := f.store.orderCopy(rec.OrderID)
			out = append(out, order)
		}
	}
	return out, nil
}

func (f *fakeOrders) CreatePending(ctx context.Context, userID uuid.UUID, humanReadableID string) (domain.Order, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if f.store.racePendingUser != nil && *f.store.racePendingUser == userID {
		f.store.racePendingUser = nil
		if _, err := f.store.createOrder(&userID, domain.OrderStatusPending, "RIVAL"+humanReadableID); err != nil {
			return domain.Order{}, err
		}
	}
	return f.store.createOrder(&userID, domain.OrderStatusPending, humanReadableID)
}

func (f *fakeOrders) CreateMomental(ctx context.Context, humanReadableID string) (domain.Order, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.createOrder(nil, domain.OrderStatusMomental, humanReadableID)
}

func (f *fakeOrders) AddLineTx(ctx context.Context, params ports.AddLineParams) (domain.Order, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	rec, ok := f.store.orders[params.OrderID]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	if !rec.BasketMutable() {
		return domain.Order{}, domain.ErrOrderNotMutable
	}
	if params.EnforceStock {
		held := 0
		for _, line := range rec.Lines {
			if line.ProductID == params.ProductID && !domain.LineFailed(line.Status) {
				held += line.Quantity
			}
		}
		if held+1 > params.StockLimit {
			return domain.Order{}, domain.ErrStockExceeded
		}
	}
	for i := range rec.Lines {
		line := &rec.Lines[i]
		if line.ProductID != params.ProductID || line.AttributesKey != params.AttributesKey {
			continue
		}
		line.Quantity++
		line.UpdatedAt = params.NowUTC
		return f.store.orderCopy(params.OrderID)
	}
	rec.Lines = append(rec.Lines, domain.OrderLine{
		LineID:        uuid.New(),
		OrderID:       params.OrderID,
		ProductID:     params.ProductID,
		VendorID:      params.VendorID,
		Quantity:      1,
		BuyPrice:      params.UnitPrice,
		Status:        domain.LineStatusPending,
		Attributes:    params.Attributes,
		AttributesKey: params.AttributesKey,
		CreatedAt:     params.NowUTC,
		UpdatedAt:     params.NowUTC,
	})
	return f.store.orderCopy(params.OrderID)
}

func (f *fakeOrders) RemoveLineTx(ctx context.Context, orderID, productID uuid.UUID, attributesKey string, wholeLine bool) (domain.Order, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	rec, ok := f.store.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	if !rec.BasketMutable() {
		return domain.Order{}, domain.ErrOrderNotMutable
	}
	for i := range rec.Lines {
		line := rec.Lines[i]
		if line.ProductID != productID || line.AttributesKey != attributesKey {
			continue
		}
		if wholeLine || line.Quantity <= 1 {
			rec.Lines = append(rec.Lines[:i], rec.Lines[i+1:]...)
		} else {
			rec.Lines[i].Quantity--
		}
		return f.store.orderCopy(orderID)
	}
	return domain.Order{}, domain.ErrNotFound
}

func (f *fakeOrders) RemoveAllLinesTx(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	rec, ok := f.store.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	if !rec.BasketMutable() {
		return domain.Order{}, domain.ErrOrderNotMutable
	}
	rec.Lines = nil
	return f.store.orderCopy(orderID)
}

func (f *fakeOrders) CompletePurchaseTx(ctx context.Context, orderID uuid.UUID, params ports.PurchaseParams) (domain.Order, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	rec, ok := f.store.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	if rec.Status != domain.OrderStatusPending || rec.UserID == nil {
		return domain.Order{}, domain.ErrOrderNotMutable
	}
	balanceID := f.store.balanceByUser[*rec.UserID]
	balance := f.store.balances[balanceID]
	if domain.Round2(balance.Amount) < params.AmountDue {
		return domain.Order{}, domain.ErrNotEnoughMoney
	}
	if err := f.store.freezePromo(params.PromoCodeID, params.FreezePromoOn); err != nil {
		return domain.Order{}, err
	}
	balance.Amount = domain.Round2(balance.Amount - params.AmountDue)
	f.store.balances[balanceID] = balance

	if rec.Attributes == nil {
		rec.Attributes = map[string]any{}
	}
	rec.Attributes[domain.AttrFinalPrice] = params.AmountDue
	if params.PromoCodeID != nil {
		rec.Attributes[domain.AttrPromoCode] = params.PromoCodeID.String()
		rec.PromoCodeID = params.PromoCodeID
	}
	rec.Status = domain.OrderStatusCreated
	buyTime := params.NowUTC
	rec.BuyTime = &buyTime
	for i := range rec.Lines {
		if rec.Lines[i].Status == domain.LineStatusPending {
			rec.Lines[i].Status = domain.LineStatusDelivering
		}
	}
	if _, err := f.store.createOrder(rec.UserID, domain.OrderStatusPending, params.NextHumanID); err != nil {
		return domain.Order{}, err
	}
	f.store.outbox = append(f.store.outbox, params.OrderCreated)
	return f.store.orderCopy(orderID)
}

func (f *fakeOrders) BeginPaymentTx(ctx context.Context, orderID uuid.UUID, params ports.BeginPaymentParams) (domain.Order, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	rec, ok := f.store.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	if !rec.BasketMutable() {
		return domain.Order{}, domain.ErrOrderNotMutable
	}
	if err := f.store.freezePromo(params.PromoCodeID, params.FreezePromoOn); err != nil {
		return domain.Order{}, err
	}
	if rec.Attributes == nil {
		rec.Attributes = map[string]any{}
	}
	for k, v := range params.Attributes {
		rec.Attributes[k] = v
	}
	rec.Status = domain.OrderStatusPayment
	rec.PromoCodeID = params.PromoCodeID
	if params.BillingAddress != nil {
		rec.BillingAddress = params.BillingAddress
	}
	if params.ShippingAddress != nil {
		rec.ShippingAddress = params.ShippingAddress
	}
	return f.store.orderCopy(orderID)
}

func (f *fakeOrders) UpdateLineFulfilmentTx(ctx context.Context, lineID uuid.UUID, update ports.LineFulfilmentUpdate) (domain.OrderLine, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, rec := range f.store.orders {
		for i := range rec.Lines {
			line := &rec.Lines[i]
			if line.LineID != lineID {
				continue
			}
			if domain.LineTerminal(line.Status) && line.Status != domain.LineStatusDelivered {
				return *line, nil
			}
			line.Status = update.Status
			if update.AssetRef != "" {
				line.AssetRef = update.AssetRef
			}
			if update.TrackingID != "" {
				line.TrackingID = update.TrackingID
			}
			if update.ErrorNote != "" {
				line.Notifications = line.Notifications.Append("errors", update.ErrorNote)
			}
			line.UpdatedAt = update.NowUTC
			return *line, nil
		}
	}
	return domain.OrderLine{}, domain.ErrNotFound
}

func (f *fakeOrders) ReturnBalanceBackTx(ctx context.Context, lineID uuid.UUID, nowUTC time.Time) (bool, float64, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, rec := range f.store.orders {
		for i := range rec.Lines {
			line := &rec.Lines[i]
			if line.LineID != lineID {
				continue
			}
			if line.Status == domain.LineStatusReturned {
				return false, 0, nil
			}
			if line.Status == domain.LineStatusPending {
				return false, 0, domain.ErrInvalidInput
			}
			line.Status = domain.LineStatusReturned
			if rec.UserID == nil {
				return false, 0, nil
			}
			amount := domain.Round2(line.BuyPrice)
			balanceID := f.store.balanceByUser[*rec.UserID]
			balance := f.store.balances[balanceID]
			balance.Amount = domain.Round2(balance.Amount + amount)
			f.store.balances[balanceID] = balance
			return true, amount, nil
		}
	}
	return false, 0, domain.ErrNotFound
}

func (f *fakeOrders) FinalizeTx(ctx context.Context, orderID uuid.UUID, finished, failed ports.OutboxEvent, nowUTC time.Time) (domain.Order, bool, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	rec, ok := f.store.orders[orderID]
	if !ok {
		return domain.Order{}, false, domain.ErrNotFound
	}
	if rec.Status == domain.OrderStatusFinished || rec.Status == domain.OrderStatusFailed || !rec.AllLinesTerminal() {
		order, _ := f.store.orderCopy(orderID)
		return order, false, nil
	}
	if rec.AllLinesFailed() {
		rec.Status = domain.OrderStatusFailed
		f.store.outbox = append(f.store.outbox, failed)
	} else {
		rec.Status = domain.OrderStatusFinished
		f.store.outbox = append(f.store.outbox, finished)
	}
	order, _ := f.store.orderCopy(orderID)
	return order, true, nil
}

func (f *fakeOrders) ListLinesInStatus(ctx context.Context, statuses []string, limit int) ([]domain.OrderLine, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	wanted := map[string]bool{}
	for _, status := range statuses {
		wanted[status] = true
	}
	var out []domain.OrderLine
	for _, rec := range f.store.orders {
		for _, line := range rec.Lines {
			if wanted[line.Status] && len(out) < limit {
				out = append(out, line)
			}
		}
	}
	return out, nil
}

type fakeAddresses struct{ store *memStore }

func (f *fakeAddresses) Create(ctx context.Context, address domain.Address) (domain.Address, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	address.AddressID = uuid.New()
	f.store.addresses[address.AddressID] = address
	return address, nil
}

type fakeWishlists struct{ store *memStore }

func (f *fakeWishlists) GetByUser(ctx context.Context, userID uuid.UUID) (domain.Wishlist, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	wishlistID, ok := f.store.wishlistByUser[userID]
	if !ok {
		return domain.Wishlist{}, domain.ErrNotFound
	}
	return f.store.wishlists[wishlistID], nil
}

func (f *fakeWishlists) AddProducts(ctx context.Context, wishlistID uuid.UUID, productIDs []uuid.UUID) (domain.Wishlist, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	wishlist, ok := f.store.wishlists[wishlistID]
	if !ok {
		return domain.Wishlist{}, domain.ErrNotFound
	}
	existing := map[uuid.UUID]bool{}
	for _, id := range wishlist.ProductIDs {
		existing[id] = true
	}
	for _, id := range productIDs {
		if !existing[id] {
			wishlist.ProductIDs = append(wishlist.ProductIDs, id)
			existing[id] = true
		}
	}
	f.store.wishlists[wishlistID] = wishlist
	return wishlist, nil
}

func (f *fakeWishlists) RemoveProducts(ctx context.Context, wishlistID uuid.UUID, productIDs []uuid.UUID) (domain.Wishlist, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	wishlist, ok := f.store.wishlists[wishlistID]
	if !ok {
		return domain.Wishlist{}, domain.ErrNotFound
	}
	drop := map[uuid.UUID]bool{}
	for _, id := range productIDs {
		drop[id] = true
	}
	var kept []uuid.UUID
	for _, id := range wishlist.ProductIDs {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	wishlist.ProductIDs = kept
	f.store.wishlists[wishlistID] = wishlist
	return wishlist, nil
}

type fakeAggregates struct {
	mu     sync.Mutex
	values map[string]float64
}

func newFakeAggregates() *fakeAggregates {
	return &fakeAggregates{values: map[string]float64{}}
}

func (f *fakeAggregates) GetFloat(ctx context.Context, key string) (float64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[key]
	return value, ok, nil
}

func (f *fakeAggregates) PutFloat(ctx context.Context, key string, value float64, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

type fakeGateway struct {
	mu       sync.Mutex
	fail     bool
	sessions int
}

func (f *fakeGateway) CreateSession(ctx context.Context, req ports.CreateSessionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", fmt.Errorf("%w: gateway unreachable", domain.ErrUpstream)
	}
	f.sessions++
	return "https://pay.test/session/" + req.TransactionID.String(), nil
}

func (f *fakeGateway) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

type fakeDecoder struct {
	mu    sync.Mutex
	event ports.CallbackEvent
	err   error
}

func (f *fakeDecoder) DecodeCallback(payload []byte) (ports.CallbackEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.event, f.err
}

func (f *fakeDecoder) set(event ports.CallbackEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.event = event
	f.err = nil
}

type fakeRates struct {
	mu    sync.Mutex
	rates map[string]float64
}

func (f *fakeRates) Rate(ctx context.Context, currency string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rate, ok := f.rates[currency]
	if !ok {
		return 0, domain.ErrRatesMissing
	}
	return rate, nil
}

// fakeAdapter fulfils lines either with an asset immediately or with a
// tracking id that later polls resolve to the configured status.
type fakeAdapter struct {
	mu         sync.Mutex
	name       string
	asset      string
	tracking   string
	buyErr     error
	pollStatus string
	pollAsset  string
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) BuyOrderProduct(ctx context.Context, line ports.FulfilmentLine) (ports.FulfilmentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.buyErr != nil {
		return ports.FulfilmentResult{}, f.buyErr
	}
	return ports.FulfilmentResult{AssetRef: f.asset, TrackingID: f.tracking}, nil
}

func (f *fakeAdapter) UpdateOrderProductStatuses(ctx context.Context, lines []ports.FulfilmentLine) ([]ports.StatusUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ports.StatusUpdate
	for _, line := range lines {
		if f.pollStatus == "" {
			continue
		}
		out = append(out, ports.StatusUpdate{
			LineID:   line.Line.LineID.String(),
			Status:   f.pollStatus,
			AssetRef: f.pollAsset,
		})
	}
	return out, nil
}

type fakeRegistry struct {
	adapters map[string]ports.VendorAdapter
}

func (f *fakeRegistry) Adapter(name string) (ports.VendorAdapter, bool) {
	adapter, ok := f.adapters[strings.ToLower(name)]
	return adapter, ok
}

// fixture wires the service against the in-memory fakes with a config the
// test can mutate before calling in.
type fixture struct {
	store     *memStore
	service   *application.Service
	gateway   *fakeGateway
	decoder   *fakeDecoder
	rates     *fakeRates
	adapter   *fakeAdapter
	cfg       application.Config
	balances  *fakeBalances
	wishlists *fakeWishlists
}

func newFixture() *fixture {
	store := newMemStore()
	f := &fixture{
		store:   store,
		gateway: &fakeGateway{},
		decoder: &fakeDecoder{},
		rates:   &fakeRates{rates: map[string]float64{}},
		adapter: &fakeAdapter{name: "printful"},
		cfg: application.Config{
			CanonicalCurrency:  "USD",
			OrderSurcharge:     0,
			GatewayName:        "hostedpay",
			GatewayMinAmount:   1,
			GatewayMaxAmount:   100000,
			PromoCodeMaxLen:    20,
			HumanReadableIDLen: 8,
			ReturnURL:          "https://shop.test/return",
			CallbackBaseURL:    "https://shop.test/commerce/v1",
			DefaultLocale:      "en",
			PriceCacheTTL:      5 * time.Minute,
			RatingCacheTTL:     15 * time.Minute,
		},
		balances:  &fakeBalances{store: store},
		wishlists: &fakeWishlists{store: store},
	}
	f.service = application.NewService(application.Dependencies{
		ConfigFn:     func() application.Config { return f.cfg },
		Users:        &fakeUsers{store: store},
		Catalog:      &fakeCatalog{store: store},
		Promotions:   &fakePromotions{store: store},
		PromoCodes:   &fakePromoCodes{store: store},
		Balances:     f.balances,
		Transactions: &fakeTransactions{store: store},
		Orders:       &fakeOrders{store: store},
		Addresses:    &fakeAddresses{store: store},
		Wishlists:    f.wishlists,
		Aggregates:   newFakeAggregates(),
		Gateway:      f.gateway,
		Callbacks:    map[string]ports.CallbackDecoder{"hostedpay": f.decoder},
		Rates:        f.rates,
		Vendors:      &fakeRegistry{adapters: map[string]ports.VendorAdapter{"printful": f.adapter}},
		Resolver:     vendors.NewResolver(&fakeCatalog{store: store}),
	})
	return f
}

// seedUser registers an account and returns its actor plus the first
// PENDING order.
func (f *fixture) seedUser(t *testing.T, email string, balance float64) (application.Actor, domain.Order) {
	t.Helper()
	ctx := context.Background()
	user, err := f.service.RegisterUser(ctx, application.RegisterUserRequest{Email: email})
	if err != nil {
		t.Fatalf("register user: %v", err)
	}
	actor := application.Actor{UserID: user.UserID}
	if balance > 0 {
		f.store.mu.Lock()
		balanceID := f.store.balanceByUser[user.UserID]
		rec := f.store.balances[balanceID]
		rec.Amount = balance
		f.store.balances[balanceID] = rec
		f.store.mu.Unlock()
	}
	order, err := f.service.CurrentOrder(ctx, actor)
	if err != nil {
		t.Fatalf("current order: %v", err)
	}
	f.store.mu.Lock()
	pending, _ := f.store.orderCopy(order.OrderID)
	f.store.mu.Unlock()
	return actor, pending
}

// seedProduct creates an active product with one stock row.
func (f *fixture) seedProduct(price float64, quantity int, digital bool) (domain.Product, domain.Vendor) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	category := domain.Category{CategoryID: uuid.New(), Name: "shirts", IsActive: true}
	f.store.categories[category.CategoryID] = category
	vendor := domain.Vendor{VendorID: uuid.New(), Name: "printful", IsActive: true}
	f.store.vendors[vendor.VendorID] = vendor
	product := domain.Product{
		ProductID:  uuid.New(),
		CategoryID: category.CategoryID,
		Name:       "plain tee",
		IsDigital:  digital,
		IsActive:   true,
	}
	f.store.products[product.ProductID] = product
	f.store.stocks[product.ProductID] = []domain.Stock{{
		StockID:    uuid.New(),
		ProductID:  product.ProductID,
		VendorID:   vendor.VendorID,
		SKU:        "TEE-1",
		Price:      price,
		Quantity:   quantity,
		ModifiedAt: time.Now().UTC(),
	}}
	return product, vendor
}

func (f *fixture) seedPromoCode(code string, percent *int, userID *uuid.UUID) domain.PromoCode {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	promo := domain.PromoCode{
		PromoCodeID:     uuid.New(),
		Code:            code,
		DiscountPercent: percent,
		UserID:          userID,
	}
	f.store.promoCodes[promo.PromoCodeID] = promo
	f.store.promoByCode[code] = promo.PromoCodeID
	return promo
}

func (f *fixture) balanceOf(t *testing.T, userID uuid.UUID) float64 {
	t.Helper()
	balance, err := f.balances.GetByUserID(context.Background(), userID)
	if err != nil {
		t.Fatalf("balance of %s: %v", userID, err)
	}
	return balance.Amount
}

func (f *fixture) orderStatus(orderID uuid.UUID) string {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	rec, ok := f.store.orders[orderID]
	if !ok {
		return ""
	}
	return rec.Status
}
