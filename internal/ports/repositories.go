package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/evibes/commerce/internal/domain"
)

// CreateUserTxParams captures atomic user-creation inputs. Balance, wishlist
// and the first PENDING order are created in the same transaction, replacing
// the original system's implicit post-save hooks with one explicit step.
type CreateUserTxParams struct {
	Email           string
	Language        string
	HumanReadableID string
	RegisteredAtUTC time.Time
}

// UserRepository defines persistence for commerce-side user state.
type UserRepository interface {
	CreateWithSetupTx(ctx context.Context, params CreateUserTxParams, welcome OutboxEvent) (domain.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error)
}

// CatalogRepository is the read model the order machine consumes, plus the
// narrow write surface the lenient resolvers need during vendor sync.
type CatalogRepository interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (domain.Product, error)
	GetBrand(ctx context.Context, brandID uuid.UUID) (domain.Brand, error)
	GetCategory(ctx context.Context, categoryID uuid.UUID) (domain.Category, error)
	ListStocks(ctx context.Context, productID uuid.UUID) ([]domain.Stock, error)
	GetVendor(ctx context.Context, vendorID uuid.UUID) (domain.Vendor, error)
	ListVendors(ctx context.Context) ([]domain.Vendor, error)

	// Lenient lookups power ResolveCategory/ResolveBrand: the closest
	// name match if one exists, domain.ErrNotFound otherwise.
	FindCategoryByLenientName(ctx context.Context, name string) (domain.Category, error)
	CreateInactiveCategory(ctx context.Context, name string) (domain.Category, error)
	FindBrandByLenientName(ctx context.Context, name string) (domain.Brand, error)
	CreateInactiveBrand(ctx context.Context, name string) (domain.Brand, error)
}

// PromotionRepository resolves basket-time discounts.
type PromotionRepository interface {
	ListActiveForProduct(ctx context.Context, productID uuid.UUID) ([]domain.Promotion, error)
}

// PromoCodeRepository resolves purchase-time one-shot codes. Freezing a code
// happens inside the purchase transactions, not through this interface.
type PromoCodeRepository interface {
	GetByID(ctx context.Context, promoCodeID uuid.UUID) (domain.PromoCode, error)
	GetByCode(ctx context.Context, code string) (domain.PromoCode, error)
}

// BalanceRepository is the balance read model. Mutations happen inside the
// purchase, refund and settle transactions under the balance row lock, never
// through a standalone method.
type BalanceRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (domain.Balance, error)
	GetByID(ctx context.Context, balanceID uuid.UUID) (domain.Balance, error)
}

// TransactionCreateParams captures a new payment attempt before gateway
// hand-off. BalanceID is nil for momental purchases.
type TransactionCreateParams struct {
	BalanceID     *uuid.UUID
	OrderID       *uuid.UUID
	Amount        float64
	Currency      string
	PaymentMethod string
	Process       map[string]any
	CreatedAtUTC  time.Time
}

// SettleParams carries a decoded gateway callback into the settle transaction.
// NextHumanID seeds the replacement PENDING order when the settled order
// belongs to a registered user.
type SettleParams struct {
	Succeeded    bool
	Amount       float64
	NextHumanID  string
	NowUTC       time.Time
	OrderCreated OutboxEvent
}

// SettleResult reports what the settle transaction actually did, so repeat
// callbacks can be answered without re-applying side effects.
type SettleResult struct {
	AlreadySettled  bool
	BalanceCredited bool
	OrderID         *uuid.UUID
}

// TransactionRepository owns payment-attempt state including the process
// document that carries gateway session and settlement flags.
type TransactionRepository interface {
	Create(ctx context.Context, params TransactionCreateParams) (domain.Transaction, error)
	GetByID(ctx context.Context, transactionID uuid.UUID) (domain.Transaction, error)
	ListByBalance(ctx context.Context, balanceID uuid.UUID, limit, offset int) ([]domain.Transaction, error)
	UpdateProcess(ctx context.Context, transactionID uuid.UUID, process map[string]any) error
	// SettleCallbackTx locks the transaction, then the linked order/balance in
	// that order, applies the outcome exactly once and creates the replacement
	// PENDING order when a registered user's order leaves the payment state.
	SettleCallbackTx(ctx context.Context, transactionID uuid.UUID, params SettleParams) (SettleResult, error)
}

// AddLineParams adds one unit of a product to a basket. EnforceStock bounds
// the post-add quantity by the total available stock quantity.
type AddLineParams struct {
	OrderID       uuid.UUID
	ProductID     uuid.UUID
	VendorID      *uuid.UUID
	UnitPrice     float64
	Attributes    map[string]string
	AttributesKey string
	EnforceStock  bool
	StockLimit    int
	NowUTC        time.Time
}

// PurchaseParams is the single critical section of the balance purchase path.
type PurchaseParams struct {
	AmountDue     float64
	PromoCodeID   *uuid.UUID
	FreezePromoOn *time.Time
	NextHumanID   string
	OrderCreated  OutboxEvent
	NowUTC        time.Time
}

// BeginPaymentParams moves an order into PAYMENT while stamping checkout
// attributes and optional addresses resolved for momental purchases.
type BeginPaymentParams struct {
	Attributes      map[string]any
	PromoCodeID     *uuid.UUID
	FreezePromoOn   *time.Time
	BillingAddress  *uuid.UUID
	ShippingAddress *uuid.UUID
	NowUTC          time.Time
}

// LineFulfilmentUpdate advances one line from a vendor outcome.
type LineFulfilmentUpdate struct {
	Status     string
	AssetRef   string
	TrackingID string
	ErrorNote  string
	NowUTC     time.Time
}

// OrderRepository owns order and line persistence. Every mutating method
// takes the order row lock first, so operations on one order serialise.
type OrderRepository interface {
	GetByID(ctx context.Context, orderID uuid.UUID) (domain.Order, error)
	GetByHumanID(ctx context.Context, humanReadableID string) (domain.Order, error)
	CurrentPending(ctx context.Context, userID uuid.UUID) (domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error)
	// CreatePending fails with domain.ErrConflict while another PENDING order
	// exists for the user; the schema enforces at most one.
	CreatePending(ctx context.Context, userID uuid.UUID, humanReadableID string) (domain.Order, error)
	CreateMomental(ctx context.Context, humanReadableID string) (domain.Order, error)

	AddLineTx(ctx context.Context, params AddLineParams) (domain.Order, error)
	RemoveLineTx(ctx context.Context, orderID, productID uuid.UUID, attributesKey string, wholeLine bool) (domain.Order, error)
	RemoveAllLinesTx(ctx context.Context, orderID uuid.UUID) (domain.Order, error)

	CompletePurchaseTx(ctx context.Context, orderID uuid.UUID, params PurchaseParams) (domain.Order, error)
	BeginPaymentTx(ctx context.Context, orderID uuid.UUID, params BeginPaymentParams) (domain.Order, error)

	UpdateLineFulfilmentTx(ctx context.Context, lineID uuid.UUID, update LineFulfilmentUpdate) (domain.OrderLine, error)
	// ReturnBalanceBackTx credits buy_price exactly once; the repeated call
	// reports credited=false and changes nothing.
	ReturnBalanceBackTx(ctx context.Context, lineID uuid.UUID, nowUTC time.Time) (credited bool, amount float64, err error)
	// FinalizeTx closes the order when every line is terminal. It enqueues the
	// failed event when every line failed, the finished event otherwise, and
	// does so exactly once.
	FinalizeTx(ctx context.Context, orderID uuid.UUID, finished, failed OutboxEvent, nowUTC time.Time) (domain.Order, bool, error)

	ListLinesInStatus(ctx context.Context, statuses []string, limit int) ([]domain.OrderLine, error)
}

// AddressRepository persists order addresses.
type AddressRepository interface {
	Create(ctx context.Context, address domain.Address) (domain.Address, error)
}

// WishlistRepository manages the per-user saved product set.
type WishlistRepository interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (domain.Wishlist, error)
	AddProducts(ctx context.Context, wishlistID uuid.UUID, productIDs []uuid.UUID) (domain.Wishlist, error)
	RemoveProducts(ctx context.Context, wishlistID uuid.UUID, productIDs []uuid.UUID) (domain.Wishlist, error)
}
