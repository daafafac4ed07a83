package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/evibes/commerce/internal/domain"
)

// Config is the snapshot of runtime settings the service reads per call.
// The bootstrap layer owns the live copy and may swap it on reload, so the
// service holds a getter instead of a struct value.
type Config struct {
	CanonicalCurrency  string
	OrderSurcharge     float64
	DisabledCommerce   bool
	GatewayName        string
	GatewayMinAmount   float64
	GatewayMaxAmount   float64
	PromoCodeMaxLen    int
	HumanReadableIDLen int
	ReturnURL          string
	CallbackBaseURL    string
	DefaultLocale      string
	PriceCacheTTL      time.Duration
	RatingCacheTTL     time.Duration
}

// Actor identifies the authenticated caller. Staff actors bypass ownership
// checks; a zero UserID with Staff false means the caller is anonymous.
type Actor struct {
	UserID uuid.UUID
	Staff  bool
}

func (a Actor) Anonymous() bool { return a.UserID == uuid.Nil && !a.Staff }

type RegisterUserRequest struct {
	Email    string `json:"email"`
	Language string `json:"language"`
}

type UserView struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	Language string    `json:"language"`
	Balance  float64   `json:"balance"`
}

type LineView struct {
	LineID        uuid.UUID            `json:"order_product_id"`
	ProductID     uuid.UUID            `json:"product_uuid"`
	Quantity      int                  `json:"quantity"`
	BuyPrice      float64              `json:"buy_price"`
	Status        string               `json:"status"`
	Attributes    map[string]string    `json:"attributes,omitempty"`
	AssetRef      string               `json:"asset_ref,omitempty"`
	TrackingID    string               `json:"tracking_id,omitempty"`
	Notifications domain.Notifications `json:"notifications,omitempty"`
}

type OrderView struct {
	OrderID         uuid.UUID            `json:"order_id"`
	HumanReadableID string               `json:"human_readable_id"`
	UserID          *uuid.UUID           `json:"user_id,omitempty"`
	Status          string               `json:"status"`
	TotalPrice      float64              `json:"total_price"`
	TotalQuantity   int                  `json:"total_quantity"`
	BuyTime         *time.Time           `json:"buy_time,omitempty"`
	Attributes      map[string]any       `json:"attributes,omitempty"`
	Notifications   domain.Notifications `json:"notifications,omitempty"`
	Lines           []LineView           `json:"order_products"`
	CreatedAt       time.Time            `json:"created_at"`
}

type TransactionView struct {
	TransactionID uuid.UUID      `json:"transaction_id"`
	OrderID       *uuid.UUID     `json:"order_id,omitempty"`
	Amount        float64        `json:"amount"`
	Currency      string         `json:"currency"`
	PaymentMethod string         `json:"payment_method,omitempty"`
	Process       map[string]any `json:"process"`
	CreatedAt     time.Time      `json:"created_at"`
}

type PromoCodeView struct {
	PromoCodeID     uuid.UUID  `json:"promocode_id"`
	Code            string     `json:"code"`
	DiscountPercent *int       `json:"discount_percent,omitempty"`
	DiscountAmount  *float64   `json:"discount_amount,omitempty"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	IsSpent         bool       `json:"is_spent"`
}

type ProductView struct {
	ProductID uuid.UUID `json:"product_uuid"`
	Name      string    `json:"name"`
	IsDigital bool      `json:"is_digital"`
	IsActive  bool      `json:"is_active"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	Rating    *float64  `json:"rating,omitempty"`
}

type BasketItemRequest struct {
	ProductID  uuid.UUID         `json:"product_uuid"`
	Attributes map[string]string `json:"attributes"`
}

type BuyRequest struct {
	ForceBalance  bool       `json:"force_balance"`
	ForcePayment  bool       `json:"force_payment"`
	PromoCodeUUID *uuid.UUID `json:"promocode_uuid,omitempty"`
}

// BuyOutcome is the tagged result of a purchase: exactly one branch is set.
// Completed means funds were captured from the balance and the order is
// CREATED; Pending means a gateway transaction was opened for the caller to
// redirect to.
type BuyOutcome struct {
	Completed *OrderView       `json:"order,omitempty"`
	Pending   *TransactionView `json:"process,omitempty"`
}

type AddressRequest struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type UnregisteredBuyRequest struct {
	Products      []BasketItemRequest `json:"products"`
	CustomerName  string              `json:"customer_name"`
	CustomerEmail string              `json:"customer_email"`
	CustomerPhone string              `json:"customer_phone"`
	Billing       AddressRequest      `json:"billing"`
	Shipping      *AddressRequest     `json:"shipping,omitempty"`
	PaymentMethod string              `json:"payment_method"`
	PromoCodeUUID *uuid.UUID          `json:"promocode_uuid,omitempty"`
}

type DepositRequest struct {
	Amount float64 `json:"amount"`
}

type CatalogResolveRequest struct {
	Category string `json:"category"`
	Brand    string `json:"brand,omitempty"`
}

type CatalogRefView struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	IsActive bool      `json:"is_active"`
}

type CatalogRefsView struct {
	Category CatalogRefView  `json:"category"`
	Brand    *CatalogRefView `json:"brand,omitempty"`
}

type WishlistView struct {
	WishlistID uuid.UUID   `json:"wishlist_id"`
	ProductIDs []uuid.UUID `json:"product_uuids"`
}

func toCategoryRef(category domain.Category) CatalogRefView {
	return CatalogRefView{ID: category.CategoryID, Name: category.Name, IsActive: category.IsActive}
}

func toBrandRef(brand domain.Brand) CatalogRefView {
	return CatalogRefView{ID: brand.BrandID, Name: brand.Name, IsActive: brand.IsActive}
}

func toLineView(line domain.OrderLine) LineView {
	return LineView{
		LineID:        line.LineID,
		ProductID:     line.ProductID,
		Quantity:      line.Quantity,
		BuyPrice:      line.BuyPrice,
		Status:        line.Status,
		Attributes:    line.Attributes,
		AssetRef:      line.AssetRef,
		TrackingID:    line.TrackingID,
		Notifications: line.Notifications,
	}
}

func toOrderView(order domain.Order) OrderView {
	lines := make([]LineView, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, toLineView(line))
	}
	return OrderView{
		OrderID:         order.OrderID,
		HumanReadableID: order.HumanReadableID,
		UserID:          order.UserID,
		Status:          order.Status,
		TotalPrice:      order.TotalPrice(),
		TotalQuantity:   order.TotalQuantity(),
		BuyTime:         order.BuyTime,
		Attributes:      order.Attributes,
		Notifications:   order.Notifications,
		Lines:           lines,
		CreatedAt:       order.CreatedAt,
	}
}

func toTransactionView(txn domain.Transaction) TransactionView {
	return TransactionView{
		TransactionID: txn.TransactionID,
		OrderID:       txn.OrderID,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		PaymentMethod: txn.PaymentMethod,
		Process:       txn.Process,
		CreatedAt:     txn.CreatedAt,
	}
}

func toPromoCodeView(code domain.PromoCode) PromoCodeView {
	view := PromoCodeView{
		PromoCodeID:     code.PromoCodeID,
		Code:            code.Code,
		DiscountPercent: code.DiscountPercent,
		StartTime:       code.StartTime,
		EndTime:         code.EndTime,
		IsSpent:         code.IsSpent(),
	}
	if code.DiscountAmount != nil {
		amount := domain.Round2(code.DiscountAmount.InexactFloat64())
		view.DiscountAmount = &amount
	}
	return view
}
