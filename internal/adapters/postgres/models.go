package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type userModel struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string    `gorm:"column:email"`
	Language  string    `gorm:"column:language"`
	IsStaff   bool      `gorm:"column:is_staff"`
	IsActive  bool      `gorm:"column:is_active"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (userModel) TableName() string { return "users" }

type addressModel struct {
	AddressID  uuid.UUID  `gorm:"column:address_id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     *uuid.UUID `gorm:"column:user_id"`
	Street     string     `gorm:"column:street"`
	City       string     `gorm:"column:city"`
	Region     string     `gorm:"column:region"`
	PostalCode string     `gorm:"column:postal_code"`
	Country    string     `gorm:"column:country"`
}

func (addressModel) TableName() string { return "addresses" }

type brandModel struct {
	BrandID  uuid.UUID `gorm:"column:brand_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name     string    `gorm:"column:name"`
	IsActive bool      `gorm:"column:is_active"`
}

func (brandModel) TableName() string { return "brands" }

type categoryModel struct {
	CategoryID    uuid.UUID  `gorm:"column:category_id;type:uuid;default:gen_random_uuid();primaryKey"`
	ParentID      *uuid.UUID `gorm:"column:parent_id"`
	Name          string     `gorm:"column:name"`
	MarkupPercent int        `gorm:"column:markup_percent"`
	IsActive      bool       `gorm:"column:is_active"`
}

func (categoryModel) TableName() string { return "categories" }

type vendorModel struct {
	VendorID       uuid.UUID `gorm:"column:vendor_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string    `gorm:"column:name"`
	MarkupPercent  int       `gorm:"column:markup_percent"`
	IsActive       bool      `gorm:"column:is_active"`
	Authentication string    `gorm:"column:authentication;type:jsonb"`
}

func (vendorModel) TableName() string { return "vendors" }

type productModel struct {
	ProductID  uuid.UUID  `gorm:"column:product_id;type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID uuid.UUID  `gorm:"column:category_id"`
	BrandID    *uuid.UUID `gorm:"column:brand_id"`
	Name       string     `gorm:"column:name"`
	IsDigital  bool       `gorm:"column:is_digital"`
	IsActive   bool       `gorm:"column:is_active"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at"`
}

func (productModel) TableName() string { return "products" }

type stockModel struct {
	StockID       uuid.UUID `gorm:"column:stock_id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID     uuid.UUID `gorm:"column:product_id"`
	VendorID      uuid.UUID `gorm:"column:vendor_id"`
	SKU           string    `gorm:"column:sku"`
	Price         float64   `gorm:"column:price"`
	PurchasePrice float64   `gorm:"column:purchase_price"`
	Quantity      int       `gorm:"column:quantity"`
	DigitalAsset  string    `gorm:"column:digital_asset"`
	ModifiedAt    time.Time `gorm:"column:modified_at"`
}

func (stockModel) TableName() string { return "stocks" }

type promotionModel struct {
	PromotionID     uuid.UUID `gorm:"column:promotion_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string    `gorm:"column:name"`
	DiscountPercent int       `gorm:"column:discount_percent"`
	IsActive        bool      `gorm:"column:is_active"`
}

func (promotionModel) TableName() string { return "promotions" }

type promotionProductModel struct {
	PromotionID uuid.UUID `gorm:"column:promotion_id;primaryKey"`
	ProductID   uuid.UUID `gorm:"column:product_id;primaryKey"`
}

func (promotionProductModel) TableName() string { return "promotion_products" }

type promoCodeModel struct {
	PromoCodeID     uuid.UUID        `gorm:"column:promo_code_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code            string           `gorm:"column:code"`
	DiscountPercent *int             `gorm:"column:discount_percent"`
	DiscountAmount  *decimal.Decimal `gorm:"column:discount_amount;type:numeric(12,2)"`
	StartTime       *time.Time       `gorm:"column:start_time"`
	EndTime         *time.Time       `gorm:"column:end_time"`
	UsedOn          *time.Time       `gorm:"column:used_on"`
	UserID          *uuid.UUID       `gorm:"column:user_id"`
}

func (promoCodeModel) TableName() string { return "promo_codes" }

type orderModel struct {
	OrderID         uuid.UUID  `gorm:"column:order_id;type:uuid;default:gen_random_uuid();primaryKey"`
	HumanReadableID string     `gorm:"column:human_readable_id"`
	UserID          *uuid.UUID `gorm:"column:user_id"`
	Status          string     `gorm:"column:status"`
	PromoCodeID     *uuid.UUID `gorm:"column:promo_code_id"`
	BillingAddress  *uuid.UUID `gorm:"column:billing_address_id"`
	ShippingAddress *uuid.UUID `gorm:"column:shipping_address_id"`
	BuyTime         *time.Time `gorm:"column:buy_time"`
	Attributes      string     `gorm:"column:attributes;type:jsonb"`
	Notifications   string     `gorm:"column:notifications;type:jsonb"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (orderModel) TableName() string { return "orders" }

type orderProductModel struct {
	OrderProductID uuid.UUID  `gorm:"column:order_product_id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID  `gorm:"column:order_id"`
	ProductID      uuid.UUID  `gorm:"column:product_id"`
	VendorID       *uuid.UUID `gorm:"column:vendor_id"`
	Quantity       int        `gorm:"column:quantity"`
	BuyPrice       float64    `gorm:"column:buy_price"`
	Status         string     `gorm:"column:status"`
	AttributesKey  string     `gorm:"column:attributes_key"`
	Attributes     string     `gorm:"column:attributes;type:jsonb"`
	AssetRef       string     `gorm:"column:asset_ref"`
	TrackingID     string     `gorm:"column:tracking_id"`
	Notifications  string     `gorm:"column:notifications;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
}

func (orderProductModel) TableName() string { return "order_products" }

type balanceModel struct {
	BalanceID uuid.UUID `gorm:"column:balance_id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id"`
	Amount    float64   `gorm:"column:amount"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (balanceModel) TableName() string { return "balances" }

type transactionModel struct {
	TransactionID uuid.UUID  `gorm:"column:transaction_id;type:uuid;default:gen_random_uuid();primaryKey"`
	BalanceID     *uuid.UUID `gorm:"column:balance_id"`
	OrderID       *uuid.UUID `gorm:"column:order_id"`
	Amount        float64    `gorm:"column:amount"`
	Currency      string     `gorm:"column:currency"`
	PaymentMethod string     `gorm:"column:payment_method"`
	Process       string     `gorm:"column:process;type:jsonb"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

func (transactionModel) TableName() string { return "transactions" }

type wishlistModel struct {
	WishlistID uuid.UUID `gorm:"column:wishlist_id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID `gorm:"column:user_id"`
}

func (wishlistModel) TableName() string { return "wishlists" }

type wishlistProductModel struct {
	WishlistID uuid.UUID `gorm:"column:wishlist_id;primaryKey"`
	ProductID  uuid.UUID `gorm:"column:product_id;primaryKey"`
}

func (wishlistProductModel) TableName() string { return "wishlist_products" }

type outboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (outboxModel) TableName() string { return "commerce_outbox" }
