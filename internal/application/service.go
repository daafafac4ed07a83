package application

import (
	"time"

	"github.com/evibes/commerce/internal/ports"
)

// Service implements the order lifecycle: basket mutation, pricing,
// promotions, purchase dispatch, payment settlement, vendor fulfilment and
// balance accounting. All money amounts are in the canonical currency.
type Service struct {
	cfgFn        func() Config
	users        ports.UserRepository
	catalog      ports.CatalogRepository
	promotions   ports.PromotionRepository
	promoCodes   ports.PromoCodeRepository
	balances     ports.BalanceRepository
	transactions ports.TransactionRepository
	orders       ports.OrderRepository
	addresses    ports.AddressRepository
	wishlists    ports.WishlistRepository
	aggregates   ports.AggregateStore
	gateway      ports.PaymentGateway
	callbacks    map[string]ports.CallbackDecoder
	rates        ports.RatesProvider
	vendors      ports.VendorRegistry
	resolver     ports.CatalogResolver
	nowFn        func() time.Time
}

type Dependencies struct {
	ConfigFn     func() Config
	Users        ports.UserRepository
	Catalog      ports.CatalogRepository
	Promotions   ports.PromotionRepository
	PromoCodes   ports.PromoCodeRepository
	Balances     ports.BalanceRepository
	Transactions ports.TransactionRepository
	Orders       ports.OrderRepository
	Addresses    ports.AddressRepository
	Wishlists    ports.WishlistRepository
	Aggregates   ports.AggregateStore
	Gateway      ports.PaymentGateway
	Callbacks    map[string]ports.CallbackDecoder
	Rates        ports.RatesProvider
	Vendors      ports.VendorRegistry
	Resolver     ports.CatalogResolver
}

func NewService(deps Dependencies) *Service {
	return &Service{
		cfgFn:        deps.ConfigFn,
		users:        deps.Users,
		catalog:      deps.Catalog,
		promotions:   deps.Promotions,
		promoCodes:   deps.PromoCodes,
		balances:     deps.Balances,
		transactions: deps.Transactions,
		orders:       deps.Orders,
		addresses:    deps.Addresses,
		wishlists:    deps.Wishlists,
		aggregates:   deps.Aggregates,
		gateway:      deps.Gateway,
		callbacks:    deps.Callbacks,
		rates:        deps.Rates,
		vendors:      deps.Vendors,
		resolver:     deps.Resolver,
		nowFn:        func() time.Time { return time.Now().UTC() },
	}
}
