package postgres

import (
	"github.com/evibes/commerce/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Users        ports.UserRepository
	Catalog      ports.CatalogRepository
	Promotions   ports.PromotionRepository
	PromoCodes   ports.PromoCodeRepository
	Balances     ports.BalanceRepository
	Transactions ports.TransactionRepository
	Orders       ports.OrderRepository
	Addresses    ports.AddressRepository
	Wishlists    ports.WishlistRepository
	Outbox       ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:        &userRepository{db: db},
		Catalog:      &catalogRepository{db: db},
		Promotions:   &promotionRepository{db: db},
		PromoCodes:   &promoCodeRepository{db: db},
		Balances:     &balanceRepository{db: db},
		Transactions: &transactionRepository{db: db},
		Orders:       &orderRepository{db: db},
		Addresses:    &addressRepository{db: db},
		Wishlists:    &wishlistRepository{db: db},
		Outbox:       &outboxRepository{db: db},
	}
}
