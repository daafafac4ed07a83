package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evibes/commerce/internal/domain"
	"github.com/evibes/commerce/internal/ports"
)

type userRepository struct {
	db *gorm.DB
}

// CreateWithSetupTx creates the user together with everything a fresh
// account needs: an empty balance, a wishlist, the first PENDING order and
// the welcome notification. One transaction, no implicit hooks.
func (r *userRepository) CreateWithSetupTx(ctx context.Context, params ports.CreateUserTxParams, welcome ports.OutboxEvent) (domain.User, error) {
	var result domain.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := userModel{
			Email:     params.Email,
			Language:  params.Language,
			IsActive:  true,
			CreatedAt: params.RegisteredAtUTC,
		}
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}

		balance := balanceModel{
			UserID:    rec.UserID,
			Amount:    0,
			UpdatedAt: params.RegisteredAtUTC,
		}
		if err := tx.Create(&balance).Error; err != nil {
			return err
		}

		wishlist := wishlistModel{UserID: rec.UserID}
		if err := tx.Create(&wishlist).Error; err != nil {
			return err
		}

		order := orderModel{
			HumanReadableID: params.HumanReadableID,
			UserID:          &rec.UserID,
			Status:          domain.OrderStatusPending,
			Attributes:      "{}",
			Notifications:   "{}",
			CreatedAt:       params.RegisteredAtUTC,
			UpdatedAt:       params.RegisteredAtUTC,
		}
		if err := tx.Create(&order).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}

		payload := welcome.Payload
		if len(payload) == 0 {
			payload = []byte(`{}`)
		}
		var payloadObj map[string]any
		if err := json.Unmarshal(payload, &payloadObj); err == nil {
			payloadObj["user_id"] = rec.UserID.String()
			if adjusted, mErr := json.Marshal(payloadObj); mErr == nil {
				payload = adjusted
			}
		}
		outbox := outboxModel{
			OutboxID:     welcome.EventID,
			EventType:    welcome.EventType,
			PartitionKey: rec.UserID.String(),
			Payload:      string(payload),
			CreatedAt:    welcome.OccurredAt,
		}
		if err := tx.Create(&outbox).Error; err != nil {
			return err
		}

		result = toDomainUser(rec)
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return result, nil
}

func (r *userRepository) GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

type addressRepository struct {
	db *gorm.DB
}

func (r *addressRepository) Create(ctx context.Context, address domain.Address) (domain.Address, error) {
	rec := addressModel{
		UserID:     address.UserID,
		Street:     address.Street,
		City:       address.City,
		Region:     address.Region,
		PostalCode: address.PostalCode,
		Country:    address.Country,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.Address{}, err
	}
	return toDomainAddress(rec), nil
}

type wishlistRepository struct {
	db *gorm.DB
}

func (r *wishlistRepository) GetByUser(ctx context.Context, userID uuid.UUID) (domain.Wishlist, error) {
	var rec wishlistModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Wishlist{}, domain.ErrNotFound
		}
		return domain.Wishlist{}, err
	}
	return r.load(ctx, rec)
}

func (r *wishlistRepository) AddProducts(ctx context.Context, wishlistID uuid.UUID, productIDs []uuid.UUID) (domain.Wishlist, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, productID := range productIDs {
			rec := wishlistProductModel{WishlistID: wishlistID, ProductID: productID}
			if err := tx.Create(&rec).Error; err != nil && !isUniqueViolation(err) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Wishlist{}, err
	}
	return r.getByID(ctx, wishlistID)
}

func (r *wishlistRepository) RemoveProducts(ctx context.Context, wishlistID uuid.UUID, productIDs []uuid.UUID) (domain.Wishlist, error) {
	if err := r.db.WithContext(ctx).
		Where("wishlist_id = ?", wishlistID).
		Where("product_id IN ?", productIDs).
		Delete(&wishlistProductModel{}).Error; err != nil {
		return domain.Wishlist{}, err
	}
	return r.getByID(ctx, wishlistID)
}

func (r *wishlistRepository) getByID(ctx context.Context, wishlistID uuid.UUID) (domain.Wishlist, error) {
	var rec wishlistModel
	if err := r.db.WithContext(ctx).Where("wishlist_id = ?", wishlistID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Wishlist{}, domain.ErrNotFound
		}
		return domain.Wishlist{}, err
	}
	return r.load(ctx, rec)
}

func (r *wishlistRepository) load(ctx context.Context, rec wishlistModel) (domain.Wishlist, error) {
	var productIDs []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&wishlistProductModel{}).
		Where("wishlist_id = ?", rec.WishlistID).
		Pluck("product_id", &productIDs).Error; err != nil {
		return domain.Wishlist{}, err
	}
	return domain.Wishlist{
		WishlistID: rec.WishlistID,
		UserID:     rec.UserID,
		ProductIDs: productIDs,
	}, nil
}
