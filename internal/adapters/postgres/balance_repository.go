package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evibes/commerce/internal/domain"
)

type balanceRepository struct {
	db *gorm.DB
}

func (r *balanceRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (domain.Balance, error) {
	var rec balanceModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Balance{}, domain.ErrNotFound
		}
		return domain.Balance{}, err
	}
	return toDomainBalance(rec), nil
}

func (r *balanceRepository) GetByID(ctx context.Context, balanceID uuid.UUID) (domain.Balance, error) {
	var rec balanceModel
	if err := r.db.WithContext(ctx).Where("balance_id = ?", balanceID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Balance{}, domain.ErrNotFound
		}
		return domain.Balance{}, err
	}
	return toDomainBalance(rec), nil
}
