package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/evibes/commerce/internal/domain"
	"github.com/evibes/commerce/internal/ports"
)

type transactionRepository struct {
	db *gorm.DB
}

func (r *transactionRepository) Create(ctx context.Context, params ports.TransactionCreateParams) (domain.Transaction, error) {
	rec := transactionModel{
		BalanceID:     params.BalanceID,
		OrderID:       params.OrderID,
		Amount:        params.Amount,
		Currency:      params.Currency,
		PaymentMethod: params.PaymentMethod,
		Process:       mapToJSON(params.Process),
		CreatedAt:     params.CreatedAtUTC,
		UpdatedAt:     params.CreatedAtUTC,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.Transaction{}, err
	}
	return toDomainTransaction(rec), nil
}

func (r *transactionRepository) GetByID(ctx context.Context, transactionID uuid.UUID) (domain.Transaction, error) {
	var rec transactionModel
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Transaction{}, domain.ErrNotFound
		}
		return domain.Transaction{}, err
	}
	return toDomainTransaction(rec), nil
}

func (r *transactionRepository) ListByBalance(ctx context.Context, balanceID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	var rows []transactionModel
	if err := r.db.WithContext(ctx).
		Where("balance_id = ?", balanceID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainTransaction(row))
	}
	return result, nil
}

func (r *transactionRepository) UpdateProcess(ctx context.Context, transactionID uuid.UUID, process map[string]any) error {
	res := r.db.WithContext(ctx).Model(&transactionModel{}).
		Where("transaction_id = ?", transactionID).
		Updates(map[string]any{
			"process":    mapToJSON(process),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SettleCallbackTx applies a gateway verdict exactly once. The transaction
// row lock comes first, then the order or balance lock, which keeps the lock
// order consistent with the purchase paths.
func (r *transactionRepository) SettleCallbackTx(ctx context.Context, transactionID uuid.UUID, params ports.SettleParams) (ports.SettleResult, error) {
	var result ports.SettleResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec transactionModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("transaction_id = ?", transactionID).
			Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		process := jsonToMap(rec.Process)
		if _, settled := process[domain.ProcessKeySuccess]; settled {
			result.AlreadySettled = true
			return nil
		}

		process[domain.ProcessKeySuccess] = params.Succeeded
		if params.Succeeded {
			process[domain.ProcessKeyStatus] = domain.ProcessStatusSuccess
		} else {
			process[domain.ProcessKeyStatus] = domain.ProcessStatusFailed
		}
		if err := tx.Model(&transactionModel{}).
			Where("transaction_id = ?", transactionID).
			Updates(map[string]any{
				"process":    mapToJSON(process),
				"updated_at": params.NowUTC,
			}).Error; err != nil {
			return err
		}

		if rec.OrderID != nil {
			return r.settleOrder(tx, rec, params, &result)
		}
		if rec.BalanceID != nil && params.Succeeded {
			return r.settleDeposit(tx, rec, params, &result)
		}
		return nil
	})
	if err != nil {
		return ports.SettleResult{}, err
	}
	return result, nil
}

func (r *transactionRepository) settleOrder(tx *gorm.DB, rec transactionModel, params ports.SettleParams, result *ports.SettleResult) error {
	order, err := lockOrder(tx, *rec.OrderID)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderStatusPayment {
		// A stale callback for an order that already moved on is a no-op.
		return nil
	}

	if !params.Succeeded {
		return tx.Model(&orderModel{}).
			Where("order_id = ?", order.OrderID).
			Updates(map[string]any{
				"status":     domain.OrderStatusFailed,
				"updated_at": params.NowUTC,
			}).Error
	}

	if err := tx.Model(&orderModel{}).
		Where("order_id = ?", order.OrderID).
		Updates(map[string]any{
			"status":     domain.OrderStatusCreated,
			"buy_time":   params.NowUTC,
			"updated_at": params.NowUTC,
		}).Error; err != nil {
		return err
	}
	if err := tx.Model(&orderProductModel{}).
		Where("order_id = ?", order.OrderID).
		Where("status = ?", domain.LineStatusPending).
		Updates(map[string]any{
			"status":     domain.LineStatusDelivering,
			"updated_at": params.NowUTC,
		}).Error; err != nil {
		return err
	}
	if order.UserID != nil {
		if err := createReplacementPending(tx, *order.UserID, params.NextHumanID, params.NowUTC); err != nil {
			return err
		}
	}
	if err := enqueueOutbox(tx, params.OrderCreated); err != nil {
		return err
	}
	result.OrderID = rec.OrderID
	return nil
}

func (r *transactionRepository) settleDeposit(tx *gorm.DB, rec transactionModel, params ports.SettleParams, result *ports.SettleResult) error {
	var balance balanceModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("balance_id = ?", *rec.BalanceID).
		Take(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	if err := tx.Model(&balanceModel{}).
		Where("balance_id = ?", balance.BalanceID).
		Updates(map[string]any{
			"amount":     domain.Round2(balance.Amount + domain.Round2(params.Amount)),
			"updated_at": params.NowUTC,
		}).Error; err != nil {
		return err
	}
	result.BalanceCredited = true
	return nil
}
