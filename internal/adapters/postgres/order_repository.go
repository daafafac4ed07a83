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

type orderRepository struct {
	db *gorm.DB
}

func (r *orderRepository) GetByID(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	return r.loadOrder(ctx, r.db.WithContext(ctx), "order_id = ?", orderID)
}

func (r *orderRepository) GetByHumanID(ctx context.Context, humanReadableID string) (domain.Order, error) {
	return r.loadOrder(ctx, r.db.WithContext(ctx), "human_readable_id = ?", humanReadableID)
}

func (r *orderRepository) CurrentPending(ctx context.Context, userID uuid.UUID) (domain.Order, error) {
	var rec orderModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("status = ?", domain.OrderStatusPending).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Order{}, domain.ErrNotFound
		}
		return domain.Order{}, err
	}
	lines, err := r.loadLines(r.db.WithContext(ctx), rec.OrderID)
	if err != nil {
		return domain.Order{}, err
	}
	return toDomainOrder(rec, lines), nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	var rows []orderModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	orderIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		orderIDs = append(orderIDs, row.OrderID)
	}
	var lineRows []orderProductModel
	if err := r.db.WithContext(ctx).
		Where("order_id IN ?", orderIDs).
		Order("created_at ASC").
		Find(&lineRows).Error; err != nil {
		return nil, err
	}
	byOrder := map[uuid.UUID][]orderProductModel{}
	for _, line := range lineRows {
		byOrder[line.OrderID] = append(byOrder[line.OrderID], line)
	}

	result := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainOrder(row, byOrder[row.OrderID]))
	}
	return result, nil
}

// CreatePending relies on the partial unique index over (user_id) WHERE
// status = 'PENDING': a concurrent second basket collapses into ErrConflict.
func (r *orderRepository) CreatePending(ctx context.Context, userID uuid.UUID, humanReadableID string) (domain.Order, error) {
	now := time.Now().UTC()
	rec := orderModel{
		HumanReadableID: humanReadableID,
		UserID:          &userID,
		Status:          domain.OrderStatusPending,
		Attributes:      "{}",
		Notifications:   "{}",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.Order{}, domain.ErrConflict
		}
		return domain.Order{}, err
	}
	return toDomainOrder(rec, nil), nil
}

func (r *orderRepository) CreateMomental(ctx context.Context, humanReadableID string) (domain.Order, error) {
	now := time.Now().UTC()
	rec := orderModel{
		HumanReadableID: humanReadableID,
		Status:          domain.OrderStatusMomental,
		Attributes:      "{}",
		Notifications:   "{}",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.Order{}, domain.ErrConflict
		}
		return domain.Order{}, err
	}
	return toDomainOrder(rec, nil), nil
}

func (r *orderRepository) AddLineTx(ctx context.Context, params ports.AddLineParams) (domain.Order, error) {
	var result domain.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := lockOrder(tx, params.OrderID)
		if err != nil {
			return err
		}
		if rec.Status != domain.OrderStatusPending && rec.Status != domain.OrderStatusMomental {
			return domain.ErrOrderNotMutable
		}

		// The stock bound applies to the product across every variant line,
		// not per (product, attributes) line.
		if params.EnforceStock {
			var held int64
			if err := tx.Model(&orderProductModel{}).
				Where("order_id = ?", params.OrderID).
				Where("product_id = ?", params.ProductID).
				Where("status NOT IN ?", []string{domain.LineStatusFailed, domain.LineStatusCanceled, domain.LineStatusReturned}).
				Select("COALESCE(SUM(quantity), 0)").
				Scan(&held).Error; err != nil {
				return err
			}
			if int(held)+1 > params.StockLimit {
				return domain.ErrStockExceeded
			}
		}

		var line orderProductModel
		err = tx.Where("order_id = ?", params.OrderID).
			Where("product_id = ?", params.ProductID).
			Where("attributes_key = ?", params.AttributesKey).
			Take(&line).Error
		switch {
		case err == nil:
			if err := tx.Model(&orderProductModel{}).
				Where("order_product_id = ?", line.OrderProductID).
				Updates(map[string]any{
					"quantity":   gorm.Expr("quantity + 1"),
					"updated_at": params.NowUTC,
				}).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			line = orderProductModel{
				OrderID:       params.OrderID,
				ProductID:     params.ProductID,
				VendorID:      params.VendorID,
				Quantity:      1,
				BuyPrice:      params.UnitPrice,
				Status:        domain.LineStatusPending,
				AttributesKey: params.AttributesKey,
				Attributes:    stringMapToJSON(params.Attributes),
				Notifications: "{}",
				CreatedAt:     params.NowUTC,
				UpdatedAt:     params.NowUTC,
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
		default:
			return err
		}

		if err := touchOrder(tx, params.OrderID, params.NowUTC); err != nil {
			return err
		}
		result, err = r.loadOrder(ctx, tx, "order_id = ?", params.OrderID)
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

func (r *orderRepository) RemoveLineTx(ctx context.Context, orderID, productID uuid.UUID, attributesKey string, wholeLine bool) (domain.Order, error) {
	var result domain.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if rec.Status != domain.OrderStatusPending && rec.Status != domain.OrderStatusMomental {
			return domain.ErrOrderNotMutable
		}

		var line orderProductModel
		if err := tx.Where("order_id = ?", orderID).
			Where("product_id = ?", productID).
			Where("attributes_key = ?", attributesKey).
			Take(&line).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		now := time.Now().UTC()
		if wholeLine || line.Quantity <= 1 {
			if err := tx.Where("order_product_id = ?", line.OrderProductID).
				Delete(&orderProductModel{}).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Model(&orderProductModel{}).
				Where("order_product_id = ?", line.OrderProductID).
				Updates(map[string]any{
					"quantity":   gorm.Expr("quantity - 1"),
					"updated_at": now,
				}).Error; err != nil {
				return err
			}
		}

		if err := touchOrder(tx, orderID, now); err != nil {
			return err
		}
		result, err = r.loadOrder(ctx, tx, "order_id = ?", orderID)
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

func (r *orderRepository) RemoveAllLinesTx(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	var result domain.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if rec.Status != domain.OrderStatusPending && rec.Status != domain.OrderStatusMomental {
			return domain.ErrOrderNotMutable
		}
		if err := tx.Where("order_id = ?", orderID).Delete(&orderProductModel{}).Error; err != nil {
			return err
		}
		if err := touchOrder(tx, orderID, time.Now().UTC()); err != nil {
			return err
		}
		result, err = r.loadOrder(ctx, tx, "order_id = ?", orderID)
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

// CompletePurchaseTx is the balance purchase critical section: funds check
// and debit, promo freeze, order CREATED, lines DELIVERING, replacement
// PENDING basket and the purchase notification, all or nothing.
func (r *orderRepository) CompletePurchaseTx(ctx context.Context, orderID uuid.UUID, params ports.PurchaseParams) (domain.Order, error) {
	var result domain.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if rec.Status != domain.OrderStatusPending {
			return domain.ErrOrderNotMutable
		}
		if rec.UserID == nil {
			return domain.ErrInvalidInput
		}

		var balance balanceModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", *rec.UserID).
			Take(&balance).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if domain.Round2(balance.Amount) < params.AmountDue {
			return domain.ErrNotEnoughMoney
		}
		if err := tx.Model(&balanceModel{}).
			Where("balance_id = ?", balance.BalanceID).
			Updates(map[string]any{
				"amount":     domain.Round2(balance.Amount - params.AmountDue),
				"updated_at": params.NowUTC,
			}).Error; err != nil {
			return err
		}

		if err := freezePromoCode(tx, params.PromoCodeID, params.FreezePromoOn); err != nil {
			return err
		}

		attributes := jsonToMap(rec.Attributes)
		attributes[domain.AttrFinalPrice] = params.AmountDue
		if params.PromoCodeID != nil {
			attributes[domain.AttrPromoCode] = params.PromoCodeID.String()
		}
		if err := tx.Model(&orderModel{}).
			Where("order_id = ?", orderID).
			Updates(map[string]any{
				"status":        domain.OrderStatusCreated,
				"buy_time":      params.NowUTC,
				"promo_code_id": params.PromoCodeID,
				"attributes":    mapToJSON(attributes),
				"updated_at":    params.NowUTC,
			}).Error; err != nil {
			return err
		}

		if err := tx.Model(&orderProductModel{}).
			Where("order_id = ?", orderID).
			Where("status = ?", domain.LineStatusPending).
			Updates(map[string]any{
				"status":     domain.LineStatusDelivering,
				"updated_at": params.NowUTC,
			}).Error; err != nil {
			return err
		}

		if err := createReplacementPending(tx, *rec.UserID, params.NextHumanID, params.NowUTC); err != nil {
			return err
		}
		if err := enqueueOutbox(tx, params.OrderCreated); err != nil {
			return err
		}

		result, err = r.loadOrder(ctx, tx, "order_id = ?", orderID)
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

// BeginPaymentTx parks the order in PAYMENT with its checkout attributes
// stamped. The promo freeze happens here so the code cannot be reused while
// the gateway session is open.
func (r *orderRepository) BeginPaymentTx(ctx context.Context, orderID uuid.UUID, params ports.BeginPaymentParams) (domain.Order, error) {
	var result domain.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if rec.Status != domain.OrderStatusPending && rec.Status != domain.OrderStatusMomental {
			return domain.ErrOrderNotMutable
		}

		if err := freezePromoCode(tx, params.PromoCodeID, params.FreezePromoOn); err != nil {
			return err
		}

		attributes := jsonToMap(rec.Attributes)
		for k, v := range params.Attributes {
			attributes[k] = v
		}
		updates := map[string]any{
			"status":        domain.OrderStatusPayment,
			"promo_code_id": params.PromoCodeID,
			"attributes":    mapToJSON(attributes),
			"updated_at":    params.NowUTC,
		}
		if params.BillingAddress != nil {
			updates["billing_address_id"] = params.BillingAddress
		}
		if params.ShippingAddress != nil {
			updates["shipping_address_id"] = params.ShippingAddress
		}
		if err := tx.Model(&orderModel{}).Where("order_id = ?", orderID).Updates(updates).Error; err != nil {
			return err
		}

		result, err = r.loadOrder(ctx, tx, "order_id = ?", orderID)
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

func (r *orderRepository) UpdateLineFulfilmentTx(ctx context.Context, lineID uuid.UUID, update ports.LineFulfilmentUpdate) (domain.OrderLine, error) {
	var result domain.OrderLine
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		line, err := lockLine(tx, lineID)
		if err != nil {
			return err
		}
		// Terminal lines never regress; a repeated vendor answer is a no-op.
		if domain.LineTerminal(line.Status) && line.Status != domain.LineStatusDelivered {
			result = toDomainLine(line)
			return nil
		}

		updates := map[string]any{
			"status":     update.Status,
			"updated_at": update.NowUTC,
		}
		if update.AssetRef != "" {
			updates["asset_ref"] = update.AssetRef
		}
		if update.TrackingID != "" {
			updates["tracking_id"] = update.TrackingID
		}
		if update.ErrorNote != "" {
			notifications := jsonToNotifications(line.Notifications)
			notifications = notifications.Append("errors", update.ErrorNote)
			updates["notifications"] = notificationsToJSON(notifications)
		}
		if err := tx.Model(&orderProductModel{}).
			Where("order_product_id = ?", lineID).
			Updates(updates).Error; err != nil {
			return err
		}
		if err := touchOrder(tx, line.OrderID, update.NowUTC); err != nil {
			return err
		}

		var fresh orderProductModel
		if err := tx.Where("order_product_id = ?", lineID).Take(&fresh).Error; err != nil {
			return err
		}
		result = toDomainLine(fresh)
		return nil
	})
	if err != nil {
		return domain.OrderLine{}, err
	}
	return result, nil
}

// ReturnBalanceBackTx flips a line to RETURNED and credits its buy price to
// the order owner's balance. A line already RETURNED reports credited=false
// and changes nothing, so repeat calls are safe.
func (r *orderRepository) ReturnBalanceBackTx(ctx context.Context, lineID uuid.UUID, nowUTC time.Time) (bool, float64, error) {
	credited := false
	amount := 0.0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		line, err := lockLine(tx, lineID)
		if err != nil {
			return err
		}
		if line.Status == domain.LineStatusReturned {
			return nil
		}
		if line.Status == domain.LineStatusPending {
			return domain.ErrInvalidInput
		}

		var rec orderModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ?", line.OrderID).
			Take(&rec).Error; err != nil {
			return err
		}

		if err := tx.Model(&orderProductModel{}).
			Where("order_product_id = ?", lineID).
			Updates(map[string]any{
				"status":     domain.LineStatusReturned,
				"updated_at": nowUTC,
			}).Error; err != nil {
			return err
		}

		if rec.UserID == nil {
			// Momental orders have no balance to credit into.
			return nil
		}
		var balance balanceModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", *rec.UserID).
			Take(&balance).Error; err != nil {
			return err
		}
		amount = domain.Round2(line.BuyPrice)
		if err := tx.Model(&balanceModel{}).
			Where("balance_id = ?", balance.BalanceID).
			Updates(map[string]any{
				"amount":     domain.Round2(balance.Amount + amount),
				"updated_at": nowUTC,
			}).Error; err != nil {
			return err
		}
		credited = true
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return credited, amount, nil
}

func (r *orderRepository) FinalizeTx(ctx context.Context, orderID uuid.UUID, finished, failed ports.OutboxEvent, nowUTC time.Time) (domain.Order, bool, error) {
	var (
		result domain.Order
		closed bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		lines, err := r.loadLines(tx, orderID)
		if err != nil {
			return err
		}
		order := toDomainOrder(rec, lines)
		if order.Status == domain.OrderStatusFinished || order.Status == domain.OrderStatusFailed {
			result = order
			return nil
		}
		if !order.AllLinesTerminal() {
			result = order
			return nil
		}

		target := domain.OrderStatusFinished
		event := finished
		if order.AllLinesFailed() {
			target = domain.OrderStatusFailed
			event = failed
		}
		if err := tx.Model(&orderModel{}).
			Where("order_id = ?", orderID).
			Updates(map[string]any{
				"status":     target,
				"updated_at": nowUTC,
			}).Error; err != nil {
			return err
		}
		if err := enqueueOutbox(tx, event); err != nil {
			return err
		}

		closed = true
		result, err = r.loadOrder(ctx, tx, "order_id = ?", orderID)
		return err
	})
	if err != nil {
		return domain.Order{}, false, err
	}
	return result, closed, nil
}

func (r *orderRepository) ListLinesInStatus(ctx context.Context, statuses []string, limit int) ([]domain.OrderLine, error) {
	var rows []orderProductModel
	if err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.OrderLine, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainLine(row))
	}
	return result, nil
}

func (r *orderRepository) loadOrder(_ context.Context, tx *gorm.DB, query string, arg any) (domain.Order, error) {
	var rec orderModel
	if err := tx.Where(query, arg).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Order{}, domain.ErrNotFound
		}
		return domain.Order{}, err
	}
	lines, err := r.loadLines(tx, rec.OrderID)
	if err != nil {
		return domain.Order{}, err
	}
	return toDomainOrder(rec, lines), nil
}

func (r *orderRepository) loadLines(tx *gorm.DB, orderID uuid.UUID) ([]orderProductModel, error) {
	var rows []orderProductModel
	if err := tx.Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func lockOrder(tx *gorm.DB, orderID uuid.UUID) (orderModel, error) {
	var rec orderModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return orderModel{}, domain.ErrNotFound
		}
		return orderModel{}, err
	}
	return rec, nil
}

func lockLine(tx *gorm.DB, lineID uuid.UUID) (orderProductModel, error) {
	var rec orderProductModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_product_id = ?", lineID).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return orderProductModel{}, domain.ErrNotFound
		}
		return orderProductModel{}, err
	}
	return rec, nil
}

func touchOrder(tx *gorm.DB, orderID uuid.UUID, at time.Time) error {
	return tx.Model(&orderModel{}).
		Where("order_id = ?", orderID).
		Update("updated_at", at).Error
}

// freezePromoCode burns a code exactly once. A concurrent purchase that got
// there first leaves used_on set, which surfaces as ErrPromoCodeInvalid.
func freezePromoCode(tx *gorm.DB, promoCodeID *uuid.UUID, freezeOn *time.Time) error {
	if promoCodeID == nil || freezeOn == nil {
		return nil
	}
	res := tx.Model(&promoCodeModel{}).
		Where("promo_code_id = ?", promoCodeID).
		Where("used_on IS NULL").
		Update("used_on", *freezeOn)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrPromoCodeInvalid
	}
	return nil
}

func createReplacementPending(tx *gorm.DB, userID uuid.UUID, humanReadableID string, at time.Time) error {
	rec := orderModel{
		HumanReadableID: humanReadableID,
		UserID:          &userID,
		Status:          domain.OrderStatusPending,
		Attributes:      "{}",
		Notifications:   "{}",
		CreatedAt:       at,
		UpdatedAt:       at,
	}
	if err := tx.Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func enqueueOutbox(tx *gorm.DB, event ports.OutboxEvent) error {
	if event.EventID == uuid.Nil {
		return nil
	}
	payload := event.Payload
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	rec := outboxModel{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      string(payload),
		CreatedAt:    event.OccurredAt,
	}
	return tx.Create(&rec).Error
}
