package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/evibes/commerce/internal/domain"
	"github.com/evibes/commerce/internal/ports"
)

// Deposit opens a gateway transaction that tops up the caller's balance once
// the success callback lands.
func (s *Service) Deposit(ctx context.Context, actor Actor, req DepositRequest) (TransactionView, error) {
	if actor.Anonymous() {
		return TransactionView{}, domain.ErrForbidden
	}
	cfg := s.cfgFn()
	amount := domain.Round2(req.Amount)
	if amount <= 0 {
		return TransactionView{}, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}
	if amount < cfg.GatewayMinAmount || (cfg.GatewayMaxAmount > 0 && amount > cfg.GatewayMaxAmount) {
		return TransactionView{}, fmt.Errorf("%w: amount %.2f is outside gateway limits", domain.ErrInvalidInput, amount)
	}

	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return TransactionView{}, err
	}
	balance, err := s.balances.GetByUserID(ctx, actor.UserID)
	if err != nil {
		return TransactionView{}, err
	}

	txn, err := s.transactions.Create(ctx, ports.TransactionCreateParams{
		BalanceID:    &balance.BalanceID,
		Amount:       amount,
		Currency:     cfg.CanonicalCurrency,
		Process:      map[string]any{domain.ProcessKeyStatus: domain.ProcessStatusPending},
		CreatedAtUTC: s.nowFn(),
	})
	if err != nil {
		return TransactionView{}, err
	}
	txn, err = s.openGatewaySession(ctx, txn, user.Email)
	if err != nil {
		return TransactionView{}, err
	}
	return toTransactionView(txn), nil
}

// Transactions lists the caller's payment attempts, newest first.
func (s *Service) Transactions(ctx context.Context, actor Actor, limit, offset int) ([]TransactionView, error) {
	if actor.Anonymous() {
		return nil, domain.ErrForbidden
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	balance, err := s.balances.GetByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	txns, err := s.transactions.ListByBalance(ctx, balance.BalanceID, limit, offset)
	if err != nil {
		return nil, err
	}
	views := make([]TransactionView, 0, len(txns))
	for _, txn := range txns {
		views = append(views, toTransactionView(txn))
	}
	return views, nil
}

// PromoCode looks a code up by its string form, truncated to the configured
// maximum length, and reports whether it is still usable.
func (s *Service) PromoCode(ctx context.Context, code string) (PromoCodeView, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return PromoCodeView{}, fmt.Errorf("%w: code is required", domain.ErrInvalidInput)
	}
	if maxLen := s.cfgFn().PromoCodeMaxLen; maxLen > 0 {
		if runes := []rune(code); len(runes) > maxLen {
			code = string(runes[:maxLen])
		}
	}
	found, err := s.promoCodes.GetByCode(ctx, code)
	if err != nil {
		return PromoCodeView{}, err
	}
	return toPromoCodeView(found), nil
}

// HandleCallback settles a gateway callback. Dispatch is by gateway name;
// the settle transaction is idempotent per transaction id, so a repeated
// success POST changes nothing. A deposit credits the balance; an order
// transaction advances PAYMENT to CREATED with the same side effects as the
// balance purchase, or to FAILED.
func (s *Service) HandleCallback(ctx context.Context, gatewayName string, transactionID uuid.UUID, payload []byte) error {
	decoder, ok := s.callbacks[strings.ToLower(strings.TrimSpace(gatewayName))]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownGateway, gatewayName)
	}
	event, err := decoder.DecodeCallback(payload)
	if err != nil {
		return fmt.Errorf("%w: decode callback: %v", domain.ErrInvalidInput, err)
	}
	if event.TransactionID != transactionID {
		return fmt.Errorf("%w: callback transaction mismatch", domain.ErrInvalidInput)
	}

	// A failure callback settles regardless of its currency; only captured
	// funds need converting into the canonical currency.
	var amount float64
	if event.Succeeded {
		amount, err = s.toCanonical(ctx, event.Amount, event.Currency)
		if err != nil {
			return err
		}
	}

	txn, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return err
	}

	now := s.nowFn()
	var created ports.OutboxEvent
	if txn.OrderID != nil {
		created = s.orderCreatedEvent(*txn.OrderID, "", amount, now)
	}
	for attempt := 0; attempt < humanIDAttempts; attempt++ {
		_, err = s.transactions.SettleCallbackTx(ctx, transactionID, ports.SettleParams{
			Succeeded:    event.Succeeded,
			Amount:       amount,
			NextHumanID:  s.newHumanID(),
			NowUTC:       now,
			OrderCreated: created,
		})
		if errors.Is(err, domain.ErrConflict) {
			continue
		}
		break
	}
	return err
}

// toCanonical converts a callback amount into the canonical currency using
// the configured rates provider.
func (s *Service) toCanonical(ctx context.Context, amount float64, currency string) (float64, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	canonical := strings.ToUpper(s.cfgFn().CanonicalCurrency)
	if currency == "" || currency == canonical {
		return domain.Round2(amount), nil
	}
	rate, err := s.rates.Rate(ctx, currency)
	if err != nil {
		return 0, err
	}
	return domain.Round2(amount / rate), nil
}
