package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transaction process statuses recorded in the process document.
const (
	ProcessStatusNoGateway = "NOGATEWAY"
	ProcessStatusPending   = "pending"
	ProcessStatusSuccess   = "successful"
	ProcessStatusFailed    = "failed"
)

// Process document keys.
const (
	ProcessKeyStatus      = "status"
	ProcessKeyRedirectURL = "redirect_url"
	ProcessKeySuccess     = "success"
)

// Balance is a user's spendable amount in the canonical currency.
// It never goes negative; all mutations happen through transactions or
// compensating credits that lock the balance row.
type Balance struct {
	BalanceID uuid.UUID
	UserID    uuid.UUID
	Amount    float64
	UpdatedAt time.Time
}

// Transaction records one payment attempt. Gateway state lives in Process;
// a NOGATEWAY status means the hosted session was never created and the
// transaction can be retried. BalanceID is nil for momental purchases,
// which have no account to settle into.
type Transaction struct {
	TransactionID uuid.UUID
	BalanceID     *uuid.UUID
	OrderID       *uuid.UUID
	Amount        float64
	Currency      string
	PaymentMethod string
	Process       map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Settled reports whether a success callback was already applied.
// Callback handling is idempotent per transaction id on this flag.
func (t *Transaction) Settled() bool {
	v, ok := t.Process[ProcessKeySuccess]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// RedirectURL is the hosted-checkout URL stored after gateway session creation.
func (t *Transaction) RedirectURL() string {
	v, ok := t.Process[ProcessKeyRedirectURL]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
