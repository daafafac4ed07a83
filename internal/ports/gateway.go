package ports

import (
	"context"

	"github.com/google/uuid"
)

// CreateSessionRequest is the outbound payload for a hosted-checkout session.
type CreateSessionRequest struct {
	TransactionID uuid.UUID
	Email         string
	Amount        float64
	Currency      string
	ReturnURL     string
	CallbackURL   string
	Locale        string
}

// PaymentGateway creates hosted payment sessions for transactions.
// Failures map to domain.ErrUpstream; the caller records NOGATEWAY and keeps
// the transaction retryable.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (redirectURL string, err error)
}

// CallbackEvent is the provider-neutral result of decoding a signed callback.
type CallbackEvent struct {
	TransactionID uuid.UUID
	Amount        float64
	Currency      string
	Succeeded     bool
}

// CallbackDecoder parses one provider's callback payload. The application
// keeps a registry of decoders keyed by gateway name.
type CallbackDecoder interface {
	DecodeCallback(payload []byte) (CallbackEvent, error)
}

// RatesProvider returns the conversion rate for a currency against the
// canonical currency, or domain.ErrRatesMissing when the table has no entry.
type RatesProvider interface {
	Rate(ctx context.Context, currency string) (float64, error)
}
