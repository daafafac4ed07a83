package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/evibes/commerce/internal/domain"
	"github.com/evibes/commerce/internal/ports"
)

// Client talks to a hosted-checkout payment provider. Session creation is a
// single POST; the provider answers with a redirect URL the customer is sent
// to, then reports the outcome through a server-to-server callback.
type Client struct {
	http    *resty.Client
	baseURL string
}

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.Token).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &Client{http: http, baseURL: cfg.BaseURL}
}

type sessionRequest struct {
	OrderID     string  `json:"order_id"`
	Email       string  `json:"email"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	ReturnURL   string  `json:"return_url"`
	CallbackURL string  `json:"callback_url"`
	Locale      string  `json:"locale"`
}

type sessionResponse struct {
	PaymentSession struct {
		ID          string `json:"id"`
		RedirectURL string `json:"redirect_url"`
	} `json:"payment_session"`
}

func (c *Client) CreateSession(ctx context.Context, req ports.CreateSessionRequest) (string, error) {
	var out sessionResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(sessionRequest{
			OrderID:     req.TransactionID.String(),
			Email:       req.Email,
			Amount:      req.Amount,
			Currency:    req.Currency,
			ReturnURL:   req.ReturnURL,
			CallbackURL: req.CallbackURL,
			Locale:      req.Locale,
		}).
		SetResult(&out).
		Post("/api/payment_sessions")
	if err != nil {
		return "", fmt.Errorf("%w: create payment session: %v", domain.ErrUpstream, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: create payment session: status %d", domain.ErrUpstream, resp.StatusCode())
	}
	if out.PaymentSession.RedirectURL == "" {
		return "", fmt.Errorf("%w: create payment session: empty redirect url", domain.ErrUpstream)
	}
	return out.PaymentSession.RedirectURL, nil
}

// Callback statuses the provider reports for a completed payment.
const (
	callbackStatusComplete   = "purchase_complete"
	callbackStatusSuccessful = "successful"
)

type callbackPayload struct {
	PaymentSession struct {
		OrderID string `json:"order_id"`
	} `json:"payment_session"`
	Transaction struct {
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
		Status   string  `json:"status"`
	} `json:"transaction"`
}

// CallbackDecoder parses the provider's callback document into the neutral
// event the payment service settles on.
type CallbackDecoder struct{}

func NewCallbackDecoder() CallbackDecoder { return CallbackDecoder{} }

func (CallbackDecoder) DecodeCallback(payload []byte) (ports.CallbackEvent, error) {
	var doc callbackPayload
	if err := json.Unmarshal(payload, &doc); err != nil {
		return ports.CallbackEvent{}, fmt.Errorf("decode callback: %w", err)
	}
	transactionID, err := uuid.Parse(doc.PaymentSession.OrderID)
	if err != nil {
		return ports.CallbackEvent{}, fmt.Errorf("decode callback order_id: %w", err)
	}
	status := strings.ToLower(doc.Transaction.Status)
	return ports.CallbackEvent{
		TransactionID: transactionID,
		Amount:        doc.Transaction.Amount,
		Currency:      strings.ToUpper(doc.Transaction.Currency),
		Succeeded:     status == callbackStatusComplete || status == callbackStatusSuccessful,
	}, nil
}
