package vendors

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/evibes/commerce/internal/domain"
	"github.com/evibes/commerce/internal/ports"
)

// Teemill fulfils digital stock through a print-on-demand style API. A buy
// call either returns the asset directly or an upstream order id, which the
// status poll later resolves into an asset.
type Teemill struct {
	http *resty.Client
}

type TeemillConfig struct {
	BaseURL string
	Timeout time.Duration
}

func NewTeemill(cfg TeemillConfig) *Teemill {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Teemill{
		http: resty.New().SetBaseURL(cfg.BaseURL).SetTimeout(timeout),
	}
}

func (t *Teemill) Name() string { return "teemill" }

type teemillOrderRequest struct {
	SKU       string `json:"sku"`
	Reference string `json:"reference"`
}

type teemillOrderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Asset   string `json:"asset_url"`
}

func (t *Teemill) BuyOrderProduct(ctx context.Context, line ports.FulfilmentLine) (ports.FulfilmentResult, error) {
	// The vendor record carries the API key; a stock-level digital asset
	// short-circuits the remote call entirely.
	if line.Stock.DigitalAsset != "" {
		return ports.FulfilmentResult{AssetRef: line.Stock.DigitalAsset}, nil
	}

	var out teemillOrderResponse
	resp, err := t.http.R().
		SetContext(ctx).
		SetAuthToken(apiKey(line.Vendor)).
		SetBody(teemillOrderRequest{
			SKU:       line.Stock.SKU,
			Reference: line.Line.LineID.String(),
		}).
		SetResult(&out).
		Post("/omnis/v3/order/create")
	if err != nil {
		return ports.FulfilmentResult{}, fmt.Errorf("%w: teemill order: %v", domain.ErrUpstream, err)
	}
	if resp.IsError() {
		return ports.FulfilmentResult{}, fmt.Errorf("%w: teemill order: status %d", domain.ErrUpstream, resp.StatusCode())
	}
	if out.Asset != "" {
		return ports.FulfilmentResult{AssetRef: out.Asset}, nil
	}
	if out.OrderID == "" {
		return ports.FulfilmentResult{}, fmt.Errorf("%w: teemill order: empty order id", domain.ErrUpstream)
	}
	return ports.FulfilmentResult{TrackingID: out.OrderID}, nil
}

type teemillStatusResponse struct {
	Status string `json:"status"`
	Asset  string `json:"asset_url"`
}

func (t *Teemill) UpdateOrderProductStatuses(ctx context.Context, lines []ports.FulfilmentLine) ([]ports.StatusUpdate, error) {
	updates := make([]ports.StatusUpdate, 0, len(lines))
	for _, line := range lines {
		if line.Line.TrackingID == "" {
			continue
		}

		var out teemillStatusResponse
		resp, err := t.http.R().
			SetContext(ctx).
			SetAuthToken(apiKey(line.Vendor)).
			SetResult(&out).
			Get("/omnis/v3/order/" + line.Line.TrackingID)
		if err != nil {
			return updates, fmt.Errorf("%w: teemill status: %v", domain.ErrUpstream, err)
		}
		if resp.IsError() {
			return updates, fmt.Errorf("%w: teemill status: status %d", domain.ErrUpstream, resp.StatusCode())
		}

		switch out.Status {
		case "fulfilled", "dispatched":
			update := ports.StatusUpdate{
				LineID: line.Line.LineID.String(),
				Status: domain.LineStatusDelivered,
			}
			if out.Asset != "" {
				update.AssetRef = out.Asset
			}
			updates = append(updates, update)
		case "cancelled", "rejected":
			updates = append(updates, ports.StatusUpdate{
				LineID: line.Line.LineID.String(),
				Status: domain.LineStatusFailed,
			})
		}
	}
	return updates, nil
}

func apiKey(vendor domain.Vendor) string {
	if raw, ok := vendor.Authentication["api_key"]; ok {
		if key, ok := raw.(string); ok {
			return key
		}
	}
	return ""
}
