package vendors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/evibes/commerce/internal/domain"
	"github.com/evibes/commerce/internal/ports"
)

func teemillLine(tracking string) ports.FulfilmentLine {
	return ports.FulfilmentLine{
		Line: domain.OrderLine{
			LineID:     uuid.New(),
			TrackingID: tracking,
		},
		Stock:  domain.Stock{SKU: "TEE-1"},
		Vendor: domain.Vendor{Name: "teemill", Authentication: map[string]any{"api_key": "key-123"}},
	}
}

func TestTeemillBuyDigitalAssetShortCircuit(t *testing.T) {
	t.Parallel()

	adapter := NewTeemill(TeemillConfig{BaseURL: "http://unreachable.invalid"})
	line := teemillLine("")
	line.Stock.DigitalAsset = "https://files.test/asset.pdf"

	result, err := adapter.BuyOrderProduct(context.Background(), line)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if result.AssetRef != "https://files.test/asset.pdf" {
		t.Fatalf("stock asset must skip the remote call, got %+v", result)
	}
}

func TestTeemillBuyReturnsTracking(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/omnis/v3/order/create" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-123" {
			t.Errorf("authorization = %q", got)
		}
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["sku"] != "TEE-1" || req["reference"] == "" {
			t.Errorf("request body = %v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"order_id": "TM-42", "status": "accepted"}`))
	}))
	defer server.Close()

	adapter := NewTeemill(TeemillConfig{BaseURL: server.URL})
	result, err := adapter.BuyOrderProduct(context.Background(), teemillLine(""))
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if result.TrackingID != "TM-42" || result.AssetRef != "" {
		t.Fatalf("result = %+v, want tracking TM-42", result)
	}
}

func TestTeemillBuyUpstreamError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	adapter := NewTeemill(TeemillConfig{BaseURL: server.URL})
	if _, err := adapter.BuyOrderProduct(context.Background(), teemillLine("")); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("got %v, want ErrUpstream", err)
	}
}

func TestTeemillStatusPoll(t *testing.T) {
	t.Parallel()

	statuses := map[string]string{
		"TM-1": `{"status": "fulfilled", "asset_url": "https://files.test/1.zip"}`,
		"TM-2": `{"status": "printing"}`,
		"TM-3": `{"status": "cancelled"}`,
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := statuses[r.URL.Path[len("/omnis/v3/order/"):]]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	adapter := NewTeemill(TeemillConfig{BaseURL: server.URL})
	lines := []ports.FulfilmentLine{
		teemillLine("TM-1"),
		teemillLine("TM-2"),
		teemillLine("TM-3"),
		teemillLine(""),
	}

	updates, err := adapter.UpdateOrderProductStatuses(context.Background(), lines)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected updates for the fulfilled and cancelled lines, got %d", len(updates))
	}
	if updates[0].Status != domain.LineStatusDelivered || updates[0].AssetRef == "" {
		t.Fatalf("fulfilled update = %+v", updates[0])
	}
	if updates[1].Status != domain.LineStatusFailed {
		t.Fatalf("cancelled update = %+v", updates[1])
	}
}
