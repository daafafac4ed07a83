package vendors

import (
	"context"
	"testing"

	"github.com/evibes/commerce/internal/ports"
)

type staticAdapter struct{ name string }

func (a staticAdapter) Name() string { return a.name }

func (a staticAdapter) BuyOrderProduct(ctx context.Context, line ports.FulfilmentLine) (ports.FulfilmentResult, error) {
	return ports.FulfilmentResult{}, nil
}

func (a staticAdapter) UpdateOrderProductStatuses(ctx context.Context, lines []ports.FulfilmentLine) ([]ports.StatusUpdate, error) {
	return nil, nil
}

func TestRegistryLookupIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(staticAdapter{name: "Teemill"})

	for _, name := range []string{"teemill", "TEEMILL", "Teemill"} {
		adapter, ok := registry.Adapter(name)
		if !ok {
			t.Fatalf("lookup %q failed", name)
		}
		if adapter.Name() != "Teemill" {
			t.Fatalf("lookup %q returned %q", name, adapter.Name())
		}
	}

	if _, ok := registry.Adapter("unknown"); ok {
		t.Fatalf("unknown vendors must have no adapter")
	}
}
