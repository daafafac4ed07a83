package vendors

import (
	"strings"

	"github.com/evibes/commerce/internal/ports"
)

// Registry maps vendor names to fulfilment adapters, case-insensitively.
// Vendors without an adapter are fulfilled manually by staff.
type Registry struct {
	adapters map[string]ports.VendorAdapter
}

func NewRegistry(adapters ...ports.VendorAdapter) *Registry {
	r := &Registry{adapters: make(map[string]ports.VendorAdapter, len(adapters))}
	for _, adapter := range adapters {
		r.adapters[strings.ToLower(adapter.Name())] = adapter
	}
	return r
}

func (r *Registry) Adapter(name string) (ports.VendorAdapter, bool) {
	adapter, ok := r.adapters[strings.ToLower(name)]
	return adapter, ok
}
