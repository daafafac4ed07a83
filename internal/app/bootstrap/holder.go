package bootstrap

import (
	"context"
	"log/slog"
	"sync"

	"github.com/evibes/commerce/internal/application"
)

// ConfigHolder owns the live application configuration. The service reads a
// snapshot per call through Snapshot, so a reload swaps settings for new
// requests without touching in-flight ones.
type ConfigHolder struct {
	mu         sync.RWMutex
	current    application.Config
	configPath string
	logger     *slog.Logger
}

func NewConfigHolder(cfg Config, configPath string, logger *slog.Logger) *ConfigHolder {
	return &ConfigHolder{
		current:    toApplicationConfig(cfg),
		configPath: configPath,
		logger:     logger,
	}
}

func (h *ConfigHolder) Snapshot() application.Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload re-resolves the file and environment and swaps the snapshot.
// Connection settings do not take effect until restart; only the commerce
// tunables are applied live.
func (h *ConfigHolder) Reload(ctx context.Context) error {
	cfg, err := LoadConfig(h.configPath)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.current = toApplicationConfig(cfg)
	h.mu.Unlock()

	h.logger.InfoContext(ctx, "configuration reloaded",
		"module", "bootstrap",
		"layer", "app",
		"operation", "config_reload",
		"outcome", "success",
		"disabled_commerce", cfg.DisabledCommerce,
	)
	return nil
}

func toApplicationConfig(cfg Config) application.Config {
	return application.Config{
		CanonicalCurrency:  cfg.CanonicalCurrency,
		OrderSurcharge:     cfg.OrderSurcharge,
		DisabledCommerce:   cfg.DisabledCommerce,
		GatewayName:        cfg.GatewayName,
		GatewayMinAmount:   cfg.GatewayMinAmount,
		GatewayMaxAmount:   cfg.GatewayMaxAmount,
		PromoCodeMaxLen:    cfg.PromoCodeMaxLen,
		HumanReadableIDLen: cfg.HumanReadableIDLen,
		ReturnURL:          cfg.ReturnURL,
		CallbackBaseURL:    cfg.CallbackBaseURL,
		DefaultLocale:      cfg.DefaultLocale,
		PriceCacheTTL:      cfg.PriceCacheTTL,
		RatingCacheTTL:     cfg.RatingCacheTTL,
	}
}
