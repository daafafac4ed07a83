package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the commerce service.
// It merges file defaults and environment overrides to support both local and
// deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int

	DatabaseURL string
	RedisURL    string

	JWTSecret string

	CanonicalCurrency  string
	OrderSurcharge     float64
	DisabledCommerce   bool
	PromoCodeMaxLen    int
	HumanReadableIDLen int
	DefaultLocale      string

	GatewayName      string
	GatewayURL       string
	GatewayToken     string
	UpstreamTimeout  time.Duration
	GatewayMinAmount float64
	GatewayMaxAmount float64
	ReturnURL        string
	CallbackBaseURL  string

	RatesURL string
	RatesTTL time.Duration

	PriceCacheTTL  time.Duration
	RatingCacheTTL time.Duration

	TeemillURL string

	MaxDBConns          int32
	OutboxPollInterval  time.Duration
	OutboxBatchSize     int
	OutboxClaimTTL      time.Duration
	OutboxMaxRetries    int
	FulfilmentInterval  time.Duration
	FulfilmentBatchSize int
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Commerce struct {
		CanonicalCurrency string  `yaml:"canonical_currency"`
		OrderSurcharge    float64 `yaml:"order_surcharge"`
		DefaultLocale     string  `yaml:"default_locale"`
	} `yaml:"commerce"`
	Gateway struct {
		Name        string  `yaml:"name"`
		URL         string  `yaml:"url"`
		Token       string  `yaml:"token"`
		MinAmount   float64 `yaml:"min_amount"`
		MaxAmount   float64 `yaml:"max_amount"`
		ReturnURL   string  `yaml:"return_url"`
		CallbackURL string  `yaml:"callback_base_url"`
	} `yaml:"gateway"`
	Rates struct {
		URL string `yaml:"url"`
	} `yaml:"rates"`
	Vendors struct {
		TeemillURL string `yaml:"teemill_url"`
	} `yaml:"vendors"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific
// overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:           "commerce",
		HTTPPort:            8080,
		CanonicalCurrency:   "USD",
		OrderSurcharge:      5.0,
		PromoCodeMaxLen:     20,
		HumanReadableIDLen:  8,
		DefaultLocale:       "en",
		GatewayName:         "hostedpay",
		UpstreamTimeout:     30 * time.Second,
		GatewayMinAmount:    1,
		GatewayMaxAmount:    100000,
		RatesTTL:            24 * time.Hour,
		PriceCacheTTL:       5 * time.Minute,
		RatingCacheTTL:      15 * time.Minute,
		MaxDBConns:          20,
		OutboxPollInterval:  2 * time.Second,
		OutboxBatchSize:     100,
		OutboxClaimTTL:      30 * time.Second,
		OutboxMaxRetries:    5,
		FulfilmentInterval:  time.Minute,
		FulfilmentBatchSize: 200,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.Commerce.CanonicalCurrency != "" {
			cfg.CanonicalCurrency = f.Commerce.CanonicalCurrency
		}
		if f.Commerce.OrderSurcharge > 0 {
			cfg.OrderSurcharge = f.Commerce.OrderSurcharge
		}
		if f.Commerce.DefaultLocale != "" {
			cfg.DefaultLocale = f.Commerce.DefaultLocale
		}
		if f.Gateway.Name != "" {
			cfg.GatewayName = f.Gateway.Name
		}
		if f.Gateway.URL != "" {
			cfg.GatewayURL = f.Gateway.URL
		}
		if f.Gateway.Token != "" {
			cfg.GatewayToken = f.Gateway.Token
		}
		if f.Gateway.MinAmount > 0 {
			cfg.GatewayMinAmount = f.Gateway.MinAmount
		}
		if f.Gateway.MaxAmount > 0 {
			cfg.GatewayMaxAmount = f.Gateway.MaxAmount
		}
		if f.Gateway.ReturnURL != "" {
			cfg.ReturnURL = f.Gateway.ReturnURL
		}
		if f.Gateway.CallbackURL != "" {
			cfg.CallbackBaseURL = f.Gateway.CallbackURL
		}
		if f.Rates.URL != "" {
			cfg.RatesURL = f.Rates.URL
		}
		if f.Vendors.TeemillURL != "" {
			cfg.TeemillURL = f.Vendors.TeemillURL
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)

	cfg.CanonicalCurrency = strings.ToUpper(envOrDefault("CANONICAL_CURRENCY", cfg.CanonicalCurrency))
	cfg.OrderSurcharge = envFloat("ORDER_SURCHARGE", cfg.OrderSurcharge)
	cfg.DisabledCommerce = envBool("DISABLED_COMMERCE", cfg.DisabledCommerce)
	cfg.PromoCodeMaxLen = envInt("PROMOCODE_MAX_LEN", cfg.PromoCodeMaxLen)
	cfg.HumanReadableIDLen = envInt("HUMAN_READABLE_ID_LEN", cfg.HumanReadableIDLen)
	cfg.DefaultLocale = envOrDefault("DEFAULT_LOCALE", cfg.DefaultLocale)

	cfg.GatewayName = strings.ToLower(envOrDefault("GATEWAY_NAME", cfg.GatewayName))
	cfg.GatewayURL = envOrDefault("GATEWAY_URL", cfg.GatewayURL)
	cfg.GatewayToken = envOrDefault("GATEWAY_TOKEN", cfg.GatewayToken)
	cfg.GatewayMinAmount = envFloat("GATEWAY_MIN_AMOUNT", cfg.GatewayMinAmount)
	cfg.GatewayMaxAmount = envFloat("GATEWAY_MAX_AMOUNT", cfg.GatewayMaxAmount)
	cfg.ReturnURL = envOrDefault("RETURN_URL", cfg.ReturnURL)
	cfg.CallbackBaseURL = envOrDefault("CALLBACK_BASE_URL", cfg.CallbackBaseURL)
	cfg.RatesURL = envOrDefault("RATES_URL", cfg.RatesURL)
	cfg.TeemillURL = envOrDefault("TEEMILL_URL", cfg.TeemillURL)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))

	cfg.UpstreamTimeout = time.Duration(envInt("UPSTREAM_TIMEOUT_SECONDS", int(cfg.UpstreamTimeout.Seconds()))) * time.Second
	cfg.RatesTTL = time.Duration(envInt("RATES_TTL_HOURS", int(cfg.RatesTTL.Hours()))) * time.Hour
	cfg.PriceCacheTTL = time.Duration(envInt("PRICE_CACHE_TTL_SECONDS", int(cfg.PriceCacheTTL.Seconds()))) * time.Second
	cfg.RatingCacheTTL = time.Duration(envInt("RATING_CACHE_TTL_SECONDS", int(cfg.RatingCacheTTL.Seconds()))) * time.Second
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)
	cfg.FulfilmentInterval = time.Duration(envInt("FULFILMENT_POLL_SECONDS", int(cfg.FulfilmentInterval.Seconds()))) * time.Second
	cfg.FulfilmentBatchSize = envInt("FULFILMENT_BATCH_SIZE", cfg.FulfilmentBatchSize)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("missing JWT_SECRET")
	}
	if cfg.GatewayMaxAmount <= cfg.GatewayMinAmount {
		return Config{}, fmt.Errorf("GATEWAY_MAX_AMOUNT must exceed GATEWAY_MIN_AMOUNT")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envFloat parses float env vars with safe fallback on empty/invalid values.
func envFloat(name string, fallback float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}
