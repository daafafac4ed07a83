package rates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/evibes/commerce/internal/domain"
	"github.com/evibes/commerce/internal/ports"
)

const providerName = "cbr"

// Provider resolves conversion rates from the central bank's daily table,
// cached for a full day so the upstream is hit at most once per window.
type Provider struct {
	http      *resty.Client
	store     ports.RatesStore
	canonical string
	ttl       time.Duration
}

type Config struct {
	BaseURL           string
	CanonicalCurrency string
	Timeout           time.Duration
	TTL               time.Duration
}

func NewProvider(cfg Config, store ports.RatesStore) *Provider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Provider{
		http:      resty.New().SetBaseURL(cfg.BaseURL).SetTimeout(timeout),
		store:     store,
		canonical: strings.ToUpper(cfg.CanonicalCurrency),
		ttl:       ttl,
	}
}

type dailyTable struct {
	Valute map[string]struct {
		CharCode string  `json:"CharCode"`
		Nominal  float64 `json:"Nominal"`
		Value    float64 `json:"Value"`
	} `json:"Valute"`
}

func (p *Provider) Rate(ctx context.Context, currency string) (float64, error) {
	currency = strings.ToUpper(currency)
	if currency == p.canonical {
		return 1, nil
	}

	table, err := p.table(ctx)
	if err != nil {
		return 0, err
	}
	rate, ok := table[currency]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("%w: no rate for %s", domain.ErrRatesMissing, currency)
	}
	return rate, nil
}

func (p *Provider) table(ctx context.Context) (map[string]float64, error) {
	cached, ok, err := p.store.Get(ctx, providerName)
	if err == nil && ok {
		return cached, nil
	}

	var daily dailyTable
	resp, err := p.http.R().
		SetContext(ctx).
		SetResult(&daily).
		Get("/daily_json.js")
	if err != nil {
		return nil, fmt.Errorf("%w: fetch rates: %v", domain.ErrUpstream, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: fetch rates: status %d", domain.ErrUpstream, resp.StatusCode())
	}

	table := make(map[string]float64, len(daily.Valute))
	for _, entry := range daily.Valute {
		if entry.Nominal <= 0 {
			continue
		}
		table[entry.CharCode] = entry.Value / entry.Nominal
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: empty rate table", domain.ErrUpstream)
	}

	// The fetch succeeded; failing to cache it is not fatal.
	_ = p.store.Put(ctx, providerName, table, p.ttl)
	return table, nil
}
