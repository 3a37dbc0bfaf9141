// Package rates fetches current exchange rates relative to EUR.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"conti/internal/cache"
	"conti/internal/core"
)

// DefaultURL asks the Frankfurter API for the USD rate against EUR.
const DefaultURL = "https://api.frankfurter.dev/v1/latest?base=EUR&symbols=USD"

// Provider returns a payload of currency code -> units per 1 EUR.
type Provider interface {
	Latest(ctx context.Context) (map[string]float64, error)
}

// FrankfurterProvider queries a Frankfurter-compatible endpoint.
type FrankfurterProvider struct {
	url    string
	client *http.Client
}

func NewFrankfurterProvider(url string, timeout time.Duration) *FrankfurterProvider {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &FrankfurterProvider{url: url, client: &http.Client{Timeout: timeout}}
}

type latestResponse struct {
	Amount float64            `json:"amount"`
	Base   string             `json:"base"`
	Date   string             `json:"date"`
	Rates  map[string]float64 `json:"rates"`
}

func (p *FrankfurterProvider) Latest(ctx context.Context) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build rates request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch rates: unexpected status %d: %s", resp.StatusCode, body)
	}

	var payload latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	if payload.Base != "" && payload.Base != string(core.EUR) {
		return nil, fmt.Errorf("decode rates: unexpected base %q", payload.Base)
	}
	return payload.Rates, nil
}

const cacheKey = "latest"

// CachedProvider keeps the last payload for the TTL. When the upstream fails
// after expiry, the stale payload is served.
type CachedProvider struct {
	next   Provider
	cache  *cache.LRUCache[map[string]float64]
	logger *slog.Logger
}

func NewCachedProvider(next Provider, ttl time.Duration, logger *slog.Logger) *CachedProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedProvider{
		next:   next,
		cache:  cache.NewLRUCache[map[string]float64](1, ttl),
		logger: logger,
	}
}

// Cache exposes the underlying cache, e.g. for registration with a cache.Manager.
func (p *CachedProvider) Cache() *cache.LRUCache[map[string]float64] {
	return p.cache
}

func (p *CachedProvider) Latest(ctx context.Context) (map[string]float64, error) {
	if payload, ok := p.cache.Get(cacheKey); ok {
		return payload, nil
	}
	payload, err := p.next.Latest(ctx)
	if err != nil {
		if stale, ok := p.cache.GetStale(cacheKey); ok {
			p.logger.WarnContext(ctx, "Serving stale exchange rates", "error", err)
			return stale, nil
		}
		return nil, err
	}
	p.cache.Set(cacheKey, payload)
	return payload, nil
}

// Source turns provider payloads into rate maps. It never fails.
type Source struct {
	provider Provider
	logger   *slog.Logger
}

func NewSource(p Provider, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{provider: p, logger: logger}
}

func (s *Source) Current(ctx context.Context) core.RateMap {
	return Rates(ctx, s.provider, s.logger)
}

// Rates builds the current rate map. On failure it logs a warning and returns
// the base-only map, so conversions leave amounts unchanged.
func Rates(ctx context.Context, p Provider, logger *slog.Logger) core.RateMap {
	if p == nil {
		return core.BuildRateMap(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	payload, err := p.Latest(ctx)
	if err != nil {
		logger.WarnContext(ctx, "Exchange rates unavailable, amounts are not converted", "error", err)
		return core.BuildRateMap(nil)
	}
	return core.BuildRateMap(payload)
}
