package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"

	"printerpricewatch/logger"
	perrors "printerpricewatch/pkg/errors"
)

const (
	cacheFileName = "exchange_rate.json"
	cacheTTL      = 12 * time.Hour

	// Static fallback applied when every rate source is unreachable
	fallbackRate = 1.50

	// Sanity bounds for a plausible USD to AUD rate
	minSaneRate = 1.0
	maxSaneRate = 2.0
)

// ExchangeRate holds a USD to AUD multiplier and where it came from.
// Degraded marks rates that did not come from a live source or a fresh
// cache; records converted with a degraded rate carry the flag too.
type ExchangeRate struct {
	Rate      float64   `json:"rate"`
	FetchedAt time.Time `json:"fetched_at"`
	Source    string    `json:"source"`
	Degraded  bool      `json:"degraded"`
}

type rateEndpoint struct {
	name string
	url  string
}

type rateResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// Converter fetches the USD to AUD exchange rate with a file cache and a
// fallback chain: fresh cache, live APIs, stale cache, static rate.
type Converter struct {
	client    *resty.Client
	cachePath string
	endpoints []rateEndpoint
	log       *logger.Logger
}

// NewConverter creates a converter caching rates under dataDir
func NewConverter(dataDir string, timeout time.Duration) *Converter {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")

	return &Converter{
		client:    client,
		cachePath: filepath.Join(dataDir, cacheFileName),
		endpoints: []rateEndpoint{
			{name: "exchangerate-api", url: "https://api.exchangerate-api.com/v4/latest/USD"},
			{name: "open-er-api", url: "https://open.er-api.com/v6/latest/USD"},
		},
		log: logger.ForComponent("currency"),
	}
}

// Rate returns the current USD to AUD rate. It never fails outright: when
// no live source responds it degrades to a stale cache or the static
// fallback, logging the choice and flagging the result as degraded.
func (c *Converter) Rate(ctx context.Context) ExchangeRate {
	if cached, ok := c.loadCached(); ok {
		if time.Since(cached.FetchedAt) < cacheTTL {
			c.log.Info().
				Float64("rate", cached.Rate).
				Time("fetched_at", cached.FetchedAt).
				Msg("Using cached exchange rate")
			return cached
		}

		// Keep the stale value around in case every live source fails
		if live, err := c.fetchLive(ctx); err == nil {
			return live
		}

		stale := cached
		stale.Source = "stale-cache"
		stale.Degraded = true
		c.log.Warn().
			Float64("rate", stale.Rate).
			Time("fetched_at", stale.FetchedAt).
			Msg("All rate sources failed; using stale cached rate (degraded)")
		return stale
	}

	if live, err := c.fetchLive(ctx); err == nil {
		return live
	}

	c.log.Warn().
		Float64("rate", fallbackRate).
		Msg("All rate sources failed and no cache exists; using static fallback rate (degraded)")
	return ExchangeRate{
		Rate:      fallbackRate,
		FetchedAt: time.Now(),
		Source:    "fallback",
		Degraded:  true,
	}
}

// fetchLive tries each configured endpoint in order
func (c *Converter) fetchLive(ctx context.Context) (ExchangeRate, error) {
	var lastErr error
	for _, endpoint := range c.endpoints {
		rate, err := c.fetchFrom(ctx, endpoint)
		if err != nil {
			c.log.Warn().
				Str("source", endpoint.name).
				Err(err).
				Msg("Rate source failed")
			lastErr = err
			continue
		}

		result := ExchangeRate{
			Rate:      rate,
			FetchedAt: time.Now(),
			Source:    endpoint.name,
		}
		c.cacheRate(result)
		c.log.Info().
			Float64("rate", rate).
			Str("source", endpoint.name).
			Msg("Fetched exchange rate")
		return result, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no rate endpoints configured")
	}
	return ExchangeRate{}, perrors.NewRateFetch("all rate sources failed", lastErr)
}

func (c *Converter) fetchFrom(ctx context.Context, endpoint rateEndpoint) (float64, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get(endpoint.url)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode() != 200 {
		return 0, fmt.Errorf("%s returned status %d", endpoint.name, resp.StatusCode())
	}

	var parsed rateResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return 0, fmt.Errorf("unparseable response from %s: %w", endpoint.name, err)
	}

	rate, ok := parsed.Rates["AUD"]
	if !ok {
		return 0, fmt.Errorf("%s response has no AUD rate", endpoint.name)
	}
	if rate <= minSaneRate || rate >= maxSaneRate {
		return 0, fmt.Errorf("%s returned implausible rate %.4f", endpoint.name, rate)
	}

	return rate, nil
}

// loadCached reads the rate cache file if present and well formed
func (c *Converter) loadCached() (ExchangeRate, bool) {
	data, err := os.ReadFile(c.cachePath)
	if err != nil {
		return ExchangeRate{}, false
	}

	var cached ExchangeRate
	if err := json.Unmarshal(data, &cached); err != nil {
		c.log.Warn().Err(err).Msg("Ignoring corrupt rate cache")
		return ExchangeRate{}, false
	}
	if cached.Rate <= 0 || cached.FetchedAt.IsZero() {
		return ExchangeRate{}, false
	}

	cached.Source = "cache"
	return cached, true
}

// cacheRate writes the rate cache; failures are logged, not fatal
func (c *Converter) cacheRate(rate ExchangeRate) {
	if err := os.MkdirAll(filepath.Dir(c.cachePath), 0755); err != nil {
		c.log.Warn().Err(err).Msg("Cannot create rate cache directory")
		return
	}

	data, err := json.Marshal(rate)
	if err != nil {
		c.log.Warn().Err(err).Msg("Cannot marshal rate cache")
		return
	}

	if err := os.WriteFile(c.cachePath, data, 0644); err != nil {
		c.log.Warn().Err(err).Msg("Cannot write rate cache")
	}
}
