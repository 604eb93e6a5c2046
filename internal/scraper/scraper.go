package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"printerpricewatch/config"
	"printerpricewatch/helpers"
	"printerpricewatch/internal/currency"
	"printerpricewatch/logger"
	perrors "printerpricewatch/pkg/errors"
	"printerpricewatch/services/cache"
)

// PriceScraper checks configured printer pages and produces price records.
// Per-entry failures are converted into failed records, never returned as
// errors: one bad page must not abort the run.
type PriceScraper struct {
	CacheSvc  cache.CacheService
	Rate      currency.ExchangeRate
	Timeout   time.Duration
	Retries   int
	BlockTime time.Duration

	fetchFunc func(ctx context.Context, url string) (io.Reader, error)
}

var _ Checker = (*PriceScraper)(nil)

// NewPriceScraper creates a scraper using the application fetch settings
func NewPriceScraper(cfg config.Config, cacheSvc cache.CacheService, rate currency.ExchangeRate) *PriceScraper {
	s := &PriceScraper{
		CacheSvc:  cacheSvc,
		Rate:      rate,
		Timeout:   cfg.RequestTimeout,
		Retries:   cfg.MaxRetries,
		BlockTime: cfg.StoreBlockTime,
	}
	s.fetchFunc = func(ctx context.Context, url string) (io.Reader, error) {
		return helpers.FetchWithBrowserHeaders(ctx, url, s.Timeout, s.Retries)
	}
	return s
}

// Check fetches one printer page, extracts the price via the configured
// selector and normalizes it to AUD. Always returns exactly one record.
func (s *PriceScraper) Check(ctx context.Context, store config.StoreConfig, printer config.PrinterEntry) PriceRecord {
	log := logger.ForStore(store.Name)
	blockKey := rateLimitKey(store.Name)

	// Skip the fetch while the store is blocked after a 429
	if s.CacheSvc != nil {
		if _, err := s.CacheSvc.Get(blockKey); err == nil {
			return s.failed(store, printer, perrors.NewRateLimit(store.Name, ""))
		}
	}

	body, err := s.fetchFunc(ctx, printer.URL)
	if err != nil {
		var scrapeErr *perrors.ScrapeError
		if errors.As(err, &scrapeErr) && scrapeErr.Type == perrors.ErrorTypeRateLimit && s.CacheSvc != nil {
			if setErr := s.CacheSvc.Set(blockKey, []byte(fmt.Sprintf("%d", int(s.BlockTime.Seconds()))), s.BlockTime); setErr != nil {
				log.Warn().Err(setErr).Msg("Failed to set rate limit block")
			}
		}
		return s.failed(store, printer, err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return s.failed(store, printer, perrors.NewExtract(store.Name, printer.Model, fmt.Sprintf("HTML parse error: %v", err)))
	}

	sel := doc.Find(printer.Selector)
	if sel.Length() == 0 {
		return s.failed(store, printer, perrors.NewExtract(store.Name, printer.Model,
			fmt.Sprintf("selector %q matched no elements", printer.Selector)))
	}

	text := strings.TrimSpace(sel.First().Text())
	amount, err := NormalizePrice(text)
	if err != nil {
		return s.failed(store, printer, perrors.NewParse(store.Name, printer.Model, "unparseable price text", err))
	}

	priceAUD, err := ConvertToAUD(amount, store.Currency, s.Rate)
	if err != nil {
		return s.failed(store, printer, err)
	}

	degraded := store.Currency == config.CurrencyUSD && s.Rate.Degraded
	if degraded {
		log.Warn().
			Str("model", printer.Model).
			Str("rate_source", s.Rate.Source).
			Msg("Price converted with a degraded exchange rate")
	}

	log.Debug().
		Str("model", printer.Model).
		Float64("price_aud", priceAUD).
		Str("currency", store.Currency).
		Msg("Price extracted")

	return PriceRecord{
		Store:         store.Name,
		Model:         printer.Model,
		PriceAUD:      priceAUD,
		PriceOriginal: amount,
		Currency:      store.Currency,
		Timestamp:     time.Now().UTC(),
		Success:       true,
		Degraded:      degraded,
	}
}

// failed builds the failure record for a pair and logs the cause
func (s *PriceScraper) failed(store config.StoreConfig, printer config.PrinterEntry, err error) PriceRecord {
	logger.ForStore(store.Name).Warn().
		Str("model", printer.Model).
		Err(err).
		Msg("Price check failed")

	return PriceRecord{
		Store:     store.Name,
		Model:     printer.Model,
		Currency:  store.Currency,
		Timestamp: time.Now().UTC(),
		Success:   false,
		Error:     err.Error(),
	}
}

// rateLimitKey builds the cache key blocking a store after a 429
func rateLimitKey(storeName string) string {
	return strings.ReplaceAll(strings.ToLower(storeName), " ", "_") + "_rate_limited"
}
