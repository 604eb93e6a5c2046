package scraper

import (
	"context"
	"time"

	"printerpricewatch/config"
)

// PriceRecord is the outcome of checking one (store, printer) pair.
// Exactly one record is produced per enabled pair per run, success or not,
// and records are never mutated once written.
type PriceRecord struct {
	Store         string    `json:"store"`
	Model         string    `json:"model"`
	PriceAUD      float64   `json:"price_aud"`
	PriceOriginal float64   `json:"price_original"`
	Currency      string    `json:"currency"`
	Timestamp     time.Time `json:"timestamp"`
	Success       bool      `json:"success"`
	Degraded      bool      `json:"degraded,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// Checker produces a price record for a single configured printer page
type Checker interface {
	Check(ctx context.Context, store config.StoreConfig, printer config.PrinterEntry) PriceRecord
}
