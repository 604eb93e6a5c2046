package history

import (
	"printerpricewatch/internal/scraper"
)

// Recorder persists price records for historical tracking
type Recorder interface {
	// Record appends a single price record to the history store
	Record(rec scraper.PriceRecord) error

	// WriteSnapshot replaces the latest-run snapshot with the given records
	WriteSnapshot(records []scraper.PriceRecord) error

	// Close releases the underlying write target
	Close() error
}
