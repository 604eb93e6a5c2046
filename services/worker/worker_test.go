package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"printerpricewatch/config"
	"printerpricewatch/internal/scraper"
	"printerpricewatch/services/publisher"
)

// fakeChecker returns canned records and counts calls per pair
type fakeChecker struct {
	mu    sync.Mutex
	calls map[string]int
}

func newFakeChecker() *fakeChecker {
	return &fakeChecker{calls: make(map[string]int)}
}

func (f *fakeChecker) Check(_ context.Context, store config.StoreConfig, printer config.PrinterEntry) scraper.PriceRecord {
	f.mu.Lock()
	f.calls[store.Name+"/"+printer.Model]++
	f.mu.Unlock()

	return scraper.PriceRecord{
		Store:     store.Name,
		Model:     printer.Model,
		PriceAUD:  100,
		Currency:  store.Currency,
		Timestamp: time.Now().UTC(),
		Success:   true,
	}
}

// memoryRecorder captures records in memory for assertions
type memoryRecorder struct {
	mu       sync.Mutex
	records  []scraper.PriceRecord
	snapshot []scraper.PriceRecord
}

func (m *memoryRecorder) Record(rec scraper.PriceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memoryRecorder) WriteSnapshot(records []scraper.PriceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = records
	return nil
}

func (m *memoryRecorder) Close() error { return nil }

func testStores() []config.StoreConfig {
	return []config.StoreConfig{
		{
			Name:     "Officeworks",
			Currency: "AUD",
			Enabled:  true,
			Printers: []config.PrinterEntry{
				{Model: "Fargo DTC1250e", URL: "https://example.com/a", Selector: ".p", Enabled: true},
				{Model: "Zebra ZC300", URL: "https://example.com/b", Selector: ".p", Enabled: true},
				{Model: "Magicard 600", URL: "https://example.com/c", Selector: ".p", Enabled: false},
			},
		},
		{
			Name:     "Bodno",
			Currency: "USD",
			Enabled:  true,
			Printers: []config.PrinterEntry{
				{Model: "Evolis Primacy 2", URL: "https://example.com/d", Selector: ".p", Enabled: true},
			},
		},
		{
			Name:     "Closed Shop",
			Currency: "AUD",
			Enabled:  false,
			Printers: []config.PrinterEntry{
				{Model: "Fargo DTC1250e", URL: "https://example.com/e", Selector: ".p", Enabled: true},
			},
		},
	}
}

func TestWorkerOneRecordPerEnabledPair(t *testing.T) {
	checker := newFakeChecker()
	recorder := &memoryRecorder{}
	w := NewWorker(checker, recorder, publisher.Noop{}, 2)

	records := w.Run(context.Background(), testStores())

	// Exactly one record per enabled pair, none skipped, none duplicated
	assert.Len(t, records, 3)
	assert.Equal(t, 1, checker.calls["Officeworks/Fargo DTC1250e"])
	assert.Equal(t, 1, checker.calls["Officeworks/Zebra ZC300"])
	assert.Equal(t, 1, checker.calls["Bodno/Evolis Primacy 2"])

	// Disabled printer and disabled store produce no checks at all
	assert.NotContains(t, checker.calls, "Officeworks/Magicard 600")
	assert.NotContains(t, checker.calls, "Closed Shop/Fargo DTC1250e")

	// Every record was persisted
	assert.Len(t, recorder.records, 3)
}

func TestWorkerNoEnabledPairs(t *testing.T) {
	checker := newFakeChecker()
	recorder := &memoryRecorder{}
	w := NewWorker(checker, recorder, publisher.Noop{}, 4)

	records := w.Run(context.Background(), []config.StoreConfig{
		{Name: "Closed Shop", Currency: "AUD", Enabled: false},
	})

	assert.Empty(t, records)
	assert.Empty(t, recorder.records)
}

func TestWorkerConcurrencyFloor(t *testing.T) {
	w := NewWorker(newFakeChecker(), &memoryRecorder{}, publisher.Noop{}, 0)
	assert.Equal(t, 1, w.concurrency)
}
