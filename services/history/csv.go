package history

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"printerpricewatch/internal/scraper"
	perrors "printerpricewatch/pkg/errors"
)

const (
	historyFileName  = "history.csv"
	snapshotFileName = "latest_prices.json"
)

var historyHeader = []string{
	"store", "model", "price_aud", "price_original", "currency", "timestamp", "success", "degraded",
}

// CSVRecorder appends price records to an append-only CSV file and keeps a
// JSON snapshot of the most recent run. Appends are mutex-guarded so the
// worker may record from multiple goroutines.
type CSVRecorder struct {
	mu           sync.Mutex
	file         *os.File
	writer       *csv.Writer
	snapshotPath string
}

var _ Recorder = (*CSVRecorder)(nil)

// NewCSVRecorder opens (creating if needed) the history file under dataDir.
// An unwritable target is a fatal persistence error for the run.
func NewCSVRecorder(dataDir string) (*CSVRecorder, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, perrors.NewPersistence("cannot create data directory", err)
	}

	path := filepath.Join(dataDir, historyFileName)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, perrors.NewPersistence("cannot open history file", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, perrors.NewPersistence("cannot stat history file", err)
	}

	r := &CSVRecorder{
		file:         file,
		writer:       csv.NewWriter(file),
		snapshotPath: filepath.Join(dataDir, snapshotFileName),
	}

	// Header only on a fresh file; existing history is never rewritten
	if info.Size() == 0 {
		if err := r.writer.Write(historyHeader); err != nil {
			file.Close()
			return nil, perrors.NewPersistence("cannot write history header", err)
		}
		r.writer.Flush()
		if err := r.writer.Error(); err != nil {
			file.Close()
			return nil, perrors.NewPersistence("cannot flush history header", err)
		}
	}

	return r, nil
}

// Record appends one record. Already-written rows are never rolled back;
// a failed append is reported and the run continues best-effort.
func (r *CSVRecorder) Record(rec scraper.PriceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := []string{
		rec.Store,
		rec.Model,
		formatPrice(rec.PriceAUD, rec.Success),
		formatPrice(rec.PriceOriginal, rec.Success),
		rec.Currency,
		rec.Timestamp.Format(time.RFC3339),
		strconv.FormatBool(rec.Success),
		strconv.FormatBool(rec.Degraded),
	}

	if err := r.writer.Write(row); err != nil {
		return perrors.NewPersistence("cannot append history row", err)
	}
	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		return perrors.NewPersistence("cannot flush history row", err)
	}
	return nil
}

type snapshot struct {
	ScrapedAt    time.Time             `json:"scraped_at"`
	TotalResults int                   `json:"total_results"`
	Currency     string                `json:"currency"`
	Records      []scraper.PriceRecord `json:"records"`
}

// WriteSnapshot rewrites the latest-run JSON snapshot
func (r *CSVRecorder) WriteSnapshot(records []scraper.PriceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(snapshot{
		ScrapedAt:    time.Now().UTC(),
		TotalResults: len(records),
		Currency:     "AUD",
		Records:      records,
	}, "", "  ")
	if err != nil {
		return perrors.NewPersistence("cannot marshal snapshot", err)
	}

	if err := os.WriteFile(r.snapshotPath, data, 0644); err != nil {
		return perrors.NewPersistence("cannot write snapshot", err)
	}
	return nil
}

// Close flushes and closes the history file
func (r *CSVRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		r.file.Close()
		return perrors.NewPersistence("cannot flush history file", err)
	}
	return r.file.Close()
}

// formatPrice renders a price column; failed checks leave prices empty
func formatPrice(v float64, success bool) string {
	if !success {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
