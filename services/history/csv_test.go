package history

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"printerpricewatch/internal/scraper"
)

func testRecord(store, model string, price float64) scraper.PriceRecord {
	return scraper.PriceRecord{
		Store:         store,
		Model:         model,
		PriceAUD:      price,
		PriceOriginal: price,
		Currency:      "AUD",
		Timestamp:     time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC),
		Success:       true,
	}
}

func readHistory(t *testing.T, dir string) [][]string {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, historyFileName))
	assert.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	assert.NoError(t, err)
	return rows
}

func TestCSVRecorderAppends(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewCSVRecorder(dir)
	assert.NoError(t, err)

	assert.NoError(t, rec.Record(testRecord("Officeworks", "Fargo DTC1250e", 899)))
	assert.NoError(t, rec.Record(scraper.PriceRecord{
		Store:     "Bodno",
		Model:     "Evolis Primacy 2",
		Currency:  "USD",
		Timestamp: time.Date(2025, 6, 1, 3, 0, 5, 0, time.UTC),
		Success:   false,
		Error:     "selector matched no elements",
	}))
	assert.NoError(t, rec.Close())

	rows := readHistory(t, dir)
	assert.Len(t, rows, 3)
	assert.Equal(t, historyHeader, rows[0])
	assert.Equal(t, []string{
		"Officeworks", "Fargo DTC1250e", "899.00", "899.00", "AUD",
		"2025-06-01T03:00:00Z", "true", "false",
	}, rows[1])
	// Failed checks keep the price columns empty
	assert.Equal(t, "", rows[2][2])
	assert.Equal(t, "false", rows[2][6])
}

func TestCSVRecorderAppendOnlyAcrossRuns(t *testing.T) {
	dir := t.TempDir()

	// First run
	rec, err := NewCSVRecorder(dir)
	assert.NoError(t, err)
	assert.NoError(t, rec.Record(testRecord("Officeworks", "Fargo DTC1250e", 899)))
	assert.NoError(t, rec.Close())

	// Second run appends without rewriting the header or earlier rows
	rec, err = NewCSVRecorder(dir)
	assert.NoError(t, err)
	assert.NoError(t, rec.Record(testRecord("Officeworks", "Fargo DTC1250e", 879)))
	assert.NoError(t, rec.Close())

	rows := readHistory(t, dir)
	assert.Len(t, rows, 3)
	assert.Equal(t, "899.00", rows[1][2])
	assert.Equal(t, "879.00", rows[2][2])
}

func TestCSVRecorderSnapshot(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewCSVRecorder(dir)
	assert.NoError(t, err)
	defer rec.Close()

	records := []scraper.PriceRecord{
		testRecord("Officeworks", "Fargo DTC1250e", 899),
		testRecord("ID Card Group AU", "Zebra ZC300", 1450.50),
	}
	assert.NoError(t, rec.WriteSnapshot(records))

	data, err := os.ReadFile(filepath.Join(dir, snapshotFileName))
	assert.NoError(t, err)

	var snap snapshot
	assert.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, 2, snap.TotalResults)
	assert.Equal(t, "AUD", snap.Currency)
	assert.Len(t, snap.Records, 2)
	assert.Equal(t, "Zebra ZC300", snap.Records[1].Model)
}

func TestCSVRecorderUnwritableTarget(t *testing.T) {
	// A plain file where the data directory should be makes the target unwritable
	dir := t.TempDir()
	blocking := filepath.Join(dir, "data")
	assert.NoError(t, os.WriteFile(blocking, []byte("x"), 0644))

	_, err := NewCSVRecorder(blocking)
	assert.Error(t, err)
}
