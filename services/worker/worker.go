package worker

import (
	"context"
	"encoding/json"
	"sync"

	"printerpricewatch/config"
	"printerpricewatch/internal/scraper"
	"printerpricewatch/logger"
	"printerpricewatch/services/history"
	"printerpricewatch/services/publisher"
)

// Worker runs one full pipeline pass over the configured stores
type Worker struct {
	checker     scraper.Checker
	recorder    history.Recorder
	publisher   publisher.Publisher
	concurrency int
	log         *logger.Logger
}

// NewWorker creates a new worker
func NewWorker(checker scraper.Checker, recorder history.Recorder, pub publisher.Publisher, concurrency int) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		checker:     checker,
		recorder:    recorder,
		publisher:   pub,
		concurrency: concurrency,
		log:         logger.ForComponent("worker"),
	}
}

type job struct {
	store   config.StoreConfig
	printer config.PrinterEntry
}

// Run checks every enabled (store, printer) pair once, bounded by the
// configured concurrency, and returns one record per pair. Pairs are
// independent; no ordering is guaranteed between them.
func (w *Worker) Run(ctx context.Context, stores []config.StoreConfig) []scraper.PriceRecord {
	var jobs []job
	for _, store := range stores {
		if !store.Enabled {
			w.log.Info().Str("store", store.Name).Msg("Store disabled, skipping")
			continue
		}
		for _, printer := range store.Printers {
			if !printer.Enabled {
				continue
			}
			jobs = append(jobs, job{store: store, printer: printer})
		}
	}

	w.log.Info().
		Int("pairs", len(jobs)).
		Int("concurrency", w.concurrency).
		Msg("Starting price checks")

	records := make([]scraper.PriceRecord, len(jobs))
	sem := make(chan struct{}, w.concurrency)
	var wg sync.WaitGroup

	for i, j := range jobs {
		wg.Add(1)
		go func(i int, j job) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			rec := w.checker.Check(ctx, j.store, j.printer)
			records[i] = rec
			w.recordAndPublish(rec)
		}(i, j)
	}
	wg.Wait()

	if err := w.publisher.TrimStreams(); err != nil {
		w.log.Error().Err(err).Msg("Failed to trim streams")
	}

	return records
}

// recordAndPublish persists one record and hands it to the publisher.
// The recorder and publisher serialize their own writes; failures here
// are reported but never abort the remaining pairs.
func (w *Worker) recordAndPublish(rec scraper.PriceRecord) {
	if err := w.recorder.Record(rec); err != nil {
		logger.LogError("worker", err, "Failed to record %s/%s", rec.Store, rec.Model)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		logger.LogError("worker", err, "Failed to marshal record %s/%s", rec.Store, rec.Model)
		return
	}
	if err := w.publisher.Publish(rec.Store, data); err != nil {
		logger.LogError("worker", err, "Failed to publish record %s/%s", rec.Store, rec.Model)
	}
}
