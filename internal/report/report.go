package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"printerpricewatch/internal/scraper"
)

// BestDeal is the lowest AUD price found for a model across all stores
type BestDeal struct {
	Model    string
	Store    string
	PriceAUD float64
}

// Summary aggregates the records of a single run
type Summary struct {
	Total     int
	Successes int
	Failures  int
	BestDeals []BestDeal
	// MeanPrices maps model to the mean AUD price across successful checks
	MeanPrices map[string]float64
	Failed     []scraper.PriceRecord
}

// Build computes the run summary. Pure computation, no I/O.
func Build(records []scraper.PriceRecord) Summary {
	s := Summary{
		Total:      len(records),
		MeanPrices: make(map[string]float64),
	}

	best := make(map[string]BestDeal)
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, rec := range records {
		if !rec.Success {
			s.Failures++
			s.Failed = append(s.Failed, rec)
			continue
		}
		s.Successes++

		sums[rec.Model] += rec.PriceAUD
		counts[rec.Model]++

		deal, ok := best[rec.Model]
		if !ok || rec.PriceAUD < deal.PriceAUD {
			best[rec.Model] = BestDeal{
				Model:    rec.Model,
				Store:    rec.Store,
				PriceAUD: rec.PriceAUD,
			}
		}
	}

	for model, sum := range sums {
		s.MeanPrices[model] = sum / float64(counts[model])
	}

	for _, deal := range best {
		s.BestDeals = append(s.BestDeals, deal)
	}
	sort.Slice(s.BestDeals, func(i, j int) bool {
		return s.BestDeals[i].Model < s.BestDeals[j].Model
	})
	sort.Slice(s.Failed, func(i, j int) bool {
		if s.Failed[i].Store != s.Failed[j].Store {
			return s.Failed[i].Store < s.Failed[j].Store
		}
		return s.Failed[i].Model < s.Failed[j].Model
	})

	return s
}

// Render formats the summary for the run log
func (s Summary) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Checked %d pages: %d ok, %d failed\n", s.Total, s.Successes, s.Failures)

	if len(s.BestDeals) > 0 {
		t := table.NewWriter()
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Model", "Best price (AUD)", "Store", "Mean (AUD)"})
		for _, deal := range s.BestDeals {
			t.AppendRow(table.Row{
				deal.Model,
				fmt.Sprintf("$%.2f", deal.PriceAUD),
				deal.Store,
				fmt.Sprintf("$%.2f", s.MeanPrices[deal.Model]),
			})
		}
		b.WriteString(t.Render())
		b.WriteString("\n")
	}

	if len(s.Failed) > 0 {
		b.WriteString("Failures:\n")
		for _, rec := range s.Failed {
			fmt.Fprintf(&b, "  %s / %s: %s\n", rec.Store, rec.Model, rec.Error)
		}
	}

	return b.String()
}
