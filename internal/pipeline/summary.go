package pipeline

import (
	"github.com/montanaflynn/stats"

	"vpr/internal"
)

// Summary is a short numeric digest of a run for the CLI and preview.
type Summary struct {
	BaseParts      int     `json:"base_parts"`
	MatchedParts   int     `json:"matched_parts"`
	UnmatchedParts int     `json:"unmatched_parts"`
	Offers         int     `json:"offers"`
	MatchedOffers  int     `json:"matched_offers"`
	MaxSlots       int     `json:"max_slots"`
	// MedianSpreadPct is the median over parts with two or more offers of
	// (max-min)/min, in percent.
	MedianSpreadPct float64 `json:"median_spread_pct"`
}

func Summarize(groups []internal.OfferGroup, totalOffers int, table internal.WideTable) Summary {
	s := Summary{
		BaseParts:     len(groups),
		Offers:        totalOffers,
		MatchedOffers: MatchedCount(groups),
		MaxSlots:      table.MaxSlots,
	}
	var spreads []float64
	for _, g := range groups {
		if len(g.Offers) == 0 {
			s.UnmatchedParts++
			continue
		}
		s.MatchedParts++
		if len(g.Offers) < 2 {
			continue
		}
		prices := make([]float64, len(g.Offers))
		for i, o := range g.Offers {
			prices[i] = o.Price.InexactFloat64()
		}
		lo, err := stats.Min(prices)
		if err != nil || lo <= 0 {
			continue
		}
		hi, err := stats.Max(prices)
		if err != nil {
			continue
		}
		spreads = append(spreads, (hi-lo)/lo*100)
	}
	if len(spreads) > 0 {
		if m, err := stats.Median(spreads); err == nil {
			if r, err := stats.Round(m, 2); err == nil {
				s.MedianSpreadPct = r
			}
		}
	}
	return s
}
