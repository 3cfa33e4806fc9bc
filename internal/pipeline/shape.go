package pipeline

import "vpr/internal"

// Shape lays the groups out as one record per base part. topN > 0 keeps only
// the cheapest topN offers of each group. Every record gets the same number
// of slots; slots past a group's offers stay unfilled.
func Shape(groups []internal.OfferGroup, topN int) internal.WideTable {
	maxSlots := 0
	for _, g := range groups {
		n := len(g.Offers)
		if topN > 0 && n > topN {
			n = topN
		}
		if n > maxSlots {
			maxSlots = n
		}
	}

	records := make([]internal.WideRecord, 0, len(groups))
	for _, g := range groups {
		slots := make([]internal.Slot, maxSlots)
		for i := 0; i < maxSlots && i < len(g.Offers); i++ {
			o := g.Offers[i]
			slots[i] = internal.Slot{Filled: true, Price: o.Price, Vendor: o.Vendor, Brand: o.Brand}
		}
		records = append(records, internal.WideRecord{
			PartNumber: g.Base.PartNumber,
			Quantity:   g.Base.Quantity,
			Slots:      slots,
		})
	}
	return internal.WideTable{MaxSlots: maxSlots, Records: records}
}
