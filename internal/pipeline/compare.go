package pipeline

import (
	"strings"

	"github.com/rotisserie/eris"

	"vpr/internal"
	"vpr/internal/source"
	"vpr/internal/util"
)

var comparePairs = [][2]string{
	{"цена_", "производитель_"},
	{"price_", "brand_"},
}

type vendorColumns struct {
	vendor string
	price  int
	brand  int
}

// CompareSheet reads a sheet that already holds one price/brand column pair
// per vendor ("Цена_X" with "Производитель_X", or "Price_X" with "Brand_X")
// and groups it by part number. Rows repeating a part number are merged into
// the first one.
func CompareSheet(t source.Table, sep internal.DecimalSeparator, markers []string) ([]internal.OfferGroup, error) {
	part, ok := SuggestColumn(t.Headers, DefaultHints[RolePart])
	if !ok {
		return nil, eris.Wrap(internal.ErrMalformedInput, "comparison sheet has no part number column")
	}
	qty, _ := SuggestColumn(t.Headers, DefaultHints[RoleQuantity])

	vendors := vendorPairs(t.Headers)
	if len(vendors) == 0 {
		return nil, eris.Wrap(internal.ErrMalformedInput, "no Цена_*/Производитель_* column pairs found")
	}

	var groups []internal.OfferGroup
	index := map[string]int{}
	for i := range t.Rows {
		if isEmptyRow(t.Rows[i]) {
			continue
		}
		raw := cellValue(t.Cell(i, part))
		partText := strings.TrimSpace(util.ToText(raw))
		if partText == "" {
			continue
		}

		g, seen := index[partText]
		if !seen {
			bp := internal.BasePart{Row: len(groups), PartNumber: partText, Key: util.NormalizePart(raw)}
			if qty >= 0 {
				bp.Quantity = util.ParseQty(t.Cell(i, qty))
			}
			groups = append(groups, internal.OfferGroup{Base: bp})
			g = len(groups) - 1
			index[partText] = g
		}

		for _, v := range vendors {
			price, ok := util.ParsePrice(t.Cell(i, v.price), sep)
			if !ok {
				continue
			}
			var brand *string
			if b := util.NormalizeSpaces(t.Cell(i, v.brand).String()); b != "" {
				brand = util.StringPtr(b)
			}
			groups[g].Offers = append(groups[g].Offers, internal.Offer{
				PartNumber: partText,
				Key:        groups[g].Base.Key,
				Price:      price,
				Brand:      brand,
				Vendor:     v.vendor,
				Source:     t.Label,
			})
		}
	}

	for i := range groups {
		sortOffers(groups[i].Offers, internal.OrderByPrice, markers)
	}
	return groups, nil
}

func vendorPairs(headers []string) []vendorColumns {
	var out []vendorColumns
	for i, h := range headers {
		lower := strings.ToLower(strings.TrimSpace(h))
		for _, p := range comparePairs {
			if !strings.HasPrefix(lower, p[0]) {
				continue
			}
			vendor := strings.TrimSpace(h)[len(p[0]):]
			if vendor == "" {
				continue
			}
			if j := findHeader(headers, p[1]+vendor); j >= 0 {
				out = append(out, vendorColumns{vendor: vendor, price: i, brand: j})
			}
		}
	}
	return out
}

// RenderCompare writes the comparison result; topN of 1 is the best-vendor
// view. The sheet always carries topN slot triplets.
func (e Exporter) RenderCompare(groups []internal.OfferGroup, topN int) ([]byte, error) {
	if topN <= 0 {
		topN = 3
	}
	return e.Render(padSlots(Shape(groups, topN), topN))
}

func padSlots(t internal.WideTable, n int) internal.WideTable {
	if t.MaxSlots >= n {
		return t
	}
	for i := range t.Records {
		for len(t.Records[i].Slots) < n {
			t.Records[i].Slots = append(t.Records[i].Slots, internal.Slot{})
		}
	}
	t.MaxSlots = n
	return t
}
