package pipeline

import (
	"strings"

	"vpr/internal"
	"vpr/internal/source"
	"vpr/internal/util"
)

type ExtractResult struct {
	Offers  []internal.Offer
	Dropped int
}

// ExtractOffers walks the table rows in order and keeps rows that carry both
// a part number and a positive price.
func ExtractOffers(t source.Table, roles RoleMapping, vendor, label string, sep internal.DecimalSeparator) ExtractResult {
	res := ExtractResult{}
	for i := range t.Rows {
		if isEmptyRow(t.Rows[i]) {
			continue
		}
		partText := strings.TrimSpace(t.Cell(i, roles.Part).String())
		key := util.NormalizePart(cellValue(t.Cell(i, roles.Part)))
		price, ok := util.ParsePrice(t.Cell(i, roles.Price), sep)
		if !ok || key == "" {
			res.Dropped++
			continue
		}

		var brand *string
		if roles.Brand >= 0 {
			if b := util.NormalizeSpaces(t.Cell(i, roles.Brand).String()); b != "" {
				brand = util.StringPtr(b)
			}
		}
		res.Offers = append(res.Offers, internal.Offer{
			PartNumber: partText,
			Key:        key,
			Price:      price,
			Brand:      brand,
			Vendor:     vendor,
			Source:     label,
		})
	}
	return res
}

// LoadBaseParts keeps every non-empty row of the base list. A row whose part
// cell is blank stays in the output with an empty key and matches nothing.
func LoadBaseParts(t source.Table, roles RoleMapping) []internal.BasePart {
	out := make([]internal.BasePart, 0, len(t.Rows))
	for i := range t.Rows {
		if isEmptyRow(t.Rows[i]) {
			continue
		}
		cell := t.Cell(i, roles.Part)
		bp := internal.BasePart{
			Row:        len(out),
			PartNumber: strings.TrimSpace(util.ToText(cellValue(cell))),
			Key:        util.NormalizePart(cellValue(cell)),
		}
		if roles.Quantity >= 0 {
			bp.Quantity = util.ParseQty(t.Cell(i, roles.Quantity))
		}
		out = append(out, bp)
	}
	return out
}

// cellValue hands numeric cells over as floats so part numbers stored as
// numbers lose no digits and gain no ".0".
func cellValue(c source.Cell) any {
	if f, ok := c.Float(); ok {
		return f
	}
	return c.Text
}

func isEmptyRow(row []source.Cell) bool {
	for _, c := range row {
		if !c.IsBlank() {
			return false
		}
	}
	return true
}
