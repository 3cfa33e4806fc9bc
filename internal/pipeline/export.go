package pipeline

import (
	"fmt"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"vpr/internal"
)

const (
	DefaultSheetName = "VPR"
	ExportFileName   = "vpr_wide_by_base.xlsx"
	priceFormat      = "#,##0.00"
)

// Exporter writes a wide table as a styled workbook.
type Exporter struct {
	SheetName       string
	OriginalMarkers []string
}

func (e Exporter) Render(t internal.WideTable) ([]byte, error) {
	rows := make([][]any, 0, len(t.Records))
	for _, r := range t.Records {
		rows = append(rows, r.Values())
	}
	markers := e.OriginalMarkers
	if markers == nil {
		markers = DefaultOriginalMarkers
	}
	bold := func(col int, v any) bool {
		s, ok := v.(string)
		return ok && isBrandColumn(col) && IsOriginal(&s, markers)
	}
	return renderSheet(e.sheet(), t.Header(), rows, bold)
}

// isBrandColumn reports whether col holds a Brand_i cell of the wide layout:
// PartNumber, Quantity, then Price_i, Vendor_i, Brand_i per slot.
func isBrandColumn(col int) bool {
	return col >= 2 && (col-2)%3 == 2
}

func (e Exporter) sheet() string {
	if e.SheetName == "" {
		return DefaultSheetName
	}
	return e.SheetName
}

// renderSheet writes header and rows into a single-sheet workbook. Decimal
// values become numeric cells with the price format; cells for which bold
// returns true are set in bold.
func renderSheet(sheet string, header []string, rows [][]any, bold func(col int, v any) bool) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, eris.Wrap(err, "rename sheet")
	}

	priceFmt := priceFormat
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, eris.Wrap(err, "header style")
	}
	priceStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &priceFmt})
	if err != nil {
		return nil, eris.Wrap(err, "price style")
	}
	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, eris.Wrap(err, "bold style")
	}

	widths := make([]int, len(header))
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, eris.Wrapf(err, "set %s", cell)
		}
		widths[i] = utf8.RuneCountInString(h)
	}
	if len(header) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(header), 1)
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return nil, eris.Wrap(err, "style header")
		}
	}

	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			style := 0
			text := fmt.Sprint(v)
			switch val := v.(type) {
			case decimal.Decimal:
				v = val.InexactFloat64()
				text = val.StringFixed(2)
				style = priceStyle
			default:
				if bold != nil && bold(c, v) {
					style = boldStyle
				}
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, eris.Wrapf(err, "set %s", cell)
			}
			if style != 0 {
				if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
					return nil, eris.Wrapf(err, "style %s", cell)
				}
			}
			if c < len(widths) {
				if n := utf8.RuneCountInString(text); n > widths[c] {
					widths[c] = n
				}
			}
		}
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, float64(w+2)); err != nil {
			return nil, eris.Wrapf(err, "width %s", col)
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      1,
		TopLeftCell: "B2",
		ActivePane:  "bottomRight",
	}); err != nil {
		return nil, eris.Wrap(err, "freeze panes")
	}

	if len(header) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(header), len(rows)+1)
		if err := f.AutoFilter(sheet, "A1:"+last, nil); err != nil {
			return nil, eris.Wrap(err, "auto filter")
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, eris.Wrap(err, "write workbook")
	}
	return buf.Bytes(), nil
}
