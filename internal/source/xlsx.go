package source

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
)

// ReadXLSX reads the first worksheet. The first non-empty row is the header.
func ReadXLSX(name string, content []byte) (Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return Table{}, eris.Wrapf(err, "open workbook %s", name)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, eris.Errorf("workbook %s has no sheets", name)
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return Table{}, eris.Wrapf(err, "read sheet %s of %s", sheet, name)
	}

	t := Table{Label: name}
	headerFound := false
	for i, row := range rows {
		if isBlankRow(row) {
			continue
		}
		if !headerFound {
			t.Headers = make([]string, len(row))
			for j, h := range row {
				t.Headers[j] = strings.TrimSpace(h)
			}
			headerFound = true
			continue
		}

		cells := make([]Cell, len(row))
		for j, raw := range row {
			cells[j] = xlsxCell(f, sheet, i+1, j+1, raw)
		}
		t.Rows = append(t.Rows, cells)
	}
	if !headerFound {
		return Table{}, eris.Errorf("sheet %s of %s is empty", sheet, name)
	}
	return t, nil
}

func xlsxCell(f *excelize.File, sheet string, row, col int, raw string) Cell {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Cell{}
	}
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return TextCell(raw)
	}
	typ, err := f.GetCellType(sheet, ref)
	if err != nil {
		return TextCell(raw)
	}
	if typ == excelize.CellTypeNumber || typ == excelize.CellTypeUnset {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return Cell{Text: raw, Number: &v}
		}
	}
	return TextCell(raw)
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
