package source

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Cell is a raw table cell. Number is set when the source stored a native
// numeric value, so it never has to be re-read from locale-formatted text.
type Cell struct {
	Text   string
	Number *float64
}

func TextCell(s string) Cell {
	return Cell{Text: s}
}

func NumberCell(f float64) Cell {
	return Cell{Text: strconv.FormatFloat(f, 'f', -1, 64), Number: &f}
}

func (c Cell) Float() (float64, bool) {
	if c.Number == nil {
		return 0, false
	}
	return *c.Number, true
}

func (c Cell) String() string {
	return c.Text
}

func (c Cell) IsBlank() bool {
	return c.Number == nil && strings.TrimSpace(c.Text) == ""
}

// Table is one rectangular-ish grid with a header row. Rows may be shorter
// than Headers.
type Table struct {
	Label   string
	Headers []string
	Rows    [][]Cell
}

func (t Table) Cell(row, col int) Cell {
	if col < 0 || row < 0 || row >= len(t.Rows) || col >= len(t.Rows[row]) {
		return Cell{}
	}
	return t.Rows[row][col]
}

// FromGrid builds a table from a string grid whose first row is the header.
// Grids with fewer than two rows carry no data and are rejected.
func FromGrid(label string, grid [][]string) (Table, bool) {
	if len(grid) < 2 {
		return Table{}, false
	}
	headers := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		headers[i] = strings.TrimSpace(h)
	}
	rows := make([][]Cell, 0, len(grid)-1)
	for _, raw := range grid[1:] {
		row := make([]Cell, len(raw))
		for i, v := range raw {
			row[i] = TextCell(strings.TrimSpace(v))
		}
		rows = append(rows, row)
	}
	return Table{Label: label, Headers: headers, Rows: rows}, true
}

type File struct {
	Name string
	Data []byte
}

// Stem is the file name without directory and extension; it is the default
// vendor label for a supplier file.
func (f File) Stem() string {
	base := filepath.Base(f.Name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type Kind string

const (
	KindXLSX      Kind = "xlsx"
	KindLegacyXLS Kind = "xls"
	KindCSV       Kind = "csv"
	KindPDF       Kind = "pdf"
	KindHTML      Kind = "html"
	KindEmail     Kind = "eml"
	KindUnknown   Kind = ""
)

func KindOf(name string) Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return KindXLSX
	case ".xls":
		return KindLegacyXLS
	case ".csv", ".tsv", ".txt":
		return KindCSV
	case ".pdf":
		return KindPDF
	case ".html", ".htm":
		return KindHTML
	case ".eml":
		return KindEmail
	default:
		return KindUnknown
	}
}

func tableLabel(file string, index int) string {
	return file + " :: table " + strconv.Itoa(index)
}
