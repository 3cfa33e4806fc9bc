package source

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/rotisserie/eris"
)

// ReadCSV reads a delimited text export. The delimiter is picked from the
// header line among ';', tab and ','.
func ReadCSV(name string, content []byte) (Table, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(content))
	r.Comma = sniffDelimiter(content)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return Table{}, eris.Wrapf(err, "read csv %s", name)
	}

	grid := make([][]string, 0, len(records))
	for _, rec := range records {
		if isBlankRow(rec) {
			continue
		}
		grid = append(grid, rec)
	}
	if len(grid) == 0 {
		return Table{}, eris.Errorf("csv %s is empty", name)
	}
	if len(grid) == 1 {
		return Table{Label: name, Headers: trimAll(grid[0])}, nil
	}
	t, _ := FromGrid(name, grid)
	return t, nil
}

func sniffDelimiter(content []byte) rune {
	line := string(content)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	best, bestCount := ',', 0
	for _, d := range []rune{';', '\t', ','} {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
