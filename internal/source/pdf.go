package source

import (
	"bytes"
	"sort"
	"strings"

	pdf "github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	lineTolerance   = 2.0
	anchorTolerance = 4.0
)

// ReadPDF rebuilds table grids from the positioned text of a digital PDF.
// Scanned pages carry no text layer and yield nothing.
func ReadPDF(name string, content []byte) (tables []Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			tables = nil
			err = eris.Errorf("read pdf %s: %v", name, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, eris.Wrapf(err, "open pdf %s", name)
	}

	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, grid := range gridsFromTexts(p.Content().Text) {
			if t, ok := FromGrid(tableLabel(name, len(tables)+1), grid); ok {
				tables = append(tables, t)
			}
		}
	}
	zap.L().Debug("pdf tables", zap.String("file", name), zap.Int("pages", r.NumPage()), zap.Int("tables", len(tables)))
	return tables, nil
}

type pdfCell struct {
	x, end float64
	text   string
}

type pdfLine struct {
	y     float64
	cells []pdfCell
}

// gridsFromTexts groups glyph runs into lines and cells, then cuts the page
// into regions of consecutive multi-cell lines. Each region's first line
// fixes the column anchors for the rest of the region.
func gridsFromTexts(texts []pdf.Text) [][][]string {
	lines := groupLines(texts)

	var grids [][][]string
	var region []pdfLine
	flush := func() {
		if len(region) >= 2 {
			grids = append(grids, regionGrid(region))
		}
		region = nil
	}
	for _, line := range lines {
		if len(line.cells) < 2 {
			flush()
			continue
		}
		region = append(region, line)
	}
	flush()
	return grids
}

func groupLines(texts []pdf.Text) []pdfLine {
	runs := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t.S) != "" {
			runs = append(runs, t)
		}
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Y > runs[j].Y })

	var buckets [][]pdf.Text
	for _, t := range runs {
		n := len(buckets)
		if n > 0 && abs(buckets[n-1][0].Y-t.Y) < lineTolerance {
			buckets[n-1] = append(buckets[n-1], t)
			continue
		}
		buckets = append(buckets, []pdf.Text{t})
	}

	out := make([]pdfLine, 0, len(buckets))
	for _, b := range buckets {
		sort.SliceStable(b, func(i, j int) bool { return b[i].X < b[j].X })
		out = append(out, pdfLine{y: b[0].Y, cells: mergeCells(b)})
	}
	return out
}

func mergeCells(runs []pdf.Text) []pdfCell {
	var cells []pdfCell
	var sb strings.Builder
	cellX, end := 0.0, 0.0
	for i, t := range runs {
		wordGap, colGap := gaps(t.FontSize)
		gap := t.X - end
		switch {
		case i == 0:
			cellX = t.X
		case gap > colGap:
			cells = append(cells, pdfCell{x: cellX, end: end, text: strings.TrimSpace(sb.String())})
			sb.Reset()
			cellX = t.X
		case gap > wordGap:
			sb.WriteByte(' ')
		}
		sb.WriteString(t.S)
		if e := t.X + t.W; e > end || i == 0 {
			end = e
		}
	}
	if sb.Len() > 0 {
		cells = append(cells, pdfCell{x: cellX, end: end, text: strings.TrimSpace(sb.String())})
	}
	return cells
}

func gaps(fontSize float64) (word, col float64) {
	if fontSize <= 0 {
		return 2, 12
	}
	return 0.2 * fontSize, 1.2 * fontSize
}

func regionGrid(region []pdfLine) [][]string {
	anchors := region[0].cells
	header := make([]string, len(anchors))
	for i, c := range anchors {
		header[i] = c.text
	}

	grid := [][]string{header}
	for _, line := range region[1:] {
		row := make([]string, len(anchors))
		for _, c := range line.cells {
			col := columnFor(anchors, c)
			if row[col] != "" {
				row[col] += " "
			}
			row[col] += c.text
		}
		grid = append(grid, row)
	}
	return grid
}

// columnFor picks the header cell whose horizontal span is closest to the
// centre of c, so right-aligned amounts land under their header.
func columnFor(anchors []pdfCell, c pdfCell) int {
	center := (c.x + c.end) / 2
	best, bestDist := 0, -1.0
	for i, a := range anchors {
		dist := 0.0
		switch {
		case center < a.x-anchorTolerance:
			dist = a.x - center
		case center > a.end+anchorTolerance:
			dist = center - a.end
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
