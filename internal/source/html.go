package source

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"vpr/internal/util"
)

// ReadHTML extracts every <table> with a header row and at least one data row.
func ReadHTML(name, html string) ([]Table, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrapf(err, "parse html %s", name)
	}

	out := []Table{}
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		grid := [][]string{}
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := []string{}
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, util.NormalizeSpaces(cell.Text()))
			})
			if len(cells) > 0 && !isBlankRow(cells) {
				grid = append(grid, cells)
			}
		})
		if t, ok := FromGrid(tableLabel(name, len(out)+1), grid); ok {
			out = append(out, t)
		}
	})
	return out, nil
}
