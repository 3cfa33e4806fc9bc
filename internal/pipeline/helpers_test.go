package pipeline

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"vpr/internal"
	"vpr/internal/config"
	"vpr/internal/source"
)

func mkXLSX(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func mkTable(headers []string, rows ...[]string) source.Table {
	grid := append([][]string{headers}, rows...)
	t, _ := source.FromGrid("test", grid)
	return t
}

func offer(key, price, vendor string, brand *string) internal.Offer {
	return internal.Offer{PartNumber: key, Key: key, Price: decimal.RequireFromString(price), Vendor: vendor, Brand: brand}
}

func prices(offers []internal.Offer) []string {
	out := make([]string, len(offers))
	for i, o := range offers {
		out[i] = o.Price.String()
	}
	return out
}

func testService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(config.Config{
		DecimalSeparator: internal.DecimalComma,
		Order:            internal.OrderByPrice,
		PDFTables:        true,
		OriginalMarkers:  DefaultOriginalMarkers,
		SheetName:        DefaultSheetName,
		ExportCacheSize:  4,
	})
	require.NoError(t, err)
	return svc
}
