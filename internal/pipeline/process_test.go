package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"vpr/internal"
	"vpr/internal/source"
)

func sampleRequest(t *testing.T) Request {
	t.Helper()
	base := mkXLSX(t, [][]any{
		{"Артикул", "Кол-во"},
		{"AB-12", 5},
		{"ZZ-99", "2 шт"},
	})
	alpha := mkXLSX(t, [][]any{
		{"Код", "Наименование", "Цена, руб", "Производитель"},
		{"ab12", "Фильтр", "100,00", "Оригинал"},
		{"QQ-1", "Ремень", "15", "Gates"},
	})
	beta := mkXLSX(t, [][]any{
		{"Part", "Price", "Brand"},
		{"AB 12", 80.0, "Febi"},
		{"AB-12", 0, "Febi"},
	})
	return Request{
		Base: BaseInput{File: source.File{Name: "base.xlsx", Data: base}},
		Suppliers: []SupplierInput{
			{File: source.File{Name: "alpha.xlsx", Data: alpha}},
			{File: source.File{Name: "beta.xlsx", Data: beta}, Vendor: "Beta Ltd"},
		},
		Options: Options{Decimal: internal.DecimalComma, Order: internal.OrderByPrice, PDFTables: true},
	}
}

func TestServiceRun(t *testing.T) {
	svc := testService(t)

	res, err := svc.Run(context.Background(), sampleRequest(t))
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Empty(t, res.Issues)

	require.Len(t, res.Groups, 2)
	ab := res.Groups[0]
	assert.Equal(t, "AB-12", ab.Base.PartNumber)
	require.NotNil(t, ab.Base.Quantity)
	assert.Equal(t, 5.0, *ab.Base.Quantity)
	assert.Equal(t, []string{"80", "100"}, prices(ab.Offers))
	assert.Equal(t, "Beta Ltd", ab.Offers[0].Vendor)
	assert.Equal(t, "alpha", ab.Offers[1].Vendor)
	assert.Empty(t, res.Groups[1].Offers)

	assert.Equal(t, 2, res.Table.MaxSlots)
	for _, r := range res.Table.Records {
		assert.Len(t, r.Values(), 2+3*res.Table.MaxSlots)
	}

	require.Len(t, res.Tables, 2)
	assert.Equal(t, "Код", res.Tables[0].Part)
	assert.Equal(t, "Цена, руб", res.Tables[0].Price)
	assert.Equal(t, "Производитель", res.Tables[0].Brand)
	assert.Equal(t, 1, res.Tables[1].Dropped)

	assert.Equal(t, 2, res.Summary.BaseParts)
	assert.Equal(t, 1, res.Summary.MatchedParts)
	assert.Equal(t, 3, res.Summary.Offers)
	assert.Equal(t, 2, res.Summary.MatchedOffers)
	assert.Equal(t, 25.0, res.Summary.MedianSpreadPct)
}

func TestServiceRunMalformedBase(t *testing.T) {
	svc := testService(t)

	tests := []struct {
		name string
		req  Request
	}{
		{"unreadable", Request{Base: BaseInput{File: source.File{Name: "base.xlsx", Data: []byte("nope")}}}},
		{"legacy xls", Request{Base: BaseInput{File: source.File{Name: "base.xls", Data: []byte{0}}}}},
		{"header only", Request{Base: BaseInput{File: source.File{Name: "base.csv", Data: []byte("Артикул;Кол-во\n")}}}},
		{"missing column", Request{Base: BaseInput{
			File:    source.File{Name: "base.csv", Data: []byte("Артикул;Кол-во\nA1;2\n")},
			Columns: ColumnOverrides{Part: "Номер"},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Run(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, internal.ErrMalformedInput), err.Error())
		})
	}
}

func TestServiceRunIssues(t *testing.T) {
	svc := testService(t)
	req := sampleRequest(t)
	req.Options.PDFTables = false
	req.Suppliers = []SupplierInput{
		{File: source.File{Name: "gamma.pdf", Data: []byte("%PDF-1.4")}},
		{File: source.File{Name: "delta.xls", Data: []byte{0}}},
		{File: source.File{Name: "empty.csv", Data: []byte("part;price\nAB-12;по запросу\n")}},
		{File: source.File{Name: "cols.csv", Data: []byte("part;price\nAB-12;5\n")}, Columns: ColumnOverrides{Brand: "Бренд"}},
	}

	res, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	kinds := map[internal.IssueKind]string{}
	for _, is := range res.Issues {
		kinds[is.Kind] = is.Source
	}
	assert.Equal(t, "gamma.pdf", kinds[internal.IssueDegradedCapability])
	assert.Equal(t, "empty.csv", kinds[internal.IssueNoPrices])
	assert.Contains(t, kinds, internal.IssueSourceFailed)
	assert.Contains(t, kinds, internal.IssueNoMatches)

	assert.Len(t, res.Table.Records, 2)
	assert.Equal(t, 0, res.Table.MaxSlots)
}

func TestServiceRunCancelled(t *testing.T) {
	svc := testService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Run(ctx, sampleRequest(t))
	require.ErrorIs(t, err, context.Canceled)
}

func TestServiceExportMemo(t *testing.T) {
	svc := testService(t)
	req := sampleRequest(t)

	first, res1, err := svc.Export(context.Background(), req)
	require.NoError(t, err)
	second, res2, err := svc.Export(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first, second))
	assert.Equal(t, res1.RunID, res2.RunID)

	other := req
	other.Options.TopN = 1
	third, _, err := svc.Export(context.Background(), other)
	require.NoError(t, err)
	assert.False(t, bytes.Equal(first, third))

	f, err := excelize.OpenReader(bytes.NewReader(first))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, []string{DefaultSheetName}, f.GetSheetList())

	rows, err := f.GetRows(DefaultSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"PartNumber", "Quantity", "Price_1", "Vendor_1", "Brand_1", "Price_2", "Vendor_2", "Brand_2"}, rows[0])
	assert.Equal(t, "AB-12", rows[1][0])
	assert.Equal(t, "Beta Ltd", rows[1][3])
	assert.Equal(t, "ZZ-99", rows[2][0])

	panes, err := f.GetPanes(DefaultSheetName)
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, "B2", panes.TopLeftCell)

	boldID, err := f.GetCellStyle(DefaultSheetName, "H2")
	require.NoError(t, err)
	style, err := f.GetStyle(boldID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
}

func TestFingerprint(t *testing.T) {
	a := sampleRequest(t)
	b := a
	b.Suppliers = append([]SupplierInput(nil), a.Suppliers...)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.Suppliers[0].Vendor = "Other"
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())

	c := a
	c.Options.Decimal = internal.DecimalPoint
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

const twoTableHTML = `<html><body>
<table><tr><th>Код</th><th>Цена</th><th>Опт</th></tr><tr><td>AB12</td><td>120</td><td>90</td></tr></table>
<table><tr><th>Код</th><th>Цена</th><th>Цена со скидкой</th></tr><tr><td>AB12</td><td>500</td><td>70</td></tr></table>
</body></html>`

func TestServiceRunColumnsPerTable(t *testing.T) {
	svc := testService(t)
	req := Request{
		Base:    BaseInput{File: source.File{Name: "base.csv", Data: []byte("Артикул\nAB-12\n")}},
		Options: svc.DefaultOptions(),
		Suppliers: []SupplierInput{{
			File: source.File{Name: "prices.html", Data: []byte(twoTableHTML)},
			Tables: map[string]ColumnOverrides{
				"1":                      {Price: "Опт"},
				"prices.html :: table 2": {Price: "Цена со скидкой"},
			},
		}},
	}

	res, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, res.Issues)
	require.Len(t, res.Tables, 2)
	assert.Equal(t, "Опт", res.Tables[0].Price)
	assert.Equal(t, "Цена со скидкой", res.Tables[1].Price)
	assert.Equal(t, []string{"70", "90"}, prices(res.Groups[0].Offers))

	// one shared override that fits only the first table
	req.Suppliers[0].Tables = nil
	req.Suppliers[0].Columns = ColumnOverrides{Price: "Опт"}
	res, err = svc.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, internal.IssueSourceFailed, res.Issues[0].Kind)
	assert.Equal(t, "prices.html :: table 2", res.Issues[0].Source)
}

func TestSupplierColumnsFor(t *testing.T) {
	in := SupplierInput{
		Columns: ColumnOverrides{Part: "Код", Price: "Цена"},
		Tables: map[string]ColumnOverrides{
			"2":                {Price: "Опт"},
			"f.pdf :: table 3": {Brand: "Марка"},
		},
	}
	assert.Equal(t, ColumnOverrides{Part: "Код", Price: "Цена"}, in.ColumnsFor("f.pdf :: table 1", 1))
	assert.Equal(t, ColumnOverrides{Part: "Код", Price: "Опт"}, in.ColumnsFor("f.pdf :: table 2", 2))
	assert.Equal(t, ColumnOverrides{Part: "Код", Price: "Цена", Brand: "Марка"}, in.ColumnsFor("f.pdf :: table 3", 3))
}

func TestFingerprintTableOverrides(t *testing.T) {
	a := sampleRequest(t)
	b := a
	b.Suppliers = append([]SupplierInput(nil), a.Suppliers...)
	b.Suppliers[0].Tables = map[string]ColumnOverrides{"1": {Price: "Опт"}}
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}
