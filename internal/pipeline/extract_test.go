package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vpr/internal"
	"vpr/internal/source"
)

func TestExtractOffers(t *testing.T) {
	table := mkTable([]string{"Артикул", "Цена", "Бренд"},
		[]string{"AB-12", "1 234,56", " OEM "},
		[]string{"CD 7", "0", "X"},
		[]string{"", "100", "X"},
		[]string{"EF/9", "по запросу", ""},
		[]string{"", "", ""},
		[]string{"ab12", "80", ""},
	)
	roles := RoleMapping{Part: 0, Price: 1, Brand: 2, Quantity: -1}

	res := ExtractOffers(table, roles, "Alpha", "alpha.xlsx", internal.DecimalComma)
	require.Len(t, res.Offers, 2)
	assert.Equal(t, 3, res.Dropped)

	first := res.Offers[0]
	assert.Equal(t, "AB-12", first.PartNumber)
	assert.Equal(t, "AB12", first.Key)
	assert.Equal(t, "1234.56", first.Price.String())
	require.NotNil(t, first.Brand)
	assert.Equal(t, "OEM", *first.Brand)
	assert.Equal(t, "Alpha", first.Vendor)
	assert.Equal(t, "alpha.xlsx", first.Source)

	assert.Equal(t, "AB12", res.Offers[1].Key)
	assert.Nil(t, res.Offers[1].Brand)
}

func TestExtractOffersNumericCells(t *testing.T) {
	table := source.Table{
		Headers: []string{"Part", "Price"},
		Rows: [][]source.Cell{
			{source.NumberCell(12345), source.NumberCell(1234.5)},
		},
	}
	res := ExtractOffers(table, RoleMapping{Part: 0, Price: 1, Brand: -1, Quantity: -1}, "V", "v", internal.DecimalComma)
	require.Len(t, res.Offers, 1)
	assert.Equal(t, "12345", res.Offers[0].Key)
	assert.Equal(t, "1234.5", res.Offers[0].Price.String())
}

func TestLoadBaseParts(t *testing.T) {
	table := mkTable([]string{"Артикул", "Кол-во"},
		[]string{"AB-12", "5 шт"},
		[]string{"", ""},
		[]string{"", "3"},
		[]string{"CD-7", "много"},
	)
	parts := LoadBaseParts(table, RoleMapping{Part: 0, Price: -1, Brand: -1, Quantity: 1})
	require.Len(t, parts, 3)

	assert.Equal(t, "AB-12", parts[0].PartNumber)
	assert.Equal(t, "AB12", parts[0].Key)
	require.NotNil(t, parts[0].Quantity)
	assert.Equal(t, 5.0, *parts[0].Quantity)

	assert.Equal(t, "", parts[1].Key)
	assert.Equal(t, 1, parts[1].Row)

	assert.Nil(t, parts[2].Quantity)
	assert.Equal(t, 2, parts[2].Row)
}
