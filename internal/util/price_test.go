package util

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"vpr/internal"
)

type fakeCell struct {
	text   string
	number *float64
}

func (c fakeCell) Float() (float64, bool) {
	if c.number == nil {
		return 0, false
	}
	return *c.number, true
}

func (c fakeCell) String() string { return c.text }

func TestParsePrice(t *testing.T) {
	cases := []struct {
		name  string
		input any
		sep   internal.DecimalSeparator
		want  string
	}{
		{name: "comma decimal with space thousands", input: "1 234,56", sep: internal.DecimalComma, want: "1234.56"},
		{name: "point decimal with comma thousands", input: "1,234.56", sep: internal.DecimalPoint, want: "1234.56"},
		{name: "nbsp thousands", input: "12 500,00 руб.", sep: internal.DecimalComma, want: "12500"},
		{name: "dots as thousands with comma sep", input: "1.234,50", sep: internal.DecimalComma, want: "1234.5"},
		{name: "no comma with comma sep strips dots", input: "1.234", sep: internal.DecimalComma, want: "1234"},
		{name: "currency prefix", input: "Цена: 99,90", sep: internal.DecimalComma, want: "99.9"},
		{name: "longest run wins", input: "2 шт по 1 500,00", sep: internal.DecimalComma, want: "1500"},
		{name: "leading fraction", input: ".5", sep: internal.DecimalPoint, want: "0.5"},
		{name: "native float", input: 80.0, sep: internal.DecimalComma, want: "80"},
		{name: "native int", input: 100, sep: internal.DecimalPoint, want: "100"},
		{name: "numeric cell ignores separator", input: fakeCell{text: "1234.5", number: FloatPtr(1234.5)}, sep: internal.DecimalComma, want: "1234.5"},
		{name: "text cell", input: fakeCell{text: "15,25"}, sep: internal.DecimalComma, want: "15.25"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParsePrice(tc.input, tc.sep)
			assert.True(t, ok)
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestParsePriceAbsent(t *testing.T) {
	seps := []internal.DecimalSeparator{internal.DecimalComma, internal.DecimalPoint}
	inputs := []any{
		"0", "0,00", -5, -5.0, 0, nil, "", "по запросу", " ", "-15,00", "1.234.56x",
		math.NaN(), math.Inf(1), decimal.Zero, (*float64)(nil),
	}
	for _, sep := range seps {
		for _, in := range inputs {
			if in == "1.234.56x" && sep == internal.DecimalComma {
				continue
			}
			_, ok := ParsePrice(in, sep)
			assert.False(t, ok, "input %#v sep %s", in, sep)
		}
	}
}
