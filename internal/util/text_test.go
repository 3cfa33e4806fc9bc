package util

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePart(t *testing.T) {
	cases := []struct {
		input any
		want  string
	}{
		{input: "AB-12", want: "AB12"},
		{input: " ab 12 ", want: "AB12"},
		{input: "0986.452.041", want: "0986452041"},
		{input: "ＡＢ－１２", want: "AB12"},
		{input: "ВАЗ-2101", want: "2101"},
		{input: 12345.0, want: "12345"},
		{input: 42, want: "42"},
		{input: nil, want: ""},
		{input: "--//", want: ""},
		{input: decimal.RequireFromString("10.5"), want: "105"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizePart(tc.input), "input %v", tc.input)
	}
}

func TestNormalizePartIdempotent(t *testing.T) {
	inputs := []string{"AB-12", "x_y.z 9", "ÄÖÜ-ß 77", "ＡＢ１２", "", "  ", "a b", "Ⅻ-1", "ﬁ-2"}
	for _, in := range inputs {
		once := NormalizePart(in)
		assert.Equal(t, once, NormalizePart(once), "input %q", in)
		for _, r := range once {
			assert.True(t, (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'), "unexpected rune %q in %q", r, once)
		}
	}
}

func TestNormalizeSpaces(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeSpaces("  a   b\t\nc "))
}
