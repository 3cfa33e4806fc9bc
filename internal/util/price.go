package util

import (
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"vpr/internal"
)

var priceRunPattern = regexp.MustCompile(`[\d\s\x{00A0}\x{202F}.,]+`)

// NumericCell is implemented by typed cells that may carry a native number.
type NumericCell interface {
	Float() (float64, bool)
	String() string
}

// ParsePrice returns a strictly positive amount or false. Zero, negative and
// unreadable values never become prices.
func ParsePrice(raw any, sep internal.DecimalSeparator) (decimal.Decimal, bool) {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero, false
	case float64:
		return positiveFloat(v)
	case float32:
		return positiveFloat(float64(v))
	case int:
		return positiveFloat(float64(v))
	case int64:
		return positiveFloat(float64(v))
	case decimal.Decimal:
		if !v.IsPositive() {
			return decimal.Zero, false
		}
		return v, true
	case *float64:
		if v == nil {
			return decimal.Zero, false
		}
		return positiveFloat(*v)
	case NumericCell:
		if f, ok := v.Float(); ok {
			return positiveFloat(f)
		}
		return parsePriceText(v.String(), sep)
	case string:
		return parsePriceText(v, sep)
	default:
		return parsePriceText(ToText(v), sep)
	}
}

func positiveFloat(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

func parsePriceText(s string, sep internal.DecimalSeparator) (decimal.Decimal, bool) {
	run, negative := longestNumeralRun(s)
	if run == "" || negative {
		return decimal.Zero, false
	}
	num := reSpaces.ReplaceAllString(run, "")

	if sep == internal.DecimalPoint {
		num = strings.ReplaceAll(num, ",", "")
	} else {
		if idx := strings.LastIndex(num, ","); idx >= 0 {
			intPart := strings.NewReplacer(",", "", ".", "").Replace(num[:idx])
			num = intPart + "." + num[idx+1:]
		} else {
			num = strings.ReplaceAll(num, ".", "")
		}
	}

	num = strings.TrimSuffix(num, ".")
	if strings.HasPrefix(num, ".") {
		num = "0" + num
	}
	if num == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(num)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// longestNumeralRun also reports whether the run is directly preceded by a
// minus sign.
func longestNumeralRun(s string) (string, bool) {
	best, start := "", -1
	for _, loc := range priceRunPattern.FindAllStringIndex(s, -1) {
		m := s[loc[0]:loc[1]]
		if !strings.ContainsAny(m, "0123456789") {
			continue
		}
		if len(m) > len(best) {
			best, start = m, loc[0]
		}
	}
	if start <= 0 {
		return best, false
	}
	prefix := strings.TrimRight(s[:start], " ")
	return best, strings.HasSuffix(prefix, "-") || strings.HasSuffix(prefix, "\u2212")
}
