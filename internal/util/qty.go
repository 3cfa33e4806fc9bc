package util

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	qtyNumberPattern = regexp.MustCompile(`(\d{1,3}(?:[\s\x{00A0}]\d{3})+|\d+(?:[.,]\d+)?)`)
	thousandsDot     = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
	thousandsComma   = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
)

// ParseQty reads a base-list quantity cell such as 10, "12 шт" or "1 000".
// The first number in the cell wins; nil when there is none.
func ParseQty(raw any) *float64 {
	if n, ok := raw.(NumericCell); ok {
		if f, ok := n.Float(); ok {
			return finiteQty(f)
		}
		raw = n.String()
	}
	switch v := raw.(type) {
	case nil:
		return nil
	case float64:
		return finiteQty(v)
	case int:
		return finiteQty(float64(v))
	}

	line := strings.TrimSpace(strings.ReplaceAll(ToText(raw), "\u00A0", " "))
	if line == "" {
		return nil
	}

	token := qtyNumberPattern.FindString(line)
	if token == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(normalizeNumericToken(token), 64)
	if err != nil {
		return nil
	}
	return FloatPtr(parsed)
}

func finiteQty(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return FloatPtr(f)
}

func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	if thousandsDot.MatchString(compact) {
		return strings.ReplaceAll(compact, ".", "")
	}
	if thousandsComma.MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	if strings.Contains(compact, ",") && !strings.Contains(compact, ".") {
		return strings.ReplaceAll(compact, ",", ".")
	}
	return compact
}
