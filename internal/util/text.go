package util

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

var reSpaces = regexp.MustCompile(`[\s\x{00A0}\x{202F}]+`)

// NormalizePart turns any part-number cell into the join key: upper-case
// ASCII letters and digits only. Two differently formatted identifiers that
// fold to the same key are treated as the same part.
func NormalizePart(raw any) string {
	s := norm.NFKC.String(ToText(raw))
	s = strings.ToUpper(s)
	out := strings.Builder{}
	out.Grow(len(s))
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out.WriteRune(r)
		}
	}
	return out.String()
}

// ToText coerces a scalar cell value to its display string.
func ToText(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return formatFloat(v)
	case float32:
		return formatFloat(float64(v))
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case decimal.Decimal:
		return v.String()
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

func StringPtr(v string) *string {
	return &v
}

func FloatPtr(v float64) *float64 {
	return &v
}
