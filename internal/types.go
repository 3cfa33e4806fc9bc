package internal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type DecimalSeparator string

const (
	DecimalComma DecimalSeparator = ","
	DecimalPoint DecimalSeparator = "."
)

func ParseDecimalSeparator(value string) (DecimalSeparator, error) {
	switch strings.TrimSpace(value) {
	case "", ",", "comma":
		return DecimalComma, nil
	case ".", "point", "period", "dot":
		return DecimalPoint, nil
	default:
		return "", fmt.Errorf("unsupported decimal separator: %q", value)
	}
}

type OrderMode string

const (
	OrderByPrice        OrderMode = "price"
	OrderAnalogsFirst   OrderMode = "analogs-first"
	OrderOriginalsFirst OrderMode = "originals-first"
)

func ParseOrderMode(value string) (OrderMode, error) {
	switch OrderMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", OrderByPrice:
		return OrderByPrice, nil
	case OrderAnalogsFirst:
		return OrderAnalogsFirst, nil
	case OrderOriginalsFirst:
		return OrderOriginalsFirst, nil
	default:
		return "", fmt.Errorf("unsupported order mode: %q", value)
	}
}

// BasePart is one row of the buyer's part list. Identity is the row position,
// Key is the join key.
type BasePart struct {
	Row        int
	PartNumber string
	Key        string
	Quantity   *float64
}

type Offer struct {
	PartNumber string
	Key        string
	Price      decimal.Decimal
	Brand      *string
	Vendor     string
	Source     string
}

type OfferGroup struct {
	Base   BasePart
	Offers []Offer
}

// Slot is one Price/Vendor/Brand triplet of a wide record. Filled == false
// marks an unused trailing slot.
type Slot struct {
	Filled bool
	Price  decimal.Decimal
	Vendor string
	Brand  *string
}

type WideRecord struct {
	PartNumber string
	Quantity   *float64
	Slots      []Slot
}

type WideTable struct {
	MaxSlots int
	Records  []WideRecord
}

const (
	ColumnPartNumber = "PartNumber"
	ColumnQuantity   = "Quantity"
	ColumnPrice      = "Price"
	ColumnVendor     = "Vendor"
	ColumnBrand      = "Brand"
)

func (t WideTable) Header() []string {
	out := make([]string, 0, 2+3*t.MaxSlots)
	out = append(out, ColumnPartNumber, ColumnQuantity)
	for i := 1; i <= t.MaxSlots; i++ {
		out = append(out,
			fmt.Sprintf("%s_%d", ColumnPrice, i),
			fmt.Sprintf("%s_%d", ColumnVendor, i),
			fmt.Sprintf("%s_%d", ColumnBrand, i),
		)
	}
	return out
}

// Values flattens the record into cells; absent cells are nil.
func (r WideRecord) Values() []any {
	out := make([]any, 0, 2+3*len(r.Slots))
	out = append(out, r.PartNumber)
	if r.Quantity != nil {
		out = append(out, *r.Quantity)
	} else {
		out = append(out, nil)
	}
	for _, s := range r.Slots {
		if !s.Filled {
			out = append(out, nil, nil, nil)
			continue
		}
		var brand any
		if s.Brand != nil {
			brand = *s.Brand
		}
		out = append(out, s.Price, s.Vendor, brand)
	}
	return out
}

type IssueKind string

const (
	IssueMalformedInput     IssueKind = "malformed_input"
	IssueUnparseableCell    IssueKind = "unparseable_cell"
	IssueDegradedCapability IssueKind = "degraded_capability"
	IssueNoMatches          IssueKind = "no_matches"
	IssueSourceFailed       IssueKind = "source_failed"
	IssueNoPrices           IssueKind = "no_prices"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue is a user-facing message tied to a file or table of the run.
type Issue struct {
	Kind     IssueKind `json:"kind"`
	Severity Severity  `json:"severity"`
	Source   string    `json:"source,omitempty"`
	Message  string    `json:"message"`
}

func (i Issue) String() string {
	if i.Source != "" {
		return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Source, i.Message)
	}
	return fmt.Sprintf("[%s] %s", i.Severity, i.Message)
}

var ErrMalformedInput = errors.New("malformed input")
