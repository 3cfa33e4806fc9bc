package pipeline

import (
	"strings"

	"github.com/rotisserie/eris"

	"vpr/internal"
)

type Role string

const (
	RolePart     Role = "part"
	RolePrice    Role = "price"
	RoleBrand    Role = "brand"
	RoleQuantity Role = "quantity"
)

// NoColumn in an override explicitly disables an optional role.
const NoColumn = "-"

var DefaultHints = map[Role][]string{
	RolePart:     {"артикул", "код", "sku", "part", "номер"},
	RolePrice:    {"цена", "price", "стоим", "cost"},
	RoleBrand:    {"производ", "бренд", "brand", "maker"},
	RoleQuantity: {"кол-во", "количество", "qty", "колич", "quantity"},
}

// RoleMapping holds column indices resolved once per table; -1 means the
// role is not present.
type RoleMapping struct {
	Part     int
	Price    int
	Brand    int
	Quantity int
}

// ColumnOverrides carries header names picked by the operator. Empty means
// "use the suggestion".
type ColumnOverrides struct {
	Part     string `yaml:"part_column" json:"part_column,omitempty"`
	Price    string `yaml:"price_column" json:"price_column,omitempty"`
	Brand    string `yaml:"brand_column" json:"brand_column,omitempty"`
	Quantity string `yaml:"qty_column" json:"qty_column,omitempty"`
}

// Merge returns c with every non-empty field of o applied on top.
func (c ColumnOverrides) Merge(o ColumnOverrides) ColumnOverrides {
	if o.Part != "" {
		c.Part = o.Part
	}
	if o.Price != "" {
		c.Price = o.Price
	}
	if o.Brand != "" {
		c.Brand = o.Brand
	}
	if o.Quantity != "" {
		c.Quantity = o.Quantity
	}
	return c
}

// SuggestColumn returns the first header containing a hint, trying hints in
// priority order and headers in column order.
func SuggestColumn(headers []string, hints []string) (int, bool) {
	lower := make([]string, len(headers))
	for i, h := range headers {
		lower[i] = strings.ToLower(strings.TrimSpace(h))
	}
	for _, hint := range hints {
		for i, h := range lower {
			if strings.Contains(h, hint) {
				return i, true
			}
		}
	}
	return -1, false
}

func findHeader(headers []string, name string) int {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range headers {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i
		}
	}
	return -1
}

func resolveRole(headers []string, role Role, override string, hints map[Role][]string) (int, error) {
	switch strings.TrimSpace(override) {
	case "":
		idx, _ := SuggestColumn(headers, hints[role])
		return idx, nil
	case NoColumn:
		return -1, nil
	}
	idx := findHeader(headers, override)
	if idx < 0 {
		return -1, eris.Wrapf(internal.ErrMalformedInput, "column %q (%s) not found", override, role)
	}
	return idx, nil
}

// ResolveSupplierRoles maps a supplier table. Part and price fall back to the
// first and second column when nothing matches.
func ResolveSupplierRoles(headers []string, o ColumnOverrides, hints map[Role][]string) (RoleMapping, error) {
	m := RoleMapping{Part: -1, Price: -1, Brand: -1, Quantity: -1}
	if len(headers) == 0 {
		return m, eris.Wrap(internal.ErrMalformedInput, "table has no columns")
	}

	var err error
	if m.Part, err = resolveRole(headers, RolePart, o.Part, hints); err != nil {
		return m, err
	}
	if m.Price, err = resolveRole(headers, RolePrice, o.Price, hints); err != nil {
		return m, err
	}
	if m.Brand, err = resolveRole(headers, RoleBrand, o.Brand, hints); err != nil {
		return m, err
	}

	if m.Part < 0 {
		m.Part = 0
	}
	if m.Price < 0 {
		m.Price = 0
		if len(headers) > 1 {
			m.Price = 1
		}
	}
	return m, nil
}

// ResolveBaseRoles maps the base list: part number (first column fallback)
// and an optional quantity column.
func ResolveBaseRoles(headers []string, o ColumnOverrides, hints map[Role][]string) (RoleMapping, error) {
	m := RoleMapping{Part: -1, Price: -1, Brand: -1, Quantity: -1}
	if len(headers) == 0 {
		return m, eris.Wrap(internal.ErrMalformedInput, "base list has no columns")
	}

	var err error
	if m.Part, err = resolveRole(headers, RolePart, o.Part, hints); err != nil {
		return m, err
	}
	if m.Quantity, err = resolveRole(headers, RoleQuantity, o.Quantity, hints); err != nil {
		return m, err
	}
	if m.Part < 0 {
		m.Part = 0
	}
	return m, nil
}

func columnName(headers []string, idx int) string {
	if idx < 0 || idx >= len(headers) {
		return ""
	}
	return headers[idx]
}
