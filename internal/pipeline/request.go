package pipeline

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sort"
	"strconv"
	"strings"

	"vpr/internal"
	"vpr/internal/source"
)

type BaseInput struct {
	File    source.File
	Columns ColumnOverrides
}

type SupplierInput struct {
	File    source.File
	Vendor  string
	Columns ColumnOverrides
	// Tables holds per-table overrides keyed by table label or by the
	// table's 1-based position in the file. They layer over Columns.
	Tables  map[string]ColumnOverrides
}

// ColumnsFor returns the overrides for the pos-th table (1-based) of the file.
func (s SupplierInput) ColumnsFor(label string, pos int) ColumnOverrides {
	cols := s.Columns
	if t, ok := s.Tables[label]; ok {
		return cols.Merge(t)
	}
	if t, ok := s.Tables[strconv.Itoa(pos)]; ok {
		return cols.Merge(t)
	}
	return cols
}

// VendorName is the explicit vendor label or, failing that, the file stem.
func (s SupplierInput) VendorName() string {
	if v := strings.TrimSpace(s.Vendor); v != "" {
		return v
	}
	return s.File.Stem()
}

type Options struct {
	Decimal         internal.DecimalSeparator
	Order           internal.OrderMode
	TopN            int
	PDFTables       bool
	OriginalMarkers []string
}

// Request carries every input and decision of one run. The CLI and the HTTP
// adapter only build it.
type Request struct {
	Base      BaseInput
	Suppliers []SupplierInput
	Options   Options
}

// Fingerprint hashes every input byte and every option, so two requests with
// the same fingerprint produce the same export.
func (r Request) Fingerprint() string {
	h := sha256.New()
	writeField(h, "base")
	writeFile(h, r.Base.File)
	writeColumns(h, r.Base.Columns)
	for _, s := range r.Suppliers {
		writeField(h, "supplier")
		writeFile(h, s.File)
		writeField(h, s.VendorName())
		writeColumns(h, s.Columns)
		keys := make([]string, 0, len(s.Tables))
		for k := range s.Tables {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			writeField(h, "table")
			writeField(h, k)
			writeColumns(h, s.Tables[k])
		}
	}
	o := r.Options
	writeField(h, string(o.Decimal))
	writeField(h, string(o.Order))
	writeField(h, strconv.Itoa(o.TopN))
	writeField(h, strconv.FormatBool(o.PDFTables))
	for _, m := range o.OriginalMarkers {
		writeField(h, m)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, s string) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(s)))
	h.Write(n[:])
	h.Write([]byte(s))
}

func writeFile(h hash.Hash, f source.File) {
	writeField(h, f.Name)
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(f.Data)))
	h.Write(n[:])
	h.Write(f.Data)
}

func writeColumns(h hash.Hash, c ColumnOverrides) {
	writeField(h, c.Part)
	writeField(h, c.Price)
	writeField(h, c.Brand)
	writeField(h, c.Quantity)
}
