package source

import (
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var (
	ErrPDFDisabled = errors.New("pdf table extraction is disabled")
	ErrUnsupported = errors.New("unsupported file type")
)

type Options struct {
	PDFTables bool
}

// Skip records a part of a file that produced no tables, e.g. a disabled
// PDF attachment inside an e-mail.
type Skip struct {
	Source string
	Err    error
}

type Set struct {
	Tables  []Table
	Skipped []Skip
}

// Read turns a file into zero or more raw tables. A returned error means the
// whole file is unreadable; partial problems are reported in Set.Skipped.
func Read(f File, opts Options) (Set, error) {
	var set Set
	switch KindOf(f.Name) {
	case KindXLSX:
		t, err := ReadXLSX(f.Name, f.Data)
		if err != nil {
			return set, err
		}
		set.Tables = append(set.Tables, t)
	case KindCSV:
		t, err := ReadCSV(f.Name, f.Data)
		if err != nil {
			return set, err
		}
		set.Tables = append(set.Tables, t)
	case KindPDF:
		if !opts.PDFTables {
			set.Skipped = append(set.Skipped, Skip{Source: f.Name, Err: ErrPDFDisabled})
			return set, nil
		}
		tables, err := ReadPDF(f.Name, f.Data)
		if err != nil {
			return set, err
		}
		set.Tables = tables
	case KindHTML:
		tables, err := ReadHTML(f.Name, string(f.Data))
		if err != nil {
			return set, err
		}
		set.Tables = tables
	case KindEmail:
		return readEmail(f, opts)
	case KindLegacyXLS:
		return set, eris.Wrapf(ErrUnsupported, "%s: legacy .xls, save it as .xlsx", f.Name)
	default:
		return set, eris.Wrapf(ErrUnsupported, "%s", f.Name)
	}

	zap.L().Debug("source read", zap.String("file", f.Name), zap.Int("tables", len(set.Tables)))
	return set, nil
}
