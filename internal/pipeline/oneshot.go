package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"vpr/internal"
	"vpr/internal/source"
)

// Manifest is a batch description on disk. Relative paths resolve against
// the manifest's directory.
type Manifest struct {
	Decimal   string             `yaml:"decimal"`
	Order     string             `yaml:"order"`
	Top       int                `yaml:"top"`
	PDF       *bool              `yaml:"pdf"`
	Base      ManifestBase       `yaml:"base"`
	Suppliers []ManifestSupplier `yaml:"suppliers"`
}

type ManifestBase struct {
	Path            string `yaml:"path"`
	ColumnOverrides `yaml:",inline"`
}

type ManifestSupplier struct {
	Path            string          `yaml:"path"`
	Vendor          string          `yaml:"vendor"`
	ColumnOverrides `yaml:",inline"`
	Tables          []ManifestTable `yaml:"tables"`
}

// ManifestTable overrides the columns of one table of a supplier file. Table
// is the table label or its 1-based position.
type ManifestTable struct {
	Table           string `yaml:"table"`
	ColumnOverrides `yaml:",inline"`
}

func (s ManifestSupplier) tableOverrides() (map[string]ColumnOverrides, error) {
	if len(s.Tables) == 0 {
		return nil, nil
	}
	out := make(map[string]ColumnOverrides, len(s.Tables))
	for _, t := range s.Tables {
		key := strings.TrimSpace(t.Table)
		if key == "" {
			return nil, eris.Errorf("supplier %s: table entry without a table key", s.Path)
		}
		out[key] = out[key].Merge(t.ColumnOverrides)
	}
	return out, nil
}

func LoadManifest(path string) (Manifest, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, eris.Wrapf(err, "read manifest %s", path)
	}
	var m Manifest
	if err := yaml.Unmarshal(blob, &m); err != nil {
		return Manifest{}, eris.Wrapf(err, "parse manifest %s", path)
	}
	dir := filepath.Dir(path)
	if m.Base.Path != "" && !filepath.IsAbs(m.Base.Path) {
		m.Base.Path = filepath.Join(dir, m.Base.Path)
	}
	for i := range m.Suppliers {
		if !filepath.IsAbs(m.Suppliers[i].Path) {
			m.Suppliers[i].Path = filepath.Join(dir, m.Suppliers[i].Path)
		}
	}
	return m, nil
}

// ApplyTo layers the manifest's options over defaults.
func (m Manifest) ApplyTo(opts Options) (Options, error) {
	if strings.TrimSpace(m.Decimal) != "" {
		sep, err := internal.ParseDecimalSeparator(m.Decimal)
		if err != nil {
			return opts, err
		}
		opts.Decimal = sep
	}
	if strings.TrimSpace(m.Order) != "" {
		order, err := internal.ParseOrderMode(m.Order)
		if err != nil {
			return opts, err
		}
		opts.Order = order
	}
	if m.Top > 0 {
		opts.TopN = m.Top
	}
	if m.PDF != nil {
		opts.PDFTables = *m.PDF
	}
	return opts, nil
}

func ReadFile(path string) (source.File, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return source.File{}, eris.Wrapf(err, "read %s", path)
	}
	return source.File{Name: filepath.Base(path), Data: blob}, nil
}

// BuildRequest reads the base list and supplier files from disk. vendors maps
// a supplier file name (base name or full path) to its vendor label.
func BuildRequest(base string, baseCols ColumnOverrides, suppliers []string, vendors map[string]string, opts Options) (Request, error) {
	req := Request{Options: opts}

	bf, err := ReadFile(base)
	if err != nil {
		return req, eris.Wrap(internal.ErrMalformedInput, err.Error())
	}
	req.Base = BaseInput{File: bf, Columns: baseCols}

	for _, path := range suppliers {
		f, err := ReadFile(path)
		if err != nil {
			return req, err
		}
		vendor := vendors[path]
		if vendor == "" {
			vendor = vendors[filepath.Base(path)]
		}
		req.Suppliers = append(req.Suppliers, SupplierInput{File: f, Vendor: vendor})
	}
	return req, nil
}

// RequestFromManifest reads every file named by the manifest.
func RequestFromManifest(m Manifest, opts Options) (Request, error) {
	opts, err := m.ApplyTo(opts)
	if err != nil {
		return Request{}, err
	}
	if strings.TrimSpace(m.Base.Path) == "" {
		return Request{}, eris.Wrap(internal.ErrMalformedInput, "manifest has no base list")
	}
	req, err := BuildRequest(m.Base.Path, m.Base.ColumnOverrides, nil, nil, opts)
	if err != nil {
		return req, err
	}
	for _, s := range m.Suppliers {
		f, err := ReadFile(s.Path)
		if err != nil {
			return req, err
		}
		tables, err := s.tableOverrides()
		if err != nil {
			return req, err
		}
		req.Suppliers = append(req.Suppliers, SupplierInput{File: f, Vendor: s.Vendor, Columns: s.ColumnOverrides, Tables: tables})
	}
	return req, nil
}
