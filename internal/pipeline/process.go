package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"vpr/internal"
	"vpr/internal/config"
	"vpr/internal/source"
)

// TableReport describes how one supplier table was read.
type TableReport struct {
	Source  string   `json:"source"`
	Vendor  string   `json:"vendor"`
	Headers []string `json:"headers"`
	Part    string   `json:"part_column"`
	Price   string   `json:"price_column"`
	Brand   string   `json:"brand_column,omitempty"`
	Offers  int      `json:"offers"`
	Dropped int      `json:"dropped"`
}

type Result struct {
	RunID   string
	Base    []internal.BasePart
	Groups  []internal.OfferGroup
	Table   internal.WideTable
	Issues  []internal.Issue
	Tables  []TableReport
	Summary Summary
}

type exportEntry struct {
	data   []byte
	result *Result
}

type Service struct {
	cfg      config.Config
	exporter Exporter
	memo     *lru.Cache[string, exportEntry]
}

func NewService(cfg config.Config) (*Service, error) {
	size := cfg.ExportCacheSize
	if size <= 0 {
		size = 1
	}
	memo, err := lru.New[string, exportEntry](size)
	if err != nil {
		return nil, eris.Wrap(err, "export memo")
	}
	return &Service{
		cfg:      cfg,
		exporter: Exporter{SheetName: cfg.SheetName},
		memo:     memo,
	}, nil
}

// DefaultOptions are the run options implied by the configuration.
func (s *Service) DefaultOptions() Options {
	return Options{
		Decimal:         s.cfg.DecimalSeparator,
		Order:           s.cfg.Order,
		TopN:            s.cfg.TopN,
		PDFTables:       s.cfg.PDFTables,
		OriginalMarkers: s.cfg.OriginalMarkers,
	}
}

// Run reads the base list and every supplier source, reconciles the offers
// and shapes the wide table. A base list that cannot be read fails the run
// with ErrMalformedInput; supplier problems become issues.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.NewString()}
	opts := req.Options
	readOpts := source.Options{PDFTables: opts.PDFTables}

	base, err := loadBase(req.Base, readOpts)
	if err != nil {
		return nil, err
	}
	res.Base = base

	var offers []internal.Offer
	for _, sup := range req.Suppliers {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "run cancelled")
		}
		offers = append(offers, s.readSupplier(sup, opts, res)...)
	}

	res.Groups = Reconcile(base, offers, MatchOptions{Order: opts.Order, OriginalMarkers: opts.OriginalMarkers})
	res.Table = Shape(res.Groups, opts.TopN)
	res.Summary = Summarize(res.Groups, len(offers), res.Table)

	if res.Summary.MatchedOffers == 0 {
		res.Issues = append(res.Issues, internal.Issue{
			Kind:     internal.IssueNoMatches,
			Severity: internal.SeverityWarning,
			Message:  "no supplier offer matched any base part",
		})
	}

	zap.L().Info("run finished",
		zap.String("run_id", res.RunID),
		zap.Int("base_parts", len(base)),
		zap.Int("suppliers", len(req.Suppliers)),
		zap.Int("offers", len(offers)),
		zap.Int("matched", res.Summary.MatchedOffers),
		zap.Int("issues", len(res.Issues)),
		zap.Duration("took", time.Since(start)),
	)
	return res, nil
}

// Export runs the request and renders the workbook. Identical requests are
// served from the memo, byte for byte.
func (s *Service) Export(ctx context.Context, req Request) ([]byte, *Result, error) {
	key := req.Fingerprint()
	if hit, ok := s.memo.Get(key); ok {
		zap.L().Debug("export memo hit", zap.String("fingerprint", key))
		return hit.data, hit.result, nil
	}

	res, err := s.Run(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	exp := s.exporter
	exp.OriginalMarkers = req.Options.OriginalMarkers
	data, err := exp.Render(res.Table)
	if err != nil {
		return nil, nil, eris.Wrap(err, "render export")
	}
	s.memo.Add(key, exportEntry{data: data, result: res})
	return data, res, nil
}

func loadBase(in BaseInput, opts source.Options) ([]internal.BasePart, error) {
	set, err := source.Read(in.File, opts)
	if err != nil {
		return nil, eris.Wrapf(internal.ErrMalformedInput, "base list %s: %v", in.File.Name, err)
	}
	if len(set.Tables) == 0 {
		reason := "no table found"
		for _, sk := range set.Skipped {
			if errors.Is(sk.Err, source.ErrPDFDisabled) {
				reason = "PDF table extraction is disabled"
			}
		}
		return nil, eris.Wrapf(internal.ErrMalformedInput, "base list %s: %s", in.File.Name, reason)
	}

	t := set.Tables[0]
	roles, err := ResolveBaseRoles(t.Headers, in.Columns, DefaultHints)
	if err != nil {
		return nil, eris.Wrapf(err, "base list %s", in.File.Name)
	}
	parts := LoadBaseParts(t, roles)
	if len(parts) == 0 {
		return nil, eris.Wrapf(internal.ErrMalformedInput, "base list %s has no rows", in.File.Name)
	}
	return parts, nil
}

func (s *Service) readSupplier(sup SupplierInput, opts Options, res *Result) []internal.Offer {
	name := sup.File.Name
	vendor := sup.VendorName()

	set, err := source.Read(sup.File, source.Options{PDFTables: opts.PDFTables})
	if err != nil {
		zap.L().Warn("supplier source failed", zap.String("file", name), zap.Error(err))
		res.Issues = append(res.Issues, internal.Issue{
			Kind:     internal.IssueSourceFailed,
			Severity: internal.SeverityError,
			Source:   name,
			Message:  err.Error(),
		})
		return nil
	}
	for _, sk := range set.Skipped {
		res.Issues = append(res.Issues, skipIssue(sk))
	}

	var offers []internal.Offer
	for i, t := range set.Tables {
		roles, err := ResolveSupplierRoles(t.Headers, sup.ColumnsFor(t.Label, i+1), DefaultHints)
		if err != nil {
			res.Issues = append(res.Issues, internal.Issue{
				Kind:     internal.IssueSourceFailed,
				Severity: internal.SeverityError,
				Source:   t.Label,
				Message:  err.Error(),
			})
			continue
		}

		ext := ExtractOffers(t, roles, vendor, t.Label, opts.Decimal)
		res.Tables = append(res.Tables, TableReport{
			Source:  t.Label,
			Vendor:  vendor,
			Headers: t.Headers,
			Part:    columnName(t.Headers, roles.Part),
			Price:   columnName(t.Headers, roles.Price),
			Brand:   columnName(t.Headers, roles.Brand),
			Offers:  len(ext.Offers),
			Dropped: ext.Dropped,
		})
		if len(ext.Offers) == 0 {
			res.Issues = append(res.Issues, internal.Issue{
				Kind:     internal.IssueNoPrices,
				Severity: internal.SeverityWarning,
				Source:   t.Label,
				Message:  fmt.Sprintf("no rows with a part number and a positive price (%d dropped)", ext.Dropped),
			})
		}
		offers = append(offers, ext.Offers...)
	}
	return offers
}

func skipIssue(sk source.Skip) internal.Issue {
	if errors.Is(sk.Err, source.ErrPDFDisabled) {
		return internal.Issue{
			Kind:     internal.IssueDegradedCapability,
			Severity: internal.SeverityWarning,
			Source:   sk.Source,
			Message:  "PDF table extraction is disabled; file skipped",
		}
	}
	return internal.Issue{
		Kind:     internal.IssueSourceFailed,
		Severity: internal.SeverityError,
		Source:   sk.Source,
		Message:  sk.Err.Error(),
	}
}
