package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/urfave/cli/v2"

	"vpr/internal"
	"vpr/internal/config"
	"vpr/internal/connectors"
	gmailconnector "vpr/internal/connectors/gmail"
	imapconnector "vpr/internal/connectors/imap"
	"vpr/internal/listener"
	"vpr/internal/pipeline"
	"vpr/internal/server"
	"vpr/internal/source"
)

const exitMalformed = 2

func runCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Match supplier offers to the base list and write the wide workbook",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "base", Aliases: []string{"b"}, Usage: "Base part list (xlsx, csv, pdf, html)"},
			&cli.StringSliceFlag{Name: "supplier", Aliases: []string{"s"}, Usage: "Supplier price list, repeatable (xlsx, csv, pdf, html, eml)"},
			&cli.StringFlag{Name: "manifest", Aliases: []string{"m"}, Usage: "Batch manifest (yaml) instead of --base/--supplier"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output workbook path"},
			&cli.StringFlag{Name: "decimal", Usage: "Decimal separator of text prices (, or .)"},
			&cli.StringFlag{Name: "order", Usage: "Offer order (price, analogs-first, originals-first)"},
			&cli.IntFlag{Name: "top", Usage: "Keep only the N cheapest offers per part (0 keeps all)"},
			&cli.BoolFlag{Name: "no-pdf", Usage: "Skip PDF table extraction"},
			&cli.StringFlag{Name: "part-col", Usage: "Base list part number column"},
			&cli.StringFlag{Name: "qty-col", Usage: "Base list quantity column"},
			&cli.StringFlag{Name: "price-col", Usage: "Supplier price column, applied to every supplier"},
			&cli.StringFlag{Name: "brand-col", Usage: "Supplier brand column, applied to every supplier"},
			&cli.StringSliceFlag{Name: "vendor", Usage: "Vendor label as file=Name, repeatable"},
			&cli.StringSliceFlag{Name: "column", Usage: "Supplier column as file[@table]:role=Header (role part, price or brand), repeatable"},
		},
		Action: func(c *cli.Context) error {
			req, err := e.buildRunRequest(c)
			if err != nil {
				return exitError(err)
			}

			data, res, err := e.svc.Export(c.Context, req)
			if err != nil {
				return exitError(err)
			}

			out := c.String("out")
			if out == "" {
				out = filepath.Join(e.cfg.OutputDir, pipeline.ExportFileName)
			}
			if err := writeFile(out, data); err != nil {
				return err
			}

			printIssues(res.Issues)
			for _, t := range res.Tables {
				fmt.Printf("table %s vendor=%s part=%q price=%q brand=%q offers=%d dropped=%d\n",
					t.Source, t.Vendor, t.Part, t.Price, t.Brand, t.Offers, t.Dropped)
			}
			s := res.Summary
			fmt.Printf("run %s: parts=%d matched=%d unmatched=%d offers=%d matched_offers=%d slots=%d median_spread=%.2f%%\n",
				res.RunID, s.BaseParts, s.MatchedParts, s.UnmatchedParts, s.Offers, s.MatchedOffers, s.MaxSlots, s.MedianSpreadPct)
			fmt.Printf("written %s\n", out)
			return nil
		},
	}
}

func (e *env) buildRunRequest(c *cli.Context) (pipeline.Request, error) {
	opts, err := runOptions(c, e.svc.DefaultOptions())
	if err != nil {
		return pipeline.Request{}, err
	}

	if path := c.String("manifest"); path != "" {
		m, err := pipeline.LoadManifest(path)
		if err != nil {
			return pipeline.Request{}, err
		}
		// flags given explicitly win over the manifest
		opts, err = m.ApplyTo(opts)
		if err != nil {
			return pipeline.Request{}, err
		}
		if opts, err = runOptions(c, opts); err != nil {
			return pipeline.Request{}, err
		}
		m.Decimal, m.Order, m.Top, m.PDF = "", "", 0, nil
		return pipeline.RequestFromManifest(m, opts)
	}

	if c.String("base") == "" {
		return pipeline.Request{}, eris.New("--base or --manifest is required")
	}
	vendors, err := parseVendors(c.StringSlice("vendor"))
	if err != nil {
		return pipeline.Request{}, err
	}
	req, err := pipeline.BuildRequest(c.String("base"), pipeline.ColumnOverrides{
		Part:     c.String("part-col"),
		Quantity: c.String("qty-col"),
	}, c.StringSlice("supplier"), vendors, opts)
	if err != nil {
		return req, err
	}
	columns, err := parseColumns(c.StringSlice("column"))
	if err != nil {
		return req, err
	}
	for i, path := range c.StringSlice("supplier") {
		sup := &req.Suppliers[i]
		sup.Columns.Price = c.String("price-col")
		sup.Columns.Brand = c.String("brand-col")
		for _, col := range columns {
			if col.file != path && col.file != filepath.Base(path) {
				continue
			}
			if col.table == "" {
				sup.Columns = sup.Columns.Merge(col.cols)
				continue
			}
			if sup.Tables == nil {
				sup.Tables = map[string]pipeline.ColumnOverrides{}
			}
			sup.Tables[col.table] = sup.Tables[col.table].Merge(col.cols)
		}
	}
	return req, nil
}

type columnFlag struct {
	file  string
	table string
	cols  pipeline.ColumnOverrides
}

// parseColumns reads "file[@table]:role=Header" values. The table is a label
// or a 1-based position within the file.
func parseColumns(values []string) ([]columnFlag, error) {
	out := make([]columnFlag, 0, len(values))
	for _, v := range values {
		target, header, ok := strings.Cut(v, "=")
		header = strings.TrimSpace(header)
		if !ok || header == "" {
			return nil, eris.Errorf("invalid --column %q, want file[@table]:role=Header", v)
		}
		i := strings.LastIndex(target, ":")
		if i <= 0 {
			return nil, eris.Errorf("invalid --column %q, want file[@table]:role=Header", v)
		}
		var col columnFlag
		col.file, col.table, _ = strings.Cut(strings.TrimSpace(target[:i]), "@")
		switch pipeline.Role(strings.ToLower(strings.TrimSpace(target[i+1:]))) {
		case pipeline.RolePart:
			col.cols.Part = header
		case pipeline.RolePrice:
			col.cols.Price = header
		case pipeline.RoleBrand:
			col.cols.Brand = header
		default:
			return nil, eris.Errorf("invalid --column %q: role must be part, price or brand", v)
		}
		out = append(out, col)
	}
	return out, nil
}

func runOptions(c *cli.Context, opts pipeline.Options) (pipeline.Options, error) {
	if c.IsSet("decimal") {
		sep, err := internal.ParseDecimalSeparator(c.String("decimal"))
		if err != nil {
			return opts, err
		}
		opts.Decimal = sep
	}
	if c.IsSet("order") {
		order, err := internal.ParseOrderMode(c.String("order"))
		if err != nil {
			return opts, err
		}
		opts.Order = order
	}
	if c.IsSet("top") {
		if c.Int("top") < 0 {
			return opts, eris.New("--top must not be negative")
		}
		opts.TopN = c.Int("top")
	}
	if c.Bool("no-pdf") {
		opts.PDFTables = false
	}
	return opts, nil
}

// parseVendors reads "file=Name" pairs.
func parseVendors(values []string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, v := range values {
		file, name, ok := strings.Cut(v, "=")
		file, name = strings.TrimSpace(file), strings.TrimSpace(name)
		if !ok || file == "" || name == "" {
			return nil, eris.Errorf("invalid --vendor %q, want file=Name", v)
		}
		out[file] = name
	}
	return out, nil
}

func inspectCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "List the tables of a file with their headers and suggested columns",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-pdf", Usage: "Skip PDF table extraction"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return eris.New("at least one file is required")
			}
			for _, path := range c.Args().Slice() {
				f, err := pipeline.ReadFile(path)
				if err != nil {
					return err
				}
				set, err := source.Read(f, source.Options{PDFTables: e.cfg.PDFTables && !c.Bool("no-pdf")})
				if err != nil {
					fmt.Printf("%s: %v\n", path, err)
					continue
				}
				for _, sk := range set.Skipped {
					fmt.Printf("%s: skipped: %v\n", sk.Source, sk.Err)
				}
				for _, t := range set.Tables {
					printTable(t)
				}
			}
			return nil
		},
	}
}

func printTable(t source.Table) {
	fmt.Printf("%s: %d rows\n", t.Label, len(t.Rows))
	for i, h := range t.Headers {
		fmt.Printf("  [%d] %s\n", i, h)
	}
	for _, role := range []pipeline.Role{pipeline.RolePart, pipeline.RolePrice, pipeline.RoleBrand, pipeline.RoleQuantity} {
		idx, ok := pipeline.SuggestColumn(t.Headers, pipeline.DefaultHints[role])
		if !ok {
			fmt.Printf("  %s: -\n", role)
			continue
		}
		fmt.Printf("  %s: [%d] %s\n", role, idx, t.Headers[idx])
	}
}

func compareCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "compare",
		Usage: "Rank vendors of a sheet with Цена_*/Производитель_* column pairs",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Comparison sheet", Required: true},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output workbook path", Value: "best_prices.xlsx"},
			&cli.IntFlag{Name: "top", Value: 3, Usage: "Offers kept per part"},
			&cli.BoolFlag{Name: "best", Usage: "Keep only the best vendor per part"},
			&cli.StringFlag{Name: "decimal", Usage: "Decimal separator of text prices (, or .)"},
		},
		Action: func(c *cli.Context) error {
			sep := e.cfg.DecimalSeparator
			if c.IsSet("decimal") {
				var err error
				if sep, err = internal.ParseDecimalSeparator(c.String("decimal")); err != nil {
					return err
				}
			}
			f, err := pipeline.ReadFile(c.String("input"))
			if err != nil {
				return err
			}
			set, err := source.Read(f, source.Options{PDFTables: e.cfg.PDFTables})
			if err != nil {
				return exitError(eris.Wrap(internal.ErrMalformedInput, err.Error()))
			}
			if len(set.Tables) == 0 {
				return exitError(eris.Wrapf(internal.ErrMalformedInput, "%s has no table", f.Name))
			}
			groups, err := pipeline.CompareSheet(set.Tables[0], sep, e.cfg.OriginalMarkers)
			if err != nil {
				return exitError(err)
			}

			top := c.Int("top")
			if c.Bool("best") {
				top = 1
			}
			exp := pipeline.Exporter{SheetName: e.cfg.SheetName, OriginalMarkers: e.cfg.OriginalMarkers}
			data, err := exp.RenderCompare(groups, top)
			if err != nil {
				return err
			}
			if err := writeFile(c.String("out"), data); err != nil {
				return err
			}
			fmt.Printf("compared %d parts, written %s\n", len(groups), c.String("out"))
			return nil
		},
	}
}

func serveCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the preview and export HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address", EnvVars: []string{"VPR_HTTP_ADDR"}},
		},
		Action: func(c *cli.Context) error {
			cfg := e.cfg
			if c.IsSet("addr") {
				cfg.HTTPAddr = c.String("addr")
			}
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(cfg, e.svc).ListenAndServe(ctx)
		},
	}
}

func mailFetchCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "mail:fetch",
		Usage: "Save supplier e-mails with price lists into the drop directory",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "provider", Usage: "gmail|imap"},
			&cli.StringFlag{Name: "label", Usage: "Mailbox or label"},
			&cli.IntFlag{Name: "max", Usage: "Max messages"},
			&cli.StringFlag{Name: "dir", Usage: "Drop directory"},
		},
		Action: func(c *cli.Context) error {
			provider := firstNonEmpty(c.String("provider"), e.cfg.MailProvider)
			label := firstNonEmpty(c.String("label"), e.cfg.MailLabel)
			dir := firstNonEmpty(c.String("dir"), e.cfg.MailDir)
			limit := e.cfg.MailFetchMax
			if c.IsSet("max") {
				limit = c.Int("max")
			}

			conn, err := makeConnector(c.Context, e.cfg, provider)
			if err != nil {
				return err
			}
			res, err := connectors.NewFetchService(dir, conn).FetchAndStore(c.Context, label, limit)
			if err != nil {
				return err
			}
			fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d skipped=%d dir=%s\n",
				provider, res.Fetched, res.Stored, res.Skipped, dir)
			return nil
		},
	}
}

func mailWatchCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "mail:watch",
		Usage: "Poll the mailbox and export every new price list against a base list",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "provider", Usage: "gmail|imap"},
			&cli.StringFlag{Name: "base", Usage: "Base part list used for automatic exports", EnvVars: []string{"VPR_WATCH_BASE"}},
			&cli.IntFlag{Name: "interval", Usage: "Seconds between polls"},
		},
		Action: func(c *cli.Context) error {
			cfg := e.cfg
			cfg.MailProvider = firstNonEmpty(c.String("provider"), cfg.MailProvider)
			if c.IsSet("interval") {
				cfg.MailIntervalSec = c.Int("interval")
			}
			base := firstNonEmpty(c.String("base"), cfg.WatchBasePath)

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			conn, err := makeConnector(ctx, cfg, cfg.MailProvider)
			if err != nil {
				return err
			}
			return listener.NewService(cfg, conn, e.svc, base).Run(ctx)
		},
	}
}

func makeConnector(ctx context.Context, cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(ctx, cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, eris.Errorf("unknown provider: %s", provider)
	}
}

func exitError(err error) error {
	if errors.Is(err, internal.ErrMalformedInput) {
		return cli.Exit(err.Error(), exitMalformed)
	}
	return err
}

func printIssues(issues []internal.Issue) {
	for _, is := range issues {
		fmt.Println(is.String())
	}
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "create %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
