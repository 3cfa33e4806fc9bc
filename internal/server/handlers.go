package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"vpr/internal"
	"vpr/internal/pipeline"
	"vpr/internal/source"
)

type previewResponse struct {
	RunID   string                 `json:"run_id"`
	Issues  []internal.Issue       `json:"issues"`
	Tables  []pipeline.TableReport `json:"tables"`
	Summary pipeline.Summary       `json:"summary"`
	Header  []string               `json:"header"`
	Rows    [][]any                `json:"rows"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.svc.Run(r.Context(), req)
	if err != nil {
		zap.L().Warn("preview failed", zap.Error(err))
		writeError(w, runStatus(err), err.Error())
		return
	}

	rows := make([][]any, 0, len(res.Table.Records))
	for _, rec := range res.Table.Records {
		rows = append(rows, rec.Values())
	}
	issues := res.Issues
	if issues == nil {
		issues = []internal.Issue{}
	}
	writeJSON(w, http.StatusOK, previewResponse{
		RunID:   res.RunID,
		Issues:  issues,
		Tables:  res.Tables,
		Summary: res.Summary,
		Header:  res.Table.Header(),
		Rows:    rows,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, res, err := s.svc.Export(r.Context(), req)
	if err != nil {
		zap.L().Warn("export failed", zap.Error(err))
		writeError(w, runStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+pipeline.ExportFileName+`"`)
	w.Header().Set("X-Run-ID", res.RunID)
	w.Header().Set("X-Issue-Count", strconv.Itoa(len(res.Issues)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// parseRequest reads the multipart upload: one "base" file, any number of
// "suppliers" files, and optional option fields. "vendors" values pair with
// the supplier files by position. Column fields without an index apply to
// every supplier; "suppliers[i].price_column" and friends override them for
// the i-th file, and "suppliers[i].tables" is a JSON object of per-table
// overrides keyed by table label or 1-based position.
func (s *Server) parseRequest(r *http.Request) (pipeline.Request, error) {
	maxBytes := int64(s.cfg.MaxUploadMB) << 20
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return pipeline.Request{}, eris.Wrap(err, "parse upload")
	}

	opts, err := s.parseOptions(r)
	if err != nil {
		return pipeline.Request{}, err
	}
	req := pipeline.Request{Options: opts}

	bases := r.MultipartForm.File["base"]
	if len(bases) != 1 {
		return req, eris.New("exactly one base file is required")
	}
	bf, err := readUpload(bases[0])
	if err != nil {
		return req, err
	}
	req.Base = pipeline.BaseInput{File: bf, Columns: pipeline.ColumnOverrides{
		Part:     r.FormValue("base_part_column"),
		Quantity: r.FormValue("base_qty_column"),
	}}

	supplierCols := pipeline.ColumnOverrides{
		Part:  r.FormValue("part_column"),
		Price: r.FormValue("price_column"),
		Brand: r.FormValue("brand_column"),
	}
	vendors := r.MultipartForm.Value["vendors"]
	for i, fh := range r.MultipartForm.File["suppliers"] {
		f, err := readUpload(fh)
		if err != nil {
			return req, err
		}
		in, err := supplierInput(r, i, f, supplierCols)
		if err != nil {
			return req, err
		}
		if i < len(vendors) {
			in.Vendor = vendors[i]
		}
		req.Suppliers = append(req.Suppliers, in)
	}
	return req, nil
}

func supplierInput(r *http.Request, i int, f source.File, shared pipeline.ColumnOverrides) (pipeline.SupplierInput, error) {
	prefix := fmt.Sprintf("suppliers[%d].", i)
	in := pipeline.SupplierInput{File: f, Columns: shared.Merge(pipeline.ColumnOverrides{
		Part:  r.FormValue(prefix + "part_column"),
		Price: r.FormValue(prefix + "price_column"),
		Brand: r.FormValue(prefix + "brand_column"),
	})}
	if raw := strings.TrimSpace(r.FormValue(prefix + "tables")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.Tables); err != nil {
			return in, eris.Wrapf(err, "invalid %stables", prefix)
		}
	}
	return in, nil
}

func (s *Server) parseOptions(r *http.Request) (pipeline.Options, error) {
	opts := s.svc.DefaultOptions()
	if v := r.FormValue("decimal"); v != "" {
		sep, err := internal.ParseDecimalSeparator(v)
		if err != nil {
			return opts, err
		}
		opts.Decimal = sep
	}
	if v := r.FormValue("order"); v != "" {
		order, err := internal.ParseOrderMode(v)
		if err != nil {
			return opts, err
		}
		opts.Order = order
	}
	if v := strings.TrimSpace(r.FormValue("top")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, eris.Errorf("invalid top: %q", v)
		}
		opts.TopN = n
	}
	if v := strings.TrimSpace(r.FormValue("pdf")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, eris.Errorf("invalid pdf flag: %q", v)
		}
		opts.PDFTables = b
	}
	return opts, nil
}

func readUpload(fh *multipart.FileHeader) (source.File, error) {
	f, err := fh.Open()
	if err != nil {
		return source.File{}, eris.Wrapf(err, "open upload %s", fh.Filename)
	}
	defer f.Close()
	blob, err := io.ReadAll(f)
	if err != nil {
		return source.File{}, eris.Wrapf(err, "read upload %s", fh.Filename)
	}
	return source.File{Name: fh.Filename, Data: blob}, nil
}
