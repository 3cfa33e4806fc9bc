package listener

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"vpr/internal"
	"vpr/internal/config"
	"vpr/internal/connectors"
	"vpr/internal/pipeline"
)

type fakeConnector struct {
	messages []connectors.Message
}

func (f fakeConnector) FetchInbox(ctx context.Context, label string, limit int) ([]connectors.Message, error) {
	return f.messages, nil
}

func priceMail(t *testing.T) []byte {
	t.Helper()
	part, err := enmime.Builder().
		From("Supplier", "sales@supplier.example").
		To("Buyer", "buyer@example.com").
		Subject("Прайс").
		Text([]byte("прайс во вложении")).
		AddAttachment([]byte("Код;Цена\nAB-12;150\n"), "text/csv", "prices.csv").
		Build()
	require.NoError(t, err)
	buf := &bytes.Buffer{}
	require.NoError(t, part.Encode(buf))
	return buf.Bytes()
}

func TestRunCycleExportsNewMail(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.csv")
	require.NoError(t, os.WriteFile(base, []byte("Артикул;Кол-во\nAB-12;3\n"), 0o644))

	cfg := config.Config{
		OutputDir:        filepath.Join(dir, "out"),
		MailDir:          filepath.Join(dir, "inbox"),
		MailProvider:     "imap",
		MailLabel:        "INBOX",
		MailFetchMax:     10,
		DecimalSeparator: internal.DecimalComma,
		Order:            internal.OrderByPrice,
		PDFTables:        true,
		SheetName:        pipeline.DefaultSheetName,
		ExportCacheSize:  2,
	}
	svc, err := pipeline.NewService(cfg)
	require.NoError(t, err)

	when := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	conn := fakeConnector{messages: []connectors.Message{{Provider: "imap", ID: "7", ReceivedAt: when, Raw: priceMail(t)}}}

	require.NoError(t, NewService(cfg, conn, svc, base).RunCycle(context.Background()))

	exports, err := filepath.Glob(filepath.Join(cfg.OutputDir, "listener", "*.xlsx"))
	require.NoError(t, err)
	require.Len(t, exports, 1)

	f, err := excelize.OpenFile(exports[0])
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(pipeline.DefaultSheetName, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "AB-12", rows[1][0])
	assert.Equal(t, "150", rows[1][2])
}

func TestRunCycleSkipsMailAlreadyStored(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.csv")
	require.NoError(t, os.WriteFile(base, []byte("Артикул\nAB-12\n"), 0o644))

	cfg := config.Config{
		OutputDir:        filepath.Join(dir, "out"),
		MailDir:          filepath.Join(dir, "inbox"),
		MailProvider:     "gmail",
		MailFetchMax:     10,
		DecimalSeparator: internal.DecimalComma,
		Order:            internal.OrderByPrice,
		SheetName:        pipeline.DefaultSheetName,
		ExportCacheSize:  2,
	}
	svc, err := pipeline.NewService(cfg)
	require.NoError(t, err)

	when := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	conn := fakeConnector{messages: []connectors.Message{{Provider: "gmail", ID: "m1", ReceivedAt: when, Raw: priceMail(t)}}}
	watcher := NewService(cfg, conn, svc, base)

	require.NoError(t, watcher.RunCycle(context.Background()))
	outDir := filepath.Join(cfg.OutputDir, "listener")
	exports, err := filepath.Glob(filepath.Join(outDir, "*.xlsx"))
	require.NoError(t, err)
	require.Len(t, exports, 1)
	require.NoError(t, os.Remove(exports[0]))

	require.NoError(t, watcher.RunCycle(context.Background()))
	exports, err = filepath.Glob(filepath.Join(outDir, "*.xlsx"))
	require.NoError(t, err)
	assert.Empty(t, exports)
}

func TestNewPathsDedupes(t *testing.T) {
	got := newPaths(connectors.FetchResult{
		Paths:    []string{"a", "b", "a", "old"},
		NewPaths: []string{"a", "b", "a"},
	})
	assert.Equal(t, []string{"a", "b"}, got)
}
