package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseVendors(t *testing.T) {
	got, err := parseVendors([]string{"alpha.xlsx=Альфа", " beta.csv = Beta Ltd "})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"alpha.xlsx": "Альфа", "beta.csv": "Beta Ltd"}, got)

	_, err = parseVendors([]string{"alpha.xlsx"})
	assert.Error(t, err)
	_, err = parseVendors([]string{"=Name"})
	assert.Error(t, err)
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.csv")
	alpha := filepath.Join(dir, "alpha.csv")
	out := filepath.Join(dir, "out", "result.xlsx")
	require.NoError(t, os.WriteFile(base, []byte("Артикул;Кол-во\nAB-12;5\nZZ;1\n"), 0o644))
	require.NoError(t, os.WriteFile(alpha, []byte("Код;Цена;Бренд\nAB12;1 200,50;Оригинал\nAB-12;900;Febi\n"), 0o644))

	err := newApp().Run([]string{"vpr", "--log-level", "error", "run",
		"--base", base, "--supplier", alpha, "--vendor", "alpha.csv=Альфа", "--order", "originals-first", "--out", out})
	require.NoError(t, err)

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("VPR")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "AB-12", rows[1][0])
	assert.Equal(t, "Альфа", rows[1][3])
	assert.Equal(t, "Оригинал", rows[1][4])
	assert.Equal(t, "Febi", rows[1][7])
}

func TestRunCommandRequiresBase(t *testing.T) {
	err := newApp().Run([]string{"vpr", "--log-level", "error", "run"})
	require.Error(t, err)
}

func TestCompareCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "legacy.csv")
	out := filepath.Join(dir, "best.xlsx")
	require.NoError(t, os.WriteFile(in, []byte("Артикул;Кол-во;Цена_A;Производитель_A;Цена_B;Производитель_B\nX1;2;10;Bosch;8;Febi\n"), 0o644))

	err := newApp().Run([]string{"vpr", "--log-level", "error", "compare", "--input", in, "--out", out, "--best"})
	require.NoError(t, err)

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("VPR")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], 5)
	assert.Equal(t, "B", rows[1][3])
}

func TestParseColumns(t *testing.T) {
	got, err := parseColumns([]string{"alpha.csv:price=Опт", "offers.pdf@2:brand = Марка"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alpha.csv", got[0].file)
	assert.Empty(t, got[0].table)
	assert.Equal(t, "Опт", got[0].cols.Price)
	assert.Equal(t, "offers.pdf", got[1].file)
	assert.Equal(t, "2", got[1].table)
	assert.Equal(t, "Марка", got[1].cols.Brand)

	for _, bad := range []string{"alpha.csv=Опт", "alpha.csv:qty=Кол", ":price=Опт", "alpha.csv:price="} {
		_, err := parseColumns([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestRunCommandColumnsPerSupplier(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.csv")
	alpha := filepath.Join(dir, "alpha.csv")
	beta := filepath.Join(dir, "beta.csv")
	out := filepath.Join(dir, "result.xlsx")
	require.NoError(t, os.WriteFile(base, []byte("Артикул\nAB-12\n"), 0o644))
	require.NoError(t, os.WriteFile(alpha, []byte("Код;Цена;Опт\nAB12;120;90\n"), 0o644))
	require.NoError(t, os.WriteFile(beta, []byte("Код;Цена\nAB12;100\n"), 0o644))

	err := newApp().Run([]string{"vpr", "--log-level", "error", "run",
		"--base", base, "--supplier", alpha, "--supplier", beta,
		"--column", "alpha.csv:price=Опт", "--out", out})
	require.NoError(t, err)

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("VPR", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"AB-12", "", "90", "alpha", "", "100", "beta"}, rows[1])
}

func TestLogLevelFromEnvironment(t *testing.T) {
	t.Setenv("VPR_LOG_LEVEL", "verbose")
	err := newApp().Run([]string{"vpr", "run"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verbose")

	err = newApp().Run([]string{"vpr", "--log-level", "error", "run"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "verbose")
}
