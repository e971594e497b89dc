package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixturesDir = "../internal/parity/testdata/boe"

func TestParity_Fixtures(t *testing.T) {
	t.Setenv("UNDERWRITE_LOG_LEVEL", "error")
	t.Setenv("BOE_WORKBOOK_PATH", "")

	out, err := execute(t, "parity", "--dir", fixturesDir, "--workbook", filepath.Join(t.TempDir(), "none.xlsx"))
	require.NoError(t, err, out)

	assert.Contains(t, out, "PASS  canonical_advance")
	assert.Contains(t, out, "SKIP")
	assert.Contains(t, out, "0 failures")
	assert.Contains(t, out, "workbook: skipped")
}

func TestParity_Failure(t *testing.T) {
	t.Setenv("UNDERWRITE_LOG_LEVEL", "error")
	t.Setenv("BOE_WORKBOOK_PATH", "")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.json"), []byte(`{
		"name": "wrong",
		"inputs": {"asking_price": 10000000, "seller_noi_from_om": 600000},
		"expected": {"outputs": {"asking_cap_rate": 0.5}}
	}`), 0o644))

	out, err := execute(t, "parity", "--dir", dir, "--workbook", filepath.Join(dir, "none.xlsx"))
	require.ErrorIs(t, err, errParityFailed)
	assert.Contains(t, out, "FAIL  wrong")
	assert.Contains(t, out, "asking_cap_rate")
}

func TestParity_MissingDir(t *testing.T) {
	t.Setenv("UNDERWRITE_LOG_LEVEL", "error")

	_, err := execute(t, "parity", "--dir", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestCheckWorkbook_MissingCellMap(t *testing.T) {
	t.Setenv("BOE_WORKBOOK_PATH", "")
	dir := t.TempDir()
	book := filepath.Join(dir, "boe.xlsx")
	require.NoError(t, os.WriteFile(book, []byte("placeholder"), 0o644))

	var out strings.Builder
	ok, err := checkWorkbook(&out, book, "", filepath.Join(dir, "cells.yaml"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "no cell map")
}

func TestLoadCellMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cells.yaml")
	require.NoError(t, os.WriteFile(path, []byte("inputs:\n  asking_price: C4\noutputs:\n  boe_max_bid: H20\n"), 0o644))

	cells, err := loadCellMap(path)
	require.NoError(t, err)
	assert.Equal(t, "C4", cells.Inputs["asking_price"])
	assert.Equal(t, "H20", cells.Outputs["boe_max_bid"])
}
