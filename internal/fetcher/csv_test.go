package fetcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCSV(t *testing.T) {
	body := strings.Join([]string{
		"Permit_No,Permit_Date,Construction_Value,Description",
		`BP-1,2025-01-15,"250000",two storey dwelling`,
		"BP-2,2025-02-20,45000,deck",
	}, "\n")

	raw, err := DecodeCSV(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, raw, 2)

	assert.Equal(t, "BP-1", raw[0]["Permit_No"])
	assert.Equal(t, "2025-01-15", raw[0]["Permit_Date"])
	assert.Equal(t, "250000", raw[0]["Construction_Value"])
	assert.Equal(t, "deck", raw[1]["Description"])
}

func TestDecodeCSVShortRows(t *testing.T) {
	body := "A,B,C\n1,2\n"

	raw, err := DecodeCSV(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, "1", raw[0]["A"])
	assert.Equal(t, "2", raw[0]["B"])
	_, ok := raw[0]["C"]
	assert.False(t, ok)
}

func TestDecodeCSVEmptyFile(t *testing.T) {
	_, err := DecodeCSV(strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestDecodeCSVHeaderOnly(t *testing.T) {
	raw, err := DecodeCSV(strings.NewReader("A,B,C\n"))
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestDecodeCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permits.csv")
	require.NoError(t, os.WriteFile(path, []byte("Permit_No,Status\nBP-1,Issued\n"), 0644))

	raw, err := DecodeCSVFile(path)
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, "Issued", raw[0]["Status"])
}

func TestDecodeCSVFileMissing(t *testing.T) {
	_, err := DecodeCSVFile(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestCountCSVRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permits.csv")
	require.NoError(t, os.WriteFile(path, []byte("A,B\n1,2\n3,4\n"), 0644))

	n, err := CountCSVRows(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCountCSVRowsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	n, err := CountCSVRows(path)
	require.NoError(t, err)
	assert.Zero(t, n)
}
