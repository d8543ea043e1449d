package staging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("fleet")
	require.NoError(t, err)
	for _, cells := range rows {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().Value = v
		}
	}
	path := filepath.Join(t.TempDir(), "fleet.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestLoadXLSX_MapsCanonicalColumns(t *testing.T) {
	path := writeXLSX(t, [][]string{
		{"vessel_name", "imo", "flag_alpha3", "tonnage_gt"},
		{"Alpha", "9074729", "NOR", "120"},
		{"Beta", "8814275", "ESP", "85.5"},
	})

	records, err := LoadXLSX(path, "wcpfc")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "wcpfc", records[0].SourceName)
	assert.Equal(t, "9074729", records[0].IMO)
	assert.Equal(t, "85.5", records[1].TonnageGT)
}

func TestLoadXLSX_SkipsBlankRows(t *testing.T) {
	path := writeXLSX(t, [][]string{
		{"vessel_name", "imo"},
		{"Alpha", "9074729"},
		{"", ""},
		{"Beta", "8814275"},
	})

	records, err := LoadXLSX(path, "wcpfc")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestLoadXLSX_HeaderOnly(t *testing.T) {
	path := writeXLSX(t, [][]string{{"vessel_name", "imo"}})

	records, err := LoadXLSX(path, "wcpfc")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLoadXLSX_MissingFile(t *testing.T) {
	_, err := LoadXLSX(filepath.Join(t.TempDir(), "nope.xlsx"), "wcpfc")
	assert.Error(t, err)
}
