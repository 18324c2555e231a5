package parser

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, cells := range rows {
		require.NoError(t, f.SetSheetRow("Sheet1", cellRef(i+1), &cells))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return bytes.NewReader(buf.Bytes())
}

func cellRef(row int) string {
	name, _ := excelize.CoordinatesToCellName(1, row)
	return name
}

func TestParseExcel_DecimalCommaNumbers(t *testing.T) {
	reader := buildWorkbook(t, [][]interface{}{
		{"NCF_SUFFIX", "FECHA", "CLIENTE", "PRODUCTO", "CANTIDAD", "PRECIO_UNITARIO"},
		{"B0100002904", "15/03/2024", "Farmacia Central", "Acetaminofen 500mg", "1,5", "125,50"},
	})

	result, err := ParseExcel(reader)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	row := result.Rows[0]
	assert.Empty(t, row.Errors)
	assert.InDelta(t, 1.5, row.Quantity, 1e-9)
	assert.InDelta(t, 125.50, row.UnitPrice, 1e-9)
	assert.False(t, row.IsOffer)
}

func TestParseExcel_CommaInsideCellKeepsColumns(t *testing.T) {
	reader := buildWorkbook(t, [][]interface{}{
		{"B0100002905", "2024-03-16", "Farmacia San Rafael", "Jarabe, presentación infantil", "2", "310.00"},
	})

	result, err := ParseExcel(reader)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	row := result.Rows[0]
	assert.Empty(t, row.Errors)
	assert.Equal(t, "Jarabe, presentación infantil", row.ProductRaw)
	assert.Equal(t, "2905", row.NCFSuffix)
}

func TestParseExcel_SkipsBlankRowsAndHeaders(t *testing.T) {
	reader := buildWorkbook(t, [][]interface{}{
		{"NCF", "FECHA", "CLIENTE", "PRODUCTO", "CANTIDAD", "PRECIO"},
		{"", "", "", "", "", ""},
		{"B0100002904", "2024-03-15", "Farmacia Central", "Acetaminofen 500mg", "10", "125.50"},
	})

	result, err := ParseExcel(reader)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, 1, result.SkippedRows)
	assert.Equal(t, 3, result.Rows[0].LineNumber)
}