package ingestion

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func readAll(t *testing.T, decoder RowReader) []Row {
	t.Helper()
	var rows []Row
	for {
		row, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestCSVDecoderReadsRowsInFileOrder(t *testing.T) {
	payload := []byte("name,sku,description\nWidget,SKU-1,A widget\nGadget,sku-1,A gadget\n")

	decoder, err := NewDecoder("products.csv", payload)
	require.NoError(t, err)

	rows := readAll(t, decoder)
	require.Len(t, rows, 2)
	require.Equal(t, "Widget", rows[0].Name)
	require.Equal(t, "SKU-1", rows[0].SKU)
	require.Equal(t, "Gadget", rows[1].Name)
	require.Equal(t, "sku-1", rows[1].SKU)
	require.Equal(t, "A gadget", rows[1].Description)
	require.Zero(t, decoder.Skipped())
}

func TestCSVDecoderToleratesBOMAndHeaderCasing(t *testing.T) {
	payload := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Name,SKU,Description\nWidget,SKU-1,A widget\n")...)

	decoder, err := NewDecoder("products.csv", payload)
	require.NoError(t, err)

	rows := readAll(t, decoder)
	require.Len(t, rows, 1)
	require.Equal(t, "SKU-1", rows[0].SKU)
}

func TestCSVDecoderRejectsBadHeader(t *testing.T) {
	cases := map[string]string{
		"wrong column":   "name,code,description\nWidget,SKU-1,A widget\n",
		"missing column": "name,sku\nWidget,SKU-1\n",
		"extra column":   "name,sku,description,price\nWidget,SKU-1,A widget,9.99\n",
		"reordered":      "sku,name,description\nSKU-1,Widget,A widget\n",
		"empty file":     "",
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewDecoder("products.csv", []byte(payload))
			require.Error(t, err)
		})
	}
}

func TestCSVDecoderSkipsMalformedRows(t *testing.T) {
	payload := []byte("name,sku,description\n" +
		"Widget,SKU-1,A widget\n" +
		"No SKU,,missing business key\n" +
		",SKU-2,missing name\n" +
		"Short,SKU-3\n" +
		"Gadget,SKU-4,A gadget\n")

	decoder, err := NewDecoder("products.csv", payload)
	require.NoError(t, err)

	rows := readAll(t, decoder)
	require.Len(t, rows, 2)
	require.Equal(t, "SKU-1", rows[0].SKU)
	require.Equal(t, "SKU-4", rows[1].SKU)
	require.Equal(t, 3, decoder.Skipped())
}

func TestCSVDecoderTrimsWhitespace(t *testing.T) {
	payload := []byte("name,sku,description\n  Widget , SKU-1 , A widget \n")

	decoder, err := NewDecoder("products.csv", payload)
	require.NoError(t, err)

	rows := readAll(t, decoder)
	require.Len(t, rows, 1)
	require.Equal(t, "Widget", rows[0].Name)
	require.Equal(t, "SKU-1", rows[0].SKU)
	require.Equal(t, "A widget", rows[0].Description)
}

func TestDecoderRejectsUnsupportedFormat(t *testing.T) {
	_, err := NewDecoder("products.txt", []byte("name,sku,description\n"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func buildXLSX(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestExcelDecoderReadsRows(t *testing.T) {
	payload := buildXLSX(t, [][]any{
		{"name", "sku", "description"},
		{"Widget", "SKU-1", "A widget"},
		{"No SKU", "", "skipped"},
		{"Gadget", "SKU-2", ""},
	})

	decoder, err := NewDecoder("products.xlsx", payload)
	require.NoError(t, err)

	rows := readAll(t, decoder)
	require.Len(t, rows, 2)
	require.Equal(t, "SKU-1", rows[0].SKU)
	require.Equal(t, "SKU-2", rows[1].SKU)
	require.Equal(t, "", rows[1].Description)
	require.Equal(t, 1, decoder.Skipped())
}

func TestExcelDecoderRejectsBadHeader(t *testing.T) {
	payload := buildXLSX(t, [][]any{
		{"sku", "name", "description"},
		{"SKU-1", "Widget", "A widget"},
	})

	_, err := NewDecoder("products.xlsx", payload)
	require.Error(t, err)
}
