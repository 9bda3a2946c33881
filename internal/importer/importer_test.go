package importer

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const sampleCSV = `first_name,last_name,age,email,phone_number,description
Ada,Lovelace,36,ada@x.com,555-0001,math
Grace,Hopper,85,grace@x.com,555-0002,navy

Alan,Turing,41,alan@x.com,555-0003,
`

func TestReadCSV_FileOrder(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Ada", rows[0].FirstName)
	assert.Equal(t, 36, rows[0].Age)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "Grace", rows[1].FirstName)
	assert.Equal(t, "Alan", rows[2].FirstName)
	assert.Equal(t, 5, rows[2].Line)
	assert.Empty(t, rows[2].Description)
}

func TestReadCSV_ColumnOrderIndependent(t *testing.T) {
	in := "email,first_name,last_name,phone_number,description,age\nb@x.com,Bob,B,1,,20\n"
	rows, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bob", rows[0].FirstName)
	assert.Equal(t, "b@x.com", rows[0].Email)
	assert.Equal(t, 20, rows[0].Age)
}

func TestReadCSV_MissingColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("first_name,last_name\nA,B\n"))
	assert.True(t, errors.Is(err, ErrMissingColumn))
}

func TestReadCSV_BadAge(t *testing.T) {
	in := "first_name,last_name,age,email,phone_number,description\nA,B,old,a@x.com,1,\n"
	_, err := ReadCSV(strings.NewReader(in))

	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 2, rowErr.Line)
}

func TestReadCSV_LineNumbersSurviveBlankLinesAndQuotedNewlines(t *testing.T) {
	in := "\ufefffirst_name,last_name,age,email,phone_number,description\n" +
		"\n" +
		"Ada,Lovelace,36,ada@x.com,1,\"first\nsecond\"\n" +
		"\n" +
		"Bob,B,old,b@x.com,2,\n"
	_, err := ReadCSV(strings.NewReader(in))

	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 6, rowErr.Line)

	rows, err := ReadCSV(strings.NewReader(strings.Replace(in, ",old,", ",7,", 1)))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 3, rows[0].Line)
	assert.Equal(t, "first\nsecond", rows[0].Description)
	assert.Equal(t, 6, rows[1].Line)
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	records := [][]any{
		{"first_name", "last_name", "age", "email", "phone_number", "description"},
		{"Ada", "Lovelace", 36, "ada@x.com", "555", "math"},
		{"Grace", "Hopper", 85, "grace@x.com", "556", ""},
	}
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &rec))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	rows, err := ReadFile("leads.xlsx", &buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ada", rows[0].FirstName)
	assert.Equal(t, 85, rows[1].Age)
}
