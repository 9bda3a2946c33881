// Package importer reads header-driven lead files (CSV or XLSX) into rows.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Columns 必需表头
var Columns = []string{"first_name", "last_name", "age", "email", "phone_number", "description"}

// Row 一行线索数据；Line 为文件中的行号（表头为第 1 行）
type Row struct {
	Line        int
	FirstName   string
	LastName    string
	Age         int
	Email       string
	PhoneNumber string
	Description string
}

// RowError reports the line that stopped the import.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

var ErrMissingColumn = errors.New("missing column")

// ReadFile picks the reader from the file extension (.xlsx, otherwise CSV).
func ReadFile(name string, r io.Reader) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	default:
		return ReadCSV(r)
	}
}

// ReadCSV 读取 CSV（首行为表头）
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var records [][]string
	var lines []int
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	return parseRecords(records, lines)
}

// ReadXLSX 读取第一个工作表（首行为表头）
func ReadXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return []Row{}, nil
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	lines := make([]int, len(records))
	for i := range lines {
		lines[i] = i + 1
	}
	return parseRecords(records, lines)
}

// parseRecords lines[i] is the file line where records[i] starts.
func parseRecords(records [][]string, lines []int) ([]Row, error) {
	if len(records) == 0 {
		return []Row{}, nil
	}

	index := map[string]int{}
	for i, h := range records[0] {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	for _, c := range Columns {
		if _, ok := index[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		line := lines[i+1]
		if blank(rec) {
			continue
		}
		get := func(col string) string {
			idx := index[col]
			if idx >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[idx])
		}

		age := 0
		if s := get("age"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, &RowError{Line: line, Err: fmt.Errorf("invalid age %q", s)}
			}
			age = n
		}

		rows = append(rows, Row{
			Line:        line,
			FirstName:   get("first_name"),
			LastName:    get("last_name"),
			Age:         age,
			Email:       get("email"),
			PhoneNumber: get("phone_number"),
			Description: get("description"),
		})
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
