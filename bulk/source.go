package bulk

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatJSON = "json"
)

// rowSource streams header + data rows from a tabular file without loading
// the whole file into memory.
type rowSource interface {
	Headers() []string
	// Next returns the next data row, io.EOF when exhausted.
	Next() ([]string, error)
	Close() error
}

func openRowSource(filePath, format, sheetName string) (rowSource, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(filePath)) {
		case ".csv":
			format = FormatCSV
		case ".xlsx":
			format = FormatXLSX
		}
	}
	switch strings.ToLower(format) {
	case FormatCSV:
		return openCSVSource(filePath)
	case FormatXLSX:
		return openXLSXSource(filePath, sheetName)
	default:
		return nil, fmt.Errorf("unsupported import format %q", format)
	}
}

type csvSource struct {
	file    *os.File
	reader  *csv.Reader
	headers []string
}

func openCSVSource(filePath string) (*csvSource, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	headers, err := r.Read()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read header row: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	return &csvSource{file: f, reader: r, headers: headers}, nil
}

func (s *csvSource) Headers() []string { return s.headers }

func (s *csvSource) Next() ([]string, error) {
	return s.reader.Read()
}

func (s *csvSource) Close() error { return s.file.Close() }

type xlsxSource struct {
	file    *excelize.File
	rows    *excelize.Rows
	headers []string
}

func openXLSXSource(filePath, sheetName string) (*xlsxSource, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			f.Close()
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheetName = sheets[0]
	}
	rows, err := f.Rows(sheetName)
	if err != nil {
		f.Close()
		return nil, err
	}
	if !rows.Next() {
		rows.Close()
		f.Close()
		return nil, fmt.Errorf("sheet %q has no header row", sheetName)
	}
	headers, err := rows.Columns()
	if err != nil {
		rows.Close()
		f.Close()
		return nil, err
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	return &xlsxSource{file: f, rows: rows, headers: headers}, nil
}

func (s *xlsxSource) Headers() []string { return s.headers }

func (s *xlsxSource) Next() ([]string, error) {
	if !s.rows.Next() {
		return nil, io.EOF
	}
	return s.rows.Columns()
}

func (s *xlsxSource) Close() error {
	s.rows.Close()
	return s.file.Close()
}
