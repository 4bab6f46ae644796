package bulk

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

type ExportOptions struct {
	Format     string
	OutputPath string
	// Columns restricts the export; empty means every registered column.
	Columns        []string
	Predicates     []Predicate
	Limit          int
	IncludeHeaders bool
}

type ExportResult struct {
	FilePath    string `json:"file_path"`
	FileSize    int64  `json:"file_size"`
	RecordCount int    `json:"record_count"`
	Format      string `json:"format"`
}

// Export writes filtered rows of a registered table to OutputPath in CSV,
// XLSX or JSON form. Column and predicate names are checked against the
// registry before any SQL is built.
func (e *Engine) Export(ctx context.Context, tableName string, opts ExportOptions) (*ExportResult, error) {
	spec, err := LookupTable(tableName)
	if err != nil {
		return nil, err
	}
	if opts.OutputPath == "" {
		return nil, fmt.Errorf("output path is required")
	}

	columns := opts.Columns
	if len(columns) == 0 {
		columns = spec.columnNames()
	} else {
		for _, c := range columns {
			if _, ok := spec.column(c); !ok {
				return nil, fmt.Errorf("column %q is not a column of %s", c, spec.Name)
			}
		}
	}

	where, args, err := BuildWhere(spec, opts.Predicates)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), spec.Name)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY id ASC"
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	rows, err := e.DB.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records [][]string
	scanned := make([]interface{}, len(columns))
	holders := make([]interface{}, len(columns))
	for i := range scanned {
		holders[i] = &scanned[i]
	}
	for rows.Next() {
		if err := rows.Scan(holders...); err != nil {
			return nil, err
		}
		record := make([]string, len(columns))
		for i, v := range scanned {
			record[i] = cellString(v)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	format := strings.ToLower(opts.Format)
	if format == "" {
		format = FormatCSV
	}
	switch format {
	case FormatCSV:
		err = writeCSV(opts.OutputPath, columns, records, opts.IncludeHeaders)
	case FormatXLSX:
		err = writeXLSX(opts.OutputPath, spec.Name, columns, records, opts.IncludeHeaders)
	case FormatJSON:
		err = writeJSON(opts.OutputPath, columns, records)
	default:
		return nil, fmt.Errorf("unsupported export format %q", opts.Format)
	}
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(opts.OutputPath)
	if err != nil {
		return nil, err
	}
	if e.Logger != nil {
		e.Logger.WithFields(logrus.Fields{
			"field":   "BulkExport",
			"table":   spec.Name,
			"format":  format,
			"records": len(records),
			"bytes":   info.Size(),
		}).Info("export finished")
	}
	return &ExportResult{
		FilePath:    opts.OutputPath,
		FileSize:    info.Size(),
		RecordCount: len(records),
		Format:      format,
	}, nil
}

// cellString renders a scanned database value for file output. MySQL hands
// most things back as []byte.
func cellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

func writeCSV(path string, columns []string, records [][]string, headers bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if headers {
		if err := w.Write(columns); err != nil {
			return err
		}
	}
	for _, record := range records {
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeXLSX(path, sheetName string, columns []string, records [][]string, headers bool) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	rowNumber := 1
	if headers {
		for i, c := range columns {
			cell, err := excelize.CoordinatesToCellName(i+1, rowNumber)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, c); err != nil {
				return err
			}
		}
		rowNumber++
	}
	for _, record := range records {
		for i, value := range record {
			cell, err := excelize.CoordinatesToCellName(i+1, rowNumber)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return err
			}
		}
		rowNumber++
	}
	return f.SaveAs(path)
}

func writeJSON(path string, columns []string, records [][]string) error {
	objects := make([]map[string]string, 0, len(records))
	for _, record := range records {
		obj := make(map[string]string, len(columns))
		for i, c := range columns {
			if i < len(record) {
				obj[c] = record[i]
			}
		}
		objects = append(objects, obj)
	}
	data, err := json.MarshalIndent(objects, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
