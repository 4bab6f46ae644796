package bulk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"bitbucket.org/mmagritech/farm_backend/utils"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	DefaultBatchSize = 100
	// DefaultErrorCap bounds the per-row error list kept in memory; further
	// errors are counted but dropped (ErrorsTruncated is set).
	DefaultErrorCap = 1000
)

// Engine moves tabular data between files and registered tables.
type Engine struct {
	DB       *gorm.DB
	Logger   *logrus.Logger
	Validate *validator.Validate
}

func NewEngine(db *gorm.DB, logger *logrus.Logger) *Engine {
	return &Engine{
		DB:       db,
		Logger:   logger,
		Validate: validator.New(),
	}
}

// RowValidator is an optional caller-supplied per-row check, invoked after
// field mapping with the mapped column values.
type RowValidator func(rowNumber int, row map[string]string) error

type ImportOptions struct {
	Format    string
	SheetName string
	// FieldMapping renames source headers to table columns. Unmapped headers
	// are used as-is; headers that match no registered column are ignored.
	FieldMapping      map[string]string
	Validator         RowValidator
	BatchSize         int
	ErrorCap          int
	SkipDuplicates    bool
	UpdateOnDuplicate bool
}

type ImportResult struct {
	TotalRecords      int              `json:"total_records"`
	SuccessfulImports int              `json:"successful_imports"`
	FailedImports     int              `json:"failed_imports"`
	Errors            []utils.RowError `json:"errors"`
	ErrorsTruncated   bool             `json:"errors_truncated"`
}

func (r *ImportResult) addError(cap int, rowErr utils.RowError) {
	if len(r.Errors) < cap {
		r.Errors = append(r.Errors, rowErr)
	} else {
		r.ErrorsTruncated = true
	}
}

// Import streams filePath into tableName. Rows failing validation are
// recorded and skipped; valid rows are inserted in per-batch transactions.
// A failed batch falls back to row-at-a-time inserts so a single bad row
// cannot sink its whole batch. Always: TotalRecords == SuccessfulImports +
// FailedImports.
func (e *Engine) Import(ctx context.Context, filePath, tableName string, opts ImportOptions) (*ImportResult, error) {
	if opts.SkipDuplicates && opts.UpdateOnDuplicate {
		return nil, errors.New("skip_duplicates and update_on_duplicate are mutually exclusive")
	}
	spec, err := LookupTable(tableName)
	if err != nil {
		return nil, err
	}
	source, err := openRowSource(filePath, opts.Format, opts.SheetName)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	errorCap := opts.ErrorCap
	if errorCap <= 0 {
		errorCap = DefaultErrorCap
	}

	// Resolve which source column feeds which table column.
	var bindings []binding
	for i, header := range source.Headers() {
		column := header
		if mapped, ok := opts.FieldMapping[header]; ok {
			column = mapped
		}
		if c, ok := spec.column(column); ok {
			bindings = append(bindings, binding{sourceIndex: i, column: c})
		}
	}
	if len(bindings) == 0 {
		return nil, fmt.Errorf("no source column maps to a registered column of %s", tableName)
	}
	columns := make([]string, len(bindings))
	for i, b := range bindings {
		columns[i] = b.column.Name
	}

	result := &ImportResult{}
	var batch [][]interface{}
	var batchRows []int
	rowNumber := 1 // header row

	flush := func() {
		if len(batch) == 0 {
			return
		}
		e.insertBatch(ctx, spec, columns, opts, batch, batchRows, result, errorCap)
		batch = batch[:0]
		batchRows = batchRows[:0]
	}

	for {
		record, err := source.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			rowNumber++
			result.TotalRecords++
			result.FailedImports++
			result.addError(errorCap, utils.RowError{RowNumber: rowNumber, Err: "unreadable row: " + err.Error()})
			continue
		}
		rowNumber++
		result.TotalRecords++

		row := make(map[string]string, len(bindings))
		values := make([]interface{}, len(bindings))
		for i, b := range bindings {
			var cell string
			if b.sourceIndex < len(record) {
				cell = strings.TrimSpace(record[b.sourceIndex])
			}
			row[b.column.Name] = cell
			if cell == "" {
				values[i] = nil
			} else {
				values[i] = cell
			}
		}

		if rowErr := e.validateRow(rowNumber, bindings, row, opts.Validator); rowErr != nil {
			result.FailedImports++
			result.addError(errorCap, utils.RowError{RowNumber: rowNumber, Err: rowErr.Error(), Raw: record})
			continue
		}

		batch = append(batch, values)
		batchRows = append(batchRows, rowNumber)
		if len(batch) >= batchSize {
			flush()
		}
	}
	flush()

	if e.Logger != nil {
		e.Logger.WithFields(logrus.Fields{
			"field":   "BulkImport",
			"table":   tableName,
			"total":   result.TotalRecords,
			"success": result.SuccessfulImports,
			"failed":  result.FailedImports,
		}).Info("import finished")
	}
	return result, nil
}

// binding ties one source column index to the registered column it feeds.
type binding struct {
	sourceIndex int
	column      ColumnSpec
}

func (e *Engine) validateRow(rowNumber int, bindings []binding, row map[string]string, custom RowValidator) error {
	for _, b := range bindings {
		if b.column.Rule == "" {
			continue
		}
		if err := e.Validate.Var(row[b.column.Name], b.column.Rule); err != nil {
			return fmt.Errorf("column %s: %s", b.column.Name, validationMessage(err))
		}
	}
	if custom != nil {
		if err := custom(rowNumber, row); err != nil {
			return err
		}
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return "fails rule " + verrs[0].Tag()
	}
	return err.Error()
}

func (e *Engine) insertBatch(ctx context.Context, spec TableSpec, columns []string, opts ImportOptions,
	batch [][]interface{}, batchRows []int, result *ImportResult, errorCap int) {

	sql := buildInsert(spec, columns, opts, len(batch))
	args := make([]interface{}, 0, len(batch)*len(columns))
	for _, values := range batch {
		args = append(args, values...)
	}

	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Exec(sql, args...).Error
	})
	if err == nil {
		result.SuccessfulImports += len(batch)
		return
	}

	// Batch insert failed; retry row by row so only the offending rows fail.
	single := buildInsert(spec, columns, opts, 1)
	for i, values := range batch {
		rowErr := e.DB.WithContext(ctx).Exec(single, values...).Error
		if rowErr != nil {
			result.FailedImports++
			result.addError(errorCap, utils.RowError{RowNumber: batchRows[i], Err: rowErr.Error()})
			continue
		}
		result.SuccessfulImports++
	}
}

func buildInsert(spec TableSpec, columns []string, opts ImportOptions, rows int) string {
	verb := "INSERT"
	if opts.SkipDuplicates {
		verb = "INSERT IGNORE"
	}
	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",") + ")"
	all := strings.TrimSuffix(strings.Repeat(placeholders+",", rows), ",")
	sql := fmt.Sprintf("%s INTO %s (%s) VALUES %s", verb, spec.Name, strings.Join(columns, ", "), all)
	if opts.UpdateOnDuplicate {
		var updates []string
		for _, c := range columns {
			updates = append(updates, fmt.Sprintf("%s = VALUES(%s)", c, c))
		}
		sql += " ON DUPLICATE KEY UPDATE " + strings.Join(updates, ", ")
	}
	return sql
}
