package bulk

import (
	"context"
	"fmt"
	"strings"

	"bitbucket.org/mmagritech/farm_backend/utils"
	"github.com/sirupsen/logrus"
)

// FieldTransformer rewrites one cell value during a table-to-table copy.
type FieldTransformer func(value string) (string, error)

type TransformRules struct {
	// ColumnMapping renames source columns to destination columns. Columns
	// without a mapping keep their name; source columns that map to nothing
	// in the destination registry are dropped.
	ColumnMapping map[string]string
	Transformers  map[string]FieldTransformer
	Validator     RowValidator
	Predicates    []Predicate
	BatchSize     int
	// StopAfterErrors aborts the run once this many rows have failed.
	// Zero means never stop early.
	StopAfterErrors int
	SkipDuplicates  bool
}

type TransformResult struct {
	Processed int              `json:"processed"`
	Failed    int              `json:"failed"`
	Errors    []utils.RowError `json:"errors"`
	Stopped   bool             `json:"stopped"`
}

// Transform copies rows from one registered table into another, applying
// column renames and per-field transformers along the way. Batches commit
// independently; an aborted run keeps the batches already written.
func (e *Engine) Transform(ctx context.Context, sourceTable, destTable string, rules TransformRules) (*TransformResult, error) {
	src, err := LookupTable(sourceTable)
	if err != nil {
		return nil, err
	}
	dst, err := LookupTable(destTable)
	if err != nil {
		return nil, err
	}

	// Bind source columns to destination columns up front.
	var sourceCols []string
	var destCols []string
	for _, c := range src.Columns {
		destName := c.Name
		if mapped, ok := rules.ColumnMapping[c.Name]; ok {
			destName = mapped
		}
		if _, ok := dst.column(destName); !ok {
			continue
		}
		sourceCols = append(sourceCols, c.Name)
		destCols = append(destCols, destName)
	}
	if len(destCols) == 0 {
		return nil, fmt.Errorf("no column of %s maps to a column of %s", sourceTable, destTable)
	}
	for name := range rules.Transformers {
		if _, ok := dst.column(name); !ok {
			return nil, fmt.Errorf("transformer targets %q which is not a column of %s", name, destTable)
		}
	}

	where, args, err := BuildWhere(src, rules.Predicates)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(sourceCols, ", "), src.Name)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY id ASC"

	rows, err := e.DB.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batchSize := rules.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	insertOpts := ImportOptions{SkipDuplicates: rules.SkipDuplicates}

	result := &TransformResult{}
	var batch [][]interface{}
	var batchRows []int
	rowNumber := 0

	scanned := make([]interface{}, len(sourceCols))
	holders := make([]interface{}, len(sourceCols))
	for i := range scanned {
		holders[i] = &scanned[i]
	}

	writeBatch := func() {
		if len(batch) == 0 {
			return
		}
		sink := &ImportResult{}
		e.insertBatch(ctx, dst, destCols, insertOpts, batch, batchRows, sink, DefaultErrorCap)
		result.Processed += sink.SuccessfulImports
		result.Failed += sink.FailedImports
		result.Errors = append(result.Errors, sink.Errors...)
		batch = batch[:0]
		batchRows = batchRows[:0]
	}

	for rows.Next() {
		rowNumber++
		if err := rows.Scan(holders...); err != nil {
			return nil, err
		}

		row := make(map[string]string, len(destCols))
		values := make([]interface{}, len(destCols))
		var rowErr error
		for i, destName := range destCols {
			cell := cellString(scanned[i])
			if fn, ok := rules.Transformers[destName]; ok {
				cell, rowErr = fn(cell)
				if rowErr != nil {
					rowErr = fmt.Errorf("column %s: %w", destName, rowErr)
					break
				}
			}
			row[destName] = cell
			if cell == "" {
				values[i] = nil
			} else {
				values[i] = cell
			}
		}
		if rowErr == nil {
			rowErr = e.validateRow(rowNumber, destBindings(dst, destCols), row, rules.Validator)
		}
		if rowErr != nil {
			result.Failed++
			result.Errors = append(result.Errors, utils.RowError{RowNumber: rowNumber, Err: rowErr.Error()})
		} else {
			batch = append(batch, values)
			batchRows = append(batchRows, rowNumber)
			if len(batch) >= batchSize {
				writeBatch()
			}
		}

		if rules.StopAfterErrors > 0 && result.Failed >= rules.StopAfterErrors {
			result.Stopped = true
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	writeBatch()

	if e.Logger != nil {
		e.Logger.WithFields(logrus.Fields{
			"field":     "BulkTransform",
			"source":    src.Name,
			"dest":      dst.Name,
			"processed": result.Processed,
			"failed":    result.Failed,
			"stopped":   result.Stopped,
		}).Info("transform finished")
	}
	return result, nil
}

func destBindings(dst TableSpec, destCols []string) []binding {
	out := make([]binding, 0, len(destCols))
	for i, name := range destCols {
		if c, ok := dst.column(name); ok {
			out = append(out, binding{sourceIndex: i, column: c})
		}
	}
	return out
}
