package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmagritech/farm_backend/bulk"
	"bitbucket.org/mmagritech/farm_backend/config"
)

func main() {
	table := flag.String("table", "", "Required: destination table")
	file := flag.String("file", "", "Required: source file (csv or xlsx)")
	format := flag.String("format", "", "Source format; inferred from extension when empty")
	sheet := flag.String("sheet", "", "Sheet name for xlsx sources")
	batchSize := flag.Int("batch-size", 0, "Rows per insert batch (0 = default)")
	skipDup := flag.Bool("skip-duplicates", false, "Silently skip duplicate-key rows")
	updateDup := flag.Bool("update-on-duplicate", false, "Overwrite existing rows on duplicate key")
	flag.Parse()

	if strings.TrimSpace(*table) == "" || strings.TrimSpace(*file) == "" {
		fmt.Fprintln(os.Stderr, "--table and --file are required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := config.GetLogger()

	engine := bulk.NewEngine(db, logger)
	result, err := engine.Import(context.Background(), *file, *table, bulk.ImportOptions{
		Format:            *format,
		SheetName:         *sheet,
		BatchSize:         *batchSize,
		SkipDuplicates:    *skipDup,
		UpdateOnDuplicate: *updateDup,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("total=%d success=%d failed=%d\n",
		result.TotalRecords, result.SuccessfulImports, result.FailedImports)
	for _, rowErr := range result.Errors {
		fmt.Fprintf(os.Stderr, "  row %d: %s\n", rowErr.RowNumber, rowErr.Err)
	}
	if result.ErrorsTruncated {
		fmt.Fprintln(os.Stderr, "  (error list truncated)")
	}
	if result.FailedImports > 0 {
		os.Exit(1)
	}
}
