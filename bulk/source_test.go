package bulk

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCSVSource_StreamsRows(t *testing.T) {
	path := writeTempCSV(t, "farm_id , name\nfarm-1,corn\nfarm-1,soybean\n")
	src, err := openRowSource(path, "", "")
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	headers := src.Headers()
	if len(headers) != 2 || headers[0] != "farm_id" || headers[1] != "name" {
		t.Errorf("headers = %v, want trimmed [farm_id name]", headers)
	}

	var rows [][]string
	for {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		rows = append(rows, row)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[1][1] != "soybean" {
		t.Errorf("rows[1][1] = %q", rows[1][1])
	}
}

func TestCSVSource_RaggedRows(t *testing.T) {
	// Rows shorter or longer than the header must still stream; the importer
	// pads/ignores, it does not abort the file.
	path := writeTempCSV(t, "a,b,c\n1,2\n1,2,3,4\n")
	src, err := openRowSource(path, FormatCSV, "")
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	first, err := src.Next()
	if err != nil {
		t.Fatalf("short row rejected: %v", err)
	}
	if len(first) != 2 {
		t.Errorf("short row has %d fields", len(first))
	}
	second, err := src.Next()
	if err != nil {
		t.Fatalf("long row rejected: %v", err)
	}
	if len(second) != 4 {
		t.Errorf("long row has %d fields", len(second))
	}
}

func TestOpenRowSource_FormatDispatch(t *testing.T) {
	path := writeTempCSV(t, "a\n1\n")

	if _, err := openRowSource(path, "parquet", ""); err == nil {
		t.Error("unsupported format accepted")
	}
	src, err := openRowSource(path, "CSV", "")
	if err != nil {
		t.Fatalf("format should be case-insensitive: %v", err)
	}
	src.Close()
	if _, err := openRowSource(filepath.Join(t.TempDir(), "missing.csv"), "", ""); err == nil {
		t.Error("missing file accepted")
	}
}

func TestOpenRowSource_EmptyFile(t *testing.T) {
	path := writeTempCSV(t, "")
	if _, err := openRowSource(path, FormatCSV, ""); err == nil {
		t.Error("file without a header row accepted")
	}
}
