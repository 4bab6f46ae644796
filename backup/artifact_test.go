package backup

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

func TestFileChecksum_DetectsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.sql")
	if err := os.WriteFile(path, []byte("CREATE TABLE cattles (id INT);\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	before, err := fileChecksum(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(before) != 64 {
		t.Errorf("checksum %q is not hex sha256", before)
	}

	again, err := fileChecksum(path)
	if err != nil {
		t.Fatal(err)
	}
	if again != before {
		t.Error("checksum not deterministic")
	}

	// Flip one byte: the checksum must change.
	if err := os.WriteFile(path, []byte("CREATE TABLE cattles (id INt);\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	after, err := fileChecksum(path)
	if err != nil {
		t.Fatal(err)
	}
	if after == before {
		t.Error("corruption not reflected in checksum")
	}
}

func TestFileChecksum_MissingFile(t *testing.T) {
	if _, err := fileChecksum(filepath.Join(t.TempDir(), "nope.sql")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestDecompressToTemp_RoundTrip(t *testing.T) {
	content := []byte("INSERT INTO materials VALUES (1, 'farm-1', 'corn');\n")
	path := filepath.Join(t.TempDir(), "dump.sql.gz")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	out, err := decompressToTemp(path)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(out)

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Errorf("round trip mismatch: %q", got)
	}
}

func TestDecompressToTemp_RejectsNonGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.sql.gz")
	if err := os.WriteFile(path, []byte("not gzip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := decompressToTemp(path); err == nil {
		t.Error("non-gzip artifact accepted")
	}
}
