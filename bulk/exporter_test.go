package bulk

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCellString(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{[]byte("farm-1"), "farm-1"},
		{"plain", "plain"},
		{ts, "2026-03-01T12:00:00Z"},
		{int64(42), "42"},
	}
	for _, tc := range cases {
		if got := cellString(tc.in); got != tc.want {
			t.Errorf("cellString(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	columns := []string{"farm_id", "name"}
	records := [][]string{
		{"farm-1", "corn, cracked"}, // embedded comma must survive quoting
		{"farm-1", `say "hi"`},
	}
	if err := writeCSV(path, columns, records, true); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if rows[0][0] != "farm_id" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][1] != "corn, cracked" {
		t.Errorf("comma field = %q", rows[1][1])
	}
	if rows[2][1] != `say "hi"` {
		t.Errorf("quoted field = %q", rows[2][1])
	}
}

func TestWriteCSV_NoHeaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := writeCSV(path, []string{"a"}, [][]string{{"1"}}, false); err != nil {
		t.Fatal(err)
	}
	f, _ := os.Open(path)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0][0] != "1" {
		t.Errorf("rows = %v", rows)
	}
}

func TestWriteJSON_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	columns := []string{"farm_id", "ear_tag"}
	records := [][]string{
		{"farm-1", "PO1-1"},
		{"farm-1", "PO1-2"},
	}
	if err := writeJSON(path, columns, records); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var objects []map[string]string
	if err := json.Unmarshal(data, &objects); err != nil {
		t.Fatal(err)
	}
	if len(objects) != 2 {
		t.Fatalf("got %d objects, want 2", len(objects))
	}
	if objects[0]["ear_tag"] != "PO1-1" || objects[1]["farm_id"] != "farm-1" {
		t.Errorf("objects = %v", objects)
	}
}

func TestWriteJSON_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := writeJSON(path, []string{"a"}, nil); err != nil {
		t.Fatal(err)
	}
	var objects []map[string]string
	data, _ := os.ReadFile(path)
	if err := json.Unmarshal(data, &objects); err != nil {
		t.Fatal(err)
	}
	if len(objects) != 0 {
		t.Errorf("empty export produced %d objects", len(objects))
	}
}
