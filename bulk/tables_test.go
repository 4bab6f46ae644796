package bulk

import (
	"strings"
	"testing"
)

func TestLookupTable(t *testing.T) {
	if _, err := LookupTable("cattles"); err != nil {
		t.Errorf("cattles should be registered: %v", err)
	}
	if _, err := LookupTable("  Cattles  "); err != nil {
		t.Errorf("lookup should trim and lower-case: %v", err)
	}
	if _, err := LookupTable("users"); err == nil {
		t.Error("unregistered table accepted")
	}
	if _, err := LookupTable("cattles; DROP TABLE cattles"); err == nil {
		t.Error("injection-shaped table name accepted")
	}
}

func TestBuildWhere(t *testing.T) {
	spec, _ := LookupTable("cattles")

	where, args, err := BuildWhere(spec, []Predicate{
		{Field: "farm_id", Op: "=", Value: "farm-1"},
		{Field: "weight", Op: ">", Value: 300},
	})
	if err != nil {
		t.Fatalf("BuildWhere: %v", err)
	}
	if where != "farm_id = ? AND weight > ?" {
		t.Errorf("where = %q", where)
	}
	if len(args) != 2 {
		t.Errorf("args = %v", args)
	}
}

func TestBuildWhere_InOperator(t *testing.T) {
	spec, _ := LookupTable("cattles")
	where, args, err := BuildWhere(spec, []Predicate{
		{Field: "status", Op: "in", Value: []string{"active", "sold"}},
	})
	if err != nil {
		t.Fatalf("BuildWhere: %v", err)
	}
	if where != "status IN (?)" {
		t.Errorf("where = %q", where)
	}
	if len(args) != 1 {
		t.Errorf("args = %v", args)
	}
}

func TestBuildWhere_RejectsUnknownField(t *testing.T) {
	spec, _ := LookupTable("cattles")
	if _, _, err := BuildWhere(spec, []Predicate{
		{Field: "password", Op: "=", Value: "x"},
	}); err == nil {
		t.Error("unknown field accepted")
	}
	// Field names are identifiers, never parameters: anything outside the
	// registry must be rejected before SQL is built.
	if _, _, err := BuildWhere(spec, []Predicate{
		{Field: "ear_tag = '' OR 1=1 --", Op: "=", Value: "x"},
	}); err == nil {
		t.Error("injection-shaped field accepted")
	}
}

func TestBuildWhere_RejectsUnknownOperator(t *testing.T) {
	spec, _ := LookupTable("cattles")
	for _, op := range []string{"", "||", "UNION", "= 1 OR"} {
		if _, _, err := BuildWhere(spec, []Predicate{
			{Field: "ear_tag", Op: op, Value: "x"},
		}); err == nil {
			t.Errorf("operator %q accepted", op)
		}
	}
}

func TestBuildWhere_Empty(t *testing.T) {
	spec, _ := LookupTable("cattles")
	where, args, err := BuildWhere(spec, nil)
	if err != nil || where != "" || args != nil {
		t.Errorf("empty predicates: where=%q args=%v err=%v", where, args, err)
	}
}

func TestBuildInsert(t *testing.T) {
	spec, _ := LookupTable("materials")
	cols := []string{"farm_id", "name"}

	sql := buildInsert(spec, cols, ImportOptions{}, 2)
	want := "INSERT INTO materials (farm_id, name) VALUES (?,?),(?,?)"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}

	sql = buildInsert(spec, cols, ImportOptions{SkipDuplicates: true}, 1)
	if !strings.HasPrefix(sql, "INSERT IGNORE INTO materials") {
		t.Errorf("skip-duplicates sql = %q", sql)
	}

	sql = buildInsert(spec, cols, ImportOptions{UpdateOnDuplicate: true}, 1)
	if !strings.HasSuffix(sql, "ON DUPLICATE KEY UPDATE farm_id = VALUES(farm_id), name = VALUES(name)") {
		t.Errorf("update-on-duplicate sql = %q", sql)
	}
}
