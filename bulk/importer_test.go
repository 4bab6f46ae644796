package bulk

import (
	"strconv"
	"testing"

	"bitbucket.org/mmagritech/farm_backend/utils"
	"github.com/go-playground/validator/v10"
)

func testEngine() *Engine {
	return &Engine{Validate: validator.New()}
}

func cattleBindings(t *testing.T, names ...string) []binding {
	t.Helper()
	spec, err := LookupTable("cattles")
	if err != nil {
		t.Fatal(err)
	}
	out := make([]binding, 0, len(names))
	for i, name := range names {
		c, ok := spec.column(name)
		if !ok {
			t.Fatalf("column %s not registered", name)
		}
		out = append(out, binding{sourceIndex: i, column: c})
	}
	return out
}

func TestValidateRow_ColumnRules(t *testing.T) {
	e := testEngine()
	bindings := cattleBindings(t, "farm_id", "ear_tag", "gender", "weight")

	valid := map[string]string{
		"farm_id": "farm-1", "ear_tag": "C001", "gender": "female", "weight": "350.5",
	}
	if err := e.validateRow(2, bindings, valid, nil); err != nil {
		t.Errorf("valid row rejected: %v", err)
	}

	// omitempty rules pass on blank cells.
	blankOptional := map[string]string{
		"farm_id": "farm-1", "ear_tag": "C002", "gender": "", "weight": "",
	}
	if err := e.validateRow(3, bindings, blankOptional, nil); err != nil {
		t.Errorf("blank optional fields rejected: %v", err)
	}

	cases := []struct {
		name string
		row  map[string]string
	}{
		{"missing required", map[string]string{"farm_id": "", "ear_tag": "C003"}},
		{"bad enum", map[string]string{"farm_id": "farm-1", "ear_tag": "C004", "gender": "unknown"}},
		{"non-numeric weight", map[string]string{"farm_id": "farm-1", "ear_tag": "C005", "weight": "heavy"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := e.validateRow(4, bindings, tc.row, nil); err == nil {
				t.Error("invalid row accepted")
			}
		})
	}
}

func TestValidateRow_CustomValidator(t *testing.T) {
	e := testEngine()
	bindings := cattleBindings(t, "farm_id", "ear_tag")
	row := map[string]string{"farm_id": "farm-1", "ear_tag": "C001"}

	called := false
	err := e.validateRow(2, bindings, row, func(rowNumber int, got map[string]string) error {
		called = true
		if rowNumber != 2 {
			t.Errorf("rowNumber = %d, want 2", rowNumber)
		}
		if got["ear_tag"] != "C001" {
			t.Errorf("row = %v", got)
		}
		return nil
	})
	if err != nil || !called {
		t.Errorf("custom validator: called=%t err=%v", called, err)
	}

	err = e.validateRow(2, bindings, row, func(int, map[string]string) error {
		return utils.PreconditionError("duplicate ear tag")
	})
	if err == nil {
		t.Error("custom validator failure ignored")
	}
}

func TestImportResult_ErrorCap(t *testing.T) {
	r := &ImportResult{}
	for i := 0; i < 10; i++ {
		r.addError(3, utils.RowError{RowNumber: i + 2, Err: "bad row " + strconv.Itoa(i)})
	}
	if len(r.Errors) != 3 {
		t.Errorf("kept %d errors, want 3", len(r.Errors))
	}
	if !r.ErrorsTruncated {
		t.Error("truncation not flagged")
	}
}

func TestImport_RejectsConflictingDuplicatePolicies(t *testing.T) {
	e := testEngine()
	_, err := e.Import(nil, "whatever.csv", "cattles", ImportOptions{
		SkipDuplicates:    true,
		UpdateOnDuplicate: true,
	})
	if err == nil {
		t.Error("conflicting duplicate policies accepted")
	}
}
