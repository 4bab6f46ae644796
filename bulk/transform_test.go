package bulk

import (
	"context"
	"strings"
	"testing"
)

func TestTransformRejectsUnknownTables(t *testing.T) {
	e := testEngine()
	if _, err := e.Transform(context.Background(), "nope", "materials", TransformRules{}); err == nil {
		t.Error("unknown source table accepted")
	}
	if _, err := e.Transform(context.Background(), "materials", "nope", TransformRules{}); err == nil {
		t.Error("unknown dest table accepted")
	}
}

func TestTransformRejectsUnboundTransformer(t *testing.T) {
	e := testEngine()
	rules := TransformRules{
		Transformers: map[string]FieldTransformer{
			"ear_tag": func(v string) (string, error) { return v, nil },
		},
	}
	_, err := e.Transform(context.Background(), "materials", "bases", rules)
	if err == nil || !strings.Contains(err.Error(), "ear_tag") {
		t.Errorf("err = %v, want transformer target rejection", err)
	}
}

func TestTransformRejectsDisjointColumns(t *testing.T) {
	e := testEngine()
	// Map every shared materials column away from anything bases has.
	rules := TransformRules{
		ColumnMapping: map[string]string{
			"farm_id":  "no_such",
			"name":     "no_such",
			"category": "no_such",
			"unit":     "no_such",
		},
	}
	_, err := e.Transform(context.Background(), "materials", "bases", rules)
	if err == nil || !strings.Contains(err.Error(), "maps to a column") {
		t.Errorf("err = %v, want disjoint-column rejection", err)
	}
}

func TestDestBindings(t *testing.T) {
	dst, err := LookupTable("materials")
	if err != nil {
		t.Fatal(err)
	}
	got := destBindings(dst, []string{"name", "unit"})
	if len(got) != 2 {
		t.Fatalf("bindings = %d, want 2", len(got))
	}
	if got[0].column.Name != "name" || got[0].sourceIndex != 0 {
		t.Errorf("binding[0] = %+v", got[0])
	}
	if got[1].column.Name != "unit" || got[1].sourceIndex != 1 {
		t.Errorf("binding[1] = %+v", got[1])
	}
}
