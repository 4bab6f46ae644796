package bulk

import (
	"fmt"
	"strings"
)

// ColumnSpec is one importable column. Rule is a validator/v10 tag applied to
// the raw cell value ("" means unvalidated).
type ColumnSpec struct {
	Name string
	Rule string
}

// TableSpec allow-lists a table for bulk transfer. Only registered tables and
// columns ever reach SQL, so user-supplied names cannot inject identifiers.
type TableSpec struct {
	Name    string
	Columns []ColumnSpec
}

func (t TableSpec) column(name string) (ColumnSpec, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

func (t TableSpec) columnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

var tableRegistry = map[string]TableSpec{
	"bases": {
		Name: "bases",
		Columns: []ColumnSpec{
			{Name: "farm_id", Rule: "required"},
			{Name: "name", Rule: "required"},
			{Name: "address"},
			{Name: "capacity", Rule: "omitempty,numeric"},
		},
	},
	"materials": {
		Name: "materials",
		Columns: []ColumnSpec{
			{Name: "farm_id", Rule: "required"},
			{Name: "name", Rule: "required"},
			{Name: "category"},
			{Name: "unit"},
		},
	},
	"cattles": {
		Name: "cattles",
		Columns: []ColumnSpec{
			{Name: "farm_id", Rule: "required"},
			{Name: "ear_tag", Rule: "required"},
			{Name: "breed"},
			{Name: "gender", Rule: "omitempty,oneof=male female"},
			{Name: "weight", Rule: "omitempty,numeric"},
			{Name: "base_id", Rule: "omitempty,numeric"},
			{Name: "health_status", Rule: "omitempty,oneof=healthy sick treatment"},
			{Name: "status", Rule: "omitempty,oneof=active sold dead"},
		},
	},
	"inventories": {
		Name: "inventories",
		Columns: []ColumnSpec{
			{Name: "farm_id", Rule: "required"},
			{Name: "material_id", Rule: "required,numeric"},
			{Name: "base_id", Rule: "required,numeric"},
			{Name: "current_stock", Rule: "omitempty,numeric"},
			{Name: "min_stock", Rule: "omitempty,numeric"},
		},
	},
	"health_records": {
		Name: "health_records",
		Columns: []ColumnSpec{
			{Name: "farm_id", Rule: "required"},
			{Name: "cattle_id", Rule: "required,numeric"},
			{Name: "status", Rule: "required,oneof=ongoing treatment completed"},
			{Name: "diagnosis"},
			{Name: "treatment"},
			{Name: "record_date"},
		},
	},
}

// LookupTable resolves an allow-listed table by name.
func LookupTable(name string) (TableSpec, error) {
	spec, ok := tableRegistry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return TableSpec{}, fmt.Errorf("table %q is not registered for bulk transfer", name)
	}
	return spec, nil
}

// RegisterTable adds or replaces a registry entry. Intended for wiring
// deployment-specific tables at startup.
func RegisterTable(spec TableSpec) {
	tableRegistry[spec.Name] = spec
}

// Predicate is one parameterized filter condition. Free-text SQL fragments
// are not accepted anywhere in this package.
type Predicate struct {
	Field string      `json:"field"`
	Op    string      `json:"op"`
	Value interface{} `json:"value"`
}

var allowedOps = map[string]string{
	"=": "=", "!=": "<>", ">": ">", ">=": ">=", "<": "<", "<=": "<=",
	"like": "LIKE", "in": "IN",
}

// BuildWhere turns predicates into a parameterized WHERE fragment. Fields
// must be registered columns of the table and operators must be allow-listed.
func BuildWhere(spec TableSpec, predicates []Predicate) (string, []interface{}, error) {
	if len(predicates) == 0 {
		return "", nil, nil
	}
	var conds []string
	var args []interface{}
	for _, pred := range predicates {
		if _, ok := spec.column(pred.Field); !ok {
			return "", nil, fmt.Errorf("field %q is not a column of %s", pred.Field, spec.Name)
		}
		op, ok := allowedOps[strings.ToLower(strings.TrimSpace(pred.Op))]
		if !ok {
			return "", nil, fmt.Errorf("operator %q is not allowed", pred.Op)
		}
		if op == "IN" {
			conds = append(conds, fmt.Sprintf("%s IN (?)", pred.Field))
		} else {
			conds = append(conds, fmt.Sprintf("%s %s ?", pred.Field, op))
		}
		args = append(args, pred.Value)
	}
	return strings.Join(conds, " AND "), args, nil
}
