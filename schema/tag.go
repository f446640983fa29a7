package schema

import (
	"fmt"
	"strings"
)

// TagName is the struct tag key read by the Builder.
//
//	ID         int64       `loom:"employee_id,pk"`
//	HireDate   time.Time   `loom:"hire_date,date"`
//	Department *Department `loom:"department,m2o,fk=department_id"`
//	Projects   []*Project  `loom:"projects,m2m,join=employee_projects,source=employee_id,target=project_id"`
//	Internal   string      `loom:"-"`
//
// Composite column lists are joined with '+' (fk=org_id+dept_id).
const TagName = "loom"

type tag struct {
	name      string
	skip      bool
	key       bool
	generated bool
	temporal  Temporal
	rel       Rel
	inverse   bool
	fk        []string
	join      string
	source    []string
	target    []string
}

func parseTag(s string) (tag, error) {
	var t tag
	if s == "-" {
		t.skip = true
		return t, nil
	}
	parts := strings.Split(s, ",")
	t.name = strings.TrimSpace(parts[0])
	for _, p := range parts[1:] {
		k, v, hasValue := strings.Cut(strings.TrimSpace(p), "=")
		switch k {
		case "pk":
			t.key = true
		case "generated":
			t.generated = true
		case "date":
			t.temporal = Date
		case "time":
			t.temporal = Time
		case "datetime":
			t.temporal = DateTime
		case "m2o":
			t.rel = M2O
		case "o2o":
			t.rel = O2O
		case "o2m":
			t.rel = O2M
		case "m2m":
			t.rel = M2M
		case "inverse":
			t.inverse = true
		case "fk", "join", "source", "target":
			if !hasValue || v == "" {
				return t, fmt.Errorf("option %q requires a value", k)
			}
			switch k {
			case "fk":
				t.fk = splitColumns(v)
			case "join":
				t.join = v
			case "source":
				t.source = splitColumns(v)
			case "target":
				t.target = splitColumns(v)
			}
		case "":
		default:
			return t, fmt.Errorf("unknown option %q", k)
		}
	}
	if t.rel == Unk && (t.inverse || t.fk != nil || t.join != "" || t.source != nil || t.target != nil) {
		return t, fmt.Errorf("relation options require one of m2o, o2o, o2m or m2m")
	}
	if t.rel != Unk && (t.key || t.generated) {
		return t, fmt.Errorf("a relation cannot be a key column")
	}
	if t.inverse && t.rel != O2O {
		return t, fmt.Errorf("inverse applies to o2o relations only")
	}
	if t.rel != M2M && (t.join != "" || t.source != nil || t.target != nil) {
		return t, fmt.Errorf("join/source/target options apply to m2m relations only")
	}
	if t.rel == M2M && t.fk != nil {
		return t, fmt.Errorf("m2m relations use source and target instead of fk")
	}
	return t, nil
}

func splitColumns(s string) []string {
	cols := strings.Split(s, "+")
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	return cols
}
