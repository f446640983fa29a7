package schema

import (
	"fmt"
	"strings"
)

// ValidationError represents a metadata validation problem.
type ValidationError struct {
	Table   string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// ValidationResult holds the results of registry validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	if len(r.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, e := range r.Errors {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			sb.WriteString("\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("  - ")
			sb.WriteString(w.Error())
			sb.WriteString("\n")
		}
	}
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

// Error implements the error interface so a failed Build can return the
// whole result.
func (r *ValidationResult) Error() string {
	return "loom: invalid schema:\n" + r.String()
}

func (r *ValidationResult) errorf(table, field, format string, args ...any) {
	r.Errors = append(r.Errors, &ValidationError{Table: table, Field: field, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) warnf(table, field, format string, args ...any) {
	r.Warnings = append(r.Warnings, &ValidationError{Table: table, Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks the invariants of a set of resolved entities.
func Validate(entities []*Entity) *ValidationResult {
	result := &ValidationResult{}
	tables := make(map[string]bool, len(entities))
	for _, e := range entities {
		if tables[e.Table] {
			result.errorf(e.Table, "", "duplicate table name")
		}
		tables[e.Table] = true
		validateEntity(e, result)
	}
	return result
}

func validateEntity(e *Entity, result *ValidationResult) {
	if e.Table == "" {
		result.errorf(e.Name, "", "empty table name")
	}
	if len(e.Keys) == 0 {
		result.errorf(e.Table, "", "entity has no primary key")
	}
	seen := make(map[string]bool, len(e.Columns))
	for _, c := range e.Columns {
		k := fold(c.Name)
		if seen[k] {
			result.errorf(e.Table, c.Name, "duplicate column name")
		}
		seen[k] = true
		if strings.Contains(c.Name, ".") {
			result.errorf(e.Table, c.Name, "column name must not contain '.'")
		}
		if c.Generated && !c.Key {
			result.warnf(e.Table, c.Name, "generated column is not part of the primary key")
		}
	}
	for _, k := range e.Keys {
		if c, ok := e.columns[fold(k.Name)]; !ok || c != k {
			result.errorf(e.Table, k.Name, "primary key is not a column")
		}
	}
	names := make(map[string]bool, len(e.Relations))
	for _, r := range e.Relations {
		if names[r.Name] {
			result.errorf(e.Table, r.Name, "duplicate relation name")
		}
		names[r.Name] = true
		if r.Name == "" || strings.ContainsAny(r.Name, ".%") {
			result.errorf(e.Table, r.Field(), "invalid relation name %q", r.Name)
		}
		if r.target == nil {
			result.errorf(e.Table, r.Name, "relation target %s is not a registered entity", r.typ)
			continue
		}
		if n := len(r.ReferencedKeys()); len(r.Columns) != n {
			result.errorf(e.Table, r.Name, "relation has %d foreign-key columns, referenced key has %d", len(r.Columns), n)
		}
		if r.Rel == M2M {
			if r.Table == "" {
				result.errorf(e.Table, r.Name, "many-to-many relation without join table")
			}
			if len(r.SourceColumns) != len(e.Keys) {
				result.errorf(e.Table, r.Name, "join table has %d source columns, owner key has %d", len(r.SourceColumns), len(e.Keys))
			}
		}
	}
}
