package schema

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
	"github.com/jinzhu/inflection"
	"golang.org/x/text/cases"
)

// TableNamer is implemented by entity types that choose their own table name.
type TableNamer interface {
	TableName() string
}

var tableNamerType = reflect.TypeOf((*TableNamer)(nil)).Elem()

// snake converts a Go identifier to snake_case, keeping acronyms together
// ("HireDate" => "hire_date", "CountryID" => "country_id").
func snake(s string) string {
	var (
		j int
		b strings.Builder
	)
	for i := 0; i < len(s); i++ {
		r := rune(s[i])
		// Put '_' if it is not a start or end of a word, current letter is uppercase,
		// and previous is lowercase (cases like: "HireDate"), or next letter is also
		// a lowercase and previous letter is not "_".
		if i > 0 && i < len(s)-1 && unicode.IsUpper(r) {
			if unicode.IsLower(rune(s[i-1])) ||
				j != i-1 && unicode.IsLower(rune(s[i+1])) && unicode.IsLetter(rune(s[i-1])) {
				j = i
				b.WriteString("_")
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// defaultTable returns the default table name of a struct type: the plural
// of its snake-cased name ("Employee" => "employees").
func defaultTable(t reflect.Type) string {
	return inflection.Plural(snake(t.Name()))
}

// defaultJoinTable returns the default join table of a many-to-many relation:
// the singular owner table followed by the target table ("employee_projects").
func defaultJoinTable(owner, target string) string {
	return inflect.Singularize(owner) + "_" + target
}

// tableOf resolves the table name of t, honoring TableNamer on the value or
// pointer receiver.
func tableOf(t reflect.Type) string {
	switch {
	case t.Implements(tableNamerType):
		return reflect.Zero(t).Interface().(TableNamer).TableName()
	case reflect.PointerTo(t).Implements(tableNamerType):
		return reflect.New(t).Interface().(TableNamer).TableName()
	}
	return defaultTable(t)
}

// fold returns the case-insensitive key of a column name. A Caser is
// stateful, so a new one is taken per call.
func fold(s string) string {
	return cases.Fold().String(s)
}
