package hrtest

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"
)

//go:embed testdata/hr.yaml
var fixtureYAML []byte

// Fixture is the decoded form of testdata/hr.yaml.
type Fixture struct {
	Schema []string `yaml:"schema"`
	Data   []struct {
		Table   string   `yaml:"table"`
		Columns []string `yaml:"columns"`
		Rows    [][]any  `yaml:"rows"`
	} `yaml:"data"`
}

// LoadFixture decodes the embedded HR fixture.
func LoadFixture() (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(fixtureYAML, &f); err != nil {
		return nil, fmt.Errorf("hrtest: decode fixture: %w", err)
	}
	return &f, nil
}

// Apply creates the HR tables and inserts the seed rows.
func (f *Fixture) Apply(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return err
	}
	for _, ddl := range f.Schema {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("hrtest: %s: %w", ddl, err)
		}
	}
	for _, t := range f.Data {
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			t.Table,
			strings.Join(t.Columns, ", "),
			strings.TrimSuffix(strings.Repeat("?, ", len(t.Columns)), ", "),
		)
		for _, row := range t.Rows {
			if _, err := db.ExecContext(ctx, query, row...); err != nil {
				return fmt.Errorf("hrtest: insert into %s: %w", t.Table, err)
			}
		}
	}
	return nil
}

// OpenDB returns an in-memory SQLite database loaded with the HR fixture.
// The pool is limited to one connection so every statement sees the same
// in-memory database.
func OpenDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	f, err := LoadFixture()
	require.NoError(t, err)
	require.NoError(t, f.Apply(context.Background(), db))
	return db
}
