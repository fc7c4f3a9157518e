//nolint:testpackage // Testing unexported WHERE builder
package database

import (
	"strings"
	"testing"

	"github.com/jonesrussell/north-cloud/catalog/internal/domain"
)

func TestBuildWhere_BindsEveryValue(t *testing.T) {
	t.Parallel()

	where, args := buildWhere(domain.Filter{
		Status:       domain.StatusNew,
		Source:       "web'; DROP TABLE tags;--",
		NameContains: "50%",
		Tags:         []string{"Fin", "fin", "report"},
	})

	if strings.Contains(where, "DROP TABLE") {
		t.Fatalf("user input interpolated into SQL: %s", where)
	}
	if !strings.Contains(where, "HAVING COUNT(DISTINCT m.p) = 2") {
		t.Errorf("expected two distinct tag patterns, got: %s", where)
	}

	want := []any{domain.StatusNew, "web'; DROP TABLE tags;--", `%50\%%`, "%fin%", "%report%"}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %v, want %v", i, args[i], want[i])
		}
	}
}

func TestBuildWhere_Empty(t *testing.T) {
	t.Parallel()

	where, args := buildWhere(domain.Filter{Tags: []string{" "}})
	if where != "" || len(args) != 0 {
		t.Errorf("buildWhere(empty) = %q, %v", where, args)
	}
}

func TestSQLiteDSN(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dsn, err := sqliteDSN(dir + "/nested/catalog.db?cache=shared&_journal_mode=DELETE")
	if err != nil {
		t.Fatalf("sqliteDSN() error = %v", err)
	}
	want := dir + "/nested/catalog.db?cache=shared&_journal_mode=DELETE&_foreign_keys=on&_busy_timeout=5000"
	if dsn != want {
		t.Errorf("sqliteDSN() = %q, want %q", dsn, want)
	}
}
