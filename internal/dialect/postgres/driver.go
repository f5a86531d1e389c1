// Package postgres implements the dialect.Driver surface for PostgreSQL,
// grounded on database/postgres/{driver,generator,introspector}.go:
// natively renders every DiffOperation, models auto-increment via
// SERIAL/BIGSERIAL/SMALLSERIAL, and implements the six-step enum value
// removal of spec.md §4.7 rather than the teacher's flat CREATE TYPE-only
// enum handling (the teacher has no enum support at all).
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/lockplane/migrator/internal/dialect"
	"github.com/lockplane/migrator/internal/migerr"
	"github.com/lockplane/migrator/internal/snapshot"
)

// Driver implements dialect.Driver for PostgreSQL.
type Driver struct{}

func New() *Driver { return &Driver{} }

func init() {
	dialect.Register("pg", New(), true)
	dialect.Register("pglite", New(), false)
}

func (d *Driver) Dialect() dialect.Name    { return dialect.PostgreSQL }
func (d *Driver) DriverName() string       { return "pg" }

func (d *Driver) Capabilities() dialect.Capabilities {
	return dialect.Capabilities{
		SupportsNativeEnums:               true,
		SupportsAddEnumValueInTransaction: false,
		SupportsIndexTypes:                []snapshot.IndexType{snapshot.IndexBTree, snapshot.IndexHash, snapshot.IndexGIN, snapshot.IndexGiST},
		SupportsNativeArrays:              true,
	}
}

// EscapeIdentifier double-quotes id, doubling any internal double quote.
func (d *Driver) EscapeIdentifier(id string) (string, error) {
	if id == "" {
		return "", migerr.InvalidInputf("identifier must not be empty")
	}
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`, nil
}

// EscapeValue renders value as a SQL literal. Strings are single-quoted
// with internal quotes doubled; everything else uses its default
// formatting, which is sufficient for the numeric/bool literals that reach
// this path (defaults arrive pre-rendered per spec §3).
func (d *Driver) EscapeValue(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "NULL", nil
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'", nil
	case bool:
		return d.BoolDefault(v), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

func (d *Driver) BoolDefault(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func (d *Driver) AutoGenerateExpr(kind string) (string, error) {
	switch kind {
	case "uuid":
		return "gen_random_uuid()", nil
	case "now":
		return "now()", nil
	default:
		return "", migerr.FeatureNotSupportedf("postgresql: no auto-generate expression for %q", kind)
	}
}

func (d *Driver) TrackingTableDDL(tableName string) string {
	escaped, _ := d.EscapeIdentifier(tableName)
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  checksum TEXT NOT NULL,
  applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
)`, escaped)
}

// LockSQL returns the pg_advisory_lock/unlock pair. PostgreSQL hashes
// lockName to a bigint via hashtextextended so callers can pass a readable
// name instead of managing an integer namespace themselves.
func (d *Driver) LockSQL(lockName string) (acquire, release string, ok bool) {
	escaped, _ := d.EscapeValue(lockName)
	return fmt.Sprintf("SELECT pg_advisory_lock(hashtextextended(%s, 0))", escaped),
		fmt.Sprintf("SELECT pg_advisory_unlock(hashtextextended(%s, 0))", escaped),
		true
}

func (d *Driver) ListTables(ctx context.Context, exec dialect.Executor) ([]string, error) {
	rows, err := exec.Execute(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (d *Driver) ListEnums(ctx context.Context, exec dialect.Executor) ([]snapshot.Enum, error) {
	rows, err := exec.Execute(ctx, `
		SELECT t.typname, e.enumlabel
		FROM pg_type t
		JOIN pg_enum e ON e.enumtypid = t.oid
		JOIN pg_namespace n ON n.oid = t.typnamespace
		WHERE n.nspname = current_schema()
		ORDER BY t.typname, e.enumsortorder`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := make(map[string]*snapshot.Enum)
	var order []string
	for rows.Next() {
		var name, label string
		if err := rows.Scan(&name, &label); err != nil {
			return nil, err
		}
		e, ok := byName[name]
		if !ok {
			e = &snapshot.Enum{Name: name}
			byName[name] = e
			order = append(order, name)
		}
		e.Values = append(e.Values, label)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	enums := make([]snapshot.Enum, 0, len(order))
	for _, name := range order {
		enums = append(enums, *byName[name])
	}
	return enums, nil
}
