// Package dialect defines the polymorphic driver surface of spec.md §4.6: a
// common Driver interface implemented once per target (postgres, mysql,
// sqlite, libsql) plus a process-wide registry so callers can look a driver
// up by driverName with a dialect-default fallback.
//
// Grounded on database/interface.go's Driver/SQLGenerator/Introspector
// split, generalised into a single capability-gated surface per spec's
// tagged-union guidance: where the teacher has one generator method per
// operation returning (sql, description), this Driver has a single Render
// method that dispatches on the DiffOperation kind and returns the full
// statement list a single operation may require (plain DDL is one statement; table recreation or
// enum recreation are several).
package dialect

import (
	"context"
	"database/sql"

	"github.com/lockplane/migrator/internal/diffop"
	"github.com/lockplane/migrator/internal/snapshot"
)

// Name identifies the SQL dialect a driver speaks, distinct from the
// concrete driverName (connection library) that implements it — e.g.
// dialect "sqlite" is spoken by driverName "sqlite3" and "libsql".
type Name string

const (
	PostgreSQL Name = "postgresql"
	MySQL      Name = "mysql"
	SQLite     Name = "sqlite"
)

// Capabilities gates which fallback a Driver needs for a given operation.
type Capabilities struct {
	SupportsNativeEnums              bool
	SupportsAddEnumValueInTransaction bool
	SupportsIndexTypes                []snapshot.IndexType
	SupportsNativeArrays              bool
}

// SupportsIndexType reports whether t is in the capability list (the empty
// IndexType, meaning "dialect default", is always supported).
func (c Capabilities) SupportsIndexType(t snapshot.IndexType) bool {
	if t == "" {
		return true
	}
	for _, supported := range c.SupportsIndexTypes {
		if supported == t {
			return true
		}
	}
	return false
}

// FieldSpec is the minimal slice of the out-of-scope field DSL (spec §6)
// that MapFieldType needs to render a native column type.
type FieldSpec struct {
	Type          string
	Nullable      bool
	Array         bool
	HasDefault    bool
	Default       string
	AutoGenerate  string
	WithTimezone  bool
	IsUnique      bool
	IsID          bool
	ColumnName    string
	NativeType    string // honoured verbatim when non-empty, overriding Type
	NativeTypeDB  string // dialect this NativeType override targets
}

// Executor is the injected database access point every dialect operates
// through: a single function for query/exec plus an optional native batch
// facility (§6's external interface).
type Executor interface {
	Execute(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecuteBatch(ctx context.Context, statements []string) error
	SupportsBatch() bool
	SupportsTransactions() bool
}

// Driver is the full polymorphic surface every dialect implements.
type Driver interface {
	Dialect() Name
	DriverName() string
	Capabilities() Capabilities

	Introspect(ctx context.Context, exec Executor) (*snapshot.Schema, error)

	MapFieldType(field FieldSpec) (string, error)
	EnumColumnType(tableName, columnName string, values []string) string

	// Render produces the ordered SQL statements (and any warning comments,
	// rendered as `-- ` prefixed lines within the statement stream) that
	// implement a single operation. Render never receives Kind values it
	// cannot recognise from a well-sorted plan; an unrecognised Kind is an
	// InternalError, per spec §4.6's exhaustive-dispatch guidance.
	Render(op diffop.Operation) ([]string, error)

	TrackingTableDDL(tableName string) string
	LockSQL(lockName string) (acquire, release string, ok bool)

	EscapeIdentifier(id string) (string, error)
	EscapeValue(value any) (string, error)
	BoolDefault(b bool) string
	AutoGenerateExpr(kind string) (string, error)

	ListTables(ctx context.Context, exec Executor) ([]string, error)
	ListEnums(ctx context.Context, exec Executor) ([]snapshot.Enum, error)
}
