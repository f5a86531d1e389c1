// Package mysql implements the dialect.Driver surface for MySQL, grounded
// on dialect/mysql/{mysql,table,migration}.go's CREATE TABLE/ALTER TABLE
// generation idiom (QuoteIdentifier, columnDefinition, tableOptions) in the
// mysql-flavoured example repo, since the teacher carries no MySQL driver
// of its own.
package mysql

import (
	"context"
	"fmt"
	"strings"

	"github.com/lockplane/migrator/internal/dialect"
	"github.com/lockplane/migrator/internal/migerr"
	"github.com/lockplane/migrator/internal/snapshot"
)

// Driver implements dialect.Driver for MySQL/MariaDB via go-sql-driver/mysql.
type Driver struct{}

func New() *Driver { return &Driver{} }

func init() {
	dialect.Register("mysql", New(), true)
}

func (d *Driver) Dialect() dialect.Name { return dialect.MySQL }
func (d *Driver) DriverName() string    { return "mysql" }

func (d *Driver) Capabilities() dialect.Capabilities {
	return dialect.Capabilities{
		SupportsNativeEnums:               true,
		SupportsAddEnumValueInTransaction: true,
		SupportsIndexTypes:                []snapshot.IndexType{snapshot.IndexBTree, snapshot.IndexHash, snapshot.IndexFull, snapshot.IndexSpatial},
		SupportsNativeArrays:              false,
	}
}

func (d *Driver) EscapeIdentifier(id string) (string, error) {
	if id == "" {
		return "", migerr.InvalidInputf("identifier must not be empty")
	}
	return "`" + strings.ReplaceAll(id, "`", "``") + "`", nil
}

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
		return "1"
	}
	return "0"
}

func (d *Driver) AutoGenerateExpr(kind string) (string, error) {
	switch kind {
	case "uuid":
		return "UUID()", nil
	case "now":
		return "CURRENT_TIMESTAMP", nil
	default:
		return "", migerr.FeatureNotSupportedf("mysql: no auto-generate expression for %q", kind)
	}
}

func (d *Driver) TrackingTableDDL(tableName string) string {
	escaped, _ := d.EscapeIdentifier(tableName)
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n"+
		"  id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,\n"+
		"  name VARCHAR(255) NOT NULL UNIQUE,\n"+
		"  checksum CHAR(64) NOT NULL,\n"+
		"  applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP\n"+
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci", escaped)
}

// LockSQL uses MySQL's named application lock (GET_LOCK/RELEASE_LOCK),
// MySQL's nearest equivalent of Postgres's advisory lock (spec §4.9): it is
// connection-scoped rather than transaction-scoped, so the caller must hold
// the same connection across acquire and release.
func (d *Driver) LockSQL(lockName string) (acquire, release string, ok bool) {
	escaped := strings.ReplaceAll(lockName, "'", "''")
	return fmt.Sprintf("SELECT GET_LOCK('%s', 30)", escaped),
		fmt.Sprintf("SELECT RELEASE_LOCK('%s')", escaped),
		true
}

func (d *Driver) ListTables(ctx context.Context, exec dialect.Executor) ([]string, error) {
	rows, err := exec.Execute(ctx, `SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE' ORDER BY table_name`)
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
		SELECT table_name, column_name, column_type
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND data_type = 'enum'
		ORDER BY table_name, column_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := map[string]bool{}
	var enums []snapshot.Enum
	for rows.Next() {
		var table, column, columnType string
		if err := rows.Scan(&table, &column, &columnType); err != nil {
			return nil, err
		}
		name := enumName(table, column)
		if seen[name] {
			continue
		}
		seen[name] = true
		enums = append(enums, snapshot.Enum{Name: name, Values: parseEnumColumnType(columnType)})
	}
	return enums, rows.Err()
}

// enumName follows the same <table>_<column>_enum naming scheme as the
// sqlite and postgres drivers, so a schema round-tripped through any
// dialect keeps a stable enum identity.
func enumName(table, column string) string {
	return table + "_" + column + "_enum"
}
