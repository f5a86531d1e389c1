package sqlite

import (
	"fmt"
	"strings"

	"github.com/lockplane/migrator/internal/dialect"
	"github.com/lockplane/migrator/internal/migerr"
)

func (d *Driver) MapFieldType(field dialect.FieldSpec) (string, error) {
	if field.NativeType != "" && field.NativeTypeDB == string(dialect.SQLite) {
		return field.NativeType, nil
	}
	switch strings.ToLower(field.Type) {
	case "string", "text", "uuid", "json", "jsonb":
		return "TEXT", nil
	case "int", "integer", "bigint", "smallint":
		return "INTEGER", nil
	case "float", "real", "double", "decimal", "numeric":
		return "REAL", nil
	case "boolean", "bool":
		return "INTEGER", nil
	case "bytes", "bytea":
		return "BLOB", nil
	case "date", "time", "datetime", "timestamp":
		return "TEXT", nil
	default:
		return "", migerr.InvalidInputf("sqlite: unsupported field type %q", field.Type)
	}
}

// EnumColumnType renders a CHECK-constrained TEXT column, the standard
// SQLite enum emulation: `TEXT CHECK(col IN ('a','b'))`.
func (d *Driver) EnumColumnType(tableName, columnName string, values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	col, _ := d.EscapeIdentifier(columnName)
	return fmt.Sprintf("TEXT CHECK(%s IN (%s))", col, strings.Join(quoted, ", "))
}
