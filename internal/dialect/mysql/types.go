package mysql

import (
	"fmt"
	"strings"

	"github.com/lockplane/migrator/internal/dialect"
	"github.com/lockplane/migrator/internal/migerr"
)

func (d *Driver) MapFieldType(field dialect.FieldSpec) (string, error) {
	if field.NativeType != "" && field.NativeTypeDB == string(dialect.MySQL) {
		return field.NativeType, nil
	}
	switch strings.ToLower(field.Type) {
	case "string", "text":
		return "VARCHAR(255)", nil
	case "uuid":
		return "BINARY(16)", nil
	case "json", "jsonb":
		return "JSON", nil
	case "int", "integer":
		return "INT", nil
	case "bigint":
		return "BIGINT", nil
	case "smallint":
		return "SMALLINT", nil
	case "float", "double":
		return "DOUBLE", nil
	case "decimal", "numeric":
		return "DECIMAL(18,4)", nil
	case "boolean", "bool":
		return "TINYINT(1)", nil
	case "bytes", "bytea":
		return "BLOB", nil
	case "date":
		return "DATE", nil
	case "time":
		return "TIME", nil
	case "datetime", "timestamp":
		if field.WithTimezone {
			return "TIMESTAMP", nil
		}
		return "DATETIME", nil
	default:
		return "", migerr.InvalidInputf("mysql: unsupported field type %q", field.Type)
	}
}

// EnumColumnType renders MySQL's native ENUM(...) column type.
func (d *Driver) EnumColumnType(tableName, columnName string, values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return fmt.Sprintf("ENUM(%s)", strings.Join(quoted, ", "))
}

// parseEnumColumnType parses information_schema's COLUMN_TYPE representation
// of an enum, e.g. "enum('a','b','c')", back into its ordered value list.
func parseEnumColumnType(columnType string) []string {
	start := strings.IndexByte(columnType, '(')
	end := strings.LastIndexByte(columnType, ')')
	if start < 0 || end < 0 || end <= start {
		return nil
	}
	inner := columnType[start+1 : end]

	var values []string
	var cur strings.Builder
	inQuote := false
	runes := []rune(inner)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '\'' && inQuote && i+1 < len(runes) && runes[i+1] == '\'':
			cur.WriteByte('\'')
			i++
		case c == '\\' && inQuote && i+1 < len(runes):
			cur.WriteRune(runes[i+1])
			i++
		case c == '\'':
			inQuote = !inQuote
		case c == ',' && !inQuote:
			values = append(values, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(c)
		}
	}
	if cur.Len() > 0 || len(values) > 0 {
		values = append(values, cur.String())
	}
	return values
}
