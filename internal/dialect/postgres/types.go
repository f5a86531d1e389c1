package postgres

import (
	"fmt"
	"strings"

	"github.com/lockplane/migrator/internal/dialect"
	"github.com/lockplane/migrator/internal/migerr"
)

// MapFieldType renders field's native PostgreSQL type: the base type (or a
// PostgreSQL native-type override), with `[]` appended for arrays. It does
// not look at field.AutoGenerate; SERIAL/BIGSERIAL/SMALLSERIAL are chosen
// later by formatColumn in render.go from Column.AutoIncrement.
func (d *Driver) MapFieldType(field dialect.FieldSpec) (string, error) {
	if field.NativeType != "" && field.NativeTypeDB == string(dialect.PostgreSQL) {
		return applyArray(field.NativeType, field.Array), nil
	}

	base, err := baseType(field.Type, field.WithTimezone)
	if err != nil {
		return "", err
	}
	return applyArray(base, field.Array), nil
}

func applyArray(t string, isArray bool) string {
	if isArray {
		return t + "[]"
	}
	return t
}

func baseType(t string, withTimezone bool) (string, error) {
	switch strings.ToLower(t) {
	case "string", "text":
		return "text", nil
	case "int", "integer", "int4":
		return "integer", nil
	case "bigint", "int8":
		return "bigint", nil
	case "smallint", "int2":
		return "smallint", nil
	case "float", "real", "float4":
		return "real", nil
	case "double", "float8":
		return "double precision", nil
	case "boolean", "bool":
		return "boolean", nil
	case "uuid":
		return "uuid", nil
	case "json":
		return "json", nil
	case "jsonb":
		return "jsonb", nil
	case "bytes", "bytea":
		return "bytea", nil
	case "decimal", "numeric":
		return "numeric", nil
	case "date":
		return "date", nil
	case "time":
		if withTimezone {
			return "time with time zone", nil
		}
		return "time", nil
	case "datetime", "timestamp":
		if withTimezone {
			return "timestamp with time zone", nil
		}
		return "timestamp", nil
	default:
		return "", migerr.InvalidInputf("postgresql: unsupported field type %q", t)
	}
}

// SerialTypeFor returns the SERIAL-family type that matches base when a
// column is auto-incrementing, or "" if base has no serial counterpart
// (generation fails in that case per Open Question (b): autoIncrement is
// only legal on an integer-family PK).
func SerialTypeFor(base string) string {
	switch strings.ToLower(base) {
	case "smallint":
		return "smallserial"
	case "integer":
		return "serial"
	case "bigint":
		return "bigserial"
	default:
		return ""
	}
}

// EnumColumnType returns the native enum type name `<table>_<column>_enum`.
// PostgreSQL enums are top-level named types, so the column's type string is
// that name alone; CREATE TYPE is a separate statement emitted by
// Render(createEnum).
func (d *Driver) EnumColumnType(tableName, columnName string, values []string) string {
	return fmt.Sprintf("%s_%s_enum", tableName, columnName)
}
