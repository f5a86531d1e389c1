package postgres

import (
	"context"
	"strings"

	"github.com/lockplane/migrator/internal/dialect"
	"github.com/lockplane/migrator/internal/snapshot"
)

// Introspect reads the live PostgreSQL schema into a snapshot.Schema,
// grounded on database/postgres/introspector.go's per-table catalog query
// sequence, extended with primary key, unique constraint, and enum
// coverage the teacher's introspector lacks.
func (d *Driver) Introspect(ctx context.Context, exec dialect.Executor) (*snapshot.Schema, error) {
	tableNames, err := d.ListTables(ctx, exec)
	if err != nil {
		return nil, err
	}
	enums, err := d.ListEnums(ctx, exec)
	if err != nil {
		return nil, err
	}
	enumNames := make(map[string]struct{}, len(enums))
	for _, e := range enums {
		enumNames[e.Name] = struct{}{}
	}

	schema := &snapshot.Schema{Enums: enums}
	for _, name := range tableNames {
		table, err := d.introspectTable(ctx, exec, name, enumNames)
		if err != nil {
			return nil, err
		}
		schema.Tables = append(schema.Tables, *table)
	}
	return schema, nil
}

func (d *Driver) introspectTable(ctx context.Context, exec dialect.Executor, name string, enumNames map[string]struct{}) (*snapshot.Table, error) {
	table := &snapshot.Table{Name: name}

	cols, err := d.introspectColumns(ctx, exec, name, enumNames)
	if err != nil {
		return nil, err
	}
	table.Columns = cols

	pk, err := d.introspectPrimaryKey(ctx, exec, name)
	if err != nil {
		return nil, err
	}
	table.PrimaryKey = pk

	idx, err := d.introspectIndexes(ctx, exec, name)
	if err != nil {
		return nil, err
	}
	table.Indexes = idx

	uq, err := d.introspectUniqueConstraints(ctx, exec, name)
	if err != nil {
		return nil, err
	}
	table.UniqueConstraints = uq

	fks, err := d.introspectForeignKeys(ctx, exec, name)
	if err != nil {
		return nil, err
	}
	table.ForeignKeys = fks

	return table, nil
}

func (d *Driver) introspectColumns(ctx context.Context, exec dialect.Executor, tableName string, enumNames map[string]struct{}) ([]snapshot.Column, error) {
	rows, err := exec.Execute(ctx, `
		SELECT column_name, data_type, udt_name, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []snapshot.Column
	for rows.Next() {
		var name, dataType, udtName, nullable string
		var defaultVal *string
		if err := rows.Scan(&name, &dataType, &udtName, &nullable, &defaultVal); err != nil {
			return nil, err
		}
		col := snapshot.Column{Name: name, Nullable: nullable == "YES"}

		colType := dataType
		if strings.EqualFold(dataType, "USER-DEFINED") {
			colType = udtName
		}
		if defaultVal != nil && isSerialDefault(*defaultVal) {
			col.AutoIncrement = true
			col.Type = serialBaseType(colType)
		} else {
			col.Type = colType
			if defaultVal != nil {
				col.Default = strPtr(normalizePGDefault(*defaultVal))
			}
		}
		_ = enumNames
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

func (d *Driver) introspectPrimaryKey(ctx context.Context, exec dialect.Executor, tableName string) (*snapshot.PrimaryKey, error) {
	rows, err := exec.Execute(ctx, `
		SELECT tc.constraint_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = current_schema() AND tc.table_name = $1 AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kcu.ordinal_position`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pk *snapshot.PrimaryKey
	for rows.Next() {
		var name, col string
		if err := rows.Scan(&name, &col); err != nil {
			return nil, err
		}
		if pk == nil {
			pk = &snapshot.PrimaryKey{Name: name}
		}
		pk.Columns = append(pk.Columns, col)
	}
	return pk, rows.Err()
}

func (d *Driver) introspectIndexes(ctx context.Context, exec dialect.Executor, tableName string) ([]snapshot.Index, error) {
	rows, err := exec.Execute(ctx, `
		SELECT ix.relname, a.attname, array_position(i.indkey, a.attnum), i.indisunique, am.amname
		FROM pg_index i
		JOIN pg_class ix ON ix.oid = i.indexrelid
		JOIN pg_class t ON t.oid = i.indrelid
		JOIN pg_am am ON am.oid = ix.relam
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(i.indkey)
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE t.relname = $1 AND n.nspname = current_schema() AND i.indisprimary = false
		  AND NOT EXISTS (
			SELECT 1 FROM pg_constraint con WHERE con.conindid = i.indexrelid AND con.contype IN ('p','u')
		  )
		ORDER BY ix.relname, array_position(i.indkey, a.attnum)`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := make(map[string]*snapshot.Index)
	var order []string
	for rows.Next() {
		var idxName, colName, method string
		var pos int
		var unique bool
		if err := rows.Scan(&idxName, &colName, &pos, &unique, &method); err != nil {
			return nil, err
		}
		idx, ok := byName[idxName]
		if !ok {
			idx = &snapshot.Index{Name: idxName, Unique: unique, Type: normalizeIndexMethod(method)}
			byName[idxName] = idx
			order = append(order, idxName)
		}
		idx.Columns = append(idx.Columns, colName)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	indexes := make([]snapshot.Index, 0, len(order))
	for _, n := range order {
		indexes = append(indexes, *byName[n])
	}
	return indexes, nil
}

func normalizeIndexMethod(amname string) snapshot.IndexType {
	switch strings.ToLower(amname) {
	case "btree":
		return snapshot.IndexBTree
	case "hash":
		return snapshot.IndexHash
	case "gin":
		return snapshot.IndexGIN
	case "gist":
		return snapshot.IndexGiST
	default:
		return ""
	}
}

func (d *Driver) introspectUniqueConstraints(ctx context.Context, exec dialect.Executor, tableName string) ([]snapshot.UniqueConstraint, error) {
	rows, err := exec.Execute(ctx, `
		SELECT tc.constraint_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = current_schema() AND tc.table_name = $1 AND tc.constraint_type = 'UNIQUE'
		ORDER BY tc.constraint_name, kcu.ordinal_position`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := make(map[string]*snapshot.UniqueConstraint)
	var order []string
	for rows.Next() {
		var name, col string
		if err := rows.Scan(&name, &col); err != nil {
			return nil, err
		}
		uq, ok := byName[name]
		if !ok {
			uq = &snapshot.UniqueConstraint{Name: name}
			byName[name] = uq
			order = append(order, name)
		}
		uq.Columns = append(uq.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]snapshot.UniqueConstraint, 0, len(order))
	for _, n := range order {
		out = append(out, *byName[n])
	}
	return out, nil
}

func (d *Driver) introspectForeignKeys(ctx context.Context, exec dialect.Executor, tableName string) ([]snapshot.ForeignKey, error) {
	rows, err := exec.Execute(ctx, `
		SELECT tc.constraint_name, kcu.column_name, ccu.table_name, ccu.column_name, rc.update_rule, rc.delete_rule
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
		JOIN information_schema.referential_constraints rc
			ON rc.constraint_name = tc.constraint_name AND rc.constraint_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = current_schema() AND tc.table_name = $1
		ORDER BY tc.constraint_name, kcu.ordinal_position`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := make(map[string]*snapshot.ForeignKey)
	var order []string
	for rows.Next() {
		var name, col, refTable, refCol, updateRule, deleteRule string
		if err := rows.Scan(&name, &col, &refTable, &refCol, &updateRule, &deleteRule); err != nil {
			return nil, err
		}
		fk, ok := byName[name]
		if !ok {
			fk = &snapshot.ForeignKey{
				Name: name, ReferencedTable: refTable,
				OnUpdate: referentialActionFromSQL(updateRule),
				OnDelete: referentialActionFromSQL(deleteRule),
			}
			byName[name] = fk
			order = append(order, name)
		}
		fk.Columns = append(fk.Columns, col)
		fk.ReferencedColumns = append(fk.ReferencedColumns, refCol)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]snapshot.ForeignKey, 0, len(order))
	for _, n := range order {
		out = append(out, *byName[n])
	}
	return out, nil
}

func referentialActionFromSQL(rule string) snapshot.ReferentialAction {
	switch strings.ToUpper(rule) {
	case "CASCADE":
		return snapshot.ActionCascade
	case "SET NULL":
		return snapshot.ActionSetNull
	case "RESTRICT":
		return snapshot.ActionRestrict
	case "SET DEFAULT":
		return snapshot.ActionSetDefault
	default:
		return snapshot.ActionNoAction
	}
}

func isSerialDefault(defaultVal string) bool {
	return strings.HasPrefix(defaultVal, "nextval(")
}

func serialBaseType(dataType string) string {
	switch strings.ToLower(dataType) {
	case "bigint", "int8":
		return "bigint"
	case "smallint", "int2":
		return "smallint"
	default:
		return "integer"
	}
}

// normalizePGDefault strips a redundant trailing type cast (e.g.
// '{}'::jsonb -> '{}') the way information_schema.columns reports it.
func normalizePGDefault(defaultVal string) string {
	if idx := strings.LastIndex(defaultVal, "::"); idx > 0 {
		before := defaultVal[:idx]
		if strings.Count(before, "'")%2 == 0 {
			return before
		}
	}
	return defaultVal
}

func strPtr(s string) *string { return &s }
