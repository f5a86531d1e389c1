package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/lockplane/migrator/internal/dialect"
	"github.com/lockplane/migrator/internal/snapshot"
)

// Introspect reads the full live schema via the PRAGMA family, grounded on
// database/sqlite/introspector.go. SQLite has no catalog-level enum type, so
// enum values are recovered per column from its CHECK(col IN (...))
// constraint text (see parseCheckConstraints) rather than a ListEnums query.
func (d *Driver) Introspect(ctx context.Context, exec dialect.Executor) (*snapshot.Schema, error) {
	tableNames, err := d.ListTables(ctx, exec)
	if err != nil {
		return nil, err
	}

	schema := &snapshot.Schema{}
	enumSeen := map[string]bool{}

	for _, name := range tableNames {
		table, err := d.introspectTable(ctx, exec, name)
		if err != nil {
			return nil, fmt.Errorf("introspecting table %s: %w", name, err)
		}

		createSQL, err := d.tableCreateSQL(ctx, exec, name)
		if err != nil {
			return nil, err
		}
		checks := parseCheckConstraints(createSQL)
		for i := range table.Columns {
			col := &table.Columns[i]
			if values, ok := checks[col.Name]; ok {
				enumName := name + "_" + col.Name + "_enum"
				col.Type = enumName
				if !enumSeen[enumName] {
					enumSeen[enumName] = true
					schema.Enums = append(schema.Enums, snapshot.Enum{Name: enumName, Values: values})
				}
			}
		}

		schema.Tables = append(schema.Tables, *table)
	}

	return schema, nil
}

func (d *Driver) introspectTable(ctx context.Context, exec dialect.Executor, name string) (*snapshot.Table, error) {
	table := &snapshot.Table{Name: name}

	columns, pkColumns, err := d.introspectColumns(ctx, exec, name)
	if err != nil {
		return nil, err
	}
	table.Columns = columns
	if len(pkColumns) > 0 {
		table.PrimaryKey = &snapshot.PrimaryKey{Name: "pk_" + name, Columns: pkColumns}
	}

	indexes, uniques, err := d.introspectIndexes(ctx, exec, name)
	if err != nil {
		return nil, err
	}
	table.Indexes = indexes
	table.UniqueConstraints = uniques

	fks, err := d.introspectForeignKeys(ctx, exec, name)
	if err != nil {
		return nil, err
	}
	table.ForeignKeys = fks

	return table, nil
}

func (d *Driver) introspectColumns(ctx context.Context, exec dialect.Executor, tableName string) ([]snapshot.Column, []string, error) {
	escaped, _ := d.EscapeIdentifier(tableName)
	rows, err := exec.Execute(ctx, fmt.Sprintf("PRAGMA table_info(%s)", escaped))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	type pkCol struct {
		order int
		name  string
	}
	var pkCols []pkCol
	var columns []snapshot.Column

	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var defaultVal sql.NullString

		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return nil, nil, err
		}

		col := snapshot.Column{
			Name:     name,
			Type:     strings.ToUpper(colType),
			Nullable: notNull == 0,
		}
		if defaultVal.Valid {
			val := defaultVal.String
			col.Default = &val
		}
		if pk > 0 {
			pkCols = append(pkCols, pkCol{order: pk, name: name})
			if colType == "" || strings.EqualFold(colType, "INTEGER") {
				col.AutoIncrement = isRowidAlias(defaultVal)
			}
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if len(pkCols) > 1 {
		for i := range columns {
			columns[i].AutoIncrement = false
		}
	}

	var pkNames []string
	for _, p := range pkCols {
		pkNames = append(pkNames, p.name)
	}
	return columns, pkNames, nil
}

// isRowidAlias is a conservative heuristic: PRAGMA table_info can't tell us
// whether an INTEGER PRIMARY KEY column was declared AUTOINCREMENT, so we
// treat any single-column integer primary key without an explicit default as
// a rowid alias. Composite keys (reset by introspectColumns) and columns with
// their own default are left as non-auto-increment.
func isRowidAlias(defaultVal sql.NullString) bool {
	return !defaultVal.Valid
}

func (d *Driver) introspectIndexes(ctx context.Context, exec dialect.Executor, tableName string) ([]snapshot.Index, []snapshot.UniqueConstraint, error) {
	escaped, _ := d.EscapeIdentifier(tableName)
	rows, err := exec.Execute(ctx, fmt.Sprintf("PRAGMA index_list(%s)", escaped))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	type indexRow struct {
		name   string
		unique bool
		origin string
	}
	var raw []indexRow
	for rows.Next() {
		var seq int
		var name, origin string
		var unique, partial int
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, nil, err
		}
		raw = append(raw, indexRow{name: name, unique: unique == 1, origin: origin})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var indexes []snapshot.Index
	var uniques []snapshot.UniqueConstraint
	for _, ir := range raw {
		if strings.HasPrefix(ir.name, "sqlite_autoindex") && ir.origin == "pk" {
			continue
		}
		cols, err := d.indexColumns(ctx, exec, ir.name)
		if err != nil {
			return nil, nil, err
		}
		if ir.origin == "u" {
			uniques = append(uniques, snapshot.UniqueConstraint{Name: ir.name, Columns: cols})
			continue
		}
		indexes = append(indexes, snapshot.Index{Name: ir.name, Columns: cols, Unique: ir.unique, Type: snapshot.IndexBTree})
	}
	return indexes, uniques, nil
}

func (d *Driver) indexColumns(ctx context.Context, exec dialect.Executor, indexName string) ([]string, error) {
	escaped, _ := d.EscapeIdentifier(indexName)
	rows, err := exec.Execute(ctx, fmt.Sprintf("PRAGMA index_info(%s)", escaped))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var seqno, cid int
		var name sql.NullString
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, err
		}
		if name.Valid {
			cols = append(cols, name.String)
		}
	}
	return cols, rows.Err()
}

func (d *Driver) introspectForeignKeys(ctx context.Context, exec dialect.Executor, tableName string) ([]snapshot.ForeignKey, error) {
	escaped, _ := d.EscapeIdentifier(tableName)
	rows, err := exec.Execute(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", escaped))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type fkRow struct {
		id                        int
		refTable, from, to        string
		onUpdate, onDelete, match string
	}
	var raw []fkRow
	for rows.Next() {
		var r fkRow
		var seq int
		if err := rows.Scan(&r.id, &seq, &r.refTable, &r.from, &r.to, &r.onUpdate, &r.onDelete, &r.match); err != nil {
			return nil, err
		}
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	order := []int{}
	byID := map[int]*snapshot.ForeignKey{}
	for _, r := range raw {
		fk, ok := byID[r.id]
		if !ok {
			fk = &snapshot.ForeignKey{
				Name:            fmt.Sprintf("fk_%s_%d", tableName, r.id),
				ReferencedTable: r.refTable,
				OnDelete:        referentialActionFromPragma(r.onDelete),
				OnUpdate:        referentialActionFromPragma(r.onUpdate),
			}
			byID[r.id] = fk
			order = append(order, r.id)
		}
		fk.Columns = append(fk.Columns, r.from)
		fk.ReferencedColumns = append(fk.ReferencedColumns, r.to)
	}

	var fks []snapshot.ForeignKey
	for _, id := range order {
		fks = append(fks, *byID[id])
	}
	return fks, nil
}

func referentialActionFromPragma(s string) snapshot.ReferentialAction {
	switch strings.ToUpper(s) {
	case "CASCADE":
		return snapshot.ActionCascade
	case "SET NULL":
		return snapshot.ActionSetNull
	case "RESTRICT":
		return snapshot.ActionRestrict
	case "SET DEFAULT":
		return snapshot.ActionSetDefault
	default:
		return snapshot.ActionNone
	}
}

func (d *Driver) tableCreateSQL(ctx context.Context, exec dialect.Executor, tableName string) (string, error) {
	rows, err := exec.Execute(ctx, `SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`, tableName)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	if rows.Next() {
		var sqlText sql.NullString
		if err := rows.Scan(&sqlText); err != nil {
			return "", err
		}
		return sqlText.String, rows.Err()
	}
	return "", rows.Err()
}

var checkConstraintRe = regexp.MustCompile(`(?is)"?(\w+)"?\s+[^,()]*CHECK\s*\(\s*"?(\w+)"?\s+IN\s*\(([^)]*)\)\s*\)`)
var quotedValueRe = regexp.MustCompile(`'((?:[^']|'')*)'`)

// parseCheckConstraints extracts `col TEXT CHECK(col IN ('a','b'))` style
// declarations out of a CREATE TABLE statement's raw text, recovering the
// enum values this driver folded into column definitions (see
// EnumColumnType). Keyed by column name.
func parseCheckConstraints(createSQL string) map[string][]string {
	result := map[string][]string{}
	for _, m := range checkConstraintRe.FindAllStringSubmatch(createSQL, -1) {
		declaredCol, checkedCol, valueList := m[1], m[2], m[3]
		if !strings.EqualFold(declaredCol, checkedCol) {
			continue
		}
		var values []string
		for _, vm := range quotedValueRe.FindAllStringSubmatch(valueList, -1) {
			values = append(values, strings.ReplaceAll(vm[1], "''", "'"))
		}
		if len(values) > 0 {
			result[declaredCol] = values
		}
	}
	return result
}
