package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lockplane/migrator/internal/dialect"
	"github.com/lockplane/migrator/internal/snapshot"
)

// Introspect reads the full live schema via information_schema, grounded on
// the information_schema-driven introspection shown throughout the pack's
// Postgres/MySQL introspectors.
func (d *Driver) Introspect(ctx context.Context, exec dialect.Executor) (*snapshot.Schema, error) {
	tableNames, err := d.ListTables(ctx, exec)
	if err != nil {
		return nil, err
	}

	enums, err := d.ListEnums(ctx, exec)
	if err != nil {
		return nil, err
	}

	schema := &snapshot.Schema{Enums: enums}
	for _, name := range tableNames {
		table, err := d.introspectTable(ctx, exec, name)
		if err != nil {
			return nil, fmt.Errorf("introspecting table %s: %w", name, err)
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
		table.PrimaryKey = &snapshot.PrimaryKey{Name: "PRIMARY", Columns: pkColumns}
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
	rows, err := exec.Execute(ctx, `
		SELECT column_name, column_type, data_type, is_nullable, column_default, extra, column_key
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position
	`, tableName)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var columns []snapshot.Column
	var pkColumns []string
	for rows.Next() {
		var name, columnType, dataType, isNullable, extra, columnKey string
		var defaultVal sql.NullString
		if err := rows.Scan(&name, &columnType, &dataType, &isNullable, &defaultVal, &extra, &columnKey); err != nil {
			return nil, nil, err
		}

		colType := strings.ToUpper(columnType)
		if strings.EqualFold(dataType, "enum") {
			colType = enumName(tableName, name)
		}

		col := snapshot.Column{
			Name:          name,
			Type:          colType,
			Nullable:      strings.EqualFold(isNullable, "YES"),
			AutoIncrement: strings.Contains(extra, "auto_increment"),
		}
		if defaultVal.Valid && !col.AutoIncrement {
			val := defaultVal.String
			col.Default = &val
		}
		if columnKey == "PRI" {
			pkColumns = append(pkColumns, name)
		}
		columns = append(columns, col)
	}
	return columns, pkColumns, rows.Err()
}

func (d *Driver) introspectIndexes(ctx context.Context, exec dialect.Executor, tableName string) ([]snapshot.Index, []snapshot.UniqueConstraint, error) {
	rows, err := exec.Execute(ctx, `
		SELECT index_name, non_unique, column_name, index_type, seq_in_index
		FROM information_schema.statistics
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY index_name, seq_in_index
	`, tableName)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	type idxAccum struct {
		unique  bool
		idxType string
		columns []string
	}
	order := []string{}
	byName := map[string]*idxAccum{}

	for rows.Next() {
		var name, column, idxType string
		var nonUnique, seq int
		if err := rows.Scan(&name, &nonUnique, &column, &idxType, &seq); err != nil {
			return nil, nil, err
		}
		if name == "PRIMARY" {
			continue
		}
		acc, ok := byName[name]
		if !ok {
			acc = &idxAccum{unique: nonUnique == 0, idxType: idxType}
			byName[name] = acc
			order = append(order, name)
		}
		acc.columns = append(acc.columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var indexes []snapshot.Index
	var uniques []snapshot.UniqueConstraint
	for _, name := range order {
		acc := byName[name]
		if acc.unique {
			uniques = append(uniques, snapshot.UniqueConstraint{Name: name, Columns: acc.columns})
			continue
		}
		indexes = append(indexes, snapshot.Index{Name: name, Columns: acc.columns, Unique: false, Type: normalizeIndexType(acc.idxType)})
	}
	return indexes, uniques, nil
}

func normalizeIndexType(mysqlType string) snapshot.IndexType {
	switch strings.ToUpper(mysqlType) {
	case "BTREE":
		return snapshot.IndexBTree
	case "HASH":
		return snapshot.IndexHash
	case "FULLTEXT":
		return snapshot.IndexFull
	case "SPATIAL":
		return snapshot.IndexSpatial
	default:
		return snapshot.IndexBTree
	}
}

func (d *Driver) introspectForeignKeys(ctx context.Context, exec dialect.Executor, tableName string) ([]snapshot.ForeignKey, error) {
	rows, err := exec.Execute(ctx, `
		SELECT rc.constraint_name, rc.update_rule, rc.delete_rule,
		       kcu.column_name, kcu.referenced_table_name, kcu.referenced_column_name, kcu.ordinal_position
		FROM information_schema.referential_constraints rc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = rc.constraint_name AND kcu.table_schema = rc.constraint_schema
		WHERE rc.constraint_schema = DATABASE() AND rc.table_name = ?
		ORDER BY rc.constraint_name, kcu.ordinal_position
	`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	order := []string{}
	byName := map[string]*snapshot.ForeignKey{}
	for rows.Next() {
		var name, updateRule, deleteRule, column, refTable, refColumn string
		var seq int
		if err := rows.Scan(&name, &updateRule, &deleteRule, &column, &refTable, &refColumn, &seq); err != nil {
			return nil, err
		}
		fk, ok := byName[name]
		if !ok {
			fk = &snapshot.ForeignKey{
				Name:            name,
				ReferencedTable: refTable,
				OnUpdate:        referentialActionFromSQL(updateRule),
				OnDelete:        referentialActionFromSQL(deleteRule),
			}
			byName[name] = fk
			order = append(order, name)
		}
		fk.Columns = append(fk.Columns, column)
		fk.ReferencedColumns = append(fk.ReferencedColumns, refColumn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var fks []snapshot.ForeignKey
	for _, name := range order {
		fks = append(fks, *byName[name])
	}
	return fks, nil
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
