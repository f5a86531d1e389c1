package sqlite

import (
	"fmt"
	"strings"

	"github.com/lockplane/migrator/internal/diffop"
	"github.com/lockplane/migrator/internal/migerr"
	"github.com/lockplane/migrator/internal/snapshot"
)

// Render dispatches a single DiffOperation to SQLite DDL. Operations SQLite
// can express directly (create/drop table, add/drop/rename column, create/
// drop index, rename table) render natively; everything SQLite's minimal
// ALTER TABLE cannot express — column type/nullable/default changes, FK
// and PK modification, unique-constraint changes, and enum CHECK rewrites
// — goes through table recreation (spec §4.7), which requires the
// operation's DesiredTable/DesiredTables context populated by the differ.
func (d *Driver) Render(op diffop.Operation) ([]string, error) {
	switch op.Kind {
	case diffop.CreateTable:
		return d.createTable(op.Table)
	case diffop.DropTable:
		return []string{fmt.Sprintf("DROP TABLE %s", d.ident(op.Table.Name))}, nil
	case diffop.RenameTable:
		return []string{fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.ident(op.OldName), d.ident(op.NewName))}, nil
	case diffop.AddColumn:
		if !op.Column.Nullable && op.Column.Default == nil {
			return nil, migerr.FeatureNotSupportedf("sqlite: column %q.%q is NOT NULL with no default and no source column to backfill it; provide a default or make it nullable", op.TableName, op.Column.Name)
		}
		def, err := d.formatColumn(op.Column)
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.ident(op.TableName), def)}, nil
	case diffop.DropColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.ident(op.TableName), d.ident(op.Column.Name))}, nil
	case diffop.RenameColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", d.ident(op.TableName), d.ident(op.OldName), d.ident(op.NewName))}, nil
	case diffop.CreateIndex:
		return d.createIndex(op.TableName, op.Index)
	case diffop.DropIndex:
		return []string{fmt.Sprintf("DROP INDEX %s", d.ident(op.Index.Name))}, nil
	case diffop.CreateEnum:
		// SQLite has no enum type; the CHECK constraint is emitted as part
		// of the owning column's definition, so there is nothing to do
		// here until a column actually adopts the enum.
		return nil, nil
	case diffop.AlterColumn, diffop.AddForeignKey, diffop.DropForeignKey,
		diffop.AddUniqueConstraint, diffop.DropUniqueConstraint,
		diffop.AddPrimaryKey, diffop.DropPrimaryKey:
		if op.DesiredTable == nil {
			return nil, migerr.Internalf("sqlite: %s requires recreation context (DesiredTable)", op.Kind)
		}
		return d.RecreateTable(op.TableName, op.DesiredTable, op.ColumnSource, op.SourceTable)
	case diffop.DropEnum, diffop.AlterEnum:
		return d.recreateEnumDependents(op)
	default:
		return nil, migerr.Internalf("sqlite: unrecognised operation kind %q", op.Kind)
	}
}

func (d *Driver) ident(name string) string {
	escaped, _ := d.EscapeIdentifier(name)
	return escaped
}

func (d *Driver) identList(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = d.ident(n)
	}
	return strings.Join(out, ", ")
}

func (d *Driver) createTable(t *snapshot.Table) ([]string, error) {
	body, err := d.tableBody(t)
	if err != nil {
		return nil, err
	}
	stmts := []string{fmt.Sprintf("CREATE TABLE %s (\n%s\n)", d.ident(t.Name), strings.Join(body, ",\n"))}
	for i := range t.Indexes {
		idxStmts, err := d.createIndex(t.Name, &t.Indexes[i])
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, idxStmts...)
	}
	return stmts, nil
}

// tableBody renders every column/constraint line of t, without the
// CREATE TABLE wrapper — shared by createTable and RecreateTable.
func (d *Driver) tableBody(t *snapshot.Table) ([]string, error) {
	var lines []string
	for i := range t.Columns {
		def, err := d.formatColumn(&t.Columns[i])
		if err != nil {
			return nil, err
		}
		lines = append(lines, "  "+def)
	}
	if pk := t.PrimaryKey; pk != nil && len(pk.Columns) > 0 {
		// A single AutoIncrement column already carries PRIMARY KEY inline.
		if c := t.FindColumn(pk.Columns[0]); len(pk.Columns) > 1 || c == nil || !c.AutoIncrement {
			lines = append(lines, fmt.Sprintf("  PRIMARY KEY (%s)", d.identList(pk.Columns)))
		}
	}
	for _, uq := range t.UniqueConstraints {
		lines = append(lines, fmt.Sprintf("  UNIQUE (%s)", d.identList(uq.Columns)))
	}
	for _, fk := range t.ForeignKeys {
		lines = append(lines, "  "+d.foreignKeyClause(&fk))
	}
	return lines, nil
}

func (d *Driver) formatColumn(col *snapshot.Column) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", d.ident(col.Name), col.Type)
	if col.AutoIncrement {
		sb.WriteString(" PRIMARY KEY AUTOINCREMENT")
	}
	if !col.Nullable {
		sb.WriteString(" NOT NULL")
	}
	if col.Default != nil {
		sb.WriteString(" DEFAULT " + *col.Default)
	}
	return sb.String(), nil
}

func (d *Driver) foreignKeyClause(fk *snapshot.ForeignKey) string {
	clause := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)", d.identList(fk.Columns), d.ident(fk.ReferencedTable), d.identList(fk.ReferencedColumns))
	if fk.OnDelete != "" && fk.OnDelete != snapshot.ActionNone {
		clause += " ON DELETE " + referentialActionSQL(fk.OnDelete)
	}
	if fk.OnUpdate != "" && fk.OnUpdate != snapshot.ActionNone {
		clause += " ON UPDATE " + referentialActionSQL(fk.OnUpdate)
	}
	return clause
}

func referentialActionSQL(a snapshot.ReferentialAction) string {
	switch a {
	case snapshot.ActionCascade:
		return "CASCADE"
	case snapshot.ActionSetNull:
		return "SET NULL"
	case snapshot.ActionRestrict:
		return "RESTRICT"
	case snapshot.ActionSetDefault:
		return "SET DEFAULT"
	default:
		return "NO ACTION"
	}
}

func (d *Driver) createIndex(tableName string, idx *snapshot.Index) ([]string, error) {
	if idx.Type != "" && idx.Type != snapshot.IndexBTree {
		return nil, migerr.FeatureNotSupportedf("sqlite: index type %q is not supported (btree only)", idx.Type)
	}
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	sql := fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)", unique, d.ident(idx.Name), d.ident(tableName), d.identList(idx.Columns))
	if idx.Where != "" {
		sql += " WHERE " + idx.Where
	}
	return []string{sql}, nil
}

// RecreateTable implements spec.md §4.7's eight-step SQLite table
// recreation: build __new_T from desired, copy data through an explicit
// by-name column map (never positional), drop T, rename __new_T to T, and
// recreate T's indexes, all bracketed by PRAGMA foreign_keys off/on.
//
// columnSource maps a target column name to its source column name when
// the two differ (a rename folded into this recreation); columns absent
// from the map are assumed to keep their name across the recreation.
//
// source is the table's shape before this recreation, used to tell a
// column that already exists (under its own name or a mapped rename) from
// one with no source at all. A target column with no source is only safe
// to recreate if it is nullable or has a default (spec §4.7 step 3); it is
// then left out of the INSERT's column list so SQLite fills it from the
// CREATE TABLE default/NULL instead of from a nonexistent source column. A
// nil source (the enum-recreation path, which never introduces columns)
// skips the check and assumes every desired column already exists.
func (d *Driver) RecreateTable(tableName string, desired *snapshot.Table, columnSource map[string]string, source *snapshot.Table) ([]string, error) {
	tmpName := "__new_" + tableName

	tmpTable := *desired
	tmpTable.Name = tmpName
	body, err := d.tableBody(&tmpTable)
	if err != nil {
		return nil, err
	}

	var sourceCols map[string]bool
	if source != nil {
		sourceCols = make(map[string]bool, len(source.Columns))
		for _, col := range source.Columns {
			sourceCols[col.Name] = true
		}
	}

	var targetCols, fromCols []string
	for _, col := range desired.Columns {
		from := col.Name
		if mapped, ok := columnSource[col.Name]; ok {
			from = mapped
		}
		if sourceCols != nil && !sourceCols[from] {
			if !col.Nullable && col.Default == nil {
				return nil, migerr.FeatureNotSupportedf("sqlite: column %q.%q is NOT NULL with no default and no source column to backfill it during table recreation", tableName, col.Name)
			}
			continue
		}
		targetCols = append(targetCols, d.ident(col.Name))
		fromCols = append(fromCols, d.ident(from))
	}

	var stmts []string
	stmts = append(stmts, "PRAGMA foreign_keys=OFF")
	stmts = append(stmts, fmt.Sprintf("CREATE TABLE %s (\n%s\n)", d.ident(tmpName), strings.Join(body, ",\n")))
	if len(targetCols) > 0 {
		stmts = append(stmts, fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			d.ident(tmpName), strings.Join(targetCols, ", "), strings.Join(fromCols, ", "), d.ident(tableName)))
	}
	stmts = append(stmts, fmt.Sprintf("DROP TABLE %s", d.ident(tableName)))
	stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.ident(tmpName), d.ident(tableName)))
	for i := range desired.Indexes {
		idxStmts, err := d.createIndex(tableName, &desired.Indexes[i])
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, idxStmts...)
	}
	stmts = append(stmts, "PRAGMA foreign_keys=ON")
	return stmts, nil
}

func (d *Driver) recreateEnumDependents(op diffop.Operation) ([]string, error) {
	var stmts []string
	for i := range op.DesiredTables {
		t := op.DesiredTables[i]
		tableStmts, err := d.RecreateTable(t.Name, &t, nil, nil)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, tableStmts...)
	}
	return stmts, nil
}
