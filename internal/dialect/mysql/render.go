package mysql

import (
	"fmt"
	"strings"

	"github.com/lockplane/migrator/internal/diffop"
	"github.com/lockplane/migrator/internal/migerr"
	"github.com/lockplane/migrator/internal/snapshot"
)

// Render dispatches a single DiffOperation to MySQL DDL, grounded on the
// mysql-flavoured example repo's CREATE TABLE/ALTER TABLE generator
// (QuoteIdentifier, columnDefinition, MODIFY/CHANGE COLUMN). Enum columns
// are native MySQL ENUM(...) types, so every enum operation ultimately
// rewrites the owning column via MODIFY COLUMN rather than touching a
// catalog-level type.
func (d *Driver) Render(op diffop.Operation) ([]string, error) {
	switch op.Kind {
	case diffop.CreateTable:
		return d.createTable(op.Table)
	case diffop.DropTable:
		return []string{fmt.Sprintf("DROP TABLE %s", d.ident(op.Table.Name))}, nil
	case diffop.RenameTable:
		return []string{fmt.Sprintf("RENAME TABLE %s TO %s", d.ident(op.OldName), d.ident(op.NewName))}, nil
	case diffop.AddColumn:
		def, err := d.formatColumn(op.Column)
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.ident(op.TableName), def)}, nil
	case diffop.DropColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.ident(op.TableName), d.ident(op.Column.Name))}, nil
	case diffop.RenameColumn:
		// MySQL has no bare RENAME COLUMN pre-8.0; CHANGE COLUMN requires
		// restating the full definition, so the differ's To column (same
		// as the renamed From in every field but Name) supplies it.
		def, err := d.formatColumn(op.To)
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("ALTER TABLE %s CHANGE COLUMN %s %s", d.ident(op.TableName), d.ident(op.OldName), def)}, nil
	case diffop.AlterColumn:
		def, err := d.formatColumn(op.To)
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s", d.ident(op.TableName), def)}, nil
	case diffop.CreateIndex:
		return d.createIndex(op.TableName, op.Index)
	case diffop.DropIndex:
		return []string{fmt.Sprintf("DROP INDEX %s ON %s", d.ident(op.Index.Name), d.ident(op.TableName))}, nil
	case diffop.AddForeignKey:
		return []string{fmt.Sprintf("ALTER TABLE %s ADD %s", d.ident(op.TableName), d.foreignKeyClause(op.ForeignKey))}, nil
	case diffop.DropForeignKey:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", d.ident(op.TableName), d.ident(op.ForeignKey.Name))}, nil
	case diffop.AddUniqueConstraint:
		return []string{fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s)", d.ident(op.TableName), d.ident(op.UniqueConstraint.Name), d.identList(op.UniqueConstraint.Columns))}, nil
	case diffop.DropUniqueConstraint:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP INDEX %s", d.ident(op.TableName), d.ident(op.UniqueConstraint.Name))}, nil
	case diffop.AddPrimaryKey:
		return []string{fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY (%s)", d.ident(op.TableName), d.identList(op.PrimaryKey.Columns))}, nil
	case diffop.DropPrimaryKey:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP PRIMARY KEY", d.ident(op.TableName))}, nil
	case diffop.CreateEnum:
		// MySQL has no catalog-level enum type; the ENUM(...) list is
		// rendered inline with the owning column, so there is nothing to
		// do until a column adopts it via addColumn/alterColumn.
		return nil, nil
	case diffop.DropEnum:
		// A dropped enum with live dependent columns is a modelling error:
		// every column typed by it must already have been migrated off
		// before the enum itself disappears. Per the "column not found"
		// Open Question decision, this is a hard failure, not a warning.
		if len(op.DependentColumns) > 0 {
			return nil, migerr.Internalf("mysql: cannot drop enum %q: columns still reference it: %v", op.Enum.Name, op.DependentColumns)
		}
		return nil, nil
	case diffop.AlterEnum:
		return d.alterEnum(op)
	default:
		return nil, migerr.Internalf("mysql: unrecognised operation kind %q", op.Kind)
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
	var lines []string
	for i := range t.Columns {
		def, err := d.formatColumn(&t.Columns[i])
		if err != nil {
			return nil, err
		}
		lines = append(lines, "  "+def)
	}
	if t.PrimaryKey != nil {
		lines = append(lines, fmt.Sprintf("  PRIMARY KEY (%s)", d.identList(t.PrimaryKey.Columns)))
	}
	for _, uq := range t.UniqueConstraints {
		lines = append(lines, fmt.Sprintf("  UNIQUE KEY %s (%s)", d.ident(uq.Name), d.identList(uq.Columns)))
	}
	for _, fk := range t.ForeignKeys {
		lines = append(lines, "  "+d.foreignKeyClause(&fk))
	}

	create := fmt.Sprintf("CREATE TABLE %s (\n%s\n) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci", d.ident(t.Name), strings.Join(lines, ",\n"))
	stmts := []string{create}
	for i := range t.Indexes {
		idxStmts, err := d.createIndex(t.Name, &t.Indexes[i])
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, idxStmts...)
	}
	return stmts, nil
}

func (d *Driver) formatColumn(col *snapshot.Column) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", d.ident(col.Name), col.Type)
	if !col.Nullable {
		sb.WriteString(" NOT NULL")
	} else {
		sb.WriteString(" NULL")
	}
	if col.AutoIncrement {
		sb.WriteString(" AUTO_INCREMENT")
	} else if col.Default != nil {
		sb.WriteString(" DEFAULT " + *col.Default)
	}
	return sb.String(), nil
}

func (d *Driver) foreignKeyClause(fk *snapshot.ForeignKey) string {
	clause := fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		d.ident(fk.Name), d.identList(fk.Columns), d.ident(fk.ReferencedTable), d.identList(fk.ReferencedColumns))
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
	kind := "INDEX"
	if idx.Unique {
		kind = "UNIQUE INDEX"
	}
	using := ""
	if idx.Type != "" && idx.Type != snapshot.IndexBTree {
		using = " USING " + strings.ToUpper(string(idx.Type))
	}
	return []string{fmt.Sprintf("CREATE %s %s ON %s (%s)%s", kind, d.ident(idx.Name), d.ident(tableName), d.identList(idx.Columns), using)}, nil
}

// alterEnum rewrites every column typed by the changed enum via MODIFY
// COLUMN, since MySQL's ENUM(...) list lives on the column definition
// itself rather than a separate catalog type. DesiredTables (populated by
// the differ for every alterEnum, add-only or not) supplies each dependent
// column's full definition so nullability/default survive the rewrite.
func (d *Driver) alterEnum(op diffop.Operation) ([]string, error) {
	newValues := op.NewValues
	if len(newValues) == 0 {
		newValues = append(append([]string(nil), op.Enum.Values...), op.AddValues...)
	}
	enumType := d.EnumColumnType("", "", newValues)

	desiredByTable := make(map[string]*snapshot.Table, len(op.DesiredTables))
	for i := range op.DesiredTables {
		desiredByTable[op.DesiredTables[i].Name] = &op.DesiredTables[i]
	}

	var stmts []string
	for _, dep := range op.DependentColumns {
		table, ok := desiredByTable[dep.Table]
		if !ok {
			return nil, migerr.Internalf("mysql: missing desired shape for %s.%s while altering enum %q", dep.Table, dep.Column, op.Enum.Name)
		}
		col := table.FindColumn(dep.Column)
		if col == nil {
			return nil, migerr.Internalf("mysql: column not found: %s.%s while altering enum %q", dep.Table, dep.Column, op.Enum.Name)
		}
		rewritten := *col
		rewritten.Type = enumType
		def, err := d.formatColumn(&rewritten)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s", d.ident(dep.Table), def))
	}
	return stmts, nil
}
