// Package libsql implements the dialect.Driver surface for libSQL/Turso by
// composing sqlite.Driver and overriding only the operations libSQL's
// extended ALTER TABLE can express natively — single-column ALTER COLUMN
// and single-column FOREIGN KEY add/drop via `ALTER TABLE t ALTER COLUMN c
// TO <newDef>` — so those no longer need the full table recreation SQLite
// itself requires. Everything else (multi-column changes, PK changes,
// unique-constraint changes, enum recreation) falls through to the
// embedded sqlite.Driver's recreation path unchanged.
package libsql

import (
	"fmt"
	"strings"

	"github.com/lockplane/migrator/internal/dialect"
	"github.com/lockplane/migrator/internal/dialect/sqlite"
	"github.com/lockplane/migrator/internal/diffop"
	"github.com/lockplane/migrator/internal/migerr"
	"github.com/lockplane/migrator/internal/snapshot"
)

// Driver wraps sqlite.Driver, narrowing the recreation fallback wherever
// libSQL's extended ALTER TABLE syntax can do the same job in place.
type Driver struct {
	*sqlite.Driver
}

func New() *Driver { return &Driver{Driver: sqlite.New()} }

func init() {
	dialect.Register("libsql", New(), false)
}

func (d *Driver) Dialect() dialect.Name { return dialect.SQLite }
func (d *Driver) DriverName() string    { return "libsql" }

func (d *Driver) Render(op diffop.Operation) ([]string, error) {
	switch op.Kind {
	case diffop.AlterColumn:
		return d.alterColumnTo(op.TableName, op.To)
	case diffop.AddForeignKey:
		if len(op.ForeignKey.Columns) == 1 {
			return d.alterColumnAddForeignKey(op.TableName, op.ForeignKey, op.DesiredTable)
		}
	case diffop.DropForeignKey:
		if len(op.ForeignKey.Columns) == 1 && op.DesiredTable != nil {
			if col := op.DesiredTable.FindColumn(op.ForeignKey.Columns[0]); col != nil {
				return d.alterColumnTo(op.TableName, col)
			}
		}
	}
	return d.Driver.Render(op)
}

func (d *Driver) ident(name string) string {
	escaped, _ := d.EscapeIdentifier(name)
	return escaped
}

// alterColumnTo renders libSQL's native column rewrite, `ALTER TABLE t
// ALTER COLUMN c TO <newDef>`, which covers type/nullable/default changes
// without a full table recreation.
func (d *Driver) alterColumnTo(tableName string, to *snapshot.Column) ([]string, error) {
	if to == nil {
		return nil, migerr.Internalf("libsql: alterColumn requires a target column definition")
	}
	def := d.columnDefinition(to)
	return []string{fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TO %s", d.ident(tableName), d.ident(to.Name), def)}, nil
}

func (d *Driver) alterColumnAddForeignKey(tableName string, fk *snapshot.ForeignKey, desired *snapshot.Table) ([]string, error) {
	col := fk.Columns[0]
	def := d.ident(col)
	if desired != nil {
		if c := desired.FindColumn(col); c != nil {
			def = d.columnDefinition(c)
		}
	}
	clause := fmt.Sprintf("%s REFERENCES %s (%s)", def, d.ident(fk.ReferencedTable), d.ident(fk.ReferencedColumns[0]))
	actions := map[snapshot.ReferentialAction]string{snapshot.ActionCascade: "CASCADE", snapshot.ActionSetNull: "SET NULL",
		snapshot.ActionRestrict: "RESTRICT", snapshot.ActionNoAction: "NO ACTION", snapshot.ActionSetDefault: "SET DEFAULT"}
	if a, ok := actions[fk.OnDelete]; ok {
		clause += " ON DELETE " + a
	}
	if a, ok := actions[fk.OnUpdate]; ok {
		clause += " ON UPDATE " + a
	}
	return []string{fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TO %s", d.ident(tableName), d.ident(col), clause)}, nil
}

func (d *Driver) columnDefinition(col *snapshot.Column) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", d.ident(col.Name), col.Type)
	if !col.Nullable {
		sb.WriteString(" NOT NULL")
	}
	if col.Default != nil {
		sb.WriteString(" DEFAULT " + *col.Default)
	}
	return sb.String()
}
