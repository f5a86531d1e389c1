// Package serializer translates declared models into a dialect-neutral
// snapshot.Schema, implementing spec.md §4.1. Declared-model input is out
// of scope to design, so the package consumes anything implementing
// ModelSpec/FieldSpec rather than a concrete model type — the same shape
// the teacher's own schema loader (internal/schema/loader.go) settles on
// for its two input formats (JSON and SQL DDL), generalised one step
// further into an interface instead of a concrete struct.
package serializer

import (
	"sort"

	"github.com/lockplane/migrator/internal/dialect"
	"github.com/lockplane/migrator/internal/migerr"
	"github.com/lockplane/migrator/internal/snapshot"
)

// FieldSpec is the minimal column contract a declared model field must
// satisfy for the serializer to place it on a table.
type FieldSpec interface {
	ColumnName() string
	Type() string
	Nullable() bool
	HasDefault() bool
	Default() string
	AutoGenerate() string // "", "uuid", "now", ...
	IsUnique() bool
	IsID() bool
	NativeType() (dialectName string, override string, ok bool)
}

// RelationSpec describes one side's declaration of a many-to-many
// relation to another model.
type RelationSpec struct {
	TargetTable string
	JunctionName string // optional override; empty uses the <A>_<B> default
}

// ModelSpec is the minimal table contract a declared model must satisfy.
type ModelSpec interface {
	TableName() string
	Fields() []FieldSpec
	ManyToMany() []RelationSpec
}

// Serialize translates models into a snapshot.Schema for the given target
// dialect, synthesising junction tables for every many-to-many relation per
// spec §4.1. Models are materialised in two passes so that mutually
// referencing models (§9's cyclic-reference note) can both resolve:
// table shapes (columns, PK) first, junction tables and their FKs second.
func Serialize(models []ModelSpec, driver dialect.Driver) (*snapshot.Schema, error) {
	schema := &snapshot.Schema{}

	byTable := make(map[string]*snapshot.Table, len(models))
	for _, m := range models {
		table, err := buildTable(m, driver)
		if err != nil {
			return nil, err
		}
		schema.Tables = append(schema.Tables, *table)
		byTable[table.Name] = &schema.Tables[len(schema.Tables)-1]
	}

	seen := make(map[string]bool)
	for _, m := range models {
		for _, rel := range m.ManyToMany() {
			a, b := m.TableName(), rel.TargetTable
			name := rel.JunctionName
			if name == "" {
				name = junctionName(a, b)
			}
			if seen[name] {
				continue
			}
			seen[name] = true

			junction, err := buildJunctionTable(name, byTable[a], byTable[b])
			if err != nil {
				return nil, err
			}
			schema.Tables = append(schema.Tables, *junction)
		}
	}

	sort.Slice(schema.Tables, func(i, j int) bool { return schema.Tables[i].Name < schema.Tables[j].Name })
	return schema, nil
}

func buildTable(m ModelSpec, driver dialect.Driver) (*snapshot.Table, error) {
	table := &snapshot.Table{Name: m.TableName()}

	var pkColumns []string
	for _, f := range m.Fields() {
		col, err := buildColumn(f, driver)
		if err != nil {
			return nil, err
		}
		table.Columns = append(table.Columns, *col)
		if f.IsID() {
			pkColumns = append(pkColumns, col.Name)
		}
		if f.IsUnique() {
			table.UniqueConstraints = append(table.UniqueConstraints, snapshot.UniqueConstraint{
				Name:    "uq_" + table.Name + "_" + col.Name,
				Columns: []string{col.Name},
			})
		}
	}
	if len(pkColumns) > 0 {
		table.PrimaryKey = &snapshot.PrimaryKey{Name: "pk_" + table.Name, Columns: pkColumns}
	}
	return table, nil
}

func buildColumn(f FieldSpec, driver dialect.Driver) (*snapshot.Column, error) {
	nativeDialect, nativeOverride, hasNative := f.NativeType()
	fieldSpec := dialect.FieldSpec{
		Type:     f.Type(),
		Nullable: f.Nullable(),
	}
	if hasNative {
		fieldSpec.NativeType = nativeOverride
		fieldSpec.NativeTypeDB = nativeDialect
	}

	colType, err := driver.MapFieldType(fieldSpec)
	if err != nil {
		return nil, err
	}

	col := &snapshot.Column{
		Name:     f.ColumnName(),
		Type:     colType,
		Nullable: f.Nullable(),
	}

	if kind := f.AutoGenerate(); kind != "" {
		if expr, genErr := driver.AutoGenerateExpr(kind); genErr == nil {
			col.Default = &expr
		}
	}
	if col.Default == nil && f.HasDefault() {
		def := f.Default()
		col.Default = &def
	}
	if f.IsID() && (f.Type() == "int" || f.Type() == "integer" || f.Type() == "bigint" || f.Type() == "smallint") {
		col.AutoIncrement = true
	}

	return col, nil
}

// buildJunctionTable synthesises the M:N join table per spec §4.1: surrogate
// columns typed from each side's single-column primary key, FKs defaulting
// to onDelete=noAction/onUpdate=noAction, and a composite PK over both FK
// columns.
func buildJunctionTable(name string, a, b *snapshot.Table) (*snapshot.Table, error) {
	aCol, err := singleColumnPK(a)
	if err != nil {
		return nil, err
	}
	bCol, err := singleColumnPK(b)
	if err != nil {
		return nil, err
	}

	colA := a.Name + "_" + aCol.Name
	colB := b.Name + "_" + bCol.Name

	table := &snapshot.Table{
		Name: name,
		Columns: []snapshot.Column{
			{Name: colA, Type: aCol.Type, Nullable: false},
			{Name: colB, Type: bCol.Type, Nullable: false},
		},
		PrimaryKey: &snapshot.PrimaryKey{Name: "pk_" + name, Columns: []string{colA, colB}},
		ForeignKeys: []snapshot.ForeignKey{
			{
				Name: "fk_" + name + "_" + a.Name, Columns: []string{colA},
				ReferencedTable: a.Name, ReferencedColumns: []string{aCol.Name},
				OnDelete: snapshot.ActionNoAction, OnUpdate: snapshot.ActionNoAction,
			},
			{
				Name: "fk_" + name + "_" + b.Name, Columns: []string{colB},
				ReferencedTable: b.Name, ReferencedColumns: []string{bCol.Name},
				OnDelete: snapshot.ActionNoAction, OnUpdate: snapshot.ActionNoAction,
			},
		},
	}
	return table, nil
}

func singleColumnPK(t *snapshot.Table) (*snapshot.Column, error) {
	if t.PrimaryKey == nil || len(t.PrimaryKey.Columns) != 1 {
		return nil, migerr.InvalidSchemaf("table %q needs a single-column primary key to participate in a many-to-many relation (compound keys require a surrogate)", t.Name)
	}
	col := t.FindColumn(t.PrimaryKey.Columns[0])
	if col == nil {
		return nil, migerr.InvalidSchemaf("table %q declares primary key column %q that does not exist", t.Name, t.PrimaryKey.Columns[0])
	}
	return col, nil
}

// junctionName builds the default <A>_<B> junction table name, ordering the
// two sides alphabetically so either model declaring the relation produces
// the same name (required for the dedup pass).
func junctionName(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "_" + b
}
