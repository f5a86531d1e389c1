// Package diffop defines the DiffOperation and AmbiguousChange tagged
// unions shared by the differ, resolver, sorter, and dialect drivers. Go has
// no native sum type, so each union is a Kind-discriminated struct carrying
// every variant's payload as optional fields; consumers switch on Kind and
// must treat an unrecognised Kind as migerr.Internal.
package diffop

import "github.com/lockplane/migrator/internal/snapshot"

// Kind discriminates the 18 DiffOperation variants.
type Kind string

const (
	CreateTable        Kind = "createTable"
	DropTable          Kind = "dropTable"
	RenameTable        Kind = "renameTable"
	AddColumn          Kind = "addColumn"
	DropColumn         Kind = "dropColumn"
	RenameColumn       Kind = "renameColumn"
	AlterColumn        Kind = "alterColumn"
	CreateIndex        Kind = "createIndex"
	DropIndex          Kind = "dropIndex"
	AddForeignKey      Kind = "addForeignKey"
	DropForeignKey     Kind = "dropForeignKey"
	AddUniqueConstraint Kind = "addUniqueConstraint"
	DropUniqueConstraint Kind = "dropUniqueConstraint"
	AddPrimaryKey      Kind = "addPrimaryKey"
	DropPrimaryKey     Kind = "dropPrimaryKey"
	CreateEnum         Kind = "createEnum"
	DropEnum           Kind = "dropEnum"
	AlterEnum          Kind = "alterEnum"
)

// DependentColumn names a column whose type is a given enum, for alterEnum's
// dependentColumns payload.
type DependentColumn struct {
	Table  string
	Column string
}

// Operation is the DiffOperation tagged union. Only the fields relevant to
// Kind are populated; the rest are zero values. Each operation carries only
// the data required to regenerate its own DDL, per spec.
type Operation struct {
	Kind Kind

	// createTable / dropTable / renameTable
	Table    *snapshot.Table // createTable: the table to create; dropTable: the table being dropped (for FK/index context)
	OldName  string          // renameTable, renameColumn: source name
	NewName  string          // renameTable, renameColumn: destination name

	// addColumn / dropColumn
	TableName string
	Column    *snapshot.Column

	// alterColumn: {from, to} full ColumnDefs
	From *snapshot.Column
	To   *snapshot.Column

	// createIndex / dropIndex
	Index *snapshot.Index

	// addForeignKey / dropForeignKey
	ForeignKey *snapshot.ForeignKey

	// addUniqueConstraint / dropUniqueConstraint
	UniqueConstraint *snapshot.UniqueConstraint

	// addPrimaryKey / dropPrimaryKey
	PrimaryKey *snapshot.PrimaryKey

	// createEnum / dropEnum / alterEnum
	Enum              *snapshot.Enum
	AddValues         []string
	RemoveValues      []string
	NewValues         []string
	DependentColumns  []DependentColumn
	ValueReplacements map[string]*string // value -> replacement, nil means replace with NULL
	DefaultReplacement *string

	// Recreation context: dialects with no in-place ALTER (SQLite and, for
	// multi-column changes, LibSQL) render table-scoped operations by
	// recreating the table from scratch instead of altering it. These
	// fields carry the full target shape so Render doesn't need ambient
	// access to the rest of the diff. Populated by the differ for every
	// table-scoped operation; DesiredTables additionally covers every
	// table with a column typed by an affected enum, for dropEnum/
	// alterEnum recreation.
	DesiredTable  *snapshot.Table
	DesiredTables []snapshot.Table
	SourceTable   *snapshot.Table   // the table's shape before this operation, so a recreating dialect can tell a renamed/existing column from one with no source at all
	ColumnSource  map[string]string // target column name -> source column name, for explicit rename mapping during recreation
}

// AmbiguousKind discriminates the two AmbiguousChange variants.
type AmbiguousKind string

const (
	AmbiguousTable  AmbiguousKind = "ambiguousTable"
	AmbiguousColumn AmbiguousKind = "ambiguousColumn"
)

// AmbiguousChange carries a dropped-and-added pair whose identity could not
// be determined automatically.
type AmbiguousChange struct {
	Kind AmbiguousKind

	// ambiguousTable
	DroppedTable *snapshot.Table
	AddedTable   *snapshot.Table

	// ambiguousColumn
	TableName     string
	DroppedColumn *snapshot.Column
	AddedColumn   *snapshot.Column
}

// ResolutionKind is the two-valued ChangeResolution union.
type ResolutionKind string

const (
	ResolveRename      ResolutionKind = "rename"
	ResolveAddAndDrop   ResolutionKind = "addAndDrop"
)

// DiffResult is the differ's output: the unambiguous operations it could
// determine plus the ambiguities still needing a policy decision.
type DiffResult struct {
	Operations       []Operation
	AmbiguousChanges []AmbiguousChange
}
