// Package snapshot defines the dialect-neutral schema model that the differ,
// resolver, sorter, and dialect drivers all operate over. A Schema is owned
// exclusively by whichever component produced it (introspector or
// serializer); downstream components receive read-only references.
package snapshot

import (
	"fmt"
	"sort"

	"github.com/lockplane/migrator/internal/migerr"
)

// ReferentialAction is one of the ON DELETE / ON UPDATE actions a foreign
// key can carry.
type ReferentialAction string

const (
	ActionNone       ReferentialAction = ""
	ActionCascade    ReferentialAction = "cascade"
	ActionSetNull    ReferentialAction = "setNull"
	ActionRestrict   ReferentialAction = "restrict"
	ActionNoAction   ReferentialAction = "noAction"
	ActionSetDefault ReferentialAction = "setDefault"
)

// IndexType names an index method. The empty string means "dialect default"
// (effectively btree everywhere that has one).
type IndexType string

const (
	IndexBTree  IndexType = "btree"
	IndexHash   IndexType = "hash"
	IndexGIN    IndexType = "gin"
	IndexGiST   IndexType = "gist"
	IndexFull   IndexType = "fulltext"
	IndexSpatial IndexType = "spatial"
)

// Schema is a dialect-neutral, fully-resolved description of a database
// schema at one point in time.
type Schema struct {
	Tables []Table
	Enums  []Enum
}

// Table describes one table and everything attached to it.
type Table struct {
	Name              string
	Columns           []Column
	PrimaryKey        *PrimaryKey
	Indexes           []Index
	ForeignKeys       []ForeignKey
	UniqueConstraints []UniqueConstraint
}

// Column is a single column definition. Type is already the native,
// dialect-rendered type string; Default is already a SQL-ready expression
// (escaped literal or function call), never a raw user value.
type Column struct {
	Name          string
	Type          string
	Nullable      bool
	Default       *string
	AutoIncrement bool
}

// PrimaryKey names the columns making up a table's primary key.
type PrimaryKey struct {
	Name    string
	Columns []string
}

// Index describes a secondary index.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
	Type    IndexType
	Where   string // partial-index predicate; empty means unconditional
}

// ForeignKey describes a foreign-key constraint.
type ForeignKey struct {
	Name              string
	Columns           []string
	ReferencedTable   string
	ReferencedColumns []string
	OnDelete          ReferentialAction
	OnUpdate          ReferentialAction
}

// UniqueConstraint is a named uniqueness constraint distinct from a unique
// index (though dialects may render them the same way).
type UniqueConstraint struct {
	Name    string
	Columns []string
}

// Enum is a named enumerated type. Value order is significant: it is the
// declaration order, and matters for dialects that render enums as ordered
// CHECK/native types.
type Enum struct {
	Name   string
	Values []string
}

// FindTable returns the table with the given name, or nil.
func (s *Schema) FindTable(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// FindEnum returns the enum with the given name, or nil.
func (s *Schema) FindEnum(name string) *Enum {
	for i := range s.Enums {
		if s.Enums[i].Name == name {
			return &s.Enums[i]
		}
	}
	return nil
}

// FindColumn returns the column with the given name, or nil.
func (t *Table) FindColumn(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// ColumnNames returns the set of column names on the table, for similarity
// comparisons in the differ.
func (t *Table) ColumnNames() map[string]struct{} {
	set := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		set[c.Name] = struct{}{}
	}
	return set
}

// Validate checks these invariants of the data model: unique table/enum
// names, FK/PK/index/unique column references resolve, and unique index and
// constraint names within a table. Column types are not checked against
// the declared enums. It collects every violation rather than failing on the
// first one, matching the teacher's validation style of reporting the full
// set of problems at once.
func (s *Schema) Validate() error {
	var problems []string

	tableNames := make(map[string]int)
	for _, t := range s.Tables {
		tableNames[t.Name]++
	}
	for name, n := range tableNames {
		if n > 1 {
			problems = append(problems, fmt.Sprintf("duplicate table name %q", name))
		}
	}

	enumNames := make(map[string]int)
	for _, e := range s.Enums {
		enumNames[e.Name]++
	}
	for name, n := range enumNames {
		if n > 1 {
			problems = append(problems, fmt.Sprintf("duplicate enum name %q", name))
		}
	}

	for _, t := range s.Tables {
		problems = append(problems, t.validate(s)...)
	}

	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return migerr.InvalidSchemaf("schema validation failed:\n  %s", joinLines(problems))
}

func (t *Table) validate(s *Schema) []string {
	var problems []string
	prefix := fmt.Sprintf("table %q", t.Name)

	colNames := make(map[string]int)
	for _, c := range t.Columns {
		colNames[c.Name]++
	}
	for name, n := range colNames {
		if n > 1 {
			problems = append(problems, fmt.Sprintf("%s: duplicate column name %q", prefix, name))
		}
	}

	colExists := func(name string) bool {
		_, ok := colNames[name]
		return ok
	}

	if t.PrimaryKey != nil {
		for _, c := range t.PrimaryKey.Columns {
			if !colExists(c) {
				problems = append(problems, fmt.Sprintf("%s: primary key references unknown column %q", prefix, c))
			}
		}
	}

	idxNames := make(map[string]int)
	for _, idx := range t.Indexes {
		idxNames[idx.Name]++
		for _, c := range idx.Columns {
			if !colExists(c) {
				problems = append(problems, fmt.Sprintf("%s: index %q references unknown column %q", prefix, idx.Name, c))
			}
		}
	}
	for name, n := range idxNames {
		if n > 1 {
			problems = append(problems, fmt.Sprintf("%s: duplicate index name %q", prefix, name))
		}
	}

	uqNames := make(map[string]int)
	for _, uq := range t.UniqueConstraints {
		uqNames[uq.Name]++
		for _, c := range uq.Columns {
			if !colExists(c) {
				problems = append(problems, fmt.Sprintf("%s: unique constraint %q references unknown column %q", prefix, uq.Name, c))
			}
		}
	}
	for name, n := range uqNames {
		if n > 1 {
			problems = append(problems, fmt.Sprintf("%s: duplicate unique constraint name %q", prefix, name))
		}
	}

	fkNames := make(map[string]int)
	for _, fk := range t.ForeignKeys {
		fkNames[fk.Name]++
		for _, c := range fk.Columns {
			if !colExists(c) {
				problems = append(problems, fmt.Sprintf("%s: foreign key %q references unknown column %q", prefix, fk.Name, c))
			}
		}
		ref := s.FindTable(fk.ReferencedTable)
		if ref == nil {
			problems = append(problems, fmt.Sprintf("%s: foreign key %q references unknown table %q", prefix, fk.Name, fk.ReferencedTable))
			continue
		}
		for _, c := range fk.ReferencedColumns {
			if ref.FindColumn(c) == nil {
				problems = append(problems, fmt.Sprintf("%s: foreign key %q references unknown column %q.%q", prefix, fk.Name, ref.Name, c))
			}
		}
	}
	for name, n := range fkNames {
		if n > 1 {
			problems = append(problems, fmt.Sprintf("%s: duplicate foreign key name %q", prefix, name))
		}
	}

	return problems
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n  "
		}
		out += l
	}
	return out
}
