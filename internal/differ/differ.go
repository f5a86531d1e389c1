// Package differ computes the structural difference between two dialect-
// neutral schema snapshots, implementing spec.md §4.3: table- and column-
// level ambiguity detection by Jaccard similarity (tables) or exact
// normalised-type equality (columns), by-name set diffs for indexes,
// foreign keys, unique constraints, and enums, and special-cased primary
// key handling.
//
// Grounded on internal/schema/diff.go's map-based set-diff shape,
// generalised so that a dropped-and-added pair that looks like a rename is
// surfaced as an ambiguity instead of silently becoming a drop+create pair.
package differ

import (
	"sort"

	"github.com/lockplane/migrator/internal/diffop"
	"github.com/lockplane/migrator/internal/snapshot"
)

// ambiguousTableThreshold is the minimum Jaccard similarity of column-name
// sets for a dropped/added table pair to be treated as a possible rename.
const ambiguousTableThreshold = 0.7

// Diff compares current against desired and returns the operations that
// can be determined unambiguously plus the ambiguities that need a policy
// decision from the resolver.
func Diff(current, desired *snapshot.Schema) *diffop.DiffResult {
	result := &diffop.DiffResult{}

	currentTables := indexTables(current.Tables)
	desiredTables := indexTables(desired.Tables)

	droppedNames, addedNames, commonNames := classify(keysOf(currentTables), keysOf(desiredTables))

	claimedDropped := make(map[string]bool)
	claimedAdded := make(map[string]bool)

	// Greedy ambiguous-table pairing: for every (dropped, added) pair with
	// Jaccard(colnames) >= threshold, claim both once. Iterate in sorted
	// order for deterministic output.
	for _, dn := range droppedNames {
		if claimedDropped[dn] {
			continue
		}
		bestScore := 0.0
		bestAdded := ""
		for _, an := range addedNames {
			if claimedAdded[an] {
				continue
			}
			score := jaccard(currentTables[dn].ColumnNames(), desiredTables[an].ColumnNames())
			if score >= ambiguousTableThreshold && score > bestScore {
				bestScore = score
				bestAdded = an
			}
		}
		if bestAdded != "" {
			claimedDropped[dn] = true
			claimedAdded[bestAdded] = true
			dropped := currentTables[dn]
			added := desiredTables[bestAdded]
			result.AmbiguousChanges = append(result.AmbiguousChanges, diffop.AmbiguousChange{
				Kind:         diffop.AmbiguousTable,
				DroppedTable: dropped,
				AddedTable:   added,
			})
		}
	}

	for _, dn := range droppedNames {
		if !claimedDropped[dn] {
			result.Operations = append(result.Operations, diffop.Operation{Kind: diffop.DropTable, Table: currentTables[dn]})
		}
	}
	for _, an := range addedNames {
		if !claimedAdded[an] {
			result.Operations = append(result.Operations, diffop.Operation{Kind: diffop.CreateTable, Table: desiredTables[an]})
		}
	}

	for _, name := range commonNames {
		diffTable(currentTables[name], desiredTables[name], result)
	}

	diffEnums(current.Enums, desired.Enums, current.Tables, desired.Tables, result)

	return result
}

func indexTables(tables []snapshot.Table) map[string]*snapshot.Table {
	m := make(map[string]*snapshot.Table, len(tables))
	for i := range tables {
		m[tables[i].Name] = &tables[i]
	}
	return m
}

func keysOf(m map[string]*snapshot.Table) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// classify splits two name sets into names only in a (dropped), only in b
// (added), and present in both (common), each returned sorted.
func classify(a, b []string) (dropped, added, common []string) {
	setA := make(map[string]struct{}, len(a))
	for _, n := range a {
		setA[n] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, n := range b {
		setB[n] = struct{}{}
	}
	for _, n := range a {
		if _, ok := setB[n]; !ok {
			dropped = append(dropped, n)
		} else {
			common = append(common, n)
		}
	}
	for _, n := range b {
		if _, ok := setA[n]; !ok {
			added = append(added, n)
		}
	}
	sort.Strings(dropped)
	sort.Strings(added)
	sort.Strings(common)
	return dropped, added, common
}

func diffTable(current, desired *snapshot.Table, result *diffop.DiffResult) {
	before := len(result.Operations)
	diffColumnsOfTable(current, desired, result)
	diffIndexes(current, desired, result)
	diffUniqueConstraints(current, desired, result)
	diffForeignKeys(current, desired, result)
	diffPrimaryKey(current, desired, result)

	// Recreation-capable dialects (SQLite, LibSQL for multi-column changes)
	// need the full target shape to rebuild the table; attach it, and the
	// current table as the copy source, to every operation this table diff
	// produced. ColumnSource is not set here and stays nil.
	for i := before; i < len(result.Operations); i++ {
		result.Operations[i].DesiredTable = desired
		result.Operations[i].SourceTable = current
	}
}

func diffColumnsOfTable(current, desired *snapshot.Table, result *diffop.DiffResult) {
	currentCols := make(map[string]*snapshot.Column, len(current.Columns))
	for i := range current.Columns {
		currentCols[current.Columns[i].Name] = &current.Columns[i]
	}
	desiredCols := make(map[string]*snapshot.Column, len(desired.Columns))
	for i := range desired.Columns {
		desiredCols[desired.Columns[i].Name] = &desired.Columns[i]
	}

	var currentNames, desiredNames []string
	for n := range currentCols {
		currentNames = append(currentNames, n)
	}
	for n := range desiredCols {
		desiredNames = append(desiredNames, n)
	}
	dropped, added, common := classify(currentNames, desiredNames)

	claimedDropped := make(map[string]bool)
	claimedAdded := make(map[string]bool)

	for _, dn := range dropped {
		if claimedDropped[dn] {
			continue
		}
		for _, an := range added {
			if claimedAdded[an] {
				continue
			}
			if columnsNormalizedTypeEqual(currentCols[dn], desiredCols[an]) {
				claimedDropped[dn] = true
				claimedAdded[an] = true
				result.AmbiguousChanges = append(result.AmbiguousChanges, diffop.AmbiguousChange{
					Kind:          diffop.AmbiguousColumn,
					TableName:     current.Name,
					DroppedColumn: currentCols[dn],
					AddedColumn:   desiredCols[an],
				})
				break
			}
		}
	}

	for _, dn := range dropped {
		if !claimedDropped[dn] {
			result.Operations = append(result.Operations, diffop.Operation{
				Kind: diffop.DropColumn, TableName: current.Name, Column: currentCols[dn],
			})
		}
	}
	for _, an := range added {
		if !claimedAdded[an] {
			result.Operations = append(result.Operations, diffop.Operation{
				Kind: diffop.AddColumn, TableName: current.Name, Column: desiredCols[an],
			})
		}
	}
	for _, name := range common {
		from, to := currentCols[name], desiredCols[name]
		if !columnsEqual(from, to) {
			result.Operations = append(result.Operations, diffop.Operation{
				Kind: diffop.AlterColumn, TableName: current.Name, From: from, To: to,
			})
		}
	}
}

func diffIndexes(current, desired *snapshot.Table, result *diffop.DiffResult) {
	cur := make(map[string]*snapshot.Index, len(current.Indexes))
	for i := range current.Indexes {
		cur[current.Indexes[i].Name] = &current.Indexes[i]
	}
	des := make(map[string]*snapshot.Index, len(desired.Indexes))
	for i := range desired.Indexes {
		des[desired.Indexes[i].Name] = &desired.Indexes[i]
	}
	var curNames, desNames []string
	for n := range cur {
		curNames = append(curNames, n)
	}
	for n := range des {
		desNames = append(desNames, n)
	}
	dropped, added, common := classify(curNames, desNames)

	for _, n := range dropped {
		result.Operations = append(result.Operations, diffop.Operation{Kind: diffop.DropIndex, TableName: current.Name, Index: cur[n]})
	}
	for _, n := range common {
		if !indexesEqual(cur[n], des[n]) {
			result.Operations = append(result.Operations, diffop.Operation{Kind: diffop.DropIndex, TableName: current.Name, Index: cur[n]})
			result.Operations = append(result.Operations, diffop.Operation{Kind: diffop.CreateIndex, TableName: current.Name, Index: des[n]})
		}
	}
	for _, n := range added {
		result.Operations = append(result.Operations, diffop.Operation{Kind: diffop.CreateIndex, TableName: current.Name, Index: des[n]})
	}
}

func indexesEqual(a, b *snapshot.Index) bool {
	if a.Unique != b.Unique || a.Type != b.Type || a.Where != b.Where {
		return false
	}
	return stringSliceEqual(a.Columns, b.Columns)
}

func diffUniqueConstraints(current, desired *snapshot.Table, result *diffop.DiffResult) {
	cur := make(map[string]*snapshot.UniqueConstraint, len(current.UniqueConstraints))
	for i := range current.UniqueConstraints {
		cur[current.UniqueConstraints[i].Name] = &current.UniqueConstraints[i]
	}
	des := make(map[string]*snapshot.UniqueConstraint, len(desired.UniqueConstraints))
	for i := range desired.UniqueConstraints {
		des[desired.UniqueConstraints[i].Name] = &desired.UniqueConstraints[i]
	}
	var curNames, desNames []string
	for n := range cur {
		curNames = append(curNames, n)
	}
	for n := range des {
		desNames = append(desNames, n)
	}
	dropped, added, common := classify(curNames, desNames)

	for _, n := range dropped {
		result.Operations = append(result.Operations, diffop.Operation{Kind: diffop.DropUniqueConstraint, TableName: current.Name, UniqueConstraint: cur[n]})
	}
	for _, n := range common {
		if !stringSliceEqual(cur[n].Columns, des[n].Columns) {
			result.Operations = append(result.Operations, diffop.Operation{Kind: diffop.DropUniqueConstraint, TableName: current.Name, UniqueConstraint: cur[n]})
			result.Operations = append(result.Operations, diffop.Operation{Kind: diffop.AddUniqueConstraint, TableName: current.Name, UniqueConstraint: des[n]})
		}
	}
	for _, n := range added {
		result.Operations = append(result.Operations, diffop.Operation{Kind: diffop.AddUniqueConstraint, TableName: current.Name, UniqueConstraint: des[n]})
	}
}

func diffForeignKeys(current, desired *snapshot.Table, result *diffop.DiffResult) {
	cur := make(map[string]*snapshot.ForeignKey, len(current.ForeignKeys))
	for i := range current.ForeignKeys {
		cur[current.ForeignKeys[i].Name] = &current.ForeignKeys[i]
	}
	des := make(map[string]*snapshot.ForeignKey, len(desired.ForeignKeys))
	for i := range desired.ForeignKeys {
		des[desired.ForeignKeys[i].Name] = &desired.ForeignKeys[i]
	}
	var curNames, desNames []string
	for n := range cur {
		curNames = append(curNames, n)
	}
	for n := range des {
		desNames = append(desNames, n)
	}
	dropped, added, common := classify(curNames, desNames)

	for _, n := range dropped {
		result.Operations = append(result.Operations, diffop.Operation{Kind: diffop.DropForeignKey, TableName: current.Name, ForeignKey: cur[n]})
	}
	for _, n := range common {
		if !fksEqual(cur[n], des[n]) {
			result.Operations = append(result.Operations, diffop.Operation{Kind: diffop.DropForeignKey, TableName: current.Name, ForeignKey: cur[n]})
			result.Operations = append(result.Operations, diffop.Operation{Kind: diffop.AddForeignKey, TableName: current.Name, ForeignKey: des[n]})
		}
	}
	for _, n := range added {
		result.Operations = append(result.Operations, diffop.Operation{Kind: diffop.AddForeignKey, TableName: current.Name, ForeignKey: des[n]})
	}
}

func fksEqual(a, b *snapshot.ForeignKey) bool {
	return stringSliceEqual(a.Columns, b.Columns) &&
		a.ReferencedTable == b.ReferencedTable &&
		stringSliceEqual(a.ReferencedColumns, b.ReferencedColumns) &&
		a.OnDelete == b.OnDelete &&
		a.OnUpdate == b.OnUpdate
}

func diffPrimaryKey(current, desired *snapshot.Table, result *diffop.DiffResult) {
	switch {
	case current.PrimaryKey == nil && desired.PrimaryKey != nil:
		result.Operations = append(result.Operations, diffop.Operation{Kind: diffop.AddPrimaryKey, TableName: current.Name, PrimaryKey: desired.PrimaryKey})
	case current.PrimaryKey != nil && desired.PrimaryKey == nil:
		result.Operations = append(result.Operations, diffop.Operation{Kind: diffop.DropPrimaryKey, TableName: current.Name, PrimaryKey: current.PrimaryKey})
	case current.PrimaryKey != nil && desired.PrimaryKey != nil:
		if !stringSliceEqual(current.PrimaryKey.Columns, desired.PrimaryKey.Columns) {
			result.Operations = append(result.Operations, diffop.Operation{Kind: diffop.DropPrimaryKey, TableName: current.Name, PrimaryKey: current.PrimaryKey})
			result.Operations = append(result.Operations, diffop.Operation{Kind: diffop.AddPrimaryKey, TableName: current.Name, PrimaryKey: desired.PrimaryKey})
		}
	}
}

func diffEnums(current, desired []snapshot.Enum, currentTables, desiredTables []snapshot.Table, result *diffop.DiffResult) {
	cur := make(map[string]*snapshot.Enum, len(current))
	for i := range current {
		cur[current[i].Name] = &current[i]
	}
	des := make(map[string]*snapshot.Enum, len(desired))
	for i := range desired {
		des[desired[i].Name] = &desired[i]
	}
	var curNames, desNames []string
	for n := range cur {
		curNames = append(curNames, n)
	}
	for n := range des {
		desNames = append(desNames, n)
	}
	dropped, added, common := classify(curNames, desNames)

	desiredByName := indexTables(desiredTables)

	for _, n := range dropped {
		deps := dependentColumns(n, currentTables)
		result.Operations = append(result.Operations, diffop.Operation{
			Kind: diffop.DropEnum, Enum: cur[n], DependentColumns: deps,
			DesiredTables: desiredShapesOf(deps, desiredByName),
		})
	}
	for _, n := range added {
		result.Operations = append(result.Operations, diffop.Operation{Kind: diffop.CreateEnum, Enum: des[n]})
	}
	for _, n := range common {
		curEnum, desEnum := cur[n], des[n]
		curSet := stringSet(curEnum.Values)
		desSet := stringSet(desEnum.Values)

		var addValues, removeValues []string
		for _, v := range desEnum.Values {
			if _, ok := curSet[v]; !ok {
				addValues = append(addValues, v)
			}
		}
		for _, v := range curEnum.Values {
			if _, ok := desSet[v]; !ok {
				removeValues = append(removeValues, v)
			}
		}
		if len(addValues) == 0 && len(removeValues) == 0 {
			continue
		}
		deps := dependentColumns(n, currentTables)
		op := diffop.Operation{
			Kind:             diffop.AlterEnum,
			Enum:             curEnum,
			NewValues:        append([]string(nil), desEnum.Values...),
			DependentColumns: deps,
			// Dialects that rewrite enum-typed columns wholesale (MySQL's
			// MODIFY COLUMN, or SQLite/LibSQL table recreation) need every
			// dependent column's full desired shape regardless of whether
			// this change is purely additive; dialects that can ADD VALUE
			// in place (Postgres) simply ignore the extra context.
			DesiredTables: desiredShapesOf(deps, desiredByName),
		}
		if len(addValues) > 0 {
			op.AddValues = addValues
		}
		if len(removeValues) > 0 {
			op.RemoveValues = removeValues
		}
		result.Operations = append(result.Operations, op)
	}
}

// desiredShapesOf resolves each dependent column's owning table to its
// desired-schema shape, for dialects that must recreate the table rather
// than ALTER it in place.
func desiredShapesOf(deps []diffop.DependentColumn, desiredByName map[string]*snapshot.Table) []snapshot.Table {
	seen := make(map[string]bool)
	var out []snapshot.Table
	for _, dep := range deps {
		if seen[dep.Table] {
			continue
		}
		seen[dep.Table] = true
		if t, ok := desiredByName[dep.Table]; ok {
			out = append(out, *t)
		}
	}
	return out
}

func dependentColumns(enumName string, tables []snapshot.Table) []diffop.DependentColumn {
	var deps []diffop.DependentColumn
	for _, t := range tables {
		for _, c := range t.Columns {
			if c.Type == enumName {
				deps = append(deps, diffop.DependentColumn{Table: t.Name, Column: c.Name})
			}
		}
	}
	return deps
}

func stringSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
