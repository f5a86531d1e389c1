// Package sorter produces the dependency-ordered execution plan from an
// unordered operation set, implementing the eight ordering rules of
// spec.md §4.5. Grounded on internal/planner/planner.go's fixed "Order of
// operations for safe migrations" comment, generalised from a single linear
// pass over a fixed diff shape into a stable sort keyed by a priority
// function over the full 18-variant operation union.
package sorter

import (
	"sort"

	"github.com/lockplane/migrator/internal/diffop"
)

// phase assigns each operation kind a relative position in the total
// order. Lower runs first. Phases are spaced out so new distinctions can be
// inserted between them without renumbering everything.
const (
	phaseDropForeignKey = iota * 10 // rule 1: drop FKs before anything that could orphan them
	phaseDropIndexLike              // rule 2: drop indexes/uniques/PKs before dropping their columns
	phaseDropColumn                 // rule 2/8: drop columns once nothing still references them
	phaseDropTable                  // rule 3: drop tables after their FKs are gone
	phaseRenameTable
	phaseRenameColumn
	phaseCreateEnum      // rule 4: enums before tables/columns that use them
	phaseCreateTable     // rule 5: tables before FKs that target them
	phaseAddColumn       // rule 6: columns before indexes/uniques/PKs that reference them
	phaseAlterColumn     // rule 7: after the table exists, before indexes over it are recreated
	phaseAlterEnumRemove // rule 8 (first half): alterEnum removals after column adjustments retaining legal values
	phaseAlterEnumAdd    // rule 8 (second half): additive alterEnum, no ordering hazard
	phaseAddPrimaryKey
	phaseCreateIndexLike // rule 6/2: indexes/uniques created once their columns exist
	phaseAddForeignKey   // rule 5: FKs added after all createTable/addColumn ops
	phaseDropEnum
)

func phaseOf(op diffop.Operation) int {
	switch op.Kind {
	case diffop.DropForeignKey:
		return phaseDropForeignKey
	case diffop.DropIndex, diffop.DropUniqueConstraint, diffop.DropPrimaryKey:
		return phaseDropIndexLike
	case diffop.AlterEnum:
		if len(op.RemoveValues) > 0 {
			return phaseAlterEnumRemove
		}
		return phaseAlterEnumAdd
	case diffop.DropColumn:
		return phaseDropColumn
	case diffop.DropTable:
		return phaseDropTable
	case diffop.RenameTable:
		return phaseRenameTable
	case diffop.RenameColumn:
		return phaseRenameColumn
	case diffop.CreateEnum:
		return phaseCreateEnum
	case diffop.CreateTable:
		return phaseCreateTable
	case diffop.AddColumn:
		return phaseAddColumn
	case diffop.AlterColumn:
		return phaseAlterColumn
	case diffop.AddPrimaryKey:
		return phaseAddPrimaryKey
	case diffop.CreateIndex, diffop.AddUniqueConstraint:
		return phaseCreateIndexLike
	case diffop.AddForeignKey:
		return phaseAddForeignKey
	case diffop.DropEnum:
		return phaseDropEnum
	default:
		return phaseAddForeignKey // unreachable for a well-formed union; placed last among the safe phases
	}
}

// Sort returns ops in a total order honouring the eight dependency rules of
// §4.5, breaking ties by original (insertion) order — sort.SliceStable
// guarantees that directly.
func Sort(ops []diffop.Operation) []diffop.Operation {
	sorted := make([]diffop.Operation, len(ops))
	copy(sorted, ops)
	sort.SliceStable(sorted, func(i, j int) bool {
		return phaseOf(sorted[i]) < phaseOf(sorted[j])
	})
	return sorted
}
