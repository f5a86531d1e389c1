// Package resolver turns the ambiguities the differ could not settle on its
// own into concrete operations, per spec.md §4.4. Resolve is a pure
// function over a caller-supplied policy callback; the callback is the
// named boundary with the external CLI/programmatic collaborator the spec
// places out of scope.
package resolver

import "github.com/lockplane/migrator/internal/diffop"

// Func is the resolver callback contract: given the full batch of
// ambiguities, return a resolution for as many as the caller wants.
// Ambiguities absent from the returned map default to addAndDrop — the
// safe choice, since it never silently renames.
type Func func(changes []diffop.AmbiguousChange) (map[*diffop.AmbiguousChange]diffop.ResolutionKind, error)

// Resolve applies cb's decisions to changes and returns the resulting
// operations in the same order the ambiguities were presented.
func Resolve(changes []diffop.AmbiguousChange, cb Func) ([]diffop.Operation, error) {
	resolutions, err := cb(changes)
	if err != nil {
		return nil, err
	}

	var ops []diffop.Operation
	for i := range changes {
		change := &changes[i]
		resolution, ok := resolutions[change]
		if !ok {
			resolution = diffop.ResolveAddAndDrop
		}
		ops = append(ops, apply(change, resolution)...)
	}
	return ops, nil
}

func apply(change *diffop.AmbiguousChange, resolution diffop.ResolutionKind) []diffop.Operation {
	switch change.Kind {
	case diffop.AmbiguousColumn:
		switch resolution {
		case diffop.ResolveRename:
			return []diffop.Operation{{
				Kind:      diffop.RenameColumn,
				TableName: change.TableName,
				OldName:   change.DroppedColumn.Name,
				NewName:   change.AddedColumn.Name,
			}}
		default:
			return []diffop.Operation{
				{Kind: diffop.DropColumn, TableName: change.TableName, Column: change.DroppedColumn},
				{Kind: diffop.AddColumn, TableName: change.TableName, Column: change.AddedColumn},
			}
		}
	case diffop.AmbiguousTable:
		switch resolution {
		case diffop.ResolveRename:
			return []diffop.Operation{{
				Kind:    diffop.RenameTable,
				OldName: change.DroppedTable.Name,
				NewName: change.AddedTable.Name,
				Table:   change.AddedTable,
			}}
		default:
			return []diffop.Operation{
				{Kind: diffop.DropTable, Table: change.DroppedTable},
				{Kind: diffop.CreateTable, Table: change.AddedTable},
			}
		}
	default:
		return nil
	}
}

// AlwaysRename resolves every ambiguity as a rename.
func AlwaysRename(changes []diffop.AmbiguousChange) (map[*diffop.AmbiguousChange]diffop.ResolutionKind, error) {
	return uniform(changes, diffop.ResolveRename), nil
}

// AlwaysAddAndDrop resolves every ambiguity as a drop-then-add/create. This
// is also the implicit default for any ambiguity a callback leaves
// unanswered.
func AlwaysAddAndDrop(changes []diffop.AmbiguousChange) (map[*diffop.AmbiguousChange]diffop.ResolutionKind, error) {
	return uniform(changes, diffop.ResolveAddAndDrop), nil
}

// Strict refuses to guess: any ambiguity at all is a hard failure, forcing
// the caller to resolve it through some out-of-band mechanism before
// generation can proceed.
func Strict(changes []diffop.AmbiguousChange) (map[*diffop.AmbiguousChange]diffop.ResolutionKind, error) {
	if len(changes) == 0 {
		return nil, nil
	}
	return nil, &AmbiguityError{Count: len(changes)}
}

func uniform(changes []diffop.AmbiguousChange, resolution diffop.ResolutionKind) map[*diffop.AmbiguousChange]diffop.ResolutionKind {
	m := make(map[*diffop.AmbiguousChange]diffop.ResolutionKind, len(changes))
	for i := range changes {
		m[&changes[i]] = resolution
	}
	return m
}
