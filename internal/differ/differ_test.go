package differ

import (
	"testing"

	"github.com/lockplane/migrator/internal/diffop"
	"github.com/lockplane/migrator/internal/snapshot"
)

func strp(s string) *string { return &s }

func baseSchema() *snapshot.Schema {
	return &snapshot.Schema{
		Tables: []snapshot.Table{
			{
				Name: "users",
				Columns: []snapshot.Column{
					{Name: "id", Type: "bigint", Nullable: false, AutoIncrement: true},
					{Name: "email", Type: "text", Nullable: false},
				},
				PrimaryKey: &snapshot.PrimaryKey{Name: "users_pkey", Columns: []string{"id"}},
			},
		},
	}
}

func TestDiff_Reflexive(t *testing.T) {
	s := baseSchema()
	result := Diff(s, s)
	if len(result.Operations) != 0 || len(result.AmbiguousChanges) != 0 {
		t.Fatalf("expected no diff against self, got ops=%v ambiguous=%v", result.Operations, result.AmbiguousChanges)
	}
}

func TestDiff_CreateAndDropTable(t *testing.T) {
	current := baseSchema()
	desired := &snapshot.Schema{
		Tables: []snapshot.Table{
			{Name: "posts", Columns: []snapshot.Column{{Name: "title", Type: "text"}}},
		},
	}
	result := Diff(current, desired)
	var sawDrop, sawCreate bool
	for _, op := range result.Operations {
		if op.Kind == diffop.DropTable && op.Table.Name == "users" {
			sawDrop = true
		}
		if op.Kind == diffop.CreateTable && op.Table.Name == "posts" {
			sawCreate = true
		}
	}
	if !sawDrop || !sawCreate {
		t.Fatalf("expected dropTable(users) and createTable(posts), got %v", result.Operations)
	}
	if len(result.AmbiguousChanges) != 0 {
		t.Fatalf("dissimilar tables should not be ambiguous, got %v", result.AmbiguousChanges)
	}
}

func TestDiff_AmbiguousTableRename(t *testing.T) {
	current := &snapshot.Schema{
		Tables: []snapshot.Table{
			{Name: "accounts", Columns: []snapshot.Column{
				{Name: "id", Type: "bigint"}, {Name: "email", Type: "text"}, {Name: "name", Type: "text"},
			}},
		},
	}
	desired := &snapshot.Schema{
		Tables: []snapshot.Table{
			{Name: "customers", Columns: []snapshot.Column{
				{Name: "id", Type: "bigint"}, {Name: "email", Type: "text"}, {Name: "name", Type: "text"},
			}},
		},
	}
	result := Diff(current, desired)
	if len(result.Operations) != 0 {
		t.Fatalf("expected no unambiguous ops, got %v", result.Operations)
	}
	if len(result.AmbiguousChanges) != 1 || result.AmbiguousChanges[0].Kind != diffop.AmbiguousTable {
		t.Fatalf("expected one ambiguousTable change, got %v", result.AmbiguousChanges)
	}
	if result.AmbiguousChanges[0].DroppedTable.Name != "accounts" || result.AmbiguousChanges[0].AddedTable.Name != "customers" {
		t.Fatalf("unexpected ambiguity pairing: %+v", result.AmbiguousChanges[0])
	}
}

func TestDiff_AmbiguousColumnRename(t *testing.T) {
	current := baseSchema()
	desired := baseSchema()
	desired.Tables[0].Columns = []snapshot.Column{
		{Name: "id", Type: "bigint", Nullable: false, AutoIncrement: true},
		{Name: "email_address", Type: "text", Nullable: false},
	}
	result := Diff(current, desired)
	if len(result.Operations) != 0 {
		t.Fatalf("expected no unambiguous ops, got %v", result.Operations)
	}
	if len(result.AmbiguousChanges) != 1 || result.AmbiguousChanges[0].Kind != diffop.AmbiguousColumn {
		t.Fatalf("expected one ambiguousColumn change, got %v", result.AmbiguousChanges)
	}
}

func TestDiff_ColumnTypeMismatchIsNotAmbiguous(t *testing.T) {
	current := baseSchema()
	desired := baseSchema()
	desired.Tables[0].Columns = []snapshot.Column{
		{Name: "id", Type: "bigint", Nullable: false, AutoIncrement: true},
		{Name: "email_address", Type: "integer", Nullable: false},
	}
	result := Diff(current, desired)
	var sawDrop, sawAdd bool
	for _, op := range result.Operations {
		if op.Kind == diffop.DropColumn && op.Column.Name == "email" {
			sawDrop = true
		}
		if op.Kind == diffop.AddColumn && op.Column.Name == "email_address" {
			sawAdd = true
		}
	}
	if !sawDrop || !sawAdd {
		t.Fatalf("expected dropColumn+addColumn for mismatched types, got %v", result.Operations)
	}
	if len(result.AmbiguousChanges) != 0 {
		t.Fatalf("mismatched types must not be ambiguous, got %v", result.AmbiguousChanges)
	}
}

func TestDiff_AlterColumn(t *testing.T) {
	current := baseSchema()
	desired := baseSchema()
	desired.Tables[0].Columns[1].Nullable = true
	result := Diff(current, desired)
	if len(result.Operations) != 1 || result.Operations[0].Kind != diffop.AlterColumn {
		t.Fatalf("expected single alterColumn op, got %v", result.Operations)
	}
}

func TestDiff_NormalizedDefaultsNoOp(t *testing.T) {
	current := baseSchema()
	current.Tables[0].Columns[1].Default = strp("TRUE")
	desired := baseSchema()
	desired.Tables[0].Columns[1].Default = strp("1")
	result := Diff(current, desired)
	if len(result.Operations) != 0 {
		t.Fatalf("expected normalised-equal defaults to produce no op, got %v", result.Operations)
	}
}

func TestDiff_IndexSetDiff(t *testing.T) {
	current := baseSchema()
	current.Tables[0].Indexes = []snapshot.Index{{Name: "idx_email", Columns: []string{"email"}}}
	desired := baseSchema()
	desired.Tables[0].Indexes = []snapshot.Index{{Name: "idx_email", Columns: []string{"email"}, Unique: true}}
	result := Diff(current, desired)
	if len(result.Operations) != 2 {
		t.Fatalf("expected drop+create for changed index, got %v", result.Operations)
	}
	if result.Operations[0].Kind != diffop.DropIndex || result.Operations[1].Kind != diffop.CreateIndex {
		t.Fatalf("expected drop before create, got %v", result.Operations)
	}
}

func TestDiff_PrimaryKeyAdded(t *testing.T) {
	current := &snapshot.Schema{Tables: []snapshot.Table{{Name: "t", Columns: []snapshot.Column{{Name: "id", Type: "bigint"}}}}}
	desired := &snapshot.Schema{Tables: []snapshot.Table{{
		Name: "t", Columns: []snapshot.Column{{Name: "id", Type: "bigint"}},
		PrimaryKey: &snapshot.PrimaryKey{Name: "t_pkey", Columns: []string{"id"}},
	}}}
	result := Diff(current, desired)
	if len(result.Operations) != 1 || result.Operations[0].Kind != diffop.AddPrimaryKey {
		t.Fatalf("expected addPrimaryKey, got %v", result.Operations)
	}
}

func TestDiff_EnumAddAndRemoveValues(t *testing.T) {
	current := &snapshot.Schema{
		Enums: []snapshot.Enum{{Name: "status", Values: []string{"active", "deleted"}}},
		Tables: []snapshot.Table{{
			Name:    "users",
			Columns: []snapshot.Column{{Name: "status", Type: "status"}},
		}},
	}
	desired := &snapshot.Schema{
		Enums:  []snapshot.Enum{{Name: "status", Values: []string{"active", "archived"}}},
		Tables: current.Tables,
	}
	result := Diff(current, desired)
	if len(result.Operations) != 1 || result.Operations[0].Kind != diffop.AlterEnum {
		t.Fatalf("expected single alterEnum op, got %v", result.Operations)
	}
	op := result.Operations[0]
	if len(op.AddValues) != 1 || op.AddValues[0] != "archived" {
		t.Fatalf("expected addValues=[archived], got %v", op.AddValues)
	}
	if len(op.RemoveValues) != 1 || op.RemoveValues[0] != "deleted" {
		t.Fatalf("expected removeValues=[deleted], got %v", op.RemoveValues)
	}
	if len(op.DependentColumns) != 1 || op.DependentColumns[0].Table != "users" {
		t.Fatalf("expected dependentColumns=[users.status], got %v", op.DependentColumns)
	}
}

func TestDiff_EnumCreateAndDrop(t *testing.T) {
	current := &snapshot.Schema{Enums: []snapshot.Enum{{Name: "old_enum", Values: []string{"a"}}}}
	desired := &snapshot.Schema{Enums: []snapshot.Enum{{Name: "new_enum", Values: []string{"b"}}}}
	result := Diff(current, desired)
	var sawDrop, sawCreate bool
	for _, op := range result.Operations {
		if op.Kind == diffop.DropEnum && op.Enum.Name == "old_enum" {
			sawDrop = true
		}
		if op.Kind == diffop.CreateEnum && op.Enum.Name == "new_enum" {
			sawCreate = true
		}
	}
	if !sawDrop || !sawCreate {
		t.Fatalf("expected dropEnum+createEnum, got %v", result.Operations)
	}
}
