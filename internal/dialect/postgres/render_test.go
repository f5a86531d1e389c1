package postgres

import (
	"strings"
	"testing"

	"github.com/lockplane/migrator/internal/diffop"
	"github.com/lockplane/migrator/internal/snapshot"
)

func TestRender_CreateTable(t *testing.T) {
	d := New()
	table := &snapshot.Table{
		Name: "users",
		Columns: []snapshot.Column{
			{Name: "id", Type: "bigint", AutoIncrement: true},
			{Name: "email", Type: "text"},
		},
		PrimaryKey: &snapshot.PrimaryKey{Columns: []string{"id"}},
	}
	stmts, err := d.Render(diffop.Operation{Kind: diffop.CreateTable, Table: table})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts) != 1 {
		t.Fatalf("expected single CREATE TABLE statement, got %v", stmts)
	}
	if !strings.Contains(stmts[0], "bigserial") {
		t.Fatalf("expected autoIncrement bigint to render as bigserial, got %s", stmts[0])
	}
	if !strings.Contains(stmts[0], `CONSTRAINT "users_pkey" PRIMARY KEY ("id")`) {
		t.Fatalf("expected primary key constraint, got %s", stmts[0])
	}
}

func TestRender_AutoIncrementOnNonIntegerFails(t *testing.T) {
	d := New()
	table := &snapshot.Table{
		Name: "t",
		Columns: []snapshot.Column{
			{Name: "id", Type: "text", AutoIncrement: true},
		},
	}
	_, err := d.Render(diffop.Operation{Kind: diffop.CreateTable, Table: table})
	if err == nil {
		t.Fatal("expected error for autoIncrement on non-integer column")
	}
}

func TestRender_AlterEnumAddOnly(t *testing.T) {
	d := New()
	op := diffop.Operation{
		Kind:      diffop.AlterEnum,
		Enum:      &snapshot.Enum{Name: "status"},
		AddValues: []string{"archived"},
	}
	stmts, err := d.Render(op)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts) != 1 || !strings.Contains(stmts[0], "ADD VALUE 'archived'") {
		t.Fatalf("expected single ADD VALUE statement, got %v", stmts)
	}
}

func TestRender_AlterEnumRemoveRequiresNewValues(t *testing.T) {
	d := New()
	op := diffop.Operation{
		Kind:         diffop.AlterEnum,
		Enum:         &snapshot.Enum{Name: "status"},
		RemoveValues: []string{"deleted"},
	}
	_, err := d.Render(op)
	if err == nil {
		t.Fatal("expected error when removeValues is set without newValues")
	}
}

func TestRender_AlterEnumRemoveSixSteps(t *testing.T) {
	d := New()
	op := diffop.Operation{
		Kind:             diffop.AlterEnum,
		Enum:             &snapshot.Enum{Name: "status"},
		RemoveValues:     []string{"deleted"},
		NewValues:        []string{"active", "archived"},
		DependentColumns: []diffop.DependentColumn{{Table: "users", Column: "status"}},
	}
	stmts, err := d.Render(op)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	joined := strings.Join(stmts, "\n")
	for _, want := range []string{"TYPE text", "DROP TYPE", "CREATE TYPE", "USING \"status\"::\"status\""} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected recreation step %q in:\n%s", want, joined)
		}
	}
}

func TestRender_DropTableCascade(t *testing.T) {
	d := New()
	stmts, err := d.Render(diffop.Operation{Kind: diffop.DropTable, Table: &snapshot.Table{Name: "t"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stmts[0] != `DROP TABLE "t" CASCADE` {
		t.Fatalf("unexpected SQL: %s", stmts[0])
	}
}

func TestRender_UnrecognisedKindIsInternal(t *testing.T) {
	d := New()
	_, err := d.Render(diffop.Operation{Kind: diffop.Kind("bogus")})
	if err == nil {
		t.Fatal("expected error for unrecognised kind")
	}
}

func TestEscapeIdentifier_EmptyFails(t *testing.T) {
	d := New()
	if _, err := d.EscapeIdentifier(""); err == nil {
		t.Fatal("expected error for empty identifier")
	}
}

func TestEscapeIdentifier_DoublesQuotes(t *testing.T) {
	d := New()
	out, err := d.EscapeIdentifier(`weird"name`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `"weird""name"` {
		t.Fatalf("unexpected escaping: %s", out)
	}
}
