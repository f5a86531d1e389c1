package sqlite

import (
	"errors"
	"strings"
	"testing"

	"github.com/lockplane/migrator/internal/diffop"
	"github.com/lockplane/migrator/internal/migerr"
	"github.com/lockplane/migrator/internal/snapshot"
)

func TestRender_CreateTable(t *testing.T) {
	d := New()
	table := &snapshot.Table{
		Name: "users",
		Columns: []snapshot.Column{
			{Name: "id", Type: "INTEGER", AutoIncrement: true},
			{Name: "email", Type: "TEXT"},
		},
	}
	stmts, err := d.Render(diffop.Operation{Kind: diffop.CreateTable, Table: table})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts) != 1 {
		t.Fatalf("expected single CREATE TABLE statement, got %v", stmts)
	}
	if !strings.Contains(stmts[0], `"id" INTEGER PRIMARY KEY AUTOINCREMENT`) {
		t.Fatalf("expected autoincrement column, got %s", stmts[0])
	}
}

func TestRender_AlterColumnWithoutDesiredTableIsInternal(t *testing.T) {
	d := New()
	_, err := d.Render(diffop.Operation{Kind: diffop.AlterColumn, TableName: "users"})
	if err == nil {
		t.Fatal("expected error when DesiredTable is missing")
	}
}

func TestRender_AlterColumnRecreatesTable(t *testing.T) {
	d := New()
	desired := &snapshot.Table{
		Name: "users",
		Columns: []snapshot.Column{
			{Name: "id", Type: "INTEGER", AutoIncrement: true},
			{Name: "email", Type: "TEXT", Nullable: false},
		},
	}
	stmts, err := d.Render(diffop.Operation{
		Kind:        diffop.AlterColumn,
		TableName:   "users",
		DesiredTable: desired,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	joined := strings.Join(stmts, "\n")
	for _, want := range []string{
		"PRAGMA foreign_keys=OFF",
		`CREATE TABLE "__new_users"`,
		`INSERT INTO "__new_users"`,
		`DROP TABLE "users"`,
		`ALTER TABLE "__new_users" RENAME TO "users"`,
		"PRAGMA foreign_keys=ON",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected recreation sequence to contain %q, got:\n%s", want, joined)
		}
	}

	if strings.Index(joined, "PRAGMA foreign_keys=OFF") > strings.Index(joined, `CREATE TABLE "__new_users"`) {
		t.Fatal("expected foreign_keys=OFF before table creation")
	}
	if strings.Index(joined, `DROP TABLE "users"`) < strings.Index(joined, `INSERT INTO "__new_users"`) {
		t.Fatal("expected INSERT before DROP")
	}
}

func TestRender_RecreateTableHonoursColumnSource(t *testing.T) {
	d := New()
	desired := &snapshot.Table{
		Name: "users",
		Columns: []snapshot.Column{
			{Name: "id", Type: "INTEGER", AutoIncrement: true},
			{Name: "full_name", Type: "TEXT"},
		},
	}
	stmts, err := d.RecreateTable("users", desired, map[string]string{"full_name": "name"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	joined := strings.Join(stmts, "\n")
	if !strings.Contains(joined, `SELECT "id", "name" FROM "users"`) {
		t.Fatalf("expected renamed source column in SELECT list, got:\n%s", joined)
	}
}

func TestRender_AddColumnNotNullWithoutDefaultIsFeatureNotSupported(t *testing.T) {
	d := New()
	_, err := d.Render(diffop.Operation{
		Kind:      diffop.AddColumn,
		TableName: "users",
		Column:    &snapshot.Column{Name: "age", Type: "INTEGER", Nullable: false},
	})
	if err == nil {
		t.Fatal("expected error for NOT NULL column with no default")
	}
	if !errors.Is(err, migerr.FeatureNotSupported) {
		t.Fatalf("expected FeatureNotSupported error, got %v", err)
	}
}

func TestRender_AddColumnNullableWithoutDefaultSucceeds(t *testing.T) {
	d := New()
	stmts, err := d.Render(diffop.Operation{
		Kind:      diffop.AddColumn,
		TableName: "users",
		Column:    &snapshot.Column{Name: "age", Type: "INTEGER", Nullable: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stmts[0], `ADD COLUMN "age" INTEGER`) {
		t.Fatalf("unexpected statement: %v", stmts)
	}
}

func TestRender_RecreateTableRejectsMissingSourceForNotNullColumn(t *testing.T) {
	d := New()
	source := &snapshot.Table{
		Name:    "users",
		Columns: []snapshot.Column{{Name: "id", Type: "INTEGER", AutoIncrement: true}},
	}
	desired := &snapshot.Table{
		Name: "users",
		Columns: []snapshot.Column{
			{Name: "id", Type: "INTEGER", AutoIncrement: true},
			{Name: "age", Type: "INTEGER", Nullable: false},
		},
	}
	_, err := d.RecreateTable("users", desired, nil, source)
	if err == nil {
		t.Fatal("expected error when a NOT NULL column has no matching source column")
	}
	if !errors.Is(err, migerr.FeatureNotSupported) {
		t.Fatalf("expected FeatureNotSupported error, got %v", err)
	}
}

func TestRender_RecreateTableOmitsMissingNullableColumnFromInsert(t *testing.T) {
	d := New()
	source := &snapshot.Table{
		Name:    "users",
		Columns: []snapshot.Column{{Name: "id", Type: "INTEGER", AutoIncrement: true}},
	}
	desired := &snapshot.Table{
		Name: "users",
		Columns: []snapshot.Column{
			{Name: "id", Type: "INTEGER", AutoIncrement: true},
			{Name: "nickname", Type: "TEXT", Nullable: true},
		},
	}
	stmts, err := d.RecreateTable("users", desired, nil, source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, line := range stmts {
		if strings.HasPrefix(line, "INSERT INTO") && strings.Contains(line, `"nickname"`) {
			t.Fatalf("expected nickname to be left out of the INSERT column list, got: %s", line)
		}
	}
}

func TestRender_DropIndexRequiresNoTableQualifier(t *testing.T) {
	d := New()
	stmts, err := d.Render(diffop.Operation{Kind: diffop.DropIndex, Index: &snapshot.Index{Name: "idx_users_email"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stmts[0] != `DROP INDEX "idx_users_email"` {
		t.Fatalf("unexpected SQL: %s", stmts[0])
	}
}

func TestRender_IndexTypeOtherThanBTreeFails(t *testing.T) {
	d := New()
	_, err := d.Render(diffop.Operation{
		Kind:      diffop.CreateIndex,
		TableName: "users",
		Index:     &snapshot.Index{Name: "idx_users_email", Columns: []string{"email"}, Type: snapshot.IndexGIN},
	})
	if err == nil {
		t.Fatal("expected unsupported index type to fail")
	}
}

func TestRender_UnrecognisedKindIsInternal(t *testing.T) {
	d := New()
	_, err := d.Render(diffop.Operation{Kind: diffop.Kind("bogus")})
	if err == nil {
		t.Fatal("expected error for unrecognised kind")
	}
}

func TestParseCheckConstraints(t *testing.T) {
	createSQL := `CREATE TABLE "orders" (
  "id" INTEGER PRIMARY KEY AUTOINCREMENT,
  "status" TEXT CHECK("status" IN ('pending', 'shipped', 'cancelled')) NOT NULL
)`
	values := parseCheckConstraints(createSQL)
	got, ok := values["status"]
	if !ok {
		t.Fatalf("expected status check constraint to be found, got %v", values)
	}
	want := []string{"pending", "shipped", "cancelled"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestEnumColumnType(t *testing.T) {
	d := New()
	got := d.EnumColumnType("orders", "status", []string{"pending", "it's shipped"})
	want := `TEXT CHECK("status" IN ('pending', 'it''s shipped'))`
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
