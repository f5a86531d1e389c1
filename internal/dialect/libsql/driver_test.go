package libsql

import (
	"strings"
	"testing"

	"github.com/lockplane/migrator/internal/diffop"
	"github.com/lockplane/migrator/internal/snapshot"
)

func TestRender_AlterColumnUsesNativeAlterColumnTo(t *testing.T) {
	d := New()
	to := &snapshot.Column{Name: "age", Type: "INTEGER", Nullable: true}
	stmts, err := d.Render(diffop.Operation{Kind: diffop.AlterColumn, TableName: "users", To: to})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts) != 1 || !strings.Contains(stmts[0], `ALTER TABLE "users" ALTER COLUMN "age" TO "age" INTEGER`) {
		t.Fatalf("expected single native ALTER COLUMN TO statement, got %v", stmts)
	}
}

func TestRender_SingleColumnForeignKeyIsNative(t *testing.T) {
	d := New()
	fk := &snapshot.ForeignKey{Name: "fk_posts_user", Columns: []string{"user_id"}, ReferencedTable: "users", ReferencedColumns: []string{"id"}}
	stmts, err := d.Render(diffop.Operation{Kind: diffop.AddForeignKey, TableName: "posts", ForeignKey: fk})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts) != 1 {
		t.Fatalf("expected a single native statement, got %v", stmts)
	}
}

func TestRender_MultiColumnForeignKeyFallsBackToRecreation(t *testing.T) {
	d := New()
	fk := &snapshot.ForeignKey{Name: "fk_posts_user", Columns: []string{"user_id", "tenant_id"}, ReferencedTable: "users", ReferencedColumns: []string{"id", "tenant_id"}}
	desired := &snapshot.Table{Name: "posts", Columns: []snapshot.Column{{Name: "user_id", Type: "INTEGER"}, {Name: "tenant_id", Type: "INTEGER"}}}
	stmts, err := d.Render(diffop.Operation{Kind: diffop.AddForeignKey, TableName: "posts", ForeignKey: fk, DesiredTable: desired})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	joined := strings.Join(stmts, "\n")
	if !strings.Contains(joined, "PRAGMA foreign_keys=OFF") {
		t.Fatalf("expected multi-column FK add to fall back to table recreation, got:\n%s", joined)
	}
}

func TestDriverName(t *testing.T) {
	d := New()
	if d.DriverName() != "libsql" {
		t.Fatalf("expected driverName libsql, got %s", d.DriverName())
	}
}
