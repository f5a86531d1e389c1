package sorter

import (
	"testing"

	"github.com/lockplane/migrator/internal/diffop"
	"github.com/lockplane/migrator/internal/snapshot"
)

func indexOf(ops []diffop.Operation, kind diffop.Kind, match func(diffop.Operation) bool) int {
	for i, op := range ops {
		if op.Kind == kind && (match == nil || match(op)) {
			return i
		}
	}
	return -1
}

func TestSort_DropForeignKeyBeforeDropTable(t *testing.T) {
	ops := []diffop.Operation{
		{Kind: diffop.DropTable, Table: tbl("orders")},
		{Kind: diffop.DropForeignKey, TableName: "orders"},
	}
	sorted := Sort(ops)
	if indexOf(sorted, diffop.DropForeignKey, nil) > indexOf(sorted, diffop.DropTable, nil) {
		t.Fatalf("expected dropForeignKey before dropTable, got %v", sorted)
	}
}

func TestSort_CreateEnumBeforeCreateTable(t *testing.T) {
	ops := []diffop.Operation{
		{Kind: diffop.CreateTable, Table: tbl("users")},
		{Kind: diffop.CreateEnum},
	}
	sorted := Sort(ops)
	if indexOf(sorted, diffop.CreateEnum, nil) > indexOf(sorted, diffop.CreateTable, nil) {
		t.Fatalf("expected createEnum before createTable, got %v", sorted)
	}
}

func TestSort_CreateTableBeforeAddForeignKey(t *testing.T) {
	ops := []diffop.Operation{
		{Kind: diffop.AddForeignKey, TableName: "orders"},
		{Kind: diffop.CreateTable, Table: tbl("orders")},
	}
	sorted := Sort(ops)
	if indexOf(sorted, diffop.CreateTable, nil) > indexOf(sorted, diffop.AddForeignKey, nil) {
		t.Fatalf("expected createTable before addForeignKey, got %v", sorted)
	}
}

func TestSort_AddColumnBeforeCreateIndex(t *testing.T) {
	ops := []diffop.Operation{
		{Kind: diffop.CreateIndex, TableName: "users"},
		{Kind: diffop.AddColumn, TableName: "users"},
	}
	sorted := Sort(ops)
	if indexOf(sorted, diffop.AddColumn, nil) > indexOf(sorted, diffop.CreateIndex, nil) {
		t.Fatalf("expected addColumn before createIndex, got %v", sorted)
	}
}

func TestSort_DropIndexBeforeDropColumn(t *testing.T) {
	ops := []diffop.Operation{
		{Kind: diffop.DropColumn, TableName: "users"},
		{Kind: diffop.DropIndex, TableName: "users"},
	}
	sorted := Sort(ops)
	if indexOf(sorted, diffop.DropIndex, nil) > indexOf(sorted, diffop.DropColumn, nil) {
		t.Fatalf("expected dropIndex before dropColumn, got %v", sorted)
	}
}

func TestSort_StableOnTies(t *testing.T) {
	ops := []diffop.Operation{
		{Kind: diffop.CreateTable, Table: tbl("a")},
		{Kind: diffop.CreateTable, Table: tbl("b")},
		{Kind: diffop.CreateTable, Table: tbl("c")},
	}
	sorted := Sort(ops)
	for i, op := range sorted {
		if op.Table.Name != ops[i].Table.Name {
			t.Fatalf("expected insertion order preserved among ties, got %v", sorted)
		}
	}
}

func tbl(name string) *snapshot.Table {
	return &snapshot.Table{Name: name}
}
