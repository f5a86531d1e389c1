package declschema

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ParsesModelsAndFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.json")
	content := `{
		"models": [
			{
				"table": "users",
				"fields": [
					{"name": "id", "type": "integer", "id": true},
					{"name": "email", "type": "text", "unique": true},
					{"name": "org_id", "type": "integer"}
				],
				"many_to_many": [
					{"target": "roles"}
				]
			}
		]
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	models, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != 1 {
		t.Fatalf("expected one model, got %d", len(models))
	}
	m := models[0]
	if m.TableName() != "users" {
		t.Fatalf("unexpected table name: %s", m.TableName())
	}
	if len(m.Fields()) != 3 {
		t.Fatalf("expected three fields, got %d", len(m.Fields()))
	}
	if !m.Fields()[0].IsID() {
		t.Fatal("expected id field to be marked IsID")
	}
	if m.Fields()[0].Type() != "integer" {
		t.Fatalf("unexpected type: %s", m.Fields()[0].Type())
	}
	if len(m.ManyToMany()) != 1 || m.ManyToMany()[0].TargetTable != "roles" {
		t.Fatalf("unexpected many-to-many: %+v", m.ManyToMany())
	}
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte(`{"models": [{"table": "t", "fields": [], "bogus": true}]}`), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unknown model field")
	}
}

func TestLoadDir_ConcatenatesModelsAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	mustWrite("a_users.json", `{"models":[{"table":"users","fields":[{"name":"id","type":"integer","id":true}]}]}`)
	mustWrite("b_posts.json", `{"models":[{"table":"posts","fields":[{"name":"id","type":"integer","id":true}]}]}`)

	models, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected two models across files, got %d", len(models))
	}
	if models[0].TableName() != "users" || models[1].TableName() != "posts" {
		t.Fatalf("expected deterministic a-then-b ordering, got %s then %s", models[0].TableName(), models[1].TableName())
	}
}

func TestLoadDir_EmptyDirectoryIsError(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadDir(dir); err == nil {
		t.Fatal("expected an error for a directory with no .json files")
	}
}
