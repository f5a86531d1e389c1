package snapshot

import (
	"strings"
	"testing"
)

func validSchema() *Schema {
	return &Schema{
		Enums: []Enum{
			{Name: "user_role", Values: []string{"admin", "member"}},
		},
		Tables: []Table{
			{
				Name: "users",
				Columns: []Column{
					{Name: "id", Type: "bigint", Nullable: false, AutoIncrement: true},
					{Name: "email", Type: "text", Nullable: false},
					{Name: "role", Type: "user_role", Nullable: false},
				},
				PrimaryKey: &PrimaryKey{Name: "users_pkey", Columns: []string{"id"}},
				Indexes: []Index{
					{Name: "users_email_idx", Columns: []string{"email"}, Unique: true},
				},
			},
			{
				Name: "posts",
				Columns: []Column{
					{Name: "id", Type: "bigint", Nullable: false, AutoIncrement: true},
					{Name: "author_id", Type: "bigint", Nullable: false},
				},
				PrimaryKey: &PrimaryKey{Name: "posts_pkey", Columns: []string{"id"}},
				ForeignKeys: []ForeignKey{
					{
						Name:              "posts_author_id_fkey",
						Columns:           []string{"author_id"},
						ReferencedTable:   "users",
						ReferencedColumns: []string{"id"},
					},
				},
			},
		},
	}
}

func TestValidate_ValidSchema(t *testing.T) {
	if err := validSchema().Validate(); err != nil {
		t.Fatalf("expected valid schema to pass, got: %v", err)
	}
}

func TestValidate_DuplicateTableName(t *testing.T) {
	s := validSchema()
	s.Tables = append(s.Tables, Table{Name: "users"})
	err := s.Validate()
	if err == nil {
		t.Fatal("expected error for duplicate table name")
	}
	if !strings.Contains(err.Error(), `duplicate table name "users"`) {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestValidate_DuplicateEnumName(t *testing.T) {
	s := validSchema()
	s.Enums = append(s.Enums, Enum{Name: "user_role", Values: []string{"x"}})
	err := s.Validate()
	if err == nil || !strings.Contains(err.Error(), `duplicate enum name "user_role"`) {
		t.Fatalf("expected duplicate enum error, got: %v", err)
	}
}

func TestValidate_ForeignKeyUnknownTable(t *testing.T) {
	s := validSchema()
	posts := s.FindTable("posts")
	posts.ForeignKeys[0].ReferencedTable = "missing"
	err := s.Validate()
	if err == nil || !strings.Contains(err.Error(), `unknown table "missing"`) {
		t.Fatalf("expected unknown-table error, got: %v", err)
	}
}

func TestValidate_ForeignKeyUnknownColumn(t *testing.T) {
	s := validSchema()
	posts := s.FindTable("posts")
	posts.ForeignKeys[0].Columns = []string{"does_not_exist"}
	err := s.Validate()
	if err == nil || !strings.Contains(err.Error(), `unknown column "does_not_exist"`) {
		t.Fatalf("expected unknown-column error, got: %v", err)
	}
}

func TestValidate_PrimaryKeyUnknownColumn(t *testing.T) {
	s := validSchema()
	users := s.FindTable("users")
	users.PrimaryKey.Columns = []string{"ghost"}
	err := s.Validate()
	if err == nil || !strings.Contains(err.Error(), "primary key references unknown column") {
		t.Fatalf("expected primary key error, got: %v", err)
	}
}

func TestValidate_DuplicateIndexName(t *testing.T) {
	s := validSchema()
	users := s.FindTable("users")
	users.Indexes = append(users.Indexes, Index{Name: "users_email_idx", Columns: []string{"id"}})
	err := s.Validate()
	if err == nil || !strings.Contains(err.Error(), `duplicate index name "users_email_idx"`) {
		t.Fatalf("expected duplicate index error, got: %v", err)
	}
}

func TestFindTableAndColumn(t *testing.T) {
	s := validSchema()
	if s.FindTable("missing") != nil {
		t.Fatal("expected nil for missing table")
	}
	users := s.FindTable("users")
	if users == nil {
		t.Fatal("expected to find users table")
	}
	if users.FindColumn("missing") != nil {
		t.Fatal("expected nil for missing column")
	}
	if users.FindColumn("email") == nil {
		t.Fatal("expected to find email column")
	}
}

func TestColumnNames(t *testing.T) {
	users := validSchema().FindTable("users")
	names := users.ColumnNames()
	for _, want := range []string{"id", "email", "role"} {
		if _, ok := names[want]; !ok {
			t.Fatalf("expected %q in column name set", want)
		}
	}
	if len(names) != 3 {
		t.Fatalf("expected 3 column names, got %d", len(names))
	}
}
