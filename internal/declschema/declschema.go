// Package declschema is a concrete declared-model input format: JSON files
// describing tables and fields, decoded into serializer.ModelSpec/FieldSpec
// implementations. Declared-model input is explicitly out of scope to
// design (spec.md §1), so this is one worked example of the extension
// point rather than part of the core; it is grounded on
// internal/schema/loader.go's LoadJSONSchema (read file, strict-decode
// JSON, DisallowUnknownFields) and reads from a directory of *.json files
// the way loadSchemaFromDir reads a directory of *.lp.sql files.
package declschema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lockplane/migrator/internal/serializer"
)

// Field is one column declaration.
type Field struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Column        string `json:"column,omitempty"`
	NullableFlag  bool   `json:"nullable,omitempty"`
	DefaultValue  string `json:"default,omitempty"`
	HasDefaultVal bool   `json:"has_default,omitempty"`
	AutoGen       string `json:"auto_generate,omitempty"`
	Unique        bool   `json:"unique,omitempty"`
	ID            bool   `json:"id,omitempty"`
	NativeDialect string `json:"native_dialect,omitempty"`
	NativeOverride string `json:"native_type,omitempty"`
}

func (f Field) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}
func (f Field) Nullable() bool       { return f.NullableFlag }
func (f Field) HasDefault() bool     { return f.HasDefaultVal || f.DefaultValue != "" }
func (f Field) Default() string      { return f.DefaultValue }
func (f Field) AutoGenerate() string { return f.AutoGen }
func (f Field) IsUnique() bool       { return f.Unique }
func (f Field) IsID() bool           { return f.ID }
func (f Field) NativeType() (string, string, bool) {
	if f.NativeOverride == "" {
		return "", "", false
	}
	return f.NativeDialect, f.NativeOverride, true
}

// Relation is one declared many-to-many edge.
type Relation struct {
	Target   string `json:"target"`
	Junction string `json:"junction,omitempty"`
}

func (r Relation) spec() serializer.RelationSpec {
	return serializer.RelationSpec{TargetTable: r.Target, JunctionName: r.Junction}
}

// Model is one declared table.
type Model struct {
	Table    string     `json:"table"`
	Fields_  []Field    `json:"fields"`
	ManyToManyRels []Relation `json:"many_to_many,omitempty"`
}

func (m Model) TableName() string { return m.Table }
func (m Model) ManyToMany() []serializer.RelationSpec {
	out := make([]serializer.RelationSpec, len(m.ManyToManyRels))
	for i, r := range m.ManyToManyRels {
		out[i] = r.spec()
	}
	return out
}
func (m Model) Fields() []serializer.FieldSpec {
	out := make([]serializer.FieldSpec, len(m.Fields_))
	for i, f := range m.Fields_ {
		out[i] = fieldAdapter{f}
	}
	return out
}

// fieldAdapter bridges Field's Type struct field to FieldSpec's Type method,
// since json struct field "Type" and interface method "Type()" can't share
// a name on the same receiver.
type fieldAdapter struct{ Field }

func (a fieldAdapter) Type() string { return a.Field.Type }

// Document is the top-level shape of one declared-schema JSON file.
type Document struct {
	Models []Model `json:"models"`
}

// Load reads one JSON file into a slice of serializer.ModelSpec.
func Load(path string) ([]serializer.ModelSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return parse(data, path)
}

// LoadDir reads every *.json file in dir (sorted by name for determinism)
// and concatenates their models.
func LoadDir(dir string) ([]serializer.ModelSpec, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading schema directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no .json schema files found in %s", dir)
	}

	var all []serializer.ModelSpec
	for _, f := range files {
		models, err := Load(f)
		if err != nil {
			return nil, err
		}
		all = append(all, models...)
	}
	return all, nil
}

func parse(data []byte, path string) ([]serializer.ModelSpec, error) {
	if err := Validate(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var doc Document
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	out := make([]serializer.ModelSpec, len(doc.Models))
	for i, m := range doc.Models {
		out[i] = m
	}
	return out, nil
}
