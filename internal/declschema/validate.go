package declschema

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema-json/document.json
var schemaFS embed.FS

// Validate checks raw declared-schema JSON against the document's JSON
// Schema before decoding, the way the teacher's LoadJSONSchema validated
// against schema-json/schema.json ahead of its own strict-decode pass.
// Unlike the teacher's cwd-relative "file://schema-json/schema.json"
// loader, the schema is embedded so Validate works regardless of the
// caller's working directory.
func Validate(data []byte) error {
	schemaBytes, err := schemaFS.ReadFile("schema-json/document.json")
	if err != nil {
		return fmt.Errorf("loading declared-schema JSON Schema: %w", err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaBytes)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validating declared schema: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("declared schema does not match expected format:\n%s", strings.Join(msgs, "\n"))
	}
	return nil
}
