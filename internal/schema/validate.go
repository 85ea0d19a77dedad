package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed jsonschemas/*.json
var jsonSchemaFS embed.FS

var (
	importSchemaOnce sync.Once
	importSchema     *jsonschema.Schema
	importSchemaErr  error
)

// ValidateRequestImport checks an imported WikiRequest payload against the
// collection's JSON Schema. Used by the admin import endpoint so malformed
// records can't enter the store.
func ValidateRequestImport(raw json.RawMessage) error {
	importSchemaOnce.Do(func() {
		data, err := jsonSchemaFS.ReadFile("jsonschemas/wikirequest.json")
		if err != nil {
			importSchemaErr = fmt.Errorf("failed to read import schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("wikirequest.json", bytes.NewReader(data)); err != nil {
			importSchemaErr = fmt.Errorf("failed to load import schema: %w", err)
			return
		}
		importSchema, importSchemaErr = compiler.Compile("wikirequest.json")
	})
	if importSchemaErr != nil {
		return importSchemaErr
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := importSchema.Validate(doc); err != nil {
		return fmt.Errorf("record does not match schema: %w", err)
	}
	return nil
}
