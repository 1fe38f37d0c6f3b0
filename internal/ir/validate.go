package ir

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "codeir://ir.schema.json"

//go:embed ir.schema.json
var schemaJSON string

var (
	schemaMu       sync.Mutex
	compiledSchema *jsonschema.Schema
)

// Schema returns the embedded JSON schema source.
func Schema() string {
	return schemaJSON
}

func loadCompiledSchema() (*jsonschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if compiledSchema != nil {
		return compiledSchema, nil
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(schemaURL, bytes.NewReader([]byte(schemaJSON))); err != nil {
		return nil, err
	}
	compiled, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, err
	}
	compiledSchema = compiled
	return compiled, nil
}

// Validate checks raw JSON against the IR schema.
func Validate(data []byte) error {
	schema, err := loadCompiledSchema()
	if err != nil {
		return fmt.Errorf("failed to compile IR schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("failed to parse IR document: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("IR schema validation failed: %w", err)
	}
	return nil
}

// ValidateDocument encodes doc and validates it.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("IR document is nil")
	}
	data, err := EncodeJSON(doc)
	if err != nil {
		return err
	}
	return Validate(data)
}

// EncodeYAML renders the YAML form of a document.
func EncodeYAML(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode IR document as YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
