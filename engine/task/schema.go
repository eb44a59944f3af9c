package task

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

// SchemaValidator compiles and caches JSON-Schema documents from
// WorkflowTask.InputSchema/OutputSchema and validates resolved values
// against them.
type SchemaValidator struct {
	compiler *jsonschema.Compiler
	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
}

// NewSchemaValidator returns a validator with its own compiled-schema cache.
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{compiler: jsonschema.NewCompiler(), compiled: make(map[string]*jsonschema.Schema)}
}

// Validate checks data against schemaDoc. A nil schemaDoc means "no schema
// declared" and always succeeds.
func (v *SchemaValidator) Validate(schemaDoc map[string]any, data any) error {
	if schemaDoc == nil {
		return nil
	}
	raw, err := json.Marshal(schemaDoc)
	if err != nil {
		return fmt.Errorf("marshaling schema document: %w", err)
	}
	schema, err := v.compileCached(raw)
	if err != nil {
		return fmt.Errorf("compiling schema: %w", err)
	}
	instance, err := toJSONValue(data)
	if err != nil {
		return fmt.Errorf("marshaling instance: %w", err)
	}
	result := schema.Validate(instance)
	if !result.IsValid() {
		return fmt.Errorf("schema validation failed: %v", result.Errors)
	}
	return nil
}

func (v *SchemaValidator) compileCached(raw []byte) (*jsonschema.Schema, error) {
	key := string(raw)
	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.compiled[key]; ok {
		return s, nil
	}
	s, err := v.compiler.Compile(raw)
	if err != nil {
		return nil, err
	}
	v.compiled[key] = s
	return s, nil
}

// toJSONValue round-trips data through JSON so map[string]any/[]any shapes
// produced by the template evaluator match what the schema library expects.
func toJSONValue(data any) (any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
