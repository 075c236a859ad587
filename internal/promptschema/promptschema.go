// Package promptschema validates generated prompts against the embedded
// structural JSON Schema before they leave the prompt generation stage.
package promptschema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"promptflow/internal/services"
	"promptflow/internal/story"
)

//go:embed schema.json
var schemaJSON []byte

var resolved = sync.OnceValues(func() (*jsonschema.Resolved, error) {
	var schema jsonschema.Schema
	if err := json.Unmarshal(schemaJSON, &schema); err != nil {
		return nil, fmt.Errorf("decode prompt schema: %w", err)
	}
	rs, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve prompt schema: %w", err)
	}
	return rs, nil
})

// Schema returns the raw embedded schema document.
func Schema() []byte {
	return append([]byte(nil), schemaJSON...)
}

// Ready reports whether the embedded schema decodes and resolves.
func Ready() error {
	_, err := resolved()
	return err
}

// Validate checks a prompt against the schema. Violations are marked
// services.ErrSchemaValidation.
func Validate(prompt *story.VideoPlanetPrompt) error {
	if prompt == nil {
		return services.Wrap(services.ErrSchemaValidation, story.StagePromptGeneration, "validate schema", "prompt is nil", nil)
	}
	data, err := json.Marshal(prompt)
	if err != nil {
		return services.Wrap(services.ErrSchemaValidation, story.StagePromptGeneration, "encode prompt", "prompt is not JSON encodable", err)
	}
	return ValidateJSON(data)
}

// ValidateJSON checks an encoded prompt document against the schema.
func ValidateJSON(data []byte) error {
	rs, err := resolved()
	if err != nil {
		return err
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return services.Wrap(services.ErrSchemaValidation, story.StagePromptGeneration, "decode prompt", "prompt is not valid JSON", err)
	}
	if err := rs.Validate(instance); err != nil {
		return services.Wrap(services.ErrSchemaValidation, story.StagePromptGeneration, "validate schema", "prompt violates schema", err)
	}
	return nil
}
