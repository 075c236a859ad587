package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"promptflow/internal/story"
)

// readStoryInputs decodes a story file holding either one StoryInput object or
// an array of them.
func readStoryInputs(path string) ([]story.StoryInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read story file: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("story file %s is empty", path)
	}
	if trimmed[0] == '[' {
		var inputs []story.StoryInput
		if err := decodeStrict(trimmed, &inputs); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if len(inputs) == 0 {
			return nil, fmt.Errorf("story file %s contains no stories", path)
		}
		return inputs, nil
	}
	var input story.StoryInput
	if err := decodeStrict(trimmed, &input); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return []story.StoryInput{input}, nil
}

func readRunContext(path string) (story.RunContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return story.RunContext{}, fmt.Errorf("read context file: %w", err)
	}
	var rc story.RunContext
	if err := decodeStrict(data, &rc); err != nil {
		return story.RunContext{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return rc, nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}
