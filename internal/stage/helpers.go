package stage

import (
	"fmt"

	"promptflow/internal/services"
	"promptflow/internal/story"
)

// Require reports a validation error when an upstream output the stage
// depends on is absent from the context.
func Require(stageName string, present bool, field string) error {
	if present {
		return nil
	}
	return services.Wrap(
		services.ErrValidation, stageName, "read context",
		fmt.Sprintf("%s missing from run context; run the earlier stages first", field), nil)
}

// ValidateInput checks the story input and wraps failures as validation
// errors attributed to stageName.
func ValidateInput(stageName string, in story.StoryInput) error {
	if err := story.Validate(in); err != nil {
		return services.Wrap(services.ErrValidation, stageName, "validate input", "story input rejected", err)
	}
	return nil
}
