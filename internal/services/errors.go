package services

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrTimeout          = errors.New("timeout")
	ErrMaxRetries       = errors.New("max retries exceeded")
	ErrSchemaValidation = errors.New("schema validation error")
	ErrWorkflow         = errors.New("workflow error")
	ErrBatchProcessing  = errors.New("batch processing error")
	ErrTransient        = errors.New("transient failure")
)

// Code is the closed set of error codes surfaced to engine callers.
type Code string

const (
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeTimeout          Code = "TIMEOUT_ERROR"
	CodeMaxRetries       Code = "MAX_RETRIES_EXCEEDED"
	CodeSchemaValidation Code = "SCHEMA_VALIDATION_ERROR"
	CodeWorkflow         Code = "WORKFLOW_ERROR"
	CodeBatchProcessing  Code = "BATCH_PROCESSING_ERROR"
	CodeTransient        Code = "TRANSIENT_ERROR"
)

var markerCodes = []struct {
	marker error
	code   Code
}{
	{ErrWorkflow, CodeWorkflow},
	{ErrBatchProcessing, CodeBatchProcessing},
	{ErrMaxRetries, CodeMaxRetries},
	{ErrSchemaValidation, CodeSchemaValidation},
	{ErrValidation, CodeValidation},
	{ErrTimeout, CodeTimeout},
	{ErrTransient, CodeTransient},
}

// Error carries a classification marker together with the stage context the
// failure happened in. Build it through Wrap.
type Error struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Marker.Error())
	b.WriteString(": ")
	b.WriteString(buildDetail(e.Stage, e.Operation, e.Message))
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Cause}
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &Error{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}
}

// ErrorDetails is the structured { code, message, details } shape returned to
// callers for failed stages, runs and batch members.
type ErrorDetails struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Stage     string `json:"stage,omitempty"`
	Operation string `json:"operation,omitempty"`
	CauseCode Code   `json:"causeCode,omitempty"`
	Detail    string `json:"details,omitempty"`
	Cause     error  `json:"-"`
}

// Details extracts the outermost classified error. Unclassified errors are
// reported as transient with the raw error text as message.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Code: CodeOf(err), Detail: err.Error()}
	var classified *Error
	if errors.As(err, &classified) {
		details.Stage = classified.Stage
		details.Operation = classified.Operation
		details.Message = classified.Message
		details.Cause = classified.Cause
		if classified.Cause != nil {
			details.CauseCode = CodeOf(classified.Cause)
		}
	}
	if details.Message == "" {
		details.Message = err.Error()
	}
	return details
}

// CodeOf maps an error to its code. The outermost classified marker wins, so a
// MAX_RETRIES_EXCEEDED wrapping a timeout reports MAX_RETRIES_EXCEEDED.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var classified *Error
	if errors.As(err, &classified) {
		for _, mc := range markerCodes {
			if classified.Marker == mc.marker {
				return mc.code
			}
		}
	}
	for _, mc := range markerCodes {
		if errors.Is(err, mc.marker) {
			return mc.code
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	return CodeTransient
}

// Retryable reports whether the retry controller may attempt the operation
// again. Validation and schema failures are deterministic; cancellation comes
// from the caller.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrSchemaValidation):
		return false
	case errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
