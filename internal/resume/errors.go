package resume

import "fmt"

// FailureMessage is the only text shown to users when parsing fails.
const FailureMessage = "Failed to parse resume. Please ensure it's a valid PDF or Image."

// DocumentError represents an upload that cannot be sent for extraction
type DocumentError struct {
	Filename string
	Message  string
}

func (e *DocumentError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("invalid document %s: %s", e.Filename, e.Message)
	}
	return fmt.Sprintf("invalid document: %s", e.Message)
}

// APICallError represents an error from the Gemini API
type APICallError struct {
	Message string
	Cause   error
}

func (e *APICallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("API call failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("API call failed: %s", e.Message)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}

// ParseError represents an error parsing the API response
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ValidationError represents a response that does not match the resume schema
type ValidationError struct {
	Message string
	Field   string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}
