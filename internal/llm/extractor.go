// Package llm - extractor.go describes structured-output schemas for LLM extraction.
package llm

import (
	"fmt"
	"strings"
)

// FieldType is the JSON type of a schema field
type FieldType string

// Supported field types
const (
	FieldString     FieldType = "string"
	FieldStringList FieldType = "[]string"
	FieldInteger    FieldType = "integer"
)

// ExtractionSchema defines the object the model must return.
// It is converted to the provider's native response schema and can also be rendered
// as a plain-text hint for prompts that only request JSON mode.
type ExtractionSchema struct {
	Name        string
	Description string
	Fields      []SchemaField
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string
	Type        FieldType
	Description string
	Required    bool
}

// RequiredFields returns the names of all required fields in declaration order.
func (s ExtractionSchema) RequiredFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// BuildSchemaHint renders the schema as a compact JSON-like outline.
func BuildSchemaHint(schema ExtractionSchema) string {
	var sb strings.Builder
	sb.WriteString("{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = FieldString
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s", field.Name, typeHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}")
	return sb.String()
}

// --- Predefined Schemas ---

// ResumeDataSchema returns the extraction schema for uploaded resumes.
func ResumeDataSchema() ExtractionSchema {
	return ExtractionSchema{
		Name:        "ResumeData",
		Description: "Candidate profile extracted from a resume for technical interview preparation.",
		Fields: []SchemaField{
			{Name: "name", Type: FieldString, Description: "Candidate full name", Required: true},
			{Name: "skills", Type: FieldStringList, Description: "Core technical skills", Required: true},
			{Name: "experienceSummary", Type: FieldString, Description: "Short experience summary", Required: true},
			{Name: "suggestedQuestions", Type: FieldStringList, Description: "Advanced technical questions based on the profile", Required: true},
		},
	}
}

// FeedbackSchema returns the schema for the post-interview feedback report.
func FeedbackSchema() ExtractionSchema {
	return ExtractionSchema{
		Name:        "FeedbackData",
		Description: "Structured feedback report for a finished interview.",
		Fields: []SchemaField{
			{Name: "score", Type: FieldInteger, Description: "Overall score from 0 to 100", Required: true},
			{Name: "strengths", Type: FieldStringList, Required: true},
			{Name: "areasForImprovement", Type: FieldStringList, Required: true},
			{Name: "technicalAccuracy", Type: FieldString, Required: true},
			{Name: "communicationSkills", Type: FieldString, Required: true},
			{Name: "overallSummary", Type: FieldString, Required: true},
		},
	}
}
