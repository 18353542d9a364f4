// Package schemas embeds the JSON Schemas for every structured artifact the
// interview coach exchanges with the model or persists.
package schemas

import "embed"

// Files holds all *.schema.json documents in this directory.
//
//go:embed *.schema.json
var Files embed.FS

// Schema file names.
const (
	ResumeData      = "resume_data.schema.json"
	Feedback        = "feedback.schema.json"
	InterviewConfig = "interview_config.schema.json"
	Transcript      = "transcript.schema.json"
)

// Names lists every embedded schema.
func Names() []string {
	return []string{ResumeData, Feedback, InterviewConfig, Transcript}
}
