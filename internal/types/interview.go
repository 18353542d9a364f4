// Package types provides type definitions for structured data used throughout the interview coach.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Stage is the position of an interview in the Upload → Preparing → Interview → Feedback flow
type Stage string

// Stage constants in the order they are visited
const (
	StageUpload    Stage = "UPLOAD"
	StagePreparing Stage = "PREPARING"
	StageInterview Stage = "INTERVIEW"
	StageFeedback  Stage = "FEEDBACK"
)

// SkillLevel is the seniority the interviewer calibrates questions to
type SkillLevel string

// Supported skill levels
const (
	LevelBeginner     SkillLevel = "Beginner"
	LevelIntermediate SkillLevel = "Intermediate"
	LevelAdvanced     SkillLevel = "Advanced"
	LevelExpert       SkillLevel = "Expert"
)

// Levels lists every skill level in ascending order.
func Levels() []SkillLevel {
	return []SkillLevel{LevelBeginner, LevelIntermediate, LevelAdvanced, LevelExpert}
}

// Duration bounds in minutes for a single interview.
const (
	MinDurationMinutes = 10
	MaxDurationMinutes = 60
)

// ResumeData is the structured candidate profile extracted from an uploaded resume
type ResumeData struct {
	Name               string   `json:"name" validate:"required"`
	Skills             []string `json:"skills" validate:"required"`
	ExperienceSummary  string   `json:"experienceSummary" validate:"required"`
	SuggestedQuestions []string `json:"suggestedQuestions" validate:"required"`
}

// Clone returns a deep copy so callers can't mutate shared slices.
func (r *ResumeData) Clone() *ResumeData {
	if r == nil {
		return nil
	}
	return &ResumeData{
		Name:               r.Name,
		Skills:             append([]string(nil), r.Skills...),
		ExperienceSummary:  r.ExperienceSummary,
		SuggestedQuestions: append([]string(nil), r.SuggestedQuestions...),
	}
}

// Validate validates the ResumeData using the validator.
func (r *ResumeData) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// InterviewConfig holds the interview parameters chosen at setup
type InterviewConfig struct {
	Level    SkillLevel `json:"level" validate:"required,oneof=Beginner Intermediate Advanced Expert"`
	Duration int        `json:"duration" validate:"min=10,max=60"`
	Focus    string     `json:"focus" validate:"required"`
}

// DefaultInterviewConfig returns the configuration a fresh interview starts with.
func DefaultInterviewConfig() InterviewConfig {
	return InterviewConfig{
		Level:    LevelIntermediate,
		Duration: 20,
		Focus:    "Software Engineering",
	}
}

// Validate validates the InterviewConfig using the validator.
func (c *InterviewConfig) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// DurationSeconds returns the interview length in seconds.
func (c InterviewConfig) DurationSeconds() int {
	return c.Duration * 60
}

// String implements fmt.Stringer
func (c InterviewConfig) String() string {
	return fmt.Sprintf("%s %s, %d min", c.Level, c.Focus, c.Duration)
}
