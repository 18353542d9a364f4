package interview

import (
	"strconv"
	"strings"

	"github.com/jonathan/interview-coach/internal/prompts"
	"github.com/jonathan/interview-coach/internal/types"
)

// BuildSystemPrompt renders the interviewer persona for a candidate.
func BuildSystemPrompt(resume types.ResumeData, cfg types.InterviewConfig) string {
	return prompts.MustRender("interview.json", "system-instruction", map[string]string{
		"Focus":              cfg.Focus,
		"CandidateName":      resume.Name,
		"Level":              string(cfg.Level),
		"ExperienceSummary":  resume.ExperienceSummary,
		"Skills":             strings.Join(resume.Skills, ", "),
		"SuggestedQuestions": strings.Join(resume.SuggestedQuestions, ", "),
		"Duration":           strconv.Itoa(cfg.Duration),
	})
}
