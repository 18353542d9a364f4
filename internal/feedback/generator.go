// Package feedback turns a finished interview transcript into a scored report.
package feedback

import (
	"context"
	"encoding/json"
	"errors"

	schemafiles "github.com/jonathan/interview-coach/schemas"

	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/prompts"
	"github.com/jonathan/interview-coach/internal/schemas"
	"github.com/jonathan/interview-coach/internal/types"
)

// Input is everything the report is generated from.
type Input struct {
	CandidateName string
	Config        types.InterviewConfig
	Transcript    []types.TranscriptionItem
}

// Generator produces FeedbackData with the advanced model tier.
type Generator struct {
	client llm.Client
	tier   llm.ModelTier
}

// NewGenerator creates a generator backed by client.
func NewGenerator(client llm.Client) *Generator {
	return &Generator{client: client, tier: llm.TierAdvanced}
}

// Generate makes one attempt at a report. Scores outside 0..100 are rejected,
// never clamped.
func (g *Generator) Generate(ctx context.Context, in Input) (*types.FeedbackData, error) {
	responseText, err := g.client.GenerateJSON(ctx, buildPrompt(in), g.tier)
	if err != nil {
		return nil, &APICallError{
			Message: "failed to generate feedback from LLM",
			Cause:   err,
		}
	}
	return parseResponse(responseText)
}

func buildPrompt(in Input) string {
	return prompts.MustRender("feedback.json", "analyze-transcript", map[string]string{
		"CandidateName": in.CandidateName,
		"Level":         string(in.Config.Level),
		"Focus":         in.Config.Focus,
		"Transcript":    types.FormatTranscript(in.Transcript),
		"Schema":        llm.BuildSchemaHint(llm.FeedbackSchema()),
	})
}

func parseResponse(responseText string) (*types.FeedbackData, error) {
	cleaned := llm.CleanJSONBlock(responseText)
	if !json.Valid([]byte(cleaned)) {
		return nil, &ParseError{Message: "response is not valid JSON"}
	}

	if err := schemas.ValidateEmbedded(schemafiles.Feedback, []byte(cleaned)); err != nil {
		var verr *schemas.ValidationError
		if errors.As(err, &verr) && len(verr.Errors) > 0 {
			return nil, &ValidationError{
				Field:   verr.Errors[0].Field,
				Message: verr.Errors[0].Message,
				Cause:   err,
			}
		}
		return nil, &ValidationError{Message: "response does not match feedback schema", Cause: err}
	}

	var report types.FeedbackData
	if err := json.Unmarshal([]byte(cleaned), &report); err != nil {
		return nil, &ParseError{
			Message: "failed to parse JSON response",
			Cause:   err,
		}
	}

	if err := report.Validate(); err != nil {
		return nil, &ValidationError{Field: "score", Message: "score out of range", Cause: err}
	}
	return &report, nil
}
