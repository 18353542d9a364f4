//nolint:revive // types is a standard Go package name pattern
package types

import "github.com/go-playground/validator/v10"

// FeedbackData is the structured report produced from a finished interview transcript
type FeedbackData struct {
	Score               int      `json:"score" validate:"min=0,max=100"`
	Strengths           []string `json:"strengths"`
	AreasForImprovement []string `json:"areasForImprovement"`
	TechnicalAccuracy   string   `json:"technicalAccuracy"`
	CommunicationSkills string   `json:"communicationSkills"`
	OverallSummary      string   `json:"overallSummary"`
}

// Clone returns a deep copy of the feedback.
func (f *FeedbackData) Clone() *FeedbackData {
	if f == nil {
		return nil
	}
	return &FeedbackData{
		Score:               f.Score,
		Strengths:           append([]string(nil), f.Strengths...),
		AreasForImprovement: append([]string(nil), f.AreasForImprovement...),
		TechnicalAccuracy:   f.TechnicalAccuracy,
		CommunicationSkills: f.CommunicationSkills,
		OverallSummary:      f.OverallSummary,
	}
}

// Validate validates the FeedbackData using the validator.
func (f *FeedbackData) Validate() error {
	validate := validator.New()
	return validate.Struct(f)
}
