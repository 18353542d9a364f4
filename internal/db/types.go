package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/interview-coach/internal/types"
)

// Report is a finished interview with its feedback
type Report struct {
	ID         uuid.UUID                 `json:"id"`
	SessionID  uuid.UUID                 `json:"session_id"`
	Resume     types.ResumeData          `json:"resume"`
	Config     types.InterviewConfig     `json:"config"`
	Transcript []types.TranscriptionItem `json:"transcript"`
	Feedback   types.FeedbackData        `json:"feedback"`
	CreatedAt  time.Time                 `json:"created_at"`
}

// ReportSummary is a lightweight view of a report for listing
type ReportSummary struct {
	ID            uuid.UUID        `json:"id"`
	SessionID     uuid.UUID        `json:"session_id"`
	CandidateName string           `json:"candidate_name"`
	Level         types.SkillLevel `json:"level"`
	Focus         string           `json:"focus"`
	Score         int              `json:"score"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Summary derives the listing view of a report
func (r *Report) Summary() ReportSummary {
	return ReportSummary{
		ID:            r.ID,
		SessionID:     r.SessionID,
		CandidateName: r.Resume.Name,
		Level:         r.Config.Level,
		Focus:         r.Config.Focus,
		Score:         r.Feedback.Score,
		CreatedAt:     r.CreatedAt,
	}
}

// DefaultListLimit caps ListReports when no limit is given
const DefaultListLimit = 50
