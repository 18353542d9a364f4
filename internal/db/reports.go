package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/jonathan/interview-coach/internal/types"
)

// Store persists interview reports
type Store interface {
	SaveReport(ctx context.Context, report *Report) error
	GetReport(ctx context.Context, id uuid.UUID) (*Report, error)
	ListReports(ctx context.Context, limit int) ([]ReportSummary, error)
}

var _ Store = (*DB)(nil)

// SaveReport inserts a report, assigning an ID and creation time when unset
func (db *DB) SaveReport(ctx context.Context, report *Report) error {
	prepareReport(report)

	resumeJSON, err := json.Marshal(report.Resume)
	if err != nil {
		return errors.Wrap(err, "failed to marshal resume")
	}
	transcriptJSON, err := json.Marshal(report.Transcript)
	if err != nil {
		return errors.Wrap(err, "failed to marshal transcript")
	}
	feedbackJSON, err := json.Marshal(report.Feedback)
	if err != nil {
		return errors.Wrap(err, "failed to marshal feedback")
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO interview_reports
			(id, session_id, candidate_name, level, focus, duration, score, resume, transcript, feedback, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		report.ID, report.SessionID, report.Resume.Name, string(report.Config.Level), report.Config.Focus,
		report.Config.Duration, report.Feedback.Score, resumeJSON, transcriptJSON, feedbackJSON, report.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to save report %s", report.ID)
	}
	return nil
}

// GetReport retrieves a report by ID. Returns nil when it does not exist.
func (db *DB) GetReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	var report Report
	var level string
	var resumeJSON, transcriptJSON, feedbackJSON []byte

	err := db.pool.QueryRow(ctx,
		`SELECT id, session_id, level, focus, duration, resume, transcript, feedback, created_at
		 FROM interview_reports WHERE id = $1`,
		id,
	).Scan(&report.ID, &report.SessionID, &level, &report.Config.Focus, &report.Config.Duration,
		&resumeJSON, &transcriptJSON, &feedbackJSON, &report.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to get report %s", id)
	}
	report.Config.Level = types.SkillLevel(level)

	if err := json.Unmarshal(resumeJSON, &report.Resume); err != nil {
		return nil, errors.Wrap(err, "failed to decode resume")
	}
	if err := json.Unmarshal(transcriptJSON, &report.Transcript); err != nil {
		return nil, errors.Wrap(err, "failed to decode transcript")
	}
	if err := json.Unmarshal(feedbackJSON, &report.Feedback); err != nil {
		return nil, errors.Wrap(err, "failed to decode feedback")
	}
	return &report, nil
}

// ListReports returns the most recent reports first
func (db *DB) ListReports(ctx context.Context, limit int) ([]ReportSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, session_id, candidate_name, level, focus, score, created_at
		 FROM interview_reports ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list reports")
	}
	defer rows.Close()

	summaries := []ReportSummary{}
	for rows.Next() {
		var s ReportSummary
		var level string
		if err := rows.Scan(&s.ID, &s.SessionID, &s.CandidateName, &level, &s.Focus, &s.Score, &s.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan report")
		}
		s.Level = types.SkillLevel(level)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate reports")
	}
	return summaries, nil
}

func prepareReport(report *Report) {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
}
