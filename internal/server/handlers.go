package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/jonathan/interview-coach/internal/db"
	"github.com/jonathan/interview-coach/internal/feedback"
	"github.com/jonathan/interview-coach/internal/resume"
	"github.com/jonathan/interview-coach/internal/stage"
	"github.com/jonathan/interview-coach/internal/types"
)

// multipartOverhead is the slack allowed on top of the document for form framing
const multipartOverhead = 1 << 20

// SessionResponse is the state of an interview session
type SessionResponse struct {
	ID       string                `json:"id"`
	Live     bool                  `json:"live"`
	Defaults types.InterviewConfig `json:"defaults"`
	stage.Snapshot
}

// ReportListResponse represents the response for GET /reports
type ReportListResponse struct {
	Reports []db.ReportSummary `json:"reports"`
	Count   int                `json:"count"`
}

func (s *Server) sessionResponse(sess *interviewSession) SessionResponse {
	return SessionResponse{
		ID:       sess.id.String(),
		Live:     sess.busy(),
		Defaults: s.cfg.InterviewDefaults(),
		Snapshot: sess.controller.Snapshot(),
	}
}

func (s *Server) sessionLogger(sess *interviewSession) *log.Entry {
	return s.logger.WithField("session_id", sess.id.String())
}

// handleCreateSession starts a new interview at the Upload stage
func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	sess := s.sessions.create()
	s.sessionLogger(sess).Info("Interview session created")
	s.jsonResponse(w, http.StatusCreated, s.sessionResponse(sess))
}

// handleGetSession returns the session snapshot
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.get(r.PathValue("id"))
	if err != nil {
		s.errorFor(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.sessionResponse(sess))
}

// handleUploadResume parses the uploaded resume and moves the session to Preparing
func (s *Server) handleUploadResume(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.get(r.PathValue("id"))
	if err != nil {
		s.errorFor(w, err)
		return
	}
	logger := s.sessionLogger(sess)

	if current := sess.controller.Stage(); current != types.StageUpload {
		s.errorFor(w, &stage.TransitionError{From: current, To: types.StagePreparing, Message: "resume already parsed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, resume.MaxDocumentBytes+multipartOverhead)
	if err := r.ParseMultipartForm(resume.MaxDocumentBytes); err != nil {
		logger.WithError(err).Warn("Invalid resume upload")
		s.errorResponse(w, http.StatusBadRequest, resume.FailureMessage)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(file, resume.MaxDocumentBytes+1))
	if err != nil {
		logger.WithError(err).Warn("Failed to read resume upload")
		s.errorResponse(w, http.StatusBadRequest, resume.FailureMessage)
		return
	}

	doc := resume.Document{
		Filename: header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
	}
	parsed, err := s.parser.Parse(r.Context(), doc)
	if err != nil {
		logger.WithError(err).WithField("filename", doc.Filename).Error("Error parsing resume")
		s.errorResponse(w, http.StatusUnprocessableEntity, resume.FailureMessage)
		return
	}

	if err := sess.controller.OnResumeParsed(parsed); err != nil {
		s.errorFor(w, err)
		return
	}
	logger.WithFields(log.Fields{
		"stage":     types.StagePreparing,
		"skills":    len(parsed.Skills),
		"questions": len(parsed.SuggestedQuestions),
	}).Info("Resume parsed")
	s.jsonResponse(w, http.StatusOK, s.sessionResponse(sess))
}

// handleStartInterview validates the interview config and moves the session to Interview
func (s *Server) handleStartInterview(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.get(r.PathValue("id"))
	if err != nil {
		s.errorFor(w, err)
		return
	}

	cfg := s.cfg.InterviewDefaults()
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := cfg.Validate(); err != nil {
		s.errorFor(w, validationError(err))
		return
	}

	if err := sess.controller.OnStartInterview(cfg); err != nil {
		s.errorFor(w, err)
		return
	}
	s.sessionLogger(sess).WithFields(log.Fields{
		"stage":  types.StageInterview,
		"config": cfg.String(),
	}).Info("Interview configured")
	s.jsonResponse(w, http.StatusOK, s.sessionResponse(sess))
}

// handleRetryFeedback regenerates feedback from the transcript of an interview whose
// feedback failed
func (s *Server) handleRetryFeedback(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.get(r.PathValue("id"))
	if err != nil {
		s.errorFor(w, err)
		return
	}

	transcript, _, ok := sess.controller.PendingTranscript()
	if !ok {
		s.errorFor(w, &ErrConflict{Message: "no failed feedback to retry"})
		return
	}

	if _, err := s.completeInterview(r.Context(), sess, transcript); err != nil {
		var transition *stage.TransitionError
		if errors.As(err, &transition) {
			s.errorFor(w, err)
			return
		}
		s.errorResponse(w, http.StatusBadGateway, "Failed to generate feedback. Please try again.")
		return
	}
	s.jsonResponse(w, http.StatusOK, s.sessionResponse(sess))
}

// handleReset ends any live interview and returns the session to Upload
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.get(r.PathValue("id"))
	if err != nil {
		s.errorFor(w, err)
		return
	}

	sess.endLive()
	sess.controller.Reset()
	s.sessionLogger(sess).WithField("stage", types.StageUpload).Info("Interview session reset")
	s.jsonResponse(w, http.StatusOK, s.sessionResponse(sess))
}

// handleListReports returns stored reports, newest first
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit := db.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.errorFor(w, &ErrValidation{Field: "limit", Message: "must be a positive integer"})
			return
		}
		limit = n
	}

	reports, err := s.store.ListReports(r.Context(), limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list reports")
		s.errorResponse(w, http.StatusInternalServerError, "Failed to list reports")
		return
	}
	if reports == nil {
		reports = []db.ReportSummary{}
	}
	s.jsonResponse(w, http.StatusOK, ReportListResponse{Reports: reports, Count: len(reports)})
}

// handleGetReport returns a stored report
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	idStr := r.PathValue("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		s.errorFor(w, &ErrValidation{Field: "id", Message: "must be a UUID"})
		return
	}

	report, err := s.store.GetReport(r.Context(), id)
	if err != nil {
		s.logger.WithError(err).WithField("report_id", idStr).Error("Failed to load report")
		s.errorResponse(w, http.StatusInternalServerError, "Failed to load report")
		return
	}
	if report == nil {
		s.errorFor(w, &ErrReportNotFound{ID: idStr})
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}

// completeInterview generates feedback for a finished interview. On success the
// session moves to Feedback and the report is stored; on failure the failure is
// recorded so the caller can retry.
func (s *Server) completeInterview(ctx context.Context, sess *interviewSession, transcript []types.TranscriptionItem) (*types.FeedbackData, error) {
	logger := s.sessionLogger(sess)
	snap := sess.controller.Snapshot()
	if snap.Stage != types.StageInterview {
		return nil, &stage.TransitionError{From: snap.Stage, To: types.StageFeedback, Message: "no interview in progress"}
	}

	ctx, cancel := context.WithTimeout(ctx, feedbackTimeout)
	defer cancel()

	in := feedback.Input{Config: snap.Config, Transcript: transcript}
	if snap.Resume != nil {
		in.CandidateName = snap.Resume.Name
	}
	report, err := s.feedback.Generate(ctx, in)
	if err != nil {
		logger.WithError(err).WithField("transcript", len(transcript)).Error("Error generating feedback")
		if ferr := sess.controller.OnFeedbackFailed(transcript, err); ferr != nil {
			logger.WithError(ferr).Warn("Could not record feedback failure")
		}
		return nil, err
	}

	if err := sess.controller.OnInterviewEnd(transcript, report); err != nil {
		logger.WithError(err).Warn("Discarding feedback for session that moved on")
		return nil, err
	}
	logger.WithFields(log.Fields{
		"stage": types.StageFeedback,
		"score": report.Score,
	}).Info("Feedback generated")

	s.saveReport(ctx, sess, snap, transcript, report)
	return report, nil
}

func (s *Server) saveReport(ctx context.Context, sess *interviewSession, snap stage.Snapshot, transcript []types.TranscriptionItem, report *types.FeedbackData) {
	if s.store == nil || snap.Resume == nil {
		return
	}
	record := &db.Report{
		SessionID:  sess.id,
		Resume:     *snap.Resume,
		Config:     snap.Config,
		Transcript: types.CloneTranscript(transcript),
		Feedback:   *report,
	}
	if err := s.store.SaveReport(ctx, record); err != nil {
		s.sessionLogger(sess).WithError(err).Error("Failed to save report")
		return
	}
	s.sessionLogger(sess).WithField("report_id", record.ID.String()).Info("Report saved")
}
