// Package stage holds the top-level interview state and its ordered stage transitions.
package stage

import (
	"fmt"
	"sync"

	"github.com/jonathan/interview-coach/internal/types"
)

// TransitionError is returned when a transition is attempted from the wrong stage
// or without its required payload. State is left untouched.
type TransitionError struct {
	From    types.Stage
	To      types.Stage
	Message string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move from %s to %s: %s", e.From, e.To, e.Message)
}

// Snapshot is a point-in-time copy of the controller state.
type Snapshot struct {
	Stage         types.Stage               `json:"stage"`
	Resume        *types.ResumeData         `json:"resume,omitempty"`
	Config        types.InterviewConfig     `json:"config"`
	Transcript    []types.TranscriptionItem `json:"transcript"`
	Feedback      *types.FeedbackData       `json:"feedback,omitempty"`
	FeedbackError string                    `json:"feedback_error,omitempty"`
}

// Controller owns the interview stage and every payload derived along the way.
type Controller struct {
	mu            sync.Mutex
	stage         types.Stage
	resume        *types.ResumeData
	config        types.InterviewConfig
	transcript    []types.TranscriptionItem
	feedback      *types.FeedbackData
	feedbackError string
}

// NewController returns a controller at the Upload stage.
func NewController() *Controller {
	return &Controller{
		stage:  types.StageUpload,
		config: types.DefaultInterviewConfig(),
	}
}

// Stage returns the current stage.
func (c *Controller) Stage() types.Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

// OnResumeParsed stores the parsed resume and moves Upload → Preparing.
func (c *Controller) OnResumeParsed(data *types.ResumeData) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stage != types.StageUpload {
		return &TransitionError{From: c.stage, To: types.StagePreparing, Message: "resume already parsed"}
	}
	if data == nil {
		return &TransitionError{From: c.stage, To: types.StagePreparing, Message: "resume data is required"}
	}

	c.resume = data.Clone()
	c.stage = types.StagePreparing
	return nil
}

// OnStartInterview stores the interview config and moves Preparing → Interview.
func (c *Controller) OnStartInterview(config types.InterviewConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stage != types.StagePreparing {
		return &TransitionError{From: c.stage, To: types.StageInterview, Message: "interview can only start after setup"}
	}
	if c.resume == nil {
		return &TransitionError{From: c.stage, To: types.StageInterview, Message: "resume data is required"}
	}

	c.config = config
	c.stage = types.StageInterview
	return nil
}

// OnInterviewEnd stores the final transcript and feedback and moves Interview → Feedback.
func (c *Controller) OnInterviewEnd(transcript []types.TranscriptionItem, feedback *types.FeedbackData) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stage != types.StageInterview {
		return &TransitionError{From: c.stage, To: types.StageFeedback, Message: "no interview in progress"}
	}
	if feedback == nil {
		return &TransitionError{From: c.stage, To: types.StageFeedback, Message: "feedback is required"}
	}

	c.transcript = types.CloneTranscript(transcript)
	c.feedback = feedback.Clone()
	c.feedbackError = ""
	c.stage = types.StageFeedback
	return nil
}

// OnFeedbackFailed keeps the stage at Interview but records the transcript and the
// failure so feedback generation can be retried.
func (c *Controller) OnFeedbackFailed(transcript []types.TranscriptionItem, cause error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stage != types.StageInterview {
		return &TransitionError{From: c.stage, To: types.StageFeedback, Message: "no interview in progress"}
	}

	c.transcript = types.CloneTranscript(transcript)
	c.feedbackError = "feedback generation failed"
	if cause != nil {
		c.feedbackError = cause.Error()
	}
	return nil
}

// PendingTranscript returns the transcript of an interview whose feedback failed.
// ok is false unless the controller is in Interview with a recorded failure.
func (c *Controller) PendingTranscript() (transcript []types.TranscriptionItem, resume *types.ResumeData, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stage != types.StageInterview || c.feedbackError == "" {
		return nil, nil, false
	}
	return types.CloneTranscript(c.transcript), c.resume.Clone(), true
}

// Reset returns to Upload and clears all derived state.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stage = types.StageUpload
	c.resume = nil
	c.config = types.DefaultInterviewConfig()
	c.transcript = nil
	c.feedback = nil
	c.feedbackError = ""
}

// Snapshot returns a deep copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	transcript := types.CloneTranscript(c.transcript)
	if transcript == nil {
		transcript = []types.TranscriptionItem{}
	}
	return Snapshot{
		Stage:         c.stage,
		Resume:        c.resume.Clone(),
		Config:        c.config,
		Transcript:    transcript,
		Feedback:      c.feedback.Clone(),
		FeedbackError: c.feedbackError,
	}
}
