package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/interview-coach/internal/config"
	"github.com/jonathan/interview-coach/internal/interview"
	"github.com/jonathan/interview-coach/internal/live"
	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/media"
	"github.com/jonathan/interview-coach/internal/resume"
	"github.com/jonathan/interview-coach/internal/server/ratelimit"
	"github.com/jonathan/interview-coach/internal/types"
)

const resumeJSON = `{
	"name": "Ada Lovelace",
	"skills": ["Go", "Distributed Systems"],
	"experienceSummary": "Built payment infrastructure.",
	"suggestedQuestions": ["Design an idempotent API"]
}`

const feedbackJSON = `{
	"score": 82,
	"strengths": ["Clear structure"],
	"areasForImprovement": ["Quantify impact"],
	"technicalAccuracy": "Solid",
	"communicationSkills": "Concise",
	"overallSummary": "Strong interview"
}`

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")

// fakeLLM answers resume extraction (requests with attachments) and feedback
// generation (plain prompts) separately.
type fakeLLM struct {
	mu             sync.Mutex
	resumeResponse string
	resumeErr      error
	feedbackResp   string
	feedbackErr    error
	feedbackCalls  int
	feedbackGate   chan struct{} // when set, feedback calls block until it is closed
}

func newFakeLLM() *fakeLLM {
	return &fakeLLM{resumeResponse: resumeJSON, feedbackResp: feedbackJSON}
}

func (f *fakeLLM) GenerateJSON(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
	f.mu.Lock()
	f.feedbackCalls++
	gate := f.feedbackGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.feedbackResp, f.feedbackErr
}

func (f *fakeLLM) feedbackCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.feedbackCalls
}

func (f *fakeLLM) GenerateStructured(_ context.Context, _ llm.Request, _ llm.ModelTier) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resumeResponse, f.resumeErr
}

func (f *fakeLLM) GetModel(llm.ModelTier) string { return "fake" }

func (f *fakeLLM) Close() error { return nil }

func (f *fakeLLM) setFeedbackErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedbackErr = err
}

type fakeStream struct {
	events    chan live.Event
	closed    chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	audio  int
	images int
}

func newFakeStream(events ...live.Event) *fakeStream {
	s := &fakeStream{events: make(chan live.Event, 32), closed: make(chan struct{})}
	for _, ev := range events {
		s.events <- ev
	}
	return s
}

func (f *fakeStream) SendAudio(media.Blob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio++
	return nil
}

func (f *fakeStream) SendImage(media.Blob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images++
	return nil
}

func (f *fakeStream) Receive() (live.Event, error) {
	select {
	case <-f.closed:
		return live.Event{}, io.EOF
	default:
	}
	select {
	case ev := <-f.events:
		return ev, nil
	case <-f.closed:
		return live.Event{}, io.EOF
	}
}

func (f *fakeStream) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeStream) audioCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audio
}

type fakeTransport struct {
	stream *fakeStream
	err    error

	mu  sync.Mutex
	cfg live.SessionConfig
}

func (f *fakeTransport) Connect(_ context.Context, cfg live.SessionConfig) (live.Stream, error) {
	f.mu.Lock()
	f.cfg = cfg
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

type testServer struct {
	*Server
	llm       *fakeLLM
	transport *fakeTransport
}

func newTestServer(t *testing.T, rl *ratelimit.Config) *testServer {
	t.Helper()
	if rl == nil {
		rl = &ratelimit.Config{Enabled: false}
	}
	fake := newFakeLLM()
	transport := &fakeTransport{stream: newFakeStream(live.Event{Type: live.EventOpen})}
	cfg := config.Defaults()

	s, err := New(Options{Config: &cfg, LLM: fake, Transport: transport, RateLimit: rl})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return &testServer{Server: s, llm: fake, transport: transport}
}

func (ts *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	return w
}

func (ts *testServer) createSession(t *testing.T) SessionResponse {
	t.Helper()
	w := ts.do(t, httptest.NewRequest(http.MethodPost, "/sessions", nil))
	require.Equal(t, http.StatusCreated, w.Code)
	return decodeSession(t, w)
}

func (ts *testServer) uploadResume(t *testing.T, id string) *httptest.ResponseRecorder {
	t.Helper()
	return ts.do(t, resumeRequest(t, id, "cv.pdf", "application/pdf", pdfBytes))
}

func (ts *testServer) startInterview(t *testing.T, id, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/interview", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return ts.do(t, req)
}

func resumeRequest(t *testing.T, id, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/resume", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) SessionResponse {
	t.Helper()
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	msg, _ := resp["error"].(string)
	return msg
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{Transport: &fakeTransport{}})
	assert.Error(t, err)

	_, err = New(Options{LLM: newFakeLLM()})
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCreateAndGetSession(t *testing.T) {
	ts := newTestServer(t, nil)

	created := ts.createSession(t)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, types.StageUpload, created.Stage)
	assert.Equal(t, types.DefaultInterviewConfig(), created.Defaults)
	assert.Empty(t, created.Transcript)
	assert.False(t, created.Live)

	w := ts.do(t, httptest.NewRequest(http.MethodGet, "/sessions/"+created.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decodeSession(t, w).ID)
}

func TestGetSession_NotFound(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, id := range []string{"not-a-uuid", "2b1f9d0e-6a4b-4c1f-9f0a-1c2d3e4f5a6b"} {
		w := ts.do(t, httptest.NewRequest(http.MethodGet, "/sessions/"+id, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, id)
	}
}

func TestUploadResume_Success(t *testing.T) {
	ts := newTestServer(t, nil)
	id := ts.createSession(t).ID

	w := ts.uploadResume(t, id)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeSession(t, w)
	assert.Equal(t, types.StagePreparing, resp.Stage)
	require.NotNil(t, resp.Resume)
	assert.Equal(t, "Ada Lovelace", resp.Resume.Name)
}

func TestUploadResume_Failures(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		llmErr     error
		filename   string
		mimeType   string
		data       []byte
		wantStatus int
	}{
		{
			name:       "missing required field",
			response:   `{"name": "Ada", "skills": [], "experienceSummary": "x"}`,
			filename:   "cv.pdf",
			mimeType:   "application/pdf",
			data:       pdfBytes,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "malformed JSON",
			response:   `{"name": `,
			filename:   "cv.pdf",
			mimeType:   "application/pdf",
			data:       pdfBytes,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "network error",
			llmErr:     errors.New("connection reset"),
			filename:   "cv.pdf",
			mimeType:   "application/pdf",
			data:       pdfBytes,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "unsupported document",
			response:   resumeJSON,
			filename:   "cv.txt",
			mimeType:   "text/plain",
			data:       []byte("plain text resume"),
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			ts.llm.resumeResponse = tt.response
			ts.llm.resumeErr = tt.llmErr
			id := ts.createSession(t).ID

			w := ts.do(t, resumeRequest(t, id, tt.filename, tt.mimeType, tt.data))
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, resume.FailureMessage, decodeError(t, w))

			// The user can try again from Upload
			w = ts.do(t, httptest.NewRequest(http.MethodGet, "/sessions/"+id, nil))
			assert.Equal(t, types.StageUpload, decodeSession(t, w).Stage)
		})
	}
}

func TestUploadResume_MissingFile(t *testing.T) {
	ts := newTestServer(t, nil)
	id := ts.createSession(t).ID

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("other", "value"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/resume", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := ts.do(t, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadResume_WrongStage(t *testing.T) {
	ts := newTestServer(t, nil)
	id := ts.createSession(t).ID
	require.Equal(t, http.StatusOK, ts.uploadResume(t, id).Code)

	w := ts.uploadResume(t, id)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStartInterview(t *testing.T) {
	ts := newTestServer(t, nil)
	id := ts.createSession(t).ID

	// Before a resume is parsed
	w := ts.startInterview(t, id, `{"level":"Advanced","duration":10,"focus":"Go"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	require.Equal(t, http.StatusOK, ts.uploadResume(t, id).Code)

	w = ts.startInterview(t, id, `{"level":"Guru","duration":10,"focus":"Go"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w), "Level")

	w = ts.startInterview(t, id, `{"level":"Advanced","duration":5,"focus":"Go"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.startInterview(t, id, `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.startInterview(t, id, `{"level":"Advanced","duration":10,"focus":"Go"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeSession(t, w)
	assert.Equal(t, types.StageInterview, resp.Stage)
	assert.Equal(t, types.InterviewConfig{Level: types.LevelAdvanced, Duration: 10, Focus: "Go"}, resp.Config)
}

func TestStartInterview_EmptyBodyUsesDefaults(t *testing.T) {
	ts := newTestServer(t, nil)
	id := ts.createSession(t).ID
	require.Equal(t, http.StatusOK, ts.uploadResume(t, id).Code)

	w := ts.startInterview(t, id, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, types.DefaultInterviewConfig(), decodeSession(t, w).Config)
}

func TestFeedbackFailureAndRetry(t *testing.T) {
	ts := newTestServer(t, nil)
	id := ts.createSession(t).ID
	require.Equal(t, http.StatusOK, ts.uploadResume(t, id).Code)
	require.Equal(t, http.StatusOK, ts.startInterview(t, id, `{"level":"Advanced","duration":10,"focus":"Go"}`).Code)

	// Nothing to retry yet
	w := ts.do(t, httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/feedback", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	sess, err := ts.sessions.get(id)
	require.NoError(t, err)
	transcript := []types.TranscriptionItem{
		{Speaker: types.SpeakerAI, Text: "Tell me about yourself.", Timestamp: 1},
		{Speaker: types.SpeakerUser, Text: "I build backends.", Timestamp: 1},
	}

	ts.llm.setFeedbackErr(errors.New("model overloaded"))
	_, err = ts.completeInterview(t.Context(), sess, transcript)
	require.Error(t, err)

	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/sessions/"+id, nil))
	failed := decodeSession(t, w)
	assert.Equal(t, types.StageInterview, failed.Stage, "failure keeps the interview stage")
	assert.NotEmpty(t, failed.FeedbackError)
	assert.Len(t, failed.Transcript, 2)

	// Retry still failing
	w = ts.do(t, httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/feedback", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)

	ts.llm.setFeedbackErr(nil)
	w = ts.do(t, httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/feedback", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	done := decodeSession(t, w)
	assert.Equal(t, types.StageFeedback, done.Stage)
	require.NotNil(t, done.Feedback)
	assert.Equal(t, 82, done.Feedback.Score)
	assert.Empty(t, done.FeedbackError)
	assert.Equal(t, transcript, done.Transcript)

	// The report was stored once
	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/reports", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list ReportListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "Ada Lovelace", list.Reports[0].CandidateName)
	assert.Equal(t, 82, list.Reports[0].Score)

	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/reports/"+list.Reports[0].ID.String(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Tell me about yourself.")
}

func TestReset(t *testing.T) {
	ts := newTestServer(t, nil)
	id := ts.createSession(t).ID
	require.Equal(t, http.StatusOK, ts.uploadResume(t, id).Code)
	require.Equal(t, http.StatusOK, ts.startInterview(t, id, `{"level":"Expert","duration":30,"focus":"Go"}`).Code)

	w := ts.do(t, httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/reset", nil))
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeSession(t, w)
	assert.Equal(t, types.StageUpload, resp.Stage)
	assert.Nil(t, resp.Resume)
	assert.Nil(t, resp.Feedback)
	assert.Empty(t, resp.Transcript)
	assert.Equal(t, types.DefaultInterviewConfig(), resp.Config)
}

func TestReports_Errors(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, httptest.NewRequest(http.MethodGet, "/reports/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/reports/2b1f9d0e-6a4b-4c1f-9f0a-1c2d3e4f5a6b", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/reports?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/reports?limit=5", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reports":[],"count":0}`, w.Body.String())
}

func TestLive_RequiresConfiguredInterview(t *testing.T) {
	ts := newTestServer(t, nil)
	id := ts.createSession(t).ID

	w := ts.do(t, httptest.NewRequest(http.MethodGet, "/sessions/"+id+"/live", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, &ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/sessions", Method: "POST", Limit: 2, Window: time.Minute, Burst: 2},
		},
	})

	for i := 0; i < 2; i++ {
		w := ts.do(t, httptest.NewRequest(http.MethodPost, "/sessions", nil))
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := ts.do(t, httptest.NewRequest(http.MethodPost, "/sessions", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decodeError(t, w))

	// Health checks are never limited
	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS(t *testing.T) {
	fake := newFakeLLM()
	cfg := config.Defaults()
	cfg.AllowedOrigins = []string{"https://coach.example.com/"}
	s, err := New(Options{Config: &cfg, LLM: fake, Transport: &fakeTransport{}, RateLimit: &ratelimit.Config{}})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	req := httptest.NewRequest(http.MethodOptions, "/sessions", nil)
	req.Header.Set("Origin", "https://coach.example.com")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://coach.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.False(t, s.originAllowed(req))
}

func TestSessionRegistry_Prune(t *testing.T) {
	r := newSessionRegistry()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now.Add(-7 * time.Hour) }
	stale := r.create()
	active := r.create()
	attached := r.create()
	require.NoError(t, attached.attach(interview.NewSession(interview.Options{})))

	// reading a session counts as activity
	r.now = func() time.Time { return now.Add(-time.Hour) }
	_, err := r.get(active.id.String())
	require.NoError(t, err)

	r.now = func() time.Time { return now }
	fresh := r.create()

	assert.Equal(t, 1, r.prune(now.Add(-sessionTTL)))
	assert.Equal(t, 3, r.count())

	_, err = r.get(stale.id.String())
	assert.Error(t, err)
	for _, sess := range []*interviewSession{active, attached, fresh} {
		_, err = r.get(sess.id.String())
		assert.NoError(t, err)
	}
}
