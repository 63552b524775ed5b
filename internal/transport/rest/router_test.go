package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/imsebeom/ai-survey/internal/ai"
	"github.com/imsebeom/ai-survey/internal/cache"
	"github.com/imsebeom/ai-survey/internal/config"
	"github.com/imsebeom/ai-survey/internal/logger"
	"github.com/imsebeom/ai-survey/internal/repository"
	"github.com/imsebeom/ai-survey/internal/service"
	"github.com/imsebeom/ai-survey/internal/transport/ws"
)

// stubGenerator answers draft calls with a fixed survey and interview calls with a fixed line
type stubGenerator struct {
	draft string
}

func (g stubGenerator) Generate(ctx context.Context, task ai.Task, parts ...ai.Part) (string, error) {
	if task == ai.TaskDraft {
		return g.draft, nil
	}
	return "Thanks! Next one.", nil
}

// failingGenerator fails every call with err
type failingGenerator struct {
	err error
}

func (g failingGenerator) Generate(ctx context.Context, task ai.Task, parts ...ai.Part) (string, error) {
	return "", g.err
}

const testDraft = `{"title":"After-school clubs","description":"Club feedback","questions":[
{"id":"q1","type":"single_choice","question":"Do you attend a club?","options":["Yes","No"]},
{"id":"q2","type":"text","question":"Which one?","required":false},
{"id":"q3","type":"text","question":"What would you change?","required":false},
{"id":"q4","type":"long_text","question":"Tell us more","required":false},
{"id":"q5","type":"multiple_choice","question":"Best days?","options":["Mon","Wed","Fri"],"required":false}]}`

func newTestRouter(t *testing.T, gen ai.Generator) http.Handler {
	t.Helper()
	log := logger.Discard()

	surveys := repository.NewMemorySurveyRepo()
	responses := repository.NewMemoryResponseRepo()
	hub := ws.NewHub(log)
	t.Cleanup(hub.Close)

	stats := service.NewStatsService(surveys, responses, cache.NewMemoryStatsCache(time.Minute), log)
	responseSvc := service.NewResponseService(surveys, responses, stats, hub, log)
	surveySvc := service.NewSurveyService(surveys, responses, service.NewDraftService(gen, log), stats, hub, log)
	interviewSvc := service.NewInterviewService(surveys, cache.NewMemorySessionStore(time.Hour), gen, responseSvc,
		service.NewSessionTokens("router-test", time.Hour), log)

	return NewRouter(&Container{
		SurveyService:    surveySvc,
		ResponseService:  responseSvc,
		InterviewService: interviewSvc,
		StatsService:     stats,
		WSHub:            hub,
		Log:              log,
		AllowedOrigins:   "*",
	})
}

type apiResult struct {
	status int
	header http.Header
	body   map[string]interface{}
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}) apiResult {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return serve(t, h, req)
}

func serve(t *testing.T, h http.Handler, req *http.Request) apiResult {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	res := apiResult{status: rec.Code, header: rec.Header()}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &res.body); err != nil {
			t.Fatalf("%s %s: invalid JSON %q", req.Method, req.URL.Path, rec.Body.String())
		}
	}
	return res
}

func generateForm(t *testing.T, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/generate", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// createSurvey drafts a survey through the API and returns its id
func createSurvey(t *testing.T, h http.Handler) string {
	t.Helper()
	res := serve(t, h, generateForm(t, map[string]string{"target": "student", "mode": "interview", "text": "clubs"}))
	if res.status != http.StatusOK {
		t.Fatalf("generate: %d %v", res.status, res.body)
	}
	return res.body["surveyId"].(string)
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t, stubGenerator{draft: testDraft})
	res := doRequest(t, h, http.MethodGet, "/health", nil)
	if res.status != http.StatusOK || res.body["status"] != "ok" {
		t.Errorf("unexpected health response: %d %v", res.status, res.body)
	}
	if res.header.Get("X-Trace-ID") == "" {
		t.Error("missing trace id header")
	}
}

func TestSurveyLifecycle(t *testing.T) {
	h := newTestRouter(t, stubGenerator{draft: testDraft})
	id := createSurvey(t, h)

	res := doRequest(t, h, http.MethodGet, "/api/surveys", nil)
	if surveys := res.body["surveys"].([]interface{}); len(surveys) != 1 {
		t.Fatalf("expected 1 survey, got %d", len(surveys))
	}

	res = doRequest(t, h, http.MethodGet, "/api/surveys/"+id, nil)
	survey := res.body["survey"].(map[string]interface{})
	if survey["status"] != "draft" || len(survey["questions"].([]interface{})) != 5 {
		t.Errorf("unexpected survey: %v", survey)
	}

	res = doRequest(t, h, http.MethodPut, "/api/surveys/"+id, map[string]interface{}{"title": "Clubs 2026"})
	if res.status != http.StatusOK || res.body["success"] != true {
		t.Fatalf("update: %d %v", res.status, res.body)
	}

	res = doRequest(t, h, http.MethodPost, "/api/surveys/"+id+"/publish", nil)
	survey = res.body["survey"].(map[string]interface{})
	if survey["title"] != "Clubs 2026" || survey["status"] != "published" {
		t.Errorf("unexpected published survey: %v", survey)
	}

	res = doRequest(t, h, http.MethodGet, "/api/surveys/"+id+"/stats", nil)
	stats := res.body["stats"].(map[string]interface{})
	if stats["totalResponses"].(float64) != 0 {
		t.Errorf("unexpected stats: %v", stats)
	}

	res = doRequest(t, h, http.MethodDelete, "/api/surveys/"+id, nil)
	if res.status != http.StatusOK {
		t.Fatalf("delete: %d %v", res.status, res.body)
	}

	res = doRequest(t, h, http.MethodGet, "/api/surveys/"+id, nil)
	if res.status != http.StatusNotFound || res.body["success"] != false || res.body["error"] == "" {
		t.Errorf("expected not found envelope, got %d %v", res.status, res.body)
	}
}

func TestGenerateErrors(t *testing.T) {
	disabled, err := ai.New(context.Background(), config.AIConfig{Provider: config.ProviderGemini})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		gen        ai.Generator
		fields     map[string]string
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing mode",
			gen:        stubGenerator{draft: testDraft},
			fields:     map[string]string{"target": "student"},
			wantStatus: http.StatusBadRequest,
			wantError:  "mode is required",
		},
		{
			name:       "unknown target",
			gen:        stubGenerator{draft: testDraft},
			fields:     map[string]string{"target": "alumni", "mode": "classic"},
			wantStatus: http.StatusBadRequest,
			wantError:  "target must be one of",
		},
		{
			name:       "no API key",
			gen:        disabled,
			fields:     map[string]string{"target": "student", "mode": "classic"},
			wantStatus: http.StatusInternalServerError,
			wantError:  "configuration error",
		},
		{
			name:       "unparseable output",
			gen:        stubGenerator{draft: "I would rather not."},
			fields:     map[string]string{"target": "parent", "mode": "classic", "prompt": "short"},
			wantStatus: http.StatusInternalServerError,
			wantError:  "parse error",
		},
		{
			name:       "provider failure",
			gen:        failingGenerator{err: errors.New("quota exceeded for model")},
			fields:     map[string]string{"target": "student", "mode": "classic", "text": "clubs"},
			wantStatus: http.StatusInternalServerError,
			wantError:  "quota exceeded for model",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, tt.gen)
			res := serve(t, h, generateForm(t, tt.fields))
			if res.status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%v)", res.status, tt.wantStatus, res.body)
			}
			if msg, _ := res.body["error"].(string); !strings.Contains(msg, tt.wantError) {
				t.Errorf("error = %q, want it to contain %q", msg, tt.wantError)
			}

			list := doRequest(t, h, http.MethodGet, "/api/surveys", nil)
			if n := len(list.body["surveys"].([]interface{})); n != 0 {
				t.Errorf("failed generation stored %d surveys", n)
			}
		})
	}
}

func TestSubmitAndListResponses(t *testing.T) {
	h := newTestRouter(t, stubGenerator{draft: testDraft})
	id := createSurvey(t, h)

	tests := []struct {
		name       string
		body       map[string]interface{}
		wantStatus int
		wantError  string
	}{
		{name: "missing required answer", body: map[string]interface{}{"surveyId": id, "answers": map[string]interface{}{}},
			wantStatus: http.StatusBadRequest, wantError: "q1"},
		{name: "null answers", body: map[string]interface{}{"surveyId": id, "answers": nil},
			wantStatus: http.StatusBadRequest, wantError: "answers is required"},
		{name: "unknown survey", body: map[string]interface{}{"surveyId": "nope", "answers": map[string]interface{}{}},
			wantStatus: http.StatusNotFound},
		{name: "accepted", body: map[string]interface{}{"surveyId": id, "answers": map[string]interface{}{"q1": "Yes", "q5": []string{"Mon", "Fri"}}},
			wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := doRequest(t, h, http.MethodPost, "/api/submit", tt.body)
			if res.status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%v)", res.status, tt.wantStatus, res.body)
			}
			if msg, _ := res.body["error"].(string); !strings.Contains(msg, tt.wantError) {
				t.Errorf("error = %q, want it to contain %q", msg, tt.wantError)
			}
		})
	}

	res := doRequest(t, h, http.MethodGet, "/api/responses/"+id, nil)
	if res.body["count"].(float64) != 1 {
		t.Fatalf("expected exactly one stored response, got %v", res.body["count"])
	}
	answers := res.body["responses"].([]interface{})[0].(map[string]interface{})["answers"].(map[string]interface{})
	if answers["q1"] != "Yes" || len(answers["q5"].([]interface{})) != 2 {
		t.Errorf("answers lost their shape: %v", answers)
	}
}

func TestInterviewEndpoints(t *testing.T) {
	h := newTestRouter(t, stubGenerator{draft: testDraft})
	id := createSurvey(t, h)

	res := doRequest(t, h, http.MethodPost, "/api/interviews", map[string]interface{}{"surveyId": id})
	if res.status != http.StatusCreated {
		t.Fatalf("start: %d %v", res.status, res.body)
	}
	token := res.body["sessionToken"].(string)
	if !strings.Contains(res.body["message"].(string), "Do you attend a club?") {
		t.Errorf("greeting should ask the first question: %q", res.body["message"])
	}

	res = doRequest(t, h, http.MethodPost, "/api/interviews/"+token+"/submit", nil)
	if res.status != http.StatusBadRequest {
		t.Errorf("early submit: expected 400, got %d", res.status)
	}

	var responseID string
	for i := 1; i <= 5; i++ {
		res = doRequest(t, h, http.MethodPost, "/api/interviews/"+token+"/messages", map[string]string{"message": fmt.Sprintf("answer %d", i)})
		if res.status != http.StatusOK {
			t.Fatalf("turn %d: %d %v", i, res.status, res.body)
		}
		if done := res.body["isCompleted"].(bool); done != (i == 5) {
			t.Fatalf("turn %d: isCompleted = %v", i, done)
		}
	}
	if res.body["submitted"] != true {
		t.Fatalf("completed interview not submitted: %v", res.body)
	}
	responseID = res.body["responseId"].(string)

	res = doRequest(t, h, http.MethodPost, "/api/interviews/"+token+"/submit", nil)
	if res.status != http.StatusOK || res.body["responseId"] != responseID {
		t.Errorf("submit retry should return the same response: %d %v", res.status, res.body)
	}

	res = doRequest(t, h, http.MethodPost, "/api/interviews/"+token+"/messages", map[string]string{"message": "more"})
	if res.status != http.StatusBadRequest {
		t.Errorf("message after completion: expected 400, got %d", res.status)
	}

	res = doRequest(t, h, http.MethodGet, "/api/interviews/"+token, nil)
	session := res.body["session"].(map[string]interface{})
	if session["state"] != "completed" || len(session["transcript"].([]interface{})) != 11 {
		t.Errorf("unexpected session: %v", session)
	}

	res = doRequest(t, h, http.MethodGet, "/api/responses/"+id, nil)
	if res.body["count"].(float64) != 1 {
		t.Errorf("expected one response, got %v", res.body["count"])
	}

	res = doRequest(t, h, http.MethodPost, "/api/interviews/not-a-token/messages", map[string]string{"message": "hi"})
	if res.status != http.StatusUnauthorized {
		t.Errorf("bad token: expected 401, got %d", res.status)
	}
}

func TestChat(t *testing.T) {
	h := newTestRouter(t, stubGenerator{draft: testDraft})
	id := createSurvey(t, h)

	res := doRequest(t, h, http.MethodPost, "/api/chat", map[string]interface{}{
		"surveyId":             id,
		"messages":             []map[string]string{{"role": "user", "content": "Hi"}},
		"currentQuestionIndex": 5,
	})
	if res.status != http.StatusOK {
		t.Fatalf("chat: %d %v", res.status, res.body)
	}
	if res.body["isCompleted"] != true || res.body["nextQuestionIndex"].(float64) != 5 {
		t.Errorf("unexpected chat result: %v", res.body)
	}

	res = doRequest(t, h, http.MethodPost, "/api/chat", map[string]interface{}{"surveyId": id, "currentQuestionIndex": -1})
	if res.status != http.StatusBadRequest {
		t.Errorf("negative index: expected 400, got %d", res.status)
	}
}

func TestCORS(t *testing.T) {
	h := newTestRouter(t, stubGenerator{draft: testDraft})

	req := httptest.NewRequest(http.MethodOptions, "/api/submit", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin = %q", got)
	}
}

func TestCORSAllowList(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := corsMiddleware("https://a.test, https://b.test")(next)

	tests := []struct {
		origin string
		want   string
	}{
		{origin: "https://b.test", want: "https://b.test"},
		{origin: "https://evil.test", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/surveys", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("allow origin = %q, want %q", got, tt.want)
			}
		})
	}
}
