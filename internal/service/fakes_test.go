package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/imsebeom/ai-survey/internal/ai"
	"github.com/imsebeom/ai-survey/internal/cache"
	"github.com/imsebeom/ai-survey/internal/logger"
	"github.com/imsebeom/ai-survey/internal/model"
	"github.com/imsebeom/ai-survey/internal/repository"
)

// scriptedGenerator returns its replies in order, then repeats the last one
type scriptedGenerator struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, task ai.Task, parts ...ai.Part) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var prompt []string
	for _, p := range parts {
		prompt = append(prompt, p.Text)
	}
	g.calls = append(g.calls, strings.Join(prompt, "\n"))

	if g.err != nil {
		return "", g.err
	}
	if len(g.replies) == 0 {
		return "ok", nil
	}
	reply := g.replies[0]
	if len(g.replies) > 1 {
		g.replies = g.replies[1:]
	}
	return reply, nil
}

type recordedEvent struct {
	surveyID string
	msgType  string
	payload  interface{}
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *recordingBroadcaster) BroadcastToSurvey(surveyID, msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{surveyID: surveyID, msgType: msgType, payload: payload})
}

// failingResponses rejects every write
type failingResponses struct {
	repository.ResponseRepository
	fail bool
}

func (f *failingResponses) Create(ctx context.Context, r *model.SurveyResponse) (string, error) {
	if f.fail {
		return "", errors.New("connection reset")
	}
	return f.ResponseRepository.Create(ctx, r)
}

type testEnv struct {
	surveys     *repository.MemorySurveyRepo
	responses   *failingResponses
	gen         *scriptedGenerator
	broadcaster *recordingBroadcaster
	stats       *StatsService
	response    *ResponseService
	survey      *SurveyService
	interview   *InterviewService
}

func newTestEnv() *testEnv {
	log := logger.Discard()
	env := &testEnv{
		surveys:     repository.NewMemorySurveyRepo(),
		responses:   &failingResponses{ResponseRepository: repository.NewMemoryResponseRepo()},
		gen:         &scriptedGenerator{},
		broadcaster: &recordingBroadcaster{},
	}
	env.stats = NewStatsService(env.surveys, env.responses, cache.NewMemoryStatsCache(time.Minute), log)
	env.response = NewResponseService(env.surveys, env.responses, env.stats, env.broadcaster, log)
	env.survey = NewSurveyService(env.surveys, env.responses, NewDraftService(env.gen, log), env.stats, env.broadcaster, log)
	env.interview = NewInterviewService(env.surveys, cache.NewMemorySessionStore(time.Hour), env.gen, env.response,
		NewSessionTokens("test-secret", time.Hour), log)
	return env
}

func boolPtr(b bool) *bool {
	return &b
}

// seedSurvey stores a published survey with two single choice questions and one text question
func (e *testEnv) seedSurvey(ctx context.Context) *model.Survey {
	survey := &model.Survey{
		Title:  "School lunch",
		Target: model.TargetStudent,
		Mode:   model.ModeInterview,
		Status: model.StatusPublished,
		Questions: []model.Question{
			{ID: "q1", Type: model.QuestionSingleChoice, Question: "How is lunch?", Options: []string{"A", "B"}, Required: boolPtr(true)},
			{ID: "q2", Type: model.QuestionMultipleChoice, Question: "Favorite menus?", Options: []string{"X", "Y"}, Required: boolPtr(true)},
			{ID: "q3", Type: model.QuestionText, Question: "Anything else?", Required: boolPtr(false)},
		},
	}
	if _, err := e.surveys.Create(ctx, survey); err != nil {
		panic(err)
	}
	return survey
}
