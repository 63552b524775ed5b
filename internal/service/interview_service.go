package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/imsebeom/ai-survey/internal/ai"
	"github.com/imsebeom/ai-survey/internal/cache"
	"github.com/imsebeom/ai-survey/internal/model"
	"github.com/imsebeom/ai-survey/internal/repository"
)

// StartInput opens an interview for a survey
type StartInput struct {
	SurveyID       string
	RespondentType model.SurveyTarget // Defaults to the survey target
}

// StartResult is the greeting of a new interview
type StartResult struct {
	SessionToken   string                  `json:"sessionToken"`
	Message        string                  `json:"message"`
	Session        *model.InterviewSession `json:"session"`
	TotalQuestions int                     `json:"totalQuestions"`
}

// TurnResult is the outcome of one answered question
type TurnResult struct {
	Message           string          `json:"message"`
	IsCompleted       bool            `json:"isCompleted"`
	NextQuestionIndex int             `json:"nextQuestionIndex"`
	CurrentQuestion   *model.Question `json:"currentQuestion"` // Question now awaiting an answer
	TotalQuestions    int             `json:"totalQuestions"`
	Submitted         bool            `json:"submitted"`
	ResponseID        string          `json:"responseId,omitempty"`
	SubmitError       string          `json:"submitError,omitempty"`
}

// ChatTurnInput is a turn where the caller carries the whole state
type ChatTurnInput struct {
	SurveyID             string
	Messages             []model.ChatMessage
	CurrentQuestionIndex int
}

// ChatTurnResult answers a caller-driven turn
type ChatTurnResult struct {
	Message           string          `json:"message"`
	IsCompleted       bool            `json:"isCompleted"`
	NextQuestionIndex int             `json:"nextQuestionIndex"`
	CurrentQuestion   *model.Question `json:"currentQuestion"`
	TotalQuestions    int             `json:"totalQuestions"`
}

const defaultOpening = "Hello"

// InterviewService runs conversational surveys: one question per turn, server-held state
type InterviewService struct {
	surveyRepo repository.SurveyRepo
	sessions   cache.SessionStore
	gen        ai.Generator
	responses  *ResponseService
	tokens     *SessionTokens
	log        logrus.FieldLogger
}

func NewInterviewService(surveyRepo repository.SurveyRepo, sessions cache.SessionStore, gen ai.Generator, responses *ResponseService, tokens *SessionTokens, log logrus.FieldLogger) *InterviewService {
	return &InterviewService{
		surveyRepo: surveyRepo,
		sessions:   sessions,
		gen:        gen,
		responses:  responses,
		tokens:     tokens,
		log:        log,
	}
}

// Start creates a session and greets the respondent with the first question
func (s *InterviewService) Start(ctx context.Context, in StartInput) (*StartResult, error) {
	if err := ai.Ready(s.gen); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.SurveyID) == "" {
		return nil, fmt.Errorf("%w: surveyId is required", model.ErrValidation)
	}
	if in.RespondentType != "" && !in.RespondentType.Valid() {
		return nil, fmt.Errorf("%w: unknown respondent type %q", model.ErrValidation, in.RespondentType)
	}

	survey, err := s.loadSurvey(ctx, in.SurveyID)
	if err != nil {
		return nil, err
	}
	if len(survey.Questions) == 0 {
		return nil, fmt.Errorf("%w: survey %s has no questions", model.ErrValidation, survey.ID)
	}

	respondent := in.RespondentType
	if respondent == "" {
		respondent = survey.Target
	}

	now := time.Now()
	greeting := greetingMessage(survey)
	session := &model.InterviewSession{
		ID:             uuid.NewString(),
		SurveyID:       survey.ID,
		State:          model.InterviewGreeting,
		QuestionCount:  len(survey.Questions),
		Answers:        map[string]model.Answer{},
		Transcript:     []model.ChatMessage{{Role: model.RoleAssistant, Content: greeting, Timestamp: now}},
		RespondentType: respondent,
		StartedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: save session: %w", model.ErrUpstream, err)
	}

	token, err := s.tokens.Issue(session.ID, survey.ID)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	s.log.WithFields(logrus.Fields{"survey_id": survey.ID, "session_id": session.ID}).Info("Interview started")
	return &StartResult{
		SessionToken:   token,
		Message:        greeting,
		Session:        session,
		TotalQuestions: len(survey.Questions),
	}, nil
}

// Reply records the utterance as the answer to the current question and returns
// the interviewer's next message. On an AI failure nothing changes; the
// respondent resends the same answer.
func (s *InterviewService) Reply(ctx context.Context, token, utterance string) (*TurnResult, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil, fmt.Errorf("%w: message is required", model.ErrValidation)
	}

	session, err := s.loadSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.IsCompleted() {
		return nil, fmt.Errorf("%w: interview is already completed", model.ErrValidation)
	}
	if err := ai.Ready(s.gen); err != nil {
		return nil, err
	}

	survey, err := s.loadSurvey(ctx, session.SurveyID)
	if err != nil {
		return nil, err
	}

	i := session.CurrentIndex
	total := len(survey.Questions)
	current := survey.QuestionAt(i)
	next := survey.QuestionAt(i + 1)

	position := i + 2
	if next == nil {
		position = total
	}
	reply, err := s.gen.Generate(ctx, ai.TaskInterview, ai.Text(buildTurnPrompt(survey, position, total, utterance, next)))
	if err != nil {
		return nil, aiErr(err)
	}

	now := time.Now()
	if current != nil {
		session.Answers[current.ID] = answerFor(current, utterance)
	}
	session.Transcript = append(session.Transcript,
		model.ChatMessage{Role: model.RoleUser, Content: utterance, Timestamp: now},
		model.ChatMessage{Role: model.RoleAssistant, Content: reply, Timestamp: now},
	)
	session.CurrentIndex = i + 1
	session.QuestionCount = total
	session.UpdatedAt = now
	if next == nil {
		session.State = model.InterviewCompleted
	} else {
		session.State = model.InterviewAwaitingAnswer
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: save session: %w", model.ErrUpstream, err)
	}

	result := &TurnResult{
		Message:           reply,
		IsCompleted:       session.IsCompleted(),
		NextQuestionIndex: session.CurrentIndex,
		CurrentQuestion:   next,
		TotalQuestions:    total,
	}
	if session.IsCompleted() {
		if err := s.submitSession(ctx, session); err != nil {
			s.log.WithError(err).WithField("session_id", session.ID).Error("Interview completed but submission failed")
			result.SubmitError = err.Error()
		}
		result.Submitted = session.Submitted
		result.ResponseID = session.ResponseID
	}
	return result, nil
}

// Submit retries the submission of a completed interview. A session that has
// already been submitted returns its existing response id.
func (s *InterviewService) Submit(ctx context.Context, token string) (string, error) {
	session, err := s.loadSession(ctx, token)
	if err != nil {
		return "", err
	}
	if !session.IsCompleted() {
		return "", fmt.Errorf("%w: interview is not completed (%d of %d answered)", model.ErrValidation, session.CurrentIndex, session.QuestionCount)
	}
	if session.Submitted {
		return session.ResponseID, nil
	}
	if err := s.submitSession(ctx, session); err != nil {
		return "", err
	}
	return session.ResponseID, nil
}

// Session returns the current state of an interview
func (s *InterviewService) Session(ctx context.Context, token string) (*model.InterviewSession, error) {
	return s.loadSession(ctx, token)
}

// Turn runs one caller-driven turn: the caller sends the index of the question to
// ask and the conversation so far. Nothing is stored.
func (s *InterviewService) Turn(ctx context.Context, in ChatTurnInput) (*ChatTurnResult, error) {
	if err := ai.Ready(s.gen); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.SurveyID) == "" {
		return nil, fmt.Errorf("%w: surveyId is required", model.ErrValidation)
	}
	if in.CurrentQuestionIndex < 0 {
		return nil, fmt.Errorf("%w: currentQuestionIndex must not be negative", model.ErrValidation)
	}

	survey, err := s.loadSurvey(ctx, in.SurveyID)
	if err != nil {
		return nil, err
	}

	idx := in.CurrentQuestionIndex
	total := len(survey.Questions)
	current := survey.QuestionAt(idx)
	completed := idx >= total

	position := idx + 1
	if completed {
		position = total
	}
	reply, err := s.gen.Generate(ctx, ai.TaskInterview, ai.Text(buildTurnPrompt(survey, position, total, lastUserMessage(in.Messages), current)))
	if err != nil {
		return nil, aiErr(err)
	}

	nextIndex := idx + 1
	if completed {
		nextIndex = idx
	}
	return &ChatTurnResult{
		Message:           reply,
		IsCompleted:       completed,
		NextQuestionIndex: nextIndex,
		CurrentQuestion:   current,
		TotalQuestions:    total,
	}, nil
}

func (s *InterviewService) submitSession(ctx context.Context, session *model.InterviewSession) error {
	claimed, err := s.sessions.ClaimSubmission(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("%w: claim submission: %w", model.ErrUpstream, err)
	}
	if !claimed {
		return fmt.Errorf("%w: interview response is already submitted or being submitted", model.ErrValidation)
	}

	response, err := s.responses.Submit(ctx, SubmitInput{
		SurveyID:       session.SurveyID,
		Answers:        session.Answers,
		RespondentType: session.RespondentType,
		InterviewLog:   session.Transcript,
	})
	if err != nil {
		if rerr := s.sessions.ReleaseSubmission(ctx, session.ID); rerr != nil {
			s.log.WithError(rerr).WithField("session_id", session.ID).Warn("Could not release interview submission claim")
		}
		return err
	}

	session.Submitted = true
	session.ResponseID = response.ID
	session.UpdatedAt = time.Now()
	if err := s.sessions.Save(ctx, session); err != nil {
		// The response exists and the claim still blocks a second one
		s.log.WithError(err).WithFields(logrus.Fields{
			"session_id":  session.ID,
			"response_id": response.ID,
		}).Warn("Could not mark interview session as submitted")
	}
	return nil
}

func (s *InterviewService) loadSession(ctx context.Context, token string) (*model.InterviewSession, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	session, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: load session: %w", model.ErrUpstream, err)
	}
	if session == nil || session.SurveyID != claims.SurveyID {
		return nil, model.ErrInvalidSession
	}
	if session.Answers == nil {
		session.Answers = map[string]model.Answer{}
	}
	return session, nil
}

func (s *InterviewService) loadSurvey(ctx context.Context, id string) (*model.Survey, error) {
	survey, err := s.surveyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if survey == nil {
		return nil, notFound(id)
	}
	return survey, nil
}

// answerFor stores an utterance that names options as the canonical options,
// and anything else verbatim
func answerFor(q *model.Question, utterance string) model.Answer {
	switch q.Type {
	case model.QuestionSingleChoice:
		if opt, ok := q.MatchOption(utterance); ok {
			return model.TextAnswer(opt)
		}
		return model.TextAnswer(utterance)
	case model.QuestionMultipleChoice:
		if opt, ok := q.MatchOption(utterance); ok {
			return model.ListAnswer(opt)
		}
		var picked []string
		for _, part := range strings.Split(utterance, ",") {
			opt, ok := q.MatchOption(part)
			if !ok {
				return model.ListAnswer(utterance)
			}
			picked = append(picked, opt)
		}
		return model.ListAnswer(picked...)
	default:
		return model.TextAnswer(utterance)
	}
}

func lastUserMessage(messages []model.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleUser && strings.TrimSpace(messages[i].Content) != "" {
			return messages[i].Content
		}
	}
	return defaultOpening
}
