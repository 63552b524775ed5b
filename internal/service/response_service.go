package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/imsebeom/ai-survey/internal/model"
	"github.com/imsebeom/ai-survey/internal/repository"
)

// SubmitInput is one completed response, from the form or from an interview
type SubmitInput struct {
	SurveyID       string
	Answers        map[string]model.Answer
	RespondentType model.SurveyTarget // Defaults to the survey target
	InterviewLog   []model.ChatMessage
}

// ResponseService collects responses and notifies dashboards
type ResponseService struct {
	surveyRepo   repository.SurveyRepo
	responseRepo repository.ResponseRepository
	stats        *StatsService
	broadcaster  Broadcaster
	log          logrus.FieldLogger
}

func NewResponseService(surveyRepo repository.SurveyRepo, responseRepo repository.ResponseRepository, stats *StatsService, broadcaster Broadcaster, log logrus.FieldLogger) *ResponseService {
	if broadcaster == nil {
		broadcaster = noopBroadcaster{}
	}
	return &ResponseService{
		surveyRepo:   surveyRepo,
		responseRepo: responseRepo,
		stats:        stats,
		broadcaster:  broadcaster,
		log:          log,
	}
}

// Submit stores a response after checking that every required question is answered.
// A rejected submission stores nothing. Every accepted call creates a new document.
func (s *ResponseService) Submit(ctx context.Context, in SubmitInput) (*model.SurveyResponse, error) {
	if strings.TrimSpace(in.SurveyID) == "" {
		return nil, fmt.Errorf("%w: surveyId is required", model.ErrValidation)
	}
	if in.Answers == nil {
		return nil, fmt.Errorf("%w: answers are required", model.ErrValidation)
	}
	if in.RespondentType != "" && !in.RespondentType.Valid() {
		return nil, fmt.Errorf("%w: unknown respondent type %q", model.ErrValidation, in.RespondentType)
	}

	survey, err := s.surveyRepo.GetByID(ctx, in.SurveyID)
	if err != nil {
		return nil, storeErr(err)
	}
	if survey == nil {
		return nil, notFound(in.SurveyID)
	}

	answers := shapeAnswers(survey, in.Answers)
	if missing := missingRequired(survey, answers); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing answers for required questions: %s", model.ErrValidation, strings.Join(missing, ", "))
	}

	respondent := in.RespondentType
	if respondent == "" {
		respondent = survey.Target
	}

	response := &model.SurveyResponse{
		SurveyID:       survey.ID,
		RespondentType: respondent,
		Answers:        answers,
		InterviewLog:   in.InterviewLog,
	}
	if _, err := s.responseRepo.Create(ctx, response); err != nil {
		return nil, fmt.Errorf("%w: save response: %w", model.ErrUpstream, err)
	}

	s.log.WithFields(logrus.Fields{
		"survey_id":   survey.ID,
		"response_id": response.ID,
		"respondent":  respondent,
		"interview":   len(in.InterviewLog) > 0,
	}).Info("Response submitted")

	s.notify(ctx, response)
	return response, nil
}

// ListBySurvey returns the responses of a survey, newest first
func (s *ResponseService) ListBySurvey(ctx context.Context, surveyID string) ([]*model.SurveyResponse, error) {
	if strings.TrimSpace(surveyID) == "" {
		return nil, fmt.Errorf("%w: surveyId is required", model.ErrValidation)
	}
	responses, err := s.responseRepo.ListBySurvey(ctx, surveyID)
	if err != nil {
		return nil, storeErr(err)
	}
	return responses, nil
}

// notify refreshes the survey's stats and pushes them to dashboards. Failures
// here never affect the stored response.
func (s *ResponseService) notify(ctx context.Context, response *model.SurveyResponse) {
	if s.stats == nil {
		return
	}
	s.stats.Invalidate(ctx, response.SurveyID)

	stats, err := s.stats.Get(ctx, response.SurveyID)
	if err != nil {
		s.log.WithError(err).WithField("survey_id", response.SurveyID).Warn("Could not refresh stats after submission")
		return
	}
	s.broadcaster.BroadcastToSurvey(response.SurveyID, EventResponseSubmitted, map[string]interface{}{
		"responseId": response.ID,
		"stats":      stats,
	})
}

// shapeAnswers fits choice answers to their question type: multiple choice is
// always a list, single choice always one string
func shapeAnswers(survey *model.Survey, answers map[string]model.Answer) map[string]model.Answer {
	shaped := make(map[string]model.Answer, len(answers))
	for id, a := range answers {
		shaped[id] = a
	}

	for _, q := range survey.Questions {
		a, ok := shaped[q.ID]
		if !ok {
			continue
		}
		switch q.Type {
		case model.QuestionMultipleChoice:
			if !a.IsList() {
				if a.IsEmpty() {
					shaped[q.ID] = model.ListAnswer()
				} else {
					shaped[q.ID] = model.ListAnswer(a.Text())
				}
			}
		case model.QuestionSingleChoice:
			if a.IsList() {
				first := ""
				if values := a.Values(); len(values) > 0 {
					first = values[0]
				}
				shaped[q.ID] = model.TextAnswer(first)
			}
		}
	}
	return shaped
}

func missingRequired(survey *model.Survey, answers map[string]model.Answer) []string {
	var missing []string
	for _, q := range survey.Questions {
		if !q.IsRequired() {
			continue
		}
		if a, ok := answers[q.ID]; !ok || a.IsEmpty() {
			missing = append(missing, q.ID)
		}
	}
	return missing
}
