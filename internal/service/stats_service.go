package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/imsebeom/ai-survey/internal/cache"
	"github.com/imsebeom/ai-survey/internal/model"
	"github.com/imsebeom/ai-survey/internal/repository"
)

// Aggregate tallies every question of the survey over its responses. It is pure:
// the same input always yields the same output.
func Aggregate(survey *model.Survey, responses []*model.SurveyResponse) []model.QuestionStats {
	stats := make([]model.QuestionStats, 0, len(survey.Questions))
	for i := range survey.Questions {
		q := &survey.Questions[i]
		qs := model.QuestionStats{
			QuestionID:   q.ID,
			QuestionText: q.Question,
			Type:         q.Type,
		}
		if q.Type.IsChoice() {
			qs.Options = tallyOptions(q, responses)
		} else {
			qs.TextResponses = collectText(q, responses)
		}
		stats = append(stats, qs)
	}
	return stats
}

func tallyOptions(q *model.Question, responses []*model.SurveyResponse) []model.OptionStat {
	counts := make([]int, len(q.Options))
	index := make(map[string]int, len(q.Options))
	for i, opt := range q.Options {
		if _, dup := index[opt]; !dup {
			index[opt] = i
		}
	}

	selections := 0
	for _, r := range responses {
		answer, ok := r.Answers[q.ID]
		if !ok {
			continue
		}
		for _, v := range answer.Values() {
			// Unknown options are ignored
			if i, ok := index[v]; ok {
				counts[i]++
				selections++
			}
		}
	}

	denominator := len(responses)
	if q.Type == model.QuestionMultipleChoice {
		denominator = selections
	}

	out := make([]model.OptionStat, 0, len(q.Options))
	for i, opt := range q.Options {
		out = append(out, model.OptionStat{
			Option:     opt,
			Count:      counts[i],
			Percentage: percent(counts[i], denominator),
		})
	}
	return out
}

// percent rounds half up; a zero denominator yields 0
func percent(count, denominator int) int {
	if denominator <= 0 {
		return 0
	}
	return (count*200 + denominator) / (2 * denominator)
}

func collectText(q *model.Question, responses []*model.SurveyResponse) []string {
	texts := []string{}
	for _, r := range responses {
		answer, ok := r.Answers[q.ID]
		if !ok {
			continue
		}
		if text := answer.Text(); strings.TrimSpace(text) != "" {
			texts = append(texts, text)
		}
	}
	return texts
}

// StatsService builds dashboard stats and caches them until the next submission
type StatsService struct {
	surveyRepo   repository.SurveyRepo
	responseRepo repository.ResponseRepository
	cache        cache.StatsCache
	log          logrus.FieldLogger
}

func NewStatsService(surveyRepo repository.SurveyRepo, responseRepo repository.ResponseRepository, statsCache cache.StatsCache, log logrus.FieldLogger) *StatsService {
	return &StatsService{
		surveyRepo:   surveyRepo,
		responseRepo: responseRepo,
		cache:        statsCache,
		log:          log,
	}
}

// Get returns the stats of a survey, from cache when possible
func (s *StatsService) Get(ctx context.Context, surveyID string) (*model.SurveyStats, error) {
	if cached, err := s.cache.Get(ctx, surveyID); err != nil {
		s.log.WithError(err).WithField("survey_id", surveyID).Warn("Stats cache read failed")
	} else if cached != nil {
		return cached, nil
	}

	// read before loading; an Invalidate in between turns Set into a no-op
	generation, genErr := s.cache.Generation(ctx, surveyID)
	if genErr != nil {
		s.log.WithError(genErr).WithField("survey_id", surveyID).Warn("Stats cache read failed")
	}

	survey, err := s.surveyRepo.GetByID(ctx, surveyID)
	if err != nil {
		return nil, storeErr(err)
	}
	if survey == nil {
		return nil, notFound(surveyID)
	}

	responses, err := s.responseRepo.ListBySurvey(ctx, surveyID)
	if err != nil {
		return nil, storeErr(err)
	}

	stats := Compute(survey, responses)
	if genErr == nil {
		if err := s.cache.Set(ctx, stats, generation); err != nil {
			s.log.WithError(err).WithField("survey_id", surveyID).Warn("Stats cache write failed")
		}
	}
	return stats, nil
}

// Invalidate drops the cached stats of a survey
func (s *StatsService) Invalidate(ctx context.Context, surveyID string) {
	if err := s.cache.Invalidate(ctx, surveyID); err != nil {
		s.log.WithError(err).WithField("survey_id", surveyID).Warn("Stats cache invalidation failed")
	}
}

// Compute builds the full dashboard view from already-fetched data
func Compute(survey *model.Survey, responses []*model.SurveyResponse) *model.SurveyStats {
	breakdown := make(map[model.SurveyTarget]int)
	for _, r := range responses {
		breakdown[r.RespondentType]++
	}
	return &model.SurveyStats{
		SurveyID:            survey.ID,
		TotalResponses:      len(responses),
		QuestionCount:       len(survey.Questions),
		RespondentBreakdown: breakdown,
		Questions:           Aggregate(survey, responses),
		GeneratedAt:         time.Now(),
	}
}
