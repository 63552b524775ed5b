package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/imsebeom/ai-survey/internal/model"
	"github.com/imsebeom/ai-survey/internal/repository"
)

// SurveyService handles the survey lifecycle: draft, edit, publish, delete
type SurveyService struct {
	surveyRepo   repository.SurveyRepo
	responseRepo repository.ResponseRepository
	drafts       *DraftService
	stats        *StatsService
	broadcaster  Broadcaster
	log          logrus.FieldLogger
}

// NewSurveyService creates a new survey service
func NewSurveyService(surveyRepo repository.SurveyRepo, responseRepo repository.ResponseRepository, drafts *DraftService, stats *StatsService, broadcaster Broadcaster, log logrus.FieldLogger) *SurveyService {
	if broadcaster == nil {
		broadcaster = noopBroadcaster{}
	}
	return &SurveyService{
		surveyRepo:   surveyRepo,
		responseRepo: responseRepo,
		drafts:       drafts,
		stats:        stats,
		broadcaster:  broadcaster,
		log:          log,
	}
}

// CreateFromDraft generates a draft and stores it. Nothing is stored when generation fails.
func (s *SurveyService) CreateFromDraft(ctx context.Context, in DraftInput) (*model.Survey, error) {
	draft, err := s.drafts.Generate(ctx, in)
	if err != nil {
		return nil, err
	}

	survey := &model.Survey{
		Title:        draft.Title,
		Description:  draft.Description,
		Target:       in.Target,
		Mode:         in.Mode,
		Questions:    draft.Questions,
		SourcePrompt: in.ExtraInstructions,
		SourceText:   in.FreeText,
		Status:       model.StatusDraft,
	}
	if _, err := s.surveyRepo.Create(ctx, survey); err != nil {
		return nil, fmt.Errorf("%w: save survey: %w", model.ErrUpstream, err)
	}

	s.log.WithFields(logrus.Fields{
		"survey_id": survey.ID,
		"questions": len(survey.Questions),
		"target":    survey.Target,
		"mode":      survey.Mode,
	}).Info("Survey drafted")
	return survey, nil
}

// Get returns the survey or ErrNotFound
func (s *SurveyService) Get(ctx context.Context, id string) (*model.Survey, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: survey id is required", model.ErrValidation)
	}
	survey, err := s.surveyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if survey == nil {
		return nil, notFound(id)
	}
	return survey, nil
}

// List returns every survey, newest first
func (s *SurveyService) List(ctx context.Context) ([]*model.Survey, error) {
	surveys, err := s.surveyRepo.List(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	return surveys, nil
}

// Update applies a partial update. Only the provided fields change.
func (s *SurveyService) Update(ctx context.Context, id string, update model.SurveyUpdate) error {
	if err := validateUpdate(update); err != nil {
		return err
	}
	if update.Status != nil && *update.Status == model.StatusPublished && update.PublishedAt == nil {
		now := time.Now()
		update.PublishedAt = &now
	}
	if err := s.surveyRepo.Update(ctx, id, update); err != nil {
		return storeErr(err)
	}
	if update.Questions != nil {
		s.stats.Invalidate(ctx, id)
	}
	return nil
}

// Publish marks the survey as collecting responses
func (s *SurveyService) Publish(ctx context.Context, id string) (*model.Survey, error) {
	status := model.StatusPublished
	now := time.Now()
	if err := s.surveyRepo.Update(ctx, id, model.SurveyUpdate{Status: &status, PublishedAt: &now}); err != nil {
		return nil, storeErr(err)
	}

	s.log.WithField("survey_id", id).Info("Survey published")
	return s.Get(ctx, id)
}

// Delete removes the survey's responses, then the survey
func (s *SurveyService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	deleted, err := s.responseRepo.DeleteBySurvey(ctx, id)
	if err != nil {
		return storeErr(err)
	}
	if err := s.surveyRepo.Delete(ctx, id); err != nil {
		return storeErr(err)
	}
	s.stats.Invalidate(ctx, id)

	s.broadcaster.BroadcastToSurvey(id, EventSurveyDeleted, map[string]string{"surveyId": id})
	s.log.WithFields(logrus.Fields{"survey_id": id, "responses": deleted}).Info("Survey deleted")
	return nil
}

func validateUpdate(u model.SurveyUpdate) error {
	if u.IsEmpty() {
		return fmt.Errorf("%w: no fields to update", model.ErrValidation)
	}
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", model.ErrValidation)
	}
	if u.Target != nil && !u.Target.Valid() {
		return fmt.Errorf("%w: unknown target %q", model.ErrValidation, *u.Target)
	}
	if u.Mode != nil && !u.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", model.ErrValidation, *u.Mode)
	}
	if u.Status != nil && !u.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", model.ErrValidation, *u.Status)
	}
	if u.Questions != nil {
		seen := make(map[string]bool, len(*u.Questions))
		for i, q := range *u.Questions {
			if strings.TrimSpace(q.ID) == "" {
				return fmt.Errorf("%w: question %d has no id", model.ErrValidation, i)
			}
			if seen[q.ID] {
				return fmt.Errorf("%w: duplicate question id %q", model.ErrValidation, q.ID)
			}
			seen[q.ID] = true
			if !q.Type.Valid() {
				return fmt.Errorf("%w: question %s has unknown type %q", model.ErrValidation, q.ID, q.Type)
			}
		}
	}
	return nil
}
