package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/imsebeom/ai-survey/internal/model"
)

// MemorySurveyRepo keeps surveys in process memory. Used with STORAGE_DRIVER=memory and in tests.
type MemorySurveyRepo struct {
	mu   sync.RWMutex
	seq  int
	data map[string]memorySurvey
}

type memorySurvey struct {
	survey model.Survey
	seq    int
}

func NewMemorySurveyRepo() *MemorySurveyRepo {
	return &MemorySurveyRepo{
		data: make(map[string]memorySurvey),
	}
}

func (r *MemorySurveyRepo) Create(ctx context.Context, survey *model.Survey) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	survey.ID = primitive.NewObjectID().Hex()
	survey.CreatedAt = now
	survey.UpdatedAt = now

	r.seq++
	r.data[survey.ID] = memorySurvey{survey: cloneSurvey(*survey), seq: r.seq}
	return survey.ID, nil
}

func (r *MemorySurveyRepo) GetByID(ctx context.Context, id string) (*model.Survey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.data[id]
	if !ok {
		return nil, nil
	}
	s := cloneSurvey(e.survey)
	return &s, nil
}

func (r *MemorySurveyRepo) List(ctx context.Context) ([]*model.Survey, error) {
	r.mu.RLock()
	entries := make([]memorySurvey, 0, len(r.data))
	for _, e := range r.data {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.survey.CreatedAt.Equal(b.survey.CreatedAt) {
			return a.survey.CreatedAt.After(b.survey.CreatedAt)
		}
		return a.seq > b.seq
	})

	surveys := make([]*model.Survey, 0, len(entries))
	for _, e := range entries {
		s := cloneSurvey(e.survey)
		surveys = append(surveys, &s)
	}
	return surveys, nil
}

func (r *MemorySurveyRepo) Update(ctx context.Context, id string, update model.SurveyUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.data[id]
	if !ok {
		return fmt.Errorf("%w: survey %s", model.ErrNotFound, id)
	}

	s := &e.survey
	if update.Title != nil {
		s.Title = *update.Title
	}
	if update.Description != nil {
		s.Description = *update.Description
	}
	if update.Target != nil {
		s.Target = *update.Target
	}
	if update.Mode != nil {
		s.Mode = *update.Mode
	}
	if update.Questions != nil {
		s.Questions = append([]model.Question{}, *update.Questions...)
	}
	if update.Status != nil {
		s.Status = *update.Status
	}
	if update.PublishedAt != nil {
		t := *update.PublishedAt
		s.PublishedAt = &t
	}
	s.UpdatedAt = time.Now()

	r.data[id] = e
	return nil
}

func (r *MemorySurveyRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data[id]; !ok {
		return fmt.Errorf("%w: survey %s", model.ErrNotFound, id)
	}
	delete(r.data, id)
	return nil
}

func cloneSurvey(s model.Survey) model.Survey {
	s.Questions = append([]model.Question{}, s.Questions...)
	return s
}

// MemoryResponseRepo keeps responses in process memory
type MemoryResponseRepo struct {
	mu   sync.RWMutex
	seq  int
	data []memoryResponse
}

type memoryResponse struct {
	response model.SurveyResponse
	seq      int
}

func NewMemoryResponseRepo() *MemoryResponseRepo {
	return &MemoryResponseRepo{}
}

func (r *MemoryResponseRepo) Create(ctx context.Context, response *model.SurveyResponse) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if response.SubmittedAt.IsZero() {
		response.SubmittedAt = time.Now()
	}
	response.ID = primitive.NewObjectID().Hex()

	r.seq++
	r.data = append(r.data, memoryResponse{response: cloneResponse(*response), seq: r.seq})
	return response.ID, nil
}

func (r *MemoryResponseRepo) ListBySurvey(ctx context.Context, surveyID string) ([]*model.SurveyResponse, error) {
	r.mu.RLock()
	var entries []memoryResponse
	for _, e := range r.data {
		if e.response.SurveyID == surveyID {
			entries = append(entries, e)
		}
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.response.SubmittedAt.Equal(b.response.SubmittedAt) {
			return a.response.SubmittedAt.After(b.response.SubmittedAt)
		}
		return a.seq > b.seq
	})

	responses := make([]*model.SurveyResponse, 0, len(entries))
	for _, e := range entries {
		resp := cloneResponse(e.response)
		responses = append(responses, &resp)
	}
	return responses, nil
}

func (r *MemoryResponseRepo) DeleteBySurvey(ctx context.Context, surveyID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.data[:0]
	var deleted int64
	for _, e := range r.data {
		if e.response.SurveyID == surveyID {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.data = kept
	return deleted, nil
}

func cloneResponse(r model.SurveyResponse) model.SurveyResponse {
	answers := make(map[string]model.Answer, len(r.Answers))
	for k, v := range r.Answers {
		answers[k] = v
	}
	r.Answers = answers
	r.InterviewLog = append([]model.ChatMessage(nil), r.InterviewLog...)
	return r
}
