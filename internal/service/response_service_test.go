package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/imsebeom/ai-survey/internal/model"
)

func TestSubmitRequiredQuestions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	survey := &model.Survey{
		Title:     "One question",
		Target:    model.TargetTeacher,
		Mode:      model.ModeClassic,
		Status:    model.StatusPublished,
		Questions: []model.Question{{ID: "q1", Type: model.QuestionText, Question: "Why?", Required: boolPtr(true)}},
	}
	if _, err := env.surveys.Create(ctx, survey); err != nil {
		t.Fatal(err)
	}

	_, err := env.response.Submit(ctx, SubmitInput{SurveyID: survey.ID, Answers: map[string]model.Answer{}})
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "q1") {
		t.Errorf("error should name the missing question: %v", err)
	}

	list, err := env.response.ListBySurvey(ctx, survey.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("rejected submission created %d responses", len(list))
	}
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		input   func(surveyID string) SubmitInput
		wantErr error
	}{
		{
			name:    "missing survey id",
			input:   func(string) SubmitInput { return SubmitInput{Answers: map[string]model.Answer{}} },
			wantErr: model.ErrValidation,
		},
		{
			name:    "missing answers",
			input:   func(id string) SubmitInput { return SubmitInput{SurveyID: id} },
			wantErr: model.ErrValidation,
		},
		{
			name: "unknown survey",
			input: func(string) SubmitInput {
				return SubmitInput{SurveyID: "nope", Answers: map[string]model.Answer{}}
			},
			wantErr: model.ErrNotFound,
		},
		{
			name: "blank required answer",
			input: func(id string) SubmitInput {
				return SubmitInput{SurveyID: id, Answers: map[string]model.Answer{"q1": model.TextAnswer(" "), "q2": model.ListAnswer("X")}}
			},
			wantErr: model.ErrValidation,
		},
		{
			name: "unknown respondent type",
			input: func(id string) SubmitInput {
				return SubmitInput{SurveyID: id, RespondentType: "alumni", Answers: map[string]model.Answer{}}
			},
			wantErr: model.ErrValidation,
		},
		{
			name: "optional question may be skipped",
			input: func(id string) SubmitInput {
				return SubmitInput{SurveyID: id, Answers: map[string]model.Answer{"q1": model.TextAnswer("A"), "q2": model.ListAnswer("X")}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			survey := env.seedSurvey(ctx)

			resp, err := env.response.Submit(ctx, tt.input(survey.ID))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.ID == "" {
				t.Error("expected a response id")
			}
		})
	}
}

func TestSubmitShapesAnswers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	survey := env.seedSurvey(ctx)

	resp, err := env.response.Submit(ctx, SubmitInput{
		SurveyID: survey.ID,
		Answers: map[string]model.Answer{
			"q1": model.ListAnswer("B", "A"),
			"q2": model.TextAnswer("Y"),
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if a := resp.Answers["q1"]; a.IsList() || a.Text() != "B" {
		t.Errorf("single choice should keep the first value, got %+v", a)
	}
	if a := resp.Answers["q2"]; !a.IsList() || a.Text() != "Y" {
		t.Errorf("multiple choice should become a list, got %+v", a)
	}
	if resp.RespondentType != model.TargetStudent {
		t.Errorf("respondent type should default to the survey target, got %q", resp.RespondentType)
	}
}

func TestSubmitNotifiesDashboard(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	survey := env.seedSurvey(ctx)

	for i := 0; i < 2; i++ {
		if _, err := env.response.Submit(ctx, SubmitInput{
			SurveyID: survey.ID,
			Answers:  map[string]model.Answer{"q1": model.TextAnswer("A"), "q2": model.ListAnswer("X")},
		}); err != nil {
			t.Fatal(err)
		}
	}

	if len(env.broadcaster.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(env.broadcaster.events))
	}
	last := env.broadcaster.events[1]
	if last.surveyID != survey.ID || last.msgType != EventResponseSubmitted {
		t.Errorf("unexpected event: %+v", last)
	}
	payload := last.payload.(map[string]interface{})
	if stats := payload["stats"].(*model.SurveyStats); stats.TotalResponses != 2 {
		t.Errorf("event carries stale stats: %d responses", stats.TotalResponses)
	}

	// Resubmitting is not deduplicated
	list, _ := env.response.ListBySurvey(ctx, survey.ID)
	if len(list) != 2 {
		t.Errorf("expected 2 stored responses, got %d", len(list))
	}
}

func TestSubmitStoreFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	survey := env.seedSurvey(ctx)
	env.responses.fail = true

	_, err := env.response.Submit(ctx, SubmitInput{
		SurveyID: survey.ID,
		Answers:  map[string]model.Answer{"q1": model.TextAnswer("A"), "q2": model.ListAnswer("X")},
	})
	if !errors.Is(err, model.ErrUpstream) {
		t.Errorf("expected upstream error, got %v", err)
	}
	if len(env.broadcaster.events) != 0 {
		t.Error("failed submission must not notify dashboards")
	}
}
