package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/imsebeom/ai-survey/internal/ai"
	"github.com/imsebeom/ai-survey/internal/model"
)

const (
	minDraftQuestions = 5
	maxDraftQuestions = 10
)

// ImageInput is an uploaded image the draft is based on
type ImageInput struct {
	MIMEType string
	Data     []byte
}

// DraftInput describes what the AI should draft a survey from
type DraftInput struct {
	Target            model.SurveyTarget
	Mode              model.SurveyMode
	FreeText          string
	ExtraInstructions string
	Image             *ImageInput
}

// DraftService turns a topic description into a structured survey draft
type DraftService struct {
	gen ai.Generator
	log logrus.FieldLogger
}

func NewDraftService(gen ai.Generator, log logrus.FieldLogger) *DraftService {
	return &DraftService{
		gen: gen,
		log: log,
	}
}

// Generate asks the AI for a draft. It never returns a partial draft: the result
// is either a normalized draft with 5 to 10 questions, or an error.
func (s *DraftService) Generate(ctx context.Context, in DraftInput) (*model.GeneratedSurvey, error) {
	if err := ai.Ready(s.gen); err != nil {
		return nil, err
	}
	if !in.Target.Valid() {
		return nil, fmt.Errorf("%w: unknown target %q", model.ErrValidation, in.Target)
	}
	if !in.Mode.Valid() {
		return nil, fmt.Errorf("%w: unknown mode %q", model.ErrValidation, in.Mode)
	}

	raw, err := s.gen.Generate(ctx, ai.TaskDraft, buildDraftPrompt(in)...)
	if err != nil {
		return nil, aiErr(err)
	}

	draft, err := parseDraft(raw)
	if err != nil {
		s.log.WithError(err).WithField("output_len", len(raw)).Warn("AI draft could not be parsed")
		return nil, err
	}
	return draft, nil
}

// parseDraft decodes the first JSON object in the AI output and normalizes it
func parseDraft(raw string) (*model.GeneratedSurvey, error) {
	span, ok := extractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in AI output", model.ErrParse)
	}

	var draft model.GeneratedSurvey
	if err := json.Unmarshal([]byte(span), &draft); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrParse, err)
	}
	if err := normalizeDraft(&draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

func normalizeDraft(d *model.GeneratedSurvey) error {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return fmt.Errorf("%w: draft has no title", model.ErrParse)
	}
	if n := len(d.Questions); n < minDraftQuestions || n > maxDraftQuestions {
		return fmt.Errorf("%w: draft has %d questions, want %d-%d", model.ErrParse, n, minDraftQuestions, maxDraftQuestions)
	}

	assignQuestionIDs(d.Questions)
	for i := range d.Questions {
		q := &d.Questions[i]
		if !q.Type.Valid() {
			return fmt.Errorf("%w: question %s has unknown type %q", model.ErrParse, q.ID, q.Type)
		}
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("%w: question %s has no text", model.ErrParse, q.ID)
		}
		if !q.Type.IsChoice() {
			q.Options = nil
		}
		if q.Required == nil {
			required := true
			q.Required = &required
		}
	}
	return nil
}

// assignQuestionIDs keeps the first use of every given id and gives missing or
// repeated ids q<index+1>, or the next free q<n> when that one is taken
func assignQuestionIDs(questions []model.Question) {
	taken := make(map[string]bool, len(questions))
	pending := make([]int, 0, len(questions))
	for i := range questions {
		id := strings.TrimSpace(questions[i].ID)
		if id == "" || taken[id] {
			pending = append(pending, i)
			continue
		}
		questions[i].ID = id
		taken[id] = true
	}

	next := 1
	for _, i := range pending {
		id := fmt.Sprintf("q%d", i+1)
		for taken[id] {
			id = fmt.Sprintf("q%d", next)
			next++
		}
		questions[i].ID = id
		taken[id] = true
	}
}

// extractJSON returns the first balanced {...} span, skipping braces inside strings
func extractJSON(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}
		if char == '\\' && inString {
			escaped = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch char {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// aiErr classifies a generator failure. Configuration errors pass through unchanged.
func aiErr(err error) error {
	if errors.Is(err, model.ErrConfiguration) {
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrUpstream, err)
}
