package model

import "time"

// SurveyTarget is the audience a survey is written for
type SurveyTarget string

const (
	TargetStudent SurveyTarget = "student"
	TargetTeacher SurveyTarget = "teacher"
	TargetParent  SurveyTarget = "parent"
)

// Valid reports whether t is one of the known audiences
func (t SurveyTarget) Valid() bool {
	switch t {
	case TargetStudent, TargetTeacher, TargetParent:
		return true
	}
	return false
}

// SurveyMode selects how respondents see the questions
type SurveyMode string

const (
	ModeClassic   SurveyMode = "classic"   // Static form
	ModeInterview SurveyMode = "interview" // Turn-by-turn chat
)

func (m SurveyMode) Valid() bool {
	return m == ModeClassic || m == ModeInterview
}

// SurveyStatus is the lifecycle state of a survey
type SurveyStatus string

const (
	StatusDraft     SurveyStatus = "draft"
	StatusPublished SurveyStatus = "published"
)

func (s SurveyStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// Survey is a persistent questionnaire drafted by the AI and edited by its creator
type Survey struct {
	ID           string       `json:"id" bson:"_id,omitempty"`
	Title        string       `json:"title" bson:"title"`
	Description  string       `json:"description,omitempty" bson:"description,omitempty"`
	Target       SurveyTarget `json:"target" bson:"target"`
	Mode         SurveyMode   `json:"mode" bson:"mode"`
	Questions    []Question   `json:"questions" bson:"questions"` // Order is significant
	SourcePrompt string       `json:"sourcePrompt,omitempty" bson:"sourcePrompt,omitempty"`
	SourceText   string       `json:"sourceText,omitempty" bson:"sourceText,omitempty"`
	Status       SurveyStatus `json:"status" bson:"status"`
	CreatedAt    time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt" bson:"updatedAt"`
	PublishedAt  *time.Time   `json:"publishedAt,omitempty" bson:"publishedAt,omitempty"`
}

// QuestionAt returns the question at index i, or nil when i is out of range
func (s *Survey) QuestionAt(i int) *Question {
	if i < 0 || i >= len(s.Questions) {
		return nil
	}
	return &s.Questions[i]
}

// SurveyUpdate carries the fields of a partial update; nil fields are left untouched
type SurveyUpdate struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Target      *SurveyTarget `json:"target,omitempty"`
	Mode        *SurveyMode   `json:"mode,omitempty"`
	Questions   *[]Question   `json:"questions,omitempty"`
	Status      *SurveyStatus `json:"status,omitempty"`
	PublishedAt *time.Time    `json:"-"`
}

// IsEmpty reports whether the update changes nothing
func (u SurveyUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Target == nil &&
		u.Mode == nil && u.Questions == nil && u.Status == nil && u.PublishedAt == nil
}

// GeneratedSurvey is the structured draft parsed from the AI output
type GeneratedSurvey struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
}
