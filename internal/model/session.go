package model

import "time"

// InterviewState is the progression state of a conversational session
type InterviewState string

const (
	InterviewGreeting       InterviewState = "greeting"        // Nothing answered yet
	InterviewAwaitingAnswer InterviewState = "awaiting_answer" // Waiting for the answer to CurrentIndex
	InterviewCompleted      InterviewState = "completed"
)

// InterviewSession is the server-held state of one interview. It lives in the
// session store only; the document store sees the final SurveyResponse.
type InterviewSession struct {
	ID             string            `json:"id"`
	SurveyID       string            `json:"surveyId"`
	State          InterviewState    `json:"state"`
	CurrentIndex   int               `json:"currentIndex"`
	QuestionCount  int               `json:"questionCount"`
	Answers        map[string]Answer `json:"answers"`
	Transcript     []ChatMessage     `json:"transcript"`
	RespondentType SurveyTarget      `json:"respondentType"`
	Submitted      bool              `json:"submitted"`
	ResponseID     string            `json:"responseId,omitempty"`
	StartedAt      time.Time         `json:"startedAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// IsCompleted reports whether every question has been answered
func (s *InterviewSession) IsCompleted() bool {
	return s.State == InterviewCompleted
}
