package model

import "time"

// ChatRole identifies the speaker of a transcript message
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one line of an interview transcript
type ChatMessage struct {
	Role      ChatRole  `json:"role" bson:"role"`
	Content   string    `json:"content" bson:"content"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// SurveyResponse is created once, at submission, and never mutated
type SurveyResponse struct {
	ID             string            `json:"id" bson:"_id,omitempty"`
	SurveyID       string            `json:"surveyId" bson:"surveyId"` // Weak reference
	RespondentType SurveyTarget      `json:"respondentType" bson:"respondentType"`
	Answers        map[string]Answer `json:"answers" bson:"answers"` // Question ID -> answer
	InterviewLog   []ChatMessage     `json:"interviewLog,omitempty" bson:"interviewLog,omitempty"`
	SubmittedAt    time.Time         `json:"submittedAt" bson:"submittedAt"`
}
