package model

import "time"

// OptionStat is the tally of one option of a choice question
type OptionStat struct {
	Option     string `json:"option"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"` // Rounded to the nearest integer
}

// QuestionStats aggregates the answers given to one question
type QuestionStats struct {
	QuestionID    string       `json:"questionId"`
	QuestionText  string       `json:"questionText"`
	Type          QuestionType `json:"type"`
	Options       []OptionStat `json:"options,omitempty"`       // Choice types
	TextResponses []string     `json:"textResponses,omitempty"` // Text types
}

// SurveyStats is the dashboard view of a survey's responses
type SurveyStats struct {
	SurveyID            string               `json:"surveyId"`
	TotalResponses      int                  `json:"totalResponses"`
	QuestionCount       int                  `json:"questionCount"`
	RespondentBreakdown map[SurveyTarget]int `json:"respondentBreakdown"`
	Questions           []QuestionStats      `json:"questions"`
	GeneratedAt         time.Time            `json:"generatedAt"`
}
