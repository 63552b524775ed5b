package model

// QuestionType defines the type of question
type QuestionType string

const (
	QuestionSingleChoice   QuestionType = "single_choice"   // Pick one option
	QuestionMultipleChoice QuestionType = "multiple_choice" // Pick any number of options
	QuestionText           QuestionType = "text"            // Short free text
	QuestionLongText       QuestionType = "long_text"       // Paragraph free text
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionSingleChoice, QuestionMultipleChoice, QuestionText, QuestionLongText:
		return true
	}
	return false
}

// IsChoice reports whether answers are picked from Options
func (t QuestionType) IsChoice() bool {
	return t == QuestionSingleChoice || t == QuestionMultipleChoice
}

// Question is one item of a survey. ID is unique within its survey only.
type Question struct {
	ID       string       `json:"id" bson:"id"`
	Type     QuestionType `json:"type" bson:"type"`
	Question string       `json:"question" bson:"question"`
	Options  []string     `json:"options,omitempty" bson:"options,omitempty"` // Choice types only
	Required *bool        `json:"required,omitempty" bson:"required,omitempty"`
}

// IsRequired treats an unset flag as optional
func (q Question) IsRequired() bool {
	return q.Required != nil && *q.Required
}

// MatchOption returns the canonical option equal to s, ignoring case and surrounding space
func (q Question) MatchOption(s string) (string, bool) {
	s = normalizeOption(s)
	for _, opt := range q.Options {
		if normalizeOption(opt) == s {
			return opt, true
		}
	}
	return "", false
}
