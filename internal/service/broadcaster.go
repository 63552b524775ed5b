package service

// Broadcaster pushes events to live dashboard subscribers (avoids import cycle with ws)
type Broadcaster interface {
	BroadcastToSurvey(surveyID string, msgType string, payload interface{})
}

// Dashboard event types
const (
	EventResponseSubmitted = "response_submitted"
	EventSurveyDeleted     = "survey_deleted"
)

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastToSurvey(string, string, interface{}) {}
