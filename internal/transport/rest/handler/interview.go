package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/imsebeom/ai-survey/internal/model"
	"github.com/imsebeom/ai-survey/internal/service"
)

// InterviewHandler handles conversational survey endpoints
type InterviewHandler struct {
	interviewSvc *service.InterviewService
	log          logrus.FieldLogger
}

// NewInterviewHandler creates a new interview handler
func NewInterviewHandler(interviewSvc *service.InterviewService, log logrus.FieldLogger) *InterviewHandler {
	return &InterviewHandler{interviewSvc: interviewSvc, log: log}
}

// ChatRequest is a caller-driven turn; the client keeps the conversation
type ChatRequest struct {
	SurveyID             string              `json:"surveyId" validate:"required"`
	Messages             []model.ChatMessage `json:"messages"`
	CurrentQuestionIndex int                 `json:"currentQuestionIndex" validate:"min=0"`
}

// StartInterviewRequest opens a server-held interview
type StartInterviewRequest struct {
	SurveyID       string `json:"surveyId" validate:"required"`
	RespondentType string `json:"respondentType" validate:"omitempty,oneof=student teacher parent"`
}

// ReplyRequest carries one respondent utterance
type ReplyRequest struct {
	Message string `json:"message" validate:"required"`
}

// Chat handles POST /api/chat
func (h *InterviewHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	result, err := h.interviewSvc.Turn(r.Context(), service.ChatTurnInput{
		SurveyID:             req.SurveyID,
		Messages:             req.Messages,
		CurrentQuestionIndex: req.CurrentQuestionIndex,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"message":           result.Message,
		"isCompleted":       result.IsCompleted,
		"nextQuestionIndex": result.NextQuestionIndex,
		"currentQuestion":   result.CurrentQuestion,
		"totalQuestions":    result.TotalQuestions,
	})
}

// Start handles POST /api/interviews
func (h *InterviewHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartInterviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	result, err := h.interviewSvc.Start(r.Context(), service.StartInput{
		SurveyID:       req.SurveyID,
		RespondentType: model.SurveyTarget(req.RespondentType),
	})
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, envelope{
		"sessionToken":   result.SessionToken,
		"message":        result.Message,
		"session":        result.Session,
		"totalQuestions": result.TotalQuestions,
	})
}

// Get handles GET /api/interviews/{token}
func (h *InterviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.interviewSvc.Session(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"session": session})
}

// Reply handles POST /api/interviews/{token}/messages
func (h *InterviewHandler) Reply(w http.ResponseWriter, r *http.Request) {
	var req ReplyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	result, err := h.interviewSvc.Reply(r.Context(), mux.Vars(r)["token"], req.Message)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	body := envelope{
		"message":           result.Message,
		"isCompleted":       result.IsCompleted,
		"nextQuestionIndex": result.NextQuestionIndex,
		"currentQuestion":   result.CurrentQuestion,
		"totalQuestions":    result.TotalQuestions,
		"submitted":         result.Submitted,
	}
	if result.ResponseID != "" {
		body["responseId"] = result.ResponseID
	}
	if result.SubmitError != "" {
		body["submitError"] = result.SubmitError
	}
	writeJSON(w, http.StatusOK, body)
}

// Submit handles POST /api/interviews/{token}/submit
func (h *InterviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	responseID, err := h.interviewSvc.Submit(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"responseId": responseID})
}
