package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/imsebeom/ai-survey/internal/model"
	"github.com/imsebeom/ai-survey/internal/service"
)

// ResponseHandler handles response collection endpoints
type ResponseHandler struct {
	responseSvc *service.ResponseService
	log         logrus.FieldLogger
}

// NewResponseHandler creates a new response handler
func NewResponseHandler(responseSvc *service.ResponseService, log logrus.FieldLogger) *ResponseHandler {
	return &ResponseHandler{responseSvc: responseSvc, log: log}
}

// SubmitRequest is the request body for a form submission
type SubmitRequest struct {
	SurveyID       string                  `json:"surveyId" validate:"required"`
	Answers        map[string]model.Answer `json:"answers" validate:"required"`
	RespondentType string                  `json:"respondentType" validate:"omitempty,oneof=student teacher parent"`
	InterviewLog   []model.ChatMessage     `json:"interviewLog"`
}

// Submit handles POST /api/submit
func (h *ResponseHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	resp, err := h.responseSvc.Submit(r.Context(), service.SubmitInput{
		SurveyID:       req.SurveyID,
		Answers:        req.Answers,
		RespondentType: model.SurveyTarget(req.RespondentType),
		InterviewLog:   req.InterviewLog,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{"responseId": resp.ID})
}

// ListBySurvey handles GET /api/responses/{id}
func (h *ResponseHandler) ListBySurvey(w http.ResponseWriter, r *http.Request) {
	responses, err := h.responseSvc.ListBySurvey(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if responses == nil {
		responses = []*model.SurveyResponse{}
	}
	writeJSON(w, http.StatusOK, envelope{"responses": responses, "count": len(responses)})
}
