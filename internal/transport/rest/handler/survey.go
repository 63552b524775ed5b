package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/imsebeom/ai-survey/internal/model"
	"github.com/imsebeom/ai-survey/internal/service"
)

const (
	maxUploadSize = 10 << 20
	maxImageSize  = 8 << 20
)

// SurveyHandler handles survey endpoints
type SurveyHandler struct {
	surveySvc *service.SurveyService
	statsSvc  *service.StatsService
	log       logrus.FieldLogger
}

// NewSurveyHandler creates a new survey handler
func NewSurveyHandler(surveySvc *service.SurveyService, statsSvc *service.StatsService, log logrus.FieldLogger) *SurveyHandler {
	return &SurveyHandler{
		surveySvc: surveySvc,
		statsSvc:  statsSvc,
		log:       log,
	}
}

// GenerateRequest holds the form fields of a draft request
type GenerateRequest struct {
	Target string `json:"target" validate:"required,oneof=student teacher parent"`
	Mode   string `json:"mode" validate:"required,oneof=classic interview"`
	Prompt string `json:"prompt"`
	Text   string `json:"text"`
}

// Generate handles POST /api/generate (multipart form: target, mode, prompt, text, image)
func (h *SurveyHandler) Generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	req := GenerateRequest{
		Target: strings.TrimSpace(r.FormValue("target")),
		Mode:   strings.TrimSpace(r.FormValue("mode")),
		Prompt: r.FormValue("prompt"),
		Text:   r.FormValue("text"),
	}
	if err := validateRequest(&req); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	image, err := readImage(r)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	survey, err := h.surveySvc.CreateFromDraft(r.Context(), service.DraftInput{
		Target:            model.SurveyTarget(req.Target),
		Mode:              model.SurveyMode(req.Mode),
		FreeText:          req.Text,
		ExtraInstructions: req.Prompt,
		Image:             image,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{"surveyId": survey.ID, "survey": survey})
}

// readImage returns the optional "image" upload
func readImage(r *http.Request) (*service.ImageInput, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: invalid image upload", model.ErrValidation)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid image upload", model.ErrValidation)
	}
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) > maxImageSize {
		return nil, fmt.Errorf("%w: image is larger than %d MB", model.ErrValidation, maxImageSize>>20)
	}

	mimeType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: uploaded file is not an image", model.ErrValidation)
	}
	return &service.ImageInput{MIMEType: mimeType, Data: data}, nil
}

// List handles GET /api/surveys
func (h *SurveyHandler) List(w http.ResponseWriter, r *http.Request) {
	surveys, err := h.surveySvc.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if surveys == nil {
		surveys = []*model.Survey{}
	}
	writeJSON(w, http.StatusOK, envelope{"surveys": surveys})
}

// Get handles GET /api/surveys/{id}
func (h *SurveyHandler) Get(w http.ResponseWriter, r *http.Request) {
	survey, err := h.surveySvc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"survey": survey})
}

// Update handles PUT /api/surveys/{id}
func (h *SurveyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.SurveyUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	if err := h.surveySvc.Update(r.Context(), mux.Vars(r)["id"], req); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// Delete handles DELETE /api/surveys/{id}
func (h *SurveyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.surveySvc.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// Publish handles POST /api/surveys/{id}/publish
func (h *SurveyHandler) Publish(w http.ResponseWriter, r *http.Request) {
	survey, err := h.surveySvc.Publish(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"survey": survey})
}

// Stats handles GET /api/surveys/{id}/stats
func (h *SurveyHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsSvc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"stats": stats})
}
