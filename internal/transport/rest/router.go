package rest

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/imsebeom/ai-survey/internal/service"
	"github.com/imsebeom/ai-survey/internal/transport/rest/handler"
	"github.com/imsebeom/ai-survey/internal/transport/rest/middleware"
	"github.com/imsebeom/ai-survey/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	SurveyService    *service.SurveyService
	ResponseService  *service.ResponseService
	InterviewService *service.InterviewService
	StatsService     *service.StatsService
	WSHub            *ws.Hub
	Log              logrus.FieldLogger

	// Comma separated; "*" allows any origin
	AllowedOrigins string
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	surveyHandler := handler.NewSurveyHandler(c.SurveyService, c.StatsService, c.Log)
	responseHandler := handler.NewResponseHandler(c.ResponseService, c.Log)
	interviewHandler := handler.NewInterviewHandler(c.InterviewService, c.Log)
	wsHandler := ws.NewHandler(c.WSHub, c.StatsService, c.Log)

	r.Use(middleware.Recoverer(c.Log))
	r.Use(middleware.TraceID)
	r.Use(middleware.Logger(c.Log))
	r.Use(corsMiddleware(c.AllowedOrigins))

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":"route not found"}`))
	})

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Survey authoring
	api.HandleFunc("/generate", surveyHandler.Generate).Methods("POST", "OPTIONS")
	api.HandleFunc("/surveys", surveyHandler.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/surveys/{id}", surveyHandler.Get).Methods("GET", "OPTIONS")
	api.HandleFunc("/surveys/{id}", surveyHandler.Update).Methods("PUT", "OPTIONS")
	api.HandleFunc("/surveys/{id}", surveyHandler.Delete).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/surveys/{id}/publish", surveyHandler.Publish).Methods("POST", "OPTIONS")
	api.HandleFunc("/surveys/{id}/stats", surveyHandler.Stats).Methods("GET", "OPTIONS")

	// Responses
	api.HandleFunc("/submit", responseHandler.Submit).Methods("POST", "OPTIONS")
	api.HandleFunc("/responses/{id}", responseHandler.ListBySurvey).Methods("GET", "OPTIONS")

	// Interviews
	api.HandleFunc("/chat", interviewHandler.Chat).Methods("POST", "OPTIONS")
	api.HandleFunc("/interviews", interviewHandler.Start).Methods("POST", "OPTIONS")
	api.HandleFunc("/interviews/{token}", interviewHandler.Get).Methods("GET", "OPTIONS")
	api.HandleFunc("/interviews/{token}/messages", interviewHandler.Reply).Methods("POST", "OPTIONS")
	api.HandleFunc("/interviews/{token}/submit", interviewHandler.Submit).Methods("POST", "OPTIONS")

	// Live dashboard
	api.HandleFunc("/ws/surveys/{id}/dashboard", wsHandler.DashboardWS).Methods("GET")

	return r
}

func corsMiddleware(allowedOrigins string) mux.MiddlewareFunc {
	origins := make(map[string]bool)
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = true
		}
	}
	allowAll := len(origins) == 0 || origins["*"]

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origins[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+middleware.TraceIDHeader)
			w.Header().Set("Access-Control-Expose-Headers", middleware.TraceIDHeader)

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
