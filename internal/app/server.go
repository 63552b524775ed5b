package app

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"
	"go.uber.org/fx"

	"github.com/imsebeom/ai-survey/internal/config"
	"github.com/imsebeom/ai-survey/internal/service"
	"github.com/imsebeom/ai-survey/internal/transport/rest"
	"github.com/imsebeom/ai-survey/internal/transport/ws"
)

// ServerModule provides the router and starts the HTTP server
var ServerModule = fx.Options(
	fx.Provide(provideRouter, provideServer),
	fx.Invoke(func(*http.Server) {}),
)

// RouterParams are the dependencies of the HTTP router
type RouterParams struct {
	fx.In

	Config    *config.Config
	Surveys   *service.SurveyService
	Responses *service.ResponseService
	Interview *service.InterviewService
	Stats     *service.StatsService
	Hub       *ws.Hub
	Log       logrus.FieldLogger
}

func provideRouter(p RouterParams) http.Handler {
	return rest.NewRouter(&rest.Container{
		SurveyService:    p.Surveys,
		ResponseService:  p.Responses,
		InterviewService: p.Interview,
		StatsService:     p.Stats,
		WSHub:            p.Hub,
		Log:              p.Log,
		AllowedOrigins:   p.Config.HTTP.AllowedOrigins,
	})
}

func provideServer(lc fx.Lifecycle, cfg *config.Config, handler http.Handler, log logrus.FieldLogger) *http.Server {
	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"addr":    srv.Addr,
				"storage": cfg.Storage,
				"session": cfg.Interview.SessionStore,
			}).Info("Server starting")

			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.WithError(err).Error("HTTP server stopped")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return srv.Shutdown(ctx)
		},
	})
	return srv
}
