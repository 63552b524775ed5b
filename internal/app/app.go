package app

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.uber.org/fx"

	"github.com/imsebeom/ai-survey/internal/ai"
	"github.com/imsebeom/ai-survey/internal/config"
	"github.com/imsebeom/ai-survey/internal/logger"
	"github.com/imsebeom/ai-survey/internal/service"
	"github.com/imsebeom/ai-survey/internal/transport/ws"
)

// Module wires the whole service: config, stores, AI, services and the HTTP server
var Module = fx.Options(
	CoreModule,
	StoreModule,
	ServiceModule,
	ServerModule,
)

// CoreModule provides configuration and logging
var CoreModule = fx.Provide(
	config.Load,
	provideLogger,
	provideFieldLogger,
)

// ServiceModule provides the AI generator, the services and the dashboard hub
var ServiceModule = fx.Options(
	fx.Provide(
		provideGenerator,
		provideHub,
		provideBroadcaster,
		provideSessionTokens,
		service.NewDraftService,
		service.NewStatsService,
		service.NewResponseService,
		service.NewSurveyService,
		service.NewInterviewService,
	),
)

func provideLogger(cfg *config.Config) *logrus.Logger {
	return logger.New(cfg.Logging)
}

func provideFieldLogger(log *logrus.Logger) logrus.FieldLogger {
	return log
}

func provideGenerator(lc fx.Lifecycle, cfg *config.Config, log logrus.FieldLogger) (ai.Generator, error) {
	gen, err := ai.New(context.Background(), cfg.AI)
	if err != nil {
		return nil, err
	}

	entry := log.WithFields(logrus.Fields{
		"provider":        cfg.AI.Provider,
		"draft_model":     cfg.AI.Models.Draft,
		"interview_model": cfg.AI.Models.Interview,
	})
	if cfg.AI.IsEnabled() {
		entry.Info("AI generator configured")
	} else {
		entry.Warn("AI API key not set; drafting and interviews will fail until it is configured")
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return ai.Close(gen)
		},
	})
	return gen, nil
}

func provideHub(lc fx.Lifecycle, log logrus.FieldLogger) *ws.Hub {
	hub := ws.NewHub(log)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			hub.Close()
			return nil
		},
	})
	return hub
}

func provideBroadcaster(hub *ws.Hub) service.Broadcaster {
	return hub
}

func provideSessionTokens(cfg *config.Config, log logrus.FieldLogger) *service.SessionTokens {
	if cfg.Interview.TokenSecret == config.Default().Interview.TokenSecret {
		log.Warn("INTERVIEW_TOKEN_SECRET is not set; using the built-in development secret")
	}
	return service.NewSessionTokens(cfg.Interview.TokenSecret, cfg.Interview.SessionTTL)
}
