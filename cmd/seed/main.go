package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/imsebeom/ai-survey/internal/config"
	"github.com/imsebeom/ai-survey/internal/logger"
	"github.com/imsebeom/ai-survey/internal/model"
	"github.com/imsebeom/ai-survey/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}
	log := logger.New(cfg.Logging)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.Mongo.Database)
	if err := repository.EnsureResponseIndexes(ctx, db); err != nil {
		log.WithError(err).Fatal("Failed to create indexes")
	}

	survey := sampleSurvey()
	id, err := repository.NewSurveyRepo(db).Create(ctx, survey)
	if err != nil {
		log.WithError(err).Fatal("Failed to insert survey")
	}

	log.WithFields(logrus.Fields{
		"survey_id": id,
		"title":     survey.Title,
	}).Info("Created sample survey")
}

func sampleSurvey() *model.Survey {
	required := true
	optional := false
	now := time.Now()

	return &model.Survey{
		Title:       "School Lunch Satisfaction",
		Description: "Help us improve the school cafeteria menu.",
		Target:      model.TargetStudent,
		Mode:        model.ModeInterview,
		Status:      model.StatusPublished,
		PublishedAt: &now,
		Questions: []model.Question{
			{
				ID:       "q1",
				Type:     model.QuestionSingleChoice,
				Question: "Overall, how satisfied are you with school lunch?",
				Options:  []string{"Very satisfied", "Satisfied", "Neutral", "Dissatisfied", "Very dissatisfied"},
				Required: &required,
			},
			{
				ID:       "q2",
				Type:     model.QuestionSingleChoice,
				Question: "How often do you eat school lunch?",
				Options:  []string{"Every day", "A few times a week", "Rarely", "Never"},
				Required: &required,
			},
			{
				ID:       "q3",
				Type:     model.QuestionMultipleChoice,
				Question: "Which dishes would you like to see more often?",
				Options:  []string{"Rice bowls", "Noodles", "Salads", "Soups", "Fruit desserts"},
				Required: &optional,
			},
			{
				ID:       "q4",
				Type:     model.QuestionText,
				Question: "What is your favorite lunch menu item?",
				Required: &optional,
			},
			{
				ID:       "q5",
				Type:     model.QuestionLongText,
				Question: "What is one thing you would change about school lunch?",
				Required: &required,
			},
		},
	}
}
