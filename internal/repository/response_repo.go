package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/imsebeom/ai-survey/internal/model"
)

// ResponseRepository handles persistence of submitted responses
type ResponseRepository interface {
	Create(ctx context.Context, response *model.SurveyResponse) (string, error)
	// ListBySurvey returns the responses of a survey, newest first
	ListBySurvey(ctx context.Context, surveyID string) ([]*model.SurveyResponse, error)
	DeleteBySurvey(ctx context.Context, surveyID string) (int64, error)
}

type responseRepository struct {
	collection *mongo.Collection
}

func NewResponseRepository(db *mongo.Database) ResponseRepository {
	return &responseRepository{
		collection: db.Collection("responses"),
	}
}

// EnsureResponseIndexes creates the index backing ListBySurvey
func EnsureResponseIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("responses").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "surveyId", Value: 1},
			{Key: "submittedAt", Value: -1},
		},
	})
	return err
}

type responseDocument struct {
	ID             primitive.ObjectID      `bson:"_id,omitempty"`
	SurveyID       string                  `bson:"surveyId"`
	RespondentType string                  `bson:"respondentType"`
	Answers        map[string]model.Answer `bson:"answers"`
	InterviewLog   []model.ChatMessage     `bson:"interviewLog,omitempty"`
	SubmittedAt    time.Time               `bson:"submittedAt"`
}

func (d responseDocument) toModel() (*model.SurveyResponse, error) {
	respondent := model.SurveyTarget(d.RespondentType)
	if !respondent.Valid() {
		return nil, fmt.Errorf("%w: response %s has unknown respondent type %q", model.ErrParse, d.ID.Hex(), d.RespondentType)
	}
	answers := d.Answers
	if answers == nil {
		answers = map[string]model.Answer{}
	}
	return &model.SurveyResponse{
		ID:             d.ID.Hex(),
		SurveyID:       d.SurveyID,
		RespondentType: respondent,
		Answers:        answers,
		InterviewLog:   d.InterviewLog,
		SubmittedAt:    d.SubmittedAt,
	}, nil
}

func (r *responseRepository) Create(ctx context.Context, response *model.SurveyResponse) (string, error) {
	// Set submission timestamp if not set
	if response.SubmittedAt.IsZero() {
		response.SubmittedAt = time.Now()
	}

	doc := responseDocument{
		SurveyID:       response.SurveyID,
		RespondentType: string(response.RespondentType),
		Answers:        response.Answers,
		InterviewLog:   response.InterviewLog,
		SubmittedAt:    response.SubmittedAt,
	}
	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", err
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		response.ID = oid.Hex()
	}
	return response.ID, nil
}

func (r *responseRepository) ListBySurvey(ctx context.Context, surveyID string) ([]*model.SurveyResponse, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"surveyId": surveyID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	responses := []*model.SurveyResponse{}
	for cursor.Next(ctx) {
		var doc responseDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, decodeErr(err)
		}
		response, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		responses = append(responses, response)
	}
	return responses, cursor.Err()
}

func (r *responseRepository) DeleteBySurvey(ctx context.Context, surveyID string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"surveyId": surveyID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
