package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/imsebeom/ai-survey/internal/model"
)

// SurveyRepo handles persistence of surveys
type SurveyRepo interface {
	Create(ctx context.Context, survey *model.Survey) (string, error)
	// GetByID returns nil, nil when the survey does not exist
	GetByID(ctx context.Context, id string) (*model.Survey, error)
	// List returns every survey, newest first
	List(ctx context.Context) ([]*model.Survey, error)
	Update(ctx context.Context, id string, update model.SurveyUpdate) error
	Delete(ctx context.Context, id string) error
}

type surveyRepo struct {
	collection *mongo.Collection
}

// NewSurveyRepo creates a new survey repository
func NewSurveyRepo(db *mongo.Database) SurveyRepo {
	return &surveyRepo{
		collection: db.Collection("surveys"),
	}
}

type questionDocument struct {
	ID       string   `bson:"id"`
	Type     string   `bson:"type"`
	Question string   `bson:"question"`
	Options  []string `bson:"options,omitempty"`
	Required *bool    `bson:"required,omitempty"`
}

type surveyDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Title        string             `bson:"title"`
	Description  string             `bson:"description,omitempty"`
	Target       string             `bson:"target"`
	Mode         string             `bson:"mode"`
	Questions    []questionDocument `bson:"questions"`
	SourcePrompt string             `bson:"sourcePrompt,omitempty"`
	SourceText   string             `bson:"sourceText,omitempty"`
	Status       string             `bson:"status"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
	PublishedAt  *time.Time         `bson:"publishedAt,omitempty"`
}

func newSurveyDocument(s *model.Survey) surveyDocument {
	return surveyDocument{
		Title:        s.Title,
		Description:  s.Description,
		Target:       string(s.Target),
		Mode:         string(s.Mode),
		Questions:    toQuestionDocuments(s.Questions),
		SourcePrompt: s.SourcePrompt,
		SourceText:   s.SourceText,
		Status:       string(s.Status),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		PublishedAt:  s.PublishedAt,
	}
}

func toQuestionDocuments(questions []model.Question) []questionDocument {
	docs := make([]questionDocument, 0, len(questions))
	for _, q := range questions {
		docs = append(docs, questionDocument{
			ID:       q.ID,
			Type:     string(q.Type),
			Question: q.Question,
			Options:  q.Options,
			Required: q.Required,
		})
	}
	return docs
}

// toModel converts a stored document, rejecting anything the model cannot represent
func (d surveyDocument) toModel() (*model.Survey, error) {
	survey := &model.Survey{
		ID:           d.ID.Hex(),
		Title:        d.Title,
		Description:  d.Description,
		Target:       model.SurveyTarget(d.Target),
		Mode:         model.SurveyMode(d.Mode),
		SourcePrompt: d.SourcePrompt,
		SourceText:   d.SourceText,
		Status:       model.SurveyStatus(d.Status),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		PublishedAt:  d.PublishedAt,
	}
	if !survey.Target.Valid() {
		return nil, fmt.Errorf("%w: survey %s has unknown target %q", model.ErrParse, survey.ID, d.Target)
	}
	if !survey.Mode.Valid() {
		return nil, fmt.Errorf("%w: survey %s has unknown mode %q", model.ErrParse, survey.ID, d.Mode)
	}
	if !survey.Status.Valid() {
		return nil, fmt.Errorf("%w: survey %s has unknown status %q", model.ErrParse, survey.ID, d.Status)
	}

	survey.Questions = make([]model.Question, 0, len(d.Questions))
	for i, qd := range d.Questions {
		q := model.Question{
			ID:       qd.ID,
			Type:     model.QuestionType(qd.Type),
			Question: qd.Question,
			Options:  qd.Options,
			Required: qd.Required,
		}
		if q.ID == "" {
			return nil, fmt.Errorf("%w: survey %s question %d has no id", model.ErrParse, survey.ID, i)
		}
		if !q.Type.Valid() {
			return nil, fmt.Errorf("%w: survey %s question %s has unknown type %q", model.ErrParse, survey.ID, q.ID, qd.Type)
		}
		survey.Questions = append(survey.Questions, q)
	}
	return survey, nil
}

func (r *surveyRepo) Create(ctx context.Context, survey *model.Survey) (string, error) {
	now := time.Now()
	survey.CreatedAt = now
	survey.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, newSurveyDocument(survey))
	if err != nil {
		return "", err
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	survey.ID = oid.Hex()
	return survey.ID, nil
}

func (r *surveyRepo) GetByID(ctx context.Context, id string) (*model.Survey, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// Not an id this store could have issued
		return nil, nil
	}

	var doc surveyDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, decodeErr(err)
	}
	return doc.toModel()
}

func (r *surveyRepo) List(ctx context.Context) ([]*model.Survey, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	surveys := []*model.Survey{}
	for cursor.Next(ctx) {
		var doc surveyDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, decodeErr(err)
		}
		survey, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		surveys = append(surveys, survey)
	}
	return surveys, cursor.Err()
}

func (r *surveyRepo) Update(ctx context.Context, id string, update model.SurveyUpdate) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: survey %s", model.ErrNotFound, id)
	}

	set := bson.M{"updatedAt": time.Now()}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.Target != nil {
		set["target"] = string(*update.Target)
	}
	if update.Mode != nil {
		set["mode"] = string(*update.Mode)
	}
	if update.Questions != nil {
		set["questions"] = toQuestionDocuments(*update.Questions)
	}
	if update.Status != nil {
		set["status"] = string(*update.Status)
	}
	if update.PublishedAt != nil {
		set["publishedAt"] = *update.PublishedAt
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: survey %s", model.ErrNotFound, id)
	}
	return nil
}

func (r *surveyRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: survey %s", model.ErrNotFound, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: survey %s", model.ErrNotFound, id)
	}
	return nil
}

// decodeErr marks BSON decoding failures as parse errors and passes driver errors through
func decodeErr(err error) error {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) || mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrParse, err)
}
