// internal/repository/mongo/training_plan_repo.go
package mongo

import (
	"context"
	"errors"
	"fmt"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// mongoTrainingPlanRepository implements repository.TrainingPlanRepository
type mongoTrainingPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoTrainingPlanRepository creates a new OverallTrainingPlan repository.
func NewMongoTrainingPlanRepository(db *mongo.Database) repository.TrainingPlanRepository {
	return &mongoTrainingPlanRepository{
		collection: db.Collection(trainingPlanCollectionName),
	}
}

// Create inserts the plan skeleton written at onboarding.
func (r *mongoTrainingPlanRepository) Create(ctx context.Context, plan *domain.OverallTrainingPlan) error {
	if plan.UserID == "" {
		return errors.New("training plan requires a user id")
	}
	if plan.TrainingPlan == nil {
		plan.TrainingPlan = map[string]map[string]domain.WeekEntry{}
	}
	plan.ID = primitive.NewObjectID()

	if _, err := r.collection.InsertOne(ctx, plan); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByUserID retrieves the overall plan of a user.
func (r *mongoTrainingPlanRepository) GetByUserID(ctx context.Context, userID string) (*domain.OverallTrainingPlan, error) {
	var plan domain.OverallTrainingPlan
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// SetWeekEntry registers (or overwrites) training_plan.<year>.<label>.
func (r *mongoTrainingPlanRepository) SetWeekEntry(ctx context.Context, userID, year, label string, entry domain.WeekEntry) error {
	path := fmt.Sprintf("training_plan.%s.%s", year, label)
	return r.updateOne(ctx, userID, bson.M{"$set": bson.M{path: entry}})
}

// SetWeekSummary backfills the summary of an existing week entry.
func (r *mongoTrainingPlanRepository) SetWeekSummary(ctx context.Context, userID, year, label, summary string) error {
	path := fmt.Sprintf("training_plan.%s.%s.summary", year, label)
	return r.updateOne(ctx, userID, bson.M{"$set": bson.M{path: summary}})
}

// ListUserIDs returns the owners of every overall plan.
func (r *mongoTrainingPlanRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	values, err := r.collection.Distinct(ctx, "user_id", bson.M{})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			ids = append(ids, s)
		}
	}
	return ids, nil
}

// Delete removes the overall plan of a user.
func (r *mongoTrainingPlanRepository) Delete(ctx context.Context, userID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoTrainingPlanRepository) updateOne(ctx context.Context, userID string, update bson.M) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"user_id": userID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound // Plan for that user didn't exist
	}
	return nil
}
