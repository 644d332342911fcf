// internal/repository/mongo/weekly_plan_repo.go
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
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoWeeklyPlanRepository implements repository.WeeklyPlanRepository
type mongoWeeklyPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoWeeklyPlanRepository creates a new WeeklyTrainingPlan repository.
func NewMongoWeeklyPlanRepository(db *mongo.Database) repository.WeeklyPlanRepository {
	return &mongoWeeklyPlanRepository{
		collection: db.Collection(weeklyPlanCollectionName),
	}
}

// Create inserts a new weekly plan. The caller stamps week_id, user_id and start_date.
func (r *mongoWeeklyPlanRepository) Create(ctx context.Context, plan *domain.WeeklyTrainingPlan) error {
	if plan.WeekID == "" || plan.UserID == "" || plan.StartDate == "" {
		return errors.New("weekly plan requires week_id, user_id, and start_date")
	}
	if plan.Workouts == nil {
		plan.Workouts = []domain.DailyWorkout{}
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

// GetByWeekID retrieves a single weekly plan by its week_id.
func (r *mongoWeeklyPlanRepository) GetByWeekID(ctx context.Context, weekID string) (*domain.WeeklyTrainingPlan, error) {
	var plan domain.WeeklyTrainingPlan
	err := r.collection.FindOne(ctx, bson.M{"week_id": weekID}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// GetDailyWorkout fetches only the matching element of workouts.
func (r *mongoWeeklyPlanRepository) GetDailyWorkout(ctx context.Context, weekID, date string) (*domain.DailyWorkout, error) {
	filter := bson.M{"week_id": weekID, "workouts.date": date}
	opts := options.FindOne().SetProjection(bson.M{"_id": 0, "workouts.$": 1})

	var result struct {
		Workouts []domain.DailyWorkout `bson:"workouts"`
	}
	err := r.collection.FindOne(ctx, filter, opts).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if len(result.Workouts) == 0 {
		return nil, repository.ErrNotFound
	}
	return &result.Workouts[0], nil
}

// HasWorkoutForDate reports whether the week already holds a day for date.
func (r *mongoWeeklyPlanRepository) HasWorkoutForDate(ctx context.Context, weekID, date string) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"week_id": weekID, "workouts.date": date})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ReplaceWorkoutForDate overwrites the day matching workout.Date wholesale.
func (r *mongoWeeklyPlanRepository) ReplaceWorkoutForDate(ctx context.Context, weekID string, workout domain.DailyWorkout) error {
	filter := bson.M{"week_id": weekID, "workouts.date": workout.Date}
	return r.updateOne(ctx, filter, bson.M{"$set": bson.M{"workouts.$": workout}})
}

// AppendExercisesForDate pushes exercises onto an existing day, preserving order.
func (r *mongoWeeklyPlanRepository) AppendExercisesForDate(ctx context.Context, weekID, date string, exercises []domain.Exercise) error {
	filter := bson.M{"week_id": weekID, "workouts.date": date}
	update := bson.M{"$push": bson.M{"workouts.$.exercises": bson.M{"$each": exercises}}}
	return r.updateOne(ctx, filter, update)
}

// AppendWorkout pushes a new day onto the week.
func (r *mongoWeeklyPlanRepository) AppendWorkout(ctx context.Context, weekID string, workout domain.DailyWorkout) error {
	if workout.Exercises == nil {
		workout.Exercises = []domain.Exercise{}
	}
	return r.updateOne(ctx, bson.M{"week_id": weekID}, bson.M{"$push": bson.M{"workouts": workout}})
}

// SetExerciseStatuses sets workouts.$.exercises.<i>.status for each position.
func (r *mongoWeeklyPlanRepository) SetExerciseStatuses(ctx context.Context, weekID, date string, statuses []string) error {
	set := bson.M{}
	for i, status := range statuses {
		set[fmt.Sprintf("workouts.$.exercises.%d.status", i)] = status
	}
	if len(set) == 0 {
		return nil
	}
	filter := bson.M{"week_id": weekID, "workouts.date": date}
	return r.updateOne(ctx, filter, bson.M{"$set": set})
}

// SetDailySummary writes the prose summary of one day.
func (r *mongoWeeklyPlanRepository) SetDailySummary(ctx context.Context, weekID, date, summary string) error {
	filter := bson.M{"week_id": weekID, "workouts.date": date}
	return r.updateOne(ctx, filter, bson.M{"$set": bson.M{"workouts.$.summary": summary}})
}

// SetDailyExercises replaces the exercises and reasoning of one day.
func (r *mongoWeeklyPlanRepository) SetDailyExercises(ctx context.Context, weekID, date string, exercises []domain.Exercise, reasoning string) error {
	if exercises == nil {
		exercises = []domain.Exercise{}
	}
	filter := bson.M{"week_id": weekID, "workouts.date": date}
	update := bson.M{"$set": bson.M{
		"workouts.$.exercises": exercises,
		"workouts.$.reasoning": reasoning,
	}}
	return r.updateOne(ctx, filter, update)
}

// ListByUser returns every weekly plan owned by userID, oldest week first.
func (r *mongoWeeklyPlanRepository) ListByUser(ctx context.Context, userID string) ([]domain.WeeklyTrainingPlan, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	plans := []domain.WeeklyTrainingPlan{}
	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// DeleteByUser removes every weekly plan of a user and returns how many were deleted.
func (r *mongoWeeklyPlanRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *mongoWeeklyPlanRepository) updateOne(ctx context.Context, filter, update bson.M) error {
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound // Week or day didn't exist
	}
	return nil
}
