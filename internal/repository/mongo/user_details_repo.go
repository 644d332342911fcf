package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// mongoUserDetailsRepository implements repository.UserDetailsRepository
type mongoUserDetailsRepository struct {
	collection *mongo.Collection
}

// NewMongoUserDetailsRepository creates a new UserDetails repository.
func NewMongoUserDetailsRepository(db *mongo.Database) repository.UserDetailsRepository {
	return &mongoUserDetailsRepository{
		collection: db.Collection(userDetailsCollectionName),
	}
}

// Create inserts the details document. One per user; a second insert yields ErrDuplicate.
func (r *mongoUserDetailsRepository) Create(ctx context.Context, details *domain.UserDetails) error {
	if details.UserID == "" {
		return errors.New("user details require a user id")
	}
	details.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	details.CreatedAt = now
	details.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, details); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByUserID retrieves the details of a user.
func (r *mongoUserDetailsRepository) GetByUserID(ctx context.Context, userID string) (*domain.UserDetails, error) {
	var details domain.UserDetails
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&details)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &details, nil
}

// UpdateField sets one dotted field path.
func (r *mongoUserDetailsRepository) UpdateField(ctx context.Context, userID, path string, value any) error {
	update := bson.M{"$set": bson.M{path: value, "updated_at": time.Now().UTC()}}
	return r.updateOne(ctx, userID, update)
}

// AddMemory appends a free-text note to the memories list.
func (r *mongoUserDetailsRepository) AddMemory(ctx context.Context, userID, memory string) error {
	update := bson.M{
		"$push": bson.M{"memories": memory},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	return r.updateOne(ctx, userID, update)
}

// RemoveMemory drops the memory at index. MongoDB has no "pull by position",
// so the element is unset first and the resulting null pulled.
func (r *mongoUserDetailsRepository) RemoveMemory(ctx context.Context, userID string, index int) error {
	if index < 0 {
		return repository.ErrNotFound
	}
	field := fmt.Sprintf("memories.%d", index)
	filter := bson.M{"user_id": userID, field: bson.M{"$exists": true}}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$unset": bson.M{field: 1}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	update := bson.M{
		"$pull": bson.M{"memories": nil},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{"user_id": userID}, update)
	return err
}

// Delete removes the details document.
func (r *mongoUserDetailsRepository) Delete(ctx context.Context, userID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoUserDetailsRepository) updateOne(ctx context.Context, userID string, update bson.M) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"user_id": userID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
