package mongo

import (
	"context"
	"errors"
	"time"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// mongoUserProfileRepository implements the repository.UserProfileRepository interface using MongoDB.
type mongoUserProfileRepository struct {
	collection *mongo.Collection
}

// NewMongoUserProfileRepository creates a new instance of mongoUserProfileRepository.
// It expects a connected *mongo.Database instance.
func NewMongoUserProfileRepository(db *mongo.Database) repository.UserProfileRepository {
	return &mongoUserProfileRepository{
		collection: db.Collection(userProfileCollectionName),
	}
}

// Create inserts a new user profile into the database.
func (r *mongoUserProfileRepository) Create(ctx context.Context, user *domain.UserProfile) error {
	// Basic validation; the service layer owns the real rules.
	if user.UserID == "" || user.Email == "" || user.PasswordHash == "" || user.Role == "" {
		return errors.New("user id, email, password hash, and role are required")
	}

	user.ID = primitive.NewObjectID()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByEmail retrieves a user by their email address.
func (r *mongoUserProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// GetByUsername retrieves a user by their username.
func (r *mongoUserProfileRepository) GetByUsername(ctx context.Context, username string) (*domain.UserProfile, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

// GetByUserID retrieves a user by the application-level user id.
func (r *mongoUserProfileRepository) GetByUserID(ctx context.Context, userID string) (*domain.UserProfile, error) {
	return r.findOne(ctx, bson.M{"user_id": userID})
}

func (r *mongoUserProfileRepository) findOne(ctx context.Context, filter bson.M) (*domain.UserProfile, error) {
	var user domain.UserProfile
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Delete removes the profile. Missing profiles yield ErrNotFound.
func (r *mongoUserProfileRepository) Delete(ctx context.Context, userID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
