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
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoAudioUploadRepository implements repository.AudioUploadRepository
type mongoAudioUploadRepository struct {
	collection *mongo.Collection
}

// NewMongoAudioUploadRepository creates a new audio upload repository backed by MongoDB.
func NewMongoAudioUploadRepository(db *mongo.Database) repository.AudioUploadRepository {
	return &mongoAudioUploadRepository{
		collection: db.Collection(audioUploadCollectionName),
	}
}

// Create inserts new upload metadata into the database.
func (r *mongoAudioUploadRepository) Create(ctx context.Context, upload *domain.AudioUpload) error {
	if upload.UserID == "" {
		return errors.New("audio upload requires a user id")
	}
	upload.ID = primitive.NewObjectID()
	if upload.UploadedAt.IsZero() {
		upload.UploadedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, upload)
	return err
}

// ListByUser returns a user's uploads, newest first.
func (r *mongoAudioUploadRepository) ListByUser(ctx context.Context, userID string) ([]domain.AudioUpload, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "uploaded_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	uploads := []domain.AudioUpload{}
	if err = cursor.All(ctx, &uploads); err != nil {
		return nil, err
	}
	return uploads, nil
}

// DeleteByUser removes the metadata of every upload owned by userID.
func (r *mongoAudioUploadRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
