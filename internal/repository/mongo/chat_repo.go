package mongo

import (
	"context"
	"errors"
	"time"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoChatHistoryRepository implements repository.ChatHistoryRepository
type mongoChatHistoryRepository struct {
	collection *mongo.Collection
}

// NewMongoChatHistoryRepository creates a new chat history repository.
func NewMongoChatHistoryRepository(db *mongo.Database) repository.ChatHistoryRepository {
	return &mongoChatHistoryRepository{
		collection: db.Collection(chatHistoryCollectionName),
	}
}

// Get retrieves a session by chat_id.
func (r *mongoChatHistoryRepository) Get(ctx context.Context, chatID string) (*domain.ChatSession, error) {
	var session domain.ChatSession
	err := r.collection.FindOne(ctx, bson.M{"chat_id": chatID}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// Save replaces the session document, inserting it on first use. Last write wins.
func (r *mongoChatHistoryRepository) Save(ctx context.Context, session *domain.ChatSession) error {
	if session.ChatID == "" {
		return errors.New("chat session requires a chat_id")
	}
	if session.Messages == nil {
		session.Messages = []domain.Message{}
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"chat_id": session.ChatID}, session, opts)
	return err
}

// ListByUser pages through sessions touched in [from, to], newest first.
func (r *mongoChatHistoryRepository) ListByUser(ctx context.Context, userID string, from, to time.Time, page, pageSize int) ([]domain.ChatSession, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	filter := bson.M{
		"user_id": userID,
		"time":    bson.M{"$gte": from, "$lte": to},
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "time", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	sessions := []domain.ChatSession{}
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// DeleteByUser removes every session owned by userID.
func (r *mongoChatHistoryRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
