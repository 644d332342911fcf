package mongo

import (
	"context"
	"time"

	"alcyxob/fitness-coach/internal/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// Collection names. They match the layout the mobile client and the admin tooling already know.
const (
	userProfileCollectionName  = "user-profiles"
	userDetailsCollectionName  = "user-details"
	trainingPlanCollectionName = "training-plans"
	weeklyPlanCollectionName   = "weekly-training-plans"
	chatHistoryCollectionName  = "chat-history"
	audioUploadCollectionName  = "audio-uploads"
)

// ConnectDB establishes a connection to MongoDB using the provided URI.
// It returns the mongo.Client which can be used to access databases and collections.
func ConnectDB(ctx context.Context, uri string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	// Free-form user details decode as maps, not ordered bson.D, so they serialize cleanly to JSON.
	clientOptions := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the primary node to verify the connection; the initial connect can
	// succeed while the server is unresponsive.
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}

	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes of every collection. Failures are logged, not fatal.
func EnsureIndexes(ctx context.Context, db *mongo.Database, log *logger.Logger) {
	ensure := func(collection string, indexes []mongo.IndexModel) {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, indexes); err != nil {
			log.Warn("Failed to create indexes", "collection", collection, "error", err)
		}
	}

	ensure(userProfileCollectionName, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	ensure(userDetailsCollectionName, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	ensure(trainingPlanCollectionName, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	ensure(weeklyPlanCollectionName, []mongo.IndexModel{
		{Keys: bson.D{{Key: "week_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		// Backstop for duplicate generation of the same calendar week.
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "start_date", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	ensure(chatHistoryCollectionName, []mongo.IndexModel{
		{Keys: bson.D{{Key: "chat_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "time", Value: -1}}, Options: options.Index().SetSparse(true)},
	})
	ensure(audioUploadCollectionName, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "uploaded_at", Value: -1}}, Options: options.Index()},
	})
}
