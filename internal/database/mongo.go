package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Dias221467/Chat_Manager/internal/config"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ConnectDB connects to MongoDB and returns the configured database.
func ConnectDB(cfg *config.Config) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := pingOrDisconnect(ctx, client); err != nil {
		return nil, err
	}

	logrus.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")
	return client.Database(cfg.MongoDB), nil
}

// pingOrDisconnect releases the client's pools when the server is unreachable.
func pingOrDisconnect(ctx context.Context, client *mongo.Client) error {
	err := client.Ping(ctx, readpref.Primary())
	if err == nil {
		return nil
	}

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if derr := client.Disconnect(dctx); derr != nil {
		logrus.WithError(derr).Warn("Failed to disconnect from MongoDB")
	}
	return fmt.Errorf("failed to ping MongoDB: %w", err)
}

// Disconnect closes the client behind db.
func Disconnect(db *mongo.Database) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.Client().Disconnect(ctx); err != nil {
		logrus.WithError(err).Warn("Failed to disconnect from MongoDB")
	}
}
