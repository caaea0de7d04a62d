package database

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/recitalsite/recital/backend/go-services/internal/config"
	"github.com/recitalsite/recital/backend/go-services/internal/store"
	"github.com/recitalsite/recital/backend/go-services/pkg/logger"
)

// Backend is the content store selected by configuration together with the
// handles other components share with it.
type Backend struct {
	Store store.Backend
	// Mongo is set for the mongo backend; sessions reuse its database.
	Mongo *mongo.Database
	// Firebase is set for the firestore backend; identity uses its Auth client.
	Firebase *firebase.App
	// Ping checks reachability; nil when the backend has nothing to ping.
	Ping func(ctx context.Context) error
}

const mongoAttempts = 5

// OpenBackend connects the configured backend. Mongo connections are
// retried with backoff to tolerate startup races with the database container.
func OpenBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.Backend.Kind {
	case config.BackendMongo:
		backoff := time.Second
		var client *mongo.Client
		var err error
		for attempt := 1; attempt <= mongoAttempts; attempt++ {
			client, err = ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if err == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, mongoAttempts, err)
			if attempt < mongoAttempts {
				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				backoff *= 2
			}
		}
		if err != nil {
			return nil, fmt.Errorf("could not connect to MongoDB after %d attempts: %w", mongoAttempts, err)
		}
		db := client.Database(cfg.MongoDB.Database)
		return &Backend{
			Store: store.NewMongoBackend(db),
			Mongo: db,
			Ping:  func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
		}, nil

	case config.BackendFirestore:
		app, err := NewFirebaseApp(ctx, cfg.Firebase)
		if err != nil {
			return nil, err
		}
		fs, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("firestore client: %w", err)
		}
		return &Backend{Store: store.NewFirestoreBackend(fs), Firebase: app}, nil

	case config.BackendMemory, "":
		logger.Warn("using in-memory backend; content is lost on restart")
		return &Backend{Store: store.NewMemoryBackend()}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend.Kind)
}
