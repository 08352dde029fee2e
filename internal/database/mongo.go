package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// releaseTimeout bounds the disconnect of a client whose ping failed
const releaseTimeout = 5 * time.Second

// MongoDriver implements Driver on top of the official MongoDB driver
type MongoDriver struct{}

// NewMongoDriver creates a new MongoDB driver
func NewMongoDriver() *MongoDriver {
	return &MongoDriver{}
}

// Connect opens a client and pings the primary so that unreachable
// servers fail here rather than on first use.
func (d *MongoDriver) Connect(ctx context.Context, address string) (Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(address))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		err = fmt.Errorf("mongo ping: %w", err)

		releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if derr := client.Disconnect(releaseCtx); derr != nil {
			err = errors.Join(err, fmt.Errorf("mongo disconnect: %w", derr))
		}
		return nil, err
	}

	return &MongoClient{client: client}, nil
}

// MongoClient wraps a connected *mongo.Client
type MongoClient struct {
	client *mongo.Client
}

// Database returns the named database
func (c *MongoClient) Database(ctx context.Context, name string) (Database, error) {
	if name == "" {
		return nil, fmt.Errorf("database name is empty")
	}
	return &MongoDatabase{db: c.client.Database(name)}, nil
}

// Disconnect closes the underlying client
func (c *MongoClient) Disconnect(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// MongoDatabase wraps a *mongo.Database
type MongoDatabase struct {
	db *mongo.Database
}

// Collection returns the named collection
func (d *MongoDatabase) Collection(ctx context.Context, name string) (Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name is empty")
	}
	return &MongoCollection{Collection: d.db.Collection(name)}, nil
}

// MongoCollection exposes the driver collection for query use
type MongoCollection struct {
	*mongo.Collection
}
