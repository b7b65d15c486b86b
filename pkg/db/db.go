package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoClient wraps the MongoDB client and the database holding monitor state.
type MongoClient struct {
	uri         string
	dbName      string
	mongoClient *mongo.Client
	database    *mongo.Database
}

// NewMongoClient creates a new MongoDB client. Call Connect before use.
func NewMongoClient(connectionString, databaseName string) *MongoClient {
	return &MongoClient{uri: connectionString, dbName: databaseName}
}

// Connect establishes the connection and verifies it with a ping.
func (c *MongoClient) Connect(ctx context.Context) error {
	if c.uri == "" {
		return fmt.Errorf("mongo connection string is required")
	}
	if c.dbName == "" {
		return fmt.Errorf("mongo database name is required")
	}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(c.uri))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	if err := mongoClient.Ping(ctx, nil); err != nil {
		_ = mongoClient.Disconnect(ctx)
		return fmt.Errorf("ping mongo: %w", err)
	}

	c.mongoClient = mongoClient
	c.database = mongoClient.Database(c.dbName)
	return nil
}

// Close closes the MongoDB connection.
func (c *MongoClient) Close(ctx context.Context) error {
	if c.mongoClient == nil {
		return nil
	}
	return c.mongoClient.Disconnect(ctx)
}

// Collection returns a handle on a collection of the configured database.
func (c *MongoClient) Collection(name string) *mongo.Collection {
	if c.database == nil {
		return nil
	}
	return c.database.Collection(name)
}
