// Package testkit starts the throwaway infrastructure the integration
// suites run against.
package testkit

import (
	"context"
	"fmt"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoImage is the server version the suites run against
const MongoImage = "mongo:6"

// Integration skips t under -short or when no container runtime answers
func Integration(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

// Mongo is a single node replica set, which multi-document transactions need
type Mongo struct {
	Client    *mongo.Client
	URI       string
	container *mongodb.MongoDBContainer
}

// StartMongo runs the container and connects a client to it
func StartMongo(ctx context.Context) (*Mongo, error) {
	container, err := mongodb.Run(ctx, MongoImage, mongodb.WithReplicaSet("rs0"))
	if err != nil {
		return nil, fmt.Errorf("start mongo container: %w", err)
	}
	m := &Mongo{container: container}

	if m.URI, err = container.ConnectionString(ctx); err != nil {
		_ = m.Stop(ctx)
		return nil, fmt.Errorf("mongo connection string: %w", err)
	}
	if m.Client, err = mongo.Connect(ctx, options.Client().ApplyURI(m.URI).SetDirect(true)); err != nil {
		_ = m.Stop(ctx)
		return nil, fmt.Errorf("connect to mongo container: %w", err)
	}
	if err := m.Client.Ping(ctx, readpref.Primary()); err != nil {
		_ = m.Stop(ctx)
		return nil, fmt.Errorf("ping mongo container: %w", err)
	}
	return m, nil
}

// Database returns a handle on name
func (m *Mongo) Database(name string) *mongo.Database {
	return m.Client.Database(name)
}

// Truncate empties the named collections of db
func (m *Mongo) Truncate(ctx context.Context, db *mongo.Database, collections ...string) error {
	for _, name := range collections {
		if _, err := db.Collection(name).DeleteMany(ctx, bson.D{}); err != nil {
			return fmt.Errorf("truncate %s: %w", name, err)
		}
	}
	return nil
}

// Stop disconnects the client and removes the container
func (m *Mongo) Stop(ctx context.Context) error {
	if m.Client != nil {
		_ = m.Client.Disconnect(ctx)
	}
	return m.container.Terminate(ctx)
}
