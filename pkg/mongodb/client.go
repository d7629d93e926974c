// Package mongodb connects to MongoDB and instruments the collections the
// pickup processes write to.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/resilience"
)

const pingTimeout = 5 * time.Second

// Config describes one MongoDB deployment. Credentials and replica set
// options travel in the URI.
type Config struct {
	URI            string
	Database       string
	AppName        string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
	MinPoolSize    uint64
}

// DefaultConfig points at a local single node
func DefaultConfig() *Config {
	return &Config{
		URI:            "mongodb://localhost:27017",
		Database:       "pickup_db",
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    100,
		MinPoolSize:    10,
	}
}

func (c *Config) clientOptions() *options.ClientOptions {
	opts := options.Client().
		ApplyURI(c.URI).
		SetConnectTimeout(c.ConnectTimeout).
		SetMaxPoolSize(c.MaxPoolSize).
		SetMinPoolSize(c.MinPoolSize)
	if c.AppName != "" {
		opts.SetAppName(c.AppName)
	}
	return opts
}

// Client is a connected driver client bound to one database
type Client struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewClient connects and waits for the primary to answer a ping. The ping
// is retried with backoff so the processes can start alongside the database.
func NewClient(ctx context.Context, config *Config) (*Client, error) {
	client, err := mongo.Connect(ctx, config.clientOptions())
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	err = resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() error {
		return ping(ctx, client)
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &Client{client: client, database: client.Database(config.Database)}, nil
}

func ping(ctx context.Context, client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return client.Ping(ctx, readpref.Primary())
}

// Database returns the configured database
func (c *Client) Database() *mongo.Database {
	return c.database
}

// HealthCheck pings the primary
func (c *Client) HealthCheck(ctx context.Context) error {
	return ping(ctx, c.client)
}

// Close disconnects from the deployment
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
