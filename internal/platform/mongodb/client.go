// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mongodb provides a managed MongoDB client for the document-backed
credential store (STORE_DRIVER=mongo).

Core Responsibilities:

  - Connectivity: Parses MONGODB_URI and validates it with a startup ping.
  - Pooling: Bounded pool sized like the PostgreSQL one.
*/
package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/taibuivan/shiftsphere/internal/platform/constants"
)

const (
	maxPoolSize     = 20
	minPoolSize     = 2
	connectTimeout  = 5 * time.Second
	pingTimeout     = 2 * time.Second
	maxConnIdleTime = 10 * time.Minute
)

// NewClient connects to MongoDB and verifies the primary is reachable.
//
// # Parameters
//   - ctx: Context for the initial ping.
//   - uri: A mongodb:// or mongodb+srv:// connection string.
//   - logger: Structured logger for connection events.
func NewClient(ctx context.Context, uri string, logger zerolog.Logger) (*mongo.Client, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetAppName(constants.AppName).
		SetMaxPoolSize(maxPoolSize).
		SetMinPoolSize(minPoolSize).
		SetMaxConnIdleTime(maxConnIdleTime).
		SetConnectTimeout(connectTimeout)

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb: failed to create client: %w", err)
	}

	if err := Ping(ctx, client); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, err
	}

	logger.Info().
		Uint64("max_pool_size", maxPoolSize).
		Msg("mongodb_client_connected")

	return client, nil
}

// Ping verifies that the primary node answers.
func Ping(ctx context.Context, client *mongo.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongodb: ping failed: %w", err)
	}

	return nil
}
