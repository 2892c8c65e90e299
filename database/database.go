package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

const (
	connectAttempts = 3
	connectBackoff  = 2 * time.Second
	connectTimeout  = 15 * time.Second
)

// Database owns the MongoDB client and the collection-backed stores.
type Database struct {
	Client *mongo.Client
	Users  *UserStore
	Posts  *PostStore

	log *slog.Logger
}

// Connect dials MongoDB, retrying a few times, pings it and makes sure the
// indexes exist. The server must not start accepting requests before this
// returns without error.
func Connect(ctx context.Context, uri, dbName string, log *slog.Logger) (*Database, error) {
	var (
		client *mongo.Client
		err    error
	)
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		client, err = connectOnce(ctx, uri)
		if err == nil {
			break
		}
		log.Warn("[database] MongoDB connection attempt failed", "attempt", attempt, "err", err)
		if attempt < connectAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(connectBackoff):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	db := client.Database(dbName)
	d := &Database{
		Client: client,
		Users:  NewUserStore(db),
		Posts:  NewPostStore(db),
		log:    log,
	}

	idxCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := d.Users.EnsureIndexes(idxCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Info("[database] connected to MongoDB", "db", dbName)
	return d, nil
}

func connectOnce(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// Ping reports whether the deployment is reachable; used by the health check.
func (d *Database) Ping(ctx context.Context) error {
	return d.Client.Ping(ctx, nil)
}

func (d *Database) Disconnect(ctx context.Context) error {
	if d == nil || d.Client == nil {
		return nil
	}
	if err := d.Client.Disconnect(ctx); err != nil {
		return err
	}
	d.log.Info("[database] disconnected from MongoDB")
	return nil
}
