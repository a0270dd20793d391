// Package mongo stores exported documents in a MongoDB collection with a
// TTL index on createdAt.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakuffo/sakwatch/internal/logger"
	"github.com/sakuffo/sakwatch/internal/output"
)

const ttlIndexName = "ttl_createdAt"

// Config selects the target collection.
type Config struct {
	URI        string
	Database   string
	Collection string
	TTLDays    int // 0 disables expiry
}

type collection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// Output inserts one record per document.
type Output struct {
	client *mongo.Client
	coll   collection
	log    logger.Logger
}

// New connects to MongoDB, verifies the connection and makes sure the TTL
// index exists. A failed index creation is logged, not returned.
func New(ctx context.Context, cfg Config, log logger.Logger) (*Output, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongo output: uri is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo output: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo output: ping: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	if cfg.TTLDays > 0 {
		model := mongo.IndexModel{
			Keys: bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().
				SetName(ttlIndexName).
				SetExpireAfterSeconds(int32(cfg.TTLDays * 24 * 3600)),
		}
		if _, err := coll.Indexes().CreateOne(ctx, model); err != nil {
			log.Warn("Create TTL index on %s.%s failed: %v", cfg.Database, cfg.Collection, err)
		}
	}

	log.Info("MongoDB output ready: %s.%s", cfg.Database, cfg.Collection)
	return &Output{client: client, coll: coll, log: log}, nil
}

// Write decodes the JSON source and inserts it under the document ID.
func (o *Output) Write(ctx context.Context, doc output.Document) error {
	rec, err := record(doc)
	if err != nil {
		return err
	}
	if _, err := o.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("mongo output: insert %s: %w", doc.ID, err)
	}
	return nil
}

// Close disconnects the client.
func (o *Output) Close() error {
	if o.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo output: disconnect: %w", err)
	}
	return nil
}

// record builds the stored form: _id, _index and createdAt followed by the
// document fields in source order.
func record(doc output.Document) (bson.D, error) {
	var body bson.D
	if err := bson.UnmarshalExtJSON(doc.Source, false, &body); err != nil {
		return nil, fmt.Errorf("mongo output: decode %s: %w", doc.ID, err)
	}
	rec := make(bson.D, 0, len(body)+3)
	rec = append(rec,
		bson.E{Key: "_id", Value: doc.ID},
		bson.E{Key: "_index", Value: doc.Index},
		bson.E{Key: "createdAt", Value: time.UnixMilli(doc.Timestamp).UTC()},
	)
	return append(rec, body...), nil
}
