package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig configures a MongoStore.
type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// MongoStore stores one document per session, keyed by session id, with an
// index on expires_at.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to MongoDB, verifies the connection and ensures the
// expiry index exists. Database defaults to "gridcollage" and Collection to
// "sessions".
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongo uri is required")
	}
	if cfg.Database == "" {
		cfg.Database = "gridcollage"
	}
	if cfg.Collection == "" {
		cfg.Collection = "sessions"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &MongoStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}
	if _, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "expires_at", Value: 1}},
	}); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create expiry index: %w", err)
	}
	return s, nil
}

func (s *MongoStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	var sess Session
	err := s.coll.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&sess)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess.IsExpired() {
		return nil, nil
	}
	return &sess, nil
}

func (s *MongoStore) Set(ctx context.Context, sess *Session) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": sess.ID}, sess, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": sessionID}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *MongoStore) Expired(ctx context.Context, now time.Time) ([]string, error) {
	cur, err := s.coll.Find(ctx,
		expiredFilter(now),
		options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("list expired sessions: %w", err)
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode session id: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	return ids, cur.Err()
}

// expiredFilter matches sessions with a set expiry at or before now.
func expiredFilter(now time.Time) bson.M {
	return bson.M{"expires_at": bson.M{
		"$lte": now,
		"$gt":  time.Time{},
	}}
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
