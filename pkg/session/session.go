// Package session stores collage editing sessions.
//
// A session is the server-side state of one collage being edited: the
// template it started from, the current layout and the uploaded images.
// Image bytes live in a blob store under the session prefix; the session
// only records their metadata.
//
// Implementations for different backends:
//   - [MemoryStore]: in-process storage for tests and single-user runs
//   - [FileStore]: JSON files in a directory
//   - [RedisStore]: Redis-backed storage for multi-instance deployments
//   - [MongoStore]: a MongoDB collection
//
// Stores keep expired sessions until they are deleted so that a sweeper can
// find them with Expired and remove their blobs as well:
//
//	ids, err := store.Expired(ctx, time.Now())
//	for _, id := range ids {
//	    blobs.DeletePrefix(ctx, blob.SessionPrefix(id))
//	    store.Delete(ctx, id)
//	}
package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/gridcollage/pkg/collage/grid"
	"github.com/matzehuels/gridcollage/pkg/collage/images"
)

// DefaultTTL is the default session duration.
const DefaultTTL = 24 * time.Hour

// Session stores one collage being edited.
type Session struct {
	ID        string      `json:"id" bson:"_id"`
	Template  string      `json:"template" bson:"template"`
	Layout    grid.Layout `json:"layout" bson:"layout"`
	Images    images.Set  `json:"images" bson:"images"`
	CreatedAt time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" bson:"updated_at"`
	ExpiresAt time.Time   `json:"expires_at" bson:"expires_at"`
}

// New creates a session with a fresh id for the given template and layout.
func New(template string, l grid.Layout, ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		Template:  template,
		Layout:    l,
		Images:    images.Set{},
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return s.IsExpiredAt(time.Now())
}

// IsExpiredAt reports whether the session has expired at t.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !s.ExpiresAt.IsZero() && t.After(s.ExpiresAt)
}

// Touch records a modification and extends the expiry to ttl from now.
func (s *Session) Touch(ttl time.Duration) {
	now := time.Now().UTC()
	s.UpdatedAt = now
	s.ExpiresAt = now.Add(ttl)
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	c.Layout = s.Layout.Clone()
	c.Images = append(images.Set(nil), s.Images...)
	return &c
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Set stores a session, replacing any previous version.
	Set(ctx context.Context, sess *Session) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// Expired lists the ids of sessions that expired at or before now.
	Expired(ctx context.Context, now time.Time) ([]string, error)

	// Close releases the backend connection.
	Close() error
}

func marshal(sess *Session) ([]byte, error) {
	return json.Marshal(sess)
}

func unmarshal(data []byte) (*Session, error) {
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}
