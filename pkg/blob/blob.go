// Package blob stores uploaded image bytes.
//
// A [Store] maps string keys to byte streams with a content type. Two
// backends are provided: [Badger] keeps blobs in an embedded key-value store
// (on disk, or in memory for tests and single-shot CLI runs), and [MinIO]
// keeps them in an S3-compatible bucket for the HTTP service.
//
// Keys are slash-separated paths. Images of an editing session live under
// [SessionPrefix], so deleting a session is a single [Store.DeletePrefix].
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by Get when no blob exists for the key.
var ErrNotFound = errors.New("blob: not found")

// Info describes a stored blob.
type Info struct {
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	ModTime     time.Time `json:"mod_time"`
}

// Store is a goroutine-safe blob store.
type Store interface {
	// Put stores size bytes read from r under key, replacing any previous blob.
	// A negative size reads r to EOF.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Get opens the blob stored under key. The caller must close the reader.
	// Returns ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) (io.ReadCloser, Info, error)

	// Delete removes a blob. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every blob whose key starts with prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Close releases resources held by the store.
	Close() error
}

// SessionPrefix returns the key prefix under which a session's images live.
func SessionPrefix(sessionID string) string {
	return "sessions/" + sessionID + "/"
}

// ImageKey returns the key of one uploaded image.
func ImageKey(sessionID, imageID string) string {
	return SessionPrefix(sessionID) + "images/" + imageID
}

// ExportKey returns the key of a rendered export of a session.
func ExportKey(sessionID, name string) string {
	return SessionPrefix(sessionID) + "exports/" + name
}
