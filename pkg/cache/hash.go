package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashKey returns kind, a colon, and the SHA-256 of the JSON encoding of
// parts. Each part is encoded on its own line so adjacent parts cannot run
// together.
func hashKey(kind string, parts ...any) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, p := range parts {
		_ = enc.Encode(p)
	}
	return kind + ":" + hex.EncodeToString(h.Sum(nil))
}
