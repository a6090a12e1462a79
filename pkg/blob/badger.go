package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	errs "github.com/matzehuels/gridcollage/pkg/errors"
)

const (
	dataPrefix = "d:"
	infoPrefix = "i:"
)

// Badger is a Store backed by an embedded Badger database.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a Badger store in dir. An empty dir keeps
// everything in memory.
func OpenBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

// Put implements Store.
func (b *Badger) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := errs.ValidatePath(key); err != nil {
		return err
	}
	if size >= 0 {
		r = io.LimitReader(r, size)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read blob: %w", err)
	}
	meta, err := json.Marshal(Info{
		Key:         key,
		Size:        int64(len(data)),
		ContentType: contentType,
		ModTime:     time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(dataPrefix+key), data); err != nil {
			return fmt.Errorf("set data: %w", err)
		}
		return txn.Set([]byte(infoPrefix+key), meta)
	})
}

// Get implements Store.
func (b *Badger) Get(ctx context.Context, key string) (io.ReadCloser, Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, Info{}, err
	}
	var (
		info Info
		data []byte
	)
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(infoPrefix + key))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &info)
		}); err != nil {
			return err
		}

		item, err = txn.Get([]byte(dataPrefix + key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, Info{}, ErrNotFound
	}
	if err != nil {
		return nil, Info{}, fmt.Errorf("get %s: %w", key, err)
	}
	return io.NopCloser(bytes.NewReader(data)), info, nil
}

// Delete implements Store.
func (b *Badger) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(infoPrefix + key)); err != nil {
			return err
		}
		return txn.Delete([]byte(dataPrefix + key))
	})
}

// DeletePrefix implements Store.
func (b *Badger) DeletePrefix(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(infoPrefix + prefix)

		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().Key()[len(infoPrefix):]))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("list %s: %w", prefix, err)
	}

	for _, key := range keys {
		if err := b.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

// Close implements Store.
func (b *Badger) Close() error {
	return b.db.Close()
}
