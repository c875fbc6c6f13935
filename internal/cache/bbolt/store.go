// Package bbolt provides a BoltDB-backed namespace cache store.
package bbolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/yinruiqing/granola-lite-sub000/internal/cache"
)

const (
	entriesBucket = "entries"
	orderBucket   = "order"
)

// Store provides a BoltDB-backed cache store. Each namespace is one top-level
// bucket holding an entries bucket keyed by request identity and an order
// bucket keyed by insertion sequence.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// EnsureNamespaces creates the named buckets if they do not exist.
func (s *Store) EnsureNamespaces(ctx context.Context, names ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("cache store is not configured")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range names {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("namespace name is required")
			}
			ns, err := tx.CreateBucketIfNotExists([]byte(name))
			if err != nil {
				return fmt.Errorf("create namespace %s: %w", name, err)
			}
			if _, err := ns.CreateBucketIfNotExists([]byte(entriesBucket)); err != nil {
				return fmt.Errorf("create entries bucket %s: %w", name, err)
			}
			if _, err := ns.CreateBucketIfNotExists([]byte(orderBucket)); err != nil {
				return fmt.Errorf("create order bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// Get fetches a stored snapshot by key.
func (s *Store) Get(ctx context.Context, namespace, key string) (cache.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return cache.Snapshot{}, err
	}
	if s == nil || s.db == nil {
		return cache.Snapshot{}, fmt.Errorf("cache store is not configured")
	}

	var snapshot cache.Snapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		entries := entriesIn(tx, namespace)
		if entries == nil {
			return cache.ErrNotFound
		}
		payload := entries.Get([]byte(key))
		if payload == nil {
			return cache.ErrNotFound
		}
		if err := json.Unmarshal(payload, &snapshot); err != nil {
			return fmt.Errorf("unmarshal snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return cache.Snapshot{}, err
	}
	return snapshot, nil
}

// Put stores a snapshot. Overwriting an existing key keeps its original
// insertion position.
func (s *Store) Put(ctx context.Context, namespace, key string, snapshot cache.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("cache store is not configured")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("cache key is required")
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		ns, err := tx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return fmt.Errorf("create namespace %s: %w", namespace, err)
		}
		entries, err := ns.CreateBucketIfNotExists([]byte(entriesBucket))
		if err != nil {
			return fmt.Errorf("create entries bucket: %w", err)
		}
		order, err := ns.CreateBucketIfNotExists([]byte(orderBucket))
		if err != nil {
			return fmt.Errorf("create order bucket: %w", err)
		}

		if entries.Get([]byte(key)) == nil {
			seq, err := ns.NextSequence()
			if err != nil {
				return fmt.Errorf("next sequence: %w", err)
			}
			if err := order.Put(sequenceKey(seq), []byte(key)); err != nil {
				return fmt.Errorf("record insertion order: %w", err)
			}
		}
		return entries.Put([]byte(key), payload)
	})
}

// Delete removes one entry. Deleting a missing entry is a no-op.
func (s *Store) Delete(ctx context.Context, namespace, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("cache store is not configured")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		ns := tx.Bucket([]byte(namespace))
		if ns == nil {
			return nil
		}
		entries := ns.Bucket([]byte(entriesBucket))
		order := ns.Bucket([]byte(orderBucket))
		if entries == nil {
			return nil
		}
		if err := entries.Delete([]byte(key)); err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}
		if order == nil {
			return nil
		}
		cursor := order.Cursor()
		for seq, entryKey := cursor.First(); seq != nil; seq, entryKey = cursor.Next() {
			if string(entryKey) == key {
				if err := order.Delete(seq); err != nil {
					return fmt.Errorf("delete order record: %w", err)
				}
				break
			}
		}
		return nil
	})
}

// Keys enumerates entry keys in insertion order.
func (s *Store) Keys(ctx context.Context, namespace string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("cache store is not configured")
	}

	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		ns := tx.Bucket([]byte(namespace))
		if ns == nil {
			return nil
		}
		order := ns.Bucket([]byte(orderBucket))
		if order == nil {
			return nil
		}
		return order.ForEach(func(_, entryKey []byte) error {
			keys = append(keys, string(entryKey))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Namespaces enumerates all top-level namespace names on disk.
func (s *Store) Namespaces(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("cache store is not configured")
	}

	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			names = append(names, string(name))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// DeleteNamespace removes a namespace and everything in it. Deleting a missing
// namespace is a no-op.
func (s *Store) DeleteNamespace(ctx context.Context, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("cache store is not configured")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		err := tx.DeleteBucket([]byte(namespace))
		if err == bbolt.ErrBucketNotFound {
			return nil
		}
		return err
	})
}

// Trim evicts oldest-inserted entries until the namespace holds at most max
// entries. Reads never refresh position, so eviction is FIFO by insertion, not
// LRU.
func (s *Store) Trim(ctx context.Context, namespace string, max int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("cache store is not configured")
	}
	if max < 0 {
		return nil, fmt.Errorf("trim limit must be non-negative")
	}

	var evicted []string
	err := s.db.Update(func(tx *bbolt.Tx) error {
		ns := tx.Bucket([]byte(namespace))
		if ns == nil {
			return nil
		}
		entries := ns.Bucket([]byte(entriesBucket))
		order := ns.Bucket([]byte(orderBucket))
		if entries == nil || order == nil {
			return nil
		}

		count := 0
		if err := entries.ForEach(func(_, _ []byte) error {
			count++
			return nil
		}); err != nil {
			return err
		}

		for count > max {
			cursor := order.Cursor()
			seq, entryKey := cursor.First()
			if seq == nil {
				break
			}
			if err := entries.Delete(entryKey); err != nil {
				return fmt.Errorf("evict entry: %w", err)
			}
			if err := order.Delete(seq); err != nil {
				return fmt.Errorf("evict order record: %w", err)
			}
			evicted = append(evicted, string(entryKey))
			count--
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return evicted, nil
}

func entriesIn(tx *bbolt.Tx, namespace string) *bbolt.Bucket {
	ns := tx.Bucket([]byte(namespace))
	if ns == nil {
		return nil
	}
	return ns.Bucket([]byte(entriesBucket))
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
