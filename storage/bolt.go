package storage

import (
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketDefault = []byte("meshledger")

// BoltStore is the reference Store implementation, backed by a single
// bbolt file with one bucket. Grounded on the teacher's node/store/db.go
// bbolt wiring (bucket-per-concern KV over a single file database).
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (creating if absent) a bbolt database at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, storageErrWrap(ErrOpen, "open bbolt database", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDefault)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, storageErrWrap(ErrBucket, "create default bucket", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Put(key string, value []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDefault).Put([]byte(key), value)
	})
	if err != nil {
		return storageErrWrap(ErrPut, "put "+key, err)
	}
	return nil
}

func (s *BoltStore) Get(key string) ([]byte, bool, error) {
	var out []byte
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketDefault).Get([]byte(key))
		if v == nil {
			return nil
		}
		found = true
		out = make([]byte, len(v))
		copy(out, v)
		return nil
	})
	if err != nil {
		return nil, false, storageErrWrap(ErrGet, "get "+key, err)
	}
	return out, found, nil
}

func (s *BoltStore) Delete(key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDefault).Delete([]byte(key))
	})
	if err != nil {
		return storageErrWrap(ErrDelete, "delete "+key, err)
	}
	return nil
}

func (s *BoltStore) ScanPrefix(prefix string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketDefault).Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && strings.HasPrefix(string(k), prefix); k, v = c.Next() {
			val := make([]byte, len(v))
			copy(val, v)
			out[string(k)] = val
		}
		return nil
	})
	if err != nil {
		return nil, storageErrWrap(ErrScan, "scan prefix "+prefix, err)
	}
	return out, nil
}

func (s *BoltStore) Flush() error {
	if err := s.db.Sync(); err != nil {
		return storageErrWrap(ErrFlush, "sync", err)
	}
	return nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

var _ Store = (*BoltStore)(nil)
