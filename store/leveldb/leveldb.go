// Package leveldb provides a durable store.Store over a local LevelDB
// database. This is the default partition store for single-host deployments:
// cached entries survive process restarts, and prefix iteration makes
// partition deletion and janitor sweeps cheap.
package leveldb

import (
	"context"

	ldb "github.com/syndtr/goleveldb/leveldb"
	ldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	st "github.com/unkn0wn-root/offcache/store"
)

type Store struct {
	db *ldb.DB
}

var _ st.Store = (*Store)(nil)

// Open opens (creating if absent) a LevelDB database at path.
func Open(path string) (*Store, error) {
	db, err := ldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a LevelDB database backed by volatile storage.
// Handy for tests that want the real iterator semantics without disk.
func OpenInMemory() (*Store, error) {
	db, err := ldb.Open(ldbstorage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := s.db.Get([]byte(key), nil)
	if err == ldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	return s.db.Put([]byte(key), value, nil)
}

func (s *Store) Del(_ context.Context, key string) error {
	return s.db.Delete([]byte(key), nil)
}

func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	it := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer it.Release()

	var out []string
	for it.Next() {
		out = append(out, string(it.Key()))
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Close(context.Context) error {
	return s.db.Close()
}
