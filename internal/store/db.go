package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DB is the set of CSV tables living in one data directory. Tables opened
// twice under the same file name share a single in-memory instance, so two
// repositories can see each other's writes. Another DB on the same directory,
// in this process or another one, is seen through Table.Refresh and
// serialised with through each table's lock file.
type DB struct {
	dir    string
	tables map[string]any
}

func Open(dir string) (*DB, error) {
	if dir == "" {
		return nil, fmt.Errorf("open store: empty data directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &DB{dir: dir, tables: make(map[string]any)}, nil
}

func (db *DB) Dir() string { return db.dir }

// OpenTable returns the table stored in name, loading it on first use.
func OpenTable[T any](db *DB, name string, codec Codec[T]) (*Table[T], error) {
	if existing, ok := db.tables[name]; ok {
		t, ok := existing.(*Table[T])
		if !ok {
			return nil, fmt.Errorf("table %s already opened with a different row type", name)
		}
		return t, nil
	}

	t := NewTable(filepath.Join(db.dir, name), codec)
	if err := t.Load(); err != nil {
		return nil, err
	}
	db.tables[name] = t
	return t, nil
}
