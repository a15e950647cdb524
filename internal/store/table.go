package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gofrs/flock"
)

var (
	ErrMalformedRow   = errors.New("malformed row")
	ErrHeaderMismatch = errors.New("csv header mismatch")
	ErrRowNotFound    = errors.New("row not found")
	ErrNoFreeID       = errors.New("no free id")
)

const maxIDAttempts = 8

// Codec maps one entity type to and from a CSV row.
type Codec[T any] interface {
	Header() []string
	Key(v T) string
	Encode(v T) []string
	Decode(row []string) (T, error)
}

// Table is an in-memory keyed collection backed by a single CSV file.
// Other processes may replace the file at any time; Refresh picks their
// writes up and Update serialises writers through <file>.lock.
type Table[T any] struct {
	path  string
	codec Codec[T]

	mu   sync.RWMutex
	rows map[string]T
	seen os.FileInfo // file as of the last Load or write, nil if absent

	writeMu sync.Mutex
	lock    *flock.Flock
}

func NewTable[T any](path string, codec Codec[T]) *Table[T] {
	return &Table[T]{
		path:  path,
		codec: codec,
		rows:  make(map[string]T),
		lock:  flock.New(path + ".lock"),
	}
}

func (t *Table[T]) Path() string { return t.path }

// Load replaces the in-memory rows with the file contents. A missing file
// loads as an empty table.
func (t *Table[T]) Load() error {
	f, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			t.replace(make(map[string]T), nil)
			return nil
		}
		return fmt.Errorf("open %s: %w", t.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", filepath.Base(t.path), err)
	}
	rows, err := t.read(f)
	if err != nil {
		return fmt.Errorf("load %s: %w", filepath.Base(t.path), err)
	}
	t.replace(rows, info)
	return nil
}

// Refresh reloads the table if its file was replaced or changed since this
// table last read or wrote it. It is a no-op while an Update on this table
// is running, since that Update has already refreshed under the lock file.
func (t *Table[T]) Refresh() error {
	if !t.writeMu.TryLock() {
		return nil
	}
	defer t.writeMu.Unlock()
	return t.refresh()
}

func (t *Table[T]) refresh() error {
	info, err := os.Stat(t.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", filepath.Base(t.path), err)
	}
	t.mu.RLock()
	unchanged := sameFile(t.seen, info)
	t.mu.RUnlock()
	if unchanged {
		return nil
	}
	return t.Load()
}

func (t *Table[T]) replace(rows map[string]T, info os.FileInfo) {
	t.mu.Lock()
	t.rows = rows
	t.seen = info
	t.mu.Unlock()
}

// Update refreshes the table, applies fn and writes the result while holding
// the table's lock file. See the package-level Update.
func (t *Table[T]) Update(fn func() error) error {
	return Update(fn, t)
}

// Insert draws ids until one is free, stores build(id) and writes the table,
// all under the lock file, so two processes never hand out the same id.
func (t *Table[T]) Insert(ids IDGenerator, build func(id string) T) (T, error) {
	var row T
	err := t.Update(func() error {
		id, err := FreeID(ids, t.Has)
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(t.path), err)
		}
		row = build(id)
		t.Put(row)
		return nil
	})
	return row, err
}

// Modify applies fn to a fresh copy of row id and writes it back under the
// lock file. A missing row returns ErrRowNotFound.
func (t *Table[T]) Modify(id string, fn func(v *T) error) (T, error) {
	var row T
	err := t.Update(func() error {
		v, ok := t.Get(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrRowNotFound, id)
		}
		if err := fn(&v); err != nil {
			return err
		}
		t.Put(v)
		row = v
		return nil
	})
	return row, err
}

func (t *Table[T]) acquire() (func(), error) {
	t.writeMu.Lock()
	if err := t.lock.Lock(); err != nil {
		t.writeMu.Unlock()
		return nil, fmt.Errorf("lock %s: %w", filepath.Base(t.path), err)
	}
	return func() {
		t.lock.Unlock()
		t.writeMu.Unlock()
	}, nil
}

func (t *Table[T]) snapshot() func() {
	t.mu.RLock()
	saved, seen := maps.Clone(t.rows), t.seen
	t.mu.RUnlock()
	return func() {
		t.mu.Lock()
		t.rows, t.seen = saved, seen
		t.mu.Unlock()
	}
}

// written records the file just renamed into place so Refresh does not
// reload our own write.
func (t *Table[T]) written() {
	info, err := os.Stat(t.path)
	if err != nil {
		info = nil
	}
	t.mu.Lock()
	t.seen = info
	t.mu.Unlock()
}

func (t *Table[T]) read(r io.Reader) (map[string]T, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	rows := make(map[string]T)

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !sameHeader(header, t.codec.Header()) {
		return nil, fmt.Errorf("%w: got %v", ErrHeaderMismatch, header)
	}

	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("%w: line %d has %d fields, want %d", ErrMalformedRow, line, len(rec), len(header))
		}
		v, err := t.codec.Decode(rec)
		if err != nil {
			return nil, fmt.Errorf("decode line %d: %w", line, err)
		}
		rows[t.codec.Key(v)] = v
	}
	return rows, nil
}

func (t *Table[T]) Get(id string) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.rows[id]
	return v, ok
}

func (t *Table[T]) Has(id string) bool {
	_, ok := t.Get(id)
	return ok
}

func (t *Table[T]) Put(v T) {
	t.mu.Lock()
	t.rows[t.codec.Key(v)] = v
	t.mu.Unlock()
}

func (t *Table[T]) Remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	return true
}

func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Keys returns every key in ascending order.
func (t *Table[T]) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sortedKeys()
}

// All returns every row ordered by key.
func (t *Table[T]) All() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]T, 0, len(t.rows))
	for _, k := range t.sortedKeys() {
		out = append(out, t.rows[k])
	}
	return out
}

// Filter returns the rows matching keep, ordered by key.
func (t *Table[T]) Filter(keep func(T) bool) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []T
	for _, k := range t.sortedKeys() {
		if v := t.rows[k]; keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func (t *Table[T]) sortedKeys() []string {
	keys := make([]string, 0, len(t.rows))
	for k := range t.rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SaveAll rewrites the whole backing file from memory without looking at
// what is on disk. Repositories go through Update instead.
func (t *Table[T]) SaveAll() error {
	return Commit(t)
}

func (t *Table[T]) stage() (string, error) {
	dir := filepath.Dir(t.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(t.path)+".*")
	if err != nil {
		return "", fmt.Errorf("create temp for %s: %w", filepath.Base(t.path), err)
	}

	cw := csv.NewWriter(tmp)
	if err := cw.Write(t.codec.Header()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write header: %w", err)
	}
	for _, v := range t.All() {
		if err := cw.Write(t.codec.Encode(v)); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return "", fmt.Errorf("write record %s: %w", t.codec.Key(v), err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("flush %s: %w", filepath.Base(t.path), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("sync %s: %w", filepath.Base(t.path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close %s: %w", filepath.Base(t.path), err)
	}
	return tmp.Name(), nil
}

func sameHeader(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// sameFile reports whether b is still the file a describes. Writes always
// rename a new file into place, so a changed inode, size or mtime all mean
// someone wrote it.
func sameFile(a, b os.FileInfo) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return os.SameFile(a, b) && a.Size() == b.Size() && a.ModTime().Equal(b.ModTime())
}
