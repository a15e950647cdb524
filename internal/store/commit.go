package store

import (
	"fmt"
	"os"
	"sort"
)

// Committer is a table that can be written to disk as part of a Commit or
// an Update.
type Committer interface {
	Path() string
	stage() (string, error)
	written()
	acquire() (release func(), err error)
	refresh() error
	snapshot() (restore func())
}

// Commit writes every table to a temp file first and only then renames them
// into place. A failure while staging leaves all files untouched. A crash
// during the rename loop can still leave the files out of step with each
// other; there is no journal.
func Commit(tables ...Committer) error {
	staged := make([]string, 0, len(tables))
	cleanup := func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}

	for _, t := range tables {
		tmp, err := t.stage()
		if err != nil {
			cleanup()
			return err
		}
		staged = append(staged, tmp)
	}

	for i, t := range tables {
		if err := os.Rename(staged[i], t.Path()); err != nil {
			staged = staged[i:]
			cleanup()
			return fmt.Errorf("replace %s: %w", t.Path(), err)
		}
		t.written()
	}
	return nil
}

// Update is the read-modify-write cycle every repository write goes through.
// It takes each table's lock file in path order, reloads whatever another
// process wrote since, runs fn against the fresh rows and commits. If fn or
// the commit fails the in-memory rows go back to what was on disk.
func Update(fn func() error, tables ...Committer) error {
	ordered := append([]Committer(nil), tables...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Path() < ordered[j].Path() })

	for _, t := range ordered {
		release, err := t.acquire()
		if err != nil {
			return err
		}
		defer release()
	}

	restores := make([]func(), 0, len(ordered))
	for _, t := range ordered {
		if err := t.refresh(); err != nil {
			return err
		}
		restores = append(restores, t.snapshot())
	}
	rollback := func() {
		for _, restore := range restores {
			restore()
		}
	}

	if err := fn(); err != nil {
		rollback()
		return err
	}
	if err := Commit(tables...); err != nil {
		rollback()
		return err
	}
	return nil
}
