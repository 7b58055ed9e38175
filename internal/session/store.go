// Package session decides which cookie set backs an automation session and
// how the captured set is persisted between runs.
package session

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"

	"xlocal/internal/cookies"
)

// Store persists the session cookie set between process invocations. The
// file-backed implementation is the production one; tests substitute an
// in-memory store.
type Store interface {
	Load() ([]cookies.Record, error)
	Save([]cookies.Record) error
}

// FileStore keeps the cookie set as a single JSON array document. Writes
// replace the whole document so a concurrent reader sees either the old or
// the new complete set.
type FileStore struct {
	Path string
}

func (s *FileStore) Load() ([]cookies.Record, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var recs []cookies.Record
	if err := json.Unmarshal(b, &recs); err != nil {
		// A corrupt session file is equivalent to no saved session.
		return nil, nil
	}
	return cookies.Filter(recs), nil
}

func (s *FileStore) Save(recs []cookies.Record) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), fs.ModePerm); err != nil {
		return err
	}
	b, err := json.Marshal(recs)
	if err != nil {
		return err
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}

// MemStore is the in-memory Store used by tests.
type MemStore struct {
	Records []cookies.Record
	LoadErr error
}

func (s *MemStore) Load() ([]cookies.Record, error) {
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	return cookies.Filter(s.Records), nil
}

func (s *MemStore) Save(recs []cookies.Record) error {
	s.Records = append([]cookies.Record{}, recs...)
	return nil
}
