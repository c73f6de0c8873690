// Package store persists the reconciled request set between runs as a
// single JSON snapshot file, read and rewritten wholesale each run.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lwedwards3/dhp-sync/pkg/model"
)

type Store struct {
	Path string
}

func New(path string) *Store {
	return &Store{Path: path}
}

// Load reads the previous run's request set. A missing snapshot is an
// empty set, not an error, so a first run starts clean.
func (s *Store) Load() ([]*model.Request, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return []*model.Request{}, nil
		}
		return nil, fmt.Errorf("could not open snapshot %s: %w", s.Path, err)
	}
	defer f.Close()

	var requests []*model.Request
	if err := json.NewDecoder(f).Decode(&requests); err != nil {
		return nil, fmt.Errorf("could not decode snapshot %s: %w", s.Path, err)
	}
	return requests, nil
}

// Save replaces the snapshot with the full current request set. The write
// goes through a temp file and a rename, so a crash mid-write leaves the
// previous snapshot intact.
func (s *Store) Save(requests []*model.Request) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("could not create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("could not create snapshot temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(requests); err != nil {
		tmp.Close()
		return fmt.Errorf("could not encode snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not close snapshot temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("could not replace snapshot: %w", err)
	}
	return nil
}
