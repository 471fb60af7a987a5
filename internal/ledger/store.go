// Package ledger persists the set of accounts this tool believes it
// disabled. The file is the durable half of the lifecycle state
// machine: one account name per line, operator-editable, mutated only
// by the reconciliation engine.
package ledger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sfwani/lockdown/internal/hostfs"
)

type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Ensure creates the backing directory and an empty ledger file if
// missing, so later appends never fail on a missing parent.
func (s *Store) Ensure() error {
	if err := hostfs.EnsureDir(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	return hostfs.EnsureFile(s.path, 0600)
}

// Load returns the set of ledger entries. A missing file is an empty
// ledger, not an error. Blank lines and duplicates (an operator edited
// the file by hand) are tolerated.
func (s *Store) Load() (map[string]struct{}, error) {
	b, err := hostfs.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]struct{}{}, nil
		}
		return nil, err
	}
	set := map[string]struct{}{}
	for _, line := range strings.Split(string(b), "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	return set, nil
}

func (s *Store) Contains(name string) (bool, error) {
	set, err := s.Load()
	if err != nil {
		return false, err
	}
	_, ok := set[name]
	return ok, nil
}

// Add records name as disabled. Idempotent: an already-present name is
// left alone, never duplicated.
func (s *Store) Add(name string) error {
	set, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := set[name]; ok {
		return nil
	}
	set[name] = struct{}{}
	return s.save(set)
}

// Remove drops name from the ledger. Removing an absent name is a
// no-op.
func (s *Store) Remove(name string) error {
	set, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := set[name]; !ok {
		return nil
	}
	delete(set, name)
	return s.save(set)
}

// Clear empties the ledger. The CLI gates this behind its own
// confirmation; it is never part of a normal batch.
func (s *Store) Clear() error {
	return s.save(map[string]struct{}{})
}

func (s *Store) save(set map[string]struct{}) error {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	for _, n := range names {
		buf.WriteString(n)
		buf.WriteByte('\n')
	}
	return hostfs.WriteFileAtomic(s.path, buf.Bytes(), 0600)
}
