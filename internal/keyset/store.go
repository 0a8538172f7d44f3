package keyset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"
)

const keysetExt = ".yaml"

// Store keeps one YAML file per keyset in a directory.
type Store struct {
	dir   string
	mu    sync.RWMutex
	clock func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewStore opens the keyset directory, creating it if needed.
func NewStore(dir string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("keyset directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create keyset directory: %w", err)
	}
	s := &Store{dir: dir, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes ks to disk, assigning an id and timestamps when missing.
func (s *Store) Save(ks *Keyset) error {
	if ks == nil {
		return errors.New("keyset is nil")
	}
	if ks.Name == "" {
		return ErrNameRequired
	}
	if err := ks.Verify(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock().UTC()
	if ks.ID == "" {
		ks.ID = ulid.Make().String()
	}
	if ks.CreatedAt.IsZero() {
		ks.CreatedAt = now
	}
	ks.UpdatedAt = now

	data, err := yaml.Marshal(ks)
	if err != nil {
		return fmt.Errorf("marshal keyset: %w", err)
	}

	path, err := s.path(ks.ID)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write keyset file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace keyset file: %w", err)
	}
	return nil
}

// Load reads the keyset stored under id and verifies its fingerprint.
func (s *Store) Load(id string) (*Keyset, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return readKeyset(path, id)
}

// FindByName returns the most recently created keyset called name. Unreadable
// files in the directory only matter when no readable keyset matches.
func (s *Store) FindByName(name string) (*Keyset, error) {
	keysets, listErr := s.List()
	if listErr != nil && !errors.Is(listErr, ErrUnreadableKeyset) {
		return nil, listErr
	}
	for i := len(keysets) - 1; i >= 0; i-- {
		if keysets[i].Name == name {
			return keysets[i], nil
		}
	}
	notFound := fmt.Errorf("%w: %s", ErrKeysetNotFound, name)
	if listErr != nil {
		return nil, errors.Join(notFound, listErr)
	}
	return nil, notFound
}

// Resolve loads a keyset by id, falling back to a name lookup.
func (s *Store) Resolve(ref string) (*Keyset, error) {
	ks, err := s.Load(ref)
	if err == nil {
		return ks, nil
	}
	if !errors.Is(err, ErrKeysetNotFound) {
		return nil, err
	}
	return s.FindByName(ref)
}

// List returns every readable keyset ordered by creation time. Files that fail
// to parse or verify are skipped; their errors are joined under
// ErrUnreadableKeyset and returned together with the keysets that loaded.
func (s *Store) List() ([]*Keyset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read keyset directory: %w", err)
	}

	var (
		keysets []*Keyset
		skipped []error
	)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != keysetExt {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), keysetExt)
		ks, err := readKeyset(filepath.Join(s.dir, entry.Name()), id)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("%w %s: %w", ErrUnreadableKeyset, entry.Name(), err))
			continue
		}
		keysets = append(keysets, ks)
	}

	sort.SliceStable(keysets, func(i, j int) bool {
		if keysets[i].CreatedAt.Equal(keysets[j].CreatedAt) {
			return keysets[i].ID < keysets[j].ID
		}
		return keysets[i].CreatedAt.Before(keysets[j].CreatedAt)
	})
	return keysets, errors.Join(skipped...)
}

// Search returns keysets whose name, id or fingerprint contains query,
// ignoring case. Like List it returns partial results alongside errors for
// unreadable files.
func (s *Store) Search(query string) ([]*Keyset, error) {
	keysets, err := s.List()
	if keysets == nil && err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	var results []*Keyset
	for _, ks := range keysets {
		if strings.Contains(strings.ToLower(ks.Name), needle) ||
			strings.Contains(strings.ToLower(ks.ID), needle) ||
			strings.HasPrefix(ks.Fingerprint, needle) {
			results = append(results, ks)
		}
	}
	return results, err
}

// Delete removes the keyset stored under id.
func (s *Store) Delete(id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrKeysetNotFound, id)
		}
		return fmt.Errorf("delete keyset file: %w", err)
	}
	return nil
}

// path maps an id to its file, rejecting ids that could escape the directory.
func (s *Store) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("%w: invalid id %q", ErrKeysetNotFound, id)
	}
	return filepath.Join(s.dir, id+keysetExt), nil
}

func readKeyset(path, id string) (*Keyset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrKeysetNotFound, id)
		}
		return nil, fmt.Errorf("read keyset file: %w", err)
	}

	var ks Keyset
	if err := yaml.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("parse keyset %s: %w", id, err)
	}
	if err := ks.Verify(); err != nil {
		return nil, err
	}
	return &ks, nil
}
