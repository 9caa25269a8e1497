// Package storage keeps a history of generated templates as JSON files, one
// file per creation, newest first.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/logging"
	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// DefaultLimit is how many creations are kept before the oldest are pruned.
const DefaultLimit = 50

var (
	ErrNotFound   = errors.New("creation not found")
	ErrNoTemplate = errors.New("creation has no template")
)

// Creation is one saved template together with the prompt that produced it.
type Creation struct {
	ID        string                `json:"id"`
	Prompt    string                `json:"prompt"`
	Model     string                `json:"model,omitempty"`
	Outcome   string                `json:"outcome"`
	CreatedAt time.Time             `json:"createdAt"`
	Template  *types.ServerTemplate `json:"template"`
}

// Store is a file-backed creation history rooted at a directory.
type Store struct {
	dir   string
	limit int
	lock  *dirLock
}

// New returns a store under dir. A limit of zero or less means DefaultLimit.
func New(dir string, limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{
		dir:   dir,
		limit: limit,
		lock:  newDirLock(dir),
	}
}

func (s *Store) file(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes c, assigning an ID and timestamp when missing, then prunes the
// history down to the limit.
func (s *Store) Save(ctx context.Context, c *Creation) error {
	if c.Template == nil {
		return ErrNoTemplate
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.ID == "" {
		c.ID = ulid.MustNew(ulid.Timestamp(c.CreatedAt), ulid.DefaultEntropy()).String()
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	release, err := s.lock.acquire()
	if err != nil {
		return fmt.Errorf("failed to lock history: %w", err)
	}
	defer release()

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal creation: %w", err)
	}

	// Write to a temp file and rename so readers never see a partial file.
	path := s.file(c.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return s.prune(ctx)
}

// Get loads one creation. A unique ID prefix is accepted.
func (s *Store) Get(ctx context.Context, id string) (*Creation, error) {
	full, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.file(full))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read creation: %w", err)
	}

	var c Creation
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal creation %s: %w", full, err)
	}
	return &c, nil
}

// List returns every readable creation, newest first. Unreadable files are
// logged and skipped.
func (s *Store) List(ctx context.Context) ([]*Creation, error) {
	ids, err := s.ids()
	if err != nil {
		return nil, err
	}

	out := make([]*Creation, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := s.Get(ctx, id)
		if err != nil {
			logging.Component("history").Warn().Err(err).Str("id", id).Msg("skipping unreadable creation")
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Delete removes a creation. Deleting a missing creation is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	full, err := s.resolve(id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	release, err := s.lock.acquire()
	if err != nil {
		return fmt.Errorf("failed to lock history: %w", err)
	}
	defer release()

	if err := os.Remove(s.file(full)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete creation: %w", err)
	}
	return nil
}

// ids lists creation IDs newest first. ULIDs sort by time.
func (s *Store) ids() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

func (s *Store) resolve(id string) (string, error) {
	if id == "" {
		return "", ErrNotFound
	}
	if _, err := os.Stat(s.file(id)); err == nil {
		return id, nil
	}

	ids, err := s.ids()
	if err != nil {
		return "", err
	}
	var match string
	for _, candidate := range ids {
		if strings.HasPrefix(candidate, id) {
			if match != "" {
				return "", fmt.Errorf("ambiguous creation id %q", id)
			}
			match = candidate
		}
	}
	if match == "" {
		return "", ErrNotFound
	}
	return match, nil
}

func (s *Store) prune(ctx context.Context) error {
	ids, err := s.ids()
	if err != nil {
		return err
	}
	for _, id := range ids[min(len(ids), s.limit):] {
		if err := os.Remove(s.file(id)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to prune creation %s: %w", id, err)
		}
		logging.Component("history").Debug().Str("id", id).Msg("pruned creation")
	}
	return nil
}
