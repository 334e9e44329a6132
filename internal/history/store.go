package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Store provides thread-safe storage of completed items keyed by issue key.
type Store struct {
	mu    sync.RWMutex
	items map[string]CompletedItem
}

// NewStore creates a new empty Store.
func NewStore() *Store {
	return &Store{
		items: make(map[string]CompletedItem),
	}
}

// Path returns the JSONL cache file for a named store.
func Path(cacheDir, name string) string {
	return filepath.Join(cacheDir, fmt.Sprintf("%s.jsonl", name))
}

// Add stores items whose keys are not known yet and returns how many were new.
// Known keys are never overwritten.
func (s *Store) Add(items ...CompletedItem) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, item := range items {
		if item.Key == "" {
			continue
		}
		if _, ok := s.items[item.Key]; ok {
			continue
		}
		s.items[item.Key] = item
		added++
	}
	return added
}

// Has reports whether an item with the given key is stored.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[key]
	return ok
}

// Remove drops the given keys (e.g. outliers) and returns how many were present.
// Surrounding whitespace in keys is ignored.
func (s *Store) Remove(keys ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if _, ok := s.items[k]; ok {
			delete(s.items, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Items returns a copy of all items ordered by done date, then key.
func (s *Store) Items() []CompletedItem {
	s.mu.RLock()
	out := make([]CompletedItem, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b CompletedItem) int {
		if c := a.Done.Compare(b.Done); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})
	return out
}

// Load reads items from a JSONL cache file. A missing file is not an error.
func (s *Store) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No cache yet
		}
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer file.Close()

	var items []CompletedItem
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var item CompletedItem
		if err := json.Unmarshal(scanner.Bytes(), &item); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Skipping invalid JSON line in store")
			continue
		}
		items = append(items, item)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading store: %w", err)
	}

	added := s.Add(items...)
	log.Info().Str("path", path).Int("count", added).Msg("Loaded completed items from store")
	return nil
}

// Save persists all items to a JSONL file, replacing it atomically.
func (s *Store) Save(path string) error {
	items := s.Items()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)

	for _, item := range items {
		if err := encoder.Encode(item); err != nil {
			file.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("failed to encode item %s: %w", item.Key, err)
		}
	}

	if err := writer.Flush(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush writer: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename store file: %w", err)
	}

	log.Info().Str("path", path).Int("count", len(items)).Msg("Completed items saved to store")
	return nil
}
