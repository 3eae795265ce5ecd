package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"clipstream/internal/models"
)

// NewStorage opens or initializes the JSON-file repository at the provided
// path. An empty path keeps the dataset purely in memory, which is what the
// tests and local scratch runs use.
func NewStorage(filePath string) (*Storage, error) {
	s := &Storage{
		filePath: filePath,
		data:     newDataset(),
		now:      time.Now,
	}
	if filePath == "" {
		return s, nil
	}
	raw, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read datastore %s: %w", filePath, err)
	}
	if len(raw) == 0 {
		return s, nil
	}
	var data dataset
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse datastore %s: %w", filePath, err)
	}
	if data.Accounts == nil {
		data.Accounts = make(map[string]models.Account)
	}
	if data.Videos == nil {
		data.Videos = make(map[string]models.Video)
	}
	if data.Playlists == nil {
		data.Playlists = make(map[string]models.Playlist)
	}
	s.data = data
	return s, nil
}

// Ping reports whether the repository is usable. The JSON store is always
// reachable once constructed.
func (s *Storage) Ping(ctx context.Context) error {
	return ctx.Err()
}

func cloneDataset(data dataset) dataset {
	clone := newDataset()
	for id, account := range data.Accounts {
		clone.Accounts[id] = account
	}
	for id, video := range data.Videos {
		clone.Videos[id] = video
	}
	for id, playlist := range data.Playlists {
		playlist.VideoIDs = append([]string(nil), playlist.VideoIDs...)
		clone.Playlists[id] = playlist
	}
	return clone
}

func (s *Storage) persistDataset(data dataset) error {
	if s.persistOverride != nil {
		return s.persistOverride(data)
	}
	if s.filePath == "" {
		return nil
	}
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode datastore: %w", err)
	}
	tmp := s.filePath + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("create datastore directory: %w", err)
	}
	if err := os.WriteFile(tmp, encoded, 0o600); err != nil {
		return fmt.Errorf("write datastore: %w", err)
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		return fmt.Errorf("swap datastore: %w", err)
	}
	return nil
}

// mutate clones the dataset, applies fn to the clone, persists it, then swaps
// it in. fn runs under the write lock so compare-and-set updates serialize.
func (s *Storage) mutate(fn func(*dataset) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := cloneDataset(s.data)
	if err := fn(&updated); err != nil {
		return err
	}
	if err := s.persistDataset(updated); err != nil {
		return err
	}
	s.data = updated
	return nil
}
