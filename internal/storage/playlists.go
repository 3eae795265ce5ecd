package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"clipstream/internal/models"
)

// CreatePlaylist stores a new, empty playlist for the owner.
func (s *Storage) CreatePlaylist(ctx context.Context, ownerID, name, description string) (models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return models.Playlist{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Playlist{}, fmt.Errorf("name is required")
	}
	if len(name) > MaxPlaylistNameLength {
		return models.Playlist{}, fmt.Errorf("name exceeds %d characters", MaxPlaylistNameLength)
	}

	var created models.Playlist
	err := s.mutate(func(data *dataset) error {
		if _, ok := data.Accounts[ownerID]; !ok {
			return ErrNotFound
		}
		now := s.now().UTC()
		created = models.Playlist{
			ID:          generateID(),
			OwnerID:     ownerID,
			Name:        name,
			Description: strings.TrimSpace(description),
			VideoIDs:    []string{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		data.Playlists[created.ID] = created
		return nil
	})
	if err != nil {
		return models.Playlist{}, err
	}
	return created, nil
}

// GetPlaylist fetches a playlist by ID.
func (s *Storage) GetPlaylist(ctx context.Context, id string) (models.Playlist, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Playlist{}, false, err
	}
	s.mu.RLock()
	playlist, ok := s.data.Playlists[id]
	s.mu.RUnlock()
	if ok {
		playlist.VideoIDs = append([]string(nil), playlist.VideoIDs...)
	}
	return playlist, ok, nil
}

// ListPlaylistsByOwner returns the owner's playlists, newest first.
func (s *Storage) ListPlaylistsByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	playlists := make([]models.Playlist, 0)
	for _, playlist := range s.data.Playlists {
		if playlist.OwnerID != ownerID {
			continue
		}
		playlist.VideoIDs = append([]string(nil), playlist.VideoIDs...)
		playlists = append(playlists, playlist)
	}
	s.mu.RUnlock()
	sort.Slice(playlists, func(i, j int) bool {
		if playlists[i].CreatedAt.Equal(playlists[j].CreatedAt) {
			return playlists[i].ID < playlists[j].ID
		}
		return playlists[i].CreatedAt.After(playlists[j].CreatedAt)
	})
	return playlists, nil
}

// UpdatePlaylist applies the non-nil fields of the update.
func (s *Storage) UpdatePlaylist(ctx context.Context, id string, update PlaylistUpdate) (models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return models.Playlist{}, err
	}
	var updated models.Playlist
	err := s.mutate(func(data *dataset) error {
		playlist, ok := data.Playlists[id]
		if !ok {
			return ErrNotFound
		}
		if update.Name != nil {
			name := strings.TrimSpace(*update.Name)
			if name == "" {
				return fmt.Errorf("name cannot be empty")
			}
			if len(name) > MaxPlaylistNameLength {
				return fmt.Errorf("name exceeds %d characters", MaxPlaylistNameLength)
			}
			playlist.Name = name
		}
		if update.Description != nil {
			playlist.Description = strings.TrimSpace(*update.Description)
		}
		playlist.UpdatedAt = s.now().UTC()
		data.Playlists[id] = playlist
		updated = playlist
		return nil
	})
	if err != nil {
		return models.Playlist{}, err
	}
	return updated, nil
}

// AddPlaylistVideo appends a video to the playlist. Adding a video that is
// already present is a no-op rather than an error.
func (s *Storage) AddPlaylistVideo(ctx context.Context, playlistID, videoID string) (models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return models.Playlist{}, err
	}
	var updated models.Playlist
	err := s.mutate(func(data *dataset) error {
		playlist, ok := data.Playlists[playlistID]
		if !ok {
			return ErrNotFound
		}
		if _, ok := data.Videos[videoID]; !ok {
			return ErrNotFound
		}
		if !playlist.ContainsVideo(videoID) {
			playlist.VideoIDs = append(playlist.VideoIDs, videoID)
			playlist.UpdatedAt = s.now().UTC()
		}
		data.Playlists[playlistID] = playlist
		updated = playlist
		return nil
	})
	if err != nil {
		return models.Playlist{}, err
	}
	return updated, nil
}

// RemovePlaylistVideo drops a video from the playlist.
func (s *Storage) RemovePlaylistVideo(ctx context.Context, playlistID, videoID string) (models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return models.Playlist{}, err
	}
	var updated models.Playlist
	err := s.mutate(func(data *dataset) error {
		playlist, ok := data.Playlists[playlistID]
		if !ok {
			return ErrNotFound
		}
		if !playlist.ContainsVideo(videoID) {
			return ErrNotFound
		}
		remaining := make([]string, 0, len(playlist.VideoIDs)-1)
		for _, id := range playlist.VideoIDs {
			if id != videoID {
				remaining = append(remaining, id)
			}
		}
		playlist.VideoIDs = remaining
		playlist.UpdatedAt = s.now().UTC()
		data.Playlists[playlistID] = playlist
		updated = playlist
		return nil
	})
	if err != nil {
		return models.Playlist{}, err
	}
	return updated, nil
}

// DeletePlaylist removes the playlist.
func (s *Storage) DeletePlaylist(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.mutate(func(data *dataset) error {
		if _, ok := data.Playlists[id]; !ok {
			return ErrNotFound
		}
		delete(data.Playlists, id)
		return nil
	})
}
