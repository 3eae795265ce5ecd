package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"clipstream/internal/models"
)

// CreateVideo stores a new video entry. New videos go live immediately;
// SetVideoPublished takes them down again.
func (s *Storage) CreateVideo(ctx context.Context, params CreateVideoParams) (models.Video, error) {
	if err := ctx.Err(); err != nil {
		return models.Video{}, err
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return models.Video{}, fmt.Errorf("title is required")
	}
	if len(title) > MaxVideoTitleLength {
		return models.Video{}, fmt.Errorf("title exceeds %d characters", MaxVideoTitleLength)
	}
	if len(params.Description) > MaxVideoDescriptionLength {
		return models.Video{}, fmt.Errorf("description exceeds %d characters", MaxVideoDescriptionLength)
	}
	if params.VideoURL == "" {
		return models.Video{}, fmt.Errorf("video url is required")
	}

	var created models.Video
	err := s.mutate(func(data *dataset) error {
		if _, ok := data.Accounts[params.OwnerID]; !ok {
			return ErrNotFound
		}
		now := s.now().UTC()
		created = models.Video{
			ID:              generateID(),
			OwnerID:         params.OwnerID,
			Title:           title,
			Description:     strings.TrimSpace(params.Description),
			VideoURL:        params.VideoURL,
			VideoKey:        params.VideoKey,
			ThumbnailURL:    params.ThumbnailURL,
			ThumbnailKey:    params.ThumbnailKey,
			DurationSeconds: params.DurationSeconds,
			Published:       true,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		data.Videos[created.ID] = created
		return nil
	})
	if err != nil {
		return models.Video{}, err
	}
	return created, nil
}

// GetVideo fetches a video by ID.
func (s *Storage) GetVideo(ctx context.Context, id string) (models.Video, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Video{}, false, err
	}
	s.mu.RLock()
	video, ok := s.data.Videos[id]
	s.mu.RUnlock()
	return video, ok, nil
}

// ListVideos returns videos newest first. When ownerID is set only that
// owner's videos are returned; unpublished entries are included only when
// requested (owner or admin views).
func (s *Storage) ListVideos(ctx context.Context, ownerID string, includeUnpublished bool) ([]models.Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	videos := make([]models.Video, 0, len(s.data.Videos))
	for _, video := range s.data.Videos {
		if ownerID != "" && video.OwnerID != ownerID {
			continue
		}
		if !video.Published && !includeUnpublished {
			continue
		}
		videos = append(videos, video)
	}
	s.mu.RUnlock()
	sort.Slice(videos, func(i, j int) bool {
		if videos[i].CreatedAt.Equal(videos[j].CreatedAt) {
			return videos[i].ID < videos[j].ID
		}
		return videos[i].CreatedAt.After(videos[j].CreatedAt)
	})
	return videos, nil
}

// UpdateVideo applies the non-nil fields of the update to the video entry.
func (s *Storage) UpdateVideo(ctx context.Context, id string, update VideoUpdate) (models.Video, error) {
	if err := ctx.Err(); err != nil {
		return models.Video{}, err
	}
	var updated models.Video
	err := s.mutate(func(data *dataset) error {
		video, ok := data.Videos[id]
		if !ok {
			return ErrNotFound
		}
		if update.Title != nil {
			title := strings.TrimSpace(*update.Title)
			if title == "" {
				return fmt.Errorf("title cannot be empty")
			}
			if len(title) > MaxVideoTitleLength {
				return fmt.Errorf("title exceeds %d characters", MaxVideoTitleLength)
			}
			video.Title = title
		}
		if update.Description != nil {
			if len(*update.Description) > MaxVideoDescriptionLength {
				return fmt.Errorf("description exceeds %d characters", MaxVideoDescriptionLength)
			}
			video.Description = strings.TrimSpace(*update.Description)
		}
		if update.ThumbnailURL != nil {
			video.ThumbnailURL = *update.ThumbnailURL
		}
		if update.ThumbnailKey != nil {
			video.ThumbnailKey = *update.ThumbnailKey
		}
		video.UpdatedAt = s.now().UTC()
		data.Videos[id] = video
		updated = video
		return nil
	})
	if err != nil {
		return models.Video{}, err
	}
	return updated, nil
}

// SetVideoPublished flips the publish state of a video entry.
func (s *Storage) SetVideoPublished(ctx context.Context, id string, published bool) (models.Video, error) {
	if err := ctx.Err(); err != nil {
		return models.Video{}, err
	}
	var updated models.Video
	err := s.mutate(func(data *dataset) error {
		video, ok := data.Videos[id]
		if !ok {
			return ErrNotFound
		}
		video.Published = published
		video.UpdatedAt = s.now().UTC()
		data.Videos[id] = video
		updated = video
		return nil
	})
	if err != nil {
		return models.Video{}, err
	}
	return updated, nil
}

// AddVideoViews folds a view-counter delta into the stored view total.
func (s *Storage) AddVideoViews(ctx context.Context, id string, delta int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if delta <= 0 {
		return nil
	}
	return s.mutate(func(data *dataset) error {
		video, ok := data.Videos[id]
		if !ok {
			return ErrNotFound
		}
		video.Views += delta
		data.Videos[id] = video
		return nil
	})
}

// DeleteVideo removes a video entry and drops it from every playlist.
func (s *Storage) DeleteVideo(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.mutate(func(data *dataset) error {
		if _, ok := data.Videos[id]; !ok {
			return ErrNotFound
		}
		delete(data.Videos, id)
		for playlistID, playlist := range data.Playlists {
			if !playlist.ContainsVideo(id) {
				continue
			}
			remaining := make([]string, 0, len(playlist.VideoIDs)-1)
			for _, videoID := range playlist.VideoIDs {
				if videoID != id {
					remaining = append(remaining, videoID)
				}
			}
			playlist.VideoIDs = remaining
			playlist.UpdatedAt = s.now().UTC()
			data.Playlists[playlistID] = playlist
		}
		return nil
	})
}
