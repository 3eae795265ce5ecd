package storage

import (
	"context"

	"clipstream/internal/models"
)

// watchHistoryLimit caps the per-account history so the list cannot grow
// without bound. Older entries fall off the tail.
const watchHistoryLimit = 100

// RecordWatch notes that the account played the video. A rewatch moves the
// entry to the front instead of duplicating it.
func (s *Storage) RecordWatch(ctx context.Context, accountID, videoID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.mutate(func(data *dataset) error {
		account, ok := data.Accounts[accountID]
		if !ok {
			return ErrNotFound
		}
		if _, ok := data.Videos[videoID]; !ok {
			return ErrNotFound
		}
		history := make([]string, 0, len(account.WatchHistory)+1)
		history = append(history, videoID)
		for _, id := range account.WatchHistory {
			if id == videoID {
				continue
			}
			history = append(history, id)
			if len(history) == watchHistoryLimit {
				break
			}
		}
		account.WatchHistory = history
		data.Accounts[accountID] = account
		return nil
	})
}

// ListWatchHistory returns the videos the account has played, most recent
// first. Entries whose video has since been deleted are skipped.
func (s *Storage) ListWatchHistory(ctx context.Context, accountID string) ([]models.Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.data.Accounts[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	videos := make([]models.Video, 0, len(account.WatchHistory))
	for _, id := range account.WatchHistory {
		if video, ok := s.data.Videos[id]; ok {
			videos = append(videos, video)
		}
	}
	return videos, nil
}
