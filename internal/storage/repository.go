package storage

import (
	"context"

	"clipstream/internal/models"
)

// Repository exposes the datastore operations required by the API handlers
// and the auth core. The account methods double as the auth package's
// UserStore and SessionStore contracts.
type Repository interface {
	Ping(ctx context.Context) error

	CreateAccount(ctx context.Context, params CreateAccountParams) (models.Account, error)
	GetAccount(ctx context.Context, id string) (models.Account, bool, error)
	FindAccountByIdentifier(ctx context.Context, identifier string) (models.Account, bool, error)
	UpdateAccount(ctx context.Context, id string, update AccountUpdate) (models.Account, error)
	SetAccountPassword(ctx context.Context, id, digest string) error

	BeginSession(ctx context.Context, accountID, refreshToken string) error
	RotateRefreshToken(ctx context.Context, accountID, presented, next string) error
	EndSession(ctx context.Context, accountID string) error

	CreateVideo(ctx context.Context, params CreateVideoParams) (models.Video, error)
	GetVideo(ctx context.Context, id string) (models.Video, bool, error)
	ListVideos(ctx context.Context, ownerID string, includeUnpublished bool) ([]models.Video, error)
	UpdateVideo(ctx context.Context, id string, update VideoUpdate) (models.Video, error)
	SetVideoPublished(ctx context.Context, id string, published bool) (models.Video, error)
	AddVideoViews(ctx context.Context, id string, delta int64) error
	DeleteVideo(ctx context.Context, id string) error

	RecordWatch(ctx context.Context, accountID, videoID string) error
	ListWatchHistory(ctx context.Context, accountID string) ([]models.Video, error)

	CreatePlaylist(ctx context.Context, ownerID, name, description string) (models.Playlist, error)
	GetPlaylist(ctx context.Context, id string) (models.Playlist, bool, error)
	ListPlaylistsByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error)
	UpdatePlaylist(ctx context.Context, id string, update PlaylistUpdate) (models.Playlist, error)
	AddPlaylistVideo(ctx context.Context, playlistID, videoID string) (models.Playlist, error)
	RemovePlaylistVideo(ctx context.Context, playlistID, videoID string) (models.Playlist, error)
	DeletePlaylist(ctx context.Context, id string) error
}

var _ Repository = (*Storage)(nil)
