package storage

import (
	"errors"
	"sync"
	"time"

	"clipstream/internal/models"
)

const (
	// MaxVideoTitleLength bounds the title accepted for a video entry.
	MaxVideoTitleLength = 200
	// MaxVideoDescriptionLength bounds the description accepted for a video entry.
	MaxVideoDescriptionLength = 5000
	// MaxPlaylistNameLength bounds the name accepted for a playlist.
	MaxPlaylistNameLength = 120
)

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness violation on handle or email.
	ErrConflict = errors.New("handle or email already in use")

	// ErrRefreshTokenMismatch indicates a refresh-token compare-and-set lost:
	// the presented value no longer matches the stored anchor.
	ErrRefreshTokenMismatch = errors.New("refresh token mismatch")

	// ErrUnavailable indicates a transient backing-store failure the caller
	// may retry.
	ErrUnavailable = errors.New("storage unavailable")
)

type dataset struct {
	Accounts  map[string]models.Account  `json:"accounts"`
	Videos    map[string]models.Video    `json:"videos"`
	Playlists map[string]models.Playlist `json:"playlists"`
}

func newDataset() dataset {
	return dataset{
		Accounts:  make(map[string]models.Account),
		Videos:    make(map[string]models.Video),
		Playlists: make(map[string]models.Playlist),
	}
}

// Storage is the JSON-file repository used for development and tests. All
// mutations clone the dataset, persist the clone, then swap it in under the
// write lock, so readers never observe a partially-applied change.
type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
	now             func() time.Time
}

// CreateAccountParams captures the attributes set when registering an account.
// PasswordDigest must already be hashed; repositories never see plaintext.
type CreateAccountParams struct {
	Handle         string
	Email          string
	FullName       string
	PasswordDigest string
}

// AccountUpdate describes the mutable profile fields of an account. Nil fields
// are left untouched.
type AccountUpdate struct {
	Email     *string
	FullName  *string
	AvatarURL *string
	CoverURL  *string
}

// CreateVideoParams captures the attributes required to publish a video entry.
type CreateVideoParams struct {
	OwnerID         string
	Title           string
	Description     string
	VideoURL        string
	VideoKey        string
	ThumbnailURL    string
	ThumbnailKey    string
	DurationSeconds int
}

// VideoUpdate describes the mutable fields of a video entry.
type VideoUpdate struct {
	Title        *string
	Description  *string
	ThumbnailURL *string
	ThumbnailKey *string
}

// PlaylistUpdate describes the mutable fields of a playlist.
type PlaylistUpdate struct {
	Name        *string
	Description *string
}
