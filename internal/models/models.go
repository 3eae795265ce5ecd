package models

import (
	"strings"
	"time"
)

// Account is the identity record owned by the user store. Handle and Email are
// unique across all accounts. PasswordHash and RefreshToken never leave the
// server; API responses use sanitized projections built in the api package.
type Account struct {
	ID           string    `json:"id"`
	Handle       string    `json:"handle"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	CoverURL     string    `json:"coverUrl,omitempty"`
	WatchHistory []string  `json:"watchHistory,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// MatchesIdentifier reports whether the provided login identifier refers to
// this account, comparing against both handle and email ignoring case.
func (a Account) MatchesIdentifier(identifier string) bool {
	trimmed := strings.TrimSpace(identifier)
	return strings.EqualFold(a.Handle, trimmed) || strings.EqualFold(a.Email, trimmed)
}

// Video is a published or draft media entry. VideoKey and ThumbnailKey are the
// blob-store object keys kept so the assets can be deleted alongside the row.
type Video struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"ownerId"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	VideoURL        string    `json:"videoUrl"`
	VideoKey        string    `json:"videoKey,omitempty"`
	ThumbnailURL    string    `json:"thumbnailUrl"`
	ThumbnailKey    string    `json:"thumbnailKey,omitempty"`
	DurationSeconds int       `json:"durationSeconds"`
	Views           int64     `json:"views"`
	Published       bool      `json:"published"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Playlist is an ordered collection of video IDs owned by a single account.
type Playlist struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	VideoIDs    []string  `json:"videoIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ContainsVideo reports whether the playlist already references the video.
func (p Playlist) ContainsVideo(videoID string) bool {
	for _, id := range p.VideoIDs {
		if id == videoID {
			return true
		}
	}
	return false
}
