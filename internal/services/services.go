// package services defines interface Session for the streaming provider's
// catalog and library APIs
package services

import (
	"context"

	"github.com/ferrova/tidalsnap/internal/models"
)

// Session is the authenticated capability the sync core requires from the
// provider. Every method is a blocking round-trip; callers own any timeout
// policy via ctx.
type Session interface {
	// IsValid reports whether this capability currently holds usable
	// credentials. It performs no network call.
	IsValid() bool

	// MixCategories returns the provider's generated-mix page as named
	// categories of raw items.
	MixCategories(ctx context.Context) ([]models.MixCategory, error)

	// MixTracks returns the current track list of a mix, in provider order.
	MixTracks(ctx context.Context, mixID string) ([]models.Track, error)

	// Playlists lists all playlists in the user's library.
	Playlists(ctx context.Context) ([]models.Playlist, error)

	// CreatePlaylist creates an empty playlist and returns it.
	CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error)

	// AddTracks appends tracks to a playlist in the given order.
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) error

	// FavoritePlaylist stars a playlist in the user's library so downstream
	// consumers that surface favorites see it.
	FavoritePlaylist(ctx context.Context, playlistID string) error

	// DeletePlaylist removes a playlist from the user's library.
	DeletePlaylist(ctx context.Context, playlistID string) error
}
