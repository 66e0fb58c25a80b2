// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ferrova/tidalsnap/internal/models"
	"github.com/ferrova/tidalsnap/internal/services"
)

var _ services.Session = (*FakeSession)(nil)

// FakeSession is a stateful test double for [services.Session].
//
// It keeps an in-memory library: CreatePlaylist appends, DeletePlaylist
// removes, and every call is appended to Calls for interaction assertions.
type FakeSession struct {
	mu sync.Mutex

	Invalid       bool
	Categories    []models.MixCategory
	CategoriesErr error
	TracksByMix   map[string][]models.Track
	TracksErr     map[string]error
	Library       []models.Playlist
	ListErr       error
	CreateErr     error
	AddErr        error
	FavoriteErr   error
	DeleteErr     map[string]error

	Calls     []string
	Favorited []string
	Deleted   []string

	nextID int
}

func (f *FakeSession) record(call string) {
	f.Calls = append(f.Calls, call)
}

// CallCount returns how many recorded calls have the given name prefix.
func (f *FakeSession) CallCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.Calls {
		if len(call) >= len(prefix) && call[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (f *FakeSession) IsValid() bool {
	return !f.Invalid
}

func (f *FakeSession) MixCategories(ctx context.Context) ([]models.MixCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("MixCategories")
	if f.CategoriesErr != nil {
		return nil, f.CategoriesErr
	}
	return f.Categories, nil
}

func (f *FakeSession) MixTracks(ctx context.Context, mixID string) ([]models.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("MixTracks:" + mixID)
	if err, ok := f.TracksErr[mixID]; ok {
		return nil, err
	}
	tracks, ok := f.TracksByMix[mixID]
	if !ok {
		return nil, errors.New("mix has no tracks")
	}
	return tracks, nil
}

func (f *FakeSession) Playlists(ctx context.Context) ([]models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Playlists")
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	out := make([]models.Playlist, len(f.Library))
	copy(out, f.Library)
	return out, nil
}

func (f *FakeSession) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreatePlaylist:" + name)
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	f.nextID++
	playlist := models.Playlist{
		ID:          fmt.Sprintf("pl-%d", f.nextID),
		Name:        name,
		Description: description,
	}
	f.Library = append(f.Library, playlist)
	return &playlist, nil
}

func (f *FakeSession) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AddTracks:" + playlistID)
	if f.AddErr != nil {
		return f.AddErr
	}
	for i := range f.Library {
		if f.Library[i].ID == playlistID {
			f.Library[i].TrackCount += len(trackIDs)
		}
	}
	return nil
}

func (f *FakeSession) FavoritePlaylist(ctx context.Context, playlistID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("FavoritePlaylist:" + playlistID)
	if f.FavoriteErr != nil {
		return f.FavoriteErr
	}
	f.Favorited = append(f.Favorited, playlistID)
	return nil
}

func (f *FakeSession) DeletePlaylist(ctx context.Context, playlistID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeletePlaylist:" + playlistID)
	if err, ok := f.DeleteErr[playlistID]; ok {
		return err
	}
	for i := range f.Library {
		if f.Library[i].ID == playlistID {
			f.Deleted = append(f.Deleted, playlistID)
			f.Library = append(f.Library[:i], f.Library[i+1:]...)
			return nil
		}
	}
	return errors.New("playlist not found")
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}
