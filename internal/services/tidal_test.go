package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ferrova/tidalsnap/internal/models"
	"github.com/ferrova/tidalsnap/internal/shared"
	"github.com/ferrova/tidalsnap/internal/store"
	"golang.org/x/oauth2"
)

func newTestSession(t *testing.T, baseURL string) *TidalSession {
	t.Helper()
	s, err := NewTidalSession("client-id", "client-secret", nil)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	s.baseURL = baseURL
	s.adoptToken(&oauth2.Token{
		TokenType:   "Bearer",
		AccessToken: "test-access",
		Expiry:      time.Now().Add(time.Hour),
	})
	return s
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "tidalsnap.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// apiMux wires the standard session bootstrap route alongside test routes.
func apiMux(t *testing.T, register func(mux *http.ServeMux)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sessions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"userId": 42, "countryCode": "US"})
	})
	register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestNewTidalSession(t *testing.T) {
	t.Run("requires client id", func(t *testing.T) {
		_, err := NewTidalSession("", "", nil)
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("fresh session is not valid", func(t *testing.T) {
		s, err := NewTidalSession("client-id", "", nil)
		if err != nil {
			t.Fatal(err)
		}
		if s.IsValid() {
			t.Error("session without tokens should not be valid")
		}
	})

	t.Run("restores persisted tokens", func(t *testing.T) {
		st := openTestStore(t)
		if err := st.SaveTokens(&models.Tokens{
			TokenType:    "Bearer",
			AccessToken:  "stored",
			RefreshToken: "refresh",
			Expiry:       time.Now().Add(time.Hour),
		}); err != nil {
			t.Fatal(err)
		}

		s, err := NewTidalSession("client-id", "", st)
		if err != nil {
			t.Fatal(err)
		}
		if !s.IsValid() {
			t.Error("session with stored tokens should be valid")
		}
	})

	t.Run("expired token with refresh token stays valid", func(t *testing.T) {
		st := openTestStore(t)
		if err := st.SaveTokens(&models.Tokens{
			TokenType:    "Bearer",
			AccessToken:  "stale",
			RefreshToken: "refresh",
			Expiry:       time.Now().Add(-time.Hour),
		}); err != nil {
			t.Fatal(err)
		}

		s, err := NewTidalSession("client-id", "", st)
		if err != nil {
			t.Fatal(err)
		}
		if !s.IsValid() {
			t.Error("refreshable session should be valid")
		}
	})
}

func TestLoginCheck(t *testing.T) {
	pendingAuth := func() *models.PendingAuth {
		return &models.PendingAuth{
			DeviceCode: "device-code",
			UserCode:   "ABCDE",
			Interval:   2,
			ExpiresAt:  time.Now().Add(5 * time.Minute),
		}
	}

	newLoginSession := func(t *testing.T, tokenResponse any, status int) (*TidalSession, *store.Store) {
		t.Helper()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				t.Fatal(err)
			}
			if got := r.PostForm.Get("device_code"); got != "device-code" {
				t.Errorf("device_code = %q", got)
			}
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(tokenResponse)
		}))
		t.Cleanup(server.Close)

		st := openTestStore(t)
		s, err := NewTidalSession("client-id", "client-secret", st)
		if err != nil {
			t.Fatal(err)
		}
		s.config.Endpoint.TokenURL = server.URL
		return s, st
	}

	t.Run("no pending login", func(t *testing.T) {
		st := openTestStore(t)
		s, err := NewTidalSession("client-id", "", st)
		if err != nil {
			t.Fatal(err)
		}
		if err := s.LoginCheck(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("authorization pending", func(t *testing.T) {
		s, st := newLoginSession(t, map[string]string{"error": "authorization_pending"}, http.StatusBadRequest)
		if err := st.SavePendingAuth(pendingAuth()); err != nil {
			t.Fatal(err)
		}

		if err := s.LoginCheck(context.Background()); !errors.Is(err, shared.ErrAuthPending) {
			t.Errorf("expected ErrAuthPending, got %v", err)
		}
		if _, found, _ := st.PendingAuth(); !found {
			t.Error("pending record must survive a pending poll")
		}
	})

	t.Run("expired code clears pending", func(t *testing.T) {
		s, st := newLoginSession(t, map[string]string{"error": "expired_token"}, http.StatusBadRequest)
		if err := st.SavePendingAuth(pendingAuth()); err != nil {
			t.Fatal(err)
		}

		if err := s.LoginCheck(context.Background()); !errors.Is(err, shared.ErrAuthExpired) {
			t.Errorf("expected ErrAuthExpired, got %v", err)
		}
		if _, found, _ := st.PendingAuth(); found {
			t.Error("pending record should be cleared after expiry")
		}
	})

	t.Run("stale deadline short-circuits", func(t *testing.T) {
		st := openTestStore(t)
		s, err := NewTidalSession("client-id", "", st)
		if err != nil {
			t.Fatal(err)
		}
		stale := pendingAuth()
		stale.ExpiresAt = time.Now().Add(-time.Minute)
		if err := st.SavePendingAuth(stale); err != nil {
			t.Fatal(err)
		}

		if err := s.LoginCheck(context.Background()); !errors.Is(err, shared.ErrAuthExpired) {
			t.Errorf("expected ErrAuthExpired, got %v", err)
		}
	})

	t.Run("success persists tokens and clears pending", func(t *testing.T) {
		s, st := newLoginSession(t, map[string]any{
			"access_token":  "fresh-access",
			"refresh_token": "fresh-refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		}, http.StatusOK)
		if err := st.SavePendingAuth(pendingAuth()); err != nil {
			t.Fatal(err)
		}

		if err := s.LoginCheck(context.Background()); err != nil {
			t.Fatalf("login check failed: %v", err)
		}
		if !s.IsValid() {
			t.Error("session should be valid after login")
		}

		tokens, found, err := st.Tokens()
		if err != nil || !found {
			t.Fatalf("tokens not persisted: found=%v err=%v", found, err)
		}
		if tokens.AccessToken != "fresh-access" {
			t.Errorf("access token = %q", tokens.AccessToken)
		}
		if _, found, _ := st.PendingAuth(); found {
			t.Error("pending record should be cleared after success")
		}
	})
}

func TestMixCategories(t *testing.T) {
	server := apiMux(t, func(mux *http.ServeMux) {
		mux.HandleFunc("GET /pages/my_collection_my_mixes", func(w http.ResponseWriter, r *http.Request) {
			if cc := r.URL.Query().Get("countryCode"); cc != "US" {
				t.Errorf("countryCode = %q", cc)
			}
			fmt.Fprint(w, `{
				"rows": [{
					"modules": [{
						"title": "Mixes for you",
						"pagedList": {"items": [
							{"id": "mixA", "title": "Daily Discovery", "subTitle": "Based on your listening"},
							{"id": "mixB", "title": "My New Arrivals", "subTitle": ""}
						]}
					}]
				}]
			}`)
		})
	})

	s := newTestSession(t, server.URL)
	categories, err := s.MixCategories(context.Background())
	if err != nil {
		t.Fatalf("mix categories failed: %v", err)
	}

	if len(categories) != 1 || categories[0].Title != "Mixes for you" {
		t.Fatalf("categories = %+v", categories)
	}
	if len(categories[0].Items) != 2 || categories[0].Items[0].ID != "mixA" {
		t.Errorf("items = %+v", categories[0].Items)
	}
}

func TestMixTracks(t *testing.T) {
	server := apiMux(t, func(mux *http.ServeMux) {
		mux.HandleFunc("GET /mixes/mixA/items", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{
				"items": [
					{"type": "track", "item": {"id": 101, "title": "One", "duration": 200,
						"artist": {"name": "Artist"}, "album": {"title": "Album"}}},
					{"type": "video", "item": {"id": 102, "title": "Clip"}},
					{"type": "track", "item": {"id": 103, "title": "Two"}}
				]
			}`)
		})
	})

	s := newTestSession(t, server.URL)
	tracks, err := s.MixTracks(context.Background(), "mixA")
	if err != nil {
		t.Fatalf("mix tracks failed: %v", err)
	}

	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks (videos filtered), got %d", len(tracks))
	}
	if tracks[0].ID != "101" || tracks[0].Artist != "Artist" || tracks[0].Album != "Album" {
		t.Errorf("track = %+v", tracks[0])
	}
}

func TestPlaylistsPagination(t *testing.T) {
	server := apiMux(t, func(mux *http.ServeMux) {
		mux.HandleFunc("GET /users/42/playlists", func(w http.ResponseWriter, r *http.Request) {
			offset := r.URL.Query().Get("offset")
			switch offset {
			case "0":
				fmt.Fprint(w, `{"totalNumberOfItems": 3, "items": [
					{"uuid": "p1", "title": "First", "numberOfTracks": 10},
					{"uuid": "p2", "title": "Second", "numberOfTracks": 5}
				]}`)
			case "2":
				fmt.Fprint(w, `{"totalNumberOfItems": 3, "items": [
					{"uuid": "p3", "title": "Third", "description": "Auto-synced from Tidal"}
				]}`)
			default:
				t.Errorf("unexpected offset %q", offset)
				fmt.Fprint(w, `{"totalNumberOfItems": 3, "items": []}`)
			}
		})
	})

	s := newTestSession(t, server.URL)
	playlists, err := s.Playlists(context.Background())
	if err != nil {
		t.Fatalf("playlists failed: %v", err)
	}

	if len(playlists) != 3 {
		t.Fatalf("expected 3 playlists, got %d", len(playlists))
	}
	if playlists[2].ID != "p3" || playlists[2].Description != "Auto-synced from Tidal" {
		t.Errorf("playlist = %+v", playlists[2])
	}
}

func TestCreateAddFavoriteDelete(t *testing.T) {
	server := apiMux(t, func(mux *http.ServeMux) {
		mux.HandleFunc("POST /users/42/playlists", func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			if got := r.PostForm.Get("title"); got != "2024-03-10 Daily Discovery" {
				t.Errorf("title = %q", got)
			}
			if got := r.PostForm.Get("description"); got != "Auto-synced from Tidal" {
				t.Errorf("description = %q", got)
			}
			fmt.Fprint(w, `{"uuid": "new-pl", "title": "2024-03-10 Daily Discovery"}`)
		})
		mux.HandleFunc("POST /playlists/new-pl/items", func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			if got := r.PostForm.Get("trackIds"); got != "101,103" {
				t.Errorf("trackIds = %q", got)
			}
			if got := r.Header.Get("If-None-Match"); got != "*" {
				t.Errorf("If-None-Match = %q", got)
			}
			fmt.Fprint(w, `{}`)
		})
		mux.HandleFunc("POST /users/42/favorites/playlists", func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			if got := r.PostForm.Get("uuids"); got != "new-pl" {
				t.Errorf("uuids = %q", got)
			}
			w.WriteHeader(http.StatusCreated)
		})
		mux.HandleFunc("DELETE /playlists/new-pl", func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("If-None-Match"); got != "*" {
				t.Errorf("If-None-Match = %q", got)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})

	s := newTestSession(t, server.URL)
	ctx := context.Background()

	playlist, err := s.CreatePlaylist(ctx, "2024-03-10 Daily Discovery", "Auto-synced from Tidal")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if playlist.ID != "new-pl" {
		t.Fatalf("playlist id = %q", playlist.ID)
	}

	if err := s.AddTracks(ctx, playlist.ID, []string{"101", "103"}); err != nil {
		t.Fatalf("add tracks failed: %v", err)
	}
	if err := s.FavoritePlaylist(ctx, playlist.ID); err != nil {
		t.Fatalf("favorite failed: %v", err)
	}
	if err := s.DeletePlaylist(ctx, playlist.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
}

func TestAddTracksEmptyIsNoop(t *testing.T) {
	// No server: an empty add must not hit the network at all.
	s := newTestSession(t, "http://127.0.0.1:0")
	if err := s.AddTracks(context.Background(), "pl", nil); err != nil {
		t.Errorf("empty add should be a no-op, got %v", err)
	}
}

func TestAPIErrorMapping(t *testing.T) {
	server := apiMux(t, func(mux *http.ServeMux) {
		mux.HandleFunc("GET /mixes/gone/items", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"status": 404, "subStatus": 2001, "userMessage": "Mix not found"}`)
		})
	})

	s := newTestSession(t, server.URL)
	_, err := s.MixTracks(context.Background(), "gone")
	if !errors.Is(err, shared.ErrAPIRequest) {
		t.Fatalf("expected ErrAPIRequest, got %v", err)
	}
	if !strings.Contains(err.Error(), "Mix not found") {
		t.Errorf("error should carry the provider message: %v", err)
	}
}
