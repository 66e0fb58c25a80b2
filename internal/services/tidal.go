// TIDAL API implementation of [Session]
//
// Response types based on the v1 API as exercised by the official clients.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ferrova/tidalsnap/internal/models"
	"github.com/ferrova/tidalsnap/internal/shared"
	"github.com/ferrova/tidalsnap/internal/store"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	tidalDeviceAuthURL = "https://auth.tidal.com/v1/oauth2/device_authorization"
	tidalTokenURL      = "https://auth.tidal.com/v1/oauth2/token"
	tidalBaseURL       = "https://api.tidal.com/v1"

	playlistPageSize = 50
)

// TidalSession implements [Session] against the TIDAL v1 API.
//
// Credentials are persisted through the store on every refresh, so a process
// restart resumes the session without user interaction.
type TidalSession struct {
	config     *oauth2.Config
	store      *store.Store
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string

	mu          sync.Mutex
	tokens      oauth2.TokenSource
	lastToken   *oauth2.Token
	userID      int64
	countryCode string
}

// NewTidalSession creates a session with the given OAuth client credentials,
// restoring persisted tokens from the store when present.
func NewTidalSession(clientID, clientSecret string, st *store.Store) (*TidalSession, error) {
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing tidal client_id", shared.ErrInvalidConfig)
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{"r_usr", "w_usr"},
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: tidalDeviceAuthURL,
			TokenURL:      tidalTokenURL,
		},
	}

	s := &TidalSession{
		config:     config,
		store:      st,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(10), 10),
		baseURL:    tidalBaseURL,
	}

	if st != nil {
		saved, found, err := st.Tokens()
		if err != nil {
			return nil, fmt.Errorf("failed to restore tokens: %w", err)
		}
		if found {
			s.adoptToken(&oauth2.Token{
				TokenType:    saved.TokenType,
				AccessToken:  saved.AccessToken,
				RefreshToken: saved.RefreshToken,
				Expiry:       saved.Expiry,
			})
		}
	}

	return s, nil
}

// IsValid reports whether the session holds credentials that are either
// unexpired or refreshable.
func (s *TidalSession) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastToken == nil {
		return false
	}
	return s.lastToken.Valid() || s.lastToken.RefreshToken != ""
}

// UserID returns the provider user id once known (0 before the first call).
func (s *TidalSession) UserID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// LoginStart begins a device-code login. The returned PendingAuth is also
// persisted so a later LoginCheck (possibly in another process) can finish
// the handshake.
func (s *TidalSession) LoginStart(ctx context.Context) (*models.PendingAuth, error) {
	resp, err := s.config.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: device authorization: %v", shared.ErrUpstreamUnavailable, err)
	}

	pending := &models.PendingAuth{
		DeviceCode:              resp.DeviceCode,
		UserCode:                resp.UserCode,
		VerificationURI:         resp.VerificationURI,
		VerificationURIComplete: resp.VerificationURIComplete,
		Interval:                int(resp.Interval),
		ExpiresAt:               resp.Expiry,
	}
	if pending.Interval <= 0 {
		pending.Interval = 2
	}

	if s.store != nil {
		if err := s.store.SavePendingAuth(pending); err != nil {
			return nil, err
		}
	}
	return pending, nil
}

// LoginCheck performs a single poll of an in-flight device-code login.
// Returns [shared.ErrAuthPending] while the user has not confirmed yet and
// [shared.ErrAuthExpired] once the device code lapsed (clearing the pending
// record). On success it persists tokens and clears the pending record.
func (s *TidalSession) LoginCheck(ctx context.Context) error {
	if s.store == nil {
		return shared.ErrNotAuthenticated
	}
	pending, found, err := s.store.PendingAuth()
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: no login in progress", shared.ErrNotAuthenticated)
	}
	if !pending.ExpiresAt.IsZero() && time.Now().After(pending.ExpiresAt) {
		s.store.ClearPendingAuth()
		return shared.ErrAuthExpired
	}

	form := url.Values{
		"client_id":   {s.config.ClientID},
		"device_code": {pending.DeviceCode},
		"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
		"scope":       {strings.Join(s.config.Scopes, " ")},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s.config.ClientSecret != "" {
		req.SetBasicAuth(s.config.ClientID, s.config.ClientSecret)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: token poll: %v", shared.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read token response: %w", err)
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int    `json:"expires_in"`
		Error        string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("failed to parse token response: %w", err)
	}

	switch payload.Error {
	case "":
		// success, handled below
	case "authorization_pending", "slow_down":
		return shared.ErrAuthPending
	case "expired_token":
		s.store.ClearPendingAuth()
		return shared.ErrAuthExpired
	default:
		s.store.ClearPendingAuth()
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, payload.Error)
	}

	token := &oauth2.Token{
		TokenType:    payload.TokenType,
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
	}
	if payload.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	}

	s.adoptToken(token)
	if err := s.persistToken(token); err != nil {
		return err
	}
	return s.store.ClearPendingAuth()
}

// Logout drops credentials in memory and in the store.
func (s *TidalSession) Logout() error {
	s.mu.Lock()
	s.tokens = nil
	s.lastToken = nil
	s.userID = 0
	s.countryCode = ""
	s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	return s.store.ClearTokens()
}

func (s *TidalSession) adoptToken(token *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastToken = token
	s.tokens = s.config.TokenSource(context.Background(), token)
}

func (s *TidalSession) persistToken(token *oauth2.Token) error {
	if s.store == nil {
		return nil
	}
	return s.store.SaveTokens(&models.Tokens{
		TokenType:    token.TokenType,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	})
}

// token returns a live access token, refreshing and re-persisting it when
// the oauth2 TokenSource rotated it underneath us.
func (s *TidalSession) token() (*oauth2.Token, error) {
	s.mu.Lock()
	src := s.tokens
	last := s.lastToken
	s.mu.Unlock()

	if src == nil {
		return nil, shared.ErrNotAuthenticated
	}

	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenExpired, err)
	}

	if last == nil || token.AccessToken != last.AccessToken {
		s.mu.Lock()
		s.lastToken = token
		s.mu.Unlock()
		if err := s.persistToken(token); err != nil {
			return nil, err
		}
	}
	return token, nil
}

type apiError struct {
	Status      int    `json:"status"`
	SubStatus   int    `json:"subStatus"`
	UserMessage string `json:"userMessage"`
}

// do performs one authenticated API round-trip and decodes the JSON body
// into out (out may be nil for calls whose body is irrelevant).
func (s *TidalSession) do(ctx context.Context, method, path string, query, form url.Values, header http.Header, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	token, err := s.token()
	if err != nil {
		return err
	}

	if query == nil {
		query = url.Values{}
	}
	if cc := s.country(); cc != "" && query.Get("countryCode") == "" {
		query.Set("countryCode", cc)
	}

	fullURL := s.baseURL + path + "?" + query.Encode()

	var bodyReader io.Reader
	if form != nil {
		bodyReader = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	token.SetAuthHeader(req)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.UserMessage != "" {
			return fmt.Errorf("%w: %s %s: %s", shared.ErrAPIRequest, method, path, apiErr.UserMessage)
		}
		return fmt.Errorf("%w: %s %s: status %d", shared.ErrAPIRequest, method, path, resp.StatusCode)
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response for %s: %w", path, err)
	}
	return nil
}

func (s *TidalSession) country() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countryCode
}

// ensureUser lazily resolves the user id and country code for the session.
func (s *TidalSession) ensureUser(ctx context.Context) error {
	s.mu.Lock()
	known := s.userID != 0
	s.mu.Unlock()
	if known {
		return nil
	}

	var payload struct {
		UserID      int64  `json:"userId"`
		CountryCode string `json:"countryCode"`
	}
	if err := s.do(ctx, http.MethodGet, "/sessions", nil, nil, nil, &payload); err != nil {
		return err
	}

	s.mu.Lock()
	s.userID = payload.UserID
	s.countryCode = payload.CountryCode
	s.mu.Unlock()
	return nil
}

type mixPayload struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	SubTitle string `json:"subTitle"`
}

type mixPagePayload struct {
	Rows []struct {
		Modules []struct {
			Title     string `json:"title"`
			PagedList struct {
				Items []mixPayload `json:"items"`
			} `json:"pagedList"`
		} `json:"modules"`
	} `json:"rows"`
}

// MixCategories fetches the "my mixes" page and returns its modules as
// categories of raw items.
func (s *TidalSession) MixCategories(ctx context.Context) ([]models.MixCategory, error) {
	if err := s.ensureUser(ctx); err != nil {
		return nil, err
	}

	query := url.Values{"deviceType": {"BROWSER"}}
	var page mixPagePayload
	if err := s.do(ctx, http.MethodGet, "/pages/my_collection_my_mixes", query, nil, nil, &page); err != nil {
		return nil, err
	}

	var categories []models.MixCategory
	for _, row := range page.Rows {
		for _, module := range row.Modules {
			category := models.MixCategory{Title: module.Title}
			for _, item := range module.PagedList.Items {
				category.Items = append(category.Items, models.MixItem{
					ID:       item.ID,
					Title:    item.Title,
					SubTitle: item.SubTitle,
				})
			}
			categories = append(categories, category)
		}
	}
	return categories, nil
}

type trackPayload struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Duration int    `json:"duration"`
	Artist   struct {
		Name string `json:"name"`
	} `json:"artist"`
	Album struct {
		Title string `json:"title"`
	} `json:"album"`
}

func (t trackPayload) toModel() models.Track {
	return models.Track{
		ID:       strconv.FormatInt(t.ID, 10),
		Title:    t.Title,
		Artist:   t.Artist.Name,
		Album:    t.Album.Title,
		Duration: t.Duration,
	}
}

// MixTracks returns the current contents of a mix, in provider order.
func (s *TidalSession) MixTracks(ctx context.Context, mixID string) ([]models.Track, error) {
	if err := s.ensureUser(ctx); err != nil {
		return nil, err
	}

	query := url.Values{"limit": {"100"}}
	var payload struct {
		Items []struct {
			Type string       `json:"type"`
			Item trackPayload `json:"item"`
		} `json:"items"`
	}
	if err := s.do(ctx, http.MethodGet, "/mixes/"+mixID+"/items", query, nil, nil, &payload); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item.Type != "track" {
			continue
		}
		tracks = append(tracks, item.Item.toModel())
	}
	return tracks, nil
}

type playlistPayload struct {
	UUID           string `json:"uuid"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	NumberOfTracks int    `json:"numberOfTracks"`
}

func (p playlistPayload) toModel() models.Playlist {
	return models.Playlist{
		ID:          p.UUID,
		Name:        p.Title,
		Description: p.Description,
		TrackCount:  p.NumberOfTracks,
	}
}

// Playlists lists every playlist in the user's library, paging through the
// provider's offset windows.
func (s *TidalSession) Playlists(ctx context.Context) ([]models.Playlist, error) {
	if err := s.ensureUser(ctx); err != nil {
		return nil, err
	}

	var playlists []models.Playlist
	offset := 0
	for {
		query := url.Values{
			"limit":  {strconv.Itoa(playlistPageSize)},
			"offset": {strconv.Itoa(offset)},
		}
		var page struct {
			Items              []playlistPayload `json:"items"`
			TotalNumberOfItems int               `json:"totalNumberOfItems"`
		}
		path := fmt.Sprintf("/users/%d/playlists", s.UserID())
		if err := s.do(ctx, http.MethodGet, path, query, nil, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			playlists = append(playlists, item.toModel())
		}

		offset += len(page.Items)
		if len(page.Items) == 0 || offset >= page.TotalNumberOfItems {
			return playlists, nil
		}
	}
}

// CreatePlaylist creates an empty playlist in the user's library.
func (s *TidalSession) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	if err := s.ensureUser(ctx); err != nil {
		return nil, err
	}

	form := url.Values{
		"title":       {name},
		"description": {description},
	}
	var payload playlistPayload
	path := fmt.Sprintf("/users/%d/playlists", s.UserID())
	if err := s.do(ctx, http.MethodPost, path, nil, form, nil, &payload); err != nil {
		return nil, err
	}

	playlist := payload.toModel()
	return &playlist, nil
}

// AddTracks appends tracks to a playlist in the given order.
func (s *TidalSession) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}
	if err := s.ensureUser(ctx); err != nil {
		return err
	}

	form := url.Values{
		"trackIds":           {strings.Join(trackIDs, ",")},
		"onArtifactNotFound": {"SKIP"},
		"onDupes":            {"ADD"},
	}
	header := http.Header{"If-None-Match": {"*"}}
	return s.do(ctx, http.MethodPost, "/playlists/"+playlistID+"/items", nil, form, header, nil)
}

// FavoritePlaylist stars a playlist in the user's library.
func (s *TidalSession) FavoritePlaylist(ctx context.Context, playlistID string) error {
	if err := s.ensureUser(ctx); err != nil {
		return err
	}

	form := url.Values{"uuids": {playlistID}}
	path := fmt.Sprintf("/users/%d/favorites/playlists", s.UserID())
	return s.do(ctx, http.MethodPost, path, nil, form, nil, nil)
}

// DeletePlaylist removes a playlist from the user's library.
func (s *TidalSession) DeletePlaylist(ctx context.Context, playlistID string) error {
	if err := s.ensureUser(ctx); err != nil {
		return err
	}

	header := http.Header{"If-None-Match": {"*"}}
	return s.do(ctx, http.MethodDelete, "/playlists/"+playlistID, nil, nil, header, nil)
}
