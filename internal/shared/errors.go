package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrAuthPending      = fmt.Errorf("authorization pending")
	ErrAuthExpired      = fmt.Errorf("device authorization expired")
	ErrTokenExpired     = fmt.Errorf("access token expired")

	// Provider and service errors
	ErrUpstreamUnavailable = fmt.Errorf("provider unavailable")
	ErrAPIRequest          = fmt.Errorf("API request failed")
	ErrMixNotFound         = fmt.Errorf("mix not found")
	ErrPlaylistNotFound    = fmt.Errorf("playlist not found")

	// Sync precondition errors
	ErrNotConnected = fmt.Errorf("not connected")
	ErrNoSelection  = fmt.Errorf("no mixes selected")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
