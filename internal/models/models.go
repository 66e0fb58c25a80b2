// package models defines the data model for the mix snapshot service
package models

import (
	"strings"
	"time"
)

// Trigger labels for sync runs, recorded verbatim in the report.
const (
	TriggerManual       = "manual"
	TriggerScheduled    = "scheduled"
	TriggerExternalCron = "externalCron"
)

// Retention bounds applied whenever a SelectionConfig is saved.
const (
	DefaultRetentionDays = 7
	MinRetentionDays     = 1
	MaxRetentionDays     = 365
)

// Track represents a track returned by the provider.
type Track struct {
	ID       string
	Title    string
	Artist   string
	Album    string
	Duration int // Duration in seconds
}

// Playlist represents a playlist in the user's library.
type Playlist struct {
	ID          string
	Name        string
	Description string
	TrackCount  int
}

// MixItem is one raw entry inside a provider mix category.
type MixItem struct {
	ID       string
	Title    string
	SubTitle string
}

// MixCategory is a named group of mixes as the provider pages them.
type MixCategory struct {
	Title string
	Items []MixItem
}

// MixDescriptor is a fully-typed, resolved mix. Instances are transient:
// they live only for the duration of the resolver call that produced them.
type MixDescriptor struct {
	ID       string
	Title    string
	SubTitle string
	IsDaily  bool
}

// NewMixDescriptor builds a descriptor from a raw catalog item.
// IsDaily drives default pre-selection in the UI and nothing else.
func NewMixDescriptor(item MixItem) MixDescriptor {
	return MixDescriptor{
		ID:       item.ID,
		Title:    item.Title,
		SubTitle: item.SubTitle,
		IsDaily:  strings.Contains(strings.ToLower(item.Title), "daily"),
	}
}

// SelectionConfig holds the user's sync parameters. Persisted wholesale:
// every save replaces the previous value.
type SelectionConfig struct {
	SelectedMixIDs []string `json:"selected_mix_ids"`
	RetentionDays  int      `json:"retention_days"`
}

// DefaultSelection is the value a missing selectionConfig key resolves to.
func DefaultSelection() SelectionConfig {
	return SelectionConfig{
		SelectedMixIDs: []string{},
		RetentionDays:  DefaultRetentionDays,
	}
}

// Normalize clamps RetentionDays into [MinRetentionDays, MaxRetentionDays]
// and replaces a nil id slice so persisted configs never carry null fields.
func (s *SelectionConfig) Normalize() {
	if s.SelectedMixIDs == nil {
		s.SelectedMixIDs = []string{}
	}
	if s.RetentionDays < MinRetentionDays {
		s.RetentionDays = MinRetentionDays
	}
	if s.RetentionDays > MaxRetentionDays {
		s.RetentionDays = MaxRetentionDays
	}
}

// MixOutcome is one per-mix entry in a sync report. Exactly one of the
// created / skipped / failed shapes is populated.
type MixOutcome struct {
	Mix      string `json:"mix,omitempty"`
	MixID    string `json:"mix_id,omitempty"`
	Playlist string `json:"playlist,omitempty"`
	Tracks   int    `json:"tracks,omitempty"`
	Success  bool   `json:"success,omitempty"`
	Skipped  bool   `json:"skipped,omitempty"`
	Error    string `json:"error,omitempty"`
}

// CreatedOutcome records a snapshot playlist created during this run.
func CreatedOutcome(mixTitle, playlistName string, tracks int) MixOutcome {
	return MixOutcome{Mix: mixTitle, Playlist: playlistName, Tracks: tracks, Success: true}
}

// SkippedOutcome records the idempotency guard firing: today's snapshot
// for this mix already exists.
func SkippedOutcome(mixTitle, playlistName string) MixOutcome {
	return MixOutcome{Mix: mixTitle, Playlist: playlistName, Skipped: true}
}

// FailedOutcome records a per-mix failure. mixTitle may be empty when the
// id never resolved against the catalog.
func FailedOutcome(mixID, mixTitle, detail string) MixOutcome {
	if mixTitle == "" {
		return MixOutcome{MixID: mixID, Error: detail}
	}
	return MixOutcome{Mix: mixTitle, Error: detail}
}

// Status reports the outcome tag: "created", "skipped" or "failed".
func (o MixOutcome) Status() string {
	switch {
	case o.Success:
		return "created"
	case o.Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

// SyncReport is the durable status record for the most recent run.
// Fully replaced on every run, never appended.
type SyncReport struct {
	LastSync     time.Time    `json:"last_sync"`
	Trigger      string       `json:"trigger"`
	Results      []MixOutcome `json:"results"`
	Deleted      []string     `json:"deleted,omitempty"`
	DeletedCount int          `json:"deleted_count"`
	Error        string       `json:"error,omitempty"`
}

// FatalReport builds the degenerate report for a run that could not proceed
// at all. No per-mix work was attempted.
func FatalReport(trigger, errMsg string, at time.Time) *SyncReport {
	return &SyncReport{
		LastSync: at,
		Trigger:  trigger,
		Results:  []MixOutcome{},
		Error:    errMsg,
	}
}

// Tokens are the provider OAuth credentials persisted between runs.
type Tokens struct {
	TokenType    string    `json:"token_type"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// PendingAuth is a device-code login awaiting user confirmation, persisted
// so a later visit (or CLI invocation) can complete the handshake.
type PendingAuth struct {
	DeviceCode              string    `json:"device_code"`
	UserCode                string    `json:"user_code"`
	VerificationURI         string    `json:"verification_uri"`
	VerificationURIComplete string    `json:"verification_uri_complete"`
	Interval                int       `json:"interval"`
	ExpiresAt               time.Time `json:"expires_at"`
}
