// Package models defines domain entities shared across the tidalsnap service.
//
// The package contains three categories of types:
//
// 1. Provider DTOs: lightweight structs for data crossing the provider boundary
//   - [Track] : track metadata as returned by a mix or playlist
//   - [Playlist] : playlist metadata from the user's library
//   - [MixCategory] / [MixItem] : raw catalog page structure
//
// 2. Resolved catalog types:
//   - [MixDescriptor] : a typed, validated mix produced by the catalog
//     resolver; transient, never cached across sync runs
//
// 3. Durable records, persisted as JSON through the key-value store:
//   - [SelectionConfig] : which mixes to snapshot and how long to keep them
//   - [SyncReport] / [MixOutcome] : the overwritten-each-run status record
//   - [Tokens] / [PendingAuth] : provider credentials and an in-flight
//     device-code login
//
// Durable records carry json tags matching the wire/status shape; provider
// DTOs deliberately do not, since every provider maps its own payloads onto
// them in internal/services.
package models
