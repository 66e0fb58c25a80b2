// Package services defines the [Session] capability interface the sync core
// depends on and implements it for TIDAL.
//
// # Session Interface
//
// [Session] is the narrow waist between the engine and the provider: list
// mix categories, fetch a mix's tracks, and list/create/populate/favorite/
// delete playlists. The engine never sees raw provider payloads.
//
// # TIDAL Implementation
//
// [TidalSession] speaks the TIDAL v1 API with oauth2 bearer tokens and a
// token bucket limiter ([rate.Limiter]) in front of every call.
//
// Login uses the device authorization grant in two explicit halves so that
// both a stateless web page and a polling CLI can drive it:
//
//   - [TidalSession.LoginStart] requests a device code and persists the
//     pending authorization through the store
//   - [TidalSession.LoginCheck] performs exactly one token poll; it returns
//     [shared.ErrAuthPending] until the user confirms in the browser
//
// Tokens are re-persisted whenever the oauth2 TokenSource refreshes them, so
// credential state in the store always matches the live session.
//
// # Error Handling
//
// Methods wrap failures in the shared sentinels:
//   - [shared.ErrNotAuthenticated] : no credentials loaded
//   - [shared.ErrTokenExpired] : refresh failed, reauthorization needed
//   - [shared.ErrUpstreamUnavailable] : transport-level failure
//   - [shared.ErrAPIRequest] : provider rejected the call
package services
