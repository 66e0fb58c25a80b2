// Package store implements the durable key-value persistence layer.
//
// Values are JSON blobs in a single SQLite table. The contract is
// deliberately narrow: load(key) → value | absent, save(key, value)
// overwrites, and a missing key always resolves to a defined default at the
// typed accessor level ([Store.Selection] returns defaults, [Store.Tokens]
// reports absence). There is no schema migration story beyond CREATE TABLE
// IF NOT EXISTS; the five well-known keys are the whole surface.
//
// Reads and writes are not transactional across keys. Concurrent writers to
// the same key interleave last-writer-wins, which is acceptable for purely
// informational records like the sync status.
package store
