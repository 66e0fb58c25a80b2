// Package server provides the HTTP surface of the snapshot service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method-qualified patterns.
//
// # Routes
//
//   - GET /        landing page; drives the device-code login when not connected
//   - GET /sync    runs a snapshot-and-prune cycle and returns the report
//   - GET /status  durable status record plus live process state
//   - GET /config  current selection config
//   - POST /config replaces the selection config
//
// GET /sync?source=cron marks the run as externally scheduled, for hosts
// whose own cron hits the endpoint instead of relying on the in-process
// scheduler.
//
// # PIN Gate
//
// Every route sits behind [PinGate]: when an access PIN is stored, requests
// must present it as the tidalsnap_pin cookie or a ?pin= query parameter.
// With no PIN stored the gate is open, which suits single-user LAN deploys.
package server
