// Package session provides server-side sessions keyed by "<session key>:<id>".
//
// # Storage
//
// A [Manager] implements the session operations (create, get, update, delete,
// rework, clear) once, on top of a [Backend] that only stores opaque bytes.
// [RedisBackend] keeps each session under its own key with a TTL plus a per-key
// index set; [JSONBackend] keeps everything in one JSON file for single-process
// deployments and tests.
//
// # Encryption
//
// With [WithEncryption], both the session ID handed to clients and the stored
// payload are sealed with PASETO v4.local and carry the "J$_" marker. Unsealed
// IDs and payloads are rejected in that mode.
//
// # What this package must NOT do
//
//   - Interpret session data; it is an opaque claim mapping.
//   - Import jam or jwt (no upward imports).
package session
