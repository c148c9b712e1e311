// Package jam provides pluggable authentication primitives: JWT and PASETO
// codecs, server-side sessions, black and white token lists, OTP helpers and
// OAuth2 clients, assembled behind one [Instance].
//
// The codecs live in their own packages (jwt, paseto) and can be used
// directly. Instance adds configuration loading, expiry and list checks,
// metrics and audit events on top of them.
//
// # Architecture boundaries
//
// jam is the public surface. It exposes [Instance], [Builder], [Config], and
// value types (MetricsSnapshot, AuditEvent). Codec packages never import jam,
// and nothing under internal/ is re-exported.
//
// # Concurrency
//
// Instance methods are safe to call from multiple goroutines after
// [Builder.Build]. Token verification performs no I/O unless a Redis or JSON
// list is configured and checkList is requested.
package jam
