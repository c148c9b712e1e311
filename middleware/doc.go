// Package middleware adapts a jam.Instance to net/http.
//
// # Guards
//
//   - [Guard] picks [JWT] or [PASETO] from the instance's auth_type.
//   - [JWT] and [PASETO] verify a bearer token or cookie and store the payload
//     in the request context.
//   - [Session] loads server-side session data by ID from a cookie or header.
//   - [Inject] stores the Instance itself for handlers that need it.
//
// Every guard attaches the client IP and User-Agent to the request context so
// audit events carry them. Rejections answer 401 unless an error handler is
// configured. This package makes no decision beyond pass or reject: all token
// and session checks are delegated to the Instance.
package middleware
