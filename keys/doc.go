// Package keys normalizes key material for the jwt and paseto codecs.
//
// Material may arrive as a file path, PEM text, DER bytes, raw Ed25519 bytes or an
// already-parsed Go key. Every loader returns a typed key or an error of kind
// errs.ErrConfiguration.
//
// # Resolution order
//
// A string is first treated as a filesystem path. If the path names a regular file
// its contents become the key material; otherwise the string itself is used as PEM
// text. Byte slices are used as-is. A string password is UTF-8 encoded.
//
// # What this package must NOT do
//
//   - Generate or rotate keys.
//   - Cache parsed keys across calls; codecs hold the parsed key for their lifetime.
package keys
