// Package paseto implements PASETO v1 through v4 in both local (authenticated
// encryption) and public (signature) purposes.
//
// Codecs are built with [Key] or the per-version constructors and are bound to a
// single version and purpose for their lifetime. Key length and type errors
// surface at construction.
//
// Every token starts with the header "vX.purpose."; that exact string is also the
// first element of the pre-authentication encoding ([PAE]) that binds header,
// payload and footer together. Decode checks the header before anything else and
// never returns plaintext from a token whose tag or signature failed.
//
// # What this package must NOT do
//
//   - Decrypt before the authentication tag verifies.
//   - Distinguish wrong-key from tampered-token failures in returned errors.
package paseto
