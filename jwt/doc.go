// Package jwt encodes and verifies JSON Web Tokens for the HS, RS, ES and PS
// algorithm families.
//
// A [Codec] is bound to one algorithm and one set of key material at construction.
// Decoding rejects a token whose header names a different algorithm before any
// signature check runs, then verifies against the original base64url segments.
// Every signature failure is reported as errs.ErrVerification; the specific cause
// only reaches the injected logger.
//
// # Architecture boundaries
//
// The package owns algorithm dispatch and the encode/decode state machine. Token
// lists, expiry policy and claim construction live above it: lists plug in through
// [ListChecker], expiry is enforced by the jam Instance.
//
// # What this package must NOT do
//
//   - Accept "none" or any algorithm outside the registry.
//   - Re-encode header or payload when recomputing the signing input.
//   - Distinguish wrong-key from tampered-data failures in returned errors.
package jwt
