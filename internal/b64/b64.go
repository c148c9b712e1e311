// Package b64 implements the unpadded base64url encoding used on the wire.
package b64

import (
	"encoding/base64"
	"strings"

	"github.com/MrEthical07/jam/errs"
)

var strict = base64.RawURLEncoding.Strict()

// Encode returns the unpadded base64url form of data.
func Encode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// Decode accepts only the canonical unpadded base64url form, so each byte
// string has exactly one accepted spelling. Padding, line breaks and non-zero
// trailing bits in the final character are rejected.
func Decode(s string) ([]byte, error) {
	if strings.ContainsAny(s, "\r\n") {
		return nil, errs.Formatf("b64.decode", "line break in base64url input")
	}
	if len(s)%4 == 1 {
		return nil, errs.Formatf("b64.length", "invalid base64url length")
	}
	out, err := strict.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(errs.ErrFormat, "b64.decode", err)
	}
	return out, nil
}
