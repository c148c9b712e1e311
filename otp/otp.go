// Package otp implements HOTP (RFC 4226) and TOTP (RFC 6238) codes.
package otp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"hash"
	"strings"

	"github.com/MrEthical07/jam/errs"
)

// Digest names accepted by HOTP and TOTP.
const (
	SHA1   = "SHA1"
	SHA256 = "SHA256"
	SHA512 = "SHA512"
)

// DefaultDigits is used when Digits is zero.
const DefaultDigits = 6

var secretEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecret returns n random bytes encoded as unpadded base32. n <= 0
// selects 20 bytes.
func GenerateSecret(n int) (string, error) {
	if n <= 0 {
		n = 20
	}
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return secretEncoding.EncodeToString(raw), nil
}

// DecodeSecret converts a base32 string (case-insensitive, padding optional) or
// raw []byte into key bytes.
func DecodeSecret(v any) ([]byte, error) {
	switch s := v.(type) {
	case []byte:
		if len(s) == 0 {
			return nil, errs.Configf("otp.secret", "empty otp secret")
		}
		return s, nil
	case string:
		clean := strings.ToUpper(strings.TrimRight(strings.ReplaceAll(s, " ", ""), "="))
		if clean == "" {
			return nil, errs.Configf("otp.secret", "empty otp secret")
		}
		raw, err := secretEncoding.DecodeString(clean)
		if err != nil {
			return nil, errs.Wrap(errs.ErrConfiguration, "otp.secret", fmt.Errorf("secret is not base32: %w", err))
		}
		return raw, nil
	default:
		return nil, errs.Configf("otp.secret", "unsupported secret type %T", v)
	}
}

func digestFunc(name string) (func() hash.Hash, error) {
	switch strings.ToUpper(name) {
	case "", SHA1:
		return sha1.New, nil
	case SHA256:
		return sha256.New, nil
	case SHA512:
		return sha512.New, nil
	default:
		return nil, errs.Configf("otp.digest", "unsupported otp digest %q", name)
	}
}

// code computes the truncated HOTP value for counter.
func code(secret []byte, counter uint64, digits int, digest string) (string, error) {
	hf, err := digestFunc(digest)
	if err != nil {
		return "", err
	}
	if digits <= 0 {
		digits = DefaultDigits
	}
	if digits > 10 {
		return "", errs.Configf("otp.digits", "digits must be at most 10")
	}

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)
	mac := hmac.New(hf, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := uint64(sum[offset]&0x7f)<<24 |
		uint64(sum[offset+1])<<16 |
		uint64(sum[offset+2])<<8 |
		uint64(sum[offset+3])

	mod := uint64(1)
	for i := 0; i < digits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", digits, bin%mod), nil
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
