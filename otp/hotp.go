package otp

import "strings"

// HOTP generates counter-based codes.
type HOTP struct {
	secret []byte
	Digits int
	Digest string
}

// NewHOTP builds an HOTP from a base32 string or raw []byte secret.
func NewHOTP(secret any, digits int, digest string) (*HOTP, error) {
	raw, err := DecodeSecret(secret)
	if err != nil {
		return nil, err
	}
	if _, err := digestFunc(digest); err != nil {
		return nil, err
	}
	if digits <= 0 {
		digits = DefaultDigits
	}
	return &HOTP{secret: raw, Digits: digits, Digest: strings.ToUpper(digest)}, nil
}

// At returns the code for counter.
func (h *HOTP) At(counter uint64) (string, error) {
	return code(h.secret, counter, h.Digits, h.Digest)
}

// Verify checks candidate against counter..counter+lookAhead and returns the
// counter that matched.
func (h *HOTP) Verify(candidate string, counter uint64, lookAhead int) (uint64, bool, error) {
	candidate = strings.TrimSpace(candidate)
	if len(candidate) != h.Digits || !isNumeric(candidate) {
		return 0, false, nil
	}
	for i := 0; i <= lookAhead; i++ {
		c := counter + uint64(i)
		want, err := h.At(c)
		if err != nil {
			return 0, false, err
		}
		if equal(want, candidate) {
			return c, true, nil
		}
	}
	return 0, false, nil
}
