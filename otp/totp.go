package otp

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/jam/errs"
)

// DefaultInterval is the TOTP step when Interval is zero.
const DefaultInterval = 30 * time.Second

// TOTP generates time-based codes on top of HOTP.
type TOTP struct {
	HOTP
	Interval time.Duration
	// Now is the clock used by Now and Verify with a zero time.
	Now func() time.Time
}

// NewTOTP builds a TOTP. interval must be a whole number of seconds.
func NewTOTP(secret any, digits int, digest string, interval time.Duration) (*TOTP, error) {
	h, err := NewHOTP(secret, digits, digest)
	if err != nil {
		return nil, err
	}
	if interval == 0 {
		interval = DefaultInterval
	}
	if interval < time.Second || interval%time.Second != 0 {
		return nil, errs.Configf("otp.interval", "interval must be a positive whole number of seconds")
	}
	return &TOTP{HOTP: *h, Interval: interval, Now: time.Now}, nil
}

func (t *TOTP) counter(at time.Time) uint64 {
	sec := at.Unix()
	if sec < 0 {
		return 0
	}
	return uint64(sec) / uint64(t.Interval/time.Second)
}

// At returns the code valid at the given time.
func (t *TOTP) At(at time.Time) (string, error) {
	return t.HOTP.At(t.counter(at))
}

// Code returns the code for the current time.
func (t *TOTP) Code() (string, error) {
	return t.At(t.Now())
}

// Verify accepts candidate if it matches any step within window steps of at.
// A zero at means the current time.
func (t *TOTP) Verify(candidate string, at time.Time, window int) (bool, error) {
	if at.IsZero() {
		at = t.Now()
	}
	if window < 0 {
		window = 0
	}
	base := t.counter(at)
	start := base
	if uint64(window) > base {
		start = 0
	} else {
		start = base - uint64(window)
	}
	_, ok, err := t.HOTP.Verify(candidate, start, int(base-start)+window)
	return ok, err
}

// ProvisioningURI returns an otpauth:// URI for authenticator apps.
func (t *TOTP) ProvisioningURI(name, issuer string) string {
	label := name
	if issuer != "" {
		label = issuer + ":" + name
	}
	v := url.Values{}
	v.Set("secret", secretEncoding.EncodeToString(t.secret))
	if issuer != "" {
		v.Set("issuer", issuer)
	}
	v.Set("period", strconv.Itoa(int(t.Interval/time.Second)))
	v.Set("digits", strconv.Itoa(t.Digits))
	v.Set("algorithm", strings.ToUpper(defaultDigest(t.Digest)))
	return "otpauth://totp/" + url.PathEscape(label) + "?" + v.Encode()
}

func defaultDigest(d string) string {
	if d == "" {
		return SHA1
	}
	return d
}
