package otp

import (
	"encoding/base32"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/jam/errs"
)

func TestHOTPRFC4226Vectors(t *testing.T) {
	h, err := NewHOTP([]byte("12345678901234567890"), 6, SHA1)
	if err != nil {
		t.Fatalf("NewHOTP: %v", err)
	}
	want := []string{"755224", "287082", "359152", "969429", "338314", "254676", "287922", "162583", "399871", "520489"}
	for i, code := range want {
		got, err := h.At(uint64(i))
		if err != nil || got != code {
			t.Fatalf("At(%d) = %q, %v; want %q", i, got, err, code)
		}
	}
}

func TestHOTPVerifyLookAhead(t *testing.T) {
	secret := base32.StdEncoding.EncodeToString([]byte("12345678901234567890"))
	h, err := NewHOTP(secret, 6, "sha1")
	if err != nil {
		t.Fatalf("NewHOTP: %v", err)
	}
	next, _ := h.At(1)

	if _, ok, _ := h.Verify(next, 0, 0); ok {
		t.Fatal("code for counter 1 accepted without look-ahead")
	}
	matched, ok, err := h.Verify(next, 0, 1)
	if err != nil || !ok || matched != 1 {
		t.Fatalf("Verify = %d, %v, %v", matched, ok, err)
	}
	if _, ok, _ := h.Verify("000000", 0, 0); ok {
		t.Fatal("wrong code accepted")
	}
	if _, ok, _ := h.Verify("12ab56", 0, 5); ok {
		t.Fatal("non-numeric code accepted")
	}
}

func TestTOTPRFC6238Vectors(t *testing.T) {
	cases := []struct {
		digest string
		secret string
		codes  map[int64]string
	}{
		{SHA1, "12345678901234567890", map[int64]string{
			59: "94287082", 1111111109: "07081804", 1111111111: "14050471",
			1234567890: "89005924", 2000000000: "69279037", 20000000000: "65353130",
		}},
		{SHA256, "12345678901234567890123456789012", map[int64]string{
			59: "46119246", 1111111109: "68084774", 1111111111: "67062674",
			1234567890: "91819424", 2000000000: "90698825", 20000000000: "77737706",
		}},
		{SHA512, "1234567890123456789012345678901234567890123456789012345678901234", map[int64]string{
			59: "90693936", 1111111109: "25091201", 1111111111: "99943326",
			1234567890: "93441116", 2000000000: "38618901", 20000000000: "47863826",
		}},
	}
	for _, tc := range cases {
		totp, err := NewTOTP([]byte(tc.secret), 8, tc.digest, 30*time.Second)
		if err != nil {
			t.Fatalf("%s: NewTOTP: %v", tc.digest, err)
		}
		for ts, want := range tc.codes {
			got, err := totp.At(time.Unix(ts, 0))
			if err != nil || got != want {
				t.Fatalf("%s vector failed at t=%d: got %q, %v; want %q", tc.digest, ts, got, err, want)
			}
			ok, err := totp.Verify(want, time.Unix(ts, 0), 0)
			if err != nil || !ok {
				t.Fatalf("%s Verify failed at t=%d: %v, %v", tc.digest, ts, ok, err)
			}
		}
	}
}

func TestTOTPWindow(t *testing.T) {
	totp, err := NewTOTP([]byte("12345678901234567890"), 6, SHA1, 0)
	if err != nil {
		t.Fatalf("NewTOTP: %v", err)
	}
	now := time.Unix(1_700_000_000, 0)
	totp.Now = func() time.Time { return now }

	prev, _ := totp.At(now.Add(-30 * time.Second))
	if ok, _ := totp.Verify(prev, time.Time{}, 0); ok {
		t.Fatal("previous step accepted with zero window")
	}
	if ok, _ := totp.Verify(prev, time.Time{}, 1); !ok {
		t.Fatal("previous step rejected with window 1")
	}
	next, _ := totp.At(now.Add(30 * time.Second))
	if ok, _ := totp.Verify(next, time.Time{}, 1); !ok {
		t.Fatal("next step rejected with window 1")
	}
	current, _ := totp.Code()
	if ok, _ := totp.Verify(current, time.Time{}, 0); !ok {
		t.Fatal("current code rejected")
	}
}

func TestTOTPWindowNearEpoch(t *testing.T) {
	totp, _ := NewTOTP([]byte("12345678901234567890"), 6, SHA1, 0)
	first, _ := totp.At(time.Unix(0, 0))
	if ok, err := totp.Verify(first, time.Unix(10, 0), 3); err != nil || !ok {
		t.Fatalf("Verify near epoch = %v, %v", ok, err)
	}
}

func TestProvisioningURI(t *testing.T) {
	secret, err := GenerateSecret(0)
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	if strings.Contains(secret, "=") || len(secret) != 32 {
		t.Fatalf("unexpected secret %q", secret)
	}
	totp, err := NewTOTP(secret, 6, SHA256, 60*time.Second)
	if err != nil {
		t.Fatalf("NewTOTP: %v", err)
	}
	raw := totp.ProvisioningURI("alice@example.com", "jam")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse uri: %v", err)
	}
	if u.Scheme != "otpauth" || u.Host != "totp" {
		t.Fatalf("unexpected uri %q", raw)
	}
	if u.Path != "/jam:alice@example.com" {
		t.Fatalf("unexpected label %q", u.Path)
	}
	q := u.Query()
	if q.Get("secret") != secret || q.Get("issuer") != "jam" || q.Get("period") != "60" ||
		q.Get("digits") != "6" || q.Get("algorithm") != "SHA256" {
		t.Fatalf("unexpected query %v", q)
	}
}

func TestConfigurationErrors(t *testing.T) {
	cases := []struct {
		name string
		fn   func() error
	}{
		{"empty secret", func() error { _, err := NewHOTP("", 6, SHA1); return err }},
		{"bad base32", func() error { _, err := NewHOTP("not base32!", 6, SHA1); return err }},
		{"bad type", func() error { _, err := NewHOTP(42, 6, SHA1); return err }},
		{"bad digest", func() error { _, err := NewHOTP([]byte("k"), 6, "MD5"); return err }},
		{"fractional interval", func() error { _, err := NewTOTP([]byte("k"), 6, SHA1, 1500*time.Millisecond); return err }},
	}
	for _, tc := range cases {
		if err := tc.fn(); !errors.Is(err, errs.ErrConfiguration) {
			t.Fatalf("%s: expected configuration error, got %v", tc.name, err)
		}
	}
}

func TestDecodeSecretLowercasePadded(t *testing.T) {
	enc := base32.StdEncoding.EncodeToString([]byte("hello"))
	raw, err := DecodeSecret(strings.ToLower(enc))
	if err != nil || string(raw) != "hello" {
		t.Fatalf("DecodeSecret = %q, %v", raw, err)
	}
}
