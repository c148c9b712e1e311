package main

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/jam"
	"github.com/MrEthical07/jam/internal/b64"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// rfcSecret is the base32 form of the RFC 6238 SHA1 seed "12345678901234567890".
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommandExecution(t *testing.T) {
	original := buildVersion
	defer func() { buildVersion = original }()
	SetVersion("1.2.3-test")

	out, err := execute(t, "", "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if out != "jamctl version 1.2.3-test\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestJWTEncodeDecode(t *testing.T) {
	token, err := execute(t, "", "jwt", "encode", "--key", testSecret, `{"sub":"alice"}`)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		t.Fatalf("expected compact JWT, got %q", token)
	}

	// Token on stdin.
	out, err := execute(t, token, "jwt", "decode", "--key", testSecret)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode output is not JSON: %v", err)
	}
	if payload["sub"] != "alice" {
		t.Fatalf("expected sub alice, got %v", payload["sub"])
	}
	for _, claim := range []string{"iat", "jti"} {
		if _, ok := payload[claim]; !ok {
			t.Fatalf("expected %s claim in %v", claim, payload)
		}
	}
}

func TestJWTDecodeRejections(t *testing.T) {
	expired, err := execute(t, "", "jwt", "encode", "--raw", "--key", testSecret, `{"sub":"alice","exp":1}`)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	expired = strings.TrimSpace(expired)

	_, err = execute(t, "", "jwt", "decode", "--key", testSecret, expired)
	if !errors.Is(err, jam.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if code := getExitCode(err); code != ExitCodeRejected {
		t.Fatalf("expected exit code %d, got %d", ExitCodeRejected, code)
	}

	if _, err := execute(t, "", "jwt", "decode", "--no-exp", "--key", testSecret, expired); err != nil {
		t.Fatalf("--no-exp decode failed: %v", err)
	}

	_, err = execute(t, "", "jwt", "decode", "--key", "another-secret-another-secret-00", expired)
	if !errors.Is(err, jam.ErrVerification) {
		t.Fatalf("expected ErrVerification, got %v", err)
	}

	_, err = execute(t, "", "jwt", "decode", "--alg", "XX999", "--key", testSecret, expired)
	if code := getExitCode(err); code != ExitCodeConfig {
		t.Fatalf("expected exit code %d for bad alg, got %d (%v)", ExitCodeConfig, code, err)
	}
}

func TestPASETOLocalRoundTrip(t *testing.T) {
	key := b64.Encode(bytes.Repeat([]byte{7}, 32))

	token, err := execute(t, `{"sub":"bob"}`, "paseto", "encode", "--key", key, "--footer", `{"kid":"k1"}`)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	token = strings.TrimSpace(token)
	if !strings.HasPrefix(token, "v4.local.") {
		t.Fatalf("expected v4.local token, got %q", token)
	}

	out, err := execute(t, "", "paseto", "decode", "--key", key, token)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	var decoded struct {
		Payload map[string]any `json:"payload"`
		Footer  map[string]any `json:"footer"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode output is not JSON: %v", err)
	}
	if decoded.Payload["sub"] != "bob" || decoded.Footer["kid"] != "k1" {
		t.Fatalf("unexpected decode output %s", out)
	}

	_, err = execute(t, "", "paseto", "decode", "--version", "v2", "--key", key, token)
	if code := getExitCode(err); code != ExitCodeRejected {
		t.Fatalf("expected rejection for version mismatch, got %d (%v)", code, err)
	}
}

func TestFooterValue(t *testing.T) {
	if footerValue("") != nil {
		t.Fatal("empty footer should be nil")
	}
	if _, ok := footerValue(`{"kid":"a"}`).(map[string]any); !ok {
		t.Fatal("JSON object footer should be a map")
	}
	if s, ok := footerValue("plain").(string); !ok || s != "plain" {
		t.Fatal("plain footer should stay a string")
	}
}

func TestOTPCodeAndVerify(t *testing.T) {
	out, err := execute(t, "", "otp", "code", "--secret", rfcSecret, "--digits", "8", "--factor", "59")
	if err != nil {
		t.Fatalf("code failed: %v", err)
	}
	if got := strings.TrimSpace(out); got != "94287082" {
		t.Fatalf("expected 94287082, got %q", got)
	}

	if _, err := execute(t, "", "otp", "verify", "--secret", rfcSecret, "--digits", "8", "--factor", "59", "94287082"); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	_, err = execute(t, "", "otp", "verify", "--secret", rfcSecret, "--digits", "8", "--factor", "59", "00000000")
	if !errors.Is(err, jam.ErrOTPInvalid) {
		t.Fatalf("expected ErrOTPInvalid, got %v", err)
	}
	if code := getExitCode(err); code != ExitCodeRejected {
		t.Fatalf("expected exit code %d, got %d", ExitCodeRejected, code)
	}
}

func TestOTPHOTPCounter(t *testing.T) {
	// RFC 4226 appendix D, counter 1.
	out, err := execute(t, "", "otp", "code", "--type", "hotp", "--secret", rfcSecret, "--factor", "1")
	if err != nil {
		t.Fatalf("code failed: %v", err)
	}
	if got := strings.TrimSpace(out); got != "287082" {
		t.Fatalf("expected 287082, got %q", got)
	}
}

func TestOTPSecretAndURI(t *testing.T) {
	out, err := execute(t, "", "otp", "secret", "--bytes", "10")
	if err != nil {
		t.Fatalf("secret failed: %v", err)
	}
	secret := strings.TrimSpace(out)
	if len(secret) != 16 {
		t.Fatalf("expected 16 base32 characters, got %q", secret)
	}

	out, err = execute(t, "", "otp", "uri", "--secret", secret, "--issuer", "Acme", "alice@example.com")
	if err != nil {
		t.Fatalf("uri failed: %v", err)
	}
	if !strings.HasPrefix(out, "otpauth://totp/") || !strings.Contains(out, "issuer=Acme") {
		t.Fatalf("unexpected uri %q", out)
	}

	png := filepath.Join(t.TempDir(), "qr.png")
	if _, err := execute(t, "", "otp", "uri", "--secret", secret, "--qr", png, "alice"); err != nil {
		t.Fatalf("uri --qr failed: %v", err)
	}
	data, err := os.ReadFile(png)
	if err != nil {
		t.Fatalf("read qr: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatal("expected a PNG file")
	}
}

func TestOTPRequiresSecret(t *testing.T) {
	if _, err := execute(t, "", "otp", "code"); err == nil {
		t.Fatal("expected missing --secret to fail")
	}
}

func TestKeysInspect(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	path := filepath.Join(t.TempDir(), "ec.pem")
	if err := os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	out, err := execute(t, "", "keys", "inspect", path)
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if out != "EC P-256 private\nEC P-256 public\n" {
		t.Fatalf("unexpected output %q", out)
	}

	_, err = execute(t, "", "keys", "inspect", filepath.Join(t.TempDir(), "missing.pem"))
	if code := getExitCode(err); code != ExitCodeConfig {
		t.Fatalf("expected exit code %d, got %d (%v)", ExitCodeConfig, code, err)
	}
}

func TestConfigCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jam.yaml")
	body := `jam:
  jwt:
    alg: HS256
    secret: ` + testSecret + `
  otp:
    digits: 8
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := execute(t, "", "config", "check", path)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	for _, want := range []string{"auth_type: jwt", "jwt: HS256", "otp: totp 8 digits SHA1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output %q", want, out)
		}
	}
}

func TestGlobalConfigFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jam.yaml")
	body := "jam:\n  jwt:\n    alg: HS512\n    secret: " + testSecret + "\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	token, err := execute(t, "", "--config", path, "jwt", "encode", "{}")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	token = strings.TrimSpace(token)

	header, err := b64.Decode(strings.Split(token, ".")[0])
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if !strings.Contains(string(header), "HS512") {
		t.Fatalf("expected configured HS512, got header %s", header)
	}

	// An explicit flag wins over the file.
	_, err = execute(t, "", "--config", path, "jwt", "decode", "--alg", "HS256", token)
	if !errors.Is(err, jam.ErrAlgorithmMismatch) {
		t.Fatalf("expected ErrAlgorithmMismatch, got %v", err)
	}
}

func TestBenchMiniredis(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")

	var out bytes.Buffer
	err := runBench(t.Context(), &out, benchOptions{sessions: 20, concurrency: 4, ops: 40, prefix: "bench:"})
	if err != nil {
		t.Fatalf("bench failed: %v", err)
	}
	for _, phase := range []string{"session-get: ops=40 failures=0", "session-rework: ops=40 failures=0", "jwt-verify: ops=40 failures=0"} {
		if !strings.Contains(out.String(), phase) {
			t.Fatalf("expected %q in output:\n%s", phase, out.String())
		}
	}
}

func TestBenchTable(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")

	var out bytes.Buffer
	err := runBench(t.Context(), &out, benchOptions{sessions: 5, concurrency: 2, ops: 10, prefix: "bench:", table: true})
	if err != nil {
		t.Fatalf("bench failed: %v", err)
	}
	for _, phase := range []string{"session-get", "session-rework", "jwt-verify"} {
		if !strings.Contains(out.String(), phase) {
			t.Fatalf("expected %q row in table:\n%s", phase, out.String())
		}
	}
	if strings.Contains(out.String(), "---- results ----") {
		t.Fatal("table output must replace the plain summary")
	}
}

func TestBenchRejectsZeroValues(t *testing.T) {
	var out bytes.Buffer
	if err := runBench(t.Context(), &out, benchOptions{}); err == nil {
		t.Fatal("expected error for zero options")
	}
}

func TestPercentile(t *testing.T) {
	stats := computeStats(0, nil, 3)
	if stats.ops != 0 || stats.failures != 3 {
		t.Fatalf("unexpected empty stats %+v", stats)
	}

	samples := []time.Duration{5, 1, 4, 2, 3}
	stats = computeStats(time.Second, samples, 0)
	if stats.p50 != 3 || stats.p99 != 4 || stats.ops != 5 || stats.opsPerS != 5 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if percentile(samples, 0) != 1 || percentile(samples, 100) != 5 {
		t.Fatal("percentile bounds should return min and max")
	}
}
