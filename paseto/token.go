package paseto

import (
	"crypto/rand"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/MrEthical07/jam/errs"
	"github.com/MrEthical07/jam/internal/b64"
	"github.com/MrEthical07/jam/serializer"
)

// Version is a PASETO protocol version.
type Version string

// Purpose selects symmetric (local) or asymmetric (public) protection.
type Purpose string

const (
	V1 Version = "v1"
	V2 Version = "v2"
	V3 Version = "v3"
	V4 Version = "v4"

	Local  Purpose = "local"
	Public Purpose = "public"
)

// Codec encodes and decodes tokens for one version and purpose.
//
// Footer accepts a map (serialized), a string or []byte (used raw) or nil. Decode
// returns the footer as a map when it deserializes to one, else as a string when
// it is valid UTF-8, else as []byte; nil when the token has no footer. An empty
// footer ("" or a zero-length []byte) is the same as nil: the token carries no
// footer segment and Decode reports nil.
type Codec interface {
	Version() Version
	Purpose() Purpose
	Encode(payload map[string]any, footer any) (string, error)
	Decode(token string) (map[string]any, any, error)
}

// Option configures a codec.
type Option func(*options)

type options struct {
	serializer serializer.Serializer
	logger     *slog.Logger
	password   any
	rand       io.Reader
}

// WithSerializer replaces the canonical JSON serializer for payloads and footers.
func WithSerializer(s serializer.Serializer) Option {
	return func(o *options) { o.serializer = s }
}

// WithLogger sets the logger used for rejection diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPassword sets the password for encrypted PEM private keys.
func WithPassword(password any) Option {
	return func(o *options) { o.password = password }
}

// WithRandom replaces crypto/rand as the nonce source.
func WithRandom(r io.Reader) Option {
	return func(o *options) { o.rand = r }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.serializer == nil {
		o.serializer = serializer.Default()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.rand == nil {
		o.rand = rand.Reader
	}
	return o
}

// base carries what every codec shares.
type base struct {
	version Version
	purpose Purpose
	header  string
	options
}

func newBase(v Version, p Purpose, opts []Option) base {
	return base{version: v, purpose: p, header: string(v) + "." + string(p) + ".", options: buildOptions(opts)}
}

func (b *base) Version() Version { return b.version }
func (b *base) Purpose() Purpose { return b.purpose }

func (b *base) nonce(n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(b.rand, out); err != nil {
		return nil, errs.Wrap(errs.ErrEncoding, "paseto.nonce", err)
	}
	return out, nil
}

func (b *base) encodeFooter(footer any) ([]byte, error) {
	switch f := footer.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		out, err := b.serializer.Dumps(f)
		if err != nil {
			return nil, errs.Wrap(errs.ErrEncoding, "paseto.footer", err)
		}
		return out, nil
	case string:
		return []byte(f), nil
	case []byte:
		return f, nil
	default:
		return nil, errs.Configf("paseto.footer_type", "unsupported footer type %T", footer)
	}
}

func (b *base) decodeFooter(raw []byte) any {
	if raw == nil {
		return nil
	}
	if m, err := b.serializer.Loads(raw); err == nil {
		return m
	}
	if utf8.Valid(raw) {
		return string(raw)
	}
	return raw
}

func (b *base) serialize(payload map[string]any) ([]byte, error) {
	out, err := b.serializer.Dumps(payload)
	if err != nil {
		return nil, errs.Wrap(errs.ErrEncoding, "paseto.payload", err)
	}
	return out, nil
}

func (b *base) deserialize(raw []byte) (map[string]any, error) {
	return b.serializer.Loads(raw)
}

func (b *base) assemble(body, footer []byte) string {
	var sb strings.Builder
	sb.WriteString(b.header)
	sb.WriteString(b64.Encode(body))
	if len(footer) > 0 {
		sb.WriteByte('.')
		sb.WriteString(b64.Encode(footer))
	}
	return sb.String()
}

// split checks the header and returns the decoded body and footer.
func (b *base) split(token string) ([]byte, []byte, error) {
	if !strings.HasPrefix(token, b.header) {
		if looksLikeToken(token) {
			return nil, nil, errs.New(errs.ErrAlgorithmMismatch, "paseto.header_mismatch", "token header does not match codec").
				WithDetails("expected", b.header)
		}
		return nil, nil, errs.Formatf("paseto.format", "not a PASETO token")
	}
	segments := strings.Split(token[len(b.header):], ".")
	if len(segments) > 2 || segments[0] == "" {
		return nil, nil, errs.Formatf("paseto.format", "token must have three or four segments")
	}
	body, err := b64.Decode(segments[0])
	if err != nil {
		return nil, nil, err
	}
	var footer []byte
	if len(segments) == 2 {
		if segments[1] == "" {
			return nil, nil, errs.Formatf("paseto.format", "empty footer segment")
		}
		if footer, err = b64.Decode(segments[1]); err != nil {
			return nil, nil, err
		}
	}
	return body, footer, nil
}

func (b *base) reject(code string, cause error) error {
	b.logger.Debug("paseto token rejected", "header", b.header, "code", code, "error", cause)
	return errs.New(errs.ErrVerification, code, "invalid authentication or corrupt token")
}

func looksLikeToken(token string) bool {
	parts := strings.SplitN(token, ".", 3)
	if len(parts) != 3 {
		return false
	}
	switch Version(parts[0]) {
	case V1, V2, V3, V4:
	default:
		return false
	}
	return Purpose(parts[1]) == Local || Purpose(parts[1]) == Public
}

func tooShort(code string) error {
	return errs.Formatf(code, "token body is too short")
}

// symmetricKey accepts 32 raw bytes, or a base64url string (padding optional)
// that decodes to 32 bytes.
func symmetricKey(header string, key any) ([]byte, error) {
	name := strings.TrimSuffix(header, ".")
	var raw []byte
	switch k := key.(type) {
	case []byte:
		raw = k
	case string:
		decoded, err := b64.Decode(strings.TrimRight(k, "="))
		if err != nil {
			return nil, errs.Configf("paseto.key", "%s key string must be base64url", name)
		}
		raw = decoded
	case nil:
		return nil, errs.Configf("paseto.key_missing", "%s key is required", name)
	default:
		return nil, errs.Configf("paseto.key_type", "unsupported %s key type %T", name, key)
	}
	if len(raw) != 32 {
		return nil, errs.Configf("paseto.key_length", "%s key must be 32 bytes, got %d", name, len(raw)).
			WithDetails("length", len(raw))
	}
	out := make([]byte, 32)
	copy(out, raw)
	return out, nil
}
