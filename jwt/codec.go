package jwt

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/MrEthical07/jam/errs"
	"github.com/MrEthical07/jam/internal/b64"
	"github.com/MrEthical07/jam/serializer"
)

// ListChecker is consulted after a signature verifies. Returning an error rejects
// the token; list hits should carry errs.ErrListed.
type ListChecker interface {
	Check(ctx context.Context, token string) error
}

// ListCheckerFunc adapts a function to ListChecker.
type ListCheckerFunc func(ctx context.Context, token string) error

// Check calls f.
func (f ListCheckerFunc) Check(ctx context.Context, token string) error { return f(ctx, token) }

// Option configures a Codec.
type Option func(*options)

type options struct {
	password   any
	serializer serializer.Serializer
	lists      ListChecker
	logger     *slog.Logger
}

// WithPassword sets the password for encrypted private keys.
func WithPassword(password any) Option {
	return func(o *options) { o.password = password }
}

// WithSerializer replaces the canonical JSON serializer.
func WithSerializer(s serializer.Serializer) Option {
	return func(o *options) { o.serializer = s }
}

// WithListChecker installs a post-verification list hook.
func WithListChecker(l ListChecker) Option {
	return func(o *options) { o.lists = l }
}

// WithLogger sets the logger used for rejection diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Codec encodes and decodes JWTs for a single algorithm.
//
// Codec instances are immutable after New and safe for concurrent use.
type Codec struct {
	alg        Algorithm
	serializer serializer.Serializer
	lists      ListChecker
	logger     *slog.Logger
}

// New builds a Codec for alg. Unsupported algorithms and unusable key material are
// reported here as errs.ErrConfiguration.
func New(alg string, secret any, opts ...Option) (*Codec, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	a, err := NewAlgorithm(alg, secret, o.password)
	if err != nil {
		return nil, err
	}
	return NewWithAlgorithm(a, opts...), nil
}

// NewWithAlgorithm wraps a caller-supplied Algorithm.
func NewWithAlgorithm(a Algorithm, opts ...Option) *Codec {
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
	return &Codec{alg: a, serializer: o.serializer, lists: o.lists, logger: o.logger}
}

// Algorithm returns the configured algorithm identifier.
func (c *Codec) Algorithm() string { return c.alg.Name() }

// Encode serializes and signs payload.
func (c *Codec) Encode(payload map[string]any) (string, error) {
	header, err := c.serializer.Dumps(map[string]any{"typ": "JWT", "alg": c.alg.Name()})
	if err != nil {
		return "", errs.Wrap(errs.ErrEncoding, "jwt.encode_header", err)
	}
	body, err := c.serializer.Dumps(payload)
	if err != nil {
		return "", errs.Wrap(errs.ErrEncoding, "jwt.encode_payload", err)
	}
	signingInput := b64.Encode(header) + "." + b64.Encode(body)
	sig, err := c.alg.Sign([]byte(signingInput))
	if err != nil {
		if errors.Is(err, errs.ErrCapability) || errors.Is(err, errs.ErrEncoding) {
			return "", err
		}
		return "", errs.Wrap(errs.ErrEncoding, "jwt.sign", err)
	}
	return signingInput + "." + sig, nil
}

// Decode verifies token with the configured key and returns its payload.
func (c *Codec) Decode(token string) (map[string]any, error) {
	return c.DecodeContext(context.Background(), token, nil)
}

// DecodeWithKey verifies token against publicKey instead of the configured key.
func (c *Codec) DecodeWithKey(token string, publicKey any) (map[string]any, error) {
	return c.DecodeContext(context.Background(), token, publicKey)
}

// DecodeContext is Decode with a context for the list hook. publicKey may be nil.
func (c *Codec) DecodeContext(ctx context.Context, token string, publicKey any) (map[string]any, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return nil, errs.Formatf("jwt.format", "token must have three non-empty segments")
	}

	headerRaw, err := b64.Decode(parts[0])
	if err != nil {
		return nil, err
	}
	header, err := c.serializer.Loads(headerRaw)
	if err != nil {
		return nil, err
	}
	bodyRaw, err := b64.Decode(parts[1])
	if err != nil {
		return nil, err
	}
	payload, err := c.serializer.Loads(bodyRaw)
	if err != nil {
		return nil, err
	}

	alg, _ := header["alg"].(string)
	if alg != c.alg.Name() {
		c.logger.Debug("jwt algorithm mismatch", "expected", c.alg.Name(), "got", alg)
		return nil, errs.New(errs.ErrAlgorithmMismatch, "jwt.algorithm_mismatch", "token algorithm does not match codec").
			WithDetails("expected", c.alg.Name())
	}

	sig, err := b64.Decode(parts[2])
	if err != nil {
		return nil, err
	}
	if err := c.alg.Verify(sig, []byte(parts[0]+"."+parts[1]), publicKey); err != nil {
		if errors.Is(err, errs.ErrConfiguration) {
			return nil, err
		}
		c.logger.Debug("jwt signature rejected", "alg", alg, "error", err)
		return nil, errs.New(errs.ErrVerification, "jwt.invalid_signature", "invalid signature")
	}

	if c.lists != nil {
		if err := c.lists.Check(ctx, token); err != nil {
			c.logger.Debug("jwt rejected by list", "error", err)
			return nil, err
		}
	}
	return payload, nil
}
