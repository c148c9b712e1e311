package paseto

import (
	"sort"
	"strings"

	"github.com/MrEthical07/jam/errs"
)

// Constructor builds a codec for one version.
type Constructor func(purpose Purpose, key any, opts ...Option) (Codec, error)

var versions = map[Version]Constructor{
	V1: V1Key,
	V2: V2Key,
	V3: V3Key,
	V4: V4Key,
}

// V2Key builds a v2 codec: XChaCha20-Poly1305 with a payload-bound nonce for
// local, Ed25519 for public.
func V2Key(purpose Purpose, key any, opts ...Option) (Codec, error) {
	return xchachaOrEd(V2, purpose, key, opts)
}

// V4Key builds a v4 codec: XChaCha20-Poly1305 for local, Ed25519 for public.
func V4Key(purpose Purpose, key any, opts ...Option) (Codec, error) {
	return xchachaOrEd(V4, purpose, key, opts)
}

func xchachaOrEd(v Version, purpose Purpose, key any, opts []Option) (Codec, error) {
	switch purpose {
	case Local:
		return newXChaChaLocal(v, key, opts)
	case Public:
		return newEdPublic(v, key, opts)
	default:
		return nil, errs.Configf("paseto.purpose", "unsupported purpose %q", purpose)
	}
}

// Key builds a codec for version and purpose from the registry.
func Key(version Version, purpose Purpose, key any, opts ...Option) (Codec, error) {
	ctor, ok := versions[version]
	if !ok {
		return nil, errs.Configf("paseto.version", "unsupported version %q", version)
	}
	return ctor(purpose, key, opts...)
}

// Versions lists the registered versions in order.
func Versions() []Version {
	out := make([]Version, 0, len(versions))
	for v := range versions {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseHeader returns the version and purpose a token claims, without verifying it.
func ParseHeader(token string) (Version, Purpose, error) {
	if !looksLikeToken(token) {
		return "", "", errs.Formatf("paseto.format", "not a PASETO token")
	}
	parts := strings.SplitN(token, ".", 3)
	return Version(parts[0]), Purpose(parts[1]), nil
}
