package jwt

import (
	"crypto"
	"crypto/elliptic"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"sort"

	"github.com/MrEthical07/jam/errs"
)

// Algorithm signs and verifies a JWT signing input.
//
// Sign returns the base64url signature. Verify takes the decoded signature and
// checks it against key, or against the key the algorithm was built with when key
// is nil.
type Algorithm interface {
	Name() string
	Sign(data []byte) (string, error)
	Verify(signature, data []byte, key any) error
}

// Supported algorithm identifiers.
const (
	HS256 = "HS256"
	HS384 = "HS384"
	HS512 = "HS512"
	RS256 = "RS256"
	RS384 = "RS384"
	RS512 = "RS512"
	ES256 = "ES256"
	ES384 = "ES384"
	ES512 = "ES512"
	PS256 = "PS256"
	PS384 = "PS384"
	PS512 = "PS512"
)

type factory func(secret, password any) (Algorithm, error)

var registry = map[string]factory{
	HS256: hmacFactory(HS256, crypto.SHA256),
	HS384: hmacFactory(HS384, crypto.SHA384),
	HS512: hmacFactory(HS512, crypto.SHA512),
	RS256: rsaFactory(rsaMethod(RS256, crypto.SHA256)),
	RS384: rsaFactory(rsaMethod(RS384, crypto.SHA384)),
	RS512: rsaFactory(rsaMethod(RS512, crypto.SHA512)),
	PS256: rsaFactory(pssMethod(PS256, crypto.SHA256)),
	PS384: rsaFactory(pssMethod(PS384, crypto.SHA384)),
	PS512: rsaFactory(pssMethod(PS512, crypto.SHA512)),
	ES256: ecdsaFactory(ES256, crypto.SHA256, elliptic.P256()),
	ES384: ecdsaFactory(ES384, crypto.SHA384, elliptic.P384()),
	ES512: ecdsaFactory(ES512, crypto.SHA512, elliptic.P521()),
}

// NewAlgorithm builds the strategy for alg around the given key material.
func NewAlgorithm(alg string, secret, password any) (Algorithm, error) {
	f, ok := registry[alg]
	if !ok {
		return nil, errs.Configf("jwt.unsupported_algorithm", "unsupported algorithm %q", alg)
	}
	return f(secret, password)
}

// Algorithms lists the supported identifiers in sorted order.
func Algorithms() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
