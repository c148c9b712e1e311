package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MrEthical07/jam/errs"
)

// RSAPrivate returns an RSA private key from any accepted material.
func RSAPrivate(v any, password any) (*rsa.PrivateKey, error) {
	signer, err := PrivateKey(v, password)
	if err != nil {
		return nil, err
	}
	key, ok := signer.(*rsa.PrivateKey)
	if !ok {
		return nil, errs.Configf("keys.type", "expected RSA private key, got %T", signer)
	}
	return key, nil
}

// RSAPublic returns an RSA public key, deriving it from a private key if needed.
func RSAPublic(v any, password any) (*rsa.PublicKey, error) {
	pub, err := PublicKeyAuto(v, password)
	if err != nil {
		return nil, err
	}
	key, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errs.Configf("keys.type", "expected RSA public key, got %T", pub)
	}
	return key, nil
}

// ECDSAPrivate returns an EC private key on the given curve.
func ECDSAPrivate(v any, password any, curve elliptic.Curve) (*ecdsa.PrivateKey, error) {
	signer, err := PrivateKey(v, password)
	if err != nil {
		return nil, err
	}
	key, ok := signer.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errs.Configf("keys.type", "expected EC private key, got %T", signer)
	}
	if curve != nil && key.Curve != curve {
		return nil, errs.Configf("keys.curve", "expected curve %s, got %s", curve.Params().Name, key.Curve.Params().Name)
	}
	return key, nil
}

// ECDSAPublic returns an EC public key on the given curve.
func ECDSAPublic(v any, password any, curve elliptic.Curve) (*ecdsa.PublicKey, error) {
	pub, err := PublicKeyAuto(v, password)
	if err != nil {
		return nil, err
	}
	key, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, errs.Configf("keys.type", "expected EC public key, got %T", pub)
	}
	if curve != nil && key.Curve != curve {
		return nil, errs.Configf("keys.curve", "expected curve %s, got %s", curve.Params().Name, key.Curve.Params().Name)
	}
	return key, nil
}

// Ed25519Private accepts a 32-byte seed, a 64-byte private key, PEM or a parsed key.
func Ed25519Private(v any) (ed25519.PrivateKey, error) {
	switch k := v.(type) {
	case ed25519.PrivateKey:
		return k, nil
	case []byte:
		switch len(k) {
		case ed25519.SeedSize:
			return ed25519.NewKeyFromSeed(k), nil
		case ed25519.PrivateKeySize:
			return ed25519.PrivateKey(k), nil
		}
	}
	data, err := LoadData(v)
	if err != nil {
		return nil, err
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(data)
	if err != nil {
		return nil, errs.Wrap(errs.ErrConfiguration, "keys.ed25519_private", err)
	}
	key, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errs.Configf("keys.type", "expected ed25519 private key, got %T", parsed)
	}
	return key, nil
}

// Ed25519Public accepts a raw 32-byte public key, public or private PEM, or a
// parsed key.
func Ed25519Public(v any) (ed25519.PublicKey, error) {
	switch k := v.(type) {
	case ed25519.PublicKey:
		return k, nil
	case ed25519.PrivateKey:
		return k.Public().(ed25519.PublicKey), nil
	case []byte:
		if len(k) == ed25519.PublicKeySize {
			return ed25519.PublicKey(k), nil
		}
	}
	data, err := LoadData(v)
	if err != nil {
		return nil, err
	}
	if parsed, err := jwt.ParseEdPublicKeyFromPEM(data); err == nil {
		if key, ok := parsed.(ed25519.PublicKey); ok {
			return key, nil
		}
	}
	priv, err := Ed25519Private(data)
	if err != nil {
		return nil, errs.Configf("keys.ed25519_public", "invalid ed25519 public key")
	}
	return priv.Public().(ed25519.PublicKey), nil
}

// Describe names a parsed key, e.g. "RSA-2048 private".
func Describe(key any) string {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return fmt.Sprintf("RSA-%d private", k.N.BitLen())
	case *rsa.PublicKey:
		return fmt.Sprintf("RSA-%d public", k.N.BitLen())
	case *ecdsa.PrivateKey:
		return fmt.Sprintf("EC %s private", k.Curve.Params().Name)
	case *ecdsa.PublicKey:
		return fmt.Sprintf("EC %s public", k.Curve.Params().Name)
	case ed25519.PrivateKey:
		return "Ed25519 private"
	case ed25519.PublicKey:
		return "Ed25519 public"
	case crypto.Signer:
		return fmt.Sprintf("%T", k)
	default:
		return fmt.Sprintf("unknown %T", key)
	}
}
