package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"

	"github.com/youmark/pkcs8"

	"github.com/MrEthical07/jam/errs"
)

var errUnknownKey = errors.New("unrecognized key encoding")

// ParsePrivateKey parses PEM or DER private keys. PKCS#1, SEC1, PKCS#8, encrypted
// PKCS#8 and legacy encrypted PEM are accepted.
func ParsePrivateKey(data []byte, password []byte) (crypto.Signer, error) {
	der := data
	if block, _ := pem.Decode(data); block != nil {
		der = block.Bytes
		switch {
		case block.Type == "ENCRYPTED PRIVATE KEY":
			if len(password) == 0 {
				return nil, errs.Configf("keys.password_required", "encrypted private key requires a password")
			}
			key, err := pkcs8.ParsePKCS8PrivateKey(der, password)
			if err != nil {
				return nil, errs.Wrap(errs.ErrConfiguration, "keys.decrypt", err)
			}
			return asSigner(key)
		case x509.IsEncryptedPEMBlock(block): //nolint:staticcheck // legacy RFC 1423 keys are still in circulation
			if len(password) == 0 {
				return nil, errs.Configf("keys.password_required", "encrypted private key requires a password")
			}
			plain, err := x509.DecryptPEMBlock(block, password) //nolint:staticcheck
			if err != nil {
				return nil, errs.Wrap(errs.ErrConfiguration, "keys.decrypt", err)
			}
			der = plain
		}
	}

	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return asSigner(key)
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, errs.Wrap(errs.ErrConfiguration, "keys.private", errUnknownKey)
}

// ParsePublicKey parses PEM or DER public keys, including certificates.
func ParsePublicKey(data []byte) (crypto.PublicKey, error) {
	der := data
	if block, _ := pem.Decode(data); block != nil {
		der = block.Bytes
	}
	if key, err := x509.ParsePKIXPublicKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PublicKey(der); err == nil {
		return key, nil
	}
	if cert, err := x509.ParseCertificate(der); err == nil {
		return cert.PublicKey, nil
	}
	return nil, errs.Wrap(errs.ErrConfiguration, "keys.public", errUnknownKey)
}

// PrivateKey returns a signer from any accepted material.
func PrivateKey(v any, password any) (crypto.Signer, error) {
	if s, ok := v.(crypto.Signer); ok {
		return asSigner(s)
	}
	data, err := LoadData(v)
	if err != nil {
		return nil, err
	}
	pw, err := Password(password)
	if err != nil {
		return nil, err
	}
	return ParsePrivateKey(data, pw)
}

// PublicKeyAuto returns a public key, deriving it from private material when no
// public key can be parsed.
func PublicKeyAuto(v any, password any) (crypto.PublicKey, error) {
	switch k := v.(type) {
	case *rsa.PublicKey, *ecdsa.PublicKey, ed25519.PublicKey:
		return k, nil
	case crypto.Signer:
		return k.Public(), nil
	}
	data, err := LoadData(v)
	if err != nil {
		return nil, err
	}
	if pub, err := ParsePublicKey(data); err == nil {
		return pub, nil
	}
	pw, err := Password(password)
	if err != nil {
		return nil, err
	}
	priv, err := ParsePrivateKey(data, pw)
	if err != nil {
		return nil, errs.Wrap(errs.ErrConfiguration, "keys.public", errUnknownKey)
	}
	return priv.Public(), nil
}

func asSigner(key any) (crypto.Signer, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return k, nil
	case *ecdsa.PrivateKey:
		return k, nil
	case ed25519.PrivateKey:
		return k, nil
	case *ed25519.PrivateKey:
		return *k, nil
	default:
		return nil, errs.Configf("keys.type", "unsupported private key type %T", key)
	}
}
