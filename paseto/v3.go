package paseto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/hmac"

	gjwt "github.com/golang-jwt/jwt/v5"

	"github.com/MrEthical07/jam/errs"
	"github.com/MrEthical07/jam/keys"
)

const (
	v3NonceSize = 32
	v3TagSize   = 48
	v3SigSize   = 96
)

// V3Key builds a v3 codec. local takes a 32-byte key; public takes P-384 ECDSA
// material.
func V3Key(purpose Purpose, key any, opts ...Option) (Codec, error) {
	switch purpose {
	case Local:
		b := newBase(V3, Local, opts)
		k, err := symmetricKey(b.header, key)
		if err != nil {
			return nil, err
		}
		return &v3Local{base: b, key: k}, nil
	case Public:
		b := newBase(V3, Public, opts)
		c := &v3Public{base: b}
		if priv, err := keys.ECDSAPrivate(key, b.password, elliptic.P384()); err == nil {
			c.priv = priv
			c.pub = &priv.PublicKey
		} else {
			pub, err := keys.ECDSAPublic(key, b.password, elliptic.P384())
			if err != nil {
				return nil, err
			}
			c.pub = pub
		}
		c.compressed = elliptic.MarshalCompressed(c.pub.Curve, c.pub.X, c.pub.Y)
		return c, nil
	default:
		return nil, errs.Configf("paseto.purpose", "unsupported purpose %q", purpose)
	}
}

type v3Local struct {
	base
	key []byte
}

// deriveKeys returns the encryption key, CTR nonce and authentication key for n.
func (c *v3Local) deriveKeys(n []byte) (ek, iv, ak []byte, err error) {
	tmp, err := hkdfSHA384(c.key, nil, concat([]byte(infoEncryption), n), 48)
	if err != nil {
		return nil, nil, nil, err
	}
	ak, err = hkdfSHA384(c.key, nil, concat([]byte(infoAuth), n), 48)
	if err != nil {
		return nil, nil, nil, err
	}
	return tmp[:32], tmp[32:], ak, nil
}

func (c *v3Local) Encode(payload map[string]any, footer any) (string, error) {
	m, err := c.serialize(payload)
	if err != nil {
		return "", err
	}
	f, err := c.encodeFooter(footer)
	if err != nil {
		return "", err
	}
	n, err := c.nonce(v3NonceSize)
	if err != nil {
		return "", err
	}
	ek, iv, ak, err := c.deriveKeys(n)
	if err != nil {
		return "", errs.Wrap(errs.ErrEncoding, "paseto.kdf", err)
	}
	ct, err := aesCTR(ek, iv, m)
	if err != nil {
		return "", errs.Wrap(errs.ErrEncoding, "paseto.encrypt", err)
	}
	tag := hmacSHA384(ak, PAE([]byte(c.header), n, ct, f, nil))
	return c.assemble(concat(n, ct, tag), f), nil
}

func (c *v3Local) Decode(token string) (map[string]any, any, error) {
	body, f, err := c.split(token)
	if err != nil {
		return nil, nil, err
	}
	if len(body) < v3NonceSize+v3TagSize {
		return nil, nil, tooShort("paseto.short_body")
	}
	n := body[:v3NonceSize]
	ct := body[v3NonceSize : len(body)-v3TagSize]
	tag := body[len(body)-v3TagSize:]

	ek, iv, ak, err := c.deriveKeys(n)
	if err != nil {
		return nil, nil, c.reject("paseto.invalid_tag", err)
	}
	if !hmac.Equal(tag, hmacSHA384(ak, PAE([]byte(c.header), n, ct, f, nil))) {
		return nil, nil, c.reject("paseto.invalid_tag", nil)
	}
	m, err := aesCTR(ek, iv, ct)
	if err != nil {
		return nil, nil, c.reject("paseto.decrypt", err)
	}
	payload, err := c.deserialize(m)
	if err != nil {
		return nil, nil, err
	}
	return payload, c.decodeFooter(f), nil
}

// v3Public signs PAE(compressed public key, header, message, footer, implicit)
// with ECDSA P-384/SHA-384 and a fixed-width r‖s signature.
type v3Public struct {
	base
	priv       *ecdsa.PrivateKey
	pub        *ecdsa.PublicKey
	compressed []byte
}

func (c *v3Public) Encode(payload map[string]any, footer any) (string, error) {
	if c.priv == nil {
		return "", errs.New(errs.ErrCapability, "paseto.no_private_key", "v3.public encoding requires a private key")
	}
	m, err := c.serialize(payload)
	if err != nil {
		return "", err
	}
	f, err := c.encodeFooter(footer)
	if err != nil {
		return "", err
	}
	sig, err := gjwt.SigningMethodES384.Sign(string(PAE(c.compressed, []byte(c.header), m, f, nil)), c.priv)
	if err != nil {
		return "", errs.Wrap(errs.ErrEncoding, "paseto.sign", err)
	}
	return c.assemble(concat(m, sig), f), nil
}

func (c *v3Public) Decode(token string) (map[string]any, any, error) {
	body, f, err := c.split(token)
	if err != nil {
		return nil, nil, err
	}
	if len(body) <= v3SigSize {
		return nil, nil, tooShort("paseto.short_body")
	}
	m := body[:len(body)-v3SigSize]
	sig := body[len(body)-v3SigSize:]
	if err := gjwt.SigningMethodES384.Verify(string(PAE(c.compressed, []byte(c.header), m, f, nil)), sig, c.pub); err != nil {
		return nil, nil, c.reject("paseto.invalid_signature", err)
	}
	payload, err := c.deserialize(m)
	if err != nil {
		return nil, nil, err
	}
	return payload, c.decodeFooter(f), nil
}
