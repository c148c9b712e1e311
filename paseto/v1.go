package paseto

import (
	"crypto/hmac"
	"crypto/rsa"

	"github.com/MrEthical07/jam/errs"
	"github.com/MrEthical07/jam/keys"
)

const (
	v1NonceSize = 32
	v1TagSize   = 48
)

// V1Key builds a v1 codec. local takes a 32-byte key (base64url when a string);
// public takes RSA material, private for encoding or public for decoding only.
func V1Key(purpose Purpose, key any, opts ...Option) (Codec, error) {
	switch purpose {
	case Local:
		b := newBase(V1, Local, opts)
		k, err := symmetricKey(b.header, key)
		if err != nil {
			return nil, err
		}
		return &v1Local{base: b, key: k}, nil
	case Public:
		b := newBase(V1, Public, opts)
		c := &v1Public{base: b}
		if priv, err := keys.RSAPrivate(key, b.password); err == nil {
			c.priv = priv
			c.pub = &priv.PublicKey
			return c, nil
		}
		pub, err := keys.RSAPublic(key, b.password)
		if err != nil {
			return nil, err
		}
		c.pub = pub
		return c, nil
	default:
		return nil, errs.Configf("paseto.purpose", "unsupported purpose %q", purpose)
	}
}

type v1Local struct {
	base
	key []byte
}

func (c *v1Local) deriveKeys(salt []byte) (ek, ak []byte, err error) {
	if ek, err = hkdfSHA384(c.key, salt, []byte(infoEncryption), 32); err != nil {
		return nil, nil, err
	}
	if ak, err = hkdfSHA384(c.key, salt, []byte(infoAuth), 32); err != nil {
		return nil, nil, err
	}
	return ek, ak, nil
}

func (c *v1Local) Encode(payload map[string]any, footer any) (string, error) {
	m, err := c.serialize(payload)
	if err != nil {
		return "", err
	}
	f, err := c.encodeFooter(footer)
	if err != nil {
		return "", err
	}
	random, err := c.nonce(v1NonceSize)
	if err != nil {
		return "", err
	}
	n := hmacSHA384(random, m)[:v1NonceSize]
	ek, ak, err := c.deriveKeys(n[:16])
	if err != nil {
		return "", errs.Wrap(errs.ErrEncoding, "paseto.kdf", err)
	}
	ct, err := aesCTR(ek, n[16:], m)
	if err != nil {
		return "", errs.Wrap(errs.ErrEncoding, "paseto.encrypt", err)
	}
	tag := hmacSHA384(ak, PAE([]byte(c.header), n, ct, f))
	return c.assemble(concat(n, ct, tag), f), nil
}

func (c *v1Local) Decode(token string) (map[string]any, any, error) {
	body, f, err := c.split(token)
	if err != nil {
		return nil, nil, err
	}
	if len(body) < v1NonceSize+v1TagSize {
		return nil, nil, tooShort("paseto.short_body")
	}
	n := body[:v1NonceSize]
	ct := body[v1NonceSize : len(body)-v1TagSize]
	tag := body[len(body)-v1TagSize:]

	ek, ak, err := c.deriveKeys(n[:16])
	if err != nil {
		return nil, nil, c.reject("paseto.invalid_tag", err)
	}
	if !hmac.Equal(tag, hmacSHA384(ak, PAE([]byte(c.header), n, ct, f))) {
		return nil, nil, c.reject("paseto.invalid_tag", nil)
	}
	m, err := aesCTR(ek, n[16:], ct)
	if err != nil {
		return nil, nil, c.reject("paseto.decrypt", err)
	}
	payload, err := c.deserialize(m)
	if err != nil {
		return nil, nil, err
	}
	return payload, c.decodeFooter(f), nil
}

type v1Public struct {
	base
	priv *rsa.PrivateKey
	pub  *rsa.PublicKey
}

func (c *v1Public) Encode(payload map[string]any, footer any) (string, error) {
	if c.priv == nil {
		return "", errs.New(errs.ErrCapability, "paseto.no_private_key", "v1.public encoding requires a private key")
	}
	m, err := c.serialize(payload)
	if err != nil {
		return "", err
	}
	f, err := c.encodeFooter(footer)
	if err != nil {
		return "", err
	}
	sig, err := rsaPSS384.Sign(string(PAE([]byte(c.header), m, f)), c.priv)
	if err != nil {
		return "", errs.Wrap(errs.ErrEncoding, "paseto.sign", err)
	}
	return c.assemble(concat(m, sig), f), nil
}

func (c *v1Public) Decode(token string) (map[string]any, any, error) {
	body, f, err := c.split(token)
	if err != nil {
		return nil, nil, err
	}
	size := c.pub.Size()
	if len(body) <= size {
		return nil, nil, tooShort("paseto.short_body")
	}
	m := body[:len(body)-size]
	sig := body[len(body)-size:]
	if err := rsaPSS384.Verify(string(PAE([]byte(c.header), m, f)), sig, c.pub); err != nil {
		return nil, nil, c.reject("paseto.invalid_signature", err)
	}
	payload, err := c.deserialize(m)
	if err != nil {
		return nil, nil, err
	}
	return payload, c.decodeFooter(f), nil
}
