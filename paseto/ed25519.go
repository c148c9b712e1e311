package paseto

import (
	"crypto/ed25519"

	"github.com/MrEthical07/jam/errs"
	"github.com/MrEthical07/jam/keys"
)

// edPublic is the v2/v4 public construction: Ed25519 over PAE(header, message,
// footer) with body = message‖signature.
type edPublic struct {
	base
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// newEdPublic accepts a raw 32-byte public key, a 64-byte private key, PEM or
// parsed keys. A public key alone yields a decode-only codec.
func newEdPublic(v Version, key any, opts []Option) (Codec, error) {
	c := &edPublic{base: newBase(v, Public, opts)}
	switch k := key.(type) {
	case ed25519.PublicKey:
		c.pub = k
		return c, nil
	case []byte:
		if len(k) == ed25519.PublicKeySize {
			c.pub = append(ed25519.PublicKey(nil), k...)
			return c, nil
		}
	}
	if priv, err := keys.Ed25519Private(key); err == nil {
		c.priv = priv
		c.pub = priv.Public().(ed25519.PublicKey)
		return c, nil
	}
	pub, err := keys.Ed25519Public(key)
	if err != nil {
		return nil, errs.Configf("paseto.key", "invalid key for %s", string(v)+".public")
	}
	c.pub = pub
	return c, nil
}

func (c *edPublic) Encode(payload map[string]any, footer any) (string, error) {
	if c.priv == nil {
		return "", errs.New(errs.ErrCapability, "paseto.no_private_key", "public encoding requires a private key")
	}
	m, err := c.serialize(payload)
	if err != nil {
		return "", err
	}
	f, err := c.encodeFooter(footer)
	if err != nil {
		return "", err
	}
	sig := ed25519.Sign(c.priv, PAE([]byte(c.header), m, f))
	return c.assemble(concat(m, sig), f), nil
}

func (c *edPublic) Decode(token string) (map[string]any, any, error) {
	body, f, err := c.split(token)
	if err != nil {
		return nil, nil, err
	}
	if len(body) <= ed25519.SignatureSize {
		return nil, nil, tooShort("paseto.short_body")
	}
	m := body[:len(body)-ed25519.SignatureSize]
	sig := body[len(body)-ed25519.SignatureSize:]
	if !ed25519.Verify(c.pub, PAE([]byte(c.header), m, f), sig) {
		return nil, nil, c.reject("paseto.invalid_signature", nil)
	}
	payload, err := c.deserialize(m)
	if err != nil {
		return nil, nil, err
	}
	return payload, c.decodeFooter(f), nil
}
