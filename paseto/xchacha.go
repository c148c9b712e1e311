package paseto

import (
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/MrEthical07/jam/errs"
)

// xchachaLocal is the v2/v4 local construction: XChaCha20-Poly1305 with
// AD = PAE(header, footer) and body = nonce‖ciphertext‖tag.
type xchachaLocal struct {
	base
	key []byte
	// deriveNonce is set for v2, which binds the nonce to the payload.
	deriveNonce bool
}

func newXChaChaLocal(v Version, key any, opts []Option) (Codec, error) {
	b := newBase(v, Local, opts)
	k, err := symmetricKey(b.header, key)
	if err != nil {
		return nil, err
	}
	return &xchachaLocal{base: b, key: k, deriveNonce: v == V2}, nil
}

func (c *xchachaLocal) makeNonce(m []byte) ([]byte, error) {
	random, err := c.nonce(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, err
	}
	if !c.deriveNonce {
		return random, nil
	}
	h, err := blake2b.New(chacha20poly1305.NonceSizeX, random)
	if err != nil {
		return nil, errs.Wrap(errs.ErrEncoding, "paseto.nonce", err)
	}
	h.Write(m)
	return h.Sum(nil), nil
}

func (c *xchachaLocal) Encode(payload map[string]any, footer any) (string, error) {
	m, err := c.serialize(payload)
	if err != nil {
		return "", err
	}
	f, err := c.encodeFooter(footer)
	if err != nil {
		return "", err
	}
	n, err := c.makeNonce(m)
	if err != nil {
		return "", err
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", errs.Wrap(errs.ErrEncoding, "paseto.encrypt", err)
	}
	ct := aead.Seal(nil, n, m, PAE([]byte(c.header), f))
	return c.assemble(concat(n, ct), f), nil
}

func (c *xchachaLocal) Decode(token string) (map[string]any, any, error) {
	body, f, err := c.split(token)
	if err != nil {
		return nil, nil, err
	}
	if len(body) < chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return nil, nil, tooShort("paseto.short_body")
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, nil, c.reject("paseto.decrypt", err)
	}
	n := body[:chacha20poly1305.NonceSizeX]
	m, err := aead.Open(nil, n, body[chacha20poly1305.NonceSizeX:], PAE([]byte(c.header), f))
	if err != nil {
		return nil, nil, c.reject("paseto.invalid_tag", err)
	}
	payload, err := c.deserialize(m)
	if err != nil {
		return nil, nil, err
	}
	return payload, c.decodeFooter(f), nil
}
