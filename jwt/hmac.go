package jwt

import (
	"crypto"
	"crypto/hmac"

	"github.com/MrEthical07/jam/errs"
	"github.com/MrEthical07/jam/internal/b64"
)

type hmacAlgorithm struct {
	name string
	hash crypto.Hash
	key  []byte
}

func hmacFactory(name string, hash crypto.Hash) factory {
	return func(secret, _ any) (Algorithm, error) {
		key, err := hmacKey(secret)
		if err != nil {
			return nil, err
		}
		return &hmacAlgorithm{name: name, hash: hash, key: key}, nil
	}
}

func hmacKey(v any) ([]byte, error) {
	switch k := v.(type) {
	case []byte:
		if len(k) > 0 {
			return k, nil
		}
	case string:
		if k != "" {
			return []byte(k), nil
		}
	default:
		return nil, errs.Configf("jwt.key_type", "HMAC secret must be bytes or string, got %T", v)
	}
	return nil, errs.Configf("jwt.key_missing", "HMAC secret is empty")
}

func (a *hmacAlgorithm) Name() string { return a.name }

func (a *hmacAlgorithm) Sign(data []byte) (string, error) {
	return b64.Encode(a.sum(a.key, data)), nil
}

func (a *hmacAlgorithm) Verify(signature, data []byte, key any) error {
	k := a.key
	if key != nil {
		override, err := hmacKey(key)
		if err != nil {
			return err
		}
		k = override
	}
	if !hmac.Equal(signature, a.sum(k, data)) {
		return errs.New(errs.ErrVerification, "jwt.invalid_signature", "hmac mismatch")
	}
	return nil
}

func (a *hmacAlgorithm) sum(key, data []byte) []byte {
	mac := hmac.New(a.hash.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}
