package paseto

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha512"
	"io"

	gjwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const (
	infoEncryption = "paseto-encryption-key"
	infoAuth       = "paseto-auth-key-for-aead"
)

// rsaPSS384 is RSA-PSS with SHA-384, MGF1-SHA384 and the maximum salt length.
var rsaPSS384 = &gjwt.SigningMethodRSAPSS{
	SigningMethodRSA: &gjwt.SigningMethodRSA{Name: "PS384", Hash: crypto.SHA384},
	Options:          &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto},
	VerifyOptions:    &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto},
}

func hmacSHA384(key []byte, data ...[]byte) []byte {
	mac := hmac.New(sha512.New384, key)
	for _, d := range data {
		mac.Write(d)
	}
	return mac.Sum(nil)
}

func hkdfSHA384(secret, salt, info []byte, n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha512.New384, secret, salt, info), out); err != nil {
		return nil, err
	}
	return out, nil
}

func aesCTR(key, iv, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	cipher.NewCTR(block, iv).XORKeyStream(out, data)
	return out, nil
}

func concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
