package jwt

import (
	"crypto"
	"crypto/elliptic"
	"crypto/rsa"

	gjwt "github.com/golang-jwt/jwt/v5"

	"github.com/MrEthical07/jam/errs"
	"github.com/MrEthical07/jam/internal/b64"
	"github.com/MrEthical07/jam/keys"
)

// keyLoader resolves private and public keys for one algorithm family.
type keyLoader struct {
	private func(v, password any) (crypto.Signer, error)
	public  func(v, password any) (crypto.PublicKey, error)
}

// asymmetricAlgorithm delegates the signature primitive to golang-jwt and owns key
// handling. signer is nil for verify-only codecs.
type asymmetricAlgorithm struct {
	method   gjwt.SigningMethod
	loader   keyLoader
	password any
	signer   crypto.Signer
	verifier crypto.PublicKey
	sigSize  int
}

func newAsymmetric(method gjwt.SigningMethod, loader keyLoader, sigSize int, secret, password any) (Algorithm, error) {
	a := &asymmetricAlgorithm{method: method, loader: loader, password: password, sigSize: sigSize}
	signer, privErr := loader.private(secret, password)
	if privErr == nil {
		a.signer = signer
		a.verifier = signer.Public()
		return a, nil
	}
	pub, pubErr := loader.public(secret, password)
	if pubErr != nil {
		return nil, privErr
	}
	a.verifier = pub
	return a, nil
}

func (a *asymmetricAlgorithm) Name() string { return a.method.Alg() }

func (a *asymmetricAlgorithm) Sign(data []byte) (string, error) {
	if a.signer == nil {
		return "", errs.New(errs.ErrCapability, "jwt.no_private_key", a.method.Alg()+" signing requires a private key")
	}
	sig, err := a.method.Sign(string(data), a.signer)
	if err != nil {
		return "", errs.Wrap(errs.ErrEncoding, "jwt.sign", err)
	}
	return b64.Encode(sig), nil
}

func (a *asymmetricAlgorithm) Verify(signature, data []byte, key any) error {
	if a.sigSize > 0 && len(signature) != a.sigSize {
		return errs.New(errs.ErrVerification, "jwt.signature_length", "signature has the wrong length")
	}
	pub := a.verifier
	if key != nil {
		override, err := a.loader.public(key, a.password)
		if err != nil {
			return err
		}
		pub = override
	}
	if err := a.method.Verify(string(data), signature, pub); err != nil {
		return errs.Wrap(errs.ErrVerification, "jwt.invalid_signature", err)
	}
	return nil
}

var rsaLoader = keyLoader{
	private: func(v, password any) (crypto.Signer, error) { return keys.RSAPrivate(v, password) },
	public:  func(v, password any) (crypto.PublicKey, error) { return keys.RSAPublic(v, password) },
}

func rsaMethod(name string, hash crypto.Hash) gjwt.SigningMethod {
	return &gjwt.SigningMethodRSA{Name: name, Hash: hash}
}

// pssMethod signs with the maximum salt length and accepts any salt on verify.
func pssMethod(name string, hash crypto.Hash) gjwt.SigningMethod {
	return &gjwt.SigningMethodRSAPSS{
		SigningMethodRSA: &gjwt.SigningMethodRSA{Name: name, Hash: hash},
		Options:          &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto},
		VerifyOptions:    &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto},
	}
}

func rsaFactory(method gjwt.SigningMethod) factory {
	return func(secret, password any) (Algorithm, error) {
		return newAsymmetric(method, rsaLoader, 0, secret, password)
	}
}

func ecdsaFactory(name string, hash crypto.Hash, curve elliptic.Curve) factory {
	bits := curve.Params().BitSize
	size := (bits + 7) / 8
	method := &gjwt.SigningMethodECDSA{Name: name, Hash: hash, KeySize: size, CurveBits: bits}
	loader := keyLoader{
		private: func(v, password any) (crypto.Signer, error) { return keys.ECDSAPrivate(v, password, curve) },
		public:  func(v, password any) (crypto.PublicKey, error) { return keys.ECDSAPublic(v, password, curve) },
	}
	return func(secret, password any) (Algorithm, error) {
		return newAsymmetric(method, loader, 2*size, secret, password)
	}
}
