package keystore

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidKeyMaterial = errors.New("invalid key material")

// KeyStore holds the trust root's public key for token verification.
// Loaded once at startup, immutable afterwards.
type KeyStore struct {
	public crypto.PublicKey
}

// Load parses a PEM block containing either an x509 certificate or a
// PKIX public key (RSA, ECDSA or Ed25519).
func Load(pemBytes []byte) (*KeyStore, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrInvalidKeyMaterial)
	}

	var pub crypto.PublicKey
	switch block.Type {
	case "CERTIFICATE":
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse certificate: %v", ErrInvalidKeyMaterial, err)
		}
		pub = cert.PublicKey
	default:
		p, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse public key: %v", ErrInvalidKeyMaterial, err)
		}
		pub = p
	}

	switch pub.(type) {
	case *rsa.PublicKey, *ecdsa.PublicKey, ed25519.PublicKey:
	default:
		return nil, fmt.Errorf("%w: unsupported public key type %T", ErrInvalidKeyMaterial, pub)
	}

	return &KeyStore{public: pub}, nil
}

func LoadFile(path string) (*KeyStore, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(b)
}

func (ks *KeyStore) Public() crypto.PublicKey { return ks.public }

// Keyfunc pins the accepted signing algorithm family to the loaded key
// type. A token whose alg header does not match the key is rejected
// before any signature check.
func (ks *KeyStore) Keyfunc(t *jwt.Token) (any, error) {
	switch ks.public.(type) {
	case *rsa.PublicKey:
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %q for RSA key", t.Method.Alg())
		}
	case *ecdsa.PublicKey:
		if _, ok := t.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %q for ECDSA key", t.Method.Alg())
		}
	case ed25519.PublicKey:
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method %q for Ed25519 key", t.Method.Alg())
		}
	}
	return ks.public, nil
}

// Signer holds the token signer's private key. It is a separate
// capability from the KeyStore: verification never touches it.
type Signer struct {
	key    crypto.PrivateKey
	method jwt.SigningMethod
}

// LoadSigner parses a PEM-encoded private key (PKCS#8, PKCS#1 or SEC1).
func LoadSigner(pemBytes []byte) (*Signer, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrInvalidKeyMaterial)
	}

	var key crypto.PrivateKey
	if k, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		key = k
	} else if k, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		key = k
	} else if k, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		key = k
	} else {
		return nil, fmt.Errorf("%w: not a parseable private key", ErrInvalidKeyMaterial)
	}

	method, err := methodForKey(key)
	if err != nil {
		return nil, err
	}
	return &Signer{key: key, method: method}, nil
}

func LoadSignerFile(path string) (*Signer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadSigner(b)
}

// NewSigner wraps an already constructed private key, used by tests and
// in-process token minting.
func NewSigner(key crypto.PrivateKey) (*Signer, error) {
	method, err := methodForKey(key)
	if err != nil {
		return nil, err
	}
	return &Signer{key: key, method: method}, nil
}

func (s *Signer) Key() crypto.PrivateKey    { return s.key }
func (s *Signer) Method() jwt.SigningMethod { return s.method }

func methodForKey(key crypto.PrivateKey) (jwt.SigningMethod, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return jwt.SigningMethodRS256, nil
	case *ecdsa.PrivateKey:
		switch k.Curve {
		case elliptic.P256():
			return jwt.SigningMethodES256, nil
		case elliptic.P384():
			return jwt.SigningMethodES384, nil
		case elliptic.P521():
			return jwt.SigningMethodES512, nil
		}
		return nil, fmt.Errorf("%w: unsupported ECDSA curve", ErrInvalidKeyMaterial)
	case ed25519.PrivateKey:
		return jwt.SigningMethodEdDSA, nil
	}
	return nil, fmt.Errorf("%w: unsupported private key type %T", ErrInvalidKeyMaterial, key)
}
