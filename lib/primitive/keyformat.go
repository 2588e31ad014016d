// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package primitive

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"fmt"

	jose "github.com/go-jose/go-jose/v4"

	"github.com/bureau-foundation/msl/lib/mslerror"
)

// KeyFormat selects how an encoded key blob is interpreted before it
// is handed to the provider.
type KeyFormat uint8

const (
	// JWK is a JSON Web Key (RFC 7517): RSA, EC or oct.
	JWK KeyFormat = iota + 1

	// SPKI is a DER SubjectPublicKeyInfo (public keys only).
	SPKI

	// PKCS8 is a DER PKCS #8 PrivateKeyInfo (private keys only).
	PKCS8

	// RAW is raw key bytes (symmetric keys only).
	RAW
)

// String returns the tag as written on the wire and in key stores.
func (format KeyFormat) String() string {
	switch format {
	case JWK:
		return "JWK"
	case SPKI:
		return "SPKI"
	case PKCS8:
		return "PKCS8"
	case RAW:
		return "RAW"
	default:
		return fmt.Sprintf("unknown(%d)", format)
	}
}

// ParseKeyFormat parses a key format tag. An unrecognized tag yields
// UNSUPPORTED_KEY_FORMAT naming the tag.
func ParseKeyFormat(tag string) (KeyFormat, error) {
	switch tag {
	case "JWK", "jwk":
		return JWK, nil
	case "SPKI", "spki":
		return SPKI, nil
	case "PKCS8", "pkcs8":
		return PKCS8, nil
	case "RAW", "raw":
		return RAW, nil
	default:
		return 0, mslerror.New(mslerror.UnsupportedKeyFormat, "key format %q", tag)
	}
}

// ImportPublicKey decodes an RSA or ECDSA public key. SPKI and JWK are
// accepted.
func ImportPublicKey(format KeyFormat, data []byte) (crypto.PublicKey, error) {
	switch format {
	case SPKI:
		key, err := x509.ParsePKIXPublicKey(data)
		if err != nil {
			return nil, mslerror.Wrap(mslerror.InvalidPublicKey, err, "parsing SPKI")
		}
		switch key.(type) {
		case *rsa.PublicKey, *ecdsa.PublicKey:
			return key, nil
		default:
			return nil, mslerror.New(mslerror.InvalidPublicKey, "SPKI key type %T is not supported", key)
		}
	case JWK:
		parsed, err := parseJWK(data)
		if err != nil {
			return nil, mslerror.Wrap(mslerror.InvalidPublicKey, err, "parsing JWK")
		}
		key, err := asymmetricPublic(parsed.Public().Key)
		if err != nil {
			return nil, mslerror.Wrap(mslerror.InvalidPublicKey, err, "parsing JWK")
		}
		return key, nil
	default:
		return nil, mslerror.New(mslerror.InvalidPublicKey, "key format %s cannot hold a public key", format)
	}
}

// ImportPrivateKey decodes an RSA or ECDSA private key. PKCS8 and JWK
// are accepted.
func ImportPrivateKey(format KeyFormat, data []byte) (crypto.PrivateKey, error) {
	switch format {
	case PKCS8:
		key, err := x509.ParsePKCS8PrivateKey(data)
		if err != nil {
			return nil, mslerror.Wrap(mslerror.InvalidPrivateKey, err, "parsing PKCS8")
		}
		switch key.(type) {
		case *rsa.PrivateKey, *ecdsa.PrivateKey:
			return key, nil
		default:
			return nil, mslerror.New(mslerror.InvalidPrivateKey, "PKCS8 key type %T is not supported", key)
		}
	case JWK:
		parsed, err := parseJWK(data)
		if err != nil {
			return nil, mslerror.Wrap(mslerror.InvalidPrivateKey, err, "parsing JWK")
		}
		key, err := asymmetricPrivate(parsed.Key)
		if err != nil {
			return nil, mslerror.Wrap(mslerror.InvalidPrivateKey, err, "parsing JWK")
		}
		return key, nil
	default:
		return nil, mslerror.New(mslerror.InvalidPrivateKey, "key format %s cannot hold a private key", format)
	}
}

// ImportSecretKey decodes a symmetric key for algorithm. RAW and JWK
// (kty "oct") are accepted.
func ImportSecretKey(format KeyFormat, algorithm Algorithm, data []byte) (SecretKey, error) {
	switch format {
	case RAW:
		return NewSecretKey(algorithm, data)
	case JWK:
		parsed, err := parseJWK(data)
		if err != nil {
			return SecretKey{}, mslerror.Wrap(algorithm.invalidCode(), err, "parsing JWK")
		}
		material, ok := parsed.Key.([]byte)
		if !ok {
			return SecretKey{}, mslerror.New(algorithm.invalidCode(), "JWK key type %T is not a symmetric key", parsed.Key)
		}
		return NewSecretKey(algorithm, material)
	default:
		return SecretKey{}, mslerror.New(algorithm.invalidCode(), "key format %s cannot hold a secret key", format)
	}
}

// parseJWK decodes a single JSON Web Key. Key sets and unknown key
// types are rejected by the decoder.
func parseJWK(data []byte) (*jose.JSONWebKey, error) {
	var key jose.JSONWebKey
	if err := key.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	if key.Key == nil {
		return nil, fmt.Errorf("JWK holds no key")
	}
	return &key, nil
}

// minimumRSABits is the smallest modulus accepted from any key format.
const minimumRSABits = 1024

func checkRSAPublic(key *rsa.PublicKey) error {
	if key.N == nil || key.N.BitLen() < minimumRSABits {
		return fmt.Errorf("RSA modulus shorter than %d bits", minimumRSABits)
	}
	if key.E < 3 {
		return fmt.Errorf("RSA exponent %d out of range", key.E)
	}
	return nil
}

func asymmetricPublic(key any) (crypto.PublicKey, error) {
	switch typed := key.(type) {
	case *rsa.PublicKey:
		if err := checkRSAPublic(typed); err != nil {
			return nil, err
		}
		return typed, nil
	case *ecdsa.PublicKey:
		if _, err := typed.ECDH(); err != nil {
			return nil, err
		}
		return typed, nil
	default:
		return nil, fmt.Errorf("key type %T is not an RSA or ECDSA public key", key)
	}
}

func asymmetricPrivate(key any) (crypto.PrivateKey, error) {
	switch typed := key.(type) {
	case *rsa.PrivateKey:
		if err := checkRSAPublic(&typed.PublicKey); err != nil {
			return nil, err
		}
		if err := typed.Validate(); err != nil {
			return nil, err
		}
		return typed, nil
	case *ecdsa.PrivateKey:
		if _, err := typed.ECDH(); err != nil {
			return nil, err
		}
		return typed, nil
	default:
		return nil, fmt.Errorf("key type %T is not an RSA or ECDSA private key", key)
	}
}

// ExportJWK encodes an RSA or ECDSA public key as a JWK.
func ExportJWK(key crypto.PublicKey) ([]byte, error) {
	switch key.(type) {
	case *rsa.PublicKey, *ecdsa.PublicKey:
	default:
		return nil, mslerror.New(mslerror.InvalidPublicKey, "key type %T cannot be exported as JWK", key)
	}
	encoded, err := jose.JSONWebKey{Key: key}.MarshalJSON()
	if err != nil {
		return nil, mslerror.Wrap(mslerror.InvalidPublicKey, err, "encoding JWK")
	}
	return encoded, nil
}
