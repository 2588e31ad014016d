// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package entityauth

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"maps"
	"sync"

	"github.com/bureau-foundation/msl/lib/clock"
	"github.com/bureau-foundation/msl/lib/codec"
	"github.com/bureau-foundation/msl/lib/cryptocontext"
	"github.com/bureau-foundation/msl/lib/mslerror"
	"github.com/bureau-foundation/msl/lib/primitive"
)

// Factory turns a claim into the CryptoContext that authenticates the
// claimed entity.
type Factory interface {
	CryptoContext(data Data) (cryptocontext.CryptoContext, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(data Data) (cryptocontext.CryptoContext, error)

// CryptoContext calls f(data).
func (f FactoryFunc) CryptoContext(data Data) (cryptocontext.CryptoContext, error) {
	return f(data)
}

// Registry maps schemes to parsers and factories. The zero value is
// not usable; call NewRegistry.
type Registry struct {
	mu        sync.RWMutex
	parsers   parserTable
	factories map[Scheme]Factory
}

// NewRegistry returns a registry that parses every built-in scheme and
// has no factories.
func NewRegistry() *Registry {
	return &Registry{
		parsers:   maps.Clone(defaultParsers),
		factories: make(map[Scheme]Factory),
	}
}

// RegisterParser adds or replaces the parser for scheme.
func (registry *Registry) RegisterParser(scheme Scheme, parser ParseFunc) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.parsers[scheme] = parser
}

// RegisterFactory adds or replaces the factory for scheme.
func (registry *Registry) RegisterFactory(scheme Scheme, factory Factory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.factories[scheme] = factory
}

// Parse decodes entity authentication data with the registered
// parsers.
func (registry *Registry) Parse(format codec.Format, encoded []byte) (Data, error) {
	registry.mu.RLock()
	parsers := maps.Clone(registry.parsers)
	registry.mu.RUnlock()
	return parsers.parse(format, encoded)
}

// CryptoContext returns the context for data from the factory
// registered for its scheme, or ENTITY_AUTH_NOT_SUPPORTED.
func (registry *Registry) CryptoContext(data Data) (cryptocontext.CryptoContext, error) {
	registry.mu.RLock()
	factory, ok := registry.factories[data.Scheme()]
	registry.mu.RUnlock()
	if !ok {
		return nil, mslerror.New(mslerror.EntityAuthNotSupported, "scheme %s", data.Scheme())
	}
	return factory.CryptoContext(data)
}

// PresharedKeys is the symmetric key set shared with one entity. A
// zero Wrapping key means "derive it".
type PresharedKeys struct {
	Encryption primitive.SecretKey
	HMAC       primitive.SecretKey
	Wrapping   primitive.SecretKey
}

// PresharedStore looks up pre-shared or model-group keys by identity.
type PresharedStore interface {
	PresharedKeys(identity string) (PresharedKeys, bool)
}

// PublicKeyStore looks up registered public keys by key id.
type PublicKeyStore interface {
	PublicKey(id string) (crypto.PublicKey, bool)
}

// PresharedFactory returns the PSK factory. The context holds the
// entity's encryption and HMAC keys and a wrapping key that is either
// stored or derived with lib/wrapkey.
func PresharedFactory(provider primitive.Provider, store PresharedStore) Factory {
	return FactoryFunc(func(data Data) (cryptocontext.CryptoContext, error) {
		if _, ok := data.(Preshared); !ok {
			return nil, mslerror.New(mslerror.EntityAuthNotSupported, "PSK factory given %s data", data.Scheme())
		}
		return symmetricForIdentity(provider, store, data.Identity(), false)
	})
}

// ModelGroupFactory returns the MGK factory. The wrapping key is
// always derived from the group's encryption and HMAC keys.
func ModelGroupFactory(provider primitive.Provider, store PresharedStore) Factory {
	return FactoryFunc(func(data Data) (cryptocontext.CryptoContext, error) {
		if _, ok := data.(ModelGroup); !ok {
			return nil, mslerror.New(mslerror.EntityAuthNotSupported, "MGK factory given %s data", data.Scheme())
		}
		return symmetricForIdentity(provider, store, data.Identity(), true)
	})
}

func symmetricForIdentity(provider primitive.Provider, store PresharedStore, identity string, alwaysDerive bool) (cryptocontext.CryptoContext, error) {
	keys, ok := store.PresharedKeys(identity)
	if !ok {
		return nil, mslerror.New(mslerror.EntityUnknown, "no pre-shared keys for %q", identity)
	}
	wrapping := keys.Wrapping
	if alwaysDerive || wrapping.IsZero() {
		derived, err := cryptocontext.NewDerivedWrap(provider, identity, keys.Encryption, keys.HMAC)
		if err != nil {
			return nil, err
		}
		wrapping = derived.Keys().Wrapping
	}
	return cryptocontext.NewSymmetric(provider, identity, cryptocontext.SymmetricKeys{
		Encryption: keys.Encryption,
		HMAC:       keys.HMAC,
		Wrapping:   wrapping,
	})
}

// RSAFactory returns a factory yielding verify-only RSA contexts over
// the public key named by the claim's pubkeyid.
func RSAFactory(provider primitive.Provider, store PublicKeyStore) Factory {
	return FactoryFunc(func(data Data) (cryptocontext.CryptoContext, error) {
		claim, ok := data.(RSA)
		if !ok {
			return nil, mslerror.New(mslerror.EntityAuthNotSupported, "RSA factory given %s data", data.Scheme())
		}
		key, ok := store.PublicKey(claim.PublicKeyID())
		if !ok {
			return nil, mslerror.New(mslerror.EntityUnknown, "no public key %q for %q", claim.PublicKeyID(), claim.Identity())
		}
		public, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, mslerror.New(mslerror.InvalidPublicKey, "public key %q is %T, not RSA", claim.PublicKeyID(), key)
		}
		return cryptocontext.NewRSA(provider, claim.Identity(), nil, public, cryptocontext.RSASign)
	})
}

// ECCFactory returns a factory yielding verify-only ECDSA contexts
// over the public key named by the claim's pubkeyid.
func ECCFactory(provider primitive.Provider, store PublicKeyStore) Factory {
	return FactoryFunc(func(data Data) (cryptocontext.CryptoContext, error) {
		claim, ok := data.(ECC)
		if !ok {
			return nil, mslerror.New(mslerror.EntityAuthNotSupported, "ECC factory given %s data", data.Scheme())
		}
		key, ok := store.PublicKey(claim.PublicKeyID())
		if !ok {
			return nil, mslerror.New(mslerror.EntityUnknown, "no public key %q for %q", claim.PublicKeyID(), claim.Identity())
		}
		public, ok := key.(*ecdsa.PublicKey)
		if !ok {
			return nil, mslerror.New(mslerror.InvalidPublicKey, "public key %q is %T, not ECDSA", claim.PublicKeyID(), key)
		}
		return cryptocontext.NewECC(provider, claim.Identity(), nil, public), nil
	})
}

// X509Factory returns a factory that verifies the claimed certificate
// against roots at the clock's current time and yields a verify-only
// context over the certificate key.
func X509Factory(provider primitive.Provider, roots *x509.CertPool, clk clock.Clock) Factory {
	return FactoryFunc(func(data Data) (cryptocontext.CryptoContext, error) {
		claim, ok := data.(X509)
		if !ok {
			return nil, mslerror.New(mslerror.EntityAuthNotSupported, "X509 factory given %s data", data.Scheme())
		}
		certificate := claim.Certificate()
		if certificate == nil {
			return nil, mslerror.New(mslerror.MissingField, "X509 authdata: x509certificate")
		}
		_, err := certificate.Verify(x509.VerifyOptions{
			Roots:       roots,
			CurrentTime: clk.Now(),
			KeyUsages:   []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
		})
		if err != nil {
			return nil, mslerror.Wrap(mslerror.CertificateUntrusted, err, "%q", claim.Identity())
		}
		switch public := certificate.PublicKey.(type) {
		case *rsa.PublicKey:
			return cryptocontext.NewRSA(provider, claim.Identity(), nil, public, cryptocontext.RSASign)
		case *ecdsa.PublicKey:
			return cryptocontext.NewECC(provider, claim.Identity(), nil, public), nil
		default:
			return nil, mslerror.New(mslerror.InvalidPublicKey, "certificate key type %T", certificate.PublicKey)
		}
	})
}

// UnauthenticatedFactory returns the factory for NONE and
// NONE_SUFFIXED claims. It yields the Null context unless the identity
// (or, for suffixed claims, the root identity) is revoked.
func UnauthenticatedFactory(revoked ...string) Factory {
	set := make(map[string]struct{}, len(revoked))
	for _, identity := range revoked {
		set[identity] = struct{}{}
	}
	return FactoryFunc(func(data Data) (cryptocontext.CryptoContext, error) {
		switch claim := data.(type) {
		case Unauthenticated:
			if _, isRevoked := set[claim.Identity()]; isRevoked {
				return nil, mslerror.New(mslerror.EntityRevoked, "%q", claim.Identity())
			}
		case UnauthenticatedSuffixed:
			for _, identity := range []string{claim.Root(), claim.Identity()} {
				if _, isRevoked := set[identity]; isRevoked {
					return nil, mslerror.New(mslerror.EntityRevoked, "%q", identity)
				}
			}
		default:
			return nil, mslerror.New(mslerror.EntityAuthNotSupported, "unauthenticated factory given %s data", data.Scheme())
		}
		return cryptocontext.Null(), nil
	})
}
