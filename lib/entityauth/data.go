// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package entityauth

import (
	"bytes"
	"crypto/x509"

	"github.com/bureau-foundation/msl/lib/mslerror"
)

// Scheme is an entity authentication scheme tag.
type Scheme string

const (
	SchemePreshared               Scheme = "PSK"
	SchemeModelGroup              Scheme = "MGK"
	SchemeRSA                     Scheme = "RSA"
	SchemeECC                     Scheme = "ECC"
	SchemeX509                    Scheme = "X509"
	SchemeUnauthenticated         Scheme = "NONE"
	SchemeUnauthenticatedSuffixed Scheme = "NONE_SUFFIXED"
)

// Data is one entity authentication claim.
type Data interface {
	// Scheme returns the scheme tag.
	Scheme() Scheme

	// Identity returns the entity identity the claim asserts. It is a
	// pure function of the claim's fields.
	Identity() string

	// authData returns the scheme-specific wire object.
	authData() any

	// equal reports structural equality with a claim of the same
	// scheme.
	equal(other Data) bool
}

// Equal reports whether a and b have the same scheme and field
// values.
func Equal(a, b Data) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Scheme() == b.Scheme() && a.equal(b)
}

// Preshared claims an identity that shares symmetric keys with the
// issuer.
type Preshared struct {
	identity string
}

// NewPreshared returns a PSK claim.
func NewPreshared(identity string) Preshared { return Preshared{identity: identity} }

func (data Preshared) Scheme() Scheme   { return SchemePreshared }
func (data Preshared) Identity() string { return data.identity }

func (data Preshared) authData() any {
	return identityAuthData{Identity: &data.identity}
}

func (data Preshared) equal(other Data) bool {
	typed, ok := other.(Preshared)
	return ok && typed == data
}

// ModelGroup claims an identity whose keys are shared by a device
// model group.
type ModelGroup struct {
	identity string
}

// NewModelGroup returns an MGK claim.
func NewModelGroup(identity string) ModelGroup { return ModelGroup{identity: identity} }

func (data ModelGroup) Scheme() Scheme   { return SchemeModelGroup }
func (data ModelGroup) Identity() string { return data.identity }

func (data ModelGroup) authData() any {
	return identityAuthData{Identity: &data.identity}
}

func (data ModelGroup) equal(other Data) bool {
	typed, ok := other.(ModelGroup)
	return ok && typed == data
}

// RSA claims an identity proven by an RSA signature under a
// registered public key.
type RSA struct {
	identity    string
	publicKeyID string
}

// NewRSA returns an RSA claim.
func NewRSA(identity, publicKeyID string) RSA {
	return RSA{identity: identity, publicKeyID: publicKeyID}
}

func (data RSA) Scheme() Scheme   { return SchemeRSA }
func (data RSA) Identity() string { return data.identity }

// PublicKeyID names the verifying key in the public key store.
func (data RSA) PublicKeyID() string { return data.publicKeyID }

func (data RSA) authData() any {
	return keyedAuthData{Identity: &data.identity, PublicKeyID: &data.publicKeyID}
}

func (data RSA) equal(other Data) bool {
	typed, ok := other.(RSA)
	return ok && typed == data
}

// ECC claims an identity proven by an ECDSA signature under a
// registered public key.
type ECC struct {
	identity    string
	publicKeyID string
}

// NewECC returns an ECC claim.
func NewECC(identity, publicKeyID string) ECC {
	return ECC{identity: identity, publicKeyID: publicKeyID}
}

func (data ECC) Scheme() Scheme   { return SchemeECC }
func (data ECC) Identity() string { return data.identity }

// PublicKeyID names the verifying key in the public key store.
func (data ECC) PublicKeyID() string { return data.publicKeyID }

func (data ECC) authData() any {
	return keyedAuthData{Identity: &data.identity, PublicKeyID: &data.publicKeyID}
}

func (data ECC) equal(other Data) bool {
	typed, ok := other.(ECC)
	return ok && typed == data
}

// X509 claims the identity named by a certificate's subject.
type X509 struct {
	certificate *x509.Certificate
}

// NewX509 returns an X509 claim for certificate.
func NewX509(certificate *x509.Certificate) (X509, error) {
	if certificate == nil {
		return X509{}, mslerror.New(mslerror.MissingField, "X509 authdata: x509certificate")
	}
	return X509{certificate: certificate}, nil
}

// ParseX509 parses a DER certificate into an X509 claim.
func ParseX509(der []byte) (X509, error) {
	certificate, err := x509.ParseCertificate(der)
	if err != nil {
		return X509{}, mslerror.Wrap(mslerror.ParseError, err, "X509 authdata: certificate")
	}
	return X509{certificate: certificate}, nil
}

func (data X509) Scheme() Scheme { return SchemeX509 }

// Identity returns the certificate subject's distinguished name, or
// the empty string for the zero X509.
func (data X509) Identity() string {
	if data.certificate == nil {
		return ""
	}
	return data.certificate.Subject.String()
}

// Certificate returns the claimed certificate.
func (data X509) Certificate() *x509.Certificate { return data.certificate }

func (data X509) authData() any {
	if data.certificate == nil {
		return certificateAuthData{}
	}
	raw := data.certificate.Raw
	return certificateAuthData{Certificate: &raw}
}

func (data X509) equal(other Data) bool {
	typed, ok := other.(X509)
	if !ok || typed.certificate == nil || data.certificate == nil {
		return false
	}
	return bytes.Equal(typed.certificate.Raw, data.certificate.Raw)
}

// Unauthenticated claims an identity with no proof at all.
type Unauthenticated struct {
	identity string
}

// NewUnauthenticated returns a NONE claim.
func NewUnauthenticated(identity string) Unauthenticated {
	return Unauthenticated{identity: identity}
}

func (data Unauthenticated) Scheme() Scheme   { return SchemeUnauthenticated }
func (data Unauthenticated) Identity() string { return data.identity }

func (data Unauthenticated) authData() any {
	return identityAuthData{Identity: &data.identity}
}

func (data Unauthenticated) equal(other Data) bool {
	typed, ok := other.(Unauthenticated)
	return ok && typed == data
}

// UnauthenticatedSuffixed is an unauthenticated claim whose identity
// is a root identity qualified by a per-instance suffix.
type UnauthenticatedSuffixed struct {
	root   string
	suffix string
}

// NewUnauthenticatedSuffixed returns a NONE_SUFFIXED claim.
func NewUnauthenticatedSuffixed(root, suffix string) UnauthenticatedSuffixed {
	return UnauthenticatedSuffixed{root: root, suffix: suffix}
}

func (data UnauthenticatedSuffixed) Scheme() Scheme { return SchemeUnauthenticatedSuffixed }

// Identity returns root + "." + suffix.
func (data UnauthenticatedSuffixed) Identity() string { return data.root + "." + data.suffix }

// Root returns the root identity.
func (data UnauthenticatedSuffixed) Root() string { return data.root }

// Suffix returns the instance suffix.
func (data UnauthenticatedSuffixed) Suffix() string { return data.suffix }

func (data UnauthenticatedSuffixed) authData() any {
	return suffixedAuthData{Root: &data.root, Suffix: &data.suffix}
}

func (data UnauthenticatedSuffixed) equal(other Data) bool {
	typed, ok := other.(UnauthenticatedSuffixed)
	return ok && typed == data
}
