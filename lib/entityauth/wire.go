// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package entityauth

import (
	"github.com/bureau-foundation/msl/lib/codec"
	"github.com/bureau-foundation/msl/lib/mslerror"
)

type wireData struct {
	Scheme   *string    `json:"scheme"`
	AuthData *codec.Raw `json:"authdata"`
}

type identityAuthData struct {
	Identity *string `json:"identity"`
}

type keyedAuthData struct {
	Identity    *string `json:"identity"`
	PublicKeyID *string `json:"pubkeyid"`
}

type certificateAuthData struct {
	Certificate *[]byte `json:"x509certificate"`
}

type suffixedAuthData struct {
	Root   *string `json:"root"`
	Suffix *string `json:"suffix"`
}

// ParseFunc decodes the authdata object of one scheme.
type ParseFunc func(format codec.Format, authdata []byte) (Data, error)

// Encode returns the wire encoding of data.
func Encode(format codec.Format, data Data) ([]byte, error) {
	authdata, err := codec.Wrap(format, data.authData())
	if err != nil {
		return nil, err
	}
	scheme := string(data.Scheme())
	return codec.Marshal(format, wireData{Scheme: &scheme, AuthData: &authdata})
}

// Parse decodes entity authentication data with the built-in schemes.
func Parse(format codec.Format, encoded []byte) (Data, error) {
	return defaultParsers.parse(format, encoded)
}

type parserTable map[Scheme]ParseFunc

var defaultParsers = parserTable{
	SchemePreshared: parseIdentityScheme(SchemePreshared, func(identity string) Data { return NewPreshared(identity) }),
	SchemeModelGroup: parseIdentityScheme(SchemeModelGroup, func(identity string) Data {
		return NewModelGroup(identity)
	}),
	SchemeUnauthenticated: parseIdentityScheme(SchemeUnauthenticated, func(identity string) Data {
		return NewUnauthenticated(identity)
	}),
	SchemeRSA: parseKeyedScheme(SchemeRSA, func(identity, keyID string) Data { return NewRSA(identity, keyID) }),
	SchemeECC: parseKeyedScheme(SchemeECC, func(identity, keyID string) Data { return NewECC(identity, keyID) }),
	SchemeX509:                    parseX509,
	SchemeUnauthenticatedSuffixed: parseSuffixed,
}

func (table parserTable) parse(format codec.Format, encoded []byte) (Data, error) {
	var wire wireData
	if err := codec.Unmarshal(format, encoded, &wire, "entity authentication data"); err != nil {
		return nil, err
	}
	if wire.Scheme == nil {
		return nil, codec.Missing("entity authentication data", "scheme")
	}
	if wire.AuthData == nil {
		return nil, codec.Missing("entity authentication data", "authdata")
	}
	parser, ok := table[Scheme(*wire.Scheme)]
	if !ok {
		return nil, mslerror.New(mslerror.UnknownScheme, "entity authentication scheme %q", *wire.Scheme)
	}
	return parser(format, *wire.AuthData)
}

func authDataWhat(scheme Scheme) string {
	return string(scheme) + " authdata"
}

func parseIdentityScheme(scheme Scheme, build func(identity string) Data) ParseFunc {
	return func(format codec.Format, authdata []byte) (Data, error) {
		what := authDataWhat(scheme)
		var wire identityAuthData
		if err := codec.Unmarshal(format, authdata, &wire, what); err != nil {
			return nil, err
		}
		if wire.Identity == nil {
			return nil, codec.Missing(what, "identity")
		}
		return build(*wire.Identity), nil
	}
}

func parseKeyedScheme(scheme Scheme, build func(identity, keyID string) Data) ParseFunc {
	return func(format codec.Format, authdata []byte) (Data, error) {
		what := authDataWhat(scheme)
		var wire keyedAuthData
		if err := codec.Unmarshal(format, authdata, &wire, what); err != nil {
			return nil, err
		}
		if wire.Identity == nil {
			return nil, codec.Missing(what, "identity")
		}
		if wire.PublicKeyID == nil {
			return nil, codec.Missing(what, "pubkeyid")
		}
		return build(*wire.Identity, *wire.PublicKeyID), nil
	}
}

func parseX509(format codec.Format, authdata []byte) (Data, error) {
	what := authDataWhat(SchemeX509)
	var wire certificateAuthData
	if err := codec.Unmarshal(format, authdata, &wire, what); err != nil {
		return nil, err
	}
	if wire.Certificate == nil {
		return nil, codec.Missing(what, "x509certificate")
	}
	return ParseX509(*wire.Certificate)
}

func parseSuffixed(format codec.Format, authdata []byte) (Data, error) {
	what := authDataWhat(SchemeUnauthenticatedSuffixed)
	var wire suffixedAuthData
	if err := codec.Unmarshal(format, authdata, &wire, what); err != nil {
		return nil, err
	}
	if wire.Root == nil {
		return nil, codec.Missing(what, "root")
	}
	if wire.Suffix == nil {
		return nil, codec.Missing(what, "suffix")
	}
	return NewUnauthenticatedSuffixed(*wire.Root, *wire.Suffix), nil
}
