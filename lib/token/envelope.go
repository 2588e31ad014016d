// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"fmt"

	"github.com/bureau-foundation/msl/lib/codec"
	"github.com/bureau-foundation/msl/lib/cryptocontext"
	"github.com/bureau-foundation/msl/lib/mslerror"
)

// State is the trust state of a token instance.
type State uint8

const (
	// ConstructedTrusted is a token built by the holder of the issuing
	// context.
	ConstructedTrusted State = iota + 1

	// ParsedTrusted is a token parsed from bytes whose signature
	// verified.
	ParsedTrusted

	// ParsedUntrusted is a token parsed from bytes whose signature did
	// not verify or could not be checked.
	ParsedUntrusted
)

func (state State) String() string {
	switch state {
	case ConstructedTrusted:
		return "constructed-trusted"
	case ParsedTrusted:
		return "parsed-trusted"
	case ParsedUntrusted:
		return "parsed-untrusted"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// Trusted reports whether the state may serve as authentication
// evidence.
func (state State) Trusted() bool {
	return state == ConstructedTrusted || state == ParsedTrusted
}

// Envelope is the signed outer object of every token.
type Envelope struct {
	TokenData []byte
	Signature []byte
}

type wireEnvelope struct {
	TokenData *[]byte `json:"tokendata"`
	Signature *[]byte `json:"signature"`
}

// Seal signs tokendata with issuer and returns the envelope.
func Seal(issuer cryptocontext.CryptoContext, tokendata []byte) (Envelope, error) {
	signature, err := issuer.Sign(tokendata)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{TokenData: tokendata, Signature: signature}, nil
}

// Encode returns the envelope in the given wire format.
func (envelope Envelope) Encode(format codec.Format) ([]byte, error) {
	return codec.Marshal(format, wireEnvelope{
		TokenData: &envelope.TokenData,
		Signature: &envelope.Signature,
	})
}

// DecodeEnvelope parses an envelope. The what argument names the
// token kind in error messages.
func DecodeEnvelope(format codec.Format, data []byte, what string) (Envelope, error) {
	var wire wireEnvelope
	if err := codec.Unmarshal(format, data, &wire, what); err != nil {
		return Envelope{}, err
	}
	if wire.TokenData == nil || len(*wire.TokenData) == 0 {
		return Envelope{}, codec.Missing(what, "tokendata")
	}
	if wire.Signature == nil {
		return Envelope{}, codec.Missing(what, "signature")
	}
	return Envelope{TokenData: *wire.TokenData, Signature: *wire.Signature}, nil
}

// VerifyEnvelope checks the envelope signature with issuer and reports
// the resulting trust state. A nil issuer, a mismatched signature, or
// an issuer that holds no verification key all yield
// ParsedUntrusted. Any other verification failure is returned.
func VerifyEnvelope(issuer cryptocontext.CryptoContext, envelope Envelope) (State, error) {
	if issuer == nil {
		return ParsedUntrusted, nil
	}
	verified, err := issuer.Verify(envelope.TokenData, envelope.Signature)
	if err != nil {
		if mslerror.IsCapabilityAbsent(err) {
			return ParsedUntrusted, nil
		}
		return 0, err
	}
	if !verified {
		return ParsedUntrusted, nil
	}
	return ParsedTrusted, nil
}

// Binding is the wire encoding of an optional serial-number binding:
// the serial number, or -1 when absent.
func Binding(serialNumber int64, present bool) int64 {
	if !present {
		return -1
	}
	return serialNumber
}
