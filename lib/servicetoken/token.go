// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package servicetoken

import (
	"errors"

	"github.com/bureau-foundation/msl/lib/codec"
	"github.com/bureau-foundation/msl/lib/compression"
	"github.com/bureau-foundation/msl/lib/cryptocontext"
	"github.com/bureau-foundation/msl/lib/mastertoken"
	"github.com/bureau-foundation/msl/lib/mslerror"
	"github.com/bureau-foundation/msl/lib/token"
	"github.com/bureau-foundation/msl/lib/useridtoken"
)

const what = "service token"

// Params are the fields of a new service token.
type Params struct {
	Name string
	Data []byte

	// MasterToken and UserIdToken bind the token. Both are optional;
	// a UserIdToken requires a MasterToken it is bound to.
	MasterToken *mastertoken.MasterToken
	UserIdToken *useridtoken.UserIdToken

	Encrypt     bool
	Compression compression.Algorithm
}

// ServiceToken is an immutable service token.
type ServiceToken struct {
	name                    string
	masterTokenSerialNumber int64
	userIdTokenSerialNumber int64
	encrypted               bool
	compression             compression.Algorithm
	state                   token.State
	envelope                token.Envelope

	data          []byte
	dataAvailable bool
}

type wireTokenData struct {
	Name                    *string `json:"name"`
	MasterTokenSerialNumber *int64  `json:"mtserialnumber"`
	UserIdTokenSerialNumber *int64  `json:"uitserialnumber"`
	Encrypted               *bool   `json:"encrypted"`
	CompressionAlgorithm    string  `json:"compressionalgo,omitempty"`
	ServiceData             *[]byte `json:"servicedata"`
}

// Create builds a service token and protects it with context.
func Create(context cryptocontext.CryptoContext, format codec.Format, params Params) (*ServiceToken, error) {
	if params.Name == "" {
		return nil, mslerror.New(mslerror.ServiceTokenNameEmpty, "creating %s", what)
	}
	if params.UserIdToken != nil {
		if params.MasterToken == nil {
			return nil, mslerror.New(mslerror.ServiceTokenUserNoMaster, "%s %q", what, params.Name)
		}
		if !params.UserIdToken.IsBoundTo(params.MasterToken) {
			return nil, mslerror.New(mslerror.UserIdTokenMismatch,
				"%s %q: user ID token bound to master token %d, given %d",
				what, params.Name, params.UserIdToken.MasterTokenSerialNumber(), params.MasterToken.SerialNumber())
		}
	}

	serviceData := params.Data
	if serviceData == nil {
		serviceData = []byte{}
	}
	algorithm := compression.None
	if params.Compression != compression.None && len(serviceData) > 0 {
		compressed, err := compression.Compress(params.Compression, serviceData)
		switch {
		case err == nil:
			serviceData = compressed
			algorithm = params.Compression
		case !errors.Is(err, compression.ErrIncompressible):
			return nil, err
		}
	}
	if params.Encrypt {
		ciphertext, err := context.Encrypt(serviceData)
		if err != nil {
			return nil, err
		}
		serviceData = ciphertext
	}

	name := params.Name
	masterSerial := token.Binding(serialOf(params.MasterToken))
	userSerial := token.Binding(userSerialOf(params.UserIdToken))
	encrypted := params.Encrypt
	wire := wireTokenData{
		Name:                    &name,
		MasterTokenSerialNumber: &masterSerial,
		UserIdTokenSerialNumber: &userSerial,
		Encrypted:               &encrypted,
		ServiceData:             &serviceData,
	}
	if algorithm != compression.None {
		wire.CompressionAlgorithm = algorithm.String()
	}
	tokendata, err := codec.Marshal(format, wire)
	if err != nil {
		return nil, err
	}
	envelope, err := token.Seal(context, tokendata)
	if err != nil {
		return nil, err
	}
	return &ServiceToken{
		name:                    name,
		masterTokenSerialNumber: masterSerial,
		userIdTokenSerialNumber: userSerial,
		encrypted:               encrypted,
		compression:             algorithm,
		state:                   token.ConstructedTrusted,
		envelope:                envelope,
		data:                    append([]byte(nil), params.Data...),
		dataAvailable:           true,
	}, nil
}

// Parse decodes a service token, checks its bindings against master
// and user, and verifies it with context. A supplied user must be bound
// to the supplied master, as in Create. A nil context yields a
// parsed-untrusted token.
func Parse(format codec.Format, encoded []byte, context cryptocontext.CryptoContext, master *mastertoken.MasterToken, user *useridtoken.UserIdToken) (*ServiceToken, error) {
	envelope, err := token.DecodeEnvelope(format, encoded, what)
	if err != nil {
		return nil, err
	}
	dataFormat, err := codec.Detect(envelope.TokenData)
	if err != nil {
		return nil, mslerror.Wrap(mslerror.ParseError, err, "%s tokendata", what)
	}
	var wire wireTokenData
	if err := codec.Unmarshal(dataFormat, envelope.TokenData, &wire, what+" tokendata"); err != nil {
		return nil, err
	}
	switch {
	case wire.Name == nil:
		return nil, codec.Missing(what, "name")
	case wire.Encrypted == nil:
		return nil, codec.Missing(what, "encrypted")
	case wire.ServiceData == nil:
		return nil, codec.Missing(what, "servicedata")
	}
	if *wire.Name == "" {
		return nil, mslerror.New(mslerror.ServiceTokenNameEmpty, "parsing %s", what)
	}
	masterSerial, err := parseBinding(wire.MasterTokenSerialNumber)
	if err != nil {
		return nil, err
	}
	userSerial, err := parseBinding(wire.UserIdTokenSerialNumber)
	if err != nil {
		return nil, err
	}
	if userSerial != -1 && masterSerial == -1 {
		return nil, mslerror.New(mslerror.ServiceTokenUserNoMaster, "%s %q bound to user ID token %d", what, *wire.Name, userSerial)
	}
	if masterSerial != -1 && (master == nil || master.SerialNumber() != masterSerial) {
		return nil, mslerror.New(mslerror.ServiceTokenMasterMismatch,
			"%s %q bound to master token %d, given %d", what, *wire.Name, masterSerial, token.Binding(serialOf(master)))
	}
	if userSerial != -1 && (user == nil || user.SerialNumber() != userSerial) {
		return nil, mslerror.New(mslerror.ServiceTokenUserMismatch,
			"%s %q bound to user ID token %d, given %d", what, *wire.Name, userSerial, token.Binding(userSerialOf(user)))
	}
	if user != nil && (master == nil || !user.IsBoundTo(master)) {
		return nil, mslerror.New(mslerror.UserIdTokenMismatch,
			"%s %q: user ID token bound to master token %d, given %d",
			what, *wire.Name, user.MasterTokenSerialNumber(), token.Binding(serialOf(master)))
	}
	algorithm, err := compression.ParseAlgorithm(wire.CompressionAlgorithm)
	if err != nil {
		return nil, err
	}

	serviceToken := &ServiceToken{
		name:                    *wire.Name,
		masterTokenSerialNumber: masterSerial,
		userIdTokenSerialNumber: userSerial,
		encrypted:               *wire.Encrypted,
		compression:             algorithm,
		envelope:                envelope,
	}
	serviceToken.state, err = token.VerifyEnvelope(context, envelope)
	if err != nil {
		return nil, err
	}

	serviceData := *wire.ServiceData
	if serviceToken.encrypted {
		if !serviceToken.state.Trusted() {
			return serviceToken, nil
		}
		plaintext, err := context.Decrypt(serviceData)
		if err != nil {
			if mslerror.IsCapabilityAbsent(err) {
				return serviceToken, nil
			}
			return nil, err
		}
		serviceData = plaintext
	}
	serviceData, err = compression.Decompress(algorithm, serviceData, compression.DefaultLimit)
	if err != nil {
		return nil, err
	}
	serviceToken.data = serviceData
	serviceToken.dataAvailable = true
	return serviceToken, nil
}

func parseBinding(serial *int64) (int64, error) {
	if serial == nil || *serial == -1 {
		return -1, nil
	}
	if err := token.CheckSerialNumber(*serial); err != nil {
		return 0, err
	}
	return *serial, nil
}

func serialOf(master *mastertoken.MasterToken) (int64, bool) {
	if master == nil {
		return 0, false
	}
	return master.SerialNumber(), true
}

func userSerialOf(user *useridtoken.UserIdToken) (int64, bool) {
	if user == nil {
		return 0, false
	}
	return user.SerialNumber(), true
}

// Encode returns the token in the given envelope format. An untrusted
// token re-encodes to the bytes it was parsed from.
func (serviceToken *ServiceToken) Encode(format codec.Format) ([]byte, error) {
	return serviceToken.envelope.Encode(format)
}

func (serviceToken *ServiceToken) Name() string { return serviceToken.name }

// MasterTokenSerialNumber returns the bound master token serial
// number, or -1.
func (serviceToken *ServiceToken) MasterTokenSerialNumber() int64 {
	return serviceToken.masterTokenSerialNumber
}

// UserIdTokenSerialNumber returns the bound user token serial number,
// or -1.
func (serviceToken *ServiceToken) UserIdTokenSerialNumber() int64 {
	return serviceToken.userIdTokenSerialNumber
}

func (serviceToken *ServiceToken) IsEncrypted() bool                  { return serviceToken.encrypted }
func (serviceToken *ServiceToken) Compression() compression.Algorithm { return serviceToken.compression }
func (serviceToken *ServiceToken) State() token.State                 { return serviceToken.state }
func (serviceToken *ServiceToken) Verified() bool                     { return serviceToken.state.Trusted() }

// Data returns a copy of the service data, or false when it is
// encrypted and could not be decrypted.
func (serviceToken *ServiceToken) Data() ([]byte, bool) {
	if !serviceToken.dataAvailable {
		return nil, false
	}
	return append([]byte{}, serviceToken.data...), true
}

// IsDeleted reports whether the token carries empty data, which a
// service sends to ask the client to drop the token.
func (serviceToken *ServiceToken) IsDeleted() bool {
	return serviceToken.dataAvailable && len(serviceToken.data) == 0
}

func (serviceToken *ServiceToken) IsMasterTokenBound() bool {
	return serviceToken.masterTokenSerialNumber != -1
}

func (serviceToken *ServiceToken) IsUserIdTokenBound() bool {
	return serviceToken.userIdTokenSerialNumber != -1
}

// IsUnbound reports whether the token is bound to nothing.
func (serviceToken *ServiceToken) IsUnbound() bool {
	return !serviceToken.IsMasterTokenBound() && !serviceToken.IsUserIdTokenBound()
}

// IsBoundTo reports whether the token is bound to master's lineage.
func (serviceToken *ServiceToken) IsBoundTo(master *mastertoken.MasterToken) bool {
	return master != nil && serviceToken.masterTokenSerialNumber == master.SerialNumber()
}

// IsUserBoundTo reports whether the token is bound to user.
func (serviceToken *ServiceToken) IsUserBoundTo(user *useridtoken.UserIdToken) bool {
	return user != nil && serviceToken.userIdTokenSerialNumber == user.SerialNumber()
}

// Key returns the token's identity within a Set.
func (serviceToken *ServiceToken) Key() Key {
	return Key{
		Name:              serviceToken.name,
		MasterTokenSerial: serviceToken.masterTokenSerialNumber,
		UserIdTokenSerial: serviceToken.userIdTokenSerialNumber,
	}
}

// Trust returns the token, or SERVICETOKEN_UNTRUSTED when its
// signature did not verify.
func (serviceToken *ServiceToken) Trust() (*ServiceToken, error) {
	if !serviceToken.Verified() {
		return nil, mslerror.New(mslerror.ServiceTokenUntrusted, "%s %q (%s)", what, serviceToken.name, serviceToken.state)
	}
	return serviceToken, nil
}
