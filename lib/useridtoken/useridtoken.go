// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package useridtoken implements the user-bound token: an
// issuer-signed statement that a user identity is authenticated on
// behalf of the entity holding one master token lineage.
//
// The binding is to the master token's serial number, never to its
// sequence number, so a user token survives master token renewal.
//
// Wire layout:
//
//	envelope   {tokendata, signature}
//	tokendata  {renewalwindow, expiration, mtserialnumber, serialnumber, userdata}
//	userdata (encrypted) {issuerdata?, identity}
package useridtoken

import (
	"time"

	"github.com/bureau-foundation/msl/lib/codec"
	"github.com/bureau-foundation/msl/lib/cryptocontext"
	"github.com/bureau-foundation/msl/lib/mastertoken"
	"github.com/bureau-foundation/msl/lib/mslerror"
	"github.com/bureau-foundation/msl/lib/token"
)

const what = "user ID token"

// Params are the fields of a new user token.
type Params struct {
	RenewalWindow time.Time
	Expiration    time.Time
	SerialNumber  int64
	User          string
	IssuerData    []byte
}

// UserIdToken is an immutable user-bound token.
type UserIdToken struct {
	validity                token.Validity
	masterTokenSerialNumber int64
	serialNumber            int64
	state                   token.State
	envelope                token.Envelope

	user       string
	issuerData []byte
}

type wireTokenData struct {
	RenewalWindow           *int64  `json:"renewalwindow"`
	Expiration              *int64  `json:"expiration"`
	MasterTokenSerialNumber *int64  `json:"mtserialnumber"`
	SerialNumber            *int64  `json:"serialnumber"`
	UserData                *[]byte `json:"userdata"`
}

type wireUserData struct {
	IssuerData []byte  `json:"issuerdata,omitempty"`
	Identity   *string `json:"identity"`
}

// Create builds a user token bound to master and protects it with
// the issuer context.
func Create(issuer cryptocontext.CryptoContext, format codec.Format, master *mastertoken.MasterToken, params Params) (*UserIdToken, error) {
	if master == nil {
		return nil, mslerror.New(mslerror.UserIdTokenRequiresMaster, "creating %s for %q", what, params.User)
	}
	if err := token.CheckSerialNumber(params.SerialNumber); err != nil {
		return nil, err
	}
	validity, err := token.NewValidity(params.RenewalWindow, params.Expiration)
	if err != nil {
		return nil, err
	}

	user := params.User
	userPlaintext, err := codec.Marshal(format, wireUserData{IssuerData: params.IssuerData, Identity: &user})
	if err != nil {
		return nil, err
	}
	userData, err := issuer.Encrypt(userPlaintext)
	if err != nil {
		return nil, err
	}

	renewal := validity.RenewalWindow.Unix()
	expiration := validity.Expiration.Unix()
	masterSerial := master.SerialNumber()
	serial := params.SerialNumber
	tokendata, err := codec.Marshal(format, wireTokenData{
		RenewalWindow:           &renewal,
		Expiration:              &expiration,
		MasterTokenSerialNumber: &masterSerial,
		SerialNumber:            &serial,
		UserData:                &userData,
	})
	if err != nil {
		return nil, err
	}
	envelope, err := token.Seal(issuer, tokendata)
	if err != nil {
		return nil, err
	}
	return &UserIdToken{
		validity:                validity,
		masterTokenSerialNumber: masterSerial,
		serialNumber:            serial,
		state:                   token.ConstructedTrusted,
		envelope:                envelope,
		user:                    user,
		issuerData:              append([]byte(nil), params.IssuerData...),
	}, nil
}

// Parse decodes a user token, checks that it is bound to master, and
// verifies it with the issuer context. As with master tokens, a
// signature that does not verify yields a parsed-untrusted token whose
// user identity is unavailable.
func Parse(format codec.Format, encoded []byte, issuer cryptocontext.CryptoContext, master *mastertoken.MasterToken) (*UserIdToken, error) {
	if master == nil {
		return nil, mslerror.New(mslerror.UserIdTokenRequiresMaster, "parsing %s", what)
	}
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
	case wire.RenewalWindow == nil:
		return nil, codec.Missing(what, "renewalwindow")
	case wire.Expiration == nil:
		return nil, codec.Missing(what, "expiration")
	case wire.MasterTokenSerialNumber == nil:
		return nil, codec.Missing(what, "mtserialnumber")
	case wire.SerialNumber == nil:
		return nil, codec.Missing(what, "serialnumber")
	case wire.UserData == nil:
		return nil, codec.Missing(what, "userdata")
	}
	if err := token.CheckSerialNumber(*wire.MasterTokenSerialNumber); err != nil {
		return nil, err
	}
	if err := token.CheckSerialNumber(*wire.SerialNumber); err != nil {
		return nil, err
	}
	if *wire.MasterTokenSerialNumber != master.SerialNumber() {
		return nil, mslerror.New(mslerror.UserIdTokenMismatch,
			"%s bound to master token %d, given %d", what, *wire.MasterTokenSerialNumber, master.SerialNumber())
	}
	validity, err := token.ValidityFromUnix(*wire.RenewalWindow, *wire.Expiration)
	if err != nil {
		return nil, err
	}

	userIdToken := &UserIdToken{
		validity:                validity,
		masterTokenSerialNumber: *wire.MasterTokenSerialNumber,
		serialNumber:            *wire.SerialNumber,
		envelope:                envelope,
	}
	userIdToken.state, err = token.VerifyEnvelope(issuer, envelope)
	if err != nil {
		return nil, err
	}
	if !userIdToken.state.Trusted() {
		return userIdToken, nil
	}

	userPlaintext, err := issuer.Decrypt(*wire.UserData)
	if err != nil {
		return nil, err
	}
	var user wireUserData
	if err := codec.Unmarshal(dataFormat, userPlaintext, &user, what+" userdata"); err != nil {
		return nil, err
	}
	if user.Identity == nil {
		return nil, codec.Missing(what+" userdata", "identity")
	}
	userIdToken.user = *user.Identity
	userIdToken.issuerData = user.IssuerData
	return userIdToken, nil
}

// Encode returns the token in the given envelope format.
func (userIdToken *UserIdToken) Encode(format codec.Format) ([]byte, error) {
	return userIdToken.envelope.Encode(format)
}

func (userIdToken *UserIdToken) SerialNumber() int64 { return userIdToken.serialNumber }

// MasterTokenSerialNumber returns the serial number of the master
// token lineage this token is bound to.
func (userIdToken *UserIdToken) MasterTokenSerialNumber() int64 {
	return userIdToken.masterTokenSerialNumber
}

func (userIdToken *UserIdToken) RenewalWindow() time.Time { return userIdToken.validity.RenewalWindow }
func (userIdToken *UserIdToken) Expiration() time.Time    { return userIdToken.validity.Expiration }
func (userIdToken *UserIdToken) State() token.State       { return userIdToken.state }
func (userIdToken *UserIdToken) Verified() bool           { return userIdToken.state.Trusted() }

// User returns the user identity, or false when the token is
// untrusted.
func (userIdToken *UserIdToken) User() (string, bool) {
	if !userIdToken.Verified() {
		return "", false
	}
	return userIdToken.user, true
}

// IssuerData returns a copy of the issuer's opaque data, or nil when
// the token is untrusted or carries none.
func (userIdToken *UserIdToken) IssuerData() []byte {
	if !userIdToken.Verified() || userIdToken.issuerData == nil {
		return nil
	}
	return append([]byte(nil), userIdToken.issuerData...)
}

func (userIdToken *UserIdToken) IsRenewable(now time.Time) bool {
	return userIdToken.validity.IsRenewable(now)
}

func (userIdToken *UserIdToken) IsExpired(now time.Time) bool {
	return userIdToken.validity.IsExpired(now)
}

// IsBoundTo reports whether the token belongs to master's lineage.
func (userIdToken *UserIdToken) IsBoundTo(master *mastertoken.MasterToken) bool {
	return master != nil && master.SerialNumber() == userIdToken.masterTokenSerialNumber
}

// Trust returns the token, or USERIDTOKEN_UNTRUSTED when its signature
// did not verify.
func (userIdToken *UserIdToken) Trust() (*UserIdToken, error) {
	if !userIdToken.Verified() {
		return nil, mslerror.New(mslerror.UserIdTokenUntrusted, "serial number %d (%s)", userIdToken.serialNumber, userIdToken.state)
	}
	return userIdToken, nil
}
