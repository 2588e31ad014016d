// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package mastertoken implements the master token: the issuer-signed
// credential that names an entity and carries the session keys for
// its subsequent exchanges.
//
// The token data is signed, and the session data inside it encrypted,
// with the issuer's CryptoContext. The session keys the token carries
// are never used to protect the token itself.
//
// Parsing is total: any byte input yields either a typed error or a
// *MasterToken. A token whose signature does not verify still parses,
// with every header field (sequence number, serial number, renewal
// window, expiration) populated, but its identity, session keys and
// issuer data stay sealed and [MasterToken.Trust] refuses it.
//
// Wire layout (field names are the wire keys):
//
//	envelope   {tokendata, signature}
//	tokendata  {renewalwindow, expiration, sequencenumber, serialnumber, sessiondata}
//	sessiondata (encrypted) {issuerdata?, identity, encryptionkey, hmackey}
//
// Timestamps are Unix seconds.
package mastertoken

import (
	"strconv"
	"time"

	"github.com/bureau-foundation/msl/lib/codec"
	"github.com/bureau-foundation/msl/lib/cryptocontext"
	"github.com/bureau-foundation/msl/lib/mslerror"
	"github.com/bureau-foundation/msl/lib/primitive"
	"github.com/bureau-foundation/msl/lib/token"
)

const what = "master token"

// SessionKeys are the keys an issuer mints for one master token.
type SessionKeys struct {
	Encryption primitive.SecretKey
	HMAC       primitive.SecretKey
}

// GenerateSessionKeys returns a fresh AES-128 encryption key and
// HMAC-SHA256 key. A nil provider selects primitive.Default.
func GenerateSessionKeys(provider primitive.Provider) (SessionKeys, error) {
	if provider == nil {
		provider = primitive.Default()
	}
	encryption, err := primitive.GenerateSecretKey(provider, primitive.AES)
	if err != nil {
		return SessionKeys{}, err
	}
	signing, err := primitive.GenerateSecretKey(provider, primitive.HMACSHA256)
	if err != nil {
		return SessionKeys{}, err
	}
	return SessionKeys{Encryption: encryption, HMAC: signing}, nil
}

// Params are the fields of a new master token.
type Params struct {
	RenewalWindow  time.Time
	Expiration     time.Time
	SequenceNumber int64
	SerialNumber   int64
	Identity       string
	SessionKeys    SessionKeys

	// IssuerData is opaque to every party but the issuer. Optional.
	IssuerData []byte
}

// MasterToken is an immutable master token. Construct with Create or
// Parse.
type MasterToken struct {
	validity       token.Validity
	sequenceNumber int64
	serialNumber   int64
	state          token.State
	envelope       token.Envelope

	// Sealed unless state is trusted.
	identity   string
	issuerData []byte
	keys       SessionKeys
}

type wireTokenData struct {
	RenewalWindow  *int64  `json:"renewalwindow"`
	Expiration     *int64  `json:"expiration"`
	SequenceNumber *int64  `json:"sequencenumber"`
	SerialNumber   *int64  `json:"serialnumber"`
	SessionData    *[]byte `json:"sessiondata"`
}

type wireSessionData struct {
	IssuerData    []byte  `json:"issuerdata,omitempty"`
	Identity      *string `json:"identity"`
	EncryptionKey *[]byte `json:"encryptionkey"`
	HMACKey       *[]byte `json:"hmackey"`
}

// Create builds, encrypts and signs a master token with the issuer
// context. The token data is encoded in format.
func Create(issuer cryptocontext.CryptoContext, format codec.Format, params Params) (*MasterToken, error) {
	if err := token.CheckSequenceNumber(params.SequenceNumber); err != nil {
		return nil, err
	}
	if err := token.CheckSerialNumber(params.SerialNumber); err != nil {
		return nil, err
	}
	validity, err := token.NewValidity(params.RenewalWindow, params.Expiration)
	if err != nil {
		return nil, err
	}
	if params.SessionKeys.Encryption.Algorithm() != primitive.AES {
		return nil, mslerror.New(mslerror.InvalidEncryptionKey, "session encryption key is %s", params.SessionKeys.Encryption.Algorithm())
	}
	if params.SessionKeys.HMAC.Algorithm() != primitive.HMACSHA256 {
		return nil, mslerror.New(mslerror.InvalidHMACKey, "session HMAC key is %s", params.SessionKeys.HMAC.Algorithm())
	}

	identity := params.Identity
	encryptionKey := params.SessionKeys.Encryption.Material()
	hmacKey := params.SessionKeys.HMAC.Material()
	sessionPlaintext, err := codec.Marshal(format, wireSessionData{
		IssuerData:    params.IssuerData,
		Identity:      &identity,
		EncryptionKey: &encryptionKey,
		HMACKey:       &hmacKey,
	})
	if err != nil {
		return nil, err
	}
	sessionData, err := issuer.Encrypt(sessionPlaintext)
	if err != nil {
		return nil, err
	}

	renewal := validity.RenewalWindow.Unix()
	expiration := validity.Expiration.Unix()
	sequence := params.SequenceNumber
	serial := params.SerialNumber
	tokendata, err := codec.Marshal(format, wireTokenData{
		RenewalWindow:  &renewal,
		Expiration:     &expiration,
		SequenceNumber: &sequence,
		SerialNumber:   &serial,
		SessionData:    &sessionData,
	})
	if err != nil {
		return nil, err
	}
	envelope, err := token.Seal(issuer, tokendata)
	if err != nil {
		return nil, err
	}

	return &MasterToken{
		validity:       validity,
		sequenceNumber: sequence,
		serialNumber:   serial,
		state:          token.ConstructedTrusted,
		envelope:       envelope,
		identity:       identity,
		issuerData:     cloneBytes(params.IssuerData),
		keys:           params.SessionKeys,
	}, nil
}

// Parse decodes a master token and verifies it with the issuer
// context. A nil issuer, a signature mismatch, or an issuer that
// cannot verify all produce a parsed-untrusted token, not an error.
func Parse(format codec.Format, encoded []byte, issuer cryptocontext.CryptoContext) (*MasterToken, error) {
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
	case wire.SequenceNumber == nil:
		return nil, codec.Missing(what, "sequencenumber")
	case wire.SerialNumber == nil:
		return nil, codec.Missing(what, "serialnumber")
	case wire.SessionData == nil:
		return nil, codec.Missing(what, "sessiondata")
	}
	if err := token.CheckSequenceNumber(*wire.SequenceNumber); err != nil {
		return nil, err
	}
	if err := token.CheckSerialNumber(*wire.SerialNumber); err != nil {
		return nil, err
	}
	validity, err := token.ValidityFromUnix(*wire.RenewalWindow, *wire.Expiration)
	if err != nil {
		return nil, err
	}

	masterToken := &MasterToken{
		validity:       validity,
		sequenceNumber: *wire.SequenceNumber,
		serialNumber:   *wire.SerialNumber,
		envelope:       envelope,
	}
	masterToken.state, err = token.VerifyEnvelope(issuer, envelope)
	if err != nil {
		return nil, err
	}
	if masterToken.state != token.ParsedTrusted {
		return masterToken, nil
	}

	sessionPlaintext, err := issuer.Decrypt(*wire.SessionData)
	if err != nil {
		return nil, err
	}
	var session wireSessionData
	if err := codec.Unmarshal(dataFormat, sessionPlaintext, &session, what+" sessiondata"); err != nil {
		return nil, err
	}
	switch {
	case session.Identity == nil:
		return nil, codec.Missing(what+" sessiondata", "identity")
	case session.EncryptionKey == nil:
		return nil, codec.Missing(what+" sessiondata", "encryptionkey")
	case session.HMACKey == nil:
		return nil, codec.Missing(what+" sessiondata", "hmackey")
	}
	encryption, err := primitive.NewSecretKey(primitive.AES, *session.EncryptionKey)
	if err != nil {
		return nil, err
	}
	signing, err := primitive.NewSecretKey(primitive.HMACSHA256, *session.HMACKey)
	if err != nil {
		return nil, err
	}
	masterToken.identity = *session.Identity
	masterToken.issuerData = session.IssuerData
	masterToken.keys = SessionKeys{Encryption: encryption, HMAC: signing}
	return masterToken, nil
}

// Encode returns the token in the given envelope format. The token
// data and signature are the bytes that were signed.
func (masterToken *MasterToken) Encode(format codec.Format) ([]byte, error) {
	return masterToken.envelope.Encode(format)
}

// SequenceNumber returns the renewal counter within the serial number
// lineage.
func (masterToken *MasterToken) SequenceNumber() int64 { return masterToken.sequenceNumber }

// SerialNumber returns the lineage identifier.
func (masterToken *MasterToken) SerialNumber() int64 { return masterToken.serialNumber }

func (masterToken *MasterToken) RenewalWindow() time.Time { return masterToken.validity.RenewalWindow }
func (masterToken *MasterToken) Expiration() time.Time    { return masterToken.validity.Expiration }
func (masterToken *MasterToken) Validity() token.Validity { return masterToken.validity }
func (masterToken *MasterToken) State() token.State       { return masterToken.state }

// Verified reports whether the token may be trusted.
func (masterToken *MasterToken) Verified() bool { return masterToken.state.Trusted() }

// Identity returns the entity identity, or false when the token is
// untrusted and its session data sealed.
func (masterToken *MasterToken) Identity() (string, bool) {
	if !masterToken.Verified() {
		return "", false
	}
	return masterToken.identity, true
}

// IsRenewable reports whether now is at or past the renewal window.
func (masterToken *MasterToken) IsRenewable(now time.Time) bool {
	return masterToken.validity.IsRenewable(now)
}

// IsExpired reports whether now is at or past the expiration.
func (masterToken *MasterToken) IsExpired(now time.Time) bool {
	return masterToken.validity.IsExpired(now)
}

// IsNewerThan reports whether the token supersedes other. Sequence
// numbers are compared across the wrap; equal sequence numbers fall
// back to the later expiration. Tokens of different lineages are not
// comparable and callers should check SameLineage first.
func (masterToken *MasterToken) IsNewerThan(other *MasterToken) bool {
	if masterToken.sequenceNumber == other.sequenceNumber {
		return masterToken.validity.Expiration.After(other.validity.Expiration)
	}
	return token.SequenceNewer(masterToken.sequenceNumber, other.sequenceNumber)
}

// SameLineage reports whether a and b share a serial number.
func SameLineage(a, b *MasterToken) bool {
	return a.serialNumber == b.serialNumber
}

// Trust returns the trusted view of the token, or
// MASTERTOKEN_UNTRUSTED.
func (masterToken *MasterToken) Trust() (*Trusted, error) {
	if !masterToken.Verified() {
		return nil, mslerror.New(mslerror.MasterTokenUntrusted,
			"serial number %d sequence number %d (%s)", masterToken.serialNumber, masterToken.sequenceNumber, masterToken.state)
	}
	return &Trusted{token: masterToken}, nil
}

// Trusted is a master token whose issuer signature has been checked.
// Only a Trusted exposes the session keys.
type Trusted struct {
	token *MasterToken
}

// Token returns the underlying master token.
func (trusted *Trusted) Token() *MasterToken { return trusted.token }

// Identity returns the entity identity.
func (trusted *Trusted) Identity() string { return trusted.token.identity }

// IssuerData returns a copy of the issuer's opaque data, if any.
func (trusted *Trusted) IssuerData() []byte { return cloneBytes(trusted.token.issuerData) }

// SessionKeys returns the session keys.
func (trusted *Trusted) SessionKeys() SessionKeys { return trusted.token.keys }

// SessionCryptoContext returns a symmetric context over the session
// keys, identified as "<identity>_<sequence number>".
func (trusted *Trusted) SessionCryptoContext(provider primitive.Provider) (*cryptocontext.Symmetric, error) {
	id := trusted.token.identity + "_" + strconv.FormatInt(trusted.token.sequenceNumber, 10)
	return cryptocontext.NewSymmetric(provider, id, cryptocontext.SymmetricKeys{
		Encryption: trusted.token.keys.Encryption,
		HMAC:       trusted.token.keys.HMAC,
	})
}

func cloneBytes(data []byte) []byte {
	if data == nil {
		return nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}
