// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mslerror

import (
	"errors"
	"fmt"
)

// Kind classifies an error. The zero value is not a valid kind.
type Kind uint8

const (
	KindEncoding Kind = iota + 1
	KindCrypto
	KindProtocol
)

// String returns the lowercase name of the kind.
func (kind Kind) String() string {
	switch kind {
	case KindEncoding:
		return "encoding"
	case KindCrypto:
		return "crypto"
	case KindProtocol:
		return "protocol"
	default:
		return fmt.Sprintf("unknown(%d)", kind)
	}
}

// Code is the stable identifier of an error condition. Codes are part
// of the external contract and must not be renamed.
type Code struct {
	kind Kind
	name string
}

// Kind returns the kind the code belongs to.
func (code Code) Kind() Kind { return code.kind }

// String returns the code name, e.g. "SIGN_NOT_SUPPORTED".
func (code Code) String() string { return code.name }

// Error lets a Code act as an errors.Is target.
func (code Code) Error() string { return code.name }

// Is matches any *Error carrying this code.
func (code Code) Is(target error) bool {
	other, ok := target.(Code)
	return ok && other == code
}

func encodingCode(name string) Code { return Code{kind: KindEncoding, name: name} }
func cryptoCode(name string) Code   { return Code{kind: KindCrypto, name: name} }
func protocolCode(name string) Code { return Code{kind: KindProtocol, name: name} }

// Crypto codes: capability absent.
var (
	SignNotSupported    = cryptoCode("SIGN_NOT_SUPPORTED")
	VerifyNotSupported  = cryptoCode("VERIFY_NOT_SUPPORTED")
	EncryptNotSupported = cryptoCode("ENCRYPT_NOT_SUPPORTED")
	DecryptNotSupported = cryptoCode("DECRYPT_NOT_SUPPORTED")
	WrapNotSupported    = cryptoCode("WRAP_NOT_SUPPORTED")
	UnwrapNotSupported  = cryptoCode("UNWRAP_NOT_SUPPORTED")
)

// Crypto codes: key import failures.
var (
	InvalidPublicKey     = cryptoCode("INVALID_PUBLIC_KEY")
	InvalidPrivateKey    = cryptoCode("INVALID_PRIVATE_KEY")
	InvalidEncryptionKey = cryptoCode("INVALID_ENCRYPTION_KEY")
	InvalidHMACKey       = cryptoCode("INVALID_HMAC_KEY")
	InvalidWrappingKey   = cryptoCode("INVALID_WRAPPING_KEY")
	UnsupportedKeyFormat = cryptoCode("UNSUPPORTED_KEY_FORMAT")
)

// Crypto codes: operation attempted and failed.
var (
	EncryptError              = cryptoCode("ENCRYPT_ERROR")
	DecryptError              = cryptoCode("DECRYPT_ERROR")
	HMACError                 = cryptoCode("HMAC_ERROR")
	SignatureError            = cryptoCode("SIGNATURE_ERROR")
	WrapError                 = cryptoCode("WRAP_ERROR")
	UnwrapError               = cryptoCode("UNWRAP_ERROR")
	KeyDerivationError        = cryptoCode("KEY_DERIVATION_ERROR")
	CiphertextEnvelopeInvalid = cryptoCode("CIPHERTEXT_ENVELOPE_INVALID")
	RandomError               = cryptoCode("RANDOM_ERROR")
)

// Encoding codes.
var (
	ParseError       = encodingCode("PARSE_ERROR")
	MissingField     = encodingCode("MISSING_FIELD")
	InvalidFieldType = encodingCode("INVALID_FIELD_TYPE")
	EncodeError      = encodingCode("ENCODE_ERROR")
	UnknownScheme    = encodingCode("UNKNOWN_SCHEME")
	UnknownFormat    = encodingCode("UNKNOWN_FORMAT")
	CompressionError = encodingCode("COMPRESSION_ERROR")
)

// Protocol codes.
var (
	ExpirationBeforeRenewal    = protocolCode("EXPIRATION_BEFORE_RENEWAL")
	SequenceNumberOutOfRange   = protocolCode("SEQUENCE_NUMBER_OUT_OF_RANGE")
	SerialNumberOutOfRange     = protocolCode("SERIAL_NUMBER_OUT_OF_RANGE")
	MasterTokenUntrusted       = protocolCode("MASTERTOKEN_UNTRUSTED")
	MasterTokenRequired        = protocolCode("MASTERTOKEN_REQUIRED")
	MasterTokenExpired         = protocolCode("MASTERTOKEN_EXPIRED")
	MasterTokenRevoked         = protocolCode("MASTERTOKEN_REVOKED")
	MasterTokenNotNewest       = protocolCode("MASTERTOKEN_NOT_NEWEST")
	UserIdTokenUntrusted       = protocolCode("USERIDTOKEN_UNTRUSTED")
	UserIdTokenMismatch        = protocolCode("USERIDTOKEN_MASTERTOKEN_MISMATCH")
	UserIdTokenRequiresMaster  = protocolCode("USERIDTOKEN_REQUIRES_MASTERTOKEN")
	ServiceTokenNameEmpty      = protocolCode("SERVICETOKEN_NAME_EMPTY")
	ServiceTokenMasterMismatch = protocolCode("SERVICETOKEN_MASTERTOKEN_MISMATCH")
	ServiceTokenUserMismatch   = protocolCode("SERVICETOKEN_USERIDTOKEN_MISMATCH")
	ServiceTokenUserNoMaster   = protocolCode("SERVICETOKEN_USERIDTOKEN_WITHOUT_MASTERTOKEN")
	ServiceTokenUntrusted      = protocolCode("SERVICETOKEN_UNTRUSTED")
	EntityAuthNotSupported     = protocolCode("ENTITY_AUTH_NOT_SUPPORTED")
	EntityUnknown              = protocolCode("ENTITY_UNKNOWN")
	EntityRevoked              = protocolCode("ENTITY_REVOKED")
	CertificateUntrusted       = protocolCode("CERTIFICATE_UNTRUSTED")
)

// Error is a typed failure carrying a Code, a human-readable message,
// and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// New returns an *Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an *Error with a formatted message and a cause. The
// cause is reachable through errors.Unwrap.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	message := e.Code.name
	if e.Message != "" {
		message += ": " + e.Message
	}
	if e.Err != nil {
		message += ": " + e.Err.Error()
	}
	return message
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the same Code, or an *Error with the
// same Code.
func (e *Error) Is(target error) bool {
	switch other := target.(type) {
	case Code:
		return e.Code == other
	case *Error:
		return e.Code == other.Code
	}
	return false
}

// Kind returns the kind of the error's code.
func (e *Error) Kind() Kind { return e.Code.kind }

// KindOf returns the kind of the first *Error in err's chain, or zero
// if there is none.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Code.kind
	}
	return 0
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (Code, bool) {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Code, true
	}
	return Code{}, false
}

// IsCapabilityAbsent reports whether err says an operation is
// inapplicable to the context's key material, as opposed to having
// been attempted and failed.
func IsCapabilityAbsent(err error) bool {
	code, ok := CodeOf(err)
	if !ok {
		return false
	}
	switch code {
	case SignNotSupported, VerifyNotSupported, EncryptNotSupported,
		DecryptNotSupported, WrapNotSupported, UnwrapNotSupported:
		return true
	}
	return false
}
