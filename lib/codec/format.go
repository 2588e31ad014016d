// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bureau-foundation/msl/lib/mslerror"
)

// Format selects the wire encoding of tokens and authentication data.
// The choice is made by the transport; the logical field set is the
// same in both.
type Format uint8

const (
	// JSON encodes objects as JSON; byte fields become standard
	// base64 strings.
	JSON Format = iota + 1

	// CBOR encodes objects as deterministic CBOR; byte fields become
	// CBOR byte strings.
	CBOR
)

// String returns the lowercase name of the format.
func (format Format) String() string {
	switch format {
	case JSON:
		return "json"
	case CBOR:
		return "cbor"
	default:
		return fmt.Sprintf("unknown(%d)", format)
	}
}

// ParseFormat parses a format name as written in configuration.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "json":
		return JSON, nil
	case "cbor":
		return CBOR, nil
	default:
		return 0, mslerror.New(mslerror.UnknownFormat, "wire format %q", name)
	}
}

// Marshal encodes v in the given format. Failures are reported as
// ENCODE_ERROR.
func Marshal(format Format, v any) ([]byte, error) {
	var data []byte
	var err error
	switch format {
	case JSON:
		data, err = json.Marshal(v)
	case CBOR:
		data, err = marshalCBOR(v)
	default:
		return nil, mslerror.New(mslerror.UnknownFormat, "wire format %s", format)
	}
	if err != nil {
		return nil, mslerror.Wrap(mslerror.EncodeError, err, "encoding %s", format)
	}
	return data, nil
}

// Unmarshal decodes data in the given format into v. A field present
// with the wrong type yields INVALID_FIELD_TYPE; any other decode
// failure yields PARSE_ERROR. The what argument names the payload in
// the error message.
func Unmarshal(format Format, data []byte, v any, what string) error {
	var err error
	switch format {
	case JSON:
		err = json.Unmarshal(data, v)
		if err != nil {
			var typeError *json.UnmarshalTypeError
			if errors.As(err, &typeError) {
				return mslerror.Wrap(mslerror.InvalidFieldType, err, "%s: field %q", what, typeError.Field)
			}
		}
	case CBOR:
		err = unmarshalCBOR(data, v)
		if err != nil && isCBORTypeError(err) {
			return mslerror.Wrap(mslerror.InvalidFieldType, err, "%s", what)
		}
	default:
		return mslerror.New(mslerror.UnknownFormat, "wire format %s", format)
	}
	if err != nil {
		return mslerror.Wrap(mslerror.ParseError, err, "%s", what)
	}
	return nil
}

// Missing returns the MISSING_FIELD error for a required field absent
// from a payload.
func Missing(what, field string) error {
	return mslerror.New(mslerror.MissingField, "%s: %q is required", what, field)
}

// Detect reports the format of an encoded object from its first
// significant byte: '{' for JSON, a major-type-5 (map) header for
// CBOR. Token data is signed as opaque bytes, so an envelope can be
// re-encoded in either format while its token data keeps the format it
// was signed in.
func Detect(data []byte) (Format, error) {
	for _, first := range data {
		switch {
		case first == ' ' || first == '\t' || first == '\n' || first == '\r':
			continue
		case first == '{':
			return JSON, nil
		case first>>5 == 5:
			return CBOR, nil
		}
		break
	}
	return 0, mslerror.New(mslerror.ParseError, "encoded object is neither a JSON nor a CBOR map")
}
