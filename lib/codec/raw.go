// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import "bytes"

// Raw holds an encoded value whose decoding is deferred, in whichever
// format the surrounding object was decoded from. It is the codec's
// equivalent of json.RawMessage and cbor.RawMessage: a scheme tag is
// decoded first, then Raw is decoded into the scheme-specific type.
//
// A Raw decoded from one format must only be re-encoded or decoded in
// that same format.
type Raw []byte

// MarshalJSON returns the held bytes.
func (raw Raw) MarshalJSON() ([]byte, error) {
	if raw == nil {
		return []byte("null"), nil
	}
	return raw, nil
}

// UnmarshalJSON stores a copy of data.
func (raw *Raw) UnmarshalJSON(data []byte) error {
	*raw = bytes.Clone(data)
	return nil
}

// MarshalCBOR returns the held bytes.
func (raw Raw) MarshalCBOR() ([]byte, error) {
	if raw == nil {
		return []byte{0xf6}, nil // CBOR null
	}
	return raw, nil
}

// UnmarshalCBOR stores a copy of data.
func (raw *Raw) UnmarshalCBOR(data []byte) error {
	*raw = bytes.Clone(data)
	return nil
}

// Wrap encodes v in format and returns it as a Raw for embedding in an
// outer object.
func Wrap(format Format, v any) (Raw, error) {
	data, err := Marshal(format, v)
	if err != nil {
		return nil, err
	}
	return Raw(data), nil
}
