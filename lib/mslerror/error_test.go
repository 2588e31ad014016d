// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mslerror

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestErrorMatchesCode(t *testing.T) {
	err := New(SignNotSupported, "no private key")

	if !errors.Is(err, SignNotSupported) {
		t.Error("errors.Is(err, SignNotSupported) = false, want true")
	}
	if errors.Is(err, VerifyNotSupported) {
		t.Error("errors.Is(err, VerifyNotSupported) = true, want false")
	}

	wrapped := fmt.Errorf("signing header: %w", err)
	if !errors.Is(wrapped, SignNotSupported) {
		t.Error("code not found through fmt.Errorf wrapping")
	}
	if !errors.Is(wrapped, New(SignNotSupported, "other message")) {
		t.Error("errors matching by code should compare equal regardless of message")
	}
}

func TestErrorUnwrapsCause(t *testing.T) {
	err := Wrap(ParseError, io.ErrUnexpectedEOF, "decoding envelope")
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("cause not reachable through errors.Is")
	}
	want := "PARSE_ERROR: decoding envelope: unexpected EOF"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{New(MissingField, "root"), KindEncoding},
		{New(InvalidHMACKey, ""), KindCrypto},
		{New(ExpirationBeforeRenewal, ""), KindProtocol},
		{fmt.Errorf("outer: %w", New(EntityRevoked, "")), KindProtocol},
		{errors.New("plain"), 0},
	}
	for _, test := range tests {
		if got := KindOf(test.err); got != test.want {
			t.Errorf("KindOf(%v) = %v, want %v", test.err, got, test.want)
		}
	}
}

func TestIsCapabilityAbsent(t *testing.T) {
	absent := []Code{SignNotSupported, VerifyNotSupported, EncryptNotSupported,
		DecryptNotSupported, WrapNotSupported, UnwrapNotSupported}
	for _, code := range absent {
		if !IsCapabilityAbsent(New(code, "")) {
			t.Errorf("IsCapabilityAbsent(%s) = false, want true", code)
		}
	}

	failed := []Code{EncryptError, HMACError, InvalidPublicKey, ParseError}
	for _, code := range failed {
		if IsCapabilityAbsent(New(code, "")) {
			t.Errorf("IsCapabilityAbsent(%s) = true, want false", code)
		}
	}
	if IsCapabilityAbsent(errors.New("plain")) {
		t.Error("IsCapabilityAbsent(plain error) = true, want false")
	}
}

func TestKindString(t *testing.T) {
	if KindCrypto.String() != "crypto" {
		t.Errorf("KindCrypto.String() = %q", KindCrypto.String())
	}
	if Kind(9).String() != "unknown(9)" {
		t.Errorf("Kind(9).String() = %q", Kind(9).String())
	}
}
