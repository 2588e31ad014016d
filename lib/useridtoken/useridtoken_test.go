// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package useridtoken

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/bureau-foundation/msl/lib/codec"
	"github.com/bureau-foundation/msl/lib/cryptocontext"
	"github.com/bureau-foundation/msl/lib/mastertoken"
	"github.com/bureau-foundation/msl/lib/mslerror"
	"github.com/bureau-foundation/msl/lib/primitive"
	"github.com/bureau-foundation/msl/lib/token"
)

var epoch = time.Unix(1_800_000_000, 0)

func mustSecret(t *testing.T, algorithm primitive.Algorithm, fill byte, size int) primitive.SecretKey {
	t.Helper()
	key, err := primitive.NewSecretKey(algorithm, bytes.Repeat([]byte{fill}, size))
	if err != nil {
		t.Fatalf("NewSecretKey(%s): %v", algorithm, err)
	}
	return key
}

func issuerContext(t *testing.T, fill byte) *cryptocontext.Symmetric {
	t.Helper()
	context, err := cryptocontext.NewSymmetric(nil, "issuer", cryptocontext.SymmetricKeys{
		Encryption: mustSecret(t, primitive.AES, fill, 16),
		HMAC:       mustSecret(t, primitive.HMACSHA256, fill+1, 32),
	})
	if err != nil {
		t.Fatalf("NewSymmetric: %v", err)
	}
	return context
}

func masterToken(t *testing.T, issuer cryptocontext.CryptoContext, serial, sequence int64) *mastertoken.MasterToken {
	t.Helper()
	master, err := mastertoken.Create(issuer, codec.JSON, mastertoken.Params{
		RenewalWindow:  epoch.Add(time.Hour),
		Expiration:     epoch.Add(2 * time.Hour),
		SequenceNumber: sequence,
		SerialNumber:   serial,
		Identity:       "device-1",
		SessionKeys: mastertoken.SessionKeys{
			Encryption: mustSecret(t, primitive.AES, 0x30, 16),
			HMAC:       mustSecret(t, primitive.HMACSHA256, 0x31, 32),
		},
	})
	if err != nil {
		t.Fatalf("mastertoken.Create: %v", err)
	}
	return master
}

func testParams() Params {
	return Params{
		RenewalWindow: epoch.Add(30 * time.Minute),
		Expiration:    epoch.Add(time.Hour),
		SerialNumber:  42,
		User:          "alice@example.com",
		IssuerData:    []byte("profile=7"),
	}
}

func TestCreateParseRoundTrip(t *testing.T) {
	issuer := issuerContext(t, 0x10)
	master := masterToken(t, issuer, 100, 1)
	for _, format := range []codec.Format{codec.JSON, codec.CBOR} {
		t.Run(format.String(), func(t *testing.T) {
			created, err := Create(issuer, format, master, testParams())
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			encoded, err := created.Encode(format)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			parsed, err := Parse(format, encoded, issuer, master)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if parsed.State() != token.ParsedTrusted {
				t.Fatalf("State() = %s, want parsed-trusted", parsed.State())
			}
			if user, ok := parsed.User(); !ok || user != "alice@example.com" {
				t.Errorf("User() = %q, %v", user, ok)
			}
			if parsed.SerialNumber() != 42 || parsed.MasterTokenSerialNumber() != 100 {
				t.Errorf("serials = %d/%d, want 42/100", parsed.SerialNumber(), parsed.MasterTokenSerialNumber())
			}
			if string(parsed.IssuerData()) != "profile=7" {
				t.Errorf("IssuerData() = %q", parsed.IssuerData())
			}
			if !parsed.Expiration().Equal(epoch.Add(time.Hour)) {
				t.Errorf("Expiration() = %s", parsed.Expiration())
			}
		})
	}
}

func TestBindingSurvivesMasterRenewal(t *testing.T) {
	issuer := issuerContext(t, 0x10)
	original := masterToken(t, issuer, 100, 1)
	renewed := masterToken(t, issuer, 100, token.NextSequence(1))
	other := masterToken(t, issuer, 101, 1)

	created, err := Create(issuer, codec.JSON, original, testParams())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !created.IsBoundTo(renewed) {
		t.Error("user token not bound to the renewed master token")
	}
	if created.IsBoundTo(other) {
		t.Error("user token bound to a different serial number")
	}
	if created.IsBoundTo(nil) {
		t.Error("user token bound to nil")
	}

	encoded, err := created.Encode(codec.JSON)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Parse(codec.JSON, encoded, issuer, renewed); err != nil {
		t.Errorf("Parse against renewed master: %v", err)
	}
	if _, err := Parse(codec.JSON, encoded, issuer, other); !errors.Is(err, mslerror.UserIdTokenMismatch) {
		t.Errorf("Parse against other master: error = %v, want USERIDTOKEN_MASTERTOKEN_MISMATCH", err)
	}
}

func TestMasterTokenRequired(t *testing.T) {
	issuer := issuerContext(t, 0x10)
	if _, err := Create(issuer, codec.JSON, nil, testParams()); !errors.Is(err, mslerror.UserIdTokenRequiresMaster) {
		t.Errorf("Create without master: error = %v", err)
	}
	if _, err := Parse(codec.JSON, []byte(`{}`), issuer, nil); !errors.Is(err, mslerror.UserIdTokenRequiresMaster) {
		t.Errorf("Parse without master: error = %v", err)
	}
}

func TestTamperedSignatureIsUntrusted(t *testing.T) {
	issuer := issuerContext(t, 0x10)
	master := masterToken(t, issuer, 100, 1)
	created, err := Create(issuer, codec.CBOR, master, testParams())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	encoded, err := created.Encode(codec.CBOR)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	envelope, err := token.DecodeEnvelope(codec.CBOR, encoded, "test")
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	envelope.Signature = bytes.Clone(envelope.Signature)
	envelope.Signature[len(envelope.Signature)-1] ^= 0x80
	tampered, err := envelope.Encode(codec.CBOR)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	parsed, err := Parse(codec.CBOR, tampered, issuer, master)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Verified() {
		t.Fatal("tampered token verified")
	}
	if parsed.SerialNumber() != 42 {
		t.Errorf("SerialNumber() = %d, want 42", parsed.SerialNumber())
	}
	if _, ok := parsed.User(); ok {
		t.Error("untrusted token exposed its user")
	}
	if parsed.IssuerData() != nil {
		t.Error("untrusted token exposed its issuer data")
	}
	if _, err := parsed.Trust(); !errors.Is(err, mslerror.UserIdTokenUntrusted) {
		t.Errorf("Trust() error = %v, want USERIDTOKEN_UNTRUSTED", err)
	}
}

func TestCreateValidation(t *testing.T) {
	issuer := issuerContext(t, 0x10)
	master := masterToken(t, issuer, 100, 1)

	inverted := testParams()
	inverted.Expiration = inverted.RenewalWindow.Add(-time.Minute)
	if _, err := Create(issuer, codec.JSON, master, inverted); !errors.Is(err, mslerror.ExpirationBeforeRenewal) {
		t.Errorf("inverted window: error = %v", err)
	}

	outOfRange := testParams()
	outOfRange.SerialNumber = -5
	if _, err := Create(issuer, codec.JSON, master, outOfRange); !errors.Is(err, mslerror.SerialNumberOutOfRange) {
		t.Errorf("negative serial: error = %v", err)
	}
}

func TestRenewableExpired(t *testing.T) {
	issuer := issuerContext(t, 0x10)
	created, err := Create(issuer, codec.JSON, masterToken(t, issuer, 100, 1), testParams())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.IsRenewable(epoch) || created.IsExpired(epoch) {
		t.Error("token renewable or expired at issue time")
	}
	if !created.IsRenewable(epoch.Add(30*time.Minute)) || created.IsExpired(epoch.Add(30*time.Minute)) {
		t.Error("token not renewable inside its window")
	}
	if !created.IsExpired(epoch.Add(time.Hour)) {
		t.Error("token not expired at its expiration")
	}
}
