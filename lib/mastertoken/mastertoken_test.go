// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mastertoken

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/bureau-foundation/msl/lib/codec"
	"github.com/bureau-foundation/msl/lib/cryptocontext"
	"github.com/bureau-foundation/msl/lib/mslerror"
	"github.com/bureau-foundation/msl/lib/primitive"
	"github.com/bureau-foundation/msl/lib/token"
	"github.com/bureau-foundation/msl/lib/wrapkey"
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

func testParams(t *testing.T) Params {
	t.Helper()
	return Params{
		RenewalWindow:  epoch.Add(10 * time.Second),
		Expiration:     epoch.Add(20 * time.Second),
		SequenceNumber: 1,
		SerialNumber:   1,
		Identity:       "device-1",
		IssuerData:     []byte(`{"tier":"gold"}`),
		SessionKeys: SessionKeys{
			Encryption: mustSecret(t, primitive.AES, 0x30, 16),
			HMAC:       mustSecret(t, primitive.HMACSHA256, 0x31, 32),
		},
	}
}

// tamper flips one byte of the envelope signature and re-encodes.
func tamper(t *testing.T, format codec.Format, encoded []byte) []byte {
	t.Helper()
	envelope, err := token.DecodeEnvelope(format, encoded, "test")
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	envelope.Signature = bytes.Clone(envelope.Signature)
	envelope.Signature[0] ^= 0x01
	tampered, err := envelope.Encode(format)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return tampered
}

func TestCreateParseRoundTrip(t *testing.T) {
	issuer := issuerContext(t, 0x10)
	params := testParams(t)
	for _, format := range []codec.Format{codec.JSON, codec.CBOR} {
		t.Run(format.String(), func(t *testing.T) {
			created, err := Create(issuer, format, params)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if created.State() != token.ConstructedTrusted {
				t.Errorf("State() = %s, want constructed-trusted", created.State())
			}
			encoded, err := created.Encode(format)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}

			parsed, err := Parse(format, encoded, issuer)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if parsed.State() != token.ParsedTrusted {
				t.Fatalf("State() = %s, want parsed-trusted", parsed.State())
			}
			if parsed.SerialNumber() != 1 || parsed.SequenceNumber() != 1 {
				t.Errorf("serial/sequence = %d/%d, want 1/1", parsed.SerialNumber(), parsed.SequenceNumber())
			}
			if !parsed.RenewalWindow().Equal(params.RenewalWindow) || !parsed.Expiration().Equal(params.Expiration) {
				t.Errorf("window = %s..%s, want %s..%s", parsed.RenewalWindow(), parsed.Expiration(), params.RenewalWindow, params.Expiration)
			}
			identity, ok := parsed.Identity()
			if !ok || identity != "device-1" {
				t.Errorf("Identity() = %q, %v", identity, ok)
			}

			trusted, err := parsed.Trust()
			if err != nil {
				t.Fatalf("Trust: %v", err)
			}
			keys := trusted.SessionKeys()
			if !keys.Encryption.Equal(params.SessionKeys.Encryption) || !keys.HMAC.Equal(params.SessionKeys.HMAC) {
				t.Error("session keys did not survive the round trip")
			}
			if !bytes.Equal(trusted.IssuerData(), params.IssuerData) {
				t.Errorf("IssuerData() = %q, want %q", trusted.IssuerData(), params.IssuerData)
			}

			reencoded, err := parsed.Encode(format)
			if err != nil {
				t.Fatalf("re-Encode: %v", err)
			}
			if !bytes.Equal(reencoded, encoded) {
				t.Error("re-encoding a parsed token changed its bytes")
			}
		})
	}
}

func TestTokenDataFormatIndependentOfEnvelope(t *testing.T) {
	issuer := issuerContext(t, 0x10)
	created, err := Create(issuer, codec.CBOR, testParams(t))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	encoded, err := created.Encode(codec.JSON)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	parsed, err := Parse(codec.JSON, encoded, issuer)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !parsed.Verified() {
		t.Fatal("CBOR token data in a JSON envelope did not verify")
	}
}

func TestFlippedSignatureIsUntrusted(t *testing.T) {
	issuer := issuerContext(t, 0x10)
	created, err := Create(issuer, codec.JSON, testParams(t))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	encoded, err := created.Encode(codec.JSON)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	parsed, err := Parse(codec.JSON, tamper(t, codec.JSON, encoded), issuer)
	if err != nil {
		t.Fatalf("Parse tampered: %v", err)
	}
	if parsed.State() != token.ParsedUntrusted || parsed.Verified() {
		t.Fatalf("State() = %s, want parsed-untrusted", parsed.State())
	}
	if parsed.SerialNumber() != 1 || parsed.SequenceNumber() != 1 {
		t.Errorf("header fields not populated: serial %d sequence %d", parsed.SerialNumber(), parsed.SequenceNumber())
	}
	if _, ok := parsed.Identity(); ok {
		t.Error("untrusted token exposed its identity")
	}
	if _, err := parsed.Trust(); !errors.Is(err, mslerror.MasterTokenUntrusted) {
		t.Errorf("Trust() error = %v, want MASTERTOKEN_UNTRUSTED", err)
	}
}

func TestUntrustedIssuers(t *testing.T) {
	issuer := issuerContext(t, 0x10)
	created, err := Create(issuer, codec.CBOR, testParams(t))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	encoded, err := created.Encode(codec.CBOR)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	verifyOnlyNothing := cryptocontext.NewECC(nil, "no-keys", nil, nil)
	for name, context := range map[string]cryptocontext.CryptoContext{
		"nil":           nil,
		"other keys":    issuerContext(t, 0x50),
		"cannot verify": verifyOnlyNothing,
	} {
		t.Run(name, func(t *testing.T) {
			parsed, err := Parse(codec.CBOR, encoded, context)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if parsed.Verified() {
				t.Fatal("token verified against the wrong issuer")
			}
		})
	}
}

func TestCreateValidation(t *testing.T) {
	issuer := issuerContext(t, 0x10)
	tests := []struct {
		name   string
		modify func(*Params)
		want   mslerror.Code
	}{
		{"inverted window", func(p *Params) { p.Expiration = p.RenewalWindow.Add(-time.Second) }, mslerror.ExpirationBeforeRenewal},
		{"negative sequence", func(p *Params) { p.SequenceNumber = -1 }, mslerror.SequenceNumberOutOfRange},
		{"sequence too large", func(p *Params) { p.SequenceNumber = token.MaxLongValue + 1 }, mslerror.SequenceNumberOutOfRange},
		{"serial too large", func(p *Params) { p.SerialNumber = token.MaxLongValue + 1 }, mslerror.SerialNumberOutOfRange},
		{"wrong encryption key", func(p *Params) { p.SessionKeys.Encryption = mustSecret(t, primitive.AESKW, 1, 16) }, mslerror.InvalidEncryptionKey},
		{"missing HMAC key", func(p *Params) { p.SessionKeys.HMAC = primitive.SecretKey{} }, mslerror.InvalidHMACKey},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			params := testParams(t)
			test.modify(&params)
			if _, err := Create(issuer, codec.JSON, params); !errors.Is(err, test.want) {
				t.Fatalf("Create error = %v, want %s", err, test.want)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	issuer := issuerContext(t, 0x10)
	sealed := func(fields map[string]any) []byte {
		t.Helper()
		tokendata, err := codec.Marshal(codec.JSON, fields)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		envelope, err := token.Seal(issuer, tokendata)
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		encoded, err := envelope.Encode(codec.JSON)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		return encoded
	}
	complete := func() map[string]any {
		return map[string]any{
			"renewalwindow":  epoch.Unix(),
			"expiration":     epoch.Unix() + 10,
			"sequencenumber": 1,
			"serialnumber":   1,
			"sessiondata":    []byte("opaque"),
		}
	}

	tests := []struct {
		name    string
		encoded []byte
		want    mslerror.Code
	}{
		{"garbage", []byte("not a token"), mslerror.ParseError},
		{"empty object", []byte(`{}`), mslerror.MissingField},
		{"signature wrong type", []byte(`{"tokendata":"e30=","signature":7}`), mslerror.InvalidFieldType},
	}
	for _, field := range []string{"renewalwindow", "expiration", "sequencenumber", "serialnumber", "sessiondata"} {
		fields := complete()
		delete(fields, field)
		tests = append(tests, struct {
			name    string
			encoded []byte
			want    mslerror.Code
		}{"missing " + field, sealed(fields), mslerror.MissingField})
	}
	inverted := complete()
	inverted["expiration"] = epoch.Unix() - 1
	tests = append(tests, struct {
		name    string
		encoded []byte
		want    mslerror.Code
	}{"inverted window", sealed(inverted), mslerror.ExpirationBeforeRenewal})

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := Parse(codec.JSON, test.encoded, issuer); !errors.Is(err, test.want) {
				t.Fatalf("Parse error = %v, want %s", err, test.want)
			}
		})
	}
}

func TestRenewableExpired(t *testing.T) {
	created, err := Create(issuerContext(t, 0x10), codec.JSON, testParams(t))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	tests := []struct {
		offset             time.Duration
		renewable, expired bool
	}{
		{9 * time.Second, false, false},
		{10 * time.Second, true, false},
		{19 * time.Second, true, false},
		{20 * time.Second, true, true},
	}
	for _, test := range tests {
		now := epoch.Add(test.offset)
		if got := created.IsRenewable(now); got != test.renewable {
			t.Errorf("IsRenewable(+%s) = %v, want %v", test.offset, got, test.renewable)
		}
		if got := created.IsExpired(now); got != test.expired {
			t.Errorf("IsExpired(+%s) = %v, want %v", test.offset, got, test.expired)
		}
	}
}

func TestIsNewerThan(t *testing.T) {
	issuer := issuerContext(t, 0x10)
	mint := func(sequence int64, expirationOffset time.Duration) *MasterToken {
		t.Helper()
		params := testParams(t)
		params.SequenceNumber = sequence
		params.Expiration = epoch.Add(expirationOffset)
		created, err := Create(issuer, codec.JSON, params)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		return created
	}

	tests := []struct {
		name     string
		a, b     *MasterToken
		newer    bool
		reversed bool
	}{
		{"higher sequence", mint(5, time.Minute), mint(4, time.Minute), true, false},
		{"equal sequence later expiration", mint(5, 2*time.Minute), mint(5, time.Minute), true, false},
		{"equal everything", mint(5, time.Minute), mint(5, time.Minute), false, false},
		{"wrapped past max", mint(0, time.Minute), mint(token.MaxLongValue, time.Minute), true, false},
		{"just inside wrap window", mint(126, time.Minute), mint(token.MaxLongValue, time.Minute), true, false},
		{"outside wrap window", mint(127, time.Minute), mint(token.MaxLongValue, time.Minute), false, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.a.IsNewerThan(test.b); got != test.newer {
				t.Errorf("a.IsNewerThan(b) = %v, want %v", got, test.newer)
			}
			if got := test.b.IsNewerThan(test.a); got != test.reversed {
				t.Errorf("b.IsNewerThan(a) = %v, want %v", got, test.reversed)
			}
		})
	}

	other := testParams(t)
	other.SerialNumber = 2
	otherLineage, err := Create(issuer, codec.JSON, other)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if SameLineage(mint(1, time.Minute), otherLineage) {
		t.Error("SameLineage across serial numbers")
	}
	if !SameLineage(mint(1, time.Minute), mint(2, time.Minute)) {
		t.Error("SameLineage false for one serial number")
	}
}

func TestSessionCryptoContext(t *testing.T) {
	created, err := Create(issuerContext(t, 0x10), codec.JSON, testParams(t))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	trusted, err := created.Trust()
	if err != nil {
		t.Fatalf("Trust: %v", err)
	}
	session, err := trusted.SessionCryptoContext(nil)
	if err != nil {
		t.Fatalf("SessionCryptoContext: %v", err)
	}
	if session.ID() != "device-1_1" {
		t.Errorf("ID() = %q, want device-1_1", session.ID())
	}
	ciphertext, err := session.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	plaintext, err := session.Decrypt(ciphertext)
	if err != nil || string(plaintext) != "payload" {
		t.Fatalf("Decrypt = %q, %v", plaintext, err)
	}
}

// TestMockClientScenario issues a token to a pre-shared-key entity
// whose wrapping key is derived from its encryption and HMAC keys,
// then checks that one flipped signature byte makes it untrusted.
func TestMockClientScenario(t *testing.T) {
	const (
		kpe = "AAECAwQFBgcICQoLDA0ODw=="
		kph = "AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8="
	)
	kpw, err := wrapkey.DeriveFromStrings(kpe, kph)
	if err != nil {
		t.Fatalf("DeriveFromStrings: %v", err)
	}
	if len(kpw) != wrapkey.KeyLength {
		t.Fatalf("derived %d-byte wrapping key", len(kpw))
	}
	encryptionMaterial := make([]byte, 16)
	hmacMaterial := make([]byte, 32)
	for i := range hmacMaterial {
		hmacMaterial[i] = byte(i)
	}
	copy(encryptionMaterial, hmacMaterial)
	encryption, err := primitive.NewSecretKey(primitive.AES, encryptionMaterial)
	if err != nil {
		t.Fatalf("NewSecretKey: %v", err)
	}
	signing, err := primitive.NewSecretKey(primitive.HMACSHA256, hmacMaterial)
	if err != nil {
		t.Fatalf("NewSecretKey: %v", err)
	}
	derived, err := cryptocontext.NewDerivedWrap(nil, "mockClient", encryption, signing)
	if err != nil {
		t.Fatalf("NewDerivedWrap: %v", err)
	}
	if !bytes.Equal(derived.Keys().Wrapping.Material(), kpw) {
		t.Fatal("derived context wrapping key differs from wrapkey.DeriveFromStrings")
	}

	issuer := issuerContext(t, 0x60)
	now := time.Now()
	sessionKeys, err := GenerateSessionKeys(nil)
	if err != nil {
		t.Fatalf("GenerateSessionKeys: %v", err)
	}
	created, err := Create(issuer, codec.JSON, Params{
		RenewalWindow:  now.Add(10 * time.Second),
		Expiration:     now.Add(20 * time.Second),
		SequenceNumber: 1,
		SerialNumber:   1,
		Identity:       "mockClient",
		SessionKeys:    sessionKeys,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	encoded, err := created.Encode(codec.JSON)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	parsed, err := Parse(codec.JSON, encoded, issuer)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if identity, ok := parsed.Identity(); !ok || identity != "mockClient" {
		t.Fatalf("Identity() = %q, %v", identity, ok)
	}
	if parsed.IsRenewable(now) || parsed.IsExpired(now) {
		t.Error("fresh token already renewable or expired")
	}

	tampered, err := Parse(codec.JSON, tamper(t, codec.JSON, encoded), issuer)
	if err != nil {
		t.Fatalf("Parse tampered: %v", err)
	}
	if tampered.Verified() {
		t.Fatal("tampered token verified")
	}
}
