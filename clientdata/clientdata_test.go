package clientdata

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"testing"
)

func TestParseCreateRoundTrip(t *testing.T) {
	var challenge [32]byte
	for i := range challenge {
		challenge[i] = byte(i)
	}
	raw := []byte(fmt.Sprintf(`{"type":"webauthn.create","challenge":%q,"origin":"https://example.com","extra":"ignored"}`,
		base64.RawURLEncoding.EncodeToString(challenge[:])))

	cd, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cd.Type != Create {
		t.Errorf("Type = %v, want Create", cd.Type)
	}
	if !bytes.Equal(cd.Challenge, challenge[:]) {
		t.Errorf("Challenge = %x, want %x", cd.Challenge, challenge)
	}
	if cd.Origin != "https://example.com" {
		t.Errorf("Origin = %q", cd.Origin)
	}
	if !bytes.Equal(cd.Raw, raw) {
		t.Error("Raw does not match the input bytes")
	}
}

func TestParseGet(t *testing.T) {
	raw := []byte(`{"type":"webauthn.get","challenge":"AAAA","origin":"https://example.com"}`)
	cd, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cd.Type != Get {
		t.Errorf("Type = %v, want Get", cd.Type)
	}
}

func TestParseUnknownTypeFails(t *testing.T) {
	raw := []byte(`{"type":"webauthn.unknown","challenge":"AAAA","origin":"https://example.com"}`)
	if _, err := Parse(raw); err == nil {
		t.Fatal("Parse succeeded with an unrecognized type")
	}
}

func TestHashDoesNotNormalizeWhitespace(t *testing.T) {
	a := []byte(`{"type":"webauthn.get","challenge":"AAAA","origin":"https://example.com"}`)
	b := []byte(`{ "type":"webauthn.get", "challenge":"AAAA", "origin":"https://example.com" }`)

	wantA := sha256.Sum256(a)
	wantB := sha256.Sum256(b)
	if Hash(a) != wantA {
		t.Error("Hash(a) does not equal sha256(a)")
	}
	if Hash(a) == Hash(b) {
		t.Error("Hash treated differently-whitespaced, semantically-equal JSON as identical")
	}
	if Hash(b) != wantB {
		t.Error("Hash(b) does not equal sha256(b)")
	}
}
