package webauthnrp_test

import (
	"testing"

	webauthnrp "github.com/passkit-go/webauthnrp"
	"github.com/passkit-go/webauthnrp/challenge"
	"github.com/passkit-go/webauthnrp/cose"
	"github.com/passkit-go/webauthnrp/internal/webauthntest"
	"github.com/passkit-go/webauthnrp/metadata"
)

func registerFakeCredential(t *testing.T, auth *webauthntest.FakeAuthenticator) []byte {
	t.Helper()
	regCh := newRegChallenge(t, nil)
	credID, attObj, cdj, err := auth.Register(testRPID, testOrigin, regCh.Bytes, cose.AlgES256)
	if err != nil {
		t.Fatalf("Register (fake authenticator): %v", err)
	}
	if _, err := webauthnrp.Register(attObj, cdj, regCh, metadata.NewStaticIndex(nil)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return credID
}

func TestAuthenticateSuccess(t *testing.T) {
	auth := webauthntest.NewFakeAuthenticator()
	credID := registerFakeCredential(t, auth)
	pubKey := auth.PublicKey(credID)

	authCh, err := challenge.NewAuthentication(
		[]challenge.AllowedCredential{{ID: credID, PublicKey: pubKey}},
		challenge.Options{Origin: testOrigin, RPID: testRPID},
	)
	if err != nil {
		t.Fatalf("NewAuthentication: %v", err)
	}

	rawAuthData, sig, cdj, err := auth.Authenticate(credID, testRPID, testOrigin, authCh.Bytes)
	if err != nil {
		t.Fatalf("Authenticate (fake authenticator): %v", err)
	}

	result, err := webauthnrp.Authenticate(credID, rawAuthData, sig, cdj, authCh)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if result.SignCount != 1 {
		t.Errorf("SignCount = %d, want 1", result.SignCount)
	}
}

func TestAuthenticateUnknownCredentialID(t *testing.T) {
	auth := webauthntest.NewFakeAuthenticator()
	credID := registerFakeCredential(t, auth)
	pubKey := auth.PublicKey(credID)

	authCh, err := challenge.NewAuthentication(
		[]challenge.AllowedCredential{{ID: credID, PublicKey: pubKey}},
		challenge.Options{Origin: testOrigin, RPID: testRPID},
	)
	if err != nil {
		t.Fatalf("NewAuthentication: %v", err)
	}

	rawAuthData, sig, cdj, err := auth.Authenticate(credID, testRPID, testOrigin, authCh.Bytes)
	if err != nil {
		t.Fatalf("Authenticate (fake authenticator): %v", err)
	}

	unknownID := append([]byte{}, credID...)
	unknownID[0] ^= 0xff

	_, err = webauthnrp.Authenticate(unknownID, rawAuthData, sig, cdj, authCh)
	if err == nil {
		t.Fatal("Authenticate succeeded with an unknown credential id")
	}
	var e *webauthnrp.Error
	if ok := asError(err, &e); !ok || e.Kind != webauthnrp.KindIncorrectCredentialIDForUser {
		t.Errorf("error = %v, want Kind=%v", err, webauthnrp.KindIncorrectCredentialIDForUser)
	}
}

func TestAuthenticateBadSignatureRejected(t *testing.T) {
	auth := webauthntest.NewFakeAuthenticator()
	credID := registerFakeCredential(t, auth)
	pubKey := auth.PublicKey(credID)

	authCh, err := challenge.NewAuthentication(
		[]challenge.AllowedCredential{{ID: credID, PublicKey: pubKey}},
		challenge.Options{Origin: testOrigin, RPID: testRPID},
	)
	if err != nil {
		t.Fatalf("NewAuthentication: %v", err)
	}

	if err := auth.RotateKey(credID); err != nil {
		t.Fatalf("RotateKey: %v", err)
	}
	rawAuthData, sig, cdj, err := auth.Authenticate(credID, testRPID, testOrigin, authCh.Bytes)
	if err != nil {
		t.Fatalf("Authenticate (fake authenticator) after rotation: %v", err)
	}

	if _, err := webauthnrp.Authenticate(credID, rawAuthData, sig, cdj, authCh); err == nil {
		t.Fatal("Authenticate succeeded against a signature from a rotated key")
	}
}

func TestAuthenticateSingleBitFlipFails(t *testing.T) {
	auth := webauthntest.NewFakeAuthenticator()
	credID := registerFakeCredential(t, auth)
	pubKey := auth.PublicKey(credID)

	authCh, err := challenge.NewAuthentication(
		[]challenge.AllowedCredential{{ID: credID, PublicKey: pubKey}},
		challenge.Options{Origin: testOrigin, RPID: testRPID},
	)
	if err != nil {
		t.Fatalf("NewAuthentication: %v", err)
	}

	rawAuthData, sig, cdj, err := auth.Authenticate(credID, testRPID, testOrigin, authCh.Bytes)
	if err != nil {
		t.Fatalf("Authenticate (fake authenticator): %v", err)
	}

	flip := func(b []byte) []byte {
		out := append([]byte{}, b...)
		out[len(out)/2] ^= 0x01
		return out
	}

	if _, err := webauthnrp.Authenticate(credID, flip(rawAuthData), sig, cdj, authCh); err == nil {
		t.Error("Authenticate succeeded with a bit flipped in authenticatorData")
	}
	if _, err := webauthnrp.Authenticate(credID, rawAuthData, flip(sig), cdj, authCh); err == nil {
		t.Error("Authenticate succeeded with a bit flipped in the signature")
	}
	if _, err := webauthnrp.Authenticate(credID, rawAuthData, sig, flip(cdj), authCh); err == nil {
		t.Error("Authenticate succeeded with a bit flipped in clientDataJSON")
	}
}
