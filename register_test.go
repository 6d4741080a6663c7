package webauthnrp_test

import (
	"testing"

	webauthnrp "github.com/passkit-go/webauthnrp"
	"github.com/passkit-go/webauthnrp/attestation"
	"github.com/passkit-go/webauthnrp/challenge"
	"github.com/passkit-go/webauthnrp/cose"
	"github.com/passkit-go/webauthnrp/internal/webauthntest"
	"github.com/passkit-go/webauthnrp/metadata"
)

const (
	testRPID   = "example.com"
	testOrigin = "https://example.com"
)

func newRegChallenge(t *testing.T, types map[attestation.Type]bool) *challenge.Challenge {
	t.Helper()
	ch, err := challenge.NewRegistration(challenge.Options{
		Origin:                  testOrigin,
		RPID:                    testRPID,
		TrustedAttestationTypes: types,
	})
	if err != nil {
		t.Fatalf("NewRegistration: %v", err)
	}
	return ch
}

func TestRegisterNoneSuccess(t *testing.T) {
	auth := webauthntest.NewFakeAuthenticator()
	ch := newRegChallenge(t, nil)

	_, attObj, cdj, err := auth.Register(testRPID, testOrigin, ch.Bytes, cose.AlgES256)
	if err != nil {
		t.Fatalf("Register (fake authenticator): %v", err)
	}

	result, err := webauthnrp.Register(attObj, cdj, ch, metadata.NewStaticIndex(nil))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if result.Attestation.Type != attestation.None {
		t.Errorf("Attestation.Type = %v, want %v", result.Attestation.Type, attestation.None)
	}
	if result.CredentialPublicKey == nil {
		t.Error("CredentialPublicKey is nil")
	}
}

func TestRegisterNonePolicyExclusion(t *testing.T) {
	auth := webauthntest.NewFakeAuthenticator()
	// Only trust basic/attca attestation; "none" must be rejected.
	ch := newRegChallenge(t, map[attestation.Type]bool{attestation.Basic: true, attestation.ATTCA: true})

	_, attObj, cdj, err := auth.Register(testRPID, testOrigin, ch.Bytes, cose.AlgES256)
	if err != nil {
		t.Fatalf("Register (fake authenticator): %v", err)
	}

	_, err = webauthnrp.Register(attObj, cdj, ch, metadata.NewStaticIndex(nil))
	if err == nil {
		t.Fatal("Register succeeded, want untrusted_attestation_type failure")
	}
	var e *webauthnrp.Error
	if ok := asError(err, &e); !ok || e.Kind != webauthnrp.KindUntrustedAttestationType {
		t.Errorf("error = %v, want Kind=%v", err, webauthnrp.KindUntrustedAttestationType)
	}
}

func TestRegisterChallengeMismatch(t *testing.T) {
	auth := webauthntest.NewFakeAuthenticator()
	ch := newRegChallenge(t, nil)

	var otherChallenge [32]byte
	otherChallenge[0] = 0xff
	_, attObj, cdj, err := auth.Register(testRPID, testOrigin, otherChallenge, cose.AlgES256)
	if err != nil {
		t.Fatalf("Register (fake authenticator): %v", err)
	}

	_, err = webauthnrp.Register(attObj, cdj, ch, metadata.NewStaticIndex(nil))
	if err == nil {
		t.Fatal("Register succeeded, want invalid_challenge failure")
	}
	var e *webauthnrp.Error
	if ok := asError(err, &e); !ok || e.Kind != webauthnrp.KindInvalidChallenge {
		t.Errorf("error = %v, want Kind=%v", err, webauthnrp.KindInvalidChallenge)
	}
}

func TestRegisterBitFlipInvalidatesAttestationObject(t *testing.T) {
	auth := webauthntest.NewFakeAuthenticator()
	ch := newRegChallenge(t, nil)

	_, attObj, cdj, err := auth.Register(testRPID, testOrigin, ch.Bytes, cose.AlgES256)
	if err != nil {
		t.Fatalf("Register (fake authenticator): %v", err)
	}
	flipped := append([]byte{}, attObj...)
	flipped[len(flipped)-1] ^= 0xff

	if _, err := webauthnrp.Register(flipped, cdj, ch, metadata.NewStaticIndex(nil)); err == nil {
		t.Fatal("Register succeeded on a corrupted attestation object")
	}
}

func asError(err error, target **webauthnrp.Error) bool {
	e, ok := err.(*webauthnrp.Error)
	if ok {
		*target = e
	}
	return ok
}
