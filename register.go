// Package webauthnrp implements the server side of a WebAuthn relying
// party: challenge generation (see the challenge subpackage) and the two
// ceremony orchestrators, Register and Authenticate, defined in this file
// and login.go.
package webauthnrp

import (
	"crypto/sha256"
	"errors"

	"github.com/passkit-go/webauthnrp/attestation"
	"github.com/passkit-go/webauthnrp/authdata"
	"github.com/passkit-go/webauthnrp/cbor"
	"github.com/passkit-go/webauthnrp/challenge"
	"github.com/passkit-go/webauthnrp/clientdata"
	"github.com/passkit-go/webauthnrp/cose"
	"github.com/passkit-go/webauthnrp/metadata"

	ilog "github.com/passkit-go/webauthnrp/internal/log"
	"github.com/passkit-go/webauthnrp/internal/metrics"
)

// RegistrationResult is what a successful Register call hands back. The
// caller is expected to persist (credential ID, CredentialPublicKey,
// AuthData.SignCount) keyed by the user it registered for.
type RegistrationResult struct {
	CredentialPublicKey *cose.Key
	Attestation         *attestation.Result
	AuthData            *authdata.AuthenticatorData
}

// Register runs the registration ceremony: it parses and
// cross-checks rawClientDataJSON and rawAttestationObject against ch,
// dispatches to the attestation verifier named by the attestation object's
// fmt field, and enforces the trusted-attestation-type policy. The first
// failing step short-circuits the ceremony; no step is retried.
func Register(rawAttestationObject, rawClientDataJSON []byte, ch *challenge.Challenge, metadataIndex metadata.Index) (result *RegistrationResult, err error) {
	defer func() {
		typ := ""
		if result != nil {
			typ = string(result.Attestation.Type)
		}
		metrics.ObserveRegistration(resultLabel(err), typ)
	}()

	cd, err := clientdata.Parse(rawClientDataJSON)
	if err != nil {
		return nil, wrap(KindInvalidClientDataJSON, err)
	}
	if cd.Type != clientdata.Create {
		return nil, Err(KindAttestationInvalidType)
	}
	ilog.Debugf("register: client data type ok")

	if err := checkChallengeAndOrigin(cd, ch); err != nil {
		return nil, err
	}
	// Token-binding cross-check is reserved; every status is accepted for
	// now.
	ilog.Debugf("register: challenge/origin ok")

	clientDataHash := clientdata.Hash(cd.Raw)

	obj, err := cbor.DecodeAttestationObject(rawAttestationObject)
	if err != nil {
		return nil, wrap(KindInvalidCBOR, err)
	}

	ad, err := authdata.Parse(obj.RawAuthData)
	if err != nil {
		return nil, wrap(KindInvalidAuthenticatorData, err)
	}
	if err := checkRPIDHashAndFlags(ad, ch); err != nil {
		return nil, err
	}
	ilog.Debugf("register: rp-id hash and flags ok")
	if ad.AttestedCredentialData == nil {
		return nil, wrap(KindInvalidAuthenticatorData, errNoAttestedCredentialData)
	}

	in := &attestation.Input{
		AttStmt:         obj.AttStmt,
		AuthData:        ad,
		ClientDataHash:  clientDataHash,
		VerifyTrustRoot: ch.VerifyTrustRoot,
		Metadata:        metadataIndex,
	}
	attResult, err := attestation.Verify(obj.Format, in)
	if err != nil {
		return nil, err
	}
	ilog.Debugf("register: attestation format %q verified as type %q", obj.Format, attResult.Type)

	if !ch.TrustedAttestationTypes[attResult.Type] {
		return nil, Err(KindUntrustedAttestationType)
	}

	return &RegistrationResult{
		CredentialPublicKey: ad.AttestedCredentialData.PublicKey,
		Attestation:         attResult,
		AuthData:            ad,
	}, nil
}

var errNoAttestedCredentialData = errors.New("attested credential data flag set but no credential data present")

// resultLabel turns an error into the low-cardinality metrics label: "ok"
// on success, or the error's Kind when it is one of ours.
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if e, ok := err.(*Error); ok {
		return string(e.Kind)
	}
	return "error"
}

func checkChallengeAndOrigin(cd *clientdata.ClientData, ch *challenge.Challenge) error {
	if len(cd.Challenge) != len(ch.Bytes) || string(cd.Challenge) != string(ch.Bytes[:]) {
		return Err(KindInvalidChallenge)
	}
	if cd.Origin != ch.Origin {
		return Err(KindAttestationInvalidOrigin)
	}
	return nil
}

func checkRPIDHashAndFlags(ad *authdata.AuthenticatorData, ch *challenge.Challenge) error {
	wantHash := sha256.Sum256([]byte(ch.RPID))
	if ad.RPIDHash != wantHash {
		return Err(KindInvalidRPID)
	}
	if !ad.UserPresent {
		return Err(KindFlagUserPresentNotSet)
	}
	if ch.UserVerifiedRequired && !ad.UserVerified {
		return Err(KindUserNotVerified)
	}
	return nil
}
