package webauthnrp

import (
	"bytes"

	"github.com/passkit-go/webauthnrp/authdata"
	"github.com/passkit-go/webauthnrp/challenge"
	"github.com/passkit-go/webauthnrp/clientdata"

	ilog "github.com/passkit-go/webauthnrp/internal/log"
	"github.com/passkit-go/webauthnrp/internal/metrics"
)

// AuthenticationResult is what a successful Authenticate call hands back.
// The caller compares SignCount against the value it stored after the
// previous ceremony for this credential; a counter that fails to increase
// is evidence of cloning, a decision this core leaves to the caller.
type AuthenticationResult struct {
	SignCount uint32
	AuthData  *authdata.AuthenticatorData
}

// Authenticate runs the authentication ceremony: it looks the credential
// up in ch.AllowCredentials, re-runs the registration cross-checks, and
// verifies the assertion signature with the credential's public key.
func Authenticate(credentialID, rawAuthenticatorData, signature, rawClientDataJSON []byte, ch *challenge.Challenge) (result *AuthenticationResult, err error) {
	defer func() {
		metrics.ObserveAuthentication(resultLabel(err))
	}()

	cred, err := lookupCredential(credentialID, ch.AllowCredentials)
	if err != nil {
		return nil, err
	}
	ilog.Debugf("authenticate: credential id recognized")

	ad, err := authdata.Parse(rawAuthenticatorData)
	if err != nil {
		return nil, wrap(KindInvalidAuthenticatorData, err)
	}
	cd, err := clientdata.Parse(rawClientDataJSON)
	if err != nil {
		return nil, wrap(KindInvalidClientDataJSON, err)
	}
	if cd.Type != clientdata.Get {
		return nil, Err(KindAttestationInvalidType)
	}

	if err := checkChallengeAndOrigin(cd, ch); err != nil {
		return nil, err
	}
	// Token-binding cross-check is reserved; every status is accepted for
	// now.
	if err := checkRPIDHashAndFlags(ad, ch); err != nil {
		return nil, err
	}
	ilog.Debugf("authenticate: challenge/origin/rp-id hash/flags ok")

	clientDataHash := clientdata.Hash(cd.Raw)
	signedBytes := append(append([]byte{}, ad.RawBytes...), clientDataHash[:]...)

	key := cred.PublicKey
	if err := key.Verify(signedBytes, signature); err != nil {
		return nil, wrap(KindInvalidSignature, err)
	}
	ilog.Debugf("authenticate: signature ok, sign_count=%d", ad.SignCount)

	return &AuthenticationResult{SignCount: ad.SignCount, AuthData: ad}, nil
}

func lookupCredential(credentialID []byte, allow []challenge.AllowedCredential) (*challenge.AllowedCredential, error) {
	for i := range allow {
		if bytes.Equal(allow[i].ID, credentialID) {
			return &allow[i], nil
		}
	}
	return nil, Err(KindIncorrectCredentialIDForUser)
}
