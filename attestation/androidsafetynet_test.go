package attestation

import (
	"encoding/base64"
	"testing"

	cbor "github.com/fxamacker/cbor/v2"
)

// A real android-safetynet success case needs a JWS chaining to Google's
// pinned GlobalSign Root R2, which this test suite cannot mint; the
// negative paths below exercise statement-shape and ctsProfileMatch
// validation, neither of which depends on a trusted chain.

func b64url(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestVerifyAndroidSafetyNetRejectsMalformedResponse(t *testing.T) {
	attStmt, err := cbor.Marshal(struct {
		Ver      string `cbor:"ver"`
		Response []byte `cbor:"response"`
	}{"14687020", []byte("not-a-jws")})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Verify("android-safetynet", &Input{AttStmt: attStmt}); err == nil {
		t.Fatal("Verify succeeded on a response that isn't a three-part JWS")
	}
}

func TestVerifyAndroidSafetyNetRejectsCTSProfileMismatch(t *testing.T) {
	header := `{"alg":"RS256","x5c":["bm90LWEtY2VydA=="]}`
	payload := `{"ctsProfileMatch":false,"nonce":"irrelevant"}`
	jws := b64url(header) + "." + b64url(payload) + "." + b64url("sig")

	attStmt, err := cbor.Marshal(struct {
		Ver      string `cbor:"ver"`
		Response []byte `cbor:"response"`
	}{"14687020", []byte(jws)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Verify("android-safetynet", &Input{AttStmt: attStmt}); err == nil {
		t.Fatal("Verify succeeded despite ctsProfileMatch=false")
	}
}
