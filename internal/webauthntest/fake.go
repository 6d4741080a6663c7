// Package webauthntest mimics the behavior of a WebAuthn authenticator and
// browser well enough for other packages' tests to build real CBOR
// attestation objects and real signatures, rather than hand-assembling
// byte slices by hand.
package webauthntest

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math/big"

	cbor "github.com/fxamacker/cbor/v2"

	"github.com/passkit-go/webauthnrp/cose"
)

// FakeAuthenticator mimics a CTAP authenticator: it holds one key pair per
// credential ID and signs whatever it is asked to, the way a real security
// key would in response to navigator.credentials.create/get.
type FakeAuthenticator struct {
	keys map[string]*fakeKey
}

type fakeKey struct {
	id        []byte
	alg       cose.Algorithm
	signer    crypto.Signer
	pub       *cose.Key
	signCount uint32
}

// NewFakeAuthenticator returns an authenticator with no credentials yet.
func NewFakeAuthenticator() *FakeAuthenticator {
	return &FakeAuthenticator{keys: make(map[string]*fakeKey)}
}

type wireClientData struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Origin    string `json:"origin"`
}

// Register mimics navigator.credentials.create(): it generates a fresh key
// pair under alg, builds a "none" format attestation object over it, and
// returns the credential ID alongside the raw bytes a relying party would
// receive.
func (a *FakeAuthenticator) Register(rpID, origin string, challenge [32]byte, alg cose.Algorithm) (credentialID, rawAttestationObject, rawClientDataJSON []byte, err error) {
	k := &fakeKey{alg: alg}
	var coseKey []byte
	switch alg {
	case cose.AlgES256:
		priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, nil, nil, err
		}
		k.signer = priv
		k.pub = &cose.Key{Algorithm: alg, Public: &priv.PublicKey}
		if coseKey, err = marshalES256(&priv.PublicKey); err != nil {
			return nil, nil, nil, err
		}
	case cose.AlgRS256:
		priv, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, nil, nil, err
		}
		k.signer = priv
		k.pub = &cose.Key{Algorithm: alg, Public: &priv.PublicKey}
		if coseKey, err = marshalRS256(&priv.PublicKey); err != nil {
			return nil, nil, nil, err
		}
	case cose.AlgEdDSA:
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, nil, nil, err
		}
		k.signer = priv
		k.pub = &cose.Key{Algorithm: alg, Public: pub}
		if coseKey, err = marshalEdDSA(pub); err != nil {
			return nil, nil, nil, err
		}
	default:
		return nil, nil, nil, errors.New("webauthntest: unsupported algorithm")
	}

	k.pub.Raw = coseKey

	k.id = make([]byte, 16)
	if _, err := rand.Read(k.id); err != nil {
		return nil, nil, nil, err
	}

	rawClientDataJSON, err = buildClientDataJSON("webauthn.create", challenge, origin)
	if err != nil {
		return nil, nil, nil, err
	}

	authData := buildAuthData(rpID, true, true, k.id, coseKey, 0)
	rawAttestationObject, err = cbor.Marshal(struct {
		Fmt      string      `cbor:"fmt"`
		AttStmt  interface{} `cbor:"attStmt"`
		AuthData []byte      `cbor:"authData"`
	}{
		Fmt:      "none",
		AttStmt:  map[string]interface{}{},
		AuthData: authData,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	a.keys[base64.RawURLEncoding.EncodeToString(k.id)] = k
	return k.id, rawAttestationObject, rawClientDataJSON, nil
}

// PublicKey returns the COSE public key registered under credentialID, for
// tests that need to hand it to a caller-side credential store rather than
// re-deriving it from the attestation object.
func (a *FakeAuthenticator) PublicKey(credentialID []byte) *cose.Key {
	k, ok := a.keys[base64.RawURLEncoding.EncodeToString(credentialID)]
	if !ok {
		return nil
	}
	return k.pub
}

// Authenticate mimics navigator.credentials.get(): it increments the
// credential's signature counter and signs over a fresh authenticatorData
// and clientDataJSON pair, the way a real authenticator signs over
// whatever rpIdHash/flags/counter it is holding at assertion time.
func (a *FakeAuthenticator) Authenticate(credentialID []byte, rpID, origin string, challenge [32]byte) (rawAuthenticatorData, signature, rawClientDataJSON []byte, err error) {
	k, ok := a.keys[base64.RawURLEncoding.EncodeToString(credentialID)]
	if !ok {
		return nil, nil, nil, errors.New("webauthntest: unknown credential id")
	}
	k.signCount++

	rawClientDataJSON, err = buildClientDataJSON("webauthn.get", challenge, origin)
	if err != nil {
		return nil, nil, nil, err
	}
	rawAuthenticatorData = buildAuthData(rpID, true, true, nil, nil, k.signCount)

	clientDataHash := sha256.Sum256(rawClientDataJSON)
	signedBytes := append(append([]byte{}, rawAuthenticatorData...), clientDataHash[:]...)
	signature, err = sign(k, signedBytes)
	if err != nil {
		return nil, nil, nil, err
	}
	return rawAuthenticatorData, signature, rawClientDataJSON, nil
}

// RotateKey replaces the key pair behind credentialID with a fresh one of
// the same algorithm, so a previously-valid signature stops verifying
// without the relying party's public key record having moved.
func (a *FakeAuthenticator) RotateKey(credentialID []byte) error {
	k, ok := a.keys[base64.RawURLEncoding.EncodeToString(credentialID)]
	if !ok {
		return errors.New("webauthntest: unknown credential id")
	}
	switch k.alg {
	case cose.AlgES256:
		priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return err
		}
		k.signer = priv
	case cose.AlgRS256:
		priv, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return err
		}
		k.signer = priv
	case cose.AlgEdDSA:
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return err
		}
		k.signer = priv
	}
	return nil
}

func buildClientDataJSON(typ string, challenge [32]byte, origin string) ([]byte, error) {
	cd := wireClientData{
		Type:      typ,
		Challenge: base64.RawURLEncoding.EncodeToString(challenge[:]),
		Origin:    origin,
	}
	return json.Marshal(cd)
}

func buildAuthData(rpID string, userPresent, userVerified bool, credentialID, coseKey []byte, signCount uint32) []byte {
	var buf bytes.Buffer
	rpIDHash := sha256.Sum256([]byte(rpID))
	buf.Write(rpIDHash[:])

	var flags byte
	if userPresent {
		flags |= 1 << 0
	}
	if userVerified {
		flags |= 1 << 2
	}
	if coseKey != nil {
		flags |= 1 << 6
	}
	buf.WriteByte(flags)
	binary.Write(&buf, binary.BigEndian, signCount)

	if coseKey != nil {
		var aaguid [16]byte
		buf.Write(aaguid[:])
		binary.Write(&buf, binary.BigEndian, uint16(len(credentialID)))
		buf.Write(credentialID)
		buf.Write(coseKey)
	}
	return buf.Bytes()
}

func sign(k *fakeKey, message []byte) ([]byte, error) {
	switch k.alg {
	case cose.AlgES256:
		priv := k.signer.(*ecdsa.PrivateKey)
		h := sha256.Sum256(message)
		return ecdsa.SignASN1(rand.Reader, priv, h[:])
	case cose.AlgRS256:
		priv := k.signer.(*rsa.PrivateKey)
		h := sha256.Sum256(message)
		return rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, h[:])
	case cose.AlgEdDSA:
		priv := k.signer.(ed25519.PrivateKey)
		return ed25519.Sign(priv, message), nil
	default:
		return nil, errors.New("webauthntest: unsupported algorithm")
	}
}

type ec2CoseKey struct {
	KTY   int    `cbor:"1,keyasint"`
	ALG   int    `cbor:"3,keyasint"`
	Curve int    `cbor:"-1,keyasint"`
	X     []byte `cbor:"-2,keyasint"`
	Y     []byte `cbor:"-3,keyasint"`
}

type okpCoseKey struct {
	KTY   int    `cbor:"1,keyasint"`
	ALG   int    `cbor:"3,keyasint"`
	Curve int    `cbor:"-1,keyasint"`
	X     []byte `cbor:"-2,keyasint"`
}

type rsaCoseKey struct {
	KTY int    `cbor:"1,keyasint"`
	ALG int    `cbor:"3,keyasint"`
	N   []byte `cbor:"-1,keyasint"`
	E   int    `cbor:"-2,keyasint"`
}

func marshalES256(pub *ecdsa.PublicKey) ([]byte, error) {
	return cbor.Marshal(ec2CoseKey{
		KTY:   2,
		ALG:   int(cose.AlgES256),
		Curve: 1,
		X:     leftPad32(pub.X),
		Y:     leftPad32(pub.Y),
	})
}

func marshalRS256(pub *rsa.PublicKey) ([]byte, error) {
	return cbor.Marshal(rsaCoseKey{
		KTY: 3,
		ALG: int(cose.AlgRS256),
		N:   pub.N.Bytes(),
		E:   pub.E,
	})
}

func marshalEdDSA(pub ed25519.PublicKey) ([]byte, error) {
	return cbor.Marshal(okpCoseKey{
		KTY:   1,
		ALG:   int(cose.AlgEdDSA),
		Curve: 6, // Ed25519
		X:     []byte(pub),
	})
}

func leftPad32(i *big.Int) []byte {
	b := i.Bytes()
	if len(b) >= 32 {
		return b
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}
