// Package cose decodes COSE_Key maps into usable public keys and verifies
// signatures under the algorithm the key declares, per
// https://www.iana.org/assignments/cose/cose.xhtml#algorithms.
package cose

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	cbor "github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/cryptobyte"
	casn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// Algorithm is a COSEAlgorithmIdentifier, both a signature scheme and its
// associated hash function.
//
// https://www.w3.org/TR/webauthn-3/#typedefdef-cosealgorithmidentifier
type Algorithm int

const (
	AlgES256 Algorithm = -7
	AlgEdDSA Algorithm = -8
	AlgRS256 Algorithm = -257
)

func (a Algorithm) String() string {
	switch a {
	case AlgES256:
		return "ES256"
	case AlgEdDSA:
		return "EdDSA"
	case AlgRS256:
		return "RS256"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

// key type values (COSE label 1).
const (
	ktyOKP = 1
	ktyEC2 = 2
	ktyRSA = 3
)

// Key is an internal representation of a COSE public key, validated against
// its key type (kty) at parse time; the alg label is recorded as given and
// is not checked against the key type until Verify. Raw is the CBOR encoding the key was
// parsed from; callers persisting a credential store these bytes and hand
// them back to ParseKey later.
type Key struct {
	Algorithm Algorithm
	Public    crypto.PublicKey
	Raw       []byte
}

type ec2Key struct {
	KTY   int    `cbor:"1,keyasint"`
	ALG   int    `cbor:"3,keyasint"`
	Curve int    `cbor:"-1,keyasint"`
	X     []byte `cbor:"-2,keyasint"`
	Y     []byte `cbor:"-3,keyasint"`
}

type okpKey struct {
	KTY   int    `cbor:"1,keyasint"`
	ALG   int    `cbor:"3,keyasint"`
	Curve int    `cbor:"-1,keyasint"`
	X     []byte `cbor:"-2,keyasint"`
}

type rsaKey struct {
	KTY int    `cbor:"1,keyasint"`
	ALG int    `cbor:"3,keyasint"`
	N   []byte `cbor:"-1,keyasint"`
	E   int    `cbor:"-2,keyasint"`
}

// ParseKey decodes a CBOR-encoded COSE_Key map from the front of b. consumed
// is the number of bytes the single CBOR map item occupied, so callers
// parsing attested-credential-data can find where any trailing extensions
// begin.
func ParseKey(b []byte) (key *Key, consumed int, err error) {
	dec := cbor.NewDecoder(bytes.NewReader(b))
	var raw cbor.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("cbor: %w", err)
	}
	// raw holds exactly the bytes of the first CBOR item; the decoder may
	// have buffered more of b than that, so the reader's position is not
	// a reliable count.
	consumed = len(raw)

	var kty struct {
		KTY int `cbor:"1,keyasint"`
	}
	if err := cbor.Unmarshal(raw, &kty); err != nil {
		return nil, 0, fmt.Errorf("cbor: %w", err)
	}

	switch kty.KTY {
	case ktyEC2:
		var k ec2Key
		if err := cbor.Unmarshal(raw, &k); err != nil {
			return nil, 0, fmt.Errorf("cbor: %w", err)
		}
		if k.Curve != 1 {
			return nil, 0, errors.New("unsupported EC curve")
		}
		if len(k.X) != 32 || len(k.Y) != 32 {
			return nil, 0, errors.New("invalid EC coordinate length")
		}
		pub := &ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(k.X),
			Y:     new(big.Int).SetBytes(k.Y),
		}
		if !pub.Curve.IsOnCurve(pub.X, pub.Y) {
			return nil, 0, errors.New("EC point not on curve")
		}
		return &Key{Algorithm: Algorithm(k.ALG), Public: pub, Raw: b[:consumed]}, consumed, nil

	case ktyOKP:
		var k okpKey
		if err := cbor.Unmarshal(raw, &k); err != nil {
			return nil, 0, fmt.Errorf("cbor: %w", err)
		}
		if len(k.X) != ed25519.PublicKeySize {
			return nil, 0, errors.New("invalid Ed25519 key length")
		}
		return &Key{Algorithm: Algorithm(k.ALG), Public: ed25519.PublicKey(k.X), Raw: b[:consumed]}, consumed, nil

	case ktyRSA:
		var k rsaKey
		if err := cbor.Unmarshal(raw, &k); err != nil {
			return nil, 0, fmt.Errorf("cbor: %w", err)
		}
		if len(k.N) == 0 || k.E == 0 {
			return nil, 0, errors.New("invalid RSA key")
		}
		pub := &rsa.PublicKey{
			N: new(big.Int).SetBytes(k.N),
			E: k.E,
		}
		return &Key{Algorithm: Algorithm(k.ALG), Public: pub, Raw: b[:consumed]}, consumed, nil

	default:
		return nil, 0, fmt.Errorf("unsupported COSE key type %d", kty.KTY)
	}
}

// Verify checks signature over message using the algorithm the key
// declares. The COSE alg label drives algorithm selection; callers never
// get to pick a different one.
func (k *Key) Verify(message, signature []byte) error {
	switch k.Algorithm {
	case AlgES256:
		pub, ok := k.Public.(*ecdsa.PublicKey)
		if !ok {
			return fmt.Errorf("ES256 key is %T, not *ecdsa.PublicKey", k.Public)
		}
		h := sha256.Sum256(message)
		if !verifyECDSACanonical(pub, h[:], signature) {
			return errors.New("invalid ES256 signature")
		}
		return nil
	case AlgRS256:
		pub, ok := k.Public.(*rsa.PublicKey)
		if !ok {
			return fmt.Errorf("RS256 key is %T, not *rsa.PublicKey", k.Public)
		}
		h := sha256.Sum256(message)
		return rsa.VerifyPKCS1v15(pub, crypto.SHA256, h[:], signature)
	case AlgEdDSA:
		pub, ok := k.Public.(ed25519.PublicKey)
		if !ok {
			return fmt.Errorf("EdDSA key is %T, not ed25519.PublicKey", k.Public)
		}
		if !ed25519.Verify(pub, message, signature) {
			return errors.New("invalid EdDSA signature")
		}
		return nil
	default:
		return fmt.Errorf("unsupported signing algorithm: %d", k.Algorithm)
	}
}

// verifyECDSACanonical verifies a P-256 signature whose r,s are encoded as
// a DER SEQUENCE of two INTEGERs, rejecting any encoding that isn't the
// unique minimal one (extra padding, indefinite length, trailing bytes).
// crypto/ecdsa.VerifyASN1 accepts some non-canonical encodings that a real
// authenticator would never produce; cryptobyte's ASN.1 reader does not.
func verifyECDSACanonical(pub *ecdsa.PublicKey, hash, sig []byte) bool {
	r, s, err := parseECDSASignature(sig)
	if err != nil {
		return false
	}
	return ecdsa.Verify(pub, hash, r, s)
}

func parseECDSASignature(sig []byte) (r, s *big.Int, err error) {
	input := cryptobyte.String(sig)
	var inner cryptobyte.String
	r, s = new(big.Int), new(big.Int)
	if !input.ReadASN1(&inner, casn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(r) ||
		!inner.ReadASN1Integer(s) ||
		!inner.Empty() {
		return nil, nil, errors.New("invalid ASN.1 ECDSA signature encoding")
	}
	return r, s, nil
}
