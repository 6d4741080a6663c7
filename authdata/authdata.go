// Package authdata parses the fixed-layout authenticatorData binary blob.
//
// https://www.w3.org/TR/webauthn-3/#sctn-authenticator-data
package authdata

import (
	"encoding/binary"
	"fmt"

	"github.com/passkit-go/webauthnrp/cose"
)

const (
	flagUserPresent            = 1 << 0
	flagUserVerified           = 1 << 2
	flagAttestedCredentialData = 1 << 6
	flagExtensionsPresent      = 1 << 7
)

// AttestedCredential is the attested-credential-data block, present only
// during registration.
type AttestedCredential struct {
	AAGUID       [16]byte
	CredentialID []byte
	PublicKey    *cose.Key
}

// AuthenticatorData is the parsed authenticatorData blob. RawBytes is the
// exact byte range the authenticator signed over (or that a later
// attestation signature covers verbatim); it must never be re-derived by
// re-encoding the parsed fields, only sliced from the original input.
type AuthenticatorData struct {
	RPIDHash               [32]byte
	UserPresent            bool
	UserVerified           bool
	AttestedCredentialData *AttestedCredential
	ExtensionsPresent      bool
	RawExtensions          []byte
	SignCount              uint32

	RawBytes []byte
}

// Parse decodes b: 32-byte RP-ID hash, 1 flag byte,
// 4-byte big-endian sign count, then an optional attested-credential-data
// block, then optional CBOR-encoded extensions. Trailing bytes with no
// extensions flag set, or a credential-id/COSE-key block that runs past
// the end of b, are rejected rather than silently ignored.
func Parse(b []byte) (*AuthenticatorData, error) {
	if len(b) < 37 {
		return nil, fmt.Errorf("invalid authenticator data: too short (%d bytes)", len(b))
	}
	ad := &AuthenticatorData{RawBytes: b}
	copy(ad.RPIDHash[:], b[:32])

	flags := b[32]
	ad.UserPresent = flags&flagUserPresent != 0
	ad.UserVerified = flags&flagUserVerified != 0
	ad.ExtensionsPresent = flags&flagExtensionsPresent != 0
	hasAttestedCredentialData := flags&flagAttestedCredentialData != 0

	ad.SignCount = binary.BigEndian.Uint32(b[33:37])
	rest := b[37:]

	if hasAttestedCredentialData {
		cred, tail, err := parseAttestedCredentialData(rest)
		if err != nil {
			return nil, err
		}
		ad.AttestedCredentialData = cred
		rest = tail
	}

	if ad.ExtensionsPresent {
		// Extensions are kept as an opaque CBOR blob; their semantics are
		// not interpreted.
		ad.RawExtensions = rest
	} else if len(rest) != 0 {
		return nil, fmt.Errorf("invalid authenticator data: %d trailing bytes with no extensions flag", len(rest))
	}

	return ad, nil
}

func parseAttestedCredentialData(b []byte) (*AttestedCredential, []byte, error) {
	if len(b) < 16+2 {
		return nil, nil, fmt.Errorf("invalid authenticator data: too short for attested credential data")
	}
	var cred AttestedCredential
	copy(cred.AAGUID[:], b[:16])
	b = b[16:]

	idLen := int(binary.BigEndian.Uint16(b[:2]))
	b = b[2:]
	if len(b) < idLen {
		return nil, nil, fmt.Errorf("invalid authenticator data: credential id length %d exceeds remaining data", idLen)
	}
	cred.CredentialID = b[:idLen]
	b = b[idLen:]

	key, consumed, err := cose.ParseKey(b)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid authenticator data: %w", err)
	}
	cred.PublicKey = key
	return &cred, b[consumed:], nil
}
