// Package attestation verifies the attestation statement an authenticator
// produces during registration. Each supported format is a tagged variant:
// its own file, its own parsed-statement shape, and a Verifier registered
// from that file's init(). Verify dispatches on the fmt string from the outer attestation
// object; an unregistered fmt fails with KindUnsupportedAttestationFormat.
package attestation

import (
	"github.com/passkit-go/webauthnrp/authdata"
	"github.com/passkit-go/webauthnrp/errs"
	"github.com/passkit-go/webauthnrp/metadata"
)

// Type is the policy-relevant classification of an attestation.
type Type string

const (
	None      Type = "none"
	Basic     Type = "basic"
	Self      Type = "self"
	ATTCA     Type = "attca"
	Uncertain Type = "uncertain"
)

// Result is what a C4 verifier returns on success.
type Result struct {
	Type      Type
	TrustPath [][]byte // DER certificates, leaf first
	Metadata  *metadata.Statement
}

// Input bundles everything a verifier needs. AttStmt is the raw,
// format-specific CBOR map; only the matching verifier decodes it.
type Input struct {
	AttStmt         []byte
	AuthData        *authdata.AuthenticatorData
	ClientDataHash  [32]byte
	VerifyTrustRoot bool
	Metadata        metadata.Index
}

// Verifier is the interface every attestation format implements.
type Verifier func(in *Input) (*Result, error)

var registry = make(map[string]Verifier)

// Register adds a verifier under fmt. Within this module it is called only
// from each format's own init(), so dispatch is safe for concurrent use once
// package initialization has completed. Register is exported and takes no
// lock: a call made after initialization, concurrently with Verify, races
// on the registry map.
func Register(fmt string, v Verifier) {
	if _, exists := registry[fmt]; exists {
		panic("attestation: duplicate registration for " + fmt)
	}
	registry[fmt] = v
}

// Verify dispatches to the verifier registered for fmt.
func Verify(fmt string, in *Input) (*Result, error) {
	v, ok := registry[fmt]
	if !ok {
		return nil, errs.Err(errs.KindUnsupportedAttestationFormat)
	}
	return v(in)
}

// typeFromMetadata applies the basic_full-wins-over-attca precedence rule
// shared by packed (full) and fido-u2f: basic_full and attca are assumed
// mutually exclusive per authenticator, but when a metadata statement
// claims both, basic_full is surfaced.
func typeFromMetadata(m *metadata.Statement) Type {
	if m == nil {
		return Uncertain
	}
	if m.HasAttestationType(metadata.BasicFull) {
		return Basic
	}
	if m.HasAttestationType(metadata.ATTCA) {
		return ATTCA
	}
	return Uncertain
}
