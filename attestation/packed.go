package attestation

import (
	"bytes"
	"crypto/x509"
	"encoding/asn1"
	"errors"

	cb "github.com/fxamacker/cbor/v2"

	"github.com/passkit-go/webauthnrp/cose"
	"github.com/passkit-go/webauthnrp/errs"
	"github.com/passkit-go/webauthnrp/metadata"
)

func init() {
	Register("packed", verifyPacked)
}

// id-fido-gen-ce-aaguid, an X.509 extension some packed attestation
// certificates carry when the same root covers multiple authenticator
// models.
var oidFIDOGenCEAAGUID = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 45724, 1, 1, 4}

type packedStmt struct {
	Alg        int64    `cbor:"alg"`
	Sig        []byte   `cbor:"sig"`
	X5C        [][]byte `cbor:"x5c,omitempty"`
	ECDAAKeyID []byte   `cbor:"ecdaaKeyId,omitempty"`
}

func verifyPacked(in *Input) (*Result, error) {
	var keys map[string]cb.RawMessage
	if err := cb.Unmarshal(in.AttStmt, &keys); err != nil {
		return nil, errs.Wrap(errs.KindInvalidCBOR, err)
	}

	var stmt packedStmt
	if err := cb.Unmarshal(in.AttStmt, &stmt); err != nil {
		return nil, errs.Wrap(errs.KindInvalidCBOR, err)
	}

	_, hasX5C := keys["x5c"]
	_, hasECDAA := keys["ecdaaKeyId"]

	switch {
	case hasX5C:
		if len(keys) != 3 {
			return nil, errs.Err(errs.KindInvalidCBOR)
		}
		return verifyPackedFull(in, &stmt)
	case hasECDAA:
		return nil, errs.Err(errs.KindPackedUnimplemented)
	default:
		if len(keys) != 2 {
			return nil, errs.Err(errs.KindInvalidCBOR)
		}
		return verifyPackedSelf(in, &stmt)
	}
}

func verifyPackedFull(in *Input, stmt *packedStmt) (*Result, error) {
	if len(stmt.X5C) == 0 {
		return nil, errs.Err(errs.KindPackedInvalidAttestationCert)
	}
	leaf, err := x509.ParseCertificate(stmt.X5C[0])
	if err != nil {
		return nil, errs.Wrap(errs.KindPackedInvalidAttestationCert, err)
	}

	// The digest and scheme come from the statement's alg, not from the
	// algorithm the issuer used to sign the certificate itself.
	signedBytes := append(append([]byte{}, in.AuthData.RawBytes...), in.ClientDataHash[:]...)
	leafKey := &cose.Key{Algorithm: cose.Algorithm(stmt.Alg), Public: leaf.PublicKey}
	if err := leafKey.Verify(signedBytes, stmt.Sig); err != nil {
		return nil, errs.Wrap(errs.KindPackedInvalidSignature, err)
	}

	if err := checkPackedCertRequirements(leaf); err != nil {
		return nil, errs.Wrap(errs.KindPackedInvalidAttestationCert, err)
	}

	for _, ext := range leaf.Extensions {
		if !ext.Id.Equal(oidFIDOGenCEAAGUID) {
			continue
		}
		var aaguid []byte
		if _, err := asn1.Unmarshal(ext.Value, &aaguid); err != nil {
			return nil, errs.Wrap(errs.KindPackedInvalidAttestationCert, err)
		}
		if !bytes.Equal(in.AuthData.AttestedCredentialData.AAGUID[:], aaguid) {
			return nil, errs.Err(errs.KindPackedInvalidAttestationCert)
		}
	}

	trustPath := stmt.X5C
	var meta *metadata.Statement
	if in.VerifyTrustRoot {
		m, ok := in.Metadata.ByAAGUID(in.AuthData.AttestedCredentialData.AAGUID)
		if !ok {
			return nil, errs.Err(errs.KindNoAttestationMetadataStatementFound)
		}
		if !buildsTrustPath(trustPath, m.AttestationRootCertificates) {
			return nil, errs.Err(errs.KindPackedRootTrustCertificateNotFound)
		}
		meta = m
	}

	typ := Uncertain
	if meta != nil {
		typ = typeFromMetadata(meta)
	}
	return &Result{Type: typ, TrustPath: trustPath, Metadata: meta}, nil
}

var (
	errPackedBadVersion = errors.New("packed attestation certificate must be X.509 v3")
	errPackedIsCA       = errors.New("packed attestation certificate must not be a CA")
	errPackedBadCountry = errors.New("packed attestation certificate subject C must be an ISO-3166-1 alpha-2 code")
	errPackedBadOrg     = errors.New("packed attestation certificate subject O must be non-empty")
	errPackedBadOU      = errors.New("packed attestation certificate subject OU must be \"Authenticator Attestation\"")
	errPackedBadCN      = errors.New("packed attestation certificate subject CN must be non-empty")
)

// checkPackedCertRequirements enforces the leaf-certificate shape from
// §8.2.1 of the WebAuthn attestation statement format registry: X.509 v3,
// CA=false, and subject fields identifying the authenticator vendor/model:
// C of two upper-case ASCII letters (not looked up in the ISO 3166-1
// list), non-empty O, OU equal to "Authenticator Attestation", and
// non-empty CN.
func checkPackedCertRequirements(cert *x509.Certificate) error {
	if cert.Version != 3 {
		return errPackedBadVersion
	}
	if cert.IsCA {
		return errPackedIsCA
	}
	s := cert.Subject
	if len(s.Country) == 0 || !isAlpha2CountryCode(s.Country[0]) {
		return errPackedBadCountry
	}
	if len(s.Organization) == 0 || s.Organization[0] == "" {
		return errPackedBadOrg
	}
	if len(s.OrganizationalUnit) == 0 || s.OrganizationalUnit[0] != "Authenticator Attestation" {
		return errPackedBadOU
	}
	if s.CommonName == "" {
		return errPackedBadCN
	}
	return nil
}

func isAlpha2CountryCode(c string) bool {
	if len(c) != 2 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func verifyPackedSelf(in *Input, stmt *packedStmt) (*Result, error) {
	if cose.Algorithm(stmt.Alg) != in.AuthData.AttestedCredentialData.PublicKey.Algorithm {
		return nil, errs.Err(errs.KindPackedInvalidPublicKeyAlgorithm)
	}
	signedBytes := append(append([]byte{}, in.AuthData.RawBytes...), in.ClientDataHash[:]...)
	if err := in.AuthData.AttestedCredentialData.PublicKey.Verify(signedBytes, stmt.Sig); err != nil {
		return nil, errs.Wrap(errs.KindPackedInvalidSignature, err)
	}
	return &Result{Type: Self}, nil
}
