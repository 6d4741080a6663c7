package attestation

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha1"
	"crypto/x509"

	cb "github.com/fxamacker/cbor/v2"

	"github.com/passkit-go/webauthnrp/cose"
	"github.com/passkit-go/webauthnrp/errs"
	"github.com/passkit-go/webauthnrp/metadata"
)

func init() {
	Register("fido-u2f", verifyFidoU2F)
}

type fidoU2FStmt struct {
	Sig []byte   `cbor:"sig"`
	X5C [][]byte `cbor:"x5c"`
}

func verifyFidoU2F(in *Input) (*Result, error) {
	var keys map[string]cb.RawMessage
	if err := cb.Unmarshal(in.AttStmt, &keys); err != nil {
		return nil, errs.Wrap(errs.KindInvalidCBOR, err)
	}
	if len(keys) != 2 {
		return nil, errs.Err(errs.KindInvalidCBOR)
	}

	var stmt fidoU2FStmt
	if err := cb.Unmarshal(in.AttStmt, &stmt); err != nil {
		return nil, errs.Wrap(errs.KindInvalidCBOR, err)
	}
	if len(stmt.X5C) != 1 {
		return nil, errs.Err(errs.KindFidoU2FInvalidAttestationCert)
	}

	leaf, err := x509.ParseCertificate(stmt.X5C[0])
	if err != nil {
		return nil, errs.Wrap(errs.KindFidoU2FInvalidAttestationCert, err)
	}
	if leaf.SignatureAlgorithm != x509.SHA256WithRSA {
		return nil, errs.Err(errs.KindFidoU2FInvalidPublicKeyAlgorithm)
	}
	leafKey, ok := leaf.PublicKey.(*ecdsa.PublicKey)
	if !ok || leafKey.Curve != elliptic.P256() {
		return nil, errs.Err(errs.KindFidoU2FInvalidPublicKeyAlgorithm)
	}

	cred := in.AuthData.AttestedCredentialData
	ecKey, ok := cred.PublicKey.Public.(*ecdsa.PublicKey)
	if !ok {
		return nil, errs.Err(errs.KindFidoU2FInvalidPublicKeyAlgorithm)
	}
	pubKeyU2F := u2fPublicKeyBlob(ecKey)

	verificationData := make([]byte, 0, 1+32+32+len(cred.CredentialID)+len(pubKeyU2F))
	verificationData = append(verificationData, 0x00)
	verificationData = append(verificationData, in.AuthData.RPIDHash[:]...)
	verificationData = append(verificationData, in.ClientDataHash[:]...)
	verificationData = append(verificationData, cred.CredentialID...)
	verificationData = append(verificationData, pubKeyU2F...)

	leafCOSEKey := &cose.Key{Algorithm: cose.AlgES256, Public: leafKey}
	if err := leafCOSEKey.Verify(verificationData, stmt.Sig); err != nil {
		return nil, errs.Wrap(errs.KindFidoU2FInvalidSignature, err)
	}

	var meta *metadata.Statement
	if in.VerifyTrustRoot {
		// The ACKI is the SHA-1 of the certificate's raw subject public
		// key, i.e. the subjectPublicKey BIT STRING contents (for P-256,
		// the 65-byte uncompressed point), not the whole
		// SubjectPublicKeyInfo.
		acki := sha1.Sum(u2fPublicKeyBlob(leafKey))
		m, found := in.Metadata.ByACKI(acki)
		if !found {
			return nil, errs.Err(errs.KindFidoU2FRootTrustCertificateNotFound)
		}
		meta = m
	}

	typ := Uncertain
	if meta != nil {
		typ = typeFromMetadata(meta)
	}
	return &Result{Type: typ, TrustPath: stmt.X5C, Metadata: meta}, nil
}

// u2fPublicKeyBlob encodes an EC point as the uncompressed 0x04||x||y form
// U2F registration responses use.
func u2fPublicKeyBlob(k *ecdsa.PublicKey) []byte {
	x := k.X.Bytes()
	y := k.Y.Bytes()
	blob := make([]byte, 65)
	blob[0] = 0x04
	copy(blob[1+32-len(x):33], x)
	copy(blob[33+32-len(y):65], y)
	return blob
}
