package webauthnrp

import "github.com/passkit-go/webauthnrp/errs"

// Kind classifies a ceremony failure by cause, never by Go type, so callers
// can make a single switch/errors.Is decision instead of type-asserting
// their way through the call stack. It lives in errs so that the
// attestation package, which must construct these same values, never has to
// import this package back.
type Kind = errs.Kind

// Error is the single tagged-value error type returned by the Register and
// Authenticate ceremonies and by every attestation verifier; the lower-level
// parsers (authdata, cbor, clientdata, cose) return plain errors, which the
// ceremonies wrap in an Error. Kind is stable API; Err, when present, is the
// lower-level cause (a CBOR parse error, an x509 error, etc.) and is
// reachable via errors.Unwrap/errors.As.
type Error = errs.Error

const (
	// Malformed input.
	KindInvalidCBOR              = errs.KindInvalidCBOR
	KindInvalidAuthenticatorData = errs.KindInvalidAuthenticatorData
	KindInvalidClientDataJSON    = errs.KindInvalidClientDataJSON
	KindInvalidCOSEKey           = errs.KindInvalidCOSEKey

	// Policy mismatch.
	KindAttestationInvalidType   = errs.KindAttestationInvalidType
	KindInvalidChallenge         = errs.KindInvalidChallenge
	KindAttestationInvalidOrigin = errs.KindAttestationInvalidOrigin
	KindInvalidRPID              = errs.KindInvalidRPID
	KindFlagUserPresentNotSet    = errs.KindFlagUserPresentNotSet
	KindUserNotVerified          = errs.KindUserNotVerified
	KindUntrustedAttestationType = errs.KindUntrustedAttestationType

	// Cryptographic failure.
	KindInvalidSignature = errs.KindInvalidSignature

	// Cryptographic failure (per attestation format).
	KindPackedInvalidSignature                 = errs.KindPackedInvalidSignature
	KindPackedInvalidAttestationCert           = errs.KindPackedInvalidAttestationCert
	KindPackedInvalidPublicKeyAlgorithm        = errs.KindPackedInvalidPublicKeyAlgorithm
	KindFidoU2FInvalidSignature                = errs.KindFidoU2FInvalidSignature
	KindFidoU2FInvalidAttestationCert          = errs.KindFidoU2FInvalidAttestationCert
	KindFidoU2FInvalidPublicKeyAlgorithm       = errs.KindFidoU2FInvalidPublicKeyAlgorithm
	KindAndroidSafetyNetInvalidSignature       = errs.KindAndroidSafetyNetInvalidSignature
	KindAndroidSafetyNetInvalidAttestationCert = errs.KindAndroidSafetyNetInvalidAttestationCert

	// Trust-anchor failure.
	KindPackedRootTrustCertificateNotFound  = errs.KindPackedRootTrustCertificateNotFound
	KindFidoU2FRootTrustCertificateNotFound = errs.KindFidoU2FRootTrustCertificateNotFound
	KindNoAttestationMetadataStatementFound = errs.KindNoAttestationMetadataStatementFound
	KindNoAttestationRootCertificateFound   = errs.KindNoAttestationRootCertificateFound

	// Lookup failure.
	KindIncorrectCredentialIDForUser = errs.KindIncorrectCredentialIDForUser

	// Unsupported.
	KindUnsupportedAttestationFormat = errs.KindUnsupportedAttestationFormat
	KindPackedUnimplemented          = errs.KindPackedUnimplemented
	KindTPMUnimplemented             = errs.KindTPMUnimplemented
)

// Err returns a sentinel *Error of the given kind, suitable for use with
// errors.Is.
func Err(k Kind) *Error {
	return errs.Err(k)
}

// wrap builds an *Error with a cause.
func wrap(k Kind, err error) *Error {
	return errs.Wrap(k, err)
}
