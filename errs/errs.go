// Package errs holds the tagged-Kind error type shared by the root package
// and every attestation verifier, kept in its own leaf package so that
// attestation, which must construct these values, never has to import the
// root package back.
package errs

import "fmt"

// Kind classifies a ceremony failure by cause, never by Go type, so callers
// can make a single switch/errors.Is decision instead of type-asserting
// their way through the call stack.
type Kind string

const (
	// Malformed input.
	KindInvalidCBOR              Kind = "invalid_cbor"
	KindInvalidAuthenticatorData Kind = "invalid_authenticator_data"
	KindInvalidClientDataJSON    Kind = "invalid_client_data_json"
	KindInvalidCOSEKey           Kind = "invalid_cose_key"

	// Policy mismatch.
	KindAttestationInvalidType   Kind = "attestation_invalid_type"
	KindInvalidChallenge         Kind = "invalid_challenge"
	KindAttestationInvalidOrigin Kind = "attestation_invalid_origin"
	KindInvalidRPID              Kind = "invalid_rp_id"
	KindFlagUserPresentNotSet    Kind = "flag_user_present_not_set"
	KindUserNotVerified          Kind = "user_not_verified"
	KindUntrustedAttestationType Kind = "untrusted_attestation_type"

	// Cryptographic failure.
	KindInvalidSignature Kind = "invalid_signature"

	// Cryptographic failure (per attestation format).
	KindPackedInvalidSignature                 Kind = "attestation_packed_invalid_signature"
	KindPackedInvalidAttestationCert           Kind = "attestation_packed_invalid_attestation_cert"
	KindPackedInvalidPublicKeyAlgorithm        Kind = "attestation_packed_invalid_public_key_algorithm"
	KindFidoU2FInvalidSignature                Kind = "attestation_fido-u2f_invalid_signature"
	KindFidoU2FInvalidAttestationCert          Kind = "attestation_fido-u2f_invalid_attestation_cert"
	KindFidoU2FInvalidPublicKeyAlgorithm       Kind = "attestation_fido-u2f_invalid_public_key_algorithm"
	KindAndroidSafetyNetInvalidSignature       Kind = "attestation_android-safetynet_invalid_signature"
	KindAndroidSafetyNetInvalidAttestationCert Kind = "attestation_android-safetynet_invalid_attestation_cert"

	// Trust-anchor failure.
	KindPackedRootTrustCertificateNotFound  Kind = "attestation_packed_root_trust_certificate_not_found"
	KindFidoU2FRootTrustCertificateNotFound Kind = "attestation_fido-u2f_root_trust_certificate_not_found"
	KindNoAttestationMetadataStatementFound Kind = "no_attestation_metadata_statement_found"
	KindNoAttestationRootCertificateFound   Kind = "no_attestation_root_certificate_found"

	// Lookup failure.
	KindIncorrectCredentialIDForUser Kind = "incorrect_credential_id_for_user"

	// Unsupported.
	KindUnsupportedAttestationFormat Kind = "unsupported_attestation_format"
	KindPackedUnimplemented          Kind = "attestation_packed_unimplemented"
	KindTPMUnimplemented             Kind = "attestation_tpm_unimplemented"
)

// Error is the single tagged-value error type returned by the Register and
// Authenticate ceremonies and by every attestation verifier; the lower-level
// parsers (authdata, cbor, clientdata, cose) return plain errors, which the
// ceremonies wrap in an Error. Kind is stable API; Err, when present, is the
// lower-level cause (a CBOR parse error, an x509 error, etc.) and is
// reachable via errors.Unwrap/errors.As.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, errs.Err(errs.KindInvalidChallenge)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Err == nil && t.Kind == e.Kind
}

// Err returns a sentinel *Error of the given kind, suitable for use with
// errors.Is.
func Err(k Kind) *Error {
	return &Error{Kind: k}
}

// Wrap builds an *Error with a cause.
func Wrap(k Kind, err error) *Error {
	return &Error{Kind: k, Err: err}
}
