package attestation

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"strings"

	cb "github.com/fxamacker/cbor/v2"

	"github.com/passkit-go/webauthnrp/errs"
)

func init() {
	Register("android-safetynet", verifyAndroidSafetyNet)
}

type safetyNetStmt struct {
	Ver      string `cbor:"ver"`
	Response []byte `cbor:"response"`
}

type safetyNetHeader struct {
	X5C []string `json:"x5c"`
	Alg string   `json:"alg"`
}

type safetyNetPayload struct {
	Nonce           string `json:"nonce"`
	CTSProfileMatch bool   `json:"ctsProfileMatch"`
}

// globalSignRootR2PEM pins the root Google's SafetyNet attestation
// certificate chains are issued under.
const globalSignRootR2PEM = `-----BEGIN CERTIFICATE-----
MIIDujCCAqKgAwIBAgILBAAAAAABD4Ym5g0wDQYJKoZIhvcNAQEFBQAwTDEgMB4G
A1UECxMXR2xvYmFsU2lnbiBSb290IENBIC0gUjIxEzARBgNVBAoTCkdsb2JhbFNp
Z24xEzARBgNVBAMTCkdsb2JhbFNpZ24wHhcNMDYxMjE1MDgwMDAwWhcNMjExMjE1
MDgwMDAwWjBMMSAwHgYDVQQLExdHbG9iYWxTaWduIFJvb3QgQ0EgLSBSMjETMBEG
A1UEChMKR2xvYmFsU2lnbjETMBEGA1UEAxMKR2xvYmFsU2lnbjCCASIwDQYJKoZI
hvcNAQEBBQADggEPADCCAQoCggEBAKbPJA6+Lm8omUVCxKs+IVSbC9N/hHD6ErPL
v4dfxn+G07IwXNb9rfF73OX4YJYJkhD10FPe+3t+c4isUoh7SqbKSaZeqKeMWhG8
eoLrvozps6yWJQeXSpkqBy+0Hne/ig+1AnwblrjFuTosvNYSuetZfeLQBoZfXklq
tTleiDTsvHgMCJiEbKjNS7SgfQx5TfC4LcshytVsW33hoCmEofnTlEnLJGKRILzd
C9XZzPnqJworc5HGnRusyMvo4KD0L5CLTfuwNhv2GXqF4G3yYROIXJ/gkwpRl4pa
zq+r1feqCapgvdzZX99yqWATXgAByUr6P6TqBwMhAo6CygPCm48CAwEAAaOBnDCB
mTAOBgNVHQ8BAf8EBAMCAQYwDwYDVR0TAQH/BAUwAwEB/zAdBgNVHQ4EFgQUm+IH
V2ccHsBqBt5ZtJot39wZhi4wNgYDVR0fBC8wLTAroCmgJ4YlaHR0cDovL2NybC5n
bG9iYWxzaWduLm5ldC9yb290LXIyLmNybDAfBgNVHSMEGDAWgBSb4gdXZxwewGoG
3lm0mi3f3BmGLjANBgkqhkiG9w0BAQUFAAOCAQEAmYFThxxol4aR7OBKuEQLq4Gs
J0/WwbgcQ3izDJr86iw8bmEbTUsp9Z8FHSbBuOmDAGJFtqkIk7mpM0sYmsL4h4hO
291xNBrBVNpGP+DTKqttVCL1OmLNIG+6KYnX3ZHu01yiPqFbQfXf5WRDLenVOavS
ot+3i9DAgBkcRcAtjOj4LaR0VknFBbVPFd5uRHg5h6h+u/N5GJG79G+dwfCMNYxd
AfvDbbnvRG15RjF+Cv6pgsH/76tuIMRQyV+dTZsXjAzlAcmgQWpzU/qlULRuJQ/7
TBj0/VLZjmmx6BEP3ojY+x1J96relc8geMJgEtslQIxq/H5COEBkEveegeGTLg==
-----END CERTIFICATE-----`

func verifyAndroidSafetyNet(in *Input) (*Result, error) {
	var stmt safetyNetStmt
	if err := cb.Unmarshal(in.AttStmt, &stmt); err != nil {
		return nil, errs.Wrap(errs.KindInvalidCBOR, err)
	}

	parts := strings.Split(string(stmt.Response), ".")
	if len(parts) != 3 {
		return nil, errs.Err(errs.KindAndroidSafetyNetInvalidAttestationCert)
	}
	headerRaw, payloadRaw, sigRaw := parts[0], parts[1], parts[2]

	headerJSON, err := base64.RawURLEncoding.DecodeString(headerRaw)
	if err != nil {
		return nil, errs.Wrap(errs.KindAndroidSafetyNetInvalidAttestationCert, err)
	}
	var header safetyNetHeader
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, errs.Wrap(errs.KindAndroidSafetyNetInvalidAttestationCert, err)
	}

	payloadJSON, err := base64.RawURLEncoding.DecodeString(payloadRaw)
	if err != nil {
		return nil, errs.Wrap(errs.KindAndroidSafetyNetInvalidAttestationCert, err)
	}
	var payload safetyNetPayload
	if err := json.Unmarshal(payloadJSON, &payload); err != nil {
		return nil, errs.Wrap(errs.KindAndroidSafetyNetInvalidAttestationCert, err)
	}
	if !payload.CTSProfileMatch {
		return nil, errs.Err(errs.KindAndroidSafetyNetInvalidAttestationCert)
	}

	expectedNonce := sha256.Sum256(append(append([]byte{}, in.AuthData.RawBytes...), in.ClientDataHash[:]...))
	if payload.Nonce != base64.StdEncoding.EncodeToString(expectedNonce[:]) {
		return nil, errs.Err(errs.KindAndroidSafetyNetInvalidAttestationCert)
	}

	if len(header.X5C) == 0 {
		return nil, errs.Err(errs.KindAndroidSafetyNetInvalidAttestationCert)
	}
	leafDER, err := decodeCertB64(header.X5C[0])
	if err != nil {
		return nil, errs.Wrap(errs.KindAndroidSafetyNetInvalidAttestationCert, err)
	}
	leaf, err := x509.ParseCertificate(leafDER)
	if err != nil {
		return nil, errs.Wrap(errs.KindAndroidSafetyNetInvalidAttestationCert, err)
	}

	found := false
	for _, name := range leaf.DNSNames {
		if name == "attest.android.com" {
			found = true
			break
		}
	}
	if !found {
		return nil, errs.Err(errs.KindAndroidSafetyNetInvalidAttestationCert)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM([]byte(globalSignRootR2PEM)) {
		return nil, errs.Err(errs.KindNoAttestationRootCertificateFound)
	}
	intermediates := x509.NewCertPool()
	for _, b64 := range header.X5C[1:] {
		if der, err := decodeCertB64(b64); err == nil {
			if c, err := x509.ParseCertificate(der); err == nil {
				intermediates.AddCert(c)
			}
		}
	}
	if _, err := leaf.Verify(x509.VerifyOptions{Roots: pool, Intermediates: intermediates, CurrentTime: leaf.NotBefore}); err != nil {
		return nil, errs.Wrap(errs.KindAndroidSafetyNetInvalidAttestationCert, err)
	}

	signedInput := []byte(headerRaw + "." + payloadRaw)
	sig, err := base64.RawURLEncoding.DecodeString(sigRaw)
	if err != nil {
		return nil, errs.Wrap(errs.KindAndroidSafetyNetInvalidSignature, err)
	}
	if err := leaf.CheckSignature(leaf.SignatureAlgorithm, signedInput, sig); err != nil {
		return nil, errs.Wrap(errs.KindAndroidSafetyNetInvalidSignature, err)
	}

	return &Result{Type: Basic, TrustPath: [][]byte{leafDER}}, nil
}

// decodeCertB64 accepts either standard or raw (unpadded) base64, since JWS
// x5c entries are conventionally standard base64 but some encoders omit
// padding.
func decodeCertB64(s string) ([]byte, error) {
	if der, err := base64.StdEncoding.DecodeString(s); err == nil {
		return der, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
