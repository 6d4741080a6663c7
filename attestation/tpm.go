package attestation

import (
	cb "github.com/fxamacker/cbor/v2"

	"github.com/passkit-go/webauthnrp/errs"
)

func init() {
	Register("tpm", verifyTPM)
}

// tpmStmt mirrors the statement shape the TPM attestation format registry
// defines: ver, alg, x5c/ecdaaKeyId, sig, certInfo, pubArea. Nothing here
// decodes TPMT_PUBLIC or TPMS_ATTEST; the format is registered so dispatch
// recognizes "tpm" rather than failing unsupported_attestation_format, but
// verification itself is not implemented.
type tpmStmt struct {
	Ver        string   `cbor:"ver"`
	Alg        int64    `cbor:"alg"`
	X5C        [][]byte `cbor:"x5c,omitempty"`
	ECDAAKeyID []byte   `cbor:"ecdaaKeyId,omitempty"`
	Sig        []byte   `cbor:"sig"`
	CertInfo   []byte   `cbor:"certInfo"`
	PubArea    []byte   `cbor:"pubArea"`
}

func verifyTPM(in *Input) (*Result, error) {
	var stmt tpmStmt
	if err := cb.Unmarshal(in.AttStmt, &stmt); err != nil {
		return nil, errs.Wrap(errs.KindInvalidCBOR, err)
	}
	return nil, errs.Err(errs.KindTPMUnimplemented)
}
