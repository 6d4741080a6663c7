package attestation

import (
	"errors"

	cb "github.com/fxamacker/cbor/v2"

	"github.com/passkit-go/webauthnrp/errs"
)

func init() {
	Register("none", verifyNone)
}

// verifyNone accepts only an empty statement map.
func verifyNone(in *Input) (*Result, error) {
	if len(in.AttStmt) != 0 {
		var m map[string]cb.RawMessage
		if err := cb.Unmarshal(in.AttStmt, &m); err != nil {
			return nil, errs.Wrap(errs.KindInvalidCBOR, err)
		}
		if len(m) != 0 {
			return nil, errs.Wrap(errs.KindInvalidCBOR, errNoneNotEmpty)
		}
	}
	return &Result{Type: None}, nil
}

var errNoneNotEmpty = errors.New("none attestation statement must be an empty map")
