// Package cbor decodes the attestation object, the minimal CBOR profile
// actually produced by authenticators: unsigned/negative integers, byte
// strings, text strings, arrays, maps, and simple values, including
// indefinite-length encodings. github.com/fxamacker/cbor/v2 already
// implements that profile (and accepts indefinite-length items on decode),
// so this package is a thin, strongly-typed front end over it rather than a
// second decoder.
package cbor

import (
	"fmt"

	cbor "github.com/fxamacker/cbor/v2"
)

// AttestationObject holds the three top-level fields of a CBOR attestation
// object, with attStmt left undecoded: its shape depends on fmt, and only
// the matching attestation verifier knows how to parse it.
type AttestationObject struct {
	Format      string          `cbor:"fmt"`
	AttStmt     cbor.RawMessage `cbor:"attStmt"`
	RawAuthData []byte          `cbor:"authData"`
}

// DecodeAttestationObject parses the CBOR attestation object produced by
// navigator.credentials.create().
func DecodeAttestationObject(b []byte) (*AttestationObject, error) {
	var obj AttestationObject
	if err := cbor.Unmarshal(b, &obj); err != nil {
		return nil, fmt.Errorf("invalid cbor: %w", err)
	}
	if obj.Format == "" {
		return nil, fmt.Errorf("invalid cbor: missing fmt")
	}
	if len(obj.RawAuthData) == 0 {
		return nil, fmt.Errorf("invalid cbor: missing authData")
	}
	return &obj, nil
}

// DecodeAttStmt decodes the raw attStmt map into dst, a format-specific
// struct or map[string]interface{}.
func DecodeAttStmt(raw cbor.RawMessage, dst interface{}) error {
	if err := cbor.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid cbor: %w", err)
	}
	return nil
}

// RawMessage re-exports cbor.RawMessage so callers outside this package
// never need to import fxamacker/cbor directly to hold an undecoded attStmt.
type RawMessage = cbor.RawMessage

// Unmarshal re-exports cbor.Unmarshal for the challenge package's session
// serialization, so it doesn't need its own import of fxamacker/cbor.
func Unmarshal(b []byte, v interface{}) error {
	if err := cbor.Unmarshal(b, v); err != nil {
		return fmt.Errorf("invalid cbor: %w", err)
	}
	return nil
}

// Marshal re-exports cbor.Marshal, used by the challenge serializer.
func Marshal(v interface{}) ([]byte, error) {
	return cbor.Marshal(v)
}
