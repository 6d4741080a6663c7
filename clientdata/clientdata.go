// Package clientdata decodes the clientDataJSON blob the browser signs over.
//
// https://www.w3.org/TR/webauthn-3/#dictionary-client-data
package clientdata

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Type is the WebAuthn ceremony the client data was produced for.
type Type int

const (
	Unknown Type = iota
	Create
	Get
)

// ClientData is the subset of clientDataJSON this library cares about.
// Unknown JSON members (crossOrigin, topOrigin, ...) are ignored on
// purpose rather than rejected.
type ClientData struct {
	Type      Type
	Challenge []byte
	Origin    string

	// TokenBinding is the optional token-binding status the browser
	// reported. Reserved: the orchestrator accepts any value today.
	TokenBinding *string

	// Raw is the exact JSON bytes this value was parsed from. The hash of
	// Raw, not a re-marshaled form, is what every signature covers.
	Raw []byte
}

type wireClientData struct {
	Type         string `json:"type"`
	Challenge    string `json:"challenge"`
	Origin       string `json:"origin"`
	TokenBinding *struct {
		Status string `json:"status"`
	} `json:"tokenBinding,omitempty"`
}

// Parse decodes raw JSON bytes into a ClientData value. It never
// normalizes whitespace or re-encodes raw: Hash(raw) is computed directly
// from the bytes passed in.
func Parse(raw []byte) (*ClientData, error) {
	var w wireClientData
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("invalid client data json: %w", err)
	}

	cd := &ClientData{Origin: w.Origin, Raw: raw}

	switch w.Type {
	case "webauthn.create":
		cd.Type = Create
	case "webauthn.get":
		cd.Type = Get
	default:
		return nil, fmt.Errorf("invalid client data json: unrecognized type %q", w.Type)
	}

	challenge, err := base64.RawURLEncoding.DecodeString(w.Challenge)
	if err != nil {
		return nil, fmt.Errorf("invalid client data json: bad challenge encoding: %w", err)
	}
	cd.Challenge = challenge

	if w.TokenBinding != nil {
		cd.TokenBinding = &w.TokenBinding.Status
	}
	return cd, nil
}

// Hash returns SHA-256(raw), the client data hash every registration and
// authentication signature covers.
func Hash(raw []byte) [32]byte {
	return sha256.Sum256(raw)
}
