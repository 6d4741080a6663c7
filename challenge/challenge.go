// Package challenge builds the immutable Challenge record a ceremony is
// checked against. A Challenge is constructed once, by NewRegistration or
// NewAuthentication, which return a *Challenge; Register and Authenticate
// take that pointer and only read through it. The type itself does not
// stop a holder of the pointer from modifying its fields.
package challenge

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/passkit-go/webauthnrp/attestation"
	"github.com/passkit-go/webauthnrp/cbor"
	"github.com/passkit-go/webauthnrp/cose"
	"github.com/passkit-go/webauthnrp/errs"
)

// AllowedCredential is one credential a returning user may authenticate
// with, as previously persisted by the caller at registration time.
type AllowedCredential struct {
	ID        []byte
	PublicKey *cose.Key
}

// Challenge is the per-ceremony record every orchestrator step checks
// inputs against; the ceremonies read it and never modify it.
type Challenge struct {
	Bytes                   [32]byte
	Origin                  string
	RPID                    string
	UserVerifiedRequired    bool
	TrustedAttestationTypes map[attestation.Type]bool
	VerifyTrustRoot         bool
	AllowCredentials        []AllowedCredential
	TokenBindingStatus      *string
	Expiry                  *time.Time
}

// allAttestationTypes is the default trusted_attestation_types value: every
// type this library knows how to produce.
var allAttestationTypes = map[attestation.Type]bool{
	attestation.None:      true,
	attestation.Basic:     true,
	attestation.Self:      true,
	attestation.ATTCA:     true,
	attestation.Uncertain: true,
}

// Config is the process-wide configuration source challenge generation
// resolves against, mirroring how a caller composes server-wide defaults
// before constructing a request-scoped value. Resolution order is always
// caller-provided option > DefaultConfig > hard default.
type Config struct {
	Origin                  string
	RPID                    string // "auto" replaces with the origin host
	UserVerifiedRequired    *bool
	VerifyTrustRoot         *bool
	TrustedAttestationTypes map[attestation.Type]bool
}

// DefaultConfig is the process-wide configuration consulted by NewRegistration
// and NewAuthentication when the caller leaves an Options field unset. A
// caller that wants every ceremony in the process to share a default origin
// or rp_id sets fields on this value once at startup.
var DefaultConfig Config

// Options are the per-call, caller-provided overrides. A nil/zero field
// means "fall through to DefaultConfig, then to the hard default".
type Options struct {
	Origin                  string
	RPID                    string
	UserVerifiedRequired    *bool
	VerifyTrustRoot         *bool
	TrustedAttestationTypes map[attestation.Type]bool
	Expiry                  *time.Time
	TokenBindingStatus      *string
}

func resolveString(caller, config string) string {
	if caller != "" {
		return caller
	}
	return config
}

func resolveBool(caller, config *bool, def bool) bool {
	if caller != nil {
		return *caller
	}
	if config != nil {
		return *config
	}
	return def
}

func resolveAttestationTypes(caller, config map[attestation.Type]bool) map[attestation.Type]bool {
	if caller != nil {
		return caller
	}
	if config != nil {
		return config
	}
	out := make(map[attestation.Type]bool, len(allAttestationTypes))
	for k, v := range allAttestationTypes {
		out[k] = v
	}
	return out
}

// validateOrigin requires origin to be present and either https or the
// hostname localhost.
func validateOrigin(origin string) error {
	if origin == "" {
		return errs.Err(errs.KindAttestationInvalidOrigin)
	}
	if strings.HasPrefix(origin, "https://") {
		return nil
	}
	host := origin
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	host = strings.SplitN(host, ":", 2)[0]
	host = strings.SplitN(host, "/", 2)[0]
	if host == "localhost" {
		return nil
	}
	return errs.Err(errs.KindAttestationInvalidOrigin)
}

func originHost(origin string) string {
	host := origin
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	host = strings.SplitN(host, ":", 2)[0]
	return strings.SplitN(host, "/", 2)[0]
}

func resolveRPID(caller, config, origin string) (string, error) {
	rpID := resolveString(caller, config)
	if rpID == "" || rpID == "auto" {
		rpID = originHost(origin)
	}
	if rpID == "" {
		return "", errs.Err(errs.KindInvalidRPID)
	}
	return rpID, nil
}

func randomBytes32() ([32]byte, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return b, fmt.Errorf("reading random challenge bytes: %w", err)
	}
	return b, nil
}

// NewRegistration resolves opts against DefaultConfig and hard defaults,
// draws 32 random bytes, and builds a Challenge for a registration
// ceremony.
func NewRegistration(opts Options) (*Challenge, error) {
	origin := resolveString(opts.Origin, DefaultConfig.Origin)
	if err := validateOrigin(origin); err != nil {
		return nil, err
	}
	rpID, err := resolveRPID(opts.RPID, DefaultConfig.RPID, origin)
	if err != nil {
		return nil, err
	}
	bytes, err := randomBytes32()
	if err != nil {
		return nil, err
	}
	return &Challenge{
		Bytes:                   bytes,
		Origin:                  origin,
		RPID:                    rpID,
		UserVerifiedRequired:    resolveBool(opts.UserVerifiedRequired, DefaultConfig.UserVerifiedRequired, false),
		TrustedAttestationTypes: resolveAttestationTypes(opts.TrustedAttestationTypes, DefaultConfig.TrustedAttestationTypes),
		VerifyTrustRoot:         resolveBool(opts.VerifyTrustRoot, DefaultConfig.VerifyTrustRoot, true),
		TokenBindingStatus:      opts.TokenBindingStatus,
		Expiry:                  opts.Expiry,
	}, nil
}

// NewAuthentication resolves opts the same way as NewRegistration and
// additionally freezes the set of credentials the user may authenticate
// with.
func NewAuthentication(allowCredentials []AllowedCredential, opts Options) (*Challenge, error) {
	c, err := NewRegistration(opts)
	if err != nil {
		return nil, err
	}
	c.AllowCredentials = append([]AllowedCredential(nil), allowCredentials...)
	return c, nil
}

type wireCredential struct {
	ID  []byte `cbor:"id"`
	Key []byte `cbor:"key"`
}

type wireChallenge struct {
	Bytes                   [32]byte           `cbor:"bytes"`
	Origin                  string             `cbor:"origin"`
	RPID                    string             `cbor:"rpId"`
	UserVerifiedRequired    bool               `cbor:"userVerifiedRequired"`
	TrustedAttestationTypes []attestation.Type `cbor:"trustedAttestationTypes"`
	VerifyTrustRoot         bool               `cbor:"verifyTrustRoot"`
	AllowCredentials        []wireCredential   `cbor:"allowCredentials,omitempty"`
	TokenBindingStatus      *string            `cbor:"tokenBindingStatus,omitempty"`
	Expiry                  *time.Time         `cbor:"exp,omitempty"`
}

// MarshalBinary encodes the Challenge so a caller can stash it opaquely in
// a session store between handing the challenge to the browser and
// verifying the browser's response. Credential public keys travel as the
// raw COSE bytes they were parsed from.
func (c *Challenge) MarshalBinary() ([]byte, error) {
	w := wireChallenge{
		Bytes:                c.Bytes,
		Origin:               c.Origin,
		RPID:                 c.RPID,
		UserVerifiedRequired: c.UserVerifiedRequired,
		VerifyTrustRoot:      c.VerifyTrustRoot,
		TokenBindingStatus:   c.TokenBindingStatus,
		Expiry:               c.Expiry,
	}
	for typ, ok := range c.TrustedAttestationTypes {
		if ok {
			w.TrustedAttestationTypes = append(w.TrustedAttestationTypes, typ)
		}
	}
	sort.Slice(w.TrustedAttestationTypes, func(i, j int) bool {
		return w.TrustedAttestationTypes[i] < w.TrustedAttestationTypes[j]
	})
	for _, cred := range c.AllowCredentials {
		if cred.PublicKey == nil || len(cred.PublicKey.Raw) == 0 {
			return nil, errors.New("allowed credential public key has no raw COSE encoding")
		}
		w.AllowCredentials = append(w.AllowCredentials, wireCredential{ID: cred.ID, Key: cred.PublicKey.Raw})
	}
	return cbor.Marshal(w)
}

// UnmarshalBinary decodes a Challenge produced by MarshalBinary.
func (c *Challenge) UnmarshalBinary(b []byte) error {
	var w wireChallenge
	if err := cbor.Unmarshal(b, &w); err != nil {
		return err
	}
	out := Challenge{
		Bytes:                   w.Bytes,
		Origin:                  w.Origin,
		RPID:                    w.RPID,
		UserVerifiedRequired:    w.UserVerifiedRequired,
		TrustedAttestationTypes: make(map[attestation.Type]bool, len(w.TrustedAttestationTypes)),
		VerifyTrustRoot:         w.VerifyTrustRoot,
		TokenBindingStatus:      w.TokenBindingStatus,
		Expiry:                  w.Expiry,
	}
	for _, typ := range w.TrustedAttestationTypes {
		out.TrustedAttestationTypes[typ] = true
	}
	for _, cred := range w.AllowCredentials {
		key, _, err := cose.ParseKey(cred.Key)
		if err != nil {
			return errs.Wrap(errs.KindInvalidCOSEKey, err)
		}
		out.AllowCredentials = append(out.AllowCredentials, AllowedCredential{ID: cred.ID, PublicKey: key})
	}
	*c = out
	return nil
}
