// Package metadata provides a read-only lookup from AAGUID and
// attestation-certificate-key-identifier to metadata statements. The core
// never fetches or parses a FIDO metadata service blob itself; it only
// consumes whatever snapshot the caller (an external collaborator, per the
// purpose section) hands it.
package metadata

import (
	lru "github.com/hashicorp/golang-lru"
)

// AttestationType is one of the values a MetadataStatement can claim for
// its authenticators.
type AttestationType string

const (
	BasicFull AttestationType = "basic_full"
	ATTCA     AttestationType = "attca"
)

// Statement is the subset of a FIDO metadata statement the core consults.
// CapabilityDescriptors carries everything else (key_protection,
// user_verification_details, ...) unchanged for the caller to inspect.
type Statement struct {
	AAGUID                      [16]byte
	ACKI                        [20]byte
	AttestationRootCertificates [][]byte // DER
	AttestationTypes            []AttestationType
	CapabilityDescriptors       map[string]interface{}
}

// HasAttestationType reports whether t is among the statement's declared
// attestation types.
func (s *Statement) HasAttestationType(t AttestationType) bool {
	for _, got := range s.AttestationTypes {
		if got == t {
			return true
		}
	}
	return false
}

// Index is the read-only lookup contract C4 verifiers and the ceremony
// orchestrator use. Implementations must be safe for concurrent use by
// multiple ceremonies and must return a value that remains valid for the
// lifetime of the caller's ceremony — i.e. the returned *Statement (or a
// copy of it) is never mutated after a snapshot is published.
type Index interface {
	ByAAGUID(aaguid [16]byte) (*Statement, bool)
	ByACKI(acki [20]byte) (*Statement, bool)
}

// StaticIndex is an immutable, in-memory Index built once from a slice of
// statements and never mutated afterward, following a snapshot-swap model:
// the external metadata-refresh daemon builds a new StaticIndex and
// atomically swaps the pointer a caller holds, rather than mutating one in
// place.
type StaticIndex struct {
	byAAGUID map[[16]byte]*Statement
	byACKI   map[[20]byte]*Statement
}

// NewStaticIndex builds a StaticIndex from statements. Statements with a
// zero AAGUID or ACKI simply aren't indexed under that key.
func NewStaticIndex(statements []*Statement) *StaticIndex {
	idx := &StaticIndex{
		byAAGUID: make(map[[16]byte]*Statement),
		byACKI:   make(map[[20]byte]*Statement),
	}
	var zeroAAGUID [16]byte
	var zeroACKI [20]byte
	for _, s := range statements {
		if s.AAGUID != zeroAAGUID {
			idx.byAAGUID[s.AAGUID] = s
		}
		if s.ACKI != zeroACKI {
			idx.byACKI[s.ACKI] = s
		}
	}
	return idx
}

func (idx *StaticIndex) ByAAGUID(aaguid [16]byte) (*Statement, bool) {
	s, ok := idx.byAAGUID[aaguid]
	return s, ok
}

func (idx *StaticIndex) ByACKI(acki [20]byte) (*Statement, bool) {
	s, ok := idx.byACKI[acki]
	return s, ok
}

// CachingIndex wraps another Index with an LRU cache, so a large MDS3
// snapshot doesn't re-walk its backing store (a file, a remote service, …)
// on every lookup in a hot authentication path. Both hits and misses are
// cached; a Writers-never-block-readers refresh is done by constructing a
// new CachingIndex over the new snapshot and swapping the pointer a caller
// holds, never by mutating this one.
type CachingIndex struct {
	backing   Index
	aaguidLRU *lru.Cache
	ackiLRU   *lru.Cache
}

type cacheEntry struct {
	statement *Statement
	ok        bool
}

// NewCachingIndex wraps backing with two LRU caches of size entries each.
func NewCachingIndex(backing Index, size int) (*CachingIndex, error) {
	aaguidLRU, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	ackiLRU, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachingIndex{backing: backing, aaguidLRU: aaguidLRU, ackiLRU: ackiLRU}, nil
}

func (c *CachingIndex) ByAAGUID(aaguid [16]byte) (*Statement, bool) {
	if v, ok := c.aaguidLRU.Get(aaguid); ok {
		e := v.(cacheEntry)
		return e.statement, e.ok
	}
	s, ok := c.backing.ByAAGUID(aaguid)
	c.aaguidLRU.Add(aaguid, cacheEntry{s, ok})
	return s, ok
}

func (c *CachingIndex) ByACKI(acki [20]byte) (*Statement, bool) {
	if v, ok := c.ackiLRU.Get(acki); ok {
		e := v.(cacheEntry)
		return e.statement, e.ok
	}
	s, ok := c.backing.ByACKI(acki)
	c.ackiLRU.Add(acki, cacheEntry{s, ok})
	return s, ok
}
