package metadata

import "testing"

func TestStaticIndexLookupByAAGUIDAndACKI(t *testing.T) {
	var aaguid [16]byte
	aaguid[0] = 0x01
	var acki [20]byte
	acki[0] = 0x02

	stmt := &Statement{AAGUID: aaguid, ACKI: acki, AttestationTypes: []AttestationType{BasicFull}}
	idx := NewStaticIndex([]*Statement{stmt})

	got, ok := idx.ByAAGUID(aaguid)
	if !ok || got != stmt {
		t.Errorf("ByAAGUID = %v, %v, want %v, true", got, ok, stmt)
	}
	got, ok = idx.ByACKI(acki)
	if !ok || got != stmt {
		t.Errorf("ByACKI = %v, %v, want %v, true", got, ok, stmt)
	}

	var otherAAGUID [16]byte
	otherAAGUID[0] = 0xFF
	if _, ok := idx.ByAAGUID(otherAAGUID); ok {
		t.Error("ByAAGUID found a statement for an unindexed AAGUID")
	}
}

func TestStatementHasAttestationType(t *testing.T) {
	s := &Statement{AttestationTypes: []AttestationType{BasicFull}}
	if !s.HasAttestationType(BasicFull) {
		t.Error("HasAttestationType(BasicFull) = false, want true")
	}
	if s.HasAttestationType(ATTCA) {
		t.Error("HasAttestationType(ATTCA) = true, want false")
	}
}

func TestCachingIndexCachesMisses(t *testing.T) {
	backing := NewStaticIndex(nil)
	cache, err := NewCachingIndex(backing, 16)
	if err != nil {
		t.Fatalf("NewCachingIndex: %v", err)
	}
	var aaguid [16]byte
	if _, ok := cache.ByAAGUID(aaguid); ok {
		t.Error("ByAAGUID found a result in an empty backing index")
	}
	// Second call should be served from the miss cache, still absent.
	if _, ok := cache.ByAAGUID(aaguid); ok {
		t.Error("cached ByAAGUID lookup returned a hit for an indexed miss")
	}
}

func TestCachingIndexServesBackingHits(t *testing.T) {
	var aaguid [16]byte
	aaguid[0] = 0x09
	stmt := &Statement{AAGUID: aaguid}
	cache, err := NewCachingIndex(NewStaticIndex([]*Statement{stmt}), 16)
	if err != nil {
		t.Fatalf("NewCachingIndex: %v", err)
	}
	got, ok := cache.ByAAGUID(aaguid)
	if !ok || got != stmt {
		t.Errorf("ByAAGUID = %v, %v, want %v, true", got, ok, stmt)
	}
}
