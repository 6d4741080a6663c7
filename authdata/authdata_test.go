package authdata

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"testing"

	cbor "github.com/fxamacker/cbor/v2"
	"github.com/go-test/deep"
)

func buildMinimal(t *testing.T, flags byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	h := sha256.Sum256([]byte("example.com"))
	buf.Write(h[:])
	buf.WriteByte(flags)
	binary.Write(&buf, binary.BigEndian, uint32(7))
	return buf.Bytes()
}

func TestParseNoCredentialData(t *testing.T) {
	raw := buildMinimal(t, 1<<0)
	ad, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !ad.UserPresent {
		t.Error("UserPresent = false, want true")
	}
	if ad.UserVerified {
		t.Error("UserVerified = true, want false")
	}
	if ad.SignCount != 7 {
		t.Errorf("SignCount = %d, want 7", ad.SignCount)
	}
	if ad.AttestedCredentialData != nil {
		t.Error("AttestedCredentialData is non-nil with no credential-data flag")
	}
	if !bytes.Equal(ad.RawBytes, raw) {
		t.Error("RawBytes does not match the original input")
	}
}

func TestParseTooShort(t *testing.T) {
	if _, err := Parse(make([]byte, 36)); err == nil {
		t.Fatal("Parse succeeded on a 36-byte buffer (minimum is 37)")
	}
}

func TestParseTrailingBytesWithoutExtensionsFlagFails(t *testing.T) {
	raw := append(buildMinimal(t, 1<<0), 0x01, 0x02)
	if _, err := Parse(raw); err == nil {
		t.Fatal("Parse succeeded with trailing bytes and no extensions flag")
	}
}

func TestParseAttestedCredentialDataAndConsumesExactly(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	coseKey, err := cbor.Marshal(struct {
		KTY   int    `cbor:"1,keyasint"`
		ALG   int    `cbor:"3,keyasint"`
		Curve int    `cbor:"-1,keyasint"`
		X     []byte `cbor:"-2,keyasint"`
		Y     []byte `cbor:"-3,keyasint"`
	}{2, -7, 1, leftPad(priv.X.Bytes()), leftPad(priv.Y.Bytes())})
	if err != nil {
		t.Fatal(err)
	}

	raw := buildMinimal(t, 1<<0|1<<6)
	var aaguid [16]byte
	aaguid[0] = 0xAB
	raw = append(raw, aaguid[:]...)
	credID := []byte("abc123")
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(credID)))
	raw = append(raw, lenBuf[:]...)
	raw = append(raw, credID...)
	raw = append(raw, coseKey...)

	ad, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ad.AttestedCredentialData == nil {
		t.Fatal("AttestedCredentialData is nil")
	}
	if ad.AttestedCredentialData.AAGUID != aaguid {
		t.Errorf("AAGUID = %x, want %x", ad.AttestedCredentialData.AAGUID, aaguid)
	}
	if !bytes.Equal(ad.AttestedCredentialData.CredentialID, credID) {
		t.Errorf("CredentialID = %q, want %q", ad.AttestedCredentialData.CredentialID, credID)
	}
	if ad.ExtensionsPresent {
		t.Error("ExtensionsPresent = true, want false")
	}
}

func TestParseIdempotentOnItsOwnRawBytes(t *testing.T) {
	raw := buildMinimal(t, 1<<0)
	ad1, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	ad2, err := Parse(ad1.RawBytes)
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(ad1, ad2); diff != nil {
		t.Errorf("re-parsing RawBytes produced a different structure: %v", diff)
	}
}

func leftPad(b []byte) []byte {
	if len(b) >= 32 {
		return b
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}
