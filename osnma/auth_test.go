package osnma

import (
	"crypto/hmac"
	"crypto/sha256"
	"testing"

	"osnma/bitfield"
	"osnma/gst"
)

func mustGST(t *testing.T, wn, tow int) gst.GST {
	t.Helper()
	g, err := gst.New(wn, tow)
	if err != nil {
		t.Fatalf("gst.New: %v", err)
	}
	return g
}

func TestCreateAuthMsg_Tag0OmitsPRND(t *testing.T) {
	header := NmaHeader{Raw: bitfield.FromUint(0b10_01_010_0, 8)} // nmas=10(operational), cid=01
	g := mustGST(t, 1174, 28800)
	authData := bitfield.FromUint(0xABCD, 16)

	msg := CreateAuthMsg(authData, 11, 3, g, 0, header)
	// PRNA(8) + GST(32) + CTR(8) + NMAS(2) + authdata(16) = 66, padded to 72
	if msg.Len() != 72 {
		t.Fatalf("tag0 message length = %d, want 72", msg.Len())
	}
	if msg.Slice(0, 8).Uint64() != 3 {
		t.Errorf("tag0 message must start with PRNA, got %d", msg.Slice(0, 8).Uint64())
	}
}

func TestCreateAuthMsg_OtherTagsIncludePRND(t *testing.T) {
	header := NmaHeader{Raw: bitfield.FromUint(0b10_01_010_0, 8)}
	g := mustGST(t, 1174, 28800)
	authData := bitfield.FromUint(0xABCD, 16)

	msg := CreateAuthMsg(authData, 11, 3, g, 1, header)
	// PRND(8) + PRNA(8) + GST(32) + CTR(8) + NMAS(2) + authdata(16) = 74, padded to 80
	if msg.Len() != 80 {
		t.Fatalf("message length = %d, want 80", msg.Len())
	}
	if msg.Slice(0, 8).Uint64() != 11 {
		t.Errorf("expected PRND first, got %d", msg.Slice(0, 8).Uint64())
	}
	if msg.Slice(8, 16).Uint64() != 3 {
		t.Errorf("expected PRNA second, got %d", msg.Slice(8, 16).Uint64())
	}
}

func TestCreateAuthMsg_ADKD4UsesPRNAInPlaceOfPRND(t *testing.T) {
	header := NmaHeader{Raw: bitfield.Zeros(8)}
	g := mustGST(t, 1174, 28800)
	authData := bitfield.Zeros(8)

	msg := CreateAuthMsg(authData, 255, 7, g, 2, header)
	if msg.Slice(0, 8).Uint64() != 7 {
		t.Errorf("ADKD=4 message should substitute PRNA for PRND, got %d", msg.Slice(0, 8).Uint64())
	}
}

func TestVerifyTag_AcceptsCorrectTag(t *testing.T) {
	header := NmaHeader{Raw: bitfield.FromUint(0b10_01_010_0, 8)}
	g := mustGST(t, 1174, 28800)
	key := bitfield.FromUint(0x0102030405, 40)
	navData := bitfield.FromUint(0xDEADBEEF, 32)

	msg := CreateAuthMsg(navData, 11, 3, g, 0, header)
	mac := hmac.New(sha256.New, key.Bytes())
	mac.Write(msg.Bytes())
	tag := bitfield.FromBytes(mac.Sum(nil)).Slice(0, 20) // TS=20 bits, not byte-aligned

	attempt := VerifyTag(tag, key, navData, g, header, 0, 11, 3, 0)
	if !attempt.IsOK() {
		t.Errorf("expected tag to verify, got outcome %s", attempt.Outcome)
	}
}

func TestVerifyTag_RejectsTamperedTag(t *testing.T) {
	header := NmaHeader{Raw: bitfield.FromUint(0b10_01_010_0, 8)}
	g := mustGST(t, 1174, 28800)
	key := bitfield.FromUint(0x0102030405, 40)
	navData := bitfield.FromUint(0xDEADBEEF, 32)

	msg := CreateAuthMsg(navData, 11, 3, g, 0, header)
	mac := hmac.New(sha256.New, key.Bytes())
	mac.Write(msg.Bytes())
	tag := bitfield.FromBytes(mac.Sum(nil)).Slice(0, 20)
	tampered := bitfield.FromUint(tag.Uint64()^1, 20)

	attempt := VerifyTag(tampered, key, navData, g, header, 0, 11, 3, 0)
	if attempt.IsOK() {
		t.Error("expected tampered tag to be rejected")
	}
}

func TestAuthOutcome_IsOK(t *testing.T) {
	ok := []AuthOutcome{OutcomeOK, OutcomeOKWithOldNavData, OutcomeOKWithIncompleteSubframe}
	bad := []AuthOutcome{OutcomeInvalidTag, OutcomeInvalidTagWithOldNavData, OutcomeInvalidTagWithIncompleteSub}
	for _, o := range ok {
		if !o.IsOK() {
			t.Errorf("%s should be OK", o)
		}
	}
	for _, o := range bad {
		if o.IsOK() {
			t.Errorf("%s should not be OK", o)
		}
	}
}
