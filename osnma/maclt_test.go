package osnma

import "testing"

func infoList(entries ...MackTagInfo) MackTagsAndInfo {
	return MackTagsAndInfo{InfoList: entries}
}

func TestVerifyTagInfoList_MACLT27_TOW0_Accepts(t *testing.T) {
	const svid = 11
	tags := infoList(
		MackTagInfo{PRND: 255, ADKD: 0}, // external
		MackTagInfo{PRND: 255, ADKD: 0},
		MackTagInfo{PRND: 255, ADKD: 0},
		MackTagInfo{PRND: svid, ADKD: 12}, // self
		MackTagInfo{PRND: 255, ADKD: 0},
	)
	if err := VerifyTagInfoList(27, tags, 0, svid); err != nil {
		t.Fatalf("expected a matching sequence to be accepted, got %v", err)
	}
}

func TestVerifyTagInfoList_RejectsWrongLength(t *testing.T) {
	const svid = 11
	tags := infoList(MackTagInfo{PRND: 255, ADKD: 0})
	if err := VerifyTagInfoList(27, tags, 0, svid); err == nil {
		t.Fatal("expected error for a tag list shorter than the MACLT sequence")
	}
}

func TestVerifyTagInfoList_RejectsWrongADKD(t *testing.T) {
	const svid = 11
	tags := infoList(
		MackTagInfo{PRND: 255, ADKD: 7}, // wrong ADKD, should be 0
		MackTagInfo{PRND: 255, ADKD: 0},
		MackTagInfo{PRND: 255, ADKD: 0},
		MackTagInfo{PRND: svid, ADKD: 12},
		MackTagInfo{PRND: 255, ADKD: 0},
	)
	if err := VerifyTagInfoList(27, tags, 0, svid); err == nil {
		t.Fatal("expected error for an ADKD mismatch")
	}
}

func TestVerifyTagInfoList_RejectsSelfExternalMismatch(t *testing.T) {
	const svid = 11
	tags := infoList(
		MackTagInfo{PRND: 255, ADKD: 0},
		MackTagInfo{PRND: 255, ADKD: 0},
		MackTagInfo{PRND: 255, ADKD: 0},
		MackTagInfo{PRND: 99, ADKD: 12}, // should be self (PRND==svid), isn't
		MackTagInfo{PRND: 255, ADKD: 0},
	)
	if err := VerifyTagInfoList(27, tags, 0, svid); err == nil {
		t.Fatal("expected error for a self/external mismatch")
	}
}

func TestVerifyTagInfoList_RejectsReservedMaclt(t *testing.T) {
	if err := VerifyTagInfoList(99, infoList(), 0, 1); err == nil {
		t.Fatal("expected error for a reserved MACLT value")
	}
}

func TestVerifyTagInfoList_RejectsNonSubframeBoundary(t *testing.T) {
	if err := VerifyTagInfoList(27, infoList(), 15, 1); err == nil {
		t.Fatal("expected error for tow not a multiple of 30")
	}
}
