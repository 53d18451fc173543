package osnma

import (
	"testing"

	"osnma/bitfield"
)

// validHeaderByte is NMAS=operational, CID=0, CPKS=nominal, reserved=0.
func validHeaderByte() bitfield.Field {
	return bitfield.FromUint(uint64(NMAOperational), 2).
		Concat(bitfield.FromUint(0, 2)).
		Concat(bitfield.FromUint(uint64(CPKSNominal), 3)).
		Concat(bitfield.Zeros(1))
}

// buildKrootMessage returns a 728-bit DSM-KROOT message (NBDK=1 -> 7
// blocks, KS=112 so that 104+112+512 == 7*104).
func buildKrootMessage() bitfield.Field {
	nbdk := bitfield.FromUint(1, 4)
	pkid := bitfield.FromUint(3, 4)
	cidkr := bitfield.FromUint(1, 2)
	reserved1 := bitfield.Zeros(2)
	hf := bitfield.FromUint(0, 2)
	mf := bitfield.FromUint(0, 2)
	ks := bitfield.FromUint(2, 4)  // code 2 -> 112 bits
	ts := bitfield.FromUint(8, 4)  // code 8 -> 32 bits
	maclt := bitfield.FromUint(27, 8)
	reserved2 := bitfield.Zeros(4)
	wnk := bitfield.FromUint(1174, 12)
	towhk := bitfield.FromUint(10, 8)
	alpha := bitfield.Zeros(48)
	rootKey := bitfield.FromUint(0x0102030405060708, 64).Concat(bitfield.FromUint(0x0910, 16)).Concat(bitfield.Zeros(32))
	sig := bitfield.Zeros(512)

	msg := nbdk.Concat(pkid).Concat(cidkr).Concat(reserved1).Concat(hf).Concat(mf).
		Concat(ks).Concat(ts).Concat(maclt).Concat(reserved2).
		Concat(wnk).Concat(towhk).Concat(alpha).Concat(rootKey).Concat(sig)
	if msg.Len() != 728 {
		panic("test fixture: kroot message is not 728 bits")
	}
	return msg
}

// splitIntoBlocks cuts msg into chunkBits-sized pieces, framed as HKROOT
// fields with the given DSM type codepoint (0 for KROOT, 12 for PKR).
func splitIntoBlocks(msg bitfield.Field, chunkBits, dsmTypeCode int) []bitfield.Field {
	n := msg.Len() / chunkBits
	blocks := make([]bitfield.Field, n)
	for i := 0; i < n; i++ {
		payload := msg.Slice(i*chunkBits, (i+1)*chunkBits)
		dsmHeader := bitfield.FromUint(uint64(dsmTypeCode), 4).Concat(bitfield.FromUint(uint64(i), 4))
		blocks[i] = validHeaderByte().Concat(dsmHeader).Concat(payload)
	}
	return blocks
}

func TestDsmReassembler_KrootOutOfOrderBlocks(t *testing.T) {
	msg := buildKrootMessage()
	blocks := splitIntoBlocks(msg, 104, 0)

	order := []int{0, 2, 1, 4, 3, 6, 5}
	r := NewDsmReassembler()

	var result DsmResult
	var ok bool
	var err error
	for _, idx := range order {
		result, ok, err = r.HandleBlock(blocks[idx], false, false, 0, false)
		if err != nil {
			t.Fatalf("HandleBlock: %v", err)
		}
	}
	if !ok {
		t.Fatal("expected reassembly to complete after the last block")
	}
	if result.Type != DsmKroot {
		t.Fatalf("result type = %v, want DsmKroot", result.Type)
	}
	if result.Kroot.KeySize != 112 {
		t.Errorf("KeySize = %d, want 112", result.Kroot.KeySize)
	}
	if result.Kroot.TagSize != 32 {
		t.Errorf("TagSize = %d, want 32", result.Kroot.TagSize)
	}
	if result.Kroot.MacLT != 27 {
		t.Errorf("MacLT = %d, want 27", result.Kroot.MacLT)
	}
	if result.Kroot.WNK != 1174 || result.Kroot.TOWHK != 10 {
		t.Errorf("WNK/TOWHK = %d/%d, want 1174/10", result.Kroot.WNK, result.Kroot.TOWHK)
	}
}

func TestDsmReassembler_OutOfRangeBlockIDIgnored(t *testing.T) {
	msg := buildKrootMessage()
	blocks := splitIntoBlocks(msg, 104, 0)

	r := NewDsmReassembler()
	// Block 0 establishes a 7-block message; a bogus BID=10 block must be
	// dropped rather than panicking or expanding the block slice.
	bogusHeader := bitfield.FromUint(0, 4).Concat(bitfield.FromUint(10, 4))
	bogus := validHeaderByte().Concat(bogusHeader).Concat(blocks[1].Slice(16, 120))

	if _, ok, err := r.HandleBlock(blocks[0], false, false, 0, false); ok || err != nil {
		t.Fatalf("unexpected completion/error on first block: ok=%v err=%v", ok, err)
	}
	if _, ok, err := r.HandleBlock(bogus, false, false, 0, false); ok || err != nil {
		t.Fatalf("bogus block ID should be silently ignored, got ok=%v err=%v", ok, err)
	}

	for _, idx := range []int{1, 2, 3, 4, 5, 6} {
		_, ok, err := r.HandleBlock(blocks[idx], false, false, 0, false)
		if err != nil {
			t.Fatalf("HandleBlock: %v", err)
		}
		if idx == 6 && !ok {
			t.Fatal("expected completion after all 7 real blocks received")
		}
	}
}

func TestDsmReassembler_HaveKrootSkipsFurtherBlocks(t *testing.T) {
	msg := buildKrootMessage()
	blocks := splitIntoBlocks(msg, 104, 0)
	r := NewDsmReassembler()

	_, ok, err := r.HandleBlock(blocks[0], true, false, 0, false)
	if err != nil {
		t.Fatalf("HandleBlock: %v", err)
	}
	if ok {
		t.Fatal("haveKroot=true should prevent any KROOT block from being accepted")
	}
}

func TestDsmReassembler_ExpectedChainFiltersKroot(t *testing.T) {
	msg := buildKrootMessage()
	blocks := splitIntoBlocks(msg, 104, 0)
	r := NewDsmReassembler()

	// validHeaderByte() sets CID=0; restrict to chain 1, so the block must
	// be dropped without affecting reassembly state.
	_, ok, err := r.HandleBlock(blocks[0], false, false, 1, true)
	if err != nil {
		t.Fatalf("HandleBlock: %v", err)
	}
	if ok {
		t.Fatal("block from the wrong chain must not be accepted during an expected-chain filter")
	}
}

func TestDsmReassembler_InvalidNmaHeaderDropsBlock(t *testing.T) {
	msg := buildKrootMessage()
	badHeader := bitfield.FromUint(uint64(NMAReserved), 2).
		Concat(bitfield.FromUint(0, 2)).
		Concat(bitfield.FromUint(uint64(CPKSNominal), 3)).
		Concat(bitfield.Zeros(1))
	dsmHeader := bitfield.FromUint(0, 4).Concat(bitfield.FromUint(0, 4))
	block := badHeader.Concat(dsmHeader).Concat(msg.Slice(0, 104))

	r := NewDsmReassembler()
	_, ok, err := r.HandleBlock(block, false, false, 0, false)
	if err != nil {
		t.Fatalf("HandleBlock: %v", err)
	}
	if ok {
		t.Fatal("a block accompanied by a reserved NMAS codepoint must be dropped")
	}
}
