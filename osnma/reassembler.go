package osnma

import (
	"fmt"

	"osnma/bitfield"
)

// DsmResult is a fully reassembled DSM message, tagged with the NMA header
// that accompanied its final block.
type DsmResult struct {
	Type   DsmMessageType
	Header NmaHeader
	Kroot  DsmKrootMessage // valid when Type == DsmKroot
	Pkr    DsmPkrMessage   // valid when Type == DsmPkr
}

// DsmReassembler accumulates DSM-KROOT and DSM-PKR blocks, delivered one
// HKROOT field at a time across many subframes, into complete messages. A
// chain's KROOT and a key's PKR reassemble independently and concurrently.
type DsmReassembler struct {
	blocks           map[DsmMessageType][]*bitfield.Field
	CurrentNmaHeader NmaHeader

	// onInfo, when set, receives human-readable progress notices (e.g.
	// "received DSM block 3/9"). Left nil by default.
	onInfo func(string)
}

// NewDsmReassembler returns an empty reassembler.
func NewDsmReassembler() *DsmReassembler {
	return &DsmReassembler{blocks: make(map[DsmMessageType][]*bitfield.Field)}
}

// SetInfoLogger installs a callback for progress notices.
func (r *DsmReassembler) SetInfoLogger(f func(string)) { r.onInfo = f }

func (r *DsmReassembler) info(format string, args ...any) {
	if r.onInfo != nil {
		r.onInfo(fmt.Sprintf(format, args...))
	}
}

// HandleBlock ingests one HKROOT field's DSM block. It returns ok=true along
// with the completed message once the last block of that message type
// arrives; otherwise it returns ok=false once its effect (if any) on
// internal state has been applied. The error is non-nil when a first block
// carries a reserved block-count value or the completed message fails to
// parse.
//
// haveKroot/havePkr let the caller signal that a message of that type is
// already in hand, so further blocks of that type are ignored (the ICD
// permits re-transmission of KROOT/PKR material indefinitely). hasExpectedChain
// restricts KROOT blocks to a specific chain ID during an end-of-chain
// transition, when two chains' KROOTs may be in flight simultaneously.
func (r *DsmReassembler) HandleBlock(hkroot bitfield.Field, haveKroot, havePkr bool, expectedChain int, hasExpectedChain bool) (DsmResult, bool, error) {
	nmaHeader := ParseNmaHeader(hkroot)
	dsmHeader := ParseDsmHeader(hkroot)
	dsmBlock := hkroot.Slice(16, 120)
	dsmType := dsmHeader.DsmID

	if hasExpectedChain && dsmType == DsmKroot && nmaHeader.CID != expectedChain {
		return DsmResult{}, false, nil
	}
	if haveKroot && dsmType == DsmKroot {
		return DsmResult{}, false, nil
	}
	if havePkr && dsmType == DsmPkr {
		return DsmResult{}, false, nil
	}
	if !nmaHeader.Valid() {
		return DsmResult{}, false, nil
	}

	r.CurrentNmaHeader = nmaHeader

	if dsmHeader.BID == 0 && r.blocks[dsmType] == nil {
		var nb int
		var err error
		raw := int(dsmBlock.Slice(0, 4).Uint64())
		if dsmType == DsmKroot {
			nb, err = krootBlockCountFromRaw(raw)
		} else {
			nb, err = pkrBlockCountFromRaw(raw)
		}
		if err != nil {
			return DsmResult{}, false, err
		}
		blocks := make([]*bitfield.Field, nb)
		b := dsmBlock
		blocks[0] = &b
		r.blocks[dsmType] = blocks
		return DsmResult{}, false, nil
	}

	blocks := r.blocks[dsmType]
	if blocks != nil {
		r.info("received DSM block %d/%d of type %s", dsmHeader.BID+1, len(blocks), dsmType)
		if dsmHeader.BID < len(blocks) {
			b := dsmBlock
			blocks[dsmHeader.BID] = &b
		} else {
			r.info("DSM block ID %d larger than the expected block count, ignoring block", dsmHeader.BID)
		}
	}

	if blocks == nil || !allBlocksReceived(blocks) {
		return DsmResult{}, false, nil
	}

	full := bitfield.Zeros(0)
	for _, b := range blocks {
		full = full.Concat(*b)
	}
	r.blocks[dsmType] = nil
	r.info("DSM message of type %s completed", dsmType)

	result := DsmResult{Type: dsmType, Header: r.CurrentNmaHeader}
	var err error
	if dsmType == DsmKroot {
		result.Kroot, err = ParseDsmKrootMessage(full)
	} else {
		result.Pkr, err = ParseDsmPkrMessage(full)
	}
	if err != nil {
		return DsmResult{}, false, err
	}
	return result, true, nil
}

func allBlocksReceived(blocks []*bitfield.Field) bool {
	for _, b := range blocks {
		if b == nil {
			return false
		}
	}
	return true
}
