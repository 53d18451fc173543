package osnma

import (
	"fmt"

	"osnma/bitfield"
)

// NMAStatus is the 2-bit "nmas" field of the NMA header.
type NMAStatus int

const (
	NMAReserved NMAStatus = iota
	NMATest
	NMAOperational
	NMADontUse
)

func (s NMAStatus) String() string {
	switch s {
	case NMATest:
		return "test"
	case NMAOperational:
		return "operational"
	case NMADontUse:
		return "dont_use"
	default:
		return "reserved"
	}
}

// CPKS is the 3-bit "Chain and Public Key Status" field of the NMA header.
type CPKS int

const (
	CPKSReserved0 CPKS = iota
	CPKSNominal
	CPKSEndOfChain
	CPKSChainRevoked
	CPKSNewPublicKey
	CPKSPublicKeyRevoked
	CPKSReserved6
	CPKSReserved7
)

func (c CPKS) String() string {
	switch c {
	case CPKSNominal:
		return "nominal"
	case CPKSEndOfChain:
		return "end_of_chain"
	case CPKSChainRevoked:
		return "chain_revoked"
	case CPKSNewPublicKey:
		return "new_public_key"
	case CPKSPublicKeyRevoked:
		return "public_key_revoked"
	default:
		return "reserved"
	}
}

// IsReserved reports whether c is one of the three reserved CPKS codepoints.
func (c CPKS) IsReserved() bool {
	return c == CPKSReserved0 || c == CPKSReserved6 || c == CPKSReserved7
}

// NmaHeader is the 8-bit navigation message authentication header carried in
// every HKROOT field.
type NmaHeader struct {
	Raw  bitfield.Field // the full 8-bit header
	NMAS NMAStatus
	CID  int // chain id, 0-3
	CPKS CPKS
}

// ParseNmaHeader parses the first 8 bits of an HKROOT field.
func ParseNmaHeader(hkroot bitfield.Field) NmaHeader {
	raw := hkroot.Slice(0, 8)
	return NmaHeader{
		Raw:  raw,
		NMAS: NMAStatus(raw.Slice(0, 2).Uint64()),
		CID:  int(raw.Slice(2, 4).Uint64()),
		CPKS: CPKS(raw.Slice(4, 7).Uint64()),
	}
}

// Valid reports whether the header avoids reserved NMAS/CPKS codepoints.
// This does not by itself authenticate the header; that happens as a
// byproduct of a successful tag or KROOT verification.
func (h NmaHeader) Valid() bool {
	return h.NMAS != NMAReserved && !h.CPKS.IsReserved()
}

// DsmMessageType distinguishes the two kinds of DSM message.
type DsmMessageType int

const (
	DsmKroot DsmMessageType = iota
	DsmPkr
)

func (t DsmMessageType) String() string {
	if t == DsmPkr {
		return "pkr"
	}
	return "kroot"
}

// DsmHeader is the second byte of the HKROOT field: message type and block
// index within that message.
type DsmHeader struct {
	Raw   bitfield.Field
	DsmID DsmMessageType
	BID   int
}

// ParseDsmHeader parses bits [8:16) of an HKROOT field.
func ParseDsmHeader(hkroot bitfield.Field) DsmHeader {
	raw := hkroot.Slice(8, 16)
	rawID := raw.Slice(0, 4).Uint64()
	t := DsmKroot
	if rawID > 11 {
		t = DsmPkr
	}
	return DsmHeader{
		Raw:   raw,
		DsmID: t,
		BID:   int(raw.Slice(4, 8).Uint64()),
	}
}

// HashFunction is the DSM-KROOT "HF" field.
type HashFunction int

const (
	HashSHA256 HashFunction = iota
	HashReserved1
	HashSHA3_256
	HashReserved3
)

func (h HashFunction) String() string {
	switch h {
	case HashSHA256:
		return "SHA-256"
	case HashSHA3_256:
		return "SHA3-256"
	default:
		return "reserved"
	}
}

// MacFunction is the DSM-KROOT "MF" field. Only HMAC-SHA-256 is implemented;
// CMAC-AES is recognized but not supported (Non-goal, see spec.md).
type MacFunction int

const (
	MacHMACSHA256 MacFunction = iota
	MacCMACAES
	MacReserved2
	MacReserved3
)

func (m MacFunction) String() string {
	switch m {
	case MacHMACSHA256:
		return "HMAC-SHA-256"
	case MacCMACAES:
		return "CMAC-AES"
	default:
		return "reserved"
	}
}

// keySizeTable maps the 4-bit KS codepoint to its size in bits. Values not
// present are reserved.
var keySizeTable = map[int]int{
	0: 96, 1: 104, 2: 112, 3: 120, 4: 128, 5: 160, 6: 192, 7: 224, 8: 256,
}

// tagSizeTable maps the 4-bit TS codepoint to its size in bits.
var tagSizeTable = map[int]int{
	5: 20, 6: 24, 7: 28, 8: 32, 9: 40,
}

func keySizeFromCode(code int) (int, error) {
	ks, ok := keySizeTable[code]
	if !ok {
		return 0, fmt.Errorf("osnma: key-size code %d is reserved", code)
	}
	return ks, nil
}

func tagSizeFromCode(code int) (int, error) {
	ts, ok := tagSizeTable[code]
	if !ok {
		return 0, fmt.Errorf("osnma: tag-size code %d is reserved", code)
	}
	return ts, nil
}
