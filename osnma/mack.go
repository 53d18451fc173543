package osnma

import (
	"fmt"

	"osnma/bitfield"
)

// MackHeader is the fixed-size header of a MACK (MAC-and-Key) section: the
// tag authenticating ADKD=0 data from the transmitting satellite itself
// (TAG0), followed by the MAC sequence number field.
type MackHeader struct {
	Raw    bitfield.Field
	Tag0   bitfield.Field
	MacSeq bitfield.Field
}

// ParseMackHeader parses the first TS+12+4 bits of a MACK section. TS is the
// tag size (bits), carried in the DSM-KROOT message.
func ParseMackHeader(mack bitfield.Field, tagSize int) MackHeader {
	raw := mack.Slice(0, tagSize+12+4)
	return MackHeader{
		Raw:    raw,
		Tag0:   raw.Slice(0, tagSize),
		MacSeq: raw.Slice(tagSize, tagSize+12),
	}
}

// MackTagInfo is one "Tag-Info" entry: which satellite's data a tag
// authenticates (PRND) and the authentication data/key-delay class (ADKD).
type MackTagInfo struct {
	Raw  bitfield.Field
	PRND int
	ADKD int
}

// ParseMackTagInfo parses a 16-bit tag-info field.
func ParseMackTagInfo(info bitfield.Field) MackTagInfo {
	return MackTagInfo{
		Raw:  info,
		PRND: int(info.Slice(0, 8).Uint64()),
		ADKD: int(info.Slice(8, 12).Uint64()),
	}
}

// MackTagsAndInfo is the "Tags and Info" field of a MACK section: tag1..n-1
// each paired with their tag-info entry (tag0 lives in the MackHeader).
type MackTagsAndInfo struct {
	Raw      bitfield.Field
	TagList  []bitfield.Field
	InfoList []MackTagInfo
}

// ParseMackTagsAndInfo parses the tag/info entries following the MACK
// header, up to (but excluding) the trailing TESLA key of size ks bits.
func ParseMackTagsAndInfo(mack bitfield.Field, tagSize, keySize int) (MackTagsAndInfo, error) {
	entryBits := tagSize + 16
	nTags := (480 - keySize) / entryBits
	if nTags < 1 {
		return MackTagsAndInfo{}, fmt.Errorf("osnma: tag size %d / key size %d yields no room for any tag", tagSize, keySize)
	}

	start := tagSize + 12 + 4 // past the MACK header
	tagList := make([]bitfield.Field, 0, nTags-1)
	infoList := make([]MackTagInfo, 0, nTags-1)
	for i := 1; i < nTags; i++ {
		idx := start + (i-1)*entryBits
		tagList = append(tagList, mack.Slice(idx, idx+tagSize))
		infoList = append(infoList, ParseMackTagInfo(mack.Slice(idx+tagSize, idx+tagSize+16)))
	}

	end := start + (nTags-1)*entryBits
	return MackTagsAndInfo{Raw: mack.Slice(start, end), TagList: tagList, InfoList: infoList}, nil
}

// ParseMackKey extracts the disclosed TESLA key immediately following the
// tags-and-info field: MACK is laid out as header | (tag|info)* | key |
// padding, so the key does not sit at the end of the 480-bit section
// whenever keySize and tagSize leave padding bits after it.
func ParseMackKey(mack bitfield.Field, tagSize, keySize int) bitfield.Field {
	entryBits := tagSize + 16
	nTags := (480 - keySize) / entryBits
	start := (tagSize + 12 + 4) + (nTags-1)*entryBits
	return mack.Slice(start, start+keySize)
}
