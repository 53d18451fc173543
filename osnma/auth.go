package osnma

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"

	"osnma/bitfield"
	"osnma/gst"
)

// AuthOutcome is the result of one tag-authentication attempt. Values below
// 10 denote success; see AuthOutcome.IsOK.
type AuthOutcome int

const (
	OutcomeOK                           AuthOutcome = 0
	OutcomeOKWithOldNavData             AuthOutcome = 1
	OutcomeOKWithIncompleteSubframe     AuthOutcome = 2
	OutcomeInvalidTag                   AuthOutcome = 90
	OutcomeInvalidTagWithOldNavData     AuthOutcome = 91
	OutcomeInvalidTagWithIncompleteSub  AuthOutcome = 92
)

func (o AuthOutcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeOKWithOldNavData:
		return "ok_with_old_navdata"
	case OutcomeOKWithIncompleteSubframe:
		return "ok_with_incomplete_subframe"
	case OutcomeInvalidTag:
		return "invalid_tag"
	case OutcomeInvalidTagWithOldNavData:
		return "invalid_tag_with_old_nav_data"
	case OutcomeInvalidTagWithIncompleteSub:
		return "invalid_tag_with_incomplete_subframe"
	default:
		return fmt.Sprintf("unknown(%d)", int(o))
	}
}

// IsOK reports whether the outcome corresponds to a successful
// authentication.
func (o AuthOutcome) IsOK() bool {
	return o < 10
}

// AuthAttempt records the outcome of authenticating one piece of navigation
// data in the subframe at (WN, TOW), transmitted by satellite PRND and
// tagged by satellite PRNA, via the given ADKD.
type AuthAttempt struct {
	PRND    int
	PRNA    int
	WN      int
	TOW     int
	ADKD    int
	Outcome AuthOutcome
}

// IsOK reports whether this attempt succeeded.
func (a AuthAttempt) IsOK() bool { return a.Outcome.IsOK() }

// CreateAuthMsg builds the message that a tag authenticates: the satellite
// identifiers, GST, 1-based tag index, NMA status, and the navigation data
// itself, zero-padded to a byte boundary.
//
// Tag 0 omits the PRND byte (it is implicit: the data's source is the
// subframe's own transmitter). ADKD=4 data is not tied to one satellite, so
// PRND is replaced with PRNA in that case.
func CreateAuthMsg(authData bitfield.Field, prnd, prna int, g gst.GST, tagIndex int, header NmaHeader) bitfield.Field {
	prnaByte := bitfield.FromUint(uint64(prna), 8)
	prndByte := bitfield.FromUint(uint64(prnd), 8)
	ctr := bitfield.FromUint(uint64(tagIndex+1), 8) // 1-based
	nmas := header.Raw.Slice(0, 2)

	if prnd == 255 { // ADKD=4
		prndByte = prnaByte
	}

	var msg bitfield.Field
	if tagIndex == 0 {
		msg = prnaByte.Concat(g.BitPacked()).Concat(ctr).Concat(nmas).Concat(authData)
	} else {
		msg = prndByte.Concat(prnaByte).Concat(g.BitPacked()).Concat(ctr).Concat(nmas).Concat(authData)
	}
	return msg.PadToByte()
}

// VerifyTag recomputes a tag from the navigation data and surrounding
// metadata with HMAC-SHA-256 under key, and compares it to the received
// tag. The comparison truncates the HMAC digest to exactly tag.Len() bits
// rather than rounding up to whole bytes, since tag sizes like 20 or 28 bits
// are not byte-aligned and a byte-level comparison would spuriously compare
// padding bits that carry no authentication meaning.
func VerifyTag(tag bitfield.Field, key bitfield.Field, navData bitfield.Field, tagGST gst.GST, header NmaHeader, index, prnd, prna, adkd int) AuthAttempt {
	msg := CreateAuthMsg(navData, prnd, prna, tagGST, index, header)

	mac := hmac.New(sha256.New, key.Bytes())
	mac.Write(msg.Bytes())
	computed := bitfield.FromBytes(mac.Sum(nil)).Slice(0, tag.Len())

	attempt := AuthAttempt{PRND: prnd, PRNA: prna, WN: tagGST.WN, TOW: tagGST.TOW, ADKD: adkd, Outcome: OutcomeOK}
	if !computed.Equal(tag) {
		attempt.Outcome = OutcomeInvalidTag
	}
	return attempt
}
