package osnma

import (
	"fmt"

	"osnma/bitfield"
	"osnma/gst"
)

const (
	evenPageBits  = 114
	oddPageBits   = 120
	pagesPerFrame = 15
	pageBits      = evenPageBits + oddPageBits
	subframeBits  = pagesPerFrame * pageBits // 3510
)

// SubframeSource yields successive Subframes for the engine to process,
// abstracting over the underlying feed (an EUSPA CSV test vector today, an
// SBF stream or a live receiver tomorrow). Next returns io.EOF once the
// source is exhausted.
type SubframeSource interface {
	Next() (Subframe, error)
}

// Subframe is a fully-assembled 30-second, 15-page I/NAV subframe from one
// satellite, with the 6-bit inter-page gaps already removed.
type Subframe struct {
	WN, TOW int
	SVID    int // space vehicle id, 1-36
	Data    bitfield.Field
	// PagesReceived[i] reports whether page i (0-14) was actually received;
	// missing pages are zero-filled in Data.
	PagesReceived [pagesPerFrame]bool
}

// NewSubframe validates and constructs a Subframe.
func NewSubframe(wn, tow, svid int, data bitfield.Field, pagesReceived [pagesPerFrame]bool) (Subframe, error) {
	if svid < 1 || svid > 36 {
		return Subframe{}, fmt.Errorf("osnma: svid %d out of range [1, 36]", svid)
	}
	if tow%60 != 0 && tow%60 != 30 {
		return Subframe{}, fmt.Errorf("osnma: subframe tow %d is not a subframe boundary (tow %% 60 must be 0 or 30)", tow)
	}
	if data.Len() != subframeBits {
		panic(fmt.Sprintf("osnma: subframe data has %d bits, want %d", data.Len(), subframeBits))
	}
	return Subframe{WN: wn, TOW: tow, SVID: svid, Data: data, PagesReceived: pagesReceived}, nil
}

// GST returns the GST at which this subframe starts.
func (s Subframe) GST() gst.GST {
	return gst.GST{WN: s.WN, TOW: s.TOW}
}

// Complete reports whether every one of the 15 pages was received.
func (s Subframe) Complete() bool {
	for _, got := range s.PagesReceived {
		if !got {
			return false
		}
	}
	return true
}

// evenHalf returns the 114-bit even half of page i.
func (s Subframe) evenHalf(i int) bitfield.Field {
	start := i * pageBits
	return s.Data.Slice(start, start+evenPageBits)
}

// oddHalf returns the 120-bit odd half of page i.
func (s Subframe) oddHalf(i int) bitfield.Field {
	start := i*pageBits + evenPageBits
	return s.Data.Slice(start, start+oddPageBits)
}

// extractOsnmaField pulls the 40-bit OSNMA field out of one page's odd half:
// 2 status/data bits, 16 further data bits, then 40 bits of OSNMA (8-bit
// HKROOT chunk | 32-bit MACK chunk).
func extractOsnmaField(odd bitfield.Field) (hkrootByte, mackChunk bitfield.Field) {
	osnma := odd.Slice(18, 18+40)
	return osnma.Slice(0, 8), osnma.Slice(8, 40)
}

// ErrNoOsnmaData indicates a subframe whose concatenated HKROOT and MACK
// fields are both entirely zero: the satellite is not transmitting OSNMA.
type ErrNoOsnmaData struct {
	WN, TOW, SVID int
}

func (e ErrNoOsnmaData) Error() string {
	return fmt.Sprintf("no OSNMA bits available. WN: %d, TOW: %d, SVID: %d", e.WN, e.TOW, e.SVID)
}

// ExtractHkrootMack concatenates the 15 per-page OSNMA fields into the
// 120-bit HKROOT and 480-bit MACK sections of the subframe. Returns
// ErrNoOsnmaData if both concatenations are all-zero.
func ExtractHkrootMack(s Subframe) (hkroot, mack bitfield.Field, err error) {
	hkroot = bitfield.Zeros(0)
	mack = bitfield.Zeros(0)
	for i := 0; i < pagesPerFrame; i++ {
		h, m := extractOsnmaField(s.oddHalf(i))
		hkroot = hkroot.Concat(h)
		mack = mack.Concat(m)
	}
	if hkroot.IsZero() && mack.IsZero() {
		return hkroot, mack, ErrNoOsnmaData{WN: s.WN, TOW: s.TOW, SVID: s.SVID}
	}
	return hkroot, mack, nil
}
