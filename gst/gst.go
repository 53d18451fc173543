// Package gst implements Galileo System Time arithmetic: the (week number,
// time of week) pair used to timestamp every OSNMA event.
package gst

import (
	"fmt"

	"osnma/bitfield"
)

const (
	// SecondsInWeek is the number of seconds in one GST week.
	SecondsInWeek = 604800
	// MaxWeekNumber is the largest representable 12-bit week number.
	MaxWeekNumber = 4095
	// SubframeSeconds is the duration of one I/NAV subframe, and the
	// spacing between successive TESLA keys in a chain.
	SubframeSeconds = 30
)

// GST is a Galileo System Time instant: a week number in [0, 4095] and a
// time of week in [0, 604799].
type GST struct {
	WN  int
	TOW int
}

// New constructs a GST, validating that both fields are in range.
func New(wn, tow int) (GST, error) {
	if wn < 0 || wn > MaxWeekNumber {
		return GST{}, fmt.Errorf("gst: week number %d out of range [0, %d]", wn, MaxWeekNumber)
	}
	if tow < 0 || tow >= SecondsInWeek {
		return GST{}, fmt.Errorf("gst: time of week %d out of range [0, %d)", tow, SecondsInWeek)
	}
	return GST{WN: wn, TOW: tow}, nil
}

// AddSeconds returns g advanced by s seconds (s may be negative), carrying
// across week boundaries. A week number that would leave [0, MaxWeekNumber]
// after carrying is an implementation-breaking invariant violation: Galileo
// never rolls over 4096 weeks within a receiver's lifetime, so this panics
// rather than silently wrapping.
func (g GST) AddSeconds(s int) GST {
	wn, tow := g.WN, g.TOW+s
	for tow >= SecondsInWeek {
		tow -= SecondsInWeek
		wn++
	}
	for tow < 0 {
		tow += SecondsInWeek
		wn--
	}
	if wn < 0 || wn > MaxWeekNumber {
		panic(fmt.Sprintf("gst: week number overflow: %d", wn))
	}
	return GST{WN: wn, TOW: tow}
}

// SubtractSeconds returns g moved back by s seconds.
func (g GST) SubtractSeconds(s int) GST {
	return g.AddSeconds(-s)
}

// TotalSeconds projects g onto a single monotonic integer, used as the
// ordering and hashing key throughout the engine.
func (g GST) TotalSeconds() int64 {
	return int64(g.WN)*SecondsInWeek + int64(g.TOW)
}

// Before reports whether g occurred strictly before other.
func (g GST) Before(other GST) bool {
	return g.TotalSeconds() < other.TotalSeconds()
}

// Equal reports whether g and other denote the same instant.
func (g GST) Equal(other GST) bool {
	return g.TotalSeconds() == other.TotalSeconds()
}

// BitPacked encodes g as the 32-bit big-endian (WN[12] | TOW[20]) field used
// throughout the ICD (e.g. as part of the HMAC authentication message).
func (g GST) BitPacked() bitfield.Field {
	return bitfield.FromUint(uint64(g.WN), 12).Concat(bitfield.FromUint(uint64(g.TOW), 20))
}

// SameSubframe reports whether g and other fall within the same 30-second
// subframe.
func (g GST) SameSubframe(other GST) bool {
	return g.TotalSeconds()/SubframeSeconds == other.TotalSeconds()/SubframeSeconds
}

// String renders g as "GST(wn=.., tow=..)" for logs and error messages.
func (g GST) String() string {
	return fmt.Sprintf("GST(wn=%d, tow=%d)", g.WN, g.TOW)
}
