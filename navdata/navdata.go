// Package navdata extracts the navigation-message bits that OSNMA tags
// authenticate out of a raw I/NAV subframe, and stores them keyed by the
// time, satellite, and ADKD they belong to until the corresponding tag
// either consumes or expires them.
package navdata

import (
	"osnma/bitfield"
	"osnma/gst"
)

const (
	evenPageBits = 114
	oddPageBits  = 120
	pageBits     = evenPageBits + oddPageBits
)

// halfpage returns the even or odd half of page idx out of a 3510-bit,
// 15-page I/NAV subframe.
func halfpage(subframe bitfield.Field, idx int, even bool) bitfield.Field {
	start := pageBits * idx
	if even {
		return subframe.Slice(start, start+evenPageBits)
	}
	return subframe.Slice(start+evenPageBits, start+evenPageBits+oddPageBits)
}

func word(subframe bitfield.Field, idx int) bitfield.Field {
	return halfpage(subframe, idx, true).Slice(2, 2+112).Concat(halfpage(subframe, idx, false).Slice(2, 2+16))
}

// ExtractADKD0Data pulls the 549 bits of navigation data authenticated by an
// ADKD=0 (and, identically, ADKD=12) tag out of words 1-5, per the OSNMA ICD
// Annex B layout.
func ExtractADKD0Data(subframe bitfield.Field) bitfield.Field {
	word1 := word(subframe, 10)
	word2 := word(subframe, 0)
	word3 := word(subframe, 11)
	word4 := word(subframe, 1)
	word5 := word(subframe, 12)

	data := word1.Slice(6, 126)
	data = data.Concat(word2.Slice(6, 126))
	data = data.Concat(word3.Slice(6, 128))
	data = data.Concat(word4.Slice(6, 126))
	data = data.Concat(word5.Slice(6, 73))
	return data
}

// ExtractADKD4Data pulls the 141 bits of navigation data authenticated by an
// ADKD=4 tag out of words 6 and 10. Word 10's page slot can instead carry
// word 8 on some frames; ok is false when that is the case, since the data
// is then absent.
func ExtractADKD4Data(subframe bitfield.Field) (data bitfield.Field, ok bool) {
	word6 := word(subframe, 2)
	word10 := word(subframe, 4)

	if word10.Slice(0, 6).Uint64() != 10 {
		return bitfield.Field{}, false
	}

	data = word6.Slice(6, 105)
	data = data.Concat(word10.Slice(86, 128))
	return data, true
}

// Key identifies one slice of navigation data: the subframe it was
// transmitted in, the satellite, and the ADKD it feeds.
type Key struct {
	GST  gst.GST
	SVID int
	ADKD int
}

type prevKey struct {
	SVID int
	ADKD int
}

type prevEntry struct {
	Data bitfield.Field
	GST  gst.GST
}

// Manager stores navigation data keyed by (gst, svid, adkd), plus a
// per-(svid, adkd) fallback to the most recently received slice so that
// cross-authentication can still proceed with older, once-verified data.
type Manager struct {
	current map[Key]bitfield.Field
	prev    map[prevKey]prevEntry
}

// NewManager returns an empty store.
func NewManager() *Manager {
	return &Manager{current: make(map[Key]bitfield.Field), prev: make(map[prevKey]prevEntry)}
}

// Get returns the navigation data exactly matching key.
func (m *Manager) Get(key Key) (bitfield.Field, bool) {
	d, ok := m.current[key]
	return d, ok
}

// GetWithTimeLimit returns the latest navigation data for (svid, adkd), but
// rejects data older than key.GST minus limit seconds.
func (m *Manager) GetWithTimeLimit(key Key, limit int) (bitfield.Field, bool) {
	e, ok := m.prev[prevKey{key.SVID, key.ADKD}]
	if !ok {
		return bitfield.Field{}, false
	}
	if key.GST.TotalSeconds()-e.GST.TotalSeconds() > int64(limit) {
		return bitfield.Field{}, false
	}
	return e.Data, true
}

// GetAny returns the exact navigation data for key if present, otherwise
// falls back to the latest data received for (svid, adkd), however old.
func (m *Manager) GetAny(key Key) (bitfield.Field, bool) {
	if d, ok := m.current[key]; ok {
		return d, true
	}
	e, ok := m.prev[prevKey{key.SVID, key.ADKD}]
	if !ok {
		return bitfield.Field{}, false
	}
	return e.Data, true
}

// AddNavData records navdata for (svid, gst, adkd), updating both the exact
// lookup and the per-(svid, adkd) fallback.
func (m *Manager) AddNavData(svid int, g gst.GST, adkd int, navdata bitfield.Field) {
	m.current[Key{GST: g, SVID: svid, ADKD: adkd}] = navdata
	m.prev[prevKey{svid, adkd}] = prevEntry{Data: navdata, GST: g}
}

// Remove discards the exact-match entry for key (called once its tag has
// been consumed, successfully or not).
func (m *Manager) Remove(key Key) {
	delete(m.current, key)
}

// adkd4PRN is the synthetic "satellite id" used for ADKD=4 (alert/other)
// data, which is not tied to a single transmitting satellite.
const adkd4PRN = 255

// ExtractAndInsert extracts ADKD=0 (and, if requested, ADKD=12 and ADKD=4)
// navigation data out of subframeData and stores it.
func (m *Manager) ExtractAndInsert(svid int, g gst.GST, subframeData bitfield.Field, insertADKD4, insertADKD12 bool) {
	adkd0 := ExtractADKD0Data(subframeData)
	m.AddNavData(svid, g, 0, adkd0)
	if insertADKD12 {
		m.AddNavData(svid, g, 12, adkd0)
	}
	if insertADKD4 {
		if adkd4, ok := ExtractADKD4Data(subframeData); ok {
			m.AddNavData(adkd4PRN, g, 4, adkd4)
		}
	}
}
