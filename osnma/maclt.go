package osnma

import "fmt"

// tagSpec is one entry of a MACLT tag sequence: the ADKD it authenticates
// and whether it must be "self" (S, tag's source satellite == the data's
// source satellite) or "external" (E, a cross-authentication tag).
type tagSpec struct {
	adkd int
	self bool
}

func s(adkd int) tagSpec { return tagSpec{adkd: adkd, self: true} }
func e(adkd int) tagSpec { return tagSpec{adkd: adkd, self: false} }

// macltTables holds the fixed tag sequences for each (MACLT, tow%60) pair
// defined by the ICD. The lookup tables currently define no FLX (flexible)
// entries, and none are modelled here: flexible authentication is not
// implemented (see Non-goals).
var macltTables = map[int]map[int][]tagSpec{
	27: {
		0:  {s(0), e(0), e(0), e(0), s(12), e(0)},
		30: {s(0), e(0), e(0), s(4), s(12), e(0)},
	},
	28: {
		0:  {s(0), e(0), e(0), e(0), s(0), e(0), e(0), s(12), e(0), e(0)},
		30: {s(0), e(0), e(0), s(0), e(0), e(0), s(4), s(12), e(0), e(0)},
	},
	31: {
		0:  {s(0), e(0), e(0), s(12), e(0)},
		30: {s(0), e(0), e(0), s(12), s(4)},
	},
	33: {
		0:  {s(0), e(0), s(4), e(0), s(12), e(0)},
		30: {s(0), e(0), e(0), s(12), e(0), e(12)},
	},
}

// VerifyTagInfoList checks that the ADKD/self-or-external pattern of a
// subframe's transmitted tags matches the fixed sequence the given MACLT
// value and tow%60 define. Tag 0 (in the MACK header) is always ADKD=0,
// self-authenticated by definition and is not itself checked here; the
// remaining tags in tagsAndInfo.InfoList correspond to seq[1:].
func VerifyTagInfoList(maclt int, tagsAndInfo MackTagsAndInfo, subframeTOW int, authSourceSVID int) error {
	t := subframeTOW % 60
	if t != 0 && t != 30 {
		return fmt.Errorf("osnma: subframe tow %d is not a multiple of 30", subframeTOW)
	}

	byTOW, ok := macltTables[maclt]
	if !ok {
		return fmt.Errorf("osnma: MACLT value %d is reserved; the MAC lookup table might be outdated", maclt)
	}
	seq, ok := byTOW[t]
	if !ok {
		return fmt.Errorf("osnma: MACLT value %d is reserved; the MAC lookup table might be outdated", maclt)
	}

	if len(tagsAndInfo.InfoList)+1 != len(seq) {
		return fmt.Errorf("osnma: number of tags does not match the MAC lookup table")
	}

	for i := 1; i < len(seq); i++ {
		transmitted := tagsAndInfo.InfoList[i-1]
		want := seq[i]

		if want.adkd != transmitted.ADKD {
			return fmt.Errorf("osnma: tag %d does not match MAC lookup table (want ADKD=%d, got ADKD=%d)", i, want.adkd, transmitted.ADKD)
		}

		isSelfAuth := transmitted.PRND == authSourceSVID || (transmitted.ADKD == 4 && transmitted.PRND == 255)
		if want.self && !isSelfAuth {
			return fmt.Errorf("osnma: tag %d authentication target SVID is inconsistent with MAC lookup table (expected self)", i)
		}
		if !want.self && isSelfAuth {
			return fmt.Errorf("osnma: tag %d authentication target SVID is inconsistent with MAC lookup table (expected external)", i)
		}
	}

	return nil
}
