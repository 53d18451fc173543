// Package tesla implements the TESLA (Timed Efficient Stream Loss-tolerant
// Authentication) key-chain engine: verifying a newly disclosed key against
// a trusted key, and deriving the past key that authenticates a given tag.
package tesla

import (
	"fmt"
	"hash"

	"osnma/bitfield"
	"osnma/gst"
)

// Key is one TESLA key: its bytes and the GST at which it was disclosed.
// The invariant that Time is always a multiple of 30s after the KROOT time
// is maintained by construction throughout the chain.
type Key struct {
	Key  bitfield.Field
	Time gst.GST
}

// HashFunc constructs the hash used for chain derivation, matching the
// DSM-KROOT "hash function" field (SHA-256 or SHA3-256).
type HashFunc func() hash.Hash

// StepBack computes the key one subframe (30s) before k: the key bytes
// truncated from SHA(K || (t-30).BitPacked() || alpha).
func StepBack(newHash HashFunc, k Key, alpha bitfield.Field) Key {
	t := k.Time.SubtractSeconds(gst.SubframeSeconds)
	msg := k.Key.Concat(t.BitPacked()).Concat(alpha)
	h := newHash()
	h.Write(msg.Bytes())
	digest := bitfield.FromBytes(h.Sum(nil))
	return Key{Key: digest.Slice(0, k.Key.Len()), Time: t}
}

// IterateBack walks the chain backward the given number of subframes.
func IterateBack(newHash HashFunc, k Key, alpha bitfield.Field, steps int) Key {
	for i := 0; i < steps; i++ {
		k = StepBack(newHash, k, alpha)
	}
	return k
}

// VerifyDisclosed checks a newly disclosed key against a trusted key by
// hashing forward-to-backward: disclosed must be strictly after trusted, on
// a 30s boundary, and iterating it back (disclosed.Time-trusted.Time)/30
// steps must reproduce trusted's bytes exactly.
func VerifyDisclosed(newHash HashFunc, disclosed, trusted Key, alpha bitfield.Field) (bool, error) {
	dt := disclosed.Time.TotalSeconds() - trusted.Time.TotalSeconds()
	if dt <= 0 {
		return false, fmt.Errorf("tesla: disclosed key at %s is not after trusted key at %s", disclosed.Time, trusted.Time)
	}
	if dt%gst.SubframeSeconds != 0 {
		return false, fmt.Errorf("tesla: disclosed/trusted time delta %ds is not a multiple of %ds", dt, gst.SubframeSeconds)
	}
	derived := IterateBack(newHash, disclosed, alpha, int(dt/gst.SubframeSeconds))
	return derived.Key.Equal(trusted.Key), nil
}

// DeriveAuthKey computes the key that authenticates a tag for the given
// ADKD, starting from the newest verified key. Returns ok=false if the tag
// is not yet authenticable (the disclosing key has not arrived) rather than
// an error: this is an expected, recoverable state, not a fault.
//
// ADKD 12 ("slow MAC") uses an 11-subframe (330s) disclosure delay instead
// of the normal 1-subframe delay; dt == 330 is treated as the exact on-time
// case requiring zero further iteration (see spec Design Notes).
func DeriveAuthKey(newHash HashFunc, newest Key, tagGST gst.GST, alpha bitfield.Field, adkd int) (Key, bool) {
	dt := newest.Time.TotalSeconds() - tagGST.TotalSeconds()
	if dt < 0 || dt%gst.SubframeSeconds != 0 {
		return Key{}, false
	}

	if adkd == 12 {
		const slowMACDelay = 11 * gst.SubframeSeconds
		if dt < slowMACDelay {
			return Key{}, false
		}
		steps := int((dt - slowMACDelay) / gst.SubframeSeconds)
		return IterateBack(newHash, newest, alpha, steps), true
	}

	if dt <= 0 {
		return Key{}, false
	}
	steps := int(dt/gst.SubframeSeconds) - 1
	return IterateBack(newHash, newest, alpha, steps), true
}
