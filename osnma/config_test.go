package osnma

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"math/big"
	"testing"

	"osnma/bitfield"
)

// buildSignedKroot assembles a minimal DSM-KROOT bit-field (KS=96, the
// smallest key size) signed by priv, alongside the NMA header it was
// transmitted with.
func buildSignedKroot(t *testing.T, priv *ecdsa.PrivateKey) (DsmKrootMessage, NmaHeader) {
	t.Helper()
	header := NmaHeader{Raw: bitfield.FromUint(0b10_01_001_0, 8)} // nmas=operational, cpks=nominal
	return buildSignedKrootWithHeader(t, priv, header)
}

// buildSignedKrootWithHeader is like buildSignedKroot but signs the payload
// against a caller-supplied NMA header, for tests that need the signature to
// match a header other than the default nominal one.
func buildSignedKrootWithHeader(t *testing.T, priv *ecdsa.PrivateKey, header NmaHeader) (DsmKrootMessage, NmaHeader) {
	t.Helper()

	const ks = 96

	nbdk := bitfield.FromUint(1, 4) // -> 7 blocks total, irrelevant here
	pkid := bitfield.FromUint(1, 4)
	cidkr := bitfield.FromUint(1, 2)
	reserved1 := bitfield.Zeros(2)
	hf := bitfield.FromUint(0, 2) // SHA-256
	mf := bitfield.FromUint(0, 2) // HMAC-SHA-256
	ksField := bitfield.FromUint(0, 4) // code 0 -> 96 bits
	tsField := bitfield.FromUint(8, 4) // code 8 -> 32 bits
	maclt := bitfield.FromUint(27, 8)
	reserved2 := bitfield.Zeros(4)
	wnk := bitfield.FromUint(1174, 12)
	towhk := bitfield.FromUint(10, 8)
	alpha := bitfield.FromUint(0xA5A5A5A5A5A5, 48)
	rootKey := bitfield.FromUint(0x0102030405060708, 64).Concat(bitfield.FromUint(0x090A0B0C, 32)).Slice(0, ks)

	// Body before the signature, as transmitted.
	body := nbdk.Concat(pkid).Concat(cidkr).Concat(reserved1).Concat(hf).Concat(mf).
		Concat(ksField).Concat(tsField).Concat(maclt).Concat(reserved2).
		Concat(wnk).Concat(towhk).Concat(alpha).Concat(rootKey)

	toAuth := header.Raw.Concat(body.Slice(8, body.Len())).PadToByte()
	digest := sha256.Sum256(toAuth.Bytes())

	r, s, err := ecdsa.Sign(rand.Reader, priv, digest[:])
	if err != nil {
		t.Fatalf("ecdsa.Sign: %v", err)
	}
	sigBits := bitfieldFromBigInt(t, r, 256).Concat(bitfieldFromBigInt(t, s, 256))

	raw := body.Concat(sigBits)
	kroot, err := ParseDsmKrootMessage(raw)
	if err != nil {
		t.Fatalf("ParseDsmKrootMessage: %v", err)
	}
	return kroot, header
}

func bitfieldFromBigInt(t *testing.T, v *big.Int, bits int) bitfield.Field {
	t.Helper()
	b := v.Bytes()
	padded := make([]byte, bits/8)
	copy(padded[len(padded)-len(b):], b)
	return bitfield.FromBytes(padded)
}

func TestValidateDsmKroot_AcceptsValidSignature(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	kroot, header := buildSignedKroot(t, priv)

	if err := ValidateDsmKroot(kroot, header, &priv.PublicKey); err != nil {
		t.Errorf("expected valid signature to verify, got %v", err)
	}
}

func TestValidateDsmKroot_RejectsTamperedHeader(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	kroot, header := buildSignedKroot(t, priv)
	header.Raw = bitfield.FromUint(header.Raw.Uint64()^1, 8)

	if err := ValidateDsmKroot(kroot, header, &priv.PublicKey); err == nil {
		t.Error("expected tampered header to fail validation")
	}
}

func TestValidateDsmKroot_RejectsWrongKey(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	other, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	kroot, header := buildSignedKroot(t, priv)

	if err := ValidateDsmKroot(kroot, header, &other.PublicKey); err == nil {
		t.Error("expected signature from a different key to fail validation")
	}
}

func TestParsePublicKeyBits_RoundTrip(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	compressed := elliptic.MarshalCompressed(elliptic.P256(), priv.PublicKey.X, priv.PublicKey.Y)
	pub, err := ParsePublicKeyBits(PublicKeyECDSAP256, bitfield.FromBytes(compressed))
	if err != nil {
		t.Fatalf("ParsePublicKeyBits: %v", err)
	}
	if pub.X.Cmp(priv.PublicKey.X) != 0 || pub.Y.Cmp(priv.PublicKey.Y) != 0 {
		t.Error("round-tripped public key does not match original")
	}
}

func TestLoadPublicKeyPEM_RejectsGarbage(t *testing.T) {
	if _, err := LoadPublicKeyPEM([]byte("not pem data")); err == nil {
		t.Error("expected error for non-PEM input")
	}
}
