package osnma

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"

	"osnma/bitfield"
	"osnma/gst"
)

// ParsePublicKeyBits decodes a renewed public key as transmitted in a
// DSM-PKR message: a compressed EC point (the ICD's 264-bit and 536-bit
// lengths for P-256 and P-521 are exactly the compressed-point sizes for
// those curves).
func ParsePublicKeyBits(t PublicKeyType, raw bitfield.Field) (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch t {
	case PublicKeyECDSAP256:
		curve = elliptic.P256()
	case PublicKeyECDSAP521:
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("osnma: public key type %s cannot be decoded as an EC point", t)
	}

	x, y := elliptic.UnmarshalCompressed(curve, raw.Bytes())
	if x == nil {
		return nil, fmt.Errorf("osnma: invalid compressed %s point", t)
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

// LoadPublicKeyPEM parses the Galileo OSNMA public key from PEM text (EC
// parameters block followed by a public key block, as published by the
// GSC). Only ECDSA public keys are supported.
func LoadPublicKeyPEM(data []byte) (*ecdsa.PublicKey, error) {
	var block *pem.Block
	for {
		block, data = pem.Decode(data)
		if block == nil {
			return nil, fmt.Errorf("osnma: no PUBLIC KEY block found in PEM data")
		}
		if block.Type == "PUBLIC KEY" {
			break
		}
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("osnma: parsing public key: %w", err)
	}
	ecdsaPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("osnma: public key is not ECDSA")
	}
	return ecdsaPub, nil
}

type ecdsaSignature struct {
	R, S *big.Int
}

// ValidateDsmKroot authenticates a DSM-KROOT message and its accompanying
// NMA header against the Galileo OSNMA public key: the signed payload is
// the NMA header's 8 raw bits followed by the DSM-KROOT's raw bits [8,
// 104+KS), zero-padded to a byte boundary, hashed with SHA-256 and verified
// as an ECDSA signature whose r||s halves are DER re-encoded.
func ValidateDsmKroot(kroot DsmKrootMessage, header NmaHeader, publicKey *ecdsa.PublicKey) error {
	ks := kroot.KeySize
	toAuth := header.Raw.Concat(kroot.Raw.Slice(8, 104+ks)).PadToByte()

	r := new(big.Int).SetBytes(kroot.Signature.Slice(0, 256).Bytes())
	st := new(big.Int).SetBytes(kroot.Signature.Slice(256, 512).Bytes())
	der, err := asn1.Marshal(ecdsaSignature{R: r, S: st})
	if err != nil {
		return fmt.Errorf("osnma: encoding signature: %w", err)
	}

	digest := sha256.Sum256(toAuth.Bytes())
	if !ecdsa.VerifyASN1(publicKey, digest[:], der) {
		return fmt.Errorf("osnma: DSM-KROOT authentication failure")
	}
	return nil
}

// RootKeyGST computes the GST at which a DSM-KROOT's TESLA root key becomes
// the chain's current key: 30 seconds before the chain's nominal start of
// applicability, WNK/(TOWHK hours).
func RootKeyGST(kroot DsmKrootMessage) (gst.GST, error) {
	g, err := gst.New(kroot.WNK, kroot.TOWHK*3600)
	if err != nil {
		return gst.GST{}, fmt.Errorf("osnma: invalid KROOT applicability time: %w", err)
	}
	return g.SubtractSeconds(30), nil
}

// WriteKroot persists a DSM-KROOT's raw bits to a warm-start file, named
// kroot_<wnk>_<towhk> unless filename is given.
func WriteKroot(kroot DsmKrootMessage, filename string) error {
	if filename == "" {
		filename = fmt.Sprintf("kroot_%d_%d", kroot.WNK, kroot.TOWHK)
	}
	return os.WriteFile(filename, []byte(kroot.Raw.Hex()), 0o644)
}

// ReadKroot loads a DSM-KROOT persisted by WriteKroot and re-parses it.
func ReadKroot(filename string) (DsmKrootMessage, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return DsmKrootMessage{}, fmt.Errorf("osnma: reading kroot file: %w", err)
	}
	raw, err := bitfield.FromHex(string(data))
	if err != nil {
		return DsmKrootMessage{}, fmt.Errorf("osnma: decoding kroot file: %w", err)
	}
	return ParseDsmKrootMessage(raw)
}
