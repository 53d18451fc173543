package osnma

import (
	"fmt"

	"osnma/bitfield"
)

// PublicKeyType is the DSM-PKR "NPKT" field.
type PublicKeyType int

const (
	PublicKeyReserved   PublicKeyType = 0
	PublicKeyECDSAP256  PublicKeyType = 1
	PublicKeyECDSAP521  PublicKeyType = 3
	PublicKeyAlert      PublicKeyType = 4
)

func (t PublicKeyType) String() string {
	switch t {
	case PublicKeyECDSAP256:
		return "ecdsa_p_256"
	case PublicKeyECDSAP521:
		return "ecdsa_p_521"
	case PublicKeyAlert:
		return "osnma_alert_message"
	default:
		return "reserved"
	}
}

// BitLen returns the length in bits of a public key of this type, or an
// error if the type does not carry a key (reserved or alert).
func (t PublicKeyType) BitLen() (int, error) {
	switch t {
	case PublicKeyECDSAP256:
		return 264, nil
	case PublicKeyECDSAP521:
		return 536, nil
	default:
		return 0, fmt.Errorf("osnma: public key type %s has no fixed length", t)
	}
}

// DsmKrootMessage is the fully reassembled DSM-KROOT message: the root of a
// TESLA key chain, signed with ECDSA over the Galileo OSNMA public key.
type DsmKrootMessage struct {
	Raw          bitfield.Field
	NumBlocks    int
	PublicKeyID  int
	KrootCID     int
	HashFn       HashFunction
	MacFn        MacFunction
	KeySize      int // bits
	TagSize      int // bits
	MacLT        int
	WNK          int // week number of applicability
	TOWHK        int // time of week of applicability, in hours
	Alpha        bitfield.Field
	RootKey      bitfield.Field
	Signature    bitfield.Field // 512-bit ECDSA signature, r||s
}

// ParseDsmKrootMessage decodes a fully reassembled DSM-KROOT bit-field
// according to the field layout in §3 of the OSNMA ICD.
func ParseDsmKrootMessage(msg bitfield.Field) (DsmKrootMessage, error) {
	nbdkRaw := int(msg.Slice(0, 4).Uint64())
	nb, err := krootBlockCountFromRaw(nbdkRaw)
	if err != nil {
		return DsmKrootMessage{}, err
	}

	hf := HashFunction(msg.Slice(12, 14).Uint64())
	mf := MacFunction(msg.Slice(14, 16).Uint64())

	ks, err := keySizeFromCode(int(msg.Slice(16, 20).Uint64()))
	if err != nil {
		return DsmKrootMessage{}, err
	}
	ts, err := tagSizeFromCode(int(msg.Slice(20, 24).Uint64()))
	if err != nil {
		return DsmKrootMessage{}, err
	}

	root := msg.Slice(104, 104+ks)
	sig := msg.Slice(104+ks, 104+ks+512)

	return DsmKrootMessage{
		Raw:         msg,
		NumBlocks:   nb,
		PublicKeyID: int(msg.Slice(4, 8).Uint64()),
		KrootCID:    int(msg.Slice(8, 10).Uint64()),
		HashFn:      hf,
		MacFn:       mf,
		KeySize:     ks,
		TagSize:     ts,
		MacLT:       int(msg.Slice(24, 32).Uint64()),
		WNK:         int(msg.Slice(36, 48).Uint64()),
		TOWHK:       int(msg.Slice(48, 56).Uint64()),
		Alpha:       msg.Slice(56, 104),
		RootKey:     root,
		Signature:   sig,
	}, nil
}

// DsmPkrMessage is the fully reassembled DSM-PKR (Public Key Renewal)
// message: a new public key and its Merkle sibling path.
type DsmPkrMessage struct {
	Raw                    bitfield.Field
	NumBlocks              int
	MessageID              bitfield.Field // 4-bit Merkle leaf index
	IntermediateTreeNodes  bitfield.Field // 1024 bits, 4 sibling hashes
	NewPublicKeyType       bitfield.Field // 4 bits
	NewPublicKeyID         bitfield.Field // 4 bits
	NewPublicKey           bitfield.Field
}

// ParseDsmPkrMessage decodes a fully reassembled DSM-PKR bit-field.
func ParseDsmPkrMessage(msg bitfield.Field) (DsmPkrMessage, error) {
	nbdpRaw := int(msg.Slice(0, 4).Uint64())
	nb, err := pkrBlockCountFromRaw(nbdpRaw)
	if err != nil {
		return DsmPkrMessage{}, err
	}

	npkt := msg.Slice(1032, 1036)
	pkLen, err := PublicKeyType(npkt.Uint64()).BitLen()
	if err != nil {
		return DsmPkrMessage{}, fmt.Errorf("osnma: DSM-PKR: %w", err)
	}

	return DsmPkrMessage{
		Raw:                   msg,
		NumBlocks:             nb,
		MessageID:             msg.Slice(4, 8),
		IntermediateTreeNodes: msg.Slice(8, 8+1024),
		NewPublicKeyType:      npkt,
		NewPublicKeyID:        msg.Slice(1036, 1040),
		NewPublicKey:          msg.Slice(1040, 1040+pkLen),
	}, nil
}

// krootBlockCountFromRaw maps the 4-bit NBDK codepoint (raw 1-8) to the
// total number of blocks (7-14) in the DSM-KROOT message.
func krootBlockCountFromRaw(raw int) (int, error) {
	if raw == 0 || raw >= 9 {
		return 0, fmt.Errorf("osnma: NBDK value %d is reserved", raw)
	}
	return raw + 6, nil
}

// pkrBlockCountFromRaw maps the 4-bit NBDP codepoint (raw 7-10) to the total
// number of blocks (13-16) in the DSM-PKR message. Note the asymmetry with
// KROOT: PKR's valid raw range sits higher in the codepoint space.
func pkrBlockCountFromRaw(raw int) (int, error) {
	if raw <= 6 || raw >= 11 {
		return 0, fmt.Errorf("osnma: NBDP value %d is reserved", raw)
	}
	return raw + 6, nil
}
