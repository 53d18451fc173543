// Package merkle verifies a renewed OSNMA public key against the published
// Merkle tree root, and loads that root from the OSNMA Merkle tree XML file.
package merkle

import (
	"crypto/sha256"
	"encoding/xml"
	"fmt"
	"os"

	"osnma/bitfield"
)

// treeNode is one <TreeNode> element of the OSNMA Merkle tree XML
// distribution: a (level, index) pair and its hash.
type treeNode struct {
	J            int    `xml:"j"`
	I            int    `xml:"i"`
	LengthInBits int    `xml:"lengthInBits"`
	XJI          string `xml:"x_ji"`
}

// merkleTreeDocument is the root element wrapping every published node.
// The distribution has no single enclosing element, so LoadTreeXML wraps it
// (see wrapAsDocument) and decodes it in full rather than scanning lines.
type merkleTreeDocument struct {
	Nodes []treeNode `xml:"TreeNode"`
}

// Tree verifies a renewed public key (delivered via DSM-PKR) against a
// trusted 4-level Merkle tree root.
type Tree struct {
	Root bitfield.Field // 256-bit root hash
}

// New wraps an already-known root hash.
func New(root bitfield.Field) Tree {
	return Tree{Root: root}
}

// LoadTreeXML extracts the Merkle tree root (the j=4,i=0 node) from the
// OSNMA Merkle tree XML file shipped alongside the public key.
func LoadTreeXML(path string) (Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tree{}, fmt.Errorf("merkle: %w", err)
	}

	var doc merkleTreeDocument
	if err := xml.Unmarshal(wrapAsDocument(data), &doc); err != nil {
		return Tree{}, fmt.Errorf("merkle: parsing tree XML: %w", err)
	}

	for _, n := range doc.Nodes {
		if n.J == 4 && n.I == 0 {
			root, err := bitfield.FromHex(n.XJI)
			if err != nil {
				return Tree{}, fmt.Errorf("merkle: root hash: %w", err)
			}
			return Tree{Root: root}, nil
		}
	}
	return Tree{}, fmt.Errorf("merkle: unable to find root TreeNode (j=4,i=0) in %s", path)
}

// wrapAsDocument wraps the published <TreeNode> elements (which the
// distribution ships with no single enclosing root tag) in a synthetic
// <MerkleTree> root so encoding/xml can decode them as one document.
func wrapAsDocument(data []byte) []byte {
	out := make([]byte, 0, len(data)+32)
	out = append(out, []byte("<MerkleTree>")...)
	out = append(out, data...)
	out = append(out, []byte("</MerkleTree>")...)
	return out
}

// PkrMaterial is the subset of a reassembled DSM-PKR message needed to
// validate its new public key against the tree.
type PkrMaterial struct {
	MessageID             bitfield.Field // 4-bit Merkle leaf index
	IntermediateTreeNodes bitfield.Field // 1024 bits: 4 sibling hashes
	NewPublicKeyType      bitfield.Field // 4 bits
	NewPublicKeyID        bitfield.Field // 4 bits
	NewPublicKey          bitfield.Field
}

// ValidatePublicKey hashes the leaf formed by pkr's new-key fields up
// through the four intermediate sibling nodes and compares the result
// against the trusted root.
//
// At each level, which side the already-computed node occupies is
// determined by the corresponding bit of the message ID, read from its
// least-significant bit upward: bit 0 (the first sibling consumed) decides
// level 1, and so on.
func (t Tree) ValidatePublicKey(pkr PkrMaterial) bool {
	msg := pkr.NewPublicKeyType.Concat(pkr.NewPublicKeyID).Concat(pkr.NewPublicKey)
	h := sha256.Sum256(msg.Bytes())
	result := h[:]

	const levels = 4
	for i := 0; i < levels; i++ {
		bit := pkr.MessageID.BitAt(levels - 1 - i)
		node := pkr.IntermediateTreeNodes.Slice(i*256, (i+1)*256).Bytes()

		var combined []byte
		if bit {
			combined = append(append([]byte{}, node...), result...)
		} else {
			combined = append(append([]byte{}, result...), node...)
		}
		sum := sha256.Sum256(combined)
		result = sum[:]
	}

	return bitfield.FromBytes(result).Equal(t.Root)
}
