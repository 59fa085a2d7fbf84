package merkle

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"

	cmtmerkle "github.com/cometbft/cometbft/crypto/merkle"
	cmbytes "github.com/cometbft/cometbft/libs/bytes"
)

var (
	// ErrMalformedProof is returned when a proof is structurally inconsistent.
	ErrMalformedProof = errors.New("malformed merkle proof")
	// ErrRootMismatch is returned when a proof reconstructs a different root.
	ErrRootMismatch = errors.New("merkle root mismatch")
)

// Proof binds one or more leaves to a root. Sibling hashes are listed layer by
// layer from the leaves up, ascending by node index within a layer.
type Proof struct {
	Scheme      Scheme             `json:"scheme,omitempty"`
	LeafIndices []uint64           `json:"leaf_indices"`
	LeafHashes  []cmbytes.HexBytes `json:"leaf_hashes"`
	TotalLeaves uint64             `json:"total_leaves"`
	ProofHashes []cmbytes.HexBytes `json:"proof_hashes"`
}

type node struct {
	index uint64
	hash  []byte
}

// Covers reports whether leafHash is one of the leaves the proof covers.
func (p Proof) Covers(leafHash []byte) bool {
	for _, h := range p.LeafHashes {
		if bytes.Equal(h, leafHash) {
			return true
		}
	}
	return false
}

// Verify recomputes the root from the proof and compares it with root.
func (p Proof) Verify(root []byte) error {
	computed, err := p.ComputeRoot()
	if err != nil {
		return err
	}
	if !bytes.Equal(computed, root) {
		return fmt.Errorf("%w: computed %X, expected %X", ErrRootMismatch, computed, root)
	}
	return nil
}

// ComputeRoot reconstructs the root implied by the covered leaves and sibling hashes.
func (p Proof) ComputeRoot() ([]byte, error) {
	if p.TotalLeaves == 0 {
		return nil, fmt.Errorf("%w: zero total leaves", ErrMalformedProof)
	}
	if len(p.LeafIndices) == 0 {
		return nil, fmt.Errorf("%w: no leaf indices", ErrMalformedProof)
	}
	if len(p.LeafIndices) != len(p.LeafHashes) {
		return nil, fmt.Errorf("%w: %d leaf indices but %d leaf hashes",
			ErrMalformedProof, len(p.LeafIndices), len(p.LeafHashes))
	}

	switch p.Scheme.orDefault() {
	case SchemeKeccak256:
		return p.computeKeccak256Root()
	case SchemeRFC6962:
		return p.computeRFC6962Root()
	default:
		return nil, fmt.Errorf("%w: unknown scheme %q", ErrMalformedProof, p.Scheme)
	}
}

func (p Proof) computeKeccak256Root() ([]byte, error) {
	nodes := make([]node, len(p.LeafIndices))
	for i, idx := range p.LeafIndices {
		if idx >= p.TotalLeaves {
			return nil, fmt.Errorf("%w: leaf index %d out of range %d", ErrMalformedProof, idx, p.TotalLeaves)
		}
		nodes[i] = node{index: idx, hash: p.LeafHashes[i]}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].index < nodes[j].index })
	for i := 1; i < len(nodes); i++ {
		if nodes[i-1].index == nodes[i].index {
			return nil, fmt.Errorf("%w: duplicate leaf index %d", ErrMalformedProof, nodes[i].index)
		}
	}

	next := 0
	sibling := func() ([]byte, error) {
		if next >= len(p.ProofHashes) {
			return nil, fmt.Errorf("%w: ran out of proof hashes", ErrMalformedProof)
		}
		h := p.ProofHashes[next]
		next++
		return h, nil
	}

	width := p.TotalLeaves
	for width > 1 {
		parents := make([]node, 0, len(nodes))
		for i := 0; i < len(nodes); i++ {
			n := nodes[i]
			var left, right []byte
			switch {
			case n.index%2 == 1:
				s, err := sibling()
				if err != nil {
					return nil, err
				}
				left, right = s, n.hash
			case i+1 < len(nodes) && nodes[i+1].index == n.index+1:
				left, right = n.hash, nodes[i+1].hash
				i++
			case n.index+1 < width:
				s, err := sibling()
				if err != nil {
					return nil, err
				}
				left, right = n.hash, s
			default:
				// unpaired trailing node moves up unchanged
				parents = append(parents, node{index: n.index / 2, hash: n.hash})
				continue
			}
			parents = append(parents, node{index: n.index / 2, hash: Keccak256(left, right)})
		}
		nodes = parents
		width = width/2 + width%2
	}

	if next != len(p.ProofHashes) {
		return nil, fmt.Errorf("%w: %d unused proof hashes", ErrMalformedProof, len(p.ProofHashes)-next)
	}
	return nodes[0].hash, nil
}

func (p Proof) computeRFC6962Root() ([]byte, error) {
	if len(p.LeafIndices) != 1 {
		return nil, fmt.Errorf("%w: rfc6962 proofs cover exactly one leaf", ErrMalformedProof)
	}
	if p.TotalLeaves > math.MaxInt64 || p.LeafIndices[0] >= p.TotalLeaves {
		return nil, fmt.Errorf("%w: leaf index %d out of range %d", ErrMalformedProof, p.LeafIndices[0], p.TotalLeaves)
	}

	aunts := make([][]byte, len(p.ProofHashes))
	for i, h := range p.ProofHashes {
		aunts[i] = h
	}
	cp := cmtmerkle.Proof{
		Total:    int64(p.TotalLeaves),
		Index:    int64(p.LeafIndices[0]),
		LeafHash: p.LeafHashes[0],
		Aunts:    aunts,
	}
	if err := cp.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedProof, err)
	}
	root := cp.ComputeRootHash()
	if root == nil {
		return nil, fmt.Errorf("%w: aunts do not match tree shape", ErrMalformedProof)
	}
	return root, nil
}

// RFC6962Proof builds the CometBFT simple-tree proof for items[index] and returns it with the tree root.
func RFC6962Proof(items [][]byte, index uint64) ([]byte, Proof, error) {
	if index >= uint64(len(items)) {
		return nil, Proof{}, fmt.Errorf("%w: leaf index %d out of range %d", ErrMalformedProof, index, len(items))
	}
	root, proofs := cmtmerkle.ProofsFromByteSlices(items)
	cp := proofs[index]

	hashes := make([]cmbytes.HexBytes, len(cp.Aunts))
	for i, a := range cp.Aunts {
		hashes[i] = a
	}
	return root, Proof{
		Scheme:      SchemeRFC6962,
		LeafIndices: []uint64{index},
		LeafHashes:  []cmbytes.HexBytes{cp.LeafHash},
		TotalLeaves: uint64(len(items)),
		ProofHashes: hashes,
	}, nil
}
