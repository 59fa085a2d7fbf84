package merkle

import (
	"fmt"
	"sort"

	cmbytes "github.com/cometbft/cometbft/libs/bytes"
)

// Tree is a keccak256 binary Merkle tree kept layer by layer,
// layers[0] holding the leaf hashes.
type Tree struct {
	layers [][][]byte
}

// NewTree builds a tree over already hashed leaves.
func NewTree(leafHashes [][]byte) *Tree {
	if len(leafHashes) == 0 {
		return &Tree{}
	}
	layer := make([][]byte, len(leafHashes))
	copy(layer, leafHashes)

	layers := [][][]byte{layer}
	for len(layer) > 1 {
		next := make([][]byte, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			if i+1 < len(layer) {
				next = append(next, Keccak256(layer[i], layer[i+1]))
			} else {
				next = append(next, layer[i])
			}
		}
		layers = append(layers, next)
		layer = next
	}
	return &Tree{layers: layers}
}

// TreeFromItems hashes every item with keccak256 and builds a tree over them.
func TreeFromItems(items [][]byte) *Tree {
	leaves := make([][]byte, len(items))
	for i, item := range items {
		leaves[i] = LeafHash(SchemeKeccak256, item)
	}
	return NewTree(leaves)
}

// Root returns the tree root, nil for an empty tree.
func (t *Tree) Root() []byte {
	if len(t.layers) == 0 {
		return nil
	}
	return t.layers[len(t.layers)-1][0]
}

// LeafCount returns the number of leaves.
func (t *Tree) LeafCount() uint64 {
	if len(t.layers) == 0 {
		return 0
	}
	return uint64(len(t.layers[0]))
}

// Proof returns a multiproof covering the leaves at the given indices.
func (t *Tree) Proof(indices []uint64) (Proof, error) {
	total := t.LeafCount()
	if total == 0 {
		return Proof{}, fmt.Errorf("%w: empty tree", ErrMalformedProof)
	}
	if len(indices) == 0 {
		return Proof{}, fmt.Errorf("%w: no leaf indices", ErrMalformedProof)
	}

	sorted := append([]uint64(nil), indices...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i, idx := range sorted {
		if idx >= total {
			return Proof{}, fmt.Errorf("%w: leaf index %d out of range %d", ErrMalformedProof, idx, total)
		}
		if i > 0 && sorted[i-1] == idx {
			return Proof{}, fmt.Errorf("%w: duplicate leaf index %d", ErrMalformedProof, idx)
		}
	}

	proof := Proof{
		Scheme:      SchemeKeccak256,
		LeafIndices: sorted,
		LeafHashes:  make([]cmbytes.HexBytes, len(sorted)),
		TotalLeaves: total,
	}
	for i, idx := range sorted {
		proof.LeafHashes[i] = t.layers[0][idx]
	}

	current := sorted
	for l := 0; l < len(t.layers)-1; l++ {
		layer := t.layers[l]
		width := uint64(len(layer))
		parents := make([]uint64, 0, len(current))
		for i := 0; i < len(current); i++ {
			idx := current[i]
			sibling := idx ^ 1
			switch {
			case idx%2 == 0 && i+1 < len(current) && current[i+1] == sibling:
				i++
			case sibling < width:
				proof.ProofHashes = append(proof.ProofHashes, layer[sibling])
			}
			if len(parents) == 0 || parents[len(parents)-1] != idx/2 {
				parents = append(parents, idx/2)
			}
		}
		current = parents
	}
	return proof, nil
}
