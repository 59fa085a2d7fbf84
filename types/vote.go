package types

import (
	"fmt"
	"sort"

	cmbytes "github.com/cometbft/cometbft/libs/bytes"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the vote wire encoding:
//
//	message Vote      { repeated ChainRoot roots = 1; }
//	message ChainRoot { string chain_id = 1; bytes root = 2; }
const (
	voteRootsField     protowire.Number = 1
	chainRootIDField   protowire.Number = 1
	chainRootRootField protowire.Number = 2
)

// VoteReport is one reporter's proposed root per chain, all carrying the same weight.
type VoteReport struct {
	Roots  map[string]cmbytes.HexBytes `json:"roots"`
	Weight uint64                      `json:"weight"`
}

// GenericVote is a vote report as submitted on the wire: an encoded vote
// and the voting power of its reporter.
type GenericVote struct {
	Vote  []byte `json:"vote"`
	Power uint64 `json:"power"`
}

// EncodeVote encodes roots in chain id order so equal votes encode to equal bytes.
func EncodeVote(roots map[string]cmbytes.HexBytes) []byte {
	chainIDs := make([]string, 0, len(roots))
	for id := range roots {
		chainIDs = append(chainIDs, id)
	}
	sort.Strings(chainIDs)

	var b []byte
	for _, id := range chainIDs {
		var entry []byte
		entry = protowire.AppendTag(entry, chainRootIDField, protowire.BytesType)
		entry = protowire.AppendString(entry, id)
		entry = protowire.AppendTag(entry, chainRootRootField, protowire.BytesType)
		entry = protowire.AppendBytes(entry, roots[id])

		b = protowire.AppendTag(b, voteRootsField, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b
}

// DecodeVote decodes the per-chain roots of an encoded vote.
func DecodeVote(b []byte) (map[string]cmbytes.HexBytes, error) {
	roots := make(map[string]cmbytes.HexBytes)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, malformedWire("vote", n)
		}
		b = b[n:]

		if num != voteRootsField || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, malformedWire("vote", n)
			}
			b = b[n:]
			continue
		}

		entry, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, malformedWire("vote", n)
		}
		b = b[n:]

		chainID, root, err := decodeChainRoot(entry)
		if err != nil {
			return nil, err
		}
		if _, dup := roots[chainID]; dup {
			return nil, fmt.Errorf("%w: vote names chain %q twice", ErrMalformedInput, chainID)
		}
		roots[chainID] = root
	}
	return roots, nil
}

func decodeChainRoot(b []byte) (string, cmbytes.HexBytes, error) {
	var (
		chainID string
		root    []byte
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", nil, malformedWire("chain root", n)
		}
		b = b[n:]

		switch {
		case num == chainRootIDField && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return "", nil, malformedWire("chain id", n)
			}
			chainID, b = v, b[n:]
		case num == chainRootRootField && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return "", nil, malformedWire("root", n)
			}
			root, b = append([]byte(nil), v...), b[n:]
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return "", nil, malformedWire("chain root", n)
			}
			b = b[n:]
		}
	}
	if chainID == "" {
		return "", nil, fmt.Errorf("%w: vote entry without chain id", ErrMalformedInput)
	}
	if len(root) == 0 {
		return "", nil, fmt.Errorf("%w: empty root for chain %q", ErrMalformedInput, chainID)
	}
	return chainID, root, nil
}

// DecodeVotes turns wire votes into reports, keeping their order.
func DecodeVotes(votes []GenericVote) ([]VoteReport, error) {
	reports := make([]VoteReport, 0, len(votes))
	for i, v := range votes {
		roots, err := DecodeVote(v.Vote)
		if err != nil {
			return nil, fmt.Errorf("vote %d: %w", i, err)
		}
		reports = append(reports, VoteReport{Roots: roots, Weight: v.Power})
	}
	return reports, nil
}

func malformedWire(what string, n int) error {
	return fmt.Errorf("%w: %s: %v", ErrMalformedInput, what, protowire.ParseError(n))
}
