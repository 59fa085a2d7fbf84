package merkle

import (
	"github.com/cometbft/cometbft/crypto/tmhash"
	"golang.org/x/crypto/sha3"
)

// Scheme names how leaves and inner nodes of a tree are hashed.
type Scheme string

const (
	// SchemeKeccak256 hashes leaves and node pairs with keccak256 and promotes
	// an unpaired trailing node to the next layer unchanged.
	SchemeKeccak256 Scheme = "keccak256"
	// SchemeRFC6962 is the Tendermint/CometBFT simple tree: sha256 with
	// 0x00 leaf and 0x01 inner prefixes.
	SchemeRFC6962 Scheme = "rfc6962"
)

var rfc6962LeafPrefix = []byte{0x00}

// Keccak256 returns the legacy (Ethereum) keccak256 digest of the concatenated inputs.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// LeafHash returns the leaf hash of item under the given scheme.
func LeafHash(scheme Scheme, item []byte) []byte {
	switch scheme.orDefault() {
	case SchemeRFC6962:
		return tmhash.Sum(append(append([]byte{}, rfc6962LeafPrefix...), item...))
	default:
		return Keccak256(item)
	}
}

func (s Scheme) orDefault() Scheme {
	if s == "" {
		return SchemeKeccak256
	}
	return s
}

// Valid reports whether s names a supported scheme. The empty scheme means keccak256.
func (s Scheme) Valid() bool {
	switch s.orDefault() {
	case SchemeKeccak256, SchemeRFC6962:
		return true
	}
	return false
}
