package rootcache

import (
	"bytes"
	"fmt"

	cmbytes "github.com/cometbft/cometbft/libs/bytes"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/rollkit/fastlane/types"
)

const (
	historyChainIDField  protowire.Number = 1
	historyRootsField    protowire.Number = 2
	historyCapacityField protowire.Number = 3
)

// History is the bounded root history of one chain, oldest root first.
type History struct {
	ChainID  string
	Roots    []cmbytes.HexBytes
	Capacity uint64
}

func (h *History) indexOf(root []byte) int {
	for i, r := range h.Roots {
		if bytes.Equal(r, root) {
			return i
		}
	}
	return -1
}

// push appends root, evicting the oldest root first when at capacity.
// It reports false when root is already present.
func (h *History) push(root []byte) bool {
	if h.indexOf(root) >= 0 {
		return false
	}
	for uint64(len(h.Roots)) >= h.Capacity && len(h.Roots) > 0 {
		h.Roots = h.Roots[1:]
	}
	h.Roots = append(h.Roots, append(cmbytes.HexBytes(nil), root...))
	return true
}

// age returns how recently root was appended, 1 being the newest.
func (h *History) age(root []byte) (uint64, bool) {
	i := h.indexOf(root)
	if i < 0 {
		return 0, false
	}
	return uint64(len(h.Roots) - i), true
}

func (h *History) marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, historyChainIDField, protowire.BytesType)
	b = protowire.AppendString(b, h.ChainID)
	for _, r := range h.Roots {
		b = protowire.AppendTag(b, historyRootsField, protowire.BytesType)
		b = protowire.AppendBytes(b, r)
	}
	b = protowire.AppendTag(b, historyCapacityField, protowire.VarintType)
	b = protowire.AppendVarint(b, h.Capacity)
	return b
}

func (h *History) unmarshal(b []byte) error {
	*h = History{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return corrupt(n)
		}
		b = b[n:]

		switch {
		case num == historyChainIDField && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return corrupt(n)
			}
			h.ChainID, b = v, b[n:]
		case num == historyRootsField && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return corrupt(n)
			}
			h.Roots, b = append(h.Roots, append(cmbytes.HexBytes(nil), v...)), b[n:]
		case num == historyCapacityField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return corrupt(n)
			}
			h.Capacity, b = v, b[n:]
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return corrupt(n)
			}
			b = b[n:]
		}
	}
	return nil
}

func corrupt(n int) error {
	return fmt.Errorf("%w: corrupt root history: %v", types.ErrMalformedInput, protowire.ParseError(n))
}
