package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Amount is an unsigned 256-bit token amount. The zero value is 0.
// JSON encodes it as a decimal string.
type Amount struct {
	n uint256.Int
}

// NewAmount returns an amount of v.
func NewAmount(v uint64) Amount {
	var a Amount
	a.n.SetUint64(v)
	return a
}

// ParseAmount parses a decimal amount.
func ParseAmount(s string) (Amount, error) {
	var a Amount
	if err := a.n.SetFromDecimal(s); err != nil {
		return Amount{}, fmt.Errorf("%w: amount %q: %v", ErrMalformedInput, s, err)
	}
	return a, nil
}

// AmountFromBytes decodes a big-endian amount of at most 32 bytes.
func AmountFromBytes(b []byte) (Amount, error) {
	if len(b) > 32 {
		return Amount{}, fmt.Errorf("%w: amount of %d bytes", ErrMalformedInput, len(b))
	}
	var a Amount
	a.n.SetBytes(b)
	return a, nil
}

// Add returns a+b, failing instead of wrapping around.
func (a Amount) Add(b Amount) (Amount, error) {
	var sum Amount
	if _, overflow := sum.n.AddOverflow(&a.n, &b.n); overflow {
		return Amount{}, fmt.Errorf("%w: %s + %s", ErrArithmeticOverflow, a, b)
	}
	return sum, nil
}

// Sub returns a-b, failing with ErrInsufficientFunds when b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.n.Lt(&b.n) {
		return Amount{}, fmt.Errorf("%w: have %s, need %s", ErrInsufficientFunds, a, b)
	}
	var diff Amount
	diff.n.Sub(&a.n, &b.n)
	return diff, nil
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.n.Cmp(&b.n)
}

// IsZero reports whether a is 0.
func (a Amount) IsZero() bool {
	return a.n.IsZero()
}

// Bytes returns the 32-byte big-endian encoding of a.
func (a Amount) Bytes() []byte {
	b := a.n.Bytes32()
	return b[:]
}

func (a Amount) String() string {
	return a.n.Dec()
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.n.Dec())
}

// UnmarshalJSON accepts a quoted decimal string or a bare JSON integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Coin is an amount of a single denom.
type Coin struct {
	Denom  string `json:"denom"`
	Amount Amount `json:"amount"`
}

// NewCoin returns a coin of amount units of denom.
func NewCoin(denom string, amount uint64) Coin {
	return Coin{Denom: denom, Amount: NewAmount(amount)}
}

func (c Coin) String() string {
	return c.Amount.String() + c.Denom
}
