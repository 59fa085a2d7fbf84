package types

import "errors"

var (
	// ErrNotFound is returned when a chain or root is absent from the root cache.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRoot is returned when a claimed root is not an agreed root.
	ErrInvalidRoot = errors.New("invalid root")
	// ErrInvalidMerkleProof is returned when a proof does not reconstruct the claimed root.
	ErrInvalidMerkleProof = errors.New("invalid merkle proof")
	// ErrInvalidItem is returned when the claimed item is not covered by the proof.
	ErrInvalidItem = errors.New("invalid item")
	// ErrInvalidDenom is returned when the settlement asset is not the base denom.
	ErrInvalidDenom = errors.New("invalid denom")
	// ErrArithmeticOverflow is returned when a weight or balance sum overflows.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	// ErrUnauthorized is returned when the sender may not invoke a privileged message.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMalformedInput is returned when externally supplied data cannot be decoded.
	ErrMalformedInput = errors.New("malformed input")
	// ErrInsufficientFunds is returned when an account balance cannot cover a send.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrUnknownMessage is returned for a message variant that is not handled.
	ErrUnknownMessage = errors.New("unknown message")
	// ErrInvalidSequence is returned when a signed message does not carry the signer's next sequence.
	ErrInvalidSequence = errors.New("invalid sequence")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrNotFound, "not_found"},
	{ErrInvalidRoot, "invalid_root"},
	{ErrInvalidMerkleProof, "invalid_merkle_proof"},
	{ErrInvalidItem, "invalid_item"},
	{ErrInvalidDenom, "invalid_denom"},
	{ErrArithmeticOverflow, "arithmetic_overflow"},
	{ErrUnauthorized, "unauthorized"},
	{ErrMalformedInput, "malformed_input"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrUnknownMessage, "unknown_message"},
	{ErrInvalidSequence, "invalid_sequence"},
}

// ErrorKind names the taxonomy kind of err, "internal" for errors outside it
// and "" for nil.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}
