package signer

import (
	"github.com/cometbft/cometbft/crypto"
)

// Signer signs execute messages on behalf of an account.
type Signer interface {
	// Sign signs msg with the account key.
	Sign(msg []byte) ([]byte, error)
	// PubKey returns the public key signatures verify against.
	PubKey() crypto.PubKey
}

// Address returns the account address controlled by s.
func Address(s Signer) string {
	return s.PubKey().Address().String()
}
