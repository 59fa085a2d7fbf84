package types

import (
	"encoding/json"
	"fmt"

	"github.com/cometbft/cometbft/crypto/ed25519"
	cmbytes "github.com/cometbft/cometbft/libs/bytes"

	"github.com/rollkit/fastlane/pkg/signer"
)

const signDomain = "fastlane/execute/v1"

// SignedExecute is an execute message signed by its sender. The sender is
// the address of PubKey. Sequence must equal the sender's next sequence.
type SignedExecute struct {
	PubKey    cmbytes.HexBytes `json:"pub_key"`
	Sequence  uint64           `json:"sequence"`
	Funds     []Coin           `json:"funds,omitempty"`
	Msg       json.RawMessage  `json:"msg"`
	Signature cmbytes.HexBytes `json:"signature"`
}

type signDoc struct {
	Domain   string          `json:"domain"`
	Sequence uint64          `json:"sequence"`
	Funds    []Coin          `json:"funds"`
	Msg      json.RawMessage `json:"msg"`
}

// ExecuteSignBytes returns the bytes signed for an execute message.
func ExecuteSignBytes(sequence uint64, funds []Coin, msg json.RawMessage) ([]byte, error) {
	if funds == nil {
		funds = []Coin{}
	}
	bz, err := json.Marshal(signDoc{
		Domain:   signDomain,
		Sequence: sequence,
		Funds:    funds,
		Msg:      msg,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return bz, nil
}

// SignExecute encodes msg and signs it with s at sequence.
func SignExecute(s signer.Signer, sequence uint64, funds []Coin, msg ExecuteMsg) (SignedExecute, error) {
	raw, err := EncodeExecuteMsg(msg)
	if err != nil {
		return SignedExecute{}, err
	}
	bz, err := ExecuteSignBytes(sequence, funds, raw)
	if err != nil {
		return SignedExecute{}, err
	}
	sig, err := s.Sign(bz)
	if err != nil {
		return SignedExecute{}, fmt.Errorf("failed to sign: %w", err)
	}
	return SignedExecute{
		PubKey:    s.PubKey().Bytes(),
		Sequence:  sequence,
		Funds:     funds,
		Msg:       raw,
		Signature: sig,
	}, nil
}

// Sender verifies the signature and returns the address of the signer.
func (s SignedExecute) Sender() (string, error) {
	if len(s.PubKey) != ed25519.PubKeySize {
		return "", fmt.Errorf("%w: public key must be %d bytes, got %d", ErrUnauthorized, ed25519.PubKeySize, len(s.PubKey))
	}
	bz, err := ExecuteSignBytes(s.Sequence, s.Funds, s.Msg)
	if err != nil {
		return "", err
	}
	pk := ed25519.PubKey(s.PubKey)
	if !pk.VerifySignature(bz, s.Signature) {
		return "", fmt.Errorf("%w: invalid signature for %s", ErrUnauthorized, pk.Address())
	}
	return pk.Address().String(), nil
}
