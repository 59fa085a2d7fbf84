package types

import (
	"bytes"
	"encoding/json"
	"fmt"

	cmbytes "github.com/cometbft/cometbft/libs/bytes"

	"github.com/rollkit/fastlane/merkle"
)

// ExecuteMsg is the closed set of state changing messages.
type ExecuteMsg interface {
	isExecuteMsg()
}

// SubmitVotes carries one round of vote reports to aggregate.
type SubmitVotes struct {
	Votes []GenericVote `json:"votes"`
}

// SubmitRoot writes an already agreed root directly into the root cache.
type SubmitRoot struct {
	ChainID string           `json:"chain_id"`
	Root    cmbytes.HexBytes `json:"root"`
}

// FastTransfer pays out a transfer immediately against an inclusion proof.
type FastTransfer struct {
	ChainID     string           `json:"chain_id"`
	ClaimedRoot cmbytes.HexBytes `json:"claimed_root"`
	Proof       merkle.Proof     `json:"proof"`
	Item        cmbytes.HexBytes `json:"item"`
	TransferID  uint64           `json:"transfer_id"`
	Recipient   string           `json:"recipient"`
	Amount      Amount           `json:"amount"`
	Denom       string           `json:"denom"`
}

// SlowTransfer settles a transfer through the guaranteed bridge path.
type SlowTransfer struct {
	TransferID uint64 `json:"transfer_id"`
	Recipient  string `json:"recipient"`
	Amount     Amount `json:"amount"`
}

func (SubmitVotes) isExecuteMsg()  {}
func (SubmitRoot) isExecuteMsg()   {}
func (FastTransfer) isExecuteMsg() {}
func (SlowTransfer) isExecuteMsg() {}

// QueryMsg is the closed set of read only messages.
type QueryMsg interface {
	isQueryMsg()
}

// LookupRoot asks for the age of a cached root.
type LookupRoot struct {
	ChainID string           `json:"chain_id"`
	Root    cmbytes.HexBytes `json:"root"`
}

// Roots asks for the cached root history of a chain.
type Roots struct {
	ChainID string `json:"chain_id"`
}

// IsProcessed asks whether a transfer id has been settled.
type IsProcessed struct {
	TransferID uint64 `json:"transfer_id"`
}

// Balance asks for an account balance. An empty denom means the base denom.
type Balance struct {
	Address string `json:"address"`
	Denom   string `json:"denom,omitempty"`
}

// Account asks for the next sequence a signer must use.
type Account struct {
	Address string `json:"address"`
}

func (LookupRoot) isQueryMsg()  {}
func (Roots) isQueryMsg()       {}
func (IsProcessed) isQueryMsg() {}
func (Balance) isQueryMsg()     {}
func (Account) isQueryMsg()     {}

// LookupRootResponse is the answer to LookupRoot. Age 1 is the most recent root.
type LookupRootResponse struct {
	Age uint64 `json:"age"`
}

// RootsResponse is the answer to Roots, oldest root first.
type RootsResponse struct {
	ChainID  string             `json:"chain_id"`
	Roots    []cmbytes.HexBytes `json:"roots"`
	Capacity uint64             `json:"capacity"`
}

// IsProcessedResponse is the answer to IsProcessed.
type IsProcessedResponse struct {
	Processed bool `json:"processed"`
}

// BalanceResponse is the answer to Balance.
type BalanceResponse struct {
	Coin Coin `json:"coin"`
}

// AccountResponse is the answer to Account.
type AccountResponse struct {
	Address  string `json:"address"`
	Sequence uint64 `json:"sequence"`
}

// MessageInfo describes who sent a message and the funds attached to it.
type MessageInfo struct {
	Sender string `json:"sender"`
	Funds  []Coin `json:"funds,omitempty"`
}

// BankSend moves coins from the module account to an address.
type BankSend struct {
	ToAddress string `json:"to_address"`
	Amount    []Coin `json:"amount"`
}

// Attribute is a key/value annotation of a response.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Response is the outcome of an executed message.
type Response struct {
	Messages   []BankSend  `json:"messages,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty"`
}

// AddMessage appends a bank send.
func (r *Response) AddMessage(m BankSend) *Response {
	r.Messages = append(r.Messages, m)
	return r
}

// AddAttribute appends an attribute.
func (r *Response) AddAttribute(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

// ExecuteMsgName returns the wire tag of msg.
func ExecuteMsgName(msg ExecuteMsg) string {
	switch msg.(type) {
	case SubmitVotes:
		return "submit_votes"
	case SubmitRoot:
		return "submit_root"
	case FastTransfer:
		return "fast_transfer"
	case SlowTransfer:
		return "slow_transfer"
	default:
		return "unknown"
	}
}

// QueryMsgName returns the wire tag of msg.
func QueryMsgName(msg QueryMsg) string {
	switch msg.(type) {
	case LookupRoot:
		return "lookup_root"
	case Roots:
		return "roots"
	case IsProcessed:
		return "is_processed"
	case Balance:
		return "balance"
	case Account:
		return "account"
	default:
		return "unknown"
	}
}

// EncodeExecuteMsg encodes msg as {"<tag>": {...}}.
func EncodeExecuteMsg(msg ExecuteMsg) ([]byte, error) {
	name := ExecuteMsgName(msg)
	if name == "unknown" {
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessage, msg)
	}
	return json.Marshal(map[string]ExecuteMsg{name: msg})
}

// EncodeQueryMsg encodes msg as {"<tag>": {...}}.
func EncodeQueryMsg(msg QueryMsg) ([]byte, error) {
	name := QueryMsgName(msg)
	if name == "unknown" {
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessage, msg)
	}
	return json.Marshal(map[string]QueryMsg{name: msg})
}

// DecodeExecuteMsg decodes an externally tagged execute message.
func DecodeExecuteMsg(data []byte) (ExecuteMsg, error) {
	tag, body, err := splitEnvelope(data)
	if err != nil {
		return nil, err
	}

	var msg ExecuteMsg
	switch tag {
	case "submit_votes":
		var m SubmitVotes
		err = decodeBody(tag, body, &m)
		msg = m
	case "submit_root":
		var m SubmitRoot
		err = decodeBody(tag, body, &m)
		msg = m
	case "fast_transfer":
		var m FastTransfer
		err = decodeBody(tag, body, &m)
		msg = m
	case "slow_transfer":
		var m SlowTransfer
		err = decodeBody(tag, body, &m)
		msg = m
	default:
		return nil, fmt.Errorf("%w: execute %q", ErrUnknownMessage, tag)
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// DecodeQueryMsg decodes an externally tagged query message.
func DecodeQueryMsg(data []byte) (QueryMsg, error) {
	tag, body, err := splitEnvelope(data)
	if err != nil {
		return nil, err
	}

	var msg QueryMsg
	switch tag {
	case "lookup_root":
		var m LookupRoot
		err = decodeBody(tag, body, &m)
		msg = m
	case "roots":
		var m Roots
		err = decodeBody(tag, body, &m)
		msg = m
	case "is_processed":
		var m IsProcessed
		err = decodeBody(tag, body, &m)
		msg = m
	case "balance":
		var m Balance
		err = decodeBody(tag, body, &m)
		msg = m
	case "account":
		var m Account
		err = decodeBody(tag, body, &m)
		msg = m
	default:
		return nil, fmt.Errorf("%w: query %q", ErrUnknownMessage, tag)
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func splitEnvelope(data []byte) (string, json.RawMessage, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if len(envelope) != 1 {
		return "", nil, fmt.Errorf("%w: expected exactly one message variant, got %d", ErrMalformedInput, len(envelope))
	}
	for tag, body := range envelope {
		return tag, body, nil
	}
	return "", nil, nil
}

func decodeBody(tag string, body json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedInput, tag, err)
	}
	return nil
}
