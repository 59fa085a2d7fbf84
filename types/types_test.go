package types

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/cometbft/cometbft/crypto/ed25519"
	cmbytes "github.com/cometbft/cometbft/libs/bytes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestAmountArithmetic(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	sum, err := NewAmount(math.MaxUint64).Add(NewAmount(1))
	require.NoError(err)
	require.Equal("18446744073709551616", sum.String())

	max, err := ParseAmount("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	require.NoError(err)
	_, err = max.Add(NewAmount(1))
	require.ErrorIs(err, ErrArithmeticOverflow)

	diff, err := NewAmount(10).Sub(NewAmount(4))
	require.NoError(err)
	require.Equal(0, diff.Cmp(NewAmount(6)))

	_, err = NewAmount(4).Sub(NewAmount(10))
	require.ErrorIs(err, ErrInsufficientFunds)

	back, err := AmountFromBytes(sum.Bytes())
	require.NoError(err)
	require.Equal(0, back.Cmp(sum))
	require.Len(sum.Bytes(), 32)

	_, err = ParseAmount("-1")
	require.ErrorIs(err, ErrMalformedInput)
	_, err = AmountFromBytes(make([]byte, 33))
	require.ErrorIs(err, ErrMalformedInput)
}

func TestAmountJSON(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	bz, err := json.Marshal(NewCoin("uatom", 42))
	require.NoError(err)
	require.JSONEq(`{"denom":"uatom","amount":"42"}`, string(bz))

	var c Coin
	require.NoError(json.Unmarshal([]byte(`{"denom":"uatom","amount":7}`), &c))
	require.Equal("7uatom", c.String())

	require.Error(json.Unmarshal([]byte(`{"denom":"uatom","amount":"abc"}`), &c))
}

func TestVoteEncoding(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	roots := map[string]cmbytes.HexBytes{
		"osmosis-1":    {0x01, 0x02},
		"cosmoshub-4":  {0xaa},
		"ethereum/1/0": {0xff, 0xee, 0xdd},
	}
	bz := EncodeVote(roots)
	require.Equal(bz, EncodeVote(roots))

	decoded, err := DecodeVote(bz)
	require.NoError(err)
	require.Equal(roots, decoded)

	empty, err := DecodeVote(nil)
	require.NoError(err)
	require.Empty(empty)
}

func TestDecodeVoteMalformed(t *testing.T) {
	t.Parallel()

	entry := func(chainID string, root []byte) []byte {
		var e []byte
		e = protowire.AppendTag(e, chainRootIDField, protowire.BytesType)
		e = protowire.AppendString(e, chainID)
		e = protowire.AppendTag(e, chainRootRootField, protowire.BytesType)
		e = protowire.AppendBytes(e, root)
		return e
	}
	wrap := func(entries ...[]byte) []byte {
		var b []byte
		for _, e := range entries {
			b = protowire.AppendTag(b, voteRootsField, protowire.BytesType)
			b = protowire.AppendBytes(b, e)
		}
		return b
	}

	cases := []struct {
		name string
		in   []byte
	}{
		{"garbage", []byte{0xff, 0xff, 0xff}},
		{"truncated", wrap(entry("a", []byte{1}))[:4]},
		{"duplicate chain", wrap(entry("a", []byte{1}), entry("a", []byte{2}))},
		{"missing chain id", wrap(entry("", []byte{1}))},
		{"empty root", wrap(entry("a", nil))},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := DecodeVote(c.in)
			assert.ErrorIs(t, err, ErrMalformedInput)
		})
	}
}

func TestDecodeVotesKeepsOrder(t *testing.T) {
	t.Parallel()

	votes := []GenericVote{
		{Vote: EncodeVote(map[string]cmbytes.HexBytes{"a": {1}}), Power: 70},
		{Vote: EncodeVote(map[string]cmbytes.HexBytes{"a": {2}}), Power: 30},
	}
	reports, err := DecodeVotes(votes)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.EqualValues(t, 70, reports[0].Weight)
	assert.Equal(t, cmbytes.HexBytes{2}, reports[1].Roots["a"])

	_, err = DecodeVotes([]GenericVote{{Vote: []byte{0xff}, Power: 1}})
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestExecuteMsgRoundTrip(t *testing.T) {
	t.Parallel()

	msgs := []ExecuteMsg{
		SubmitVotes{Votes: []GenericVote{{Vote: []byte{1, 2}, Power: 5}}},
		SubmitRoot{ChainID: "a", Root: cmbytes.HexBytes{0xab}},
		SlowTransfer{TransferID: 9, Recipient: "bob", Amount: NewAmount(100)},
	}
	for _, msg := range msgs {
		t.Run(ExecuteMsgName(msg), func(t *testing.T) {
			bz, err := EncodeExecuteMsg(msg)
			require.NoError(t, err)
			decoded, err := DecodeExecuteMsg(bz)
			require.NoError(t, err)
			assert.Equal(t, msg, decoded)
		})
	}
}

func TestDecodeExecuteMsg(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	msg, err := DecodeExecuteMsg([]byte(`{"fast_transfer":{
		"chain_id":"eth-1",
		"claimed_root":"AABB",
		"proof":{"leaf_indices":[0],"leaf_hashes":["CC"],"total_leaves":1,"proof_hashes":[]},
		"item":"0102",
		"transfer_id":3,
		"recipient":"alice",
		"amount":"25",
		"denom":"uusdc"}}`))
	require.NoError(err)
	ft, ok := msg.(FastTransfer)
	require.True(ok)
	require.Equal(cmbytes.HexBytes{0xaa, 0xbb}, ft.ClaimedRoot)
	require.EqualValues(3, ft.TransferID)
	require.Equal("25", ft.Amount.String())
	require.EqualValues(1, ft.Proof.TotalLeaves)
}

func TestDecodeMsgErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		err  error
	}{
		{"not json", `nope`, ErrMalformedInput},
		{"two variants", `{"roots":{"chain_id":"a"},"balance":{"address":"b"}}`, ErrMalformedInput},
		{"no variant", `{}`, ErrMalformedInput},
		{"unknown variant", `{"stake":{}}`, ErrUnknownMessage},
		{"bad hex", `{"lookup_root":{"chain_id":"a","root":"zz"}}`, ErrMalformedInput},
		{"unknown field", `{"roots":{"chain_id":"a","extra":1}}`, ErrMalformedInput},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := DecodeQueryMsg([]byte(c.in))
			assert.ErrorIs(t, err, c.err)
		})
	}

	_, err := DecodeExecuteMsg([]byte(`{"slow_transfer":{"transfer_id":1,"recipient":"a","amount":"x"}}`))
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", ErrorKind(nil))
	assert.Equal(t, "invalid_item", ErrorKind(fmt.Errorf("verify: %w", ErrInvalidItem)))
	assert.Equal(t, "arithmetic_overflow", ErrorKind(ErrArithmeticOverflow))
	assert.Equal(t, "invalid_sequence", ErrorKind(fmt.Errorf("tx: %w", ErrInvalidSequence)))
	assert.Equal(t, "internal", ErrorKind(fmt.Errorf("disk on fire")))
}

func TestMsgNamesRejectPointers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "fast_transfer", ExecuteMsgName(FastTransfer{}))
	assert.Equal(t, "unknown", ExecuteMsgName(&FastTransfer{}))
	assert.Equal(t, "account", QueryMsgName(Account{}))
	assert.Equal(t, "unknown", QueryMsgName(&Roots{}))

	_, err := EncodeExecuteMsg(&SlowTransfer{TransferID: 1})
	assert.ErrorIs(t, err, ErrUnknownMessage)
	_, err = EncodeQueryMsg(&Balance{Address: "a"})
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

func TestSignedExecute(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	key := ed25519.GenPrivKey()
	funds := []Coin{NewCoin("uusdc", 10)}
	tx, err := SignExecute(key, 3, funds, SlowTransfer{TransferID: 1, Recipient: "bob", Amount: NewAmount(10)})
	require.NoError(err)

	sender, err := tx.Sender()
	require.NoError(err)
	require.Equal(key.PubKey().Address().String(), sender)

	// the signature survives a JSON round trip with reformatted whitespace
	bz, err := json.Marshal(tx)
	require.NoError(err)
	var decoded SignedExecute
	require.NoError(json.Unmarshal(bz, &decoded))
	decoded.Msg = json.RawMessage(" " + string(decoded.Msg) + "\n")
	_, err = decoded.Sender()
	require.NoError(err)

	tampered := []func(s *SignedExecute){
		func(s *SignedExecute) { s.Sequence++ },
		func(s *SignedExecute) { s.Funds = nil },
		func(s *SignedExecute) {
			s.Msg = json.RawMessage(`{"slow_transfer":{"transfer_id":1,"recipient":"mallory","amount":"10"}}`)
		},
		func(s *SignedExecute) { s.PubKey = ed25519.GenPrivKey().PubKey().Bytes() },
		func(s *SignedExecute) { s.PubKey = s.PubKey[:5] },
		func(s *SignedExecute) { s.Signature = nil },
	}
	for i, mutate := range tampered {
		s := tx
		s.Funds = append([]Coin(nil), tx.Funds...)
		mutate(&s)
		_, err := s.Sender()
		require.ErrorIs(err, ErrUnauthorized, "case %d", i)
	}
}

func TestSignExecuteRejectsUnknownMessage(t *testing.T) {
	t.Parallel()
	_, err := SignExecute(ed25519.GenPrivKey(), 0, nil, &SubmitRoot{})
	assert.ErrorIs(t, err, ErrUnknownMessage)
}
