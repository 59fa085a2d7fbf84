package app

import (
	"context"
	"fmt"
	"testing"

	cmbytes "github.com/cometbft/cometbft/libs/bytes"
	"github.com/stretchr/testify/require"

	"github.com/rollkit/fastlane/bank"
	"github.com/rollkit/fastlane/merkle"
	"github.com/rollkit/fastlane/pkg/log"
	"github.com/rollkit/fastlane/pkg/store"
	"github.com/rollkit/fastlane/types"
)

const (
	authority = "authority"
	pool      = "pool"
	denom     = "uusdc"
	chainID   = "eth-1"
)

var authorityInfo = types.MessageInfo{Sender: authority}

func newTestApp(t *testing.T, poolFunds uint64) *App {
	t.Helper()
	kv, err := store.NewDefaultInMemoryKVStore()
	require.NoError(t, err)

	a, err := New(store.New(kv), Config{
		BaseDenom:     denom,
		Authority:     authority,
		ModuleAccount: pool,
	}, log.NewTestLogger(t), NopMetrics())
	require.NoError(t, err)

	require.NoError(t, a.InitGenesis(context.Background(), []bank.GenesisBalance{
		{Address: pool, Coin: types.NewCoin(denom, poolFunds)},
		{Address: authority, Coin: types.NewCoin(denom, 500)},
	}))
	return a
}

func vote(power uint64, roots map[string][]byte) types.GenericVote {
	m := make(map[string]cmbytes.HexBytes, len(roots))
	for k, v := range roots {
		m[k] = v
	}
	return types.GenericVote{Vote: types.EncodeVote(m), Power: power}
}

func balance(t *testing.T, a *App, address string) uint64 {
	t.Helper()
	resp, err := a.Query(context.Background(), types.Balance{Address: address})
	require.NoError(t, err)
	coin := resp.(types.BalanceResponse).Coin
	require.Equal(t, denom, coin.Denom)

	var out uint64
	_, err = fmt.Sscan(coin.Amount.String(), &out)
	require.NoError(t, err)
	return out
}

func processed(t *testing.T, a *App, id uint64) bool {
	t.Helper()
	resp, err := a.Query(context.Background(), types.IsProcessed{TransferID: id})
	require.NoError(t, err)
	return resp.(types.IsProcessedResponse).Processed
}

// agreeOnReceipts makes a tree over receipts the agreed root of chainID.
func agreeOnReceipts(t *testing.T, a *App, receipts [][]byte) *merkle.Tree {
	t.Helper()
	return agreeOnReceiptsAs(t, a, authorityInfo, receipts)
}

func agreeOnReceiptsAs(t *testing.T, a *App, info types.MessageInfo, receipts [][]byte) *merkle.Tree {
	t.Helper()
	tree := merkle.TreeFromItems(receipts)
	_, err := a.Execute(context.Background(), info, types.SubmitVotes{Votes: []types.GenericVote{
		vote(70, map[string][]byte{chainID: tree.Root()}),
		vote(30, map[string][]byte{chainID: merkle.Keccak256([]byte("fork"))}),
	}})
	require.NoError(t, err)
	return tree
}

func fastTransferFor(t *testing.T, tree *merkle.Tree, receipts [][]byte, index uint64, id uint64, amount uint64) types.FastTransfer {
	t.Helper()
	proof, err := tree.Proof([]uint64{index})
	require.NoError(t, err)
	return types.FastTransfer{
		ChainID:     chainID,
		ClaimedRoot: tree.Root(),
		Proof:       proof,
		Item:        receipts[index],
		TransferID:  id,
		Recipient:   "alice",
		Amount:      types.NewAmount(amount),
		Denom:       denom,
	}
}

func testReceipts() [][]byte {
	return [][]byte{[]byte("r0"), []byte("r1"), []byte("r2"), []byte("r3"), []byte("r4")}
}

func TestSubmitVotes(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	a := newTestApp(t, 1000)

	_, err := a.Execute(ctx, authorityInfo, types.SubmitVotes{Votes: []types.GenericVote{
		vote(70, map[string][]byte{"chain-a": []byte("x"), "chain-b": []byte("p")}),
		vote(30, map[string][]byte{"chain-a": []byte("y"), "chain-b": []byte("q")}),
		vote(50, map[string][]byte{"chain-b": []byte("q")}),
	}})
	require.NoError(err)

	resp, err := a.Query(ctx, types.LookupRoot{ChainID: "chain-a", Root: []byte("x")})
	require.NoError(err)
	require.Equal(types.LookupRootResponse{Age: 1}, resp)

	_, err = a.Query(ctx, types.LookupRoot{ChainID: "chain-a", Root: []byte("y")})
	require.ErrorIs(err, types.ErrNotFound)

	// chain-b splits 70/80 and accepts nothing
	_, err = a.Query(ctx, types.Roots{ChainID: "chain-b"})
	require.ErrorIs(err, types.ErrNotFound)

	resp, err = a.Query(ctx, types.Roots{ChainID: "chain-a"})
	require.NoError(err)
	require.Equal(types.RootsResponse{
		ChainID:  "chain-a",
		Roots:    []cmbytes.HexBytes{[]byte("x")},
		Capacity: 6,
	}, resp)
}

func TestPrivilegedMessagesRequireAuthority(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, 1000)
	mallory := types.MessageInfo{Sender: "mallory"}

	msgs := []types.ExecuteMsg{
		types.SubmitVotes{Votes: []types.GenericVote{vote(1, map[string][]byte{chainID: []byte("r")})}},
		types.SubmitRoot{ChainID: chainID, Root: []byte("r")},
		types.SlowTransfer{TransferID: 1, Recipient: "mallory", Amount: types.NewAmount(1)},
	}
	for _, msg := range msgs {
		t.Run(types.ExecuteMsgName(msg), func(t *testing.T) {
			_, err := a.Execute(ctx, mallory, msg)
			require.ErrorIs(t, err, types.ErrUnauthorized)
		})
	}

	_, err := a.Query(ctx, types.Roots{ChainID: chainID})
	require.ErrorIs(t, err, types.ErrNotFound)
	require.False(t, processed(t, a, 1))
	require.EqualValues(t, 0, balance(t, a, "mallory"))
}

func TestMalformedVotesWriteNothing(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, 1000)

	_, err := a.Execute(ctx, authorityInfo, types.SubmitVotes{Votes: []types.GenericVote{
		vote(100, map[string][]byte{chainID: []byte("r")}),
		{Vote: []byte{0xff, 0x01}, Power: 1},
	}})
	require.ErrorIs(t, err, types.ErrMalformedInput)

	_, err = a.Query(ctx, types.Roots{ChainID: chainID})
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestFastThenSlowPaysOnce(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	a := newTestApp(t, 1000)
	receipts := testReceipts()
	tree := agreeOnReceipts(t, a, receipts)

	resp, err := a.Execute(ctx, types.MessageInfo{Sender: "relayer"}, fastTransferFor(t, tree, receipts, 2, 42, 100))
	require.NoError(err)
	require.Len(resp.Messages, 1)
	require.EqualValues(100, balance(t, a, "alice"))
	require.EqualValues(900, balance(t, a, pool))
	require.True(processed(t, a, 42))

	// the slow path brings the bridged funds, which stay in the pool
	resp, err = a.Execute(ctx, types.MessageInfo{Sender: authority, Funds: []types.Coin{types.NewCoin(denom, 100)}},
		types.SlowTransfer{TransferID: 42, Recipient: "alice", Amount: types.NewAmount(100)})
	require.NoError(err)
	require.Empty(resp.Messages)
	require.Contains(resp.Attributes, types.Attribute{Key: "paid", Value: "false"})
	require.EqualValues(100, balance(t, a, "alice"))
	require.EqualValues(1000, balance(t, a, pool))
	require.EqualValues(400, balance(t, a, authority))
}

func TestSlowThenFastPaysOnce(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	a := newTestApp(t, 1000)
	receipts := testReceipts()
	tree := agreeOnReceipts(t, a, receipts)

	_, err := a.Execute(ctx, authorityInfo, types.SlowTransfer{TransferID: 7, Recipient: "alice", Amount: types.NewAmount(30)})
	require.NoError(err)
	require.EqualValues(30, balance(t, a, "alice"))

	resp, err := a.Execute(ctx, types.MessageInfo{Sender: "relayer"}, fastTransferFor(t, tree, receipts, 0, 7, 30))
	require.NoError(err)
	require.Empty(resp.Messages)
	require.EqualValues(30, balance(t, a, "alice"))
	require.EqualValues(970, balance(t, a, pool))
}

func TestFastTransferRejections(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, 1000)
	receipts := testReceipts()
	tree := agreeOnReceipts(t, a, receipts)

	testCases := []struct {
		name        string
		mutate      func(m *types.FastTransfer)
		expectedErr error
	}{
		{"WrongDenom", func(m *types.FastTransfer) { m.Denom = "uatom" }, types.ErrInvalidDenom},
		{"UnknownRoot", func(m *types.FastTransfer) { m.ClaimedRoot = merkle.Keccak256([]byte("fork")[:3]) }, types.ErrInvalidRoot},
		{"WrongChain", func(m *types.FastTransfer) { m.ChainID = "eth-2" }, types.ErrInvalidRoot},
		{"BadProof", func(m *types.FastTransfer) {
			m.Proof.ProofHashes = append([]cmbytes.HexBytes{merkle.Keccak256([]byte("x"))}, m.Proof.ProofHashes[1:]...)
		}, types.ErrInvalidMerkleProof},
		{"ItemNotProven", func(m *types.FastTransfer) { m.Item = receipts[3] }, types.ErrInvalidItem},
		{"NoRecipient", func(m *types.FastTransfer) { m.Recipient = "" }, types.ErrMalformedInput},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg := fastTransferFor(t, tree, receipts, 1, 5, 10)
			tc.mutate(&msg)
			_, err := a.Execute(ctx, types.MessageInfo{Sender: "relayer"}, msg)
			require.ErrorIs(t, err, tc.expectedErr)
			require.False(t, processed(t, a, 5))
			require.EqualValues(t, 1000, balance(t, a, pool))
		})
	}
}

func TestFailedPayoutRollsBack(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, 50)
	receipts := testReceipts()
	tree := agreeOnReceipts(t, a, receipts)

	_, err := a.Execute(ctx, types.MessageInfo{Sender: "relayer"}, fastTransferFor(t, tree, receipts, 4, 9, 51))
	require.ErrorIs(t, err, types.ErrInsufficientFunds)
	require.False(t, processed(t, a, 9))
	require.EqualValues(t, 50, balance(t, a, pool))
	require.EqualValues(t, 0, balance(t, a, "alice"))
}

func TestAttachedFundsNeedBalance(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, 0)

	_, err := a.Execute(ctx, types.MessageInfo{Sender: authority, Funds: []types.Coin{types.NewCoin(denom, 501)}},
		types.SlowTransfer{TransferID: 1, Recipient: "alice", Amount: types.NewAmount(501)})
	require.ErrorIs(t, err, types.ErrInsufficientFunds)
	require.False(t, processed(t, a, 1))
	require.EqualValues(t, 500, balance(t, a, authority))
}

func TestSubmitRoot(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	a := newTestApp(t, 0)

	for i := 0; i < 8; i++ {
		_, err := a.Execute(ctx, authorityInfo, types.SubmitRoot{ChainID: chainID, Root: []byte{byte(i)}})
		require.NoError(err)
	}
	resp, err := a.Query(ctx, types.Roots{ChainID: chainID})
	require.NoError(err)
	require.Len(resp.(types.RootsResponse).Roots, 6)

	resp, err = a.Query(ctx, types.LookupRoot{ChainID: chainID, Root: []byte{2}})
	require.NoError(err)
	require.Equal(types.LookupRootResponse{Age: 6}, resp)

	_, err = a.Execute(ctx, authorityInfo, types.SubmitRoot{ChainID: chainID})
	require.ErrorIs(err, types.ErrMalformedInput)
}

func TestMaxRootAge(t *testing.T) {
	ctx := context.Background()
	kv, err := store.NewDefaultInMemoryKVStore()
	require.NoError(t, err)
	a, err := New(store.New(kv), Config{
		BaseDenom:     denom,
		Authority:     authority,
		ModuleAccount: pool,
		MaxRootAge:    1,
	}, log.NewNopLogger(), nil)
	require.NoError(t, err)
	require.NoError(t, a.InitGenesis(ctx, []bank.GenesisBalance{{Address: pool, Coin: types.NewCoin(denom, 100)}}))

	receipts := testReceipts()
	tree := agreeOnReceipts(t, a, receipts)
	_, err = a.Execute(ctx, authorityInfo, types.SubmitRoot{ChainID: chainID, Root: []byte("newer")})
	require.NoError(t, err)

	_, err = a.Execute(ctx, types.MessageInfo{Sender: "relayer"}, fastTransferFor(t, tree, receipts, 0, 1, 1))
	require.ErrorIs(t, err, types.ErrInvalidRoot)
}

func TestUnknownMessages(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, 0)

	_, err := a.Execute(ctx, authorityInfo, &types.SubmitRoot{ChainID: chainID, Root: []byte("r")})
	require.ErrorIs(t, err, types.ErrUnknownMessage)
	_, err = a.Query(ctx, &types.Roots{ChainID: chainID})
	require.ErrorIs(t, err, types.ErrUnknownMessage)
}

func TestNewValidatesConfig(t *testing.T) {
	kv, err := store.NewDefaultInMemoryKVStore()
	require.NoError(t, err)
	s := store.New(kv)

	_, err = New(s, Config{ModuleAccount: pool}, log.NewNopLogger(), nil)
	require.Error(t, err)
	_, err = New(s, Config{BaseDenom: denom}, log.NewNopLogger(), nil)
	require.Error(t, err)
	_, err = New(s, Config{BaseDenom: denom, ModuleAccount: pool, ProofScheme: "sha1"}, log.NewNopLogger(), nil)
	require.Error(t, err)
}

func TestInitGenesisAppliesOnce(t *testing.T) {
	a := newTestApp(t, 1000)

	require.NoError(t, a.InitGenesis(context.Background(), []bank.GenesisBalance{
		{Address: pool, Coin: types.NewCoin(denom, 1000)},
	}))
	require.Equal(t, uint64(1000), balance(t, a, pool))
}
