package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/cometbft/cometbft/crypto/ed25519"
	cmbytes "github.com/cometbft/cometbft/libs/bytes"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollkit/fastlane/app"
	"github.com/rollkit/fastlane/bank"
	"github.com/rollkit/fastlane/pkg/log"
	"github.com/rollkit/fastlane/pkg/signer"
	"github.com/rollkit/fastlane/pkg/store"
	rpcjson "github.com/rollkit/fastlane/rpc/json"
	"github.com/rollkit/fastlane/types"
)

func setupTestServer(t *testing.T) (*Client, signer.Signer) {
	t.Helper()
	kv, err := store.NewDefaultInMemoryKVStore()
	require.NoError(t, err)

	authority := signer.NewFileSigner(ed25519.GenPrivKey())
	a, err := app.New(store.New(kv), app.Config{
		BaseDenom:     "uusdc",
		Authority:     signer.Address(authority),
		ModuleAccount: "pool",
	}, log.NewTestLogger(t), nil)
	require.NoError(t, err)
	require.NoError(t, a.InitGenesis(context.Background(), []bank.GenesisBalance{
		{Address: "pool", Coin: types.NewCoin("uusdc", 1000)},
	}))

	handler, err := rpcjson.GetHTTPHandler(a, log.NewTestLogger(t))
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL), authority
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, authority := setupTestServer(t)

	status, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", status)

	root := cmbytes.HexBytes{0xaa, 0xbb}
	resp, err := c.Execute(ctx, authority, nil, types.SubmitRoot{ChainID: "eth-1", Root: root})
	require.NoError(t, err)
	assert.NotNil(t, resp)
	_, err = c.Execute(ctx, authority, nil, types.SubmitRoot{ChainID: "eth-1", Root: cmbytes.HexBytes{0xcc}})
	require.NoError(t, err)

	account, err := c.Account(ctx, signer.Address(authority))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), account.Sequence)

	var lookup types.LookupRootResponse
	require.NoError(t, c.Query(ctx, types.LookupRoot{ChainID: "eth-1", Root: root}, &lookup))
	assert.Equal(t, uint64(1), lookup.Age)

	var roots types.RootsResponse
	require.NoError(t, c.Query(ctx, types.Roots{ChainID: "eth-1"}, &roots))
	assert.Equal(t, []cmbytes.HexBytes{root, {0xcc}}, roots.Roots)

	var processed types.IsProcessedResponse
	require.NoError(t, c.Query(ctx, types.IsProcessed{TransferID: 1}, &processed))
	assert.False(t, processed.Processed)
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()
	c, _ := setupTestServer(t)
	mallory := signer.NewFileSigner(ed25519.GenPrivKey())

	_, err := c.Execute(ctx, mallory, nil, types.SubmitRoot{ChainID: "eth-1", Root: []byte{1}})
	require.Error(t, err)
	var rpcErr *json2.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, "unauthorized", rpcErr.Data)

	var lookup types.LookupRootResponse
	err = c.Query(ctx, types.LookupRoot{ChainID: "eth-1", Root: []byte{1}}, &lookup)
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, "not_found", rpcErr.Data)

	_, err = NewClient("http://127.0.0.1:1").Health(ctx)
	assert.Error(t, err)
	_, err = NewClient("http://127.0.0.1:1").Execute(ctx, mallory, nil, types.SubmitRoot{ChainID: "eth-1", Root: []byte{1}})
	assert.Error(t, err)
}

func TestClientCannotSpoofAuthority(t *testing.T) {
	ctx := context.Background()
	c, authority := setupTestServer(t)
	mallory := signer.NewFileSigner(ed25519.GenPrivKey())

	tx, err := types.SignExecute(mallory, 0, nil,
		types.SlowTransfer{TransferID: 1, Recipient: "mallory", Amount: types.NewAmount(1000)})
	require.NoError(t, err)
	tx.PubKey = authority.PubKey().Bytes()

	var reply rpcjson.ExecuteResult
	err = c.call(ctx, "execute", rpcjson.ExecuteArgs(tx), &reply)
	var rpcErr *json2.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, json2.E_INVALID_REQ, rpcErr.Code)
	assert.Equal(t, "unauthorized", rpcErr.Data)

	_, err = c.Execute(ctx, mallory, nil, types.SlowTransfer{TransferID: 1, Recipient: "mallory", Amount: types.NewAmount(1000)})
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, "unauthorized", rpcErr.Data)

	var bal types.BalanceResponse
	require.NoError(t, c.Query(ctx, types.Balance{Address: "mallory"}, &bal))
	assert.True(t, bal.Coin.Amount.IsZero())
	require.NoError(t, c.Query(ctx, types.Balance{Address: "pool"}, &bal))
	assert.Equal(t, "1000", bal.Coin.Amount.String())

	// a captured request cannot be submitted twice
	tx, err = types.SignExecute(authority, 0, nil, types.SubmitRoot{ChainID: "eth-1", Root: []byte{1}})
	require.NoError(t, err)
	require.NoError(t, c.call(ctx, "execute", rpcjson.ExecuteArgs(tx), &reply))
	err = c.call(ctx, "execute", rpcjson.ExecuteArgs(tx), &reply)
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, "invalid_sequence", rpcErr.Data)
}
