package node

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollkit/fastlane/aggregator"
	"github.com/rollkit/fastlane/merkle"
	"github.com/rollkit/fastlane/pkg/config"
	"github.com/rollkit/fastlane/pkg/log"
	"github.com/rollkit/fastlane/pkg/store"
	"github.com/rollkit/fastlane/types"
)

func testConfig() config.Config {
	cfg := config.DefaultConfig
	cfg.RPC.Address = "127.0.0.1:0"
	cfg.FastTransfer.Authority = "authority"
	cfg.Bank.GenesisBalances = []config.GenesisBalance{
		{Address: cfg.Bank.ModuleAccount, Denom: cfg.FastTransfer.BaseDenom, Amount: "2500"},
	}
	return cfg
}

func TestNewNodeAppliesGenesis(t *testing.T) {
	ctx := context.Background()
	db, err := store.NewDefaultInMemoryKVStore()
	require.NoError(t, err)

	cfg := testConfig()
	n, err := NewNode(ctx, cfg, db, nil, log.NewTestLogger(t))
	require.NoError(t, err)

	resp, err := n.App.Query(ctx, types.Balance{Address: cfg.Bank.ModuleAccount})
	require.NoError(t, err)
	assert.Equal(t, "2500", resp.(types.BalanceResponse).Coin.Amount.String())

	// reopening the same store must not credit genesis twice
	n, err = NewNode(ctx, cfg, db, nil, log.NewTestLogger(t))
	require.NoError(t, err)
	resp, err = n.App.Query(ctx, types.Balance{Address: cfg.Bank.ModuleAccount})
	require.NoError(t, err)
	assert.Equal(t, "2500", resp.(types.BalanceResponse).Coin.Amount.String())
}

func TestNewNodeRejectsBadGenesis(t *testing.T) {
	db, err := store.NewDefaultInMemoryKVStore()
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Bank.GenesisBalances[0].Amount = "ten"
	_, err = NewNode(context.Background(), cfg, db, nil, log.NewNopLogger())
	assert.ErrorIs(t, err, types.ErrMalformedInput)
}

func TestNodeRunStopsOnCancel(t *testing.T) {
	db, err := store.NewDefaultInMemoryKVStore()
	require.NoError(t, err)

	n, err := NewNode(context.Background(), testConfig(), db, nil, log.NewTestLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("node did not stop")
	}
}

func TestNodeRunReportsListenFailure(t *testing.T) {
	db, err := store.NewDefaultInMemoryKVStore()
	require.NoError(t, err)

	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	cfg := testConfig()
	cfg.RPC.Address = taken.Addr().String()
	n, err := NewNode(context.Background(), cfg, db, nil, log.NewNopLogger())
	require.NoError(t, err)

	err = n.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc")
}

func TestAppConfig(t *testing.T) {
	cfg := testConfig()
	cfg.FastTransfer.ProofScheme = "rfc6962"
	cfg.FastTransfer.MaxRootAge = 4

	appCfg := AppConfig(cfg)
	assert.Equal(t, uint64(6), appCfg.CacheSize)
	assert.Equal(t, aggregator.Quorum{Numerator: 2, Denominator: 3}, appCfg.Quorum)
	assert.Equal(t, "uusdc", appCfg.BaseDenom)
	assert.Equal(t, "authority", appCfg.Authority)
	assert.Equal(t, merkle.SchemeRFC6962, appCfg.ProofScheme)
	assert.Equal(t, uint64(4), appCfg.MaxRootAge)
	assert.Equal(t, "fastlane-pool", appCfg.ModuleAccount)
}

func TestDefaultMetricsProviderDisabled(t *testing.T) {
	m := DefaultMetricsProvider(config.DefaultInstrumentationConfig())()
	require.NotNil(t, m)
}
